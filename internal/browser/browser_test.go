package browser

import (
	"strings"
	"testing"

	"github.com/standardbeagle/armcorrelate/internal/correlate"
	"github.com/standardbeagle/armcorrelate/internal/segment"
)

func asmSeg(off, length int) segment.Segment {
	s, _ := segment.NewAsm(off, length)
	return s
}

func dataSeg(off, length int) segment.Segment {
	s, _ := segment.NewData(off, length)
	return s
}

func TestNewPopulatesListWithOneRowPerEntry(t *testing.T) {
	selected := correlate.TaggedCorrelation{
		{Src: asmSeg(0, 8), Tags: []correlate.TaggedTargets{{Tag: 0, Targets: []segment.Segment{dataSeg(100, 8)}}}},
		{Src: asmSeg(8, 8)},
	}
	b := New(selected, make(correlate.InterpolationSet), []string{"target-a"})

	if b.List.GetItemCount() != 2 {
		t.Fatalf("List.GetItemCount() = %d, want 2", b.List.GetItemCount())
	}
}

func TestShowDetailRendersTargetsAndInterpolationMarker(t *testing.T) {
	src := asmSeg(0, 8)
	target := dataSeg(100, 8)
	selected := correlate.TaggedCorrelation{
		{Src: src, Tags: []correlate.TaggedTargets{{Tag: 0, Targets: []segment.Segment{target}}}},
	}
	interpolated := correlate.InterpolationSet{
		correlate.InterpolationKey{Src: src, Tag: 0, Target: target}: struct{}{},
	}
	b := New(selected, interpolated, []string{"target-a"})

	text := b.Detail.GetText(true)
	if !strings.Contains(text, "target-a") {
		t.Errorf("detail text = %q, want it to mention target-a", text)
	}
	if !strings.Contains(text, "(interpolated)") {
		t.Errorf("detail text = %q, want an interpolated marker", text)
	}
}

func TestShowDetailOutOfRangeClearsText(t *testing.T) {
	b := New(correlate.TaggedCorrelation{{Src: asmSeg(0, 4)}}, make(correlate.InterpolationSet), nil)
	b.showDetail(5)
	if b.Detail.GetText(true) != "" {
		t.Errorf("expected an out-of-range index to clear the detail pane, got %q", b.Detail.GetText(true))
	}
}

func TestHasInterpolated(t *testing.T) {
	src := asmSeg(0, 8)
	target := dataSeg(100, 8)
	entry := correlate.TaggedEntry{Src: src, Tags: []correlate.TaggedTargets{{Tag: 0, Targets: []segment.Segment{target}}}}

	empty := make(correlate.InterpolationSet)
	if hasInterpolated(entry, empty) {
		t.Error("expected hasInterpolated to be false with an empty interpolation set")
	}

	marked := correlate.InterpolationSet{
		correlate.InterpolationKey{Src: src, Tag: 0, Target: target}: struct{}{},
	}
	if !hasInterpolated(entry, marked) {
		t.Error("expected hasInterpolated to be true when the (src, tag, target) triple is marked")
	}
}
