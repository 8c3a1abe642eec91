package covgui

import (
	"testing"

	"fyne.io/fyne/v2/test"

	"github.com/standardbeagle/armcorrelate/internal/correlate"
	"github.com/standardbeagle/armcorrelate/internal/segment"
)

func taggedEntry(off, length int, tags ...int) correlate.TaggedEntry {
	s, _ := segment.NewAsm(off, length)
	e := correlate.TaggedEntry{Src: s}
	for _, tag := range tags {
		e.Tags = append(e.Tags, correlate.TaggedTargets{Tag: tag})
	}
	return e
}

func TestComputeGapsFindsUntaggedEntries(t *testing.T) {
	testApp := test.NewApp()
	defer testApp.Quit()

	g := &GUI{
		App: testApp,
		Selected: correlate.TaggedCorrelation{
			taggedEntry(0, 8, 0),
			taggedEntry(8, 4),
			taggedEntry(12, 8, 0, 1),
		},
		TargetNames: []string{"target-a", "target-b"},
	}
	g.computeGaps()

	if len(g.gaps) != 1 {
		t.Fatalf("len(gaps) = %d, want 1", len(g.gaps))
	}
	if g.gaps[0].Offset != 8 || g.gaps[0].Length != 4 {
		t.Errorf("gaps[0] = %+v, want offset 8 length 4", g.gaps[0])
	}
}

func TestInitializeViewsBuildsRatioBarsAndList(t *testing.T) {
	testApp := test.NewApp()
	defer testApp.Quit()

	g := &GUI{
		App: testApp,
		Selected: correlate.TaggedCorrelation{
			taggedEntry(0, 8, 0),
			taggedEntry(8, 8, 0, 1),
		},
		TargetNames: []string{"target-a", "target-b"},
	}
	g.computeGaps()
	g.initializeViews()

	if g.RatioBars == nil {
		t.Fatal("expected RatioBars to be built")
	}
	if g.GapList == nil {
		t.Fatal("expected GapList to be built")
	}
	if len(g.gaps) != 0 {
		t.Errorf("len(gaps) = %d, want 0 (every entry above carries a tag)", len(g.gaps))
	}
}

func TestCoverageByTagRatios(t *testing.T) {
	testApp := test.NewApp()
	defer testApp.Quit()

	g := &GUI{
		App: testApp,
		Selected: correlate.TaggedCorrelation{
			taggedEntry(0, 8, 0),
			taggedEntry(8, 8, 0, 1),
		},
	}
	ratios := g.coverageByTag()
	if ratios[0] != 1.0 {
		t.Errorf("ratios[0] = %v, want 1.0 (tag 0 covers every selected byte)", ratios[0])
	}
	if ratios[1] != 0.5 {
		t.Errorf("ratios[1] = %v, want 0.5", ratios[1])
	}
}

func TestCoverageByTagEmptySelection(t *testing.T) {
	testApp := test.NewApp()
	defer testApp.Quit()

	g := &GUI{App: testApp}
	ratios := g.coverageByTag()
	if len(ratios) != 0 {
		t.Errorf("expected no ratios for an empty selection, got %v", ratios)
	}
}
