package correlate

import (
	"testing"

	"github.com/standardbeagle/armcorrelate/internal/segment"
)

func TestMergeChainsAdjacentMatches(t *testing.T) {
	segs := []segment.Segment{
		asmSeg(0, 4),
		asmSeg(4, 4),
		asmSeg(8, 4),
	}
	grid := Grid{
		{dataSeg(100, 4)},
		{dataSeg(104, 4)},
		{dataSeg(108, 4)},
	}

	corr, err := Merge(segs, grid, 0)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(corr) != 1 {
		t.Fatalf("len(corr) = %d, want 1 (all three chunks should chain into one run); got %+v", len(corr), corr)
	}
	entry := corr[0]
	if entry.Src.Offset != 0 || entry.Src.Length != 12 {
		t.Errorf("merged Src = %+v, want offset 0 length 12", entry.Src)
	}
	if len(entry.Targets) != 1 || entry.Targets[0].Offset != 100 || entry.Targets[0].Length != 12 {
		t.Errorf("merged Targets = %+v, want single [100,112)", entry.Targets)
	}
}

func TestMergeFillsHolesWithNoMatch(t *testing.T) {
	segs := []segment.Segment{asmSeg(0, 4), asmSeg(4, 4)}
	grid := Grid{nil, nil}

	corr, err := Merge(segs, grid, 0)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(corr) != 1 {
		t.Fatalf("len(corr) = %d, want 1 hole entry spanning both chunks", len(corr))
	}
	if corr[0].Src.Offset != 0 || corr[0].Src.Length != 8 {
		t.Errorf("hole Src = %+v, want offset 0 length 8", corr[0].Src)
	}
	if len(corr[0].Targets) != 0 {
		t.Errorf("expected hole entry to have no targets, got %+v", corr[0].Targets)
	}
}

func TestMergeRejectsNegativeTolerance(t *testing.T) {
	if _, err := Merge(nil, nil, -1); err == nil {
		t.Error("expected error for negative toleranceInstructions")
	}
}

func TestMergePartialFillTrimsOverlappingCandidate(t *testing.T) {
	// Four source chunks at offsets 0,4,8,12. The longest chain (0-2,
	// targets 100/104/108) is accepted greedily first. A second, shorter
	// chain (2-3, targets 500/504) shares chunk 2 with the first: its
	// source range [8,16) overlaps the accepted [0,12) without being a
	// subset of it, so it can't be added outright and falls to the
	// partial-fill pass. addPartial must trim off the overlapping chunk 2
	// and add only chunk 3 (offset 12-16, target 504-508) as its own
	// entry — not merged into the first, since the target gap between
	// 112 and 504 is far larger than the tolerance.
	segs := []segment.Segment{
		asmSeg(0, 4),
		asmSeg(4, 4),
		asmSeg(8, 4),
		asmSeg(12, 4),
	}
	grid := Grid{
		{dataSeg(100, 4)},
		{dataSeg(104, 4)},
		{dataSeg(108, 4), dataSeg(500, 4)},
		{dataSeg(504, 4)},
	}

	corr, err := Merge(segs, grid, 0)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(corr) != 2 {
		t.Fatalf("len(corr) = %d, want 2; got %+v", len(corr), corr)
	}

	first, second := corr[0], corr[1]
	if first.Src.Offset != 0 || first.Src.Length != 12 {
		t.Errorf("first.Src = %+v, want offset 0 length 12", first.Src)
	}
	if len(first.Targets) != 1 || first.Targets[0].Offset != 100 || first.Targets[0].Length != 12 {
		t.Errorf("first.Targets = %+v, want single [100,112)", first.Targets)
	}
	if second.Src.Offset != 12 || second.Src.Length != 4 {
		t.Errorf("second.Src = %+v, want offset 12 length 4 (trimmed to exclude the shared chunk)", second.Src)
	}
	if len(second.Targets) != 1 || second.Targets[0].Offset != 504 || second.Targets[0].Length != 4 {
		t.Errorf("second.Targets = %+v, want single [504,508)", second.Targets)
	}
}

func TestMergeDoesNotChainBeyondTolerance(t *testing.T) {
	segs := []segment.Segment{
		asmSeg(0, 4),
		asmSeg(4, 4),
	}
	// Target gap of 100 bytes between matches, far beyond a 0-instruction
	// tolerance: the two chunks must not merge into one run.
	grid := Grid{
		{dataSeg(100, 4)},
		{dataSeg(204, 4)},
	}
	corr, err := Merge(segs, grid, 0)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(corr) != 2 {
		t.Fatalf("len(corr) = %d, want 2 separate entries; got %+v", len(corr), corr)
	}
}
