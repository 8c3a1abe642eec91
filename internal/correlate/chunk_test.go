package correlate

import (
	"testing"

	"github.com/standardbeagle/armcorrelate/internal/pattern"
	"github.com/standardbeagle/armcorrelate/internal/segment"
)

func TestChunkSourceEvenDivision(t *testing.T) {
	segs, err := ChunkSource(32, 0, -1, 2)
	if err != nil {
		t.Fatalf("ChunkSource: %v", err)
	}
	if len(segs) != 4 {
		t.Fatalf("len(segs) = %d, want 4", len(segs))
	}
	for i, s := range segs {
		wantOffset := i * 8
		if s.Offset != wantOffset || s.Length != 8 || s.Kind != segment.KindAsm {
			t.Errorf("segs[%d] = %+v, want offset %d length 8 asm", i, s, wantOffset)
		}
	}
}

func TestChunkSourceShortFinalChunk(t *testing.T) {
	segs, err := ChunkSource(20, 0, -1, 2)
	if err != nil {
		t.Fatalf("ChunkSource: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("len(segs) = %d, want 3", len(segs))
	}
	last := segs[len(segs)-1]
	if last.Offset != 16 || last.Length != 4 {
		t.Errorf("final chunk = %+v, want offset 16 length 4", last)
	}
}

func TestChunkSourceScanRange(t *testing.T) {
	segs, err := ChunkSource(100, 8, 16, 2)
	if err != nil {
		t.Fatalf("ChunkSource: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("len(segs) = %d, want 2", len(segs))
	}
	if segs[0].Offset != 8 || segs[len(segs)-1].End() != 24 {
		t.Errorf("scan range not respected: first=%+v last=%+v", segs[0], segs[len(segs)-1])
	}
}

func TestChunkSourceRejectsInvalidArgs(t *testing.T) {
	if _, err := ChunkSource(10, 0, -1, 0); err == nil {
		t.Error("expected error for zero chunkInstrs")
	}
	if _, err := ChunkSource(10, -1, -1, 2); err == nil {
		t.Error("expected error for negative scanStart")
	}
	if _, err := ChunkSource(10, 20, -1, 2); err == nil {
		t.Error("expected error for scanStart exceeding srcLen")
	}
	if _, err := ChunkSource(10, 0, 20, 2); err == nil {
		t.Error("expected error for scanLen exceeding srcLen")
	}
}

func TestCompilePatternsOnePerSegment(t *testing.T) {
	src := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	segs := []segment.Segment{
		{Offset: 0, Length: 4, Kind: segment.KindAsm},
		{Offset: 4, Length: 4, Kind: segment.KindAsm},
	}
	patterns, err := CompilePatterns(src, segs, pattern.Options{})
	if err != nil {
		t.Fatalf("CompilePatterns: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("len(patterns) = %d, want 2", len(patterns))
	}
	for _, p := range patterns {
		if p == nil || p.Re == nil {
			t.Error("expected every pattern to be compiled")
		}
	}
}
