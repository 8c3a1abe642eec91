package search

import (
	"testing"

	"github.com/standardbeagle/armcorrelate/internal/binaryfile"
	"github.com/standardbeagle/armcorrelate/internal/pattern"
)

func TestFindLocatesAllOccurrences(t *testing.T) {
	target := &binaryfile.Buffer{ID: "t1", Bytes: []byte{0xAA, 0x01, 0x02, 0xBB, 0x01, 0x02, 0xCC}}
	p, err := pattern.Literal([]byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Literal: %v", err)
	}

	eng := New()
	matches, err := eng.Find(target, p, 2)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
	if matches[0].Offset != 1 || matches[1].Offset != 4 {
		t.Errorf("matches = %+v, want offsets [1, 4]", matches)
	}
}

func TestFindNoMatchIsNotError(t *testing.T) {
	target := &binaryfile.Buffer{ID: "t2", Bytes: []byte{0xAA, 0xBB, 0xCC}}
	p, err := pattern.Literal([]byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Literal: %v", err)
	}
	eng := New()
	matches, err := eng.Find(target, p, 2)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("len(matches) = %d, want 0", len(matches))
	}
}

func TestFindCachesByTargetAndPatternSource(t *testing.T) {
	target := &binaryfile.Buffer{ID: "t3", Bytes: []byte{0x01, 0x02, 0x01, 0x02}}
	p, err := pattern.Literal([]byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Literal: %v", err)
	}
	eng := New()

	first, err := eng.Find(target, p, 2)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	cached, ok := eng.cache[target.ID][p.Source]
	if !ok {
		t.Fatal("expected a cache entry keyed by target ID and pattern source")
	}
	if len(cached) != len(first) {
		t.Errorf("cached entry len = %d, want %d", len(cached), len(first))
	}

	second, err := eng.Find(target, p, 2)
	if err != nil {
		t.Fatalf("Find (second call): %v", err)
	}
	if len(second) != len(first) {
		t.Errorf("second Find returned %d matches, want %d (cache hit should be identical)", len(second), len(first))
	}
}
