// Package search implements the non-overlapping pattern search engine
// (C4): a linear scan over a target buffer with a per-target cache keyed
// by pattern byte identity, per spec §4.4.
package search

import (
	"github.com/standardbeagle/armcorrelate/internal/binaryfile"
	"github.com/standardbeagle/armcorrelate/internal/pattern"
	"github.com/standardbeagle/armcorrelate/internal/segment"
)

// Engine caches search results per (target ID, pattern source) so that
// duplicated chunks — common at small chunk sizes — are searched once.
type Engine struct {
	cache map[string]map[string][]segment.Segment
}

// New returns an empty Engine.
func New() *Engine {
	return &Engine{cache: make(map[string]map[string][]segment.Segment)}
}

// Find returns every non-overlapping match of p in target, each a data
// segment of length matchLen at the match offset. Results are cached by
// (target.ID, p.Source); an empty result is not an error.
func (e *Engine) Find(target *binaryfile.Buffer, p *pattern.Pattern, matchLen int) ([]segment.Segment, error) {
	perTarget, ok := e.cache[target.ID]
	if !ok {
		perTarget = make(map[string][]segment.Segment)
		e.cache[target.ID] = perTarget
	}
	if hit, ok := perTarget[p.Source]; ok {
		return hit, nil
	}

	idx := p.Re.FindAllIndex(target.Bytes, -1)
	matches := make([]segment.Segment, 0, len(idx))
	for _, loc := range idx {
		seg, err := segment.NewData(loc[0], matchLen)
		if err != nil {
			return nil, err
		}
		matches = append(matches, seg)
	}

	perTarget[p.Source] = matches
	return matches, nil
}
