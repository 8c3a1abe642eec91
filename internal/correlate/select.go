package correlate

import (
	"math"
	"sort"

	"github.com/standardbeagle/armcorrelate/internal/segment"
)

// TaggedTargets is one target's match list for a selected source segment,
// tagged with the target's index in the caller's target list.
type TaggedTargets struct {
	Tag     int
	Targets []segment.Segment
}

// TaggedEntry is a selected source segment plus every target's match list
// that applies to it.
type TaggedEntry struct {
	Src  segment.Segment
	Tags []TaggedTargets
}

// TaggedCorrelation is the selector's output: a single non-overlapping
// source coverage list spanning the union of all input coverage.
type TaggedCorrelation []TaggedEntry

// InterpolationKey identifies one interpolated (approximate) target
// segment within the tagged correlation output.
type InterpolationKey struct {
	Src    segment.Segment
	Tag    int
	Target segment.Segment
}

// InterpolationSet is the set of interpolated (src, tag, target) triples
// within a TaggedCorrelation.
type InterpolationSet map[InterpolationKey]struct{}

func (s InterpolationSet) add(k InterpolationKey)    { s[k] = struct{}{} }
func (s InterpolationSet) remove(k InterpolationKey) { delete(s, k) }

// interpolate scales a reference (src_ref, tgt_ref) pair to a new source
// sub-range [start, end), rounding half away from zero — the Open
// Question the source spec leaves unresolved (see DESIGN.md). Returns the
// new target segment and whether the interpolation was exact (same
// length as the reference, hence not worth flagging).
func interpolate(srcRef, tgtRef segment.Segment, start, end int) (segment.Segment, bool) {
	scale := float64(end-start) / float64(srcRef.Length)
	dStart := float64(start - srcRef.Offset)
	dEnd := float64(end - srcRef.End())
	newStart := tgtRef.Offset + roundHalfAwayFromZero(scale*dStart)
	newEnd := tgtRef.End() + roundHalfAwayFromZero(scale*dEnd)
	length := newEnd - newStart
	if length < 1 {
		length = 1
	}
	exact := (end - start) == srcRef.Length
	return segment.Segment{Offset: newStart, Length: length, Kind: tgtRef.Kind}, exact
}

func roundHalfAwayFromZero(x float64) int {
	if x >= 0 {
		return int(math.Floor(x + 0.5))
	}
	return -int(math.Floor(-x + 0.5))
}

// cursor tracks one target's position through its merged correlation
// list during the streaming select pass.
type cursor struct {
	entries []CorrelationEntry
	pos     int
}

// Select runs the single streaming pass of §4.7 across every target's
// merged correlation list, producing one non-overlapping tagged
// correlation list plus the set of interpolated target segments.
func Select(perTarget []Correlation) (TaggedCorrelation, InterpolationSet) {
	interpolated := make(InterpolationSet)
	var selected TaggedCorrelation

	cursors := make([]cursor, len(perTarget))
	for i, c := range perTarget {
		cursors[i] = cursor{entries: c}
	}

	for {
		tnext := -1
		var cnext *CorrelationEntry
		for t := range cursors {
			cur := &cursors[t]
			if cur.pos >= len(cur.entries) {
				continue
			}
			cand := &cur.entries[cur.pos]
			if cnext == nil || cand.Src.Offset < cnext.Src.Offset {
				tnext, cnext = t, cand
			}
		}
		if cnext == nil {
			break
		}
		cursors[tnext].pos++

		if len(cnext.Targets) == 0 {
			continue
		}

		if len(selected) == 0 || selected[len(selected)-1].Src.End() <= cnext.Src.Offset {
			selected = append(selected, TaggedEntry{Src: cnext.Src, Tags: []TaggedTargets{{Tag: tnext, Targets: cnext.Targets}}})
			continue
		}

		cprevIdx := len(selected) - 1
		cprev := &selected[cprevIdx]

		switch {
		case cnext.Src.Equal(cprev.Src):
			cprev.Tags = append(cprev.Tags, TaggedTargets{Tag: tnext, Targets: cnext.Targets})

		case cnext.Src.End() <= cprev.Src.End():
			// Subset of the previous selection: drop.

		case cnext.Src.Offset <= cprev.Src.Offset && cnext.Src.End() >= cprev.Src.End():
			for _, tg := range cprev.Tags {
				for _, t := range tg.Targets {
					interpolated.remove(InterpolationKey{Src: cprev.Src, Tag: tg.Tag, Target: t})
				}
			}
			selected[cprevIdx] = TaggedEntry{Src: cnext.Src, Tags: []TaggedTargets{{Tag: tnext, Targets: cnext.Targets}}}

		case cnext.Src.Length <= cprev.Src.Length:
			splitStart, splitEnd := cprev.Src.End(), cnext.Src.End()
			splitSrc := segment.Segment{Offset: splitStart, Length: splitEnd - splitStart, Kind: cnext.Src.Kind}
			splitTargets := make([]segment.Segment, 0, len(cnext.Targets))
			for _, t := range cnext.Targets {
				interp, exact := interpolate(cnext.Src, t, splitStart, splitEnd)
				splitTargets = append(splitTargets, interp)
				if !exact {
					interpolated.add(InterpolationKey{Src: splitSrc, Tag: tnext, Target: interp})
				}
			}
			selected = append(selected, TaggedEntry{Src: splitSrc, Tags: []TaggedTargets{{Tag: tnext, Targets: splitTargets}}})

		default: // cnext.Src.Length > cprev.Src.Length
			splitStart, splitEnd := cprev.Src.Offset, cnext.Src.Offset
			splitSrc := segment.Segment{Offset: splitStart, Length: splitEnd - splitStart, Kind: cprev.Src.Kind}
			newTags := make([]TaggedTargets, 0, len(cprev.Tags))
			for _, tg := range cprev.Tags {
				splitSegs := make([]segment.Segment, 0, len(tg.Targets))
				for _, t := range tg.Targets {
					interp, exact := interpolate(cprev.Src, t, splitStart, splitEnd)
					interpolated.remove(InterpolationKey{Src: cprev.Src, Tag: tg.Tag, Target: t})
					splitSegs = append(splitSegs, interp)
					if !exact {
						interpolated.add(InterpolationKey{Src: splitSrc, Tag: tg.Tag, Target: interp})
					}
				}
				newTags = append(newTags, TaggedTargets{Tag: tg.Tag, Targets: splitSegs})
			}
			selected[cprevIdx] = TaggedEntry{Src: splitSrc, Tags: newTags}
			selected = append(selected, TaggedEntry{Src: cnext.Src, Tags: []TaggedTargets{{Tag: tnext, Targets: cnext.Targets}}})
		}
	}

	if len(selected) > 0 {
		start, end := selected[0].Src.Offset, selected[0].Src.End()
		for _, e := range perTarget {
			for _, entry := range e {
				if entry.Src.Offset < start {
					start = entry.Src.Offset
				}
				if entry.Src.End() > end {
					end = entry.Src.End()
				}
			}
		}
		selected = fillSelectionHoles(selected, start, end)
	}

	return selected, interpolated
}

func fillSelectionHoles(entries TaggedCorrelation, start, end int) TaggedCorrelation {
	holeStart := start
	var holes []segment.Segment
	for _, e := range entries {
		if holeLen := e.Src.Offset - holeStart; holeLen > 0 {
			holes = append(holes, segment.Segment{Offset: holeStart, Length: holeLen, Kind: segment.KindAsm})
		}
		holeStart = e.Src.End()
	}
	if holeLen := end - holeStart; holeLen > 0 {
		holes = append(holes, segment.Segment{Offset: holeStart, Length: holeLen, Kind: segment.KindAsm})
	}
	for _, h := range holes {
		entries = append(entries, TaggedEntry{Src: h})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Src.Less(entries[j].Src) })
	return entries
}
