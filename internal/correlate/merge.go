package correlate

import (
	"sort"

	"github.com/standardbeagle/armcorrelate/internal/corerr"
	"github.com/standardbeagle/armcorrelate/internal/segment"
)

// CorrelationEntry maps one source segment to its ordered target matches
// in a single target. An empty Targets list marks a hole.
type CorrelationEntry struct {
	Src     segment.Segment
	Targets []segment.Segment
}

// Correlation is a per-target correlation list, sorted by source offset.
type Correlation []CorrelationEntry

// node identifies a chunk match: the i-th source segment's j-th target
// match.
type node struct {
	I, J int
}

type pairSeg struct {
	Src    segment.Segment
	Target segment.Segment
}

type rtrunc struct {
	pair      pairSeg
	keyframes []node
}

// srcKey is the (offset, length) identity used to key merged correlations
// by source segment, ignoring Kind (which is not part of Segment
// identity per spec).
type srcKey struct {
	Offset, Length int
}

func keyOf(s segment.Segment) srcKey {
	return srcKey{s.Offset, s.Length}
}

// candidate is a merge candidate: a DAG path from start to end spanning
// length target bytes.
type candidate struct {
	start, end node
	length     int
}

// Merger builds the per-target adjacency DAG of chunk matches and merges
// them into long contiguous runs, per spec §4.6.
type Merger struct {
	segs []segment.Segment
	grid Grid
	tol  int
}

// Merge runs the full two-pass merge plus hole filling for one target,
// producing a correlation list that jointly covers the entire source scan
// range.
func Merge(segs []segment.Segment, grid Grid, toleranceInstructions int) (Correlation, error) {
	if toleranceInstructions < 0 {
		return nil, corerr.NewInvalidArgument("toleranceInstructions", "must be nonnegative")
	}
	m := &Merger{segs: segs, grid: grid, tol: toleranceInstructions * 4}

	edges, startNodes := m.buildDAG()
	candidates := m.findCandidates(edges, startNodes)
	sortCandidates(candidates)

	merged := make(map[srcKey][]segment.Segment)
	mergedSrc := make(map[srcKey]segment.Segment)
	conflicting := m.greedyPass(candidates, merged, mergedSrc)
	m.partialPass(conflicting, edges, merged, mergedSrc)

	entries := make(Correlation, 0, len(mergedSrc))
	for k, src := range mergedSrc {
		entries = append(entries, CorrelationEntry{Src: src, Targets: merged[k]})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Src.Less(entries[j].Src) })

	if len(segs) > 0 {
		entries = fillSourceHoles(entries, segs[0].Offset, segs[len(segs)-1].End())
	}
	return entries, nil
}

// buildDAG links each (segment, match) node to the nearest downstream
// source segment's matches that are near-adjacent in both source and
// target space.
func (m *Merger) buildDAG() (edges map[node][]node, startNodes []node) {
	edges = make(map[node][]node)
	downstream := make(map[node]bool)

	for i := range m.segs {
		srcEnd := m.segs[i].End()
		for j := range m.grid[i] {
			nd := node{i, j}
			if !downstream[nd] {
				startNodes = append(startNodes, nd)
			}
			matchEnd := m.grid[i][j].End()

			for di := 0; i+1+di < len(m.segs); di++ {
				laterI := i + 1 + di
				laterSrc := m.segs[laterI]
				if laterSrc.Offset-srcEnd > m.tol {
					break
				}
				var adjacencies []node
				for otherJ, laterMatch := range m.grid[laterI] {
					d := laterMatch.Offset - matchEnd
					if d >= 0 && d <= m.tol {
						adjacencies = append(adjacencies, node{laterI, otherJ})
					}
				}
				if len(adjacencies) > 0 {
					edges[nd] = adjacencies
					for _, a := range adjacencies {
						downstream[a] = true
					}
					break
				}
			}
		}
	}
	return edges, startNodes
}

// findCandidates walks from each start node along the last (highest
// target offset) outgoing edge at every step, tracking the longest
// byte-distance reached; ties are all kept as separate candidates.
func (m *Merger) findCandidates(edges map[node][]node, startNodes []node) []candidate {
	seen := make(map[candidate]bool)
	var candidates []candidate

	for _, start := range startNodes {
		startMatch := m.grid[start.I][start.J]
		bestEnds := []node{start}
		maxPathLen := startMatch.Length
		end := start
		for {
			succs, ok := edges[end]
			if !ok || len(succs) == 0 {
				break
			}
			end = succs[len(succs)-1]
			newPathLen := m.grid[end.I][end.J].End() - startMatch.Offset
			switch {
			case newPathLen > maxPathLen:
				maxPathLen = newPathLen
				bestEnds = []node{end}
			case newPathLen == maxPathLen:
				bestEnds = append(bestEnds, end)
			}
		}
		for _, e := range bestEnds {
			c := candidate{start: start, end: e, length: maxPathLen}
			if !seen[c] {
				seen[c] = true
				candidates = append(candidates, c)
			}
		}
	}
	return candidates
}

// sortCandidates orders by (-length, start, end): longest paths first,
// with a deterministic tie-break on node identity.
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.length != cb.length {
			return ca.length > cb.length
		}
		if ca.start != cb.start {
			if ca.start.I != cb.start.I {
				return ca.start.I < cb.start.I
			}
			return ca.start.J < cb.start.J
		}
		if ca.end.I != cb.end.I {
			return ca.end.I < cb.end.I
		}
		return ca.end.J < cb.end.J
	})
}

func (m *Merger) candidateToSegments(c candidate) pairSeg {
	srcStart, srcEnd := m.segs[c.start.I], m.segs[c.end.I]
	src := segment.Segment{Offset: srcStart.Offset, Length: srcEnd.End() - srcStart.Offset, Kind: segment.KindAsm}
	targetStart := m.grid[c.start.I][c.start.J]
	targetEnd := m.grid[c.end.I][c.end.J]
	target := segment.Segment{Offset: targetStart.Offset, Length: targetEnd.End() - targetStart.Offset, Kind: segment.KindData}
	return pairSeg{Src: src, Target: target}
}

// greedyPass accepts candidates longest-first into a RangeSet, skipping
// full subsets, and returns the candidates that neither fit cleanly nor
// were subsets (left for the partial pass).
func (m *Merger) greedyPass(candidates []candidate, merged map[srcKey][]segment.Segment, mergedSrc map[srcKey]segment.Segment) []candidate {
	rs := &rangeSet{}
	var conflicting []candidate
	for _, c := range candidates {
		pair := m.candidateToSegments(c)
		out := rs.add(pair, nil, m.segs, m.grid, m.tol)
		if out.added {
			k := keyOf(out.pair.Src)
			merged[k] = append(merged[k], out.pair.Target)
			mergedSrc[k] = out.pair.Src
		} else if !out.subsetLeft && !out.subsetRight {
			conflicting = append(conflicting, c)
		}
	}
	return conflicting
}

// partialPass attempts to fill the gaps left by the greedy pass with
// trimmed/expanded partial segments from each conflicting candidate's DAG
// path, possibly superseding and deleting previously accepted entries
// that become enclosed.
func (m *Merger) partialPass(conflicting []candidate, edges map[node][]node, merged map[srcKey][]segment.Segment, mergedSrc map[srcKey]segment.Segment) {
	rs := &rangeSet{}
	// Seed the RangeSet's coverings from what the greedy pass already
	// accepted.
	for _, src := range mergedSrc {
		rs.srcCovering = insertSortedSeg(rs.srcCovering, src)
	}
	for _, targets := range merged {
		for _, t := range targets {
			rs.targetCovering = insertSortedSeg(rs.targetCovering, t)
		}
	}

	for _, c := range conflicting {
		pair := m.candidateToSegments(c)
		keyframes := findNodePath(c.start, c.end, edges)
		for {
			out := rs.add(pair, keyframes, m.segs, m.grid, m.tol)
			if !out.added {
				break
			}
			k := keyOf(out.pair.Src)
			if out.mergedLeftSrc != nil {
				lk := keyOf(*out.mergedLeftSrc)
				delete(merged, lk)
				delete(mergedSrc, lk)
			}
			if out.mergedRightSrc != nil {
				rk := keyOf(*out.mergedRightSrc)
				delete(merged, rk)
				delete(mergedSrc, rk)
			}
			merged[k] = append(merged[k], out.pair.Target)
			mergedSrc[k] = out.pair.Src
			if out.rtrunc == nil {
				break
			}
			pair = out.rtrunc.pair
			keyframes = out.rtrunc.keyframes
		}
	}
}

func insertSortedSeg(covering []segment.Segment, s segment.Segment) []segment.Segment {
	i := bisectLeftSeg(covering, s)
	return insertSegAt(covering, i, s)
}

// findNodePath finds a path from start to end along edges, preferring the
// "leftmost" (lowest target offset) successor at each step; this can
// yield a more granular path than the greedy traversal's rightmost
// choice, which is preferable when splitting up a path for partial fill.
func findNodePath(start, end node, edges map[node][]node) []node {
	if start == end {
		return []node{start}
	}

	ancestors := make(map[node]node)
	stack := []node{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		succs := edges[cur]
		for i := len(succs) - 1; i >= 0; i-- {
			next := succs[i]
			if next == end {
				path := []node{next, cur}
				parent := cur
				for {
					p, ok := ancestors[parent]
					if !ok {
						break
					}
					path = append(path, p)
					parent = p
				}
				for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
					path[l], path[r] = path[r], path[l]
				}
				return path
			}
			if _, ok := ancestors[next]; ok {
				continue
			}
			ancestors[next] = cur
			stack = append(stack, next)
		}
	}
	// Every conflicting candidate's end is reachable from its start by
	// construction (findCandidates only ever follows existing edges).
	panic("correlate: no DAG path found for merge candidate")
}

// fillSourceHoles fills any byte range within [start, end) not covered by
// an accepted source segment with an empty-target entry, and returns the
// full list sorted by source offset.
func fillSourceHoles(entries Correlation, start, end int) Correlation {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Src.Less(entries[j].Src) })

	var holes []segment.Segment
	holeStart := start
	for _, e := range entries {
		holeEnd := e.Src.Offset
		if holeLen := holeEnd - holeStart; holeLen > 0 {
			holes = append(holes, segment.Segment{Offset: holeStart, Length: holeLen, Kind: segment.KindAsm})
		}
		holeStart = e.Src.End()
	}
	if holeLen := end - holeStart; holeLen > 0 {
		holes = append(holes, segment.Segment{Offset: holeStart, Length: holeLen, Kind: segment.KindAsm})
	}

	for _, h := range holes {
		entries = append(entries, CorrelationEntry{Src: h})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Src.Less(entries[j].Src) })
	return entries
}
