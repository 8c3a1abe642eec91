package correlate

import (
	"sort"

	"github.com/standardbeagle/armcorrelate/internal/segment"
)

// rangeSet tracks the accepted, pairwise non-overlapping source and
// target coverings built up by the merger's greedy and partial-fill
// passes. Both coverings are kept sorted by (offset, length) so that
// membership and overlap queries are binary searches.
type rangeSet struct {
	srcCovering    []segment.Segment
	targetCovering []segment.Segment
}

func bisectLeftSeg(covering []segment.Segment, s segment.Segment) int {
	return sort.Search(len(covering), func(i int) bool { return !covering[i].Less(s) })
}

func insertSegAt(covering []segment.Segment, i int, s segment.Segment) []segment.Segment {
	covering = append(covering, segment.Segment{})
	copy(covering[i+1:], covering[i:])
	covering[i] = s
	return covering
}

func deleteSegAt(covering []segment.Segment, i int) []segment.Segment {
	return append(covering[:i], covering[i+1:]...)
}

// checkCovering reports whether seg can be inserted into covering without
// overlap, and if not, whether the overlap on either side is a full
// containment (subset).
func checkCovering(covering []segment.Segment, seg segment.Segment) (valid, subsetLeft, subsetRight bool, insertPoint int) {
	insertPoint = bisectLeftSeg(covering, seg)
	overlapsRight := insertPoint < len(covering) && seg.End() > covering[insertPoint].Offset
	overlapsLeft := insertPoint-1 >= 0 && insertPoint-1 < len(covering) && covering[insertPoint-1].End() > seg.Offset
	if overlapsRight || overlapsLeft {
		subsetRight = overlapsRight && seg.Offset >= covering[insertPoint].Offset
		subsetLeft = overlapsLeft && covering[insertPoint-1].End() >= seg.End()
		return false, subsetLeft, subsetRight, insertPoint
	}
	return true, false, false, insertPoint
}

// addOutcome reports the result of rangeSet.add. When added is false,
// subsetLeft/subsetRight report whether the rejection was a full subset
// (as opposed to a genuine conflict needing partial-fill treatment). When
// added is true via the partial-fill path, mergedLeftSrc/mergedRightSrc
// name the previously accepted source segments (if any) that the new
// partial segment absorbed — callers must drop any prior correlation
// entries keyed on them.
type addOutcome struct {
	added          bool
	pair           pairSeg
	subsetLeft     bool
	subsetRight    bool
	mergedLeftSrc  *segment.Segment
	mergedRightSrc *segment.Segment
	rtrunc         *rtrunc
}

// add attempts to insert pair's source and target segments into the
// covering sets without overlap. If that fails outright but neither side
// is a full subset, and interpKeyframes is non-nil, it falls back to a
// partial fill along the candidate's DAG path (see addPartial).
func (rs *rangeSet) add(pair pairSeg, interpKeyframes []node, segs []segment.Segment, grid Grid, tol int) addOutcome {
	srcValid, srcSubsetLeft, srcSubsetRight, srcInsertPoint := checkCovering(rs.srcCovering, pair.Src)
	srcDuplicate := srcInsertPoint < len(rs.srcCovering) && pair.Src.Equal(rs.srcCovering[srcInsertPoint])
	targetValid, targetSubsetLeft, targetSubsetRight, targetInsertPoint := checkCovering(rs.targetCovering, pair.Target)

	if (srcValid || srcDuplicate) && targetValid {
		if !srcDuplicate {
			rs.srcCovering = insertSegAt(rs.srcCovering, srcInsertPoint, pair.Src)
		}
		rs.targetCovering = insertSegAt(rs.targetCovering, targetInsertPoint, pair.Target)
		return addOutcome{added: true, pair: pair}
	}

	isSubsetLeft := srcSubsetLeft || targetSubsetLeft
	isSubsetRight := srcSubsetRight || targetSubsetRight

	if !isSubsetLeft && !isSubsetRight && interpKeyframes != nil {
		if out, ok := rs.addPartial(interpKeyframes, srcInsertPoint, targetInsertPoint, segs, grid, tol); ok {
			return out
		}
	}
	return addOutcome{added: false, subsetLeft: isSubsetLeft, subsetRight: isSubsetRight}
}

// addPartial trims a candidate's DAG path from both ends until it no
// longer overlaps a neighboring accepted covering, expands it back out to
// maximize length, and (if possible) merges it into an adjacent accepted
// entry. The unfilled right-hand remainder of the path, if any, is
// returned as a right-truncation for the caller to retry.
func (rs *rangeSet) addPartial(keyframes []node, srcInsertPoint, targetInsertPoint int, segs []segment.Segment, grid Grid, tol int) (addOutcome, bool) {
	// Captured as value copies (not slice pointers): the covering slices
	// are mutated and potentially reallocated below, so any pointer into
	// them taken here would risk aliasing a later write.
	var leftSrc, leftTarget, rightSrc, rightTarget *segment.Segment
	if srcInsertPoint-1 >= 0 && srcInsertPoint-1 < len(rs.srcCovering) {
		v := rs.srcCovering[srcInsertPoint-1]
		leftSrc = &v
	}
	if targetInsertPoint-1 >= 0 && targetInsertPoint-1 < len(rs.targetCovering) {
		v := rs.targetCovering[targetInsertPoint-1]
		leftTarget = &v
	}
	if srcInsertPoint < len(rs.srcCovering) {
		v := rs.srcCovering[srcInsertPoint]
		rightSrc = &v
	}
	if targetInsertPoint < len(rs.targetCovering) {
		v := rs.targetCovering[targetInsertPoint]
		rightTarget = &v
	}

	// Trim from the left: find the first keyframe whose start doesn't
	// overlap the left neighbor.
	kstart := -1
	var srcStart, targetStart segment.Segment
	for k, kf := range keyframes {
		srcStart = segs[kf.I]
		targetStart = grid[kf.I][kf.J]
		if (leftSrc == nil || leftSrc.End() <= srcStart.Offset) &&
			(leftTarget == nil || leftTarget.End() <= targetStart.Offset) {
			kstart = k
			break
		}
	}
	if kstart == -1 {
		return addOutcome{}, false
	}

	// Trim from the right: find the last keyframe whose end doesn't
	// overlap the right neighbor.
	kend := -1
	var srcEnd, targetEnd segment.Segment
	for k := len(keyframes) - 1; k >= 0; k-- {
		kf := keyframes[k]
		srcEnd = segs[kf.I]
		targetEnd = grid[kf.I][kf.J]
		if (rightSrc == nil || srcEnd.End() <= rightSrc.Offset) &&
			(rightTarget == nil || targetEnd.End() <= rightTarget.Offset) {
			kend = k
			break
		}
	}
	if kend == -1 {
		return addOutcome{}, false
	}

	partialSrcStart := srcStart.Offset
	partialTargetStart := targetStart.Offset
	partialSrcEnd := srcEnd.End()
	partialTargetEnd := targetEnd.End()

	istart := keyframes[kstart].I
	iend := keyframes[kend].I

	// Expand left: reclaim one chunk between the previous keyframe and
	// the trimmed start, if it still fits in the gap.
	if kstart > 0 {
		for i2 := keyframes[kstart-1].I + 1; i2 <= istart; i2++ {
			candStart := segs[i2]
			if leftSrc == nil || leftSrc.End() <= candStart.Offset {
				dOffset := partialSrcStart - candStart.Offset
				partialSrcStart = candStart.Offset
				partialTargetStart -= dOffset
				break
			}
		}
	}
	// Expand right: reclaim one chunk between the trimmed end and the
	// next keyframe, if it still fits in the gap.
	if kend+1 < len(keyframes) {
		for i2 := maxInt(iend, istart); i2 < keyframes[kend+1].I; i2++ {
			candEnd := segs[i2]
			if rightSrc == nil || candEnd.End() <= rightSrc.Offset {
				dEnd := candEnd.End() - partialSrcEnd
				partialSrcEnd = candEnd.End()
				partialTargetEnd += dEnd
				break
			}
		}
	}

	if !(0 <= partialSrcStart && partialSrcStart < partialSrcEnd && 0 <= partialTargetStart && partialTargetStart < partialTargetEnd) {
		return addOutcome{}, false
	}

	partialSrc := segment.Segment{Offset: partialSrcStart, Length: partialSrcEnd - partialSrcStart, Kind: segment.KindAsm}
	partialTarget := segment.Segment{Offset: partialTargetStart, Length: partialTargetEnd - partialTargetStart, Kind: segment.KindData}

	var rt *rtrunc
	if rtruncKeyframes := keyframes[kend+1:]; len(rtruncKeyframes) > 0 {
		first, last := rtruncKeyframes[0], rtruncKeyframes[len(rtruncKeyframes)-1]
		rSrcStart := segs[first.I].Offset
		rTargetStart := grid[first.I][first.J].Offset
		rSrcEnd := segs[last.I].End()
		rTargetEnd := grid[last.I][last.J].End()
		rt = &rtrunc{
			pair: pairSeg{
				Src:    segment.Segment{Offset: rSrcStart, Length: rSrcEnd - rSrcStart, Kind: segment.KindAsm},
				Target: segment.Segment{Offset: rTargetStart, Length: rTargetEnd - rTargetStart, Kind: segment.KindData},
			},
			keyframes: rtruncKeyframes,
		}
	}

	// Check mergeability with the left/right accepted neighbors.
	var mergedLeftSrc, mergedLeftTarget, mergedRightSrc, mergedRightTarget *segment.Segment
	if leftSrc != nil && gapWithin(partialSrc.Offset-leftSrc.End(), tol) &&
		(leftTarget == nil || gapWithin(partialTarget.Offset-leftTarget.End(), tol)) {
		mergedLeftSrc = leftSrc
		partialSrc = segment.Segment{Offset: leftSrc.Offset, Length: partialSrc.End() - leftSrc.Offset, Kind: segment.KindAsm}
		if leftTarget != nil {
			mergedLeftTarget = leftTarget
			partialTarget = segment.Segment{Offset: leftTarget.Offset, Length: partialTarget.End() - leftTarget.Offset, Kind: segment.KindData}
		}
	}
	if rightSrc != nil && gapWithin(rightSrc.Offset-partialSrc.End(), tol) &&
		(rightTarget == nil || gapWithin(rightTarget.Offset-partialTarget.End(), tol)) {
		mergedRightSrc = rightSrc
		partialSrc = segment.Segment{Offset: partialSrc.Offset, Length: rightSrc.End() - partialSrc.Offset, Kind: segment.KindAsm}
		if rightTarget != nil {
			mergedRightTarget = rightTarget
			partialTarget = segment.Segment{Offset: partialTarget.Offset, Length: rightTarget.End() - partialTarget.Offset, Kind: segment.KindData}
		}
	}

	switch {
	case mergedLeftSrc != nil:
		rs.srcCovering[srcInsertPoint-1] = partialSrc
		if mergedRightSrc != nil {
			rs.srcCovering = deleteSegAt(rs.srcCovering, srcInsertPoint)
		}
		if mergedLeftTarget != nil {
			rs.targetCovering[targetInsertPoint-1] = partialTarget
			if mergedRightTarget != nil {
				rs.targetCovering = deleteSegAt(rs.targetCovering, targetInsertPoint)
			}
		} else {
			rs.targetCovering = insertSegAt(rs.targetCovering, targetInsertPoint, partialTarget)
		}
	case mergedRightSrc != nil:
		rs.srcCovering[srcInsertPoint] = partialSrc
		if mergedRightTarget != nil {
			rs.targetCovering[targetInsertPoint] = partialTarget
		} else {
			rs.targetCovering = insertSegAt(rs.targetCovering, targetInsertPoint, partialTarget)
		}
	default:
		rs.srcCovering = insertSegAt(rs.srcCovering, srcInsertPoint, partialSrc)
		rs.targetCovering = insertSegAt(rs.targetCovering, targetInsertPoint, partialTarget)
	}

	return addOutcome{
		added:          true,
		pair:           pairSeg{Src: partialSrc, Target: partialTarget},
		mergedLeftSrc:  mergedLeftSrc,
		mergedRightSrc: mergedRightSrc,
		rtrunc:         rt,
	}, true
}

func gapWithin(gap, tol int) bool {
	return 0 <= gap && gap <= tol
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
