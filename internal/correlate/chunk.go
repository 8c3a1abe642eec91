// Package correlate implements the chunked correlator (C5), merger (C6),
// and selector (C7): slicing a source region into instruction chunks,
// finding their matches in every target, merging adjacent matches per
// target, and selecting a single non-overlapping coverage map across
// targets.
package correlate

import (
	"github.com/standardbeagle/armcorrelate/internal/binaryfile"
	"github.com/standardbeagle/armcorrelate/internal/corerr"
	"github.com/standardbeagle/armcorrelate/internal/pattern"
	"github.com/standardbeagle/armcorrelate/internal/search"
	"github.com/standardbeagle/armcorrelate/internal/segment"
)

// Grid is the match list indexed by source segment: Grid[i] holds every
// match found in one target for src segments[i].
type Grid [][]segment.Segment

// ChunkSource slices [scanStart, scanStart+scanLen) into asm segments of
// exactly chunkInstrs instructions, with a possibly shorter final chunk.
func ChunkSource(srcLen int, scanStart, scanLen, chunkInstrs int) ([]segment.Segment, error) {
	if chunkInstrs <= 0 {
		return nil, corerr.NewInvalidArgument("chunkInstrs", "must be positive")
	}
	if scanStart < 0 {
		return nil, corerr.NewInvalidArgument("scanStart", "must be nonnegative")
	}
	if scanStart > srcLen {
		return nil, corerr.NewInvalidArgument("scanStart", "exceeds source length")
	}
	scanEnd := srcLen
	if scanLen >= 0 {
		if scanStart+scanLen > srcLen {
			return nil, corerr.NewInvalidArgument("scanLen", "exceeds source length")
		}
		scanEnd = scanStart + scanLen
	}

	chunkLen := chunkInstrs * 4
	var segs []segment.Segment
	for o := scanStart; o < scanEnd; o += chunkLen {
		l := chunkLen
		if o+l > scanEnd {
			l = scanEnd - o
		}
		seg, err := segment.NewAsm(o, l)
		if err != nil {
			// The final short chunk need not be a multiple of 4 in
			// principle, but in practice scan ranges are instruction
			// aligned; surface any misalignment as an invalid argument.
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// CorrelateChunks computes, for one target, the match list for every
// source segment. Each source segment's pattern is compiled once by the
// caller's shared pattern slice so that duplicated chunks are cheap to
// search.
func CorrelateChunks(target *binaryfile.Buffer, segs []segment.Segment, patterns []*pattern.Pattern, eng *search.Engine) (Grid, error) {
	grid := make(Grid, len(segs))
	for i, seg := range segs {
		matches, err := eng.Find(target, patterns[i], seg.Length)
		if err != nil {
			return nil, err
		}
		grid[i] = matches
	}
	return grid, nil
}

// CompilePatterns compiles one pattern per source segment, shared across
// all targets.
func CompilePatterns(src []byte, segs []segment.Segment, opts pattern.Options) ([]*pattern.Pattern, error) {
	patterns := make([]*pattern.Pattern, len(segs))
	for i, seg := range segs {
		p, err := pattern.Compile(seg.Read(src), opts)
		if err != nil {
			return nil, err
		}
		patterns[i] = p
	}
	return patterns, nil
}
