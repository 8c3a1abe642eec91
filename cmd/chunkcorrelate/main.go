// Command chunkcorrelate runs the chunked correlator, merger, and
// selector over a source range against one or more targets, per spec §6's
// "Chunked correlation tool".
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/standardbeagle/armcorrelate/internal/binaryfile"
	"github.com/standardbeagle/armcorrelate/internal/correlate"
	"github.com/standardbeagle/armcorrelate/internal/pattern"
	"github.com/standardbeagle/armcorrelate/internal/search"
)

// ErrNotImplemented is returned by the contract-only -render flag: plot
// rendering is an explicit non-goal of the core engine.
var ErrNotImplemented = errors.New("chunkcorrelate: rendering is not implemented; pipe the coverage map to an external renderer")

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var targets stringList
	flag.Var(&targets, "target", "target binary file (repeatable)")
	scanStart := flag.Int("range-start", 0, "source scan start offset")
	scanLen := flag.Int("range-len", -1, "source scan length (-1 for to end of file)")
	chunkInstrs := flag.Int("chunk-size", 4, "chunk size in instructions")
	tolerance := flag.Int("tolerance", 16, "merge tolerance in instructions")
	ignoreLdrStr := flag.Bool("ignore-ldr-str-offset", false, "ignore ldr/str instruction offsets")
	ignoreB := flag.Bool("ignore-b-offset", false, "ignore b instruction offsets")
	render := flag.String("render", "", "contract-only: delegate rendering to an external tool")
	verbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	if *render != "" {
		fmt.Fprintln(os.Stderr, ErrNotImplemented)
		os.Exit(1)
	}
	if flag.NArg() != 1 || len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "usage: chunkcorrelate [flags] -target <file> [-target <file> ...] <source-file>")
		os.Exit(2)
	}

	source, err := binaryfile.Load(flag.Arg(0))
	if err != nil {
		fail(err)
	}

	segs, err := correlate.ChunkSource(len(source.Bytes), *scanStart, *scanLen, *chunkInstrs)
	if err != nil {
		fail(err)
	}
	opts := pattern.Options{IgnoreLdrStrOffset: *ignoreLdrStr, IgnoreBOffset: *ignoreB}
	patterns, err := correlate.CompilePatterns(source.Bytes, segs, opts)
	if err != nil {
		fail(err)
	}

	eng := search.New()
	perTarget := make([]correlate.Correlation, 0, len(targets))
	for _, targetPath := range targets {
		target, lerr := binaryfile.Load(targetPath)
		if lerr != nil {
			fail(lerr)
		}
		grid, merr := correlate.CorrelateChunks(target, segs, patterns, eng)
		if merr != nil {
			fail(merr)
		}
		correlation, gerr := correlate.Merge(segs, grid, *tolerance)
		if gerr != nil {
			fail(gerr)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "%s: %d merged entries\n", targetPath, len(correlation))
		}
		perTarget = append(perTarget, correlation)
	}

	selected, interpolated := correlate.Select(perTarget)
	for _, entry := range selected {
		fmt.Printf("[0x%x, 0x%x) (%s):\n", entry.Src.Offset, entry.Src.End(), entry.Src.Kind)
		for _, tag := range entry.Tags {
			for _, t := range tag.Targets {
				marker := ""
				if _, interp := interpolated[correlate.InterpolationKey{Src: entry.Src, Tag: tag.Tag, Target: t}]; interp {
					marker = " (interpolated)"
				}
				fmt.Printf("  %s -> [0x%x, 0x%x)%s\n", targets[tag.Tag], t.Offset, t.End(), marker)
			}
		}
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "chunkcorrelate:", err)
	os.Exit(1)
}
