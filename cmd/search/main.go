// Command search locates every occurrence of one or more source byte
// ranges within one or more target binaries, per spec §6's "Search tool".
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/standardbeagle/armcorrelate/internal/binaryfile"
	"github.com/standardbeagle/armcorrelate/internal/pattern"
	"github.com/standardbeagle/armcorrelate/internal/search"
	"github.com/standardbeagle/armcorrelate/internal/segment"
)

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var targets, ranges stringList
	flag.Var(&targets, "target", "target binary file (repeatable)")
	flag.Var(&ranges, "range", "source range offset:length:kind, kind is 'asm' or 'data' (repeatable)")
	ignoreLdrStr := flag.Bool("ignore-ldr-str-offset", false, "ignore ldr/str instruction offsets")
	ignoreB := flag.Bool("ignore-b-offset", false, "ignore b instruction offsets")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: search [flags] <source-file>")
		os.Exit(2)
	}
	if len(targets) == 0 || len(ranges) == 0 {
		fmt.Fprintln(os.Stderr, "at least one -target and one -range are required")
		os.Exit(2)
	}

	source, err := binaryfile.Load(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "search:", err)
		os.Exit(1)
	}

	segs := make([]segment.Segment, 0, len(ranges))
	for _, r := range ranges {
		seg, perr := parseRange(r)
		if perr != nil {
			fmt.Fprintln(os.Stderr, "search:", perr)
			os.Exit(2)
		}
		segs = append(segs, seg)
	}

	opts := pattern.Options{IgnoreLdrStrOffset: *ignoreLdrStr, IgnoreBOffset: *ignoreB}
	eng := search.New()

	exit := 0
	for _, seg := range segs {
		p, perr := seg.Regex(source.Bytes, opts)
		if perr != nil {
			fmt.Fprintln(os.Stderr, "search:", perr)
			os.Exit(1)
		}
		fmt.Printf("source [0x%x, 0x%x) (%s):\n", seg.Offset, seg.End(), seg.Kind)
		for _, targetPath := range targets {
			target, lerr := binaryfile.Load(targetPath)
			if lerr != nil {
				fmt.Fprintln(os.Stderr, "search:", lerr)
				exit = 1
				continue
			}
			matches, merr := eng.Find(target, p, seg.Length)
			if merr != nil {
				fmt.Fprintln(os.Stderr, "search:", merr)
				exit = 1
				continue
			}
			fmt.Printf("  %s: %d match(es)\n", targetPath, len(matches))
			for _, m := range matches {
				fmt.Printf("    0x%x\n", m.Offset)
			}
		}
	}
	os.Exit(exit)
}

func parseRange(s string) (segment.Segment, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return segment.Segment{}, fmt.Errorf("invalid range %q: want offset:length:kind", s)
	}
	offset, err := strconv.ParseInt(parts[0], 0, 64)
	if err != nil {
		return segment.Segment{}, fmt.Errorf("invalid range offset %q: %w", parts[0], err)
	}
	length, err := strconv.ParseInt(parts[1], 0, 64)
	if err != nil {
		return segment.Segment{}, fmt.Errorf("invalid range length %q: %w", parts[1], err)
	}
	switch parts[2] {
	case "asm":
		return segment.NewAsm(int(offset), int(length))
	case "data":
		return segment.NewData(int(offset), int(length))
	default:
		return segment.Segment{}, fmt.Errorf("invalid range kind %q: want 'asm' or 'data'", parts[2])
	}
}
