// Command xmapcorrelate correlates xMAP-declared symbols from a source
// binary to matches in a target binary, per spec §6's "xMAP correlation
// tool".
package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/standardbeagle/armcorrelate/internal/binaryfile"
	"github.com/standardbeagle/armcorrelate/internal/symcorrelate"
	"github.com/standardbeagle/armcorrelate/internal/symtab"
	"github.com/standardbeagle/armcorrelate/internal/xmap"
)

func main() {
	sourceSection := flag.String("source-section", "", "xMAP section to parse in the source map")
	targetSection := flag.String("target-section", "", "xMAP section to parse in the target map (defaults to -source-section)")
	targetMapPath := flag.String("target-map", "", "optional target xMAP file")
	noVeneers := flag.Bool("no-veneers", false, "skip veneer function symbols")
	ignoreDataPools := flag.Bool("ignore-data-pools", false, "don't require data pools to match")
	ignoreLength := flag.Bool("ignore-length", false, "don't require symbol lengths to match")
	ignoreLdrStr := flag.Bool("ignore-ldr-str-offset", false, "ignore ldr/str instruction offsets")
	ignoreB := flag.Bool("ignore-b-offset", false, "ignore b instruction offsets")
	minLength := flag.Uint("min-length", 8, "minimum source symbol length to consider")
	typeSet := flag.String("type", "at", "symbol types to match: a=ARM, t=Thumb, d=data")
	ignoreRe := flag.String("ignore", "", "full-match regex for source symbol names to skip")
	overrideFilter := flag.String("override-filter", "", "full-match regex restricting overridable target symbols")
	filter := flag.String("filter", "", "shorthand for both -ignore and -override-filter")
	symtabPath := flag.String("symtab", "", "optional symbol table YAML to build a -override-filter allow-list from")
	symtabVersion := flag.String("symtab-version", "", "accepted but has no effect: the -symtab allow-list includes names from every version")
	flag.Parse()

	if *filter != "" {
		if *ignoreRe == "" {
			*ignoreRe = *filter
		}
		if *overrideFilter == "" {
			*overrideFilter = *filter
		}
	}
	if flag.NArg() != 4 {
		fmt.Fprintln(os.Stderr, "usage: xmapcorrelate [flags] <source-bin> <source-map> <target-bin> <target-map-arg-ignored>")
		fmt.Fprintln(os.Stderr, "       source-section is required via -source-section; target xMAP is optional via -target-map")
		os.Exit(2)
	}
	sourceBinPath, sourceMapPath, targetBinPath := flag.Arg(0), flag.Arg(1), flag.Arg(2)
	if *sourceSection == "" {
		fmt.Fprintln(os.Stderr, "xmapcorrelate: -source-section is required")
		os.Exit(2)
	}
	if *targetSection == "" {
		*targetSection = *sourceSection
	}

	sourceBuf, sourceLoadAddr, sourceSymbols := mustLoadMapped(sourceBinPath, sourceMapPath, *sourceSection)

	var targetBuf *binaryfile.Buffer
	var targetLoadAddr uint32
	var targetSymbols []xmap.Symbol
	if *targetMapPath != "" {
		targetBuf, targetLoadAddr, targetSymbols = mustLoadMapped(targetBinPath, *targetMapPath, *targetSection)
	} else {
		var err error
		targetBuf, err = binaryfile.Load(targetBinPath)
		if err != nil {
			fail(err)
		}
	}

	var overrideRe *regexp.Regexp
	if *symtabPath != "" {
		f, err := os.Open(*symtabPath)
		if err != nil {
			fail(err)
		}
		doc, err := symtab.Load(f)
		f.Close()
		if err != nil {
			fail(err)
		}
		names := doc.Names()
		if len(names) > 0 {
			overrideRe = regexp.MustCompile(anchorFull(strings.Join(quoteAll(names), "|")))
		}
	} else if *overrideFilter != "" {
		re, err := regexp.Compile(anchorFull(*overrideFilter))
		if err != nil {
			fail(err)
		}
		overrideRe = re
	}

	var ignorePattern *regexp.Regexp
	if *ignoreRe != "" {
		re, err := regexp.Compile(anchorFull(*ignoreRe))
		if err != nil {
			fail(err)
		}
		ignorePattern = re
	}

	types := make(map[xmap.DataType]bool)
	for _, c := range *typeSet {
		switch c {
		case 'a':
			types[xmap.DataTypeArm] = true
		case 't':
			types[xmap.DataTypeThumb] = true
		case 'd':
			types[xmap.DataTypeData] = true
		default:
			fmt.Fprintf(os.Stderr, "xmapcorrelate: unrecognized symbol type %q\n", c)
			os.Exit(2)
		}
	}

	corr := &symcorrelate.Correlator{
		SourceBuf:       sourceBuf.Bytes,
		TargetBuf:       targetBuf.Bytes,
		SourceLoadAddr:  sourceLoadAddr,
		TargetLoadAddr:  targetLoadAddr,
		TargetIndex:     symcorrelate.NewAddressIndex(targetSymbols),
	}
	opts := symcorrelate.Options{
		NoVeneers:          *noVeneers,
		MatchDataPools:     !*ignoreDataPools,
		MatchLength:        !*ignoreLength,
		IgnoreLdrStrOffset: *ignoreLdrStr,
		IgnoreBOffset:      *ignoreB,
		MinLength:          uint32(*minLength),
		SourceSymbolTypes:  types,
		SourceIgnore:       ignorePattern,
		TargetFilter:       overrideRe,
	}

	results, err := corr.Correlate(sourceSymbols, opts)
	if err != nil {
		fail(err)
	}
	for _, r := range results {
		fmt.Printf("%s @ 0x%X / %d bytes -> ", r.Source.Name, r.Source.Address(), r.Source.Length())
		if len(r.Targets) > 1 {
			fmt.Printf("(%d) ", len(r.Targets))
		}
		parts := make([]string, 0, len(r.Targets))
		for _, t := range r.Targets {
			parts = append(parts, formatMatch(t))
		}
		fmt.Println(strings.Join(parts, ", "))
	}
	_ = symtabVersion
}

func formatMatch(t symcorrelate.CorrelatedSymbol) string {
	s := fmt.Sprintf("0x%X", t.Address)
	if t.Symbol != nil {
		s = fmt.Sprintf("%s @ 0x%X", t.Symbol.Name, t.Address)
	}
	var mismatches []string
	if t.LengthMismatch() {
		mismatches = append(mismatches, fmt.Sprintf("length mismatch: %d != %d", t.Length, t.Symbol.Length()))
	}
	if t.DataPoolMismatch {
		mismatches = append(mismatches, "data pool mismatch")
	}
	if len(mismatches) > 0 {
		s += " (" + strings.Join(mismatches, ", ") + ")"
	}
	return s
}

func mustLoadMapped(binPath, mapPath, section string) (*binaryfile.Buffer, uint32, []xmap.Symbol) {
	buf, err := binaryfile.Load(binPath)
	if err != nil {
		fail(err)
	}
	f, err := os.Open(mapPath)
	if err != nil {
		fail(err)
	}
	defer f.Close()
	p := &xmap.Parser{}
	loadAddr, symbols, err := p.Parse(f, section)
	if err != nil {
		fail(err)
	}
	return buf, loadAddr, symbols
}

// anchorFull wraps a regex so MatchString only accepts a whole-string
// match, matching the -ignore/-override-filter/-filter flags' documented
// full-match semantics.
func anchorFull(src string) string {
	return "^(?:" + src + ")$"
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = regexp.QuoteMeta(n)
	}
	return out
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "xmapcorrelate:", err)
	os.Exit(1)
}
