// Package symcorrelate implements the symbol correlator (C9): matching
// xMAP-declared symbols from a source binary to candidate matches in a
// target binary, per spec §4.9, plus the address-index occupying-symbol
// lookup of §4.10.
package symcorrelate

import (
	"regexp"
	"sort"

	"github.com/standardbeagle/armcorrelate/internal/pattern"
	"github.com/standardbeagle/armcorrelate/internal/xmap"
)

// veneerCode is the fixed `ldr r12,[pc,#0]; bx r12` byte sequence a veneer
// symbol's ARM segment must match.
var veneerCode = [8]byte{0x00, 0xC0, 0x9F, 0xE5, 0x1C, 0xFF, 0x2F, 0xE1}

// AddressIndex supports occupying-symbol lookup over a binary's symbol
// table: sorted addresses plus an exact-address map, per spec §4.10.
type AddressIndex struct {
	addrs   []uint32
	byAddr  map[uint32]*xmap.Symbol
	symbols []xmap.Symbol
}

// NewAddressIndex builds an index over symbols. It sorts a copy of symbols
// by address; the caller's slice is not modified.
func NewAddressIndex(symbols []xmap.Symbol) *AddressIndex {
	sorted := make([]xmap.Symbol, len(symbols))
	copy(sorted, symbols)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address() < sorted[j].Address() })

	idx := &AddressIndex{
		addrs:   make([]uint32, len(sorted)),
		byAddr:  make(map[uint32]*xmap.Symbol, len(sorted)),
		symbols: sorted,
	}
	for i := range sorted {
		idx.addrs[i] = sorted[i].Address()
		idx.byAddr[sorted[i].Address()] = &idx.symbols[i]
	}
	return idx
}

// At returns the symbol starting exactly at addr, if any.
func (idx *AddressIndex) At(addr uint32) *xmap.Symbol {
	return idx.byAddr[addr]
}

// Occupying returns the symbol occupying addr: the exact-address symbol if
// one exists, else the rightmost symbol whose address is <= addr and whose
// range contains addr (or that starts exactly at addr, to allow
// zero-length markers).
func (idx *AddressIndex) Occupying(addr uint32) *xmap.Symbol {
	if sym := idx.At(addr); sym != nil {
		return sym
	}
	// bisect_right: first index with addrs[i] > addr, minus one.
	i := sort.Search(len(idx.addrs), func(i int) bool { return idx.addrs[i] > addr })
	left := i - 1
	if left < 0 {
		return nil
	}
	sym := &idx.symbols[left]
	if addr < sym.End() || addr == sym.Address() {
		return sym
	}
	return nil
}

// IsVeneer reports whether sym is a veneer trampoline: exactly two
// segments, an 8-byte ARM segment followed by a 4-byte DATA segment, with
// the ARM segment's bytes equal to the fixed veneer code sequence. buf is
// the relative-addressed source buffer the symbol's segments index into.
func IsVeneer(sym xmap.Symbol, relativeBuf func(addr uint32) uint32, buf []byte) bool {
	if len(sym.Segments) != 2 {
		return false
	}
	asm, data := sym.Segments[0], sym.Segments[1]
	if data.DataType != xmap.DataTypeData || data.Length != 4 {
		return false
	}
	if asm.DataType != xmap.DataTypeArm || asm.Length != 8 {
		return false
	}
	off := relativeBuf(asm.Address)
	if int(off)+8 > len(buf) {
		return false
	}
	for i, b := range veneerCode {
		if buf[int(off)+i] != b {
			return false
		}
	}
	return true
}

// Options configures Correlate's filters and search behavior, per spec §4.9.
type Options struct {
	NoVeneers          bool
	MatchDataPools     bool
	MatchLength        bool
	IgnoreLdrStrOffset bool
	IgnoreBOffset      bool
	MinLength          uint32
	SourceSymbolTypes  map[xmap.DataType]bool // nil means unrestricted
	SourceIgnore       *regexp.Regexp         // full-match on source symbol names
	TargetFilter       *regexp.Regexp         // full-match allow-list for overridden target names
}

// fullMatch reports whether re matches the entirety of s, not just a
// substring, regardless of whether re was anchored by its caller: a bare
// MatchString would let "foo" suppress "foobar" too, which contradicts
// SourceIgnore/TargetFilter's documented full-match semantics.
func fullMatch(re *regexp.Regexp, s string) bool {
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// CorrelatedSymbol is one source symbol's resolved match in the target
// binary.
type CorrelatedSymbol struct {
	Address          uint32
	Length           uint32
	Symbol           *xmap.Symbol
	DataPoolMismatch bool
}

func (c CorrelatedSymbol) LengthMismatch() bool {
	return c.Symbol != nil && c.Length != c.Symbol.Length()
}

// Correlation is one source symbol plus its matches in the target.
type Correlation struct {
	Source  xmap.Symbol
	Targets []CorrelatedSymbol
}

// searchCandidate tracks one open match walk through a target buffer as a
// source symbol's segments are matched one at a time.
type searchCandidate struct {
	start, end       uint32
	dataPoolMismatch bool
}

// Correlator resolves a binary's relative addressing (address - load
// address) and provides the search regex for a segment.
type Correlator struct {
	SourceBuf, TargetBuf           []byte
	SourceLoadAddr, TargetLoadAddr uint32
	TargetIndex                    *AddressIndex
}

func (c *Correlator) sourceRelative(addr uint32) uint32 { return addr - c.SourceLoadAddr }
func (c *Correlator) targetAbsolute(rel uint32) uint32  { return rel + c.TargetLoadAddr }

func (c *Correlator) segmentBytes(seg xmap.Segment) []byte {
	off := c.sourceRelative(seg.Address)
	return c.SourceBuf[off : off+seg.Length]
}

func (c *Correlator) segmentPattern(seg xmap.Segment, opts Options) (*pattern.Pattern, error) {
	data := c.segmentBytes(seg)
	switch seg.DataType {
	case xmap.DataTypeArm:
		return pattern.Compile(data, pattern.Options{
			IgnoreLdrStrOffset: opts.IgnoreLdrStrOffset,
			IgnoreBOffset:      opts.IgnoreBOffset,
		})
	default:
		// Data segments, and Thumb segments (unsupported for disassembly),
		// are matched byte-exact like data.
		return pattern.Literal(data)
	}
}

// Correlate finds, for every source symbol passing the filters, candidate
// matches in the target buffer, per spec §4.9's segment-walk and
// post-filter.
func (c *Correlator) Correlate(source []xmap.Symbol, opts Options) ([]Correlation, error) {
	var out []Correlation
	for _, src := range source {
		if len(src.Segments) == 0 {
			continue
		}
		if src.Length() < opts.MinLength {
			continue
		}
		if opts.SourceIgnore != nil && fullMatch(opts.SourceIgnore, src.Name) {
			continue
		}
		if opts.SourceSymbolTypes != nil && !opts.SourceSymbolTypes[src.DataTypeOf()] {
			continue
		}
		if opts.NoVeneers && IsVeneer(src, c.sourceRelative, c.SourceBuf) {
			continue
		}

		candidates, err := c.walkSegments(src, opts)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			continue
		}

		var matches []CorrelatedSymbol
		for _, cand := range candidates {
			absAddr := c.targetAbsolute(cand.start)
			match := CorrelatedSymbol{
				Address:          absAddr,
				Length:           cand.end - cand.start,
				Symbol:           c.TargetIndex.Occupying(absAddr),
				DataPoolMismatch: cand.dataPoolMismatch,
			}
			if opts.MatchDataPools && match.DataPoolMismatch {
				continue
			}
			if opts.MatchLength && match.LengthMismatch() {
				continue
			}
			if opts.TargetFilter != nil && match.Symbol != nil &&
				match.Address == match.Symbol.Address() &&
				src.Name != match.Symbol.Name &&
				!fullMatch(opts.TargetFilter, match.Symbol.Name) {
				continue
			}
			matches = append(matches, match)
		}
		if len(matches) == 0 {
			continue
		}
		out = append(out, Correlation{Source: src, Targets: matches})
	}
	return out, nil
}

// walkSegments runs the extend-or-drop candidate walk for one source
// symbol's segments across the target buffer.
func (c *Correlator) walkSegments(src xmap.Symbol, opts Options) ([]searchCandidate, error) {
	symType := src.DataTypeOf()
	var candidates []searchCandidate
	first := true

	for _, seg := range src.Segments {
		p, err := c.segmentPattern(seg, opts)
		if err != nil {
			return nil, err
		}

		if first {
			first = false
			for _, loc := range p.Re.FindAllIndex(c.TargetBuf, -1) {
				candidates = append(candidates, searchCandidate{
					start: uint32(loc[0]),
					end:   uint32(loc[0]) + seg.Length,
				})
			}
			continue
		}

		kept := candidates[:0]
		for _, cand := range candidates {
			loc := p.Re.FindIndex(c.TargetBuf[cand.end:])
			if loc != nil && loc[0] == 0 {
				cand.end += seg.Length
				kept = append(kept, cand)
				continue
			}
			if symType.IsAsm() && seg.DataType == xmap.DataTypeData {
				cand.dataPoolMismatch = true
				cand.end += seg.Length
				kept = append(kept, cand)
				continue
			}
			// drop: candidate omitted from kept
		}
		candidates = kept
		if len(candidates) == 0 {
			break
		}
	}
	return candidates, nil
}
