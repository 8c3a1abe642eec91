// Package segment represents byte ranges within an unnamed buffer, the
// fundamental unit correlated across binaries: either opaque data or a run
// of ARMv5 instructions.
package segment

import (
	"github.com/standardbeagle/armcorrelate/internal/corerr"
	"github.com/standardbeagle/armcorrelate/internal/pattern"
)

// Kind distinguishes a data segment (matched exactly) from an asm segment
// (length a multiple of 4, matched with masked offset fields).
type Kind int

const (
	KindData Kind = iota
	KindAsm
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindAsm:
		return "asm"
	default:
		return "unknown"
	}
}

// Segment is an immutable byte range: a nonnegative Offset and a positive
// Length. Equality and ordering are by (Offset, Length).
type Segment struct {
	Offset int
	Length int
	Kind   Kind
}

// New validates and builds a Segment of the given kind.
func New(kind Kind, offset, length int) (Segment, error) {
	if offset < 0 {
		return Segment{}, corerr.NewInvalidArgument("offset", "must be nonnegative")
	}
	if length <= 0 {
		return Segment{}, corerr.NewInvalidArgument("length", "must be positive")
	}
	if kind == KindAsm && length%4 != 0 {
		return Segment{}, corerr.NewInvalidArgument("length", "asm segment length must be a multiple of 4")
	}
	return Segment{Offset: offset, Length: length, Kind: kind}, nil
}

// NewData builds a data segment.
func NewData(offset, length int) (Segment, error) {
	return New(KindData, offset, length)
}

// NewAsm builds an asm segment.
func NewAsm(offset, length int) (Segment, error) {
	return New(KindAsm, offset, length)
}

// End returns Offset + Length.
func (s Segment) End() int {
	return s.Offset + s.Length
}

// Read returns buf[Offset : Offset+Length].
func (s Segment) Read(buf []byte) []byte {
	return buf[s.Offset : s.Offset+s.Length]
}

// Less orders segments by (Offset, Length).
func (s Segment) Less(other Segment) bool {
	if s.Offset != other.Offset {
		return s.Offset < other.Offset
	}
	return s.Length < other.Length
}

// Equal compares by (Offset, Length) only; Kind is not part of identity,
// matching the source model's Segment.__eq__.
func (s Segment) Equal(other Segment) bool {
	return s.Offset == other.Offset && s.Length == other.Length
}

// Overlaps reports whether the two segments share any byte.
func (s Segment) Overlaps(other Segment) bool {
	return s.Offset < other.End() && other.Offset < s.End()
}

// Regex compiles the pattern this segment's bytes (read from buf) should be
// matched against: an exact literal for data, a fuzzy masked pattern for
// asm. Callers that build patterns from segment bytes should go through
// this method rather than calling pattern.Compile/Literal directly, so the
// data/asm dispatch can't be forgotten at a call site.
func (s Segment) Regex(buf []byte, opts pattern.Options) (*pattern.Pattern, error) {
	data := s.Read(buf)
	if s.Kind == KindData {
		return pattern.Literal(data)
	}
	return pattern.Compile(data, opts)
}
