// Package pattern compiles a fuzzy byte regular expression from an ARMv5
// asm segment, masking offset fields according to the instruction classes
// found in internal/instr. It uses the stdlib regexp package: the
// correlation engine's own requirement is "a byte regular expression over
// arbitrary bytes including newlines and NUL", which Go's RE2-based
// regexp satisfies directly with the (?s) flag, so no bespoke matcher is
// needed.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/standardbeagle/armcorrelate/internal/instr"
)

// Options controls which instruction offset fields are masked during
// pattern compilation.
type Options struct {
	IgnoreLdrStrOffset bool
	IgnoreBOffset      bool
}

// Pattern is a compiled byte pattern. Source is the exact byte-pattern
// string used to build Re; two Patterns built from identical bytes and
// Options produce identical Source strings, which callers use as a cache
// key (see internal/search).
type Pattern struct {
	Re     *regexp.Regexp
	Source string
}

// Literal compiles an exact-match pattern for opaque data bytes.
func Literal(data []byte) (*Pattern, error) {
	src := "(?s)" + regexp.QuoteMeta(string(data))
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}
	return &Pattern{Re: re, Source: src}, nil
}

// byteClass renders a regex character class matching any byte whose upper
// 4 bits equal the upper 4 bits of b: a 16-byte range [lo-hi].
func byteClass(b byte) string {
	lo := b & 0xF0
	hi := lo | 0x0F
	return fmt.Sprintf("[\\x%02x-\\x%02x]", lo, hi)
}

func quoteByte(b byte) string {
	return fmt.Sprintf("\\x%02x", b)
}

func anyBytes(n int) string {
	return strings.Repeat("(?s:.)", n)
}

// Compile builds a byte-wise pattern for an asm segment, emitting bytes
// per instruction according to the four rules: bl/ignored-b offsets mask
// the low 3 bytes, addr-mode-2/3 immediates mask their offset nibbles
// under the ignore-ldr-str-offset flag, everything else matches
// literally.
func Compile(data []byte, opts Options) (*Pattern, error) {
	var b strings.Builder
	b.WriteString("(?s)")

	for i := 0; i+4 <= len(data); i += 4 {
		w := instr.Word{data[i], data[i+1], data[i+2], data[i+3]}
		kind := instr.Classify(w)

		switch {
		case kind == instr.KindBL || (opts.IgnoreBOffset && kind == instr.KindB):
			// Mask the 24-bit signed offset (low 3 bytes); keep the
			// literal high byte that carries the opcode nibble.
			b.WriteString(anyBytes(3))
			b.WriteString(quoteByte(w.B3()))

		case opts.IgnoreLdrStrOffset && kind == instr.KindAddrMode2:
			// Mask the 12-bit immediate offset spread across b0 and the
			// low nibble of b1; keep the Rd nibble of b1 and the
			// literal b2/b3.
			b.WriteString(anyBytes(1))
			b.WriteString(byteClass(w.B1()))
			b.WriteString(quoteByte(w.B2()))
			b.WriteString(quoteByte(w.B3()))

		case opts.IgnoreLdrStrOffset && kind == instr.KindAddrMode3:
			// Mask the split 8-bit immediate offset (low nibble of b0,
			// low nibble of b1); keep the type nibble of b0, the Rd
			// nibble of b1, and the literal b2/b3.
			b.WriteString(byteClass(w.B0()))
			b.WriteString(byteClass(w.B1()))
			b.WriteString(quoteByte(w.B2()))
			b.WriteString(quoteByte(w.B3()))

		default:
			b.WriteString(quoteByte(w.B0()))
			b.WriteString(quoteByte(w.B1()))
			b.WriteString(quoteByte(w.B2()))
			b.WriteString(quoteByte(w.B3()))
		}
	}

	src := b.String()
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}
	return &Pattern{Re: re, Source: src}, nil
}
