// Package instr classifies 4-byte little-endian ARMv5 instruction words by
// the bitfield tests needed to decide which bits carry a maskable offset.
// It is not a disassembler: the tests are pattern-based on specific
// encoding bits, matching only as much of the encoding space as the
// correlation engine needs to mask immediate offsets.
package instr

// Word is a 4-byte little-endian ARMv5 instruction.
type Word [4]byte

// B0 through B3 return the instruction's bytes in ascending significance,
// so B0 is the least significant byte.
func (w Word) B0() byte { return w[0] }
func (w Word) B1() byte { return w[1] }
func (w Word) B2() byte { return w[2] }
func (w Word) B3() byte { return w[3] }

// Kind is the result of classifying an instruction word.
type Kind int

const (
	KindOther Kind = iota
	KindBL
	KindB
	KindAddrMode2
	KindAddrMode3
)

func (k Kind) String() string {
	switch k {
	case KindBL:
		return "bl"
	case KindB:
		return "b"
	case KindAddrMode2:
		return "addr_mode_2"
	case KindAddrMode3:
		return "addr_mode_3"
	default:
		return "other"
	}
}

// IsBL reports whether w is a branch-with-link instruction: low nibble of
// b3 (word bits 27:24) is 0b1011.
func IsBL(w Word) bool {
	return w.B3()&0b1111 == 0b1011
}

// IsB reports whether w is a branch or branch-with-link instruction: bits
// 3:1 of b3 (word bits 27:25) are 0b101.
func IsB(w Word) bool {
	return w.B3()&0b1110 == 0b1010
}

// IsAddrMode2 reports whether w is an LDR/STR/LDRB/STRB (optionally
// T-suffixed) instruction.
func IsAddrMode2(w Word) bool {
	b2, b3 := w.B2(), w.B3()
	if b3&0b1100 == 0b0100 {
		return true
	}
	return b3&0b1101 == 0b0100 && b2&0b00100000 == 0b00100000
}

// IsAddrMode3 reports whether w is an LDRH/LDRSH/LDRSB/LDRD/STRD/STRH/
// LDREX/STREX instruction: the "extra load/store" encodings, plus the
// exclusive-access encodings that share their addressing shape.
func IsAddrMode3(w Word) bool {
	b0, b2, b3 := w.B0(), w.B2(), w.B3()

	// LDRH/STRH/LDRSB/LDRSH/LDRD/STRD: bits 27:25 == 000, bit 7 == 1,
	// bit 4 == 1, and the S,H field (bits 6:5) nonzero (00 there belongs
	// to SWP/multiply, not an extra load/store).
	if b3&0b00001110 == 0b00000000 && b0&0b10010000 == 0b10010000 && b0&0b01100000 != 0 {
		return true
	}

	// LDREX: bits 27:24 == 0001, bits 23:20 == 1001, bits 7:0 ==
	// 1001_1111.
	if b3&0b00001111 == 0b00000001 && b2&0b11110000 == 0b10010000 && b0 == 0b10011111 {
		return true
	}

	// STREX: bits 27:24 == 0001, bits 23:20 == 1000, bits 7:4 == 1001.
	if b3&0b00001111 == 0b00000001 && b2&0b11110000 == 0b10000000 && b0&0b11110000 == 0b10010000 {
		return true
	}

	return false
}

// Classify returns the single Kind that applies to w, checked in priority
// order: bl, then b, then addr-mode-2, then addr-mode-3.
func Classify(w Word) Kind {
	switch {
	case IsBL(w):
		return KindBL
	case IsB(w):
		return KindB
	case IsAddrMode2(w):
		return KindAddrMode2
	case IsAddrMode3(w):
		return KindAddrMode3
	default:
		return KindOther
	}
}
