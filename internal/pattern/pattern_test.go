package pattern

import (
	"regexp"
	"testing"
)

func TestLiteralMatchesExactBytes(t *testing.T) {
	p, err := Literal([]byte{0x00, 0x0A, 0xFF})
	if err != nil {
		t.Fatalf("Literal: %v", err)
	}
	if !p.Re.Match([]byte{0x00, 0x0A, 0xFF}) {
		t.Error("expected literal pattern to match its own bytes")
	}
	if p.Re.Match([]byte{0x00, 0x0B, 0xFF}) {
		t.Error("expected literal pattern not to match a differing byte")
	}
}

func TestLiteralMatchesNewlineAndNUL(t *testing.T) {
	p, err := Literal([]byte{0x0A, 0x00, 0x0A})
	if err != nil {
		t.Fatalf("Literal: %v", err)
	}
	if !p.Re.Match([]byte{0x0A, 0x00, 0x0A}) {
		t.Error("expected literal pattern to match bytes containing newline/NUL")
	}
}

func TestCompileLiteralWhenNoMasking(t *testing.T) {
	// A plain data-move word (not bl/b/addr-mode-2/3) with masking off
	// must match only itself, byte for byte.
	data := []byte{0x01, 0x02, 0x03, 0x00}
	p, err := Compile(data, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !p.Re.Match(data) {
		t.Error("expected compiled pattern to match its own bytes")
	}
	other := []byte{0x01, 0x02, 0x03, 0x01}
	if p.Re.Match(other) {
		t.Error("expected compiled pattern not to match a differing literal word")
	}
}

func TestCompileMasksBLOffset(t *testing.T) {
	// BL word: low 3 bytes are the offset and must be masked regardless
	// of Options; the top byte (opcode/condition) stays literal.
	data := []byte{0x01, 0x02, 0x03, 0xEB}
	p, err := Compile(data, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !p.Re.Match(data) {
		t.Error("expected pattern to match the bytes it was compiled from")
	}
	variant := []byte{0xAA, 0xBB, 0xCC, 0xEB}
	if !p.Re.Match(variant) {
		t.Error("expected BL offset bytes to be masked (any value accepted)")
	}
	wrongOpcode := []byte{0x01, 0x02, 0x03, 0xEA}
	if p.Re.Match(wrongOpcode) {
		t.Error("expected the literal top byte of a BL word to still be enforced")
	}
}

func TestCompileIgnoreBOffset(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0xEA} // B word
	without, err := Compile(data, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	variant := []byte{0xAA, 0xBB, 0xCC, 0xEA}
	if without.Re.Match(variant) {
		t.Error("expected B offset to stay literal when IgnoreBOffset is false")
	}

	with, err := Compile(data, Options{IgnoreBOffset: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !with.Re.Match(variant) {
		t.Error("expected B offset to be masked when IgnoreBOffset is true")
	}
}

func TestCompileSourceIsStableCacheKey(t *testing.T) {
	data := []byte{0x04, 0x10, 0x9F, 0xE5}
	a, err := Compile(data, Options{IgnoreLdrStrOffset: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	b, err := Compile(data, Options{IgnoreLdrStrOffset: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if a.Source != b.Source {
		t.Error("expected identical bytes/Options to produce identical Source strings")
	}

	c, err := Compile(data, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if a.Source == c.Source {
		t.Error("expected differing Options to produce differing Source strings")
	}
}

func TestByteClassRange(t *testing.T) {
	re := regexp.MustCompile(byteClass(0x35))
	if !re.Match([]byte{0x30}) || !re.Match([]byte{0x3F}) {
		t.Error("expected byteClass to accept the full upper-nibble range")
	}
	if re.Match([]byte{0x40}) {
		t.Error("expected byteClass to reject a byte outside the nibble range")
	}
}
