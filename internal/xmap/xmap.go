// Package xmap implements the xMAP linker map parser (C8): the
// section/directive/entry-line grammar of spec §4.8, producing a load
// address and a list of symbols for one requested section.
package xmap

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/standardbeagle/armcorrelate/internal/corerr"
)

// DataType is the current data type in effect for a symbol segment:
// data, ARM code, or Thumb code.
type DataType int

const (
	DataTypeData DataType = iota
	DataTypeArm
	DataTypeThumb
)

func (t DataType) String() string {
	switch t {
	case DataTypeData:
		return "$d"
	case DataTypeArm:
		return "$a"
	case DataTypeThumb:
		return "$t"
	default:
		return "?"
	}
}

// IsAsm reports whether this data type is executable ARM or Thumb code.
func (t DataType) IsAsm() bool {
	return t == DataTypeArm || t == DataTypeThumb
}

func parseDataType(name string) (DataType, bool) {
	switch name {
	case "$d":
		return DataTypeData, true
	case "$a":
		return DataTypeArm, true
	case "$t":
		return DataTypeThumb, true
	default:
		return 0, false
	}
}

// Segment is one contiguous address range of a symbol, carrying the data
// type in effect over that range.
type Segment struct {
	DataType DataType
	Address  uint32
	Length   uint32
}

func (s Segment) End() uint32 { return s.Address + s.Length }

// Symbol is one xMAP-declared symbol, potentially spanning more than one
// segment (e.g. an ARM code segment followed by a literal data pool).
type Symbol struct {
	Name     string
	Source   string
	Segments []Segment
}

// Address returns the symbol's starting address. Panics if the symbol has
// no segments, which should never happen for a finalized symbol.
func (s Symbol) Address() uint32 {
	if len(s.Segments) == 0 {
		panic("xmap: symbol has no segments")
	}
	return s.Segments[0].Address
}

func (s Symbol) DataTypeOf() DataType {
	if len(s.Segments) == 0 {
		panic("xmap: symbol has no segments")
	}
	return s.Segments[0].DataType
}

func (s Symbol) Length() uint32 {
	var total uint32
	for _, seg := range s.Segments {
		total += seg.Length
	}
	return total
}

func (s Symbol) End() uint32 { return s.Address() + s.Length() }

// symbolBuilder accumulates segments for one in-progress symbol as entry
// lines are processed.
type symbolBuilder struct {
	name          string
	source        string
	address       uint32
	length        uint32
	maxAlignment  uint32
	cursor        uint32
	segments      []Segment
	ticksSinceAdd int
}

func newSymbolBuilder(name, source string, address, length uint32) *symbolBuilder {
	return &symbolBuilder{
		name:         name,
		source:       source,
		address:      address,
		length:       length,
		maxAlignment: 4,
		cursor:       address,
	}
}

func (b *symbolBuilder) tick() int {
	b.ticksSinceAdd++
	return b.ticksSinceAdd
}

func (b *symbolBuilder) maxAlign(x uint32) uint32 {
	return (x + b.maxAlignment - 1) / b.maxAlignment * b.maxAlignment
}

// add appends a segment from the builder's cursor to address, using
// dataType for the new segment. It returns the finalized Symbol once the
// cursor reaches the declared end.
func (b *symbolBuilder) add(address uint32, dataType DataType) (*Symbol, bool, error) {
	if address < b.cursor {
		return nil, false, fmt.Errorf("symbol segment addresses cannot decrease")
	}
	if address > b.maxAlign(b.address+b.length) {
		return nil, false, fmt.Errorf("symbol segment out of symbol bounds")
	}
	b.ticksSinceAdd = 0
	if address != b.cursor {
		end := address
		if declaredEnd := b.address + b.length; end > declaredEnd {
			end = declaredEnd
		}
		b.segments = append(b.segments, Segment{DataType: dataType, Address: b.cursor, Length: end - b.cursor})
		b.cursor = address
	}
	if b.cursor >= b.address+b.length {
		return &Symbol{Name: b.name, Source: b.source, Segments: b.segments}, true, nil
	}
	return nil, false, nil
}

// Parser parses xMAP files, optionally logging diagnostic trace lines via
// Debug.
type Parser struct {
	Debug func(string)
}

// Parse parses one section of an xMAP file, returning the section's load
// address and the symbols it declares.
func (p *Parser) Parse(r io.Reader, section string) (loadAddr uint32, symbols []Symbol, err error) {
	debug := func(string) {}
	if p.Debug != nil {
		debug = p.Debug
	}
	debugLine := func(message string, lineNum int, line string) {
		debug(fmt.Sprintf("line %d: %s", lineNum, line))
		debug(fmt.Sprintf("    %s", message))
	}

	section = strings.TrimSpace(section)

	var currentSection *string
	currentDataType := DataTypeData
	var currentSymbol *symbolBuilder
	foundSection := false
	foundLoadAddr := false
	inExceptionTable := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if currentSymbol != nil && currentSymbol.tick() > 1 {
			debugLine(fmt.Sprintf("*** incomplete symbol [%d segment(s)]: %s @ 0x%X [%s]",
				len(currentSymbol.segments), currentSymbol.name, currentSymbol.address, currentSymbol.source),
				lineNum, line)
			currentSymbol = nil
		}

		if currentSection == nil {
			if line == "" {
				continue
			}
			if !strings.HasPrefix(line, "#") {
				return 0, nil, corerr.WrapParseError(
					corerr.Position{Line: lineNum},
					line,
					fmt.Errorf("unexpected content without parent section"),
				)
			}
			name := strings.TrimSpace(line[1:])
			if name == "" {
				continue
			}
			currentSection = &name
			debugLine(fmt.Sprintf("start section: %s", name), lineNum, line)
			continue
		}

		if line == "" {
			if foundSection {
				break
			}
			currentSection = nil
			continue
		}

		if *currentSection != section {
			continue
		}

		foundSection = true

		if !foundLoadAddr && strings.HasSuffix(line, "START (linker command file)") {
			fields := strings.Fields(line)
			if len(fields) == 0 || !strings.HasPrefix(fields[0], "#>") {
				return 0, nil, corerr.WrapParseError(corerr.Position{Line: lineNum}, line, fmt.Errorf("malformed load address directive"))
			}
			v, perr := strconv.ParseUint(fields[0][len("#>"):], 16, 32)
			if perr != nil {
				return 0, nil, corerr.WrapParseError(corerr.Position{Line: lineNum}, line, perr)
			}
			loadAddr = uint32(v)
			foundLoadAddr = true
			debugLine(fmt.Sprintf("load address: 0x%X", loadAddr), lineNum, line)
		}
		if strings.HasPrefix(line, "#") || inExceptionTable {
			if strings.HasSuffix(line, "_ETABLE_START (linker command file)") {
				inExceptionTable = true
				debugLine("start exception table", lineNum, line)
			} else if inExceptionTable && strings.HasSuffix(line, "_ETABLE_END (linker command file)") {
				inExceptionTable = false
				debugLine("end exception table", lineNum, line)
			}
			continue
		}

		address, length, sectionType, name, source, perr := parseEntryLine(line)
		if perr != nil {
			debugLine("*** unexpected line format", lineNum, line)
			return 0, nil, corerr.WrapParseError(corerr.Position{Line: lineNum}, line, perr)
		}

		newDataType, hasNewType := parseDataType(name)

		if currentSymbol != nil {
			finalized, done, aerr := currentSymbol.add(address, currentDataType)
			if aerr != nil {
				debugLine(fmt.Sprintf("*** ignoring symbol %s: failed to add address 0x%X: %v", currentSymbol.name, address, aerr), lineNum, line)
				currentSymbol = nil
			} else if done {
				if len(finalized.Segments) > 0 {
					debugLine(fmt.Sprintf("symbol [%d segment(s)]: %s", len(finalized.Segments), finalized.Name), lineNum, line)
					symbols = append(symbols, *finalized)
				} else {
					debugLine(fmt.Sprintf("*** empty symbol: %s", currentSymbol.name), lineNum, line)
				}
				currentSymbol = nil
			} else if source != currentSymbol.source {
				return 0, nil, corerr.WrapParseError(corerr.Position{Line: lineNum}, line,
					fmt.Errorf("%s: segment source mismatch: %q", currentSymbol.name, source))
			}
		}

		if currentSymbol == nil && !hasNewType && length != 0 && name != sectionType {
			currentSymbol = newSymbolBuilder(name, source, address, length)
		}
		if hasNewType {
			currentDataType = newDataType
		}
	}
	if serr := scanner.Err(); serr != nil {
		return 0, nil, corerr.WrapParseError(corerr.Position{Line: lineNum}, "", serr)
	}
	return loadAddr, symbols, nil
}

// parseEntryLine tokenizes an address-map entry line:
// "<hex_addr> <hex_length> <section_type> <name> (<source>)". The name may
// contain spaces and the source may contain balanced parentheses; the
// source is located by matching the open paren corresponding to the final
// close paren, counting nesting.
func parseEntryLine(line string) (address, length uint32, sectionType, name, source string, err error) {
	fields := strings.SplitN(line, " ", 4)
	if len(fields) != 4 {
		return 0, 0, "", "", "", fmt.Errorf("expected 4 whitespace-separated fields")
	}
	a, err := strconv.ParseUint(fields[0], 16, 32)
	if err != nil {
		return 0, 0, "", "", "", err
	}
	l, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil {
		return 0, 0, "", "", "", err
	}
	sectionType = fields[2]
	nameAndSource := fields[3]

	if !strings.HasSuffix(nameAndSource, ")") {
		return 0, 0, "", "", "", fmt.Errorf("expected name/source field to end with ')'")
	}
	searchEnd := len(nameAndSource) - 1
	parenCount := 1
	openParen := -1
	for parenCount > 0 {
		idx := strings.LastIndex(nameAndSource[:searchEnd], "(")
		if idx < 0 {
			return 0, 0, "", "", "", fmt.Errorf("unbalanced parentheses in %q", nameAndSource)
		}
		parenCount--
		parenCount += strings.Count(nameAndSource[idx+1:searchEnd], ")")
		openParen = idx
		searchEnd = idx
	}
	name = strings.TrimSpace(nameAndSource[:openParen])
	source = strings.TrimSpace(nameAndSource[openParen+1 : len(nameAndSource)-1])
	return uint32(a), uint32(l), sectionType, name, source, nil
}
