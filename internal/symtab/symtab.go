// Package symtab loads the hierarchical YAML symbol-table document
// consumed (not produced) by the correlation tools, per spec §6. Writing
// symbol tables remains an external collaborator's job.
package symtab

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Entry is one named symbol within a block's functions or data list.
// Address and Length are keyed by version/revision name, since the same
// symbol table may track several binary releases at once.
type Entry struct {
	Name        string         `yaml:"name"`
	Aliases     []string       `yaml:"aliases,omitempty"`
	Address     VersionedAddrs `yaml:"address"`
	Length      VersionedInts  `yaml:"length,omitempty"`
	Description string         `yaml:"description,omitempty"`
}

// VersionedAddrs maps a version name to one or more addresses; a bare
// scalar address is normalized to a single-element list.
type VersionedAddrs map[string][]int

func (v *VersionedAddrs) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return err
	}
	out := make(VersionedAddrs, len(raw))
	for version, n := range raw {
		switch n.Kind {
		case yaml.SequenceNode:
			var ints []int
			if err := n.Decode(&ints); err != nil {
				return fmt.Errorf("address list for version %q: %w", version, err)
			}
			out[version] = ints
		case yaml.ScalarNode:
			var i int
			if err := n.Decode(&i); err != nil {
				return fmt.Errorf("address scalar for version %q: %w", version, err)
			}
			out[version] = []int{i}
		default:
			return fmt.Errorf("address for version %q: unsupported YAML node kind", version)
		}
	}
	*v = out
	return nil
}

// VersionedInts maps a version name to a single integer, e.g. a symbol's
// per-version length.
type VersionedInts map[string]int

// Block groups the function and data symbols for one binary or overlay.
type Block struct {
	Functions []Entry `yaml:"functions,omitempty"`
	Data      []Entry `yaml:"data,omitempty"`
}

// Document is the top-level symbol table: one Block per named binary or
// overlay region.
type Document map[string]Block

// Load parses a symbol-table YAML document.
func Load(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("symtab: decode: %w", err)
	}
	return &doc, nil
}

// Names returns every symbol name (including aliases) declared anywhere in
// the document, e.g. to build a target_filter allow-list for the symbol
// correlator.
func (d Document) Names() []string {
	var names []string
	for _, block := range d {
		for _, list := range [][]Entry{block.Functions, block.Data} {
			for _, e := range list {
				names = append(names, e.Name)
				names = append(names, e.Aliases...)
			}
		}
	}
	return names
}

// AddressFor returns the address(es) declared for name in the given
// version, across every block. Only entry names are compared; aliases are
// not searched. The first match found is returned, and the order in which
// blocks are visited is not defined.
func (d Document) AddressFor(name, version string) ([]int, bool) {
	for _, block := range d {
		for _, list := range [][]Entry{block.Functions, block.Data} {
			for _, e := range list {
				if e.Name != name {
					continue
				}
				addrs, ok := e.Address[version]
				if !ok {
					continue
				}
				return addrs, true
			}
		}
	}
	return nil, false
}
