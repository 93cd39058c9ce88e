// Package chem defines the collaborator contracts the dataset layer depends
// on: parsed molecules, structure parsing, and per-molecule annotation
// functions. No chemistry happens in this module; callers plug in their own
// toolkit (RDKit bindings, a SMILES library, a remote service) behind these
// interfaces.
package chem

// Mol is an opaque parsed molecule produced by a Parser. The dataset layer
// never inspects it beyond handing it to annotation functions.
type Mol interface {
	// Structure returns the structure string the molecule was parsed from.
	Structure() string
}

// Parser converts a structure string (typically SMILES) into a parsed
// molecule. Parse failures propagate to the caller untouched.
type Parser func(structure string) (Mol, error)

// Descriptor computes one scalar property per molecule. The name is used
// verbatim as a column-name suffix, so distinct descriptors must carry
// distinct names.
type Descriptor interface {
	Name() string
	Calc(m Mol) (float64, error)
}

// Scaffold extracts a canonical substructure as a structure string. The name
// is used verbatim as a column-name suffix.
type Scaffold interface {
	Name() string
	Extract(m Mol) (string, error)
}

// DescriptorFunc adapts a plain function into a Descriptor.
func DescriptorFunc(name string, fn func(Mol) (float64, error)) Descriptor {
	return &descriptorFunc{name: name, fn: fn}
}

type descriptorFunc struct {
	name string
	fn   func(Mol) (float64, error)
}

func (d *descriptorFunc) Name() string                { return d.name }
func (d *descriptorFunc) Calc(m Mol) (float64, error) { return d.fn(m) }

// ScaffoldFunc adapts a plain function into a Scaffold.
func ScaffoldFunc(name string, fn func(Mol) (string, error)) Scaffold {
	return &scaffoldFunc{name: name, fn: fn}
}

type scaffoldFunc struct {
	name string
	fn   func(Mol) (string, error)
}

func (s *scaffoldFunc) Name() string                  { return s.name }
func (s *scaffoldFunc) Extract(m Mol) (string, error) { return s.fn(m) }

// rawMol wraps a structure string without interpreting it.
type rawMol string

func (m rawMol) Structure() string { return string(m) }

// Passthrough is a Parser that wraps the structure string without parsing it.
// It is used by tooling that only needs column-level operations (grouping,
// inspection) and never evaluates annotation functions.
func Passthrough(structure string) (Mol, error) {
	return rawMol(structure), nil
}
