// Package table implements the in-memory molecular record table: one row per
// molecule, one column per annotation, with explicit per-column kind metadata.
//
// The persisted form (see codec.go) is a plain tab-separated file whose
// column-name prefixes encode the kinds, so files written by other tools
// round-trip. Parsed-molecule columns are an in-memory cache only and are
// never written to disk.
package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/molset/molset/internal/chem"
)

var (
	// ErrMissingColumn is returned when a named column does not exist.
	ErrMissingColumn = errors.New("column not found")
	// ErrShapeMismatch is returned when a value slice does not match the
	// table's row count.
	ErrShapeMismatch = errors.New("value count does not match row count")
)

// Column-name prefixes, the on-disk source of truth for column kinds.
const (
	DescriptorPrefix    = "Descriptor_"
	ScaffoldPrefix      = "Scaffold_"
	ScaffoldGroupPrefix = "ScaffoldGroup_"
)

// OtherGroup is the sentinel category rare scaffold values collapse into.
const OtherGroup = "Other"

// Kind classifies a column.
type Kind string

const (
	// KindIdentity is the structure-string column molecules were loaded from.
	KindIdentity Kind = "identity"
	// KindMolecule is the parsed counterpart of the identity column.
	KindMolecule Kind = "molecule"
	// KindDescriptor holds one scalar annotation value per row.
	KindDescriptor Kind = "descriptor"
	// KindScaffold holds one scaffold structure string per row.
	KindScaffold Kind = "scaffold"
	// KindScaffoldMol is the parsed counterpart of a scaffold column.
	KindScaffoldMol Kind = "scaffold_mol"
	// KindScaffoldGroup holds the rare-collapsed category per row.
	KindScaffoldGroup Kind = "scaffold_group"
	// KindData is any other caller-supplied column.
	KindData Kind = "data"
)

// Column is one table column. Exactly one of Values or Mols is set: molecule
// kinds carry Mols, everything else carries Values. Source back-references the
// scaffold column a scaffold_mol or scaffold_group column derives from.
type Column struct {
	Name   string
	Kind   Kind
	Source string
	Values []string
	Mols   []chem.Mol
}

func (c *Column) length() int {
	if c.Kind == KindMolecule || c.Kind == KindScaffoldMol {
		return len(c.Mols)
	}
	return len(c.Values)
}

func (c *Column) clone() Column {
	d := Column{Name: c.Name, Kind: c.Kind, Source: c.Source}
	if c.Values != nil {
		d.Values = append([]string(nil), c.Values...)
	}
	if c.Mols != nil {
		d.Mols = append([]chem.Mol(nil), c.Mols...)
	}
	return d
}

// Table is an ordered collection of columns of equal length.
type Table struct {
	cols []Column
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// RowCount returns the number of rows. An empty table has zero rows.
func (t *Table) RowCount() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].length()
}

// ColumnNames returns all column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i := range t.cols {
		names[i] = t.cols[i].Name
	}
	return names
}

// NamesByKind returns the names of all columns of the given kind, in table
// order.
func (t *Table) NamesByKind(kind Kind) []string {
	var names []string
	for i := range t.cols {
		if t.cols[i].Kind == kind {
			names = append(names, t.cols[i].Name)
		}
	}
	return names
}

// HasKind reports whether at least one column of the given kind exists.
func (t *Table) HasKind(kind Kind) bool {
	for i := range t.cols {
		if t.cols[i].Kind == kind {
			return true
		}
	}
	return false
}

func (t *Table) lookup(name string) *Column {
	for i := range t.cols {
		if t.cols[i].Name == name {
			return &t.cols[i]
		}
	}
	return nil
}

// Has reports whether a column with the given name exists.
func (t *Table) Has(name string) bool {
	return t.lookup(name) != nil
}

// Kind returns the kind of the named column.
func (t *Table) Kind(name string) (Kind, error) {
	c := t.lookup(name)
	if c == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return c.Kind, nil
}

// Values returns a copy of the named column's cells.
func (t *Table) Values(name string) ([]string, error) {
	c := t.lookup(name)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return append([]string(nil), c.Values...), nil
}

// Mols returns a copy of the named molecule column's parsed cells.
func (t *Table) Mols(name string) ([]chem.Mol, error) {
	c := t.lookup(name)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return append([]chem.Mol(nil), c.Mols...), nil
}

// Set inserts the column, or overwrites an existing column of the same name
// in place (last write wins). The column length must match the current row
// count; the first column of an empty table defines it.
func (t *Table) Set(col Column) error {
	if len(t.cols) > 0 && col.length() != t.RowCount() {
		return fmt.Errorf("%w: column %s has %d values, table has %d rows",
			ErrShapeMismatch, col.Name, col.length(), t.RowCount())
	}
	if c := t.lookup(col.Name); c != nil {
		*c = col
		return nil
	}
	t.cols = append(t.cols, col)
	return nil
}

// Remove drops the named column. Row count is unaffected.
func (t *Table) Remove(name string) error {
	for i := range t.cols {
		if t.cols[i].Name == name {
			t.cols = append(t.cols[:i], t.cols[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrMissingColumn, name)
}

// Project returns a new table holding copies of the named columns, in the
// given order.
func (t *Table) Project(names ...string) (*Table, error) {
	p := New()
	for _, name := range names {
		c := t.lookup(name)
		if c == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		p.cols = append(p.cols, c.clone())
	}
	return p, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := New()
	c.cols = make([]Column, len(t.cols))
	for i := range t.cols {
		c.cols[i] = t.cols[i].clone()
	}
	return c
}

// RenameView returns a deep copy with one column renamed. The receiver is
// unchanged.
func (t *Table) RenameView(oldName, newName string) (*Table, error) {
	if t.lookup(oldName) == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, oldName)
	}
	c := t.Clone()
	c.lookup(oldName).Name = newName
	return c, nil
}

// Equal reports whether two tables have identical column names, kinds, order
// and cell values. Molecule caches are compared by their structure strings.
func (t *Table) Equal(o *Table) bool {
	if len(t.cols) != len(o.cols) {
		return false
	}
	for i := range t.cols {
		a, b := &t.cols[i], &o.cols[i]
		if a.Name != b.Name || a.Kind != b.Kind || a.Source != b.Source {
			return false
		}
		if len(a.Values) != len(b.Values) || len(a.Mols) != len(b.Mols) {
			return false
		}
		for j := range a.Values {
			if a.Values[j] != b.Values[j] {
				return false
			}
		}
		for j := range a.Mols {
			if a.Mols[j].Structure() != b.Mols[j].Structure() {
				return false
			}
		}
	}
	return true
}

// KindFromName classifies a persisted column name by its prefix convention.
// structureCol is the name of the identity column.
func KindFromName(name, structureCol string) Kind {
	switch {
	case name == structureCol:
		return KindIdentity
	case strings.HasPrefix(name, ScaffoldGroupPrefix):
		return KindScaffoldGroup
	case strings.HasPrefix(name, ScaffoldPrefix):
		return KindScaffold
	case strings.HasPrefix(name, DescriptorPrefix):
		return KindDescriptor
	default:
		return KindData
	}
}
