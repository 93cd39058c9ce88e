// Package dataset implements the annotated molecular dataset abstraction: a
// persistent tabular store of compounds that is incrementally enriched with
// computed per-molecule annotations (descriptors, scaffolds) and with derived
// scaffold-frequency groupings.
//
// DataSet is the capability contract; TSVStore is the file-backed
// implementation over a tab-separated table. Reads are side-effect free,
// column mutations never change the row count, and every successful mutation
// is immediately durable.
package dataset

import (
	"github.com/molset/molset/internal/chem"
	"github.com/molset/molset/internal/table"
)

// Sentinel errors, re-exported so callers don't need to import the table
// package to classify failures.
var (
	ErrMissingColumn = table.ErrMissingColumn
	ErrShapeMismatch = table.ErrShapeMismatch
)

// DataSet is the capability set any dataset backend implements, independent
// of storage technology.
type DataSet interface {
	// AsTable returns the full record table. Requesting a different name for
	// the structure column than the configured one returns a renamed view
	// without mutating the stored table.
	AsTable(structureCol string) (*table.Table, error)

	// AddDescriptors computes one new descriptor column per function by
	// applying it to every molecule, persisting after each function. A
	// failing function aborts only its own column; columns committed for
	// earlier functions in the same call stay persisted. A name collision
	// overwrites the existing column.
	AddDescriptors(descriptors []chem.Descriptor) error

	// AddScaffolds computes one scaffold column per function plus its parsed
	// counterpart, with the same per-function isolation and overwrite
	// semantics as AddDescriptors.
	AddScaffolds(scaffolds []chem.Scaffold) error

	// Descriptors projects the table onto the descriptor columns.
	Descriptors() (*table.Table, error)
	// Scaffolds projects the table onto the scaffold columns, optionally
	// including the parsed-molecule counterparts.
	Scaffolds(includeMols bool) (*table.Table, error)
	// DescriptorNames returns the descriptor column names in table order.
	DescriptorNames() []string
	// ScaffoldNames returns the scaffold column names in table order.
	ScaffoldNames() []string

	// Structures returns the structure strings of all molecules.
	Structures() []string
	// Mols returns the parsed forms of all molecules.
	Mols() []chem.Mol

	HasDescriptors() bool
	HasScaffolds() bool
	HasScaffoldGroups() bool

	// AddData inserts or overwrites an arbitrary column. The value count must
	// equal the row count.
	AddData(name string, values []string) error
	// RemoveData drops a column by name, failing with ErrMissingColumn if it
	// does not exist.
	RemoveData(name string) error

	// CreateScaffoldGroups collapses, per scaffold column independently,
	// every scaffold value occurring fewer than minGroupSize times into the
	// "Other" category, producing one ScaffoldGroup_ column per scaffold
	// column.
	CreateScaffoldGroups(minGroupSize int) error
	// ScaffoldGroups returns the grouping column derived from the named
	// scaffold column. The name is accepted with or without the Scaffold_
	// prefix.
	ScaffoldGroups(scaffoldName string) ([]string, error)
}
