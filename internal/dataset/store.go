// File-backed DataSet implementation over a tab-separated table.

package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/molset/molset/internal/chem"
	"github.com/molset/molset/internal/table"
)

// MolColumn is the name of the parsed-molecule counterpart of the structure
// column. It is reserved: backing files must not contain a column of this
// name.
const MolColumn = "Mol"

// TSVStore is a DataSet persisted as a tab-separated file. It exclusively
// owns its backing path: concurrent instances over one path are unsupported,
// since every mutation rewrites the whole file and a later writer silently
// clobbers an earlier one. The mutex serializes callers within one process;
// it is not a cross-process lock.
type TSVStore struct {
	mu           sync.Mutex
	path         string
	structureCol string
	parse        chem.Parser
	tbl          *table.Table
}

var _ DataSet = (*TSVStore)(nil)

// Open loads the table from path if the file exists, or starts empty
// otherwise. The parsed-molecule identity column is derived from structureCol
// at construction, as are the parsed counterparts of any scaffold columns
// already present in the file.
func Open(path, structureCol string, parse chem.Parser) (*TSVStore, error) {
	s := &TSVStore{path: path, structureCol: structureCol, parse: parse}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.tbl = table.New()
			return s, nil
		}
		return nil, fmt.Errorf("failed to open dataset file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	tbl, err := table.ReadTSV(f, structureCol)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset file %s: %w", path, err)
	}
	s.tbl = tbl

	if len(tbl.ColumnNames()) == 0 {
		return s, nil
	}
	if !tbl.Has(structureCol) {
		return nil, fmt.Errorf("%w: structure column %s in %s", ErrMissingColumn, structureCol, path)
	}
	if err := s.deriveMolColumns(); err != nil {
		return nil, err
	}
	return s, nil
}

// deriveMolColumns (re)builds the parsed-molecule caches: the identity mol
// column plus one per scaffold column. Group columns loaded from disk also
// get their source back-reference here.
func (s *TSVStore) deriveMolColumns() error {
	structures, err := s.tbl.Values(s.structureCol)
	if err != nil {
		return err
	}
	mols, err := s.parseAll(structures)
	if err != nil {
		return err
	}
	if err := s.tbl.Set(table.Column{Name: MolColumn, Kind: table.KindMolecule, Mols: mols}); err != nil {
		return err
	}

	for _, name := range s.tbl.NamesByKind(table.KindScaffold) {
		values, err := s.tbl.Values(name)
		if err != nil {
			return err
		}
		mols, err := s.parseAll(values)
		if err != nil {
			return err
		}
		col := table.Column{Name: name + "_" + MolColumn, Kind: table.KindScaffoldMol, Source: name, Mols: mols}
		if err := s.tbl.Set(col); err != nil {
			return err
		}
	}

	for _, name := range s.tbl.NamesByKind(table.KindScaffoldGroup) {
		values, err := s.tbl.Values(name)
		if err != nil {
			return err
		}
		col := table.Column{
			Name:   name,
			Kind:   table.KindScaffoldGroup,
			Source: strings.TrimPrefix(name, table.ScaffoldGroupPrefix),
			Values: values,
		}
		if err := s.tbl.Set(col); err != nil {
			return err
		}
	}
	return nil
}

// molsLocked returns the cached parsed molecules. A store with no columns at
// all has zero molecules rather than a missing mol column.
func (s *TSVStore) molsLocked() ([]chem.Mol, error) {
	mols, err := s.tbl.Mols(MolColumn)
	if err != nil {
		if len(s.tbl.ColumnNames()) == 0 {
			return nil, nil
		}
		return nil, err
	}
	return mols, nil
}

func (s *TSVStore) parseAll(structures []string) ([]chem.Mol, error) {
	mols := make([]chem.Mol, len(structures))
	for i, str := range structures {
		m, err := s.parse(str)
		if err != nil {
			return nil, fmt.Errorf("failed to parse structure at row %d: %w", i, err)
		}
		mols[i] = m
	}
	return mols, nil
}

// Path returns the backing file path.
func (s *TSVStore) Path() string {
	return s.path
}

// StructureColumn returns the configured structure column name.
func (s *TSVStore) StructureColumn() string {
	return s.structureCol
}

// AsTable returns a copy of the record table. A structureCol different from
// the configured name yields a renamed view; the stored table is unchanged.
func (s *TSVStore) AsTable(structureCol string) (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if structureCol == s.structureCol || !s.tbl.Has(s.structureCol) {
		return s.tbl.Clone(), nil
	}
	return s.tbl.RenameView(s.structureCol, structureCol)
}

// AddDescriptors applies each descriptor to every molecule and stores the
// result as a Descriptor_ column, persisting after each function.
func (s *TSVStore) AddDescriptors(descriptors []chem.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mols, err := s.molsLocked()
	if err != nil {
		return err
	}
	for _, d := range descriptors {
		values := make([]string, len(mols))
		for i, m := range mols {
			v, err := d.Calc(m)
			if err != nil {
				return fmt.Errorf("descriptor %s failed at row %d: %w", d.Name(), i, err)
			}
			values[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		col := table.Column{Name: table.DescriptorPrefix + d.Name(), Kind: table.KindDescriptor, Values: values}
		if err := s.tbl.Set(col); err != nil {
			return err
		}
		if err := s.save(s.path); err != nil {
			return err
		}
	}
	return nil
}

// AddScaffolds extracts each scaffold over every molecule, stores the
// Scaffold_ column and its parsed counterpart, persisting after each
// function.
func (s *TSVStore) AddScaffolds(scaffolds []chem.Scaffold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mols, err := s.molsLocked()
	if err != nil {
		return err
	}
	for _, sc := range scaffolds {
		values := make([]string, len(mols))
		for i, m := range mols {
			v, err := sc.Extract(m)
			if err != nil {
				return fmt.Errorf("scaffold %s failed at row %d: %w", sc.Name(), i, err)
			}
			values[i] = v
		}
		// Parse before mutating the table: a failing parse aborts this
		// function's column without leaving it half-added.
		scafMols, err := s.parseAll(values)
		if err != nil {
			return fmt.Errorf("scaffold %s: %w", sc.Name(), err)
		}
		name := table.ScaffoldPrefix + sc.Name()
		if err := s.tbl.Set(table.Column{Name: name, Kind: table.KindScaffold, Values: values}); err != nil {
			return err
		}
		col := table.Column{Name: name + "_" + MolColumn, Kind: table.KindScaffoldMol, Source: name, Mols: scafMols}
		if err := s.tbl.Set(col); err != nil {
			return err
		}
		if err := s.save(s.path); err != nil {
			return err
		}
	}
	return nil
}

// Descriptors projects the table onto the descriptor columns.
func (s *TSVStore) Descriptors() (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tbl.Project(s.tbl.NamesByKind(table.KindDescriptor)...)
}

// Scaffolds projects the table onto the scaffold columns, including the
// parsed counterparts when includeMols is set.
func (s *TSVStore) Scaffolds(includeMols bool) (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := s.tbl.NamesByKind(table.KindScaffold)
	if includeMols {
		names = append(names, s.tbl.NamesByKind(table.KindScaffoldMol)...)
	}
	return s.tbl.Project(names...)
}

// DescriptorNames returns the Descriptor_ column names in table order.
func (s *TSVStore) DescriptorNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tbl.NamesByKind(table.KindDescriptor)
}

// ScaffoldNames returns the Scaffold_ column names in table order.
func (s *TSVStore) ScaffoldNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tbl.NamesByKind(table.KindScaffold)
}

// Structures returns the structure strings of all molecules.
func (s *TSVStore) Structures() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.tbl.Values(s.structureCol)
	if err != nil {
		return nil
	}
	return values
}

// Mols returns the parsed forms of all molecules.
func (s *TSVStore) Mols() []chem.Mol {
	s.mu.Lock()
	defer s.mu.Unlock()
	mols, err := s.tbl.Mols(MolColumn)
	if err != nil {
		return nil
	}
	return mols
}

// HasDescriptors reports whether at least one descriptor column exists.
func (s *TSVStore) HasDescriptors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tbl.HasKind(table.KindDescriptor)
}

// HasScaffolds reports whether at least one scaffold column exists.
func (s *TSVStore) HasScaffolds() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tbl.HasKind(table.KindScaffold)
}

// HasScaffoldGroups reports whether at least one scaffold-group column exists.
func (s *TSVStore) HasScaffoldGroups() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tbl.HasKind(table.KindScaffoldGroup)
}

// AddData inserts or overwrites an arbitrary column and persists.
func (s *TSVStore) AddData(name string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := table.Column{Name: name, Kind: table.KindFromName(name, s.structureCol), Values: values}
	if col.Kind == table.KindScaffoldGroup {
		col.Source = strings.TrimPrefix(name, table.ScaffoldGroupPrefix)
	}

	// Stage on a clone so a failed mol-cache derivation leaves the table
	// untouched.
	staged := s.tbl.Clone()
	if err := staged.Set(col); err != nil {
		return err
	}
	prev := s.tbl
	s.tbl = staged
	// Writing the structure column (or a scaffold column) invalidates the
	// parsed-molecule caches.
	if col.Kind == table.KindIdentity || col.Kind == table.KindScaffold {
		if err := s.deriveMolColumns(); err != nil {
			s.tbl = prev
			return err
		}
	}
	return s.save(s.path)
}

// RemoveData drops a column by name and persists.
func (s *TSVStore) RemoveData(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tbl.Remove(name); err != nil {
		return err
	}
	return s.save(s.path)
}

// ScaffoldGroups returns the grouping column derived from the named scaffold
// column.
func (s *TSVStore) ScaffoldGroups(scaffoldName string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !strings.HasPrefix(scaffoldName, table.ScaffoldPrefix) {
		scaffoldName = table.ScaffoldPrefix + scaffoldName
	}
	return s.tbl.Values(table.ScaffoldGroupPrefix + scaffoldName)
}

// Save persists the table to path, or to the backing path when path is empty.
// All regular mutations call this implicitly; an explicit call with an
// override path writes a copy without retargeting the store.
func (s *TSVStore) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path == "" {
		path = s.path
	}
	return s.save(path)
}

// save rewrites the whole table. No partial or append writes.
func (s *TSVStore) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if err := s.tbl.WriteTSV(f); err != nil {
		return fmt.Errorf("failed to write dataset file %s: %w", path, err)
	}
	return nil
}
