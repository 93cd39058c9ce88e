// TSV encoding and decoding for the record table.

package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteTSV writes the table as tab-separated text: a header row with column
// names followed by one data row per molecule, each with a trailing newline.
// Molecule-kind columns are a derived in-memory cache and are skipped.
func (t *Table) WriteTSV(w io.Writer) error {
	var persisted []*Column
	for i := range t.cols {
		if t.cols[i].Kind == KindMolecule || t.cols[i].Kind == KindScaffoldMol {
			continue
		}
		persisted = append(persisted, &t.cols[i])
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	header := make([]string, len(persisted))
	for i, c := range persisted {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(persisted))
	for r := 0; r < t.RowCount(); r++ {
		for i, c := range persisted {
			row[i] = c.Values[r]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}
	return nil
}

// ReadTSV parses tab-separated text into a table. Column kinds are derived
// from the name prefix convention; structureCol names the identity column.
// An empty input yields an empty table.
func ReadTSV(r io.Reader, structureCol string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = Column{Name: name, Kind: KindFromName(name, structureCol)}
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		for i := range cols {
			cols[i].Values = append(cols[i].Values, record[i])
		}
	}

	return &Table{cols: cols}, nil
}
