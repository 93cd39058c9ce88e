// Scaffold grouping: collapsing rare scaffold categories into "Other".

package dataset

import (
	"github.com/molset/molset/internal/table"
)

// CreateScaffoldGroups builds one ScaffoldGroup_ column per scaffold column,
// independently: a scaffold value occurring at least minGroupSize times keeps
// its value, anything rarer collapses to "Other". The threshold is inclusive
// on the frequent side, so minGroupSize of 1 reproduces the scaffold column
// unchanged. All grouping columns for the call are computed before the single
// persist, so a transient failure never leaves only some of them behind.
func (s *TSVStore) CreateScaffoldGroups(minGroupSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range s.tbl.NamesByKind(table.KindScaffold) {
		values, err := s.tbl.Values(name)
		if err != nil {
			return err
		}
		col := table.Column{
			Name:   table.ScaffoldGroupPrefix + name,
			Kind:   table.KindScaffoldGroup,
			Source: name,
			Values: collapseRare(values, minGroupSize),
		}
		if err := s.tbl.Set(col); err != nil {
			return err
		}
	}
	return s.save(s.path)
}

// collapseRare maps each value to itself when its total count reaches
// minGroupSize, and to the Other category when it does not.
func collapseRare(values []string, minGroupSize int) []string {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	out := make([]string, len(values))
	for i, v := range values {
		if counts[v] < minGroupSize {
			out[i] = table.OtherGroup
		} else {
			out[i] = v
		}
	}
	return out
}
