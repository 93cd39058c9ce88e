package table

import (
	"slices"
	"strings"
	"testing"

	"github.com/molset/molset/internal/chem"
)

func TestTSVRoundTrip(t *testing.T) {
	tbl := setupTable(t)
	if err := tbl.Set(Column{Name: "Descriptor_MW", Kind: KindDescriptor, Values: []string{"46.07", "78.11", "60.05"}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := tbl.Set(Column{Name: "Scaffold_Murcko", Kind: KindScaffold, Values: []string{"", "c1ccccc1", ""}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var buf strings.Builder
	if err := tbl.WriteTSV(&buf); err != nil {
		t.Fatalf("WriteTSV failed: %v", err)
	}

	got, err := ReadTSV(strings.NewReader(buf.String()), "SMILES")
	if err != nil {
		t.Fatalf("ReadTSV failed: %v", err)
	}
	if !tbl.Equal(got) {
		t.Errorf("round trip mismatch:\nwrote %v\nread  %v", tbl.ColumnNames(), got.ColumnNames())
	}
}

func TestWriteTSVSkipsMolColumns(t *testing.T) {
	tbl := setupTable(t)
	mols := make([]chem.Mol, 3)
	for i, s := range []string{"CCO", "c1ccccc1", "CC(=O)O"} {
		m, err := chem.Passthrough(s)
		if err != nil {
			t.Fatalf("Passthrough failed: %v", err)
		}
		mols[i] = m
	}
	if err := tbl.Set(Column{Name: "Mol", Kind: KindMolecule, Mols: mols}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var buf strings.Builder
	if err := tbl.WriteTSV(&buf); err != nil {
		t.Fatalf("WriteTSV failed: %v", err)
	}
	header := strings.Split(strings.SplitN(buf.String(), "\n", 2)[0], "\t")
	if !slices.Equal(header, []string{"SMILES"}) {
		t.Errorf("header = %v, want only persisted columns", header)
	}
}

func TestReadTSVEmpty(t *testing.T) {
	got, err := ReadTSV(strings.NewReader(""), "SMILES")
	if err != nil {
		t.Fatalf("ReadTSV failed: %v", err)
	}
	if got.RowCount() != 0 || len(got.ColumnNames()) != 0 {
		t.Errorf("empty input yielded %d rows, %v columns", got.RowCount(), got.ColumnNames())
	}
}

func TestReadTSVKinds(t *testing.T) {
	const data = "SMILES\tDescriptor_MW\tScaffold_Murcko\tScaffoldGroup_Scaffold_Murcko\tInChIKey\n" +
		"CCO\t46.07\tc1ccccc1\tOther\tLFQSCWFLJHTTHZ-UHFFFAOYSA-N\n"
	tbl, err := ReadTSV(strings.NewReader(data), "SMILES")
	if err != nil {
		t.Fatalf("ReadTSV failed: %v", err)
	}
	want := map[string]Kind{
		"SMILES":                        KindIdentity,
		"Descriptor_MW":                 KindDescriptor,
		"Scaffold_Murcko":               KindScaffold,
		"ScaffoldGroup_Scaffold_Murcko": KindScaffoldGroup,
		"InChIKey":                      KindData,
	}
	for name, wantKind := range want {
		kind, err := tbl.Kind(name)
		if err != nil {
			t.Fatalf("Kind(%s) failed: %v", name, err)
		}
		if kind != wantKind {
			t.Errorf("Kind(%s) = %q, want %q", name, kind, wantKind)
		}
	}
}
