// Column metadata for Papyrus compound records, derived by JSON Schema
// reflection so manifest descriptions stay next to the field definitions.

package papyrus

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// CompoundRecord describes the Papyrus columns this tool understands. The
// dump carries many more columns; they pass through the filter untouched.
// JSON tags match the dump's header names exactly.
type CompoundRecord struct {
	InChIKey         string  `json:"InChIKey" jsonschema:"description=Standard InChIKey; identity used for deduplication"`
	SMILES           string  `json:"SMILES" jsonschema:"description=Canonical SMILES of the compound"`
	InChI            string  `json:"InChI,omitempty" jsonschema:"description=Standard InChI"`
	Accession        string  `json:"accession" jsonschema:"description=UniProt accession of the measured protein target"`
	Quality          string  `json:"Quality" jsonschema:"description=Curation quality label: high, medium or low"`
	Source           string  `json:"source,omitempty" jsonschema:"description=Originating bioactivity database"`
	PchemblValueMean float64 `json:"pchembl_value_Mean,omitempty" jsonschema:"description=Mean pChEMBL activity value across measurements"`
}

// ColumnKind is the manifest-level type of a record column.
type ColumnKind string

const (
	// ColumnKindText is a free-form string column.
	ColumnKindText ColumnKind = "text"
	// ColumnKindNumber is a numeric column.
	ColumnKindNumber ColumnKind = "number"
)

// ColumnInfo describes one known record column for the output manifest.
type ColumnInfo struct {
	Name        string     `yaml:"name"`
	Type        ColumnKind `yaml:"type"`
	Required    bool       `yaml:"required,omitempty"`
	Description string     `yaml:"description,omitempty"`
}

// RecordColumns extracts column definitions from CompoundRecord using JSON
// Schema reflection, keeping field descriptions and required fields in sync
// with the struct tags.
func RecordColumns() ([]ColumnInfo, error) {
	return columnsFromType[CompoundRecord]()
}

// RequiredColumns returns the names of the columns every usable dump must
// carry.
func RequiredColumns() ([]string, error) {
	cols, err := RecordColumns()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, c := range cols {
		if c.Required {
			names = append(names, c.Name)
		}
	}
	return names, nil
}

func columnsFromType[T any]() ([]ColumnInfo, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type must be a struct, got %s", t.Kind())
	}

	// Generate JSON Schema from type with inline properties (no $ref).
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.ReflectFromType(t)

	required := make(map[string]bool)
	for _, name := range schema.Required {
		required[name] = true
	}

	var columns []ColumnInfo
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		prop := pair.Value

		colType := ColumnKindText
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if jsonFieldName(&field) == name {
				colType = goTypeToColumnKind(field.Type)
				break
			}
		}

		columns = append(columns, ColumnInfo{
			Name:        name,
			Type:        colType,
			Required:    required[name],
			Description: prop.Description,
		})
	}
	return columns, nil
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	for i, c := range tag {
		if c == ',' {
			if i == 0 {
				return field.Name
			}
			return tag[:i]
		}
	}
	return tag
}

func goTypeToColumnKind(t reflect.Type) ColumnKind {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() { //nolint:exhaustive // Other kinds default to text
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ColumnKindNumber
	default:
		return ColumnKindText
	}
}
