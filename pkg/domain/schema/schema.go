// Package schema holds the input contract of a trained pipeline: which fields
// a prediction request must carry, whether each is numeric or categorical, and,
// for categorical fields, the levels observed at training time.
//
// A Schema is built once from the training table and is read-only afterwards.
// The serving process loads it next to the pipeline artifact and validates
// every request against it before the pipeline sees the data.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/kardialab/kardia/pkg/xerrors"
)

type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

type Field struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// Levels are the category codes observed at training time, in ascending
	// order. Empty for numeric fields.
	Levels []float64 `json:"levels,omitempty"`
}

type Schema struct {
	Fields []Field `json:"fields"`
}

// Row is one record of raw feature values keyed by field name.
// Missing values are represented as NaN.
type Row = map[string]float64

// FieldNames returns the declared field names in schema order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field finds a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldError reports a single request field which failed validation.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks a decoded JSON payload against the schema.
//
// Each schema field must be present and hold a number (booleans are accepted
// as 0/1). Fields in the payload but not in the schema are ignored. Values of
// categorical fields outside the recorded levels pass validation; the encoder
// downstream tolerates unknown levels.
//
// On success it returns the row to feed the pipeline. On failure it returns
// one FieldError per offending field.
func (s *Schema) Validate(payload map[string]any) (Row, []FieldError) {
	var errs []FieldError
	row := make(Row, len(s.Fields))

	for _, f := range s.Fields {
		raw, ok := payload[f.Name]
		if !ok {
			errs = append(errs, FieldError{Field: f.Name, Reason: "missing required field"})
			continue
		}
		v, err := toNumber(raw)
		if err != nil {
			errs = append(errs, FieldError{Field: f.Name, Reason: err.Error()})
			continue
		}
		row[f.Name] = v
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return row, nil
}

func toNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("must be a finite number")
		}
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		return f, nil
	default:
		return 0, fmt.Errorf("must be a number, got %T", raw)
	}
}

// columns is the minimal view of a training table the schema needs.
type columns interface {
	Column(name string) ([]float64, bool)
}

// FromTable declares the schema of a training table: the named numeric fields
// as-is, and the named categorical fields with their observed non-missing
// levels in ascending order.
func FromTable(tbl columns, numeric []string, categorical []string) (*Schema, error) {
	s := &Schema{}

	for _, name := range numeric {
		if _, ok := tbl.Column(name); !ok {
			return nil, xerrors.New("numeric feature not in dataset: " + name)
		}
		s.Fields = append(s.Fields, Field{Name: name, Kind: Numeric})
	}

	for _, name := range categorical {
		col, ok := tbl.Column(name)
		if !ok {
			return nil, xerrors.New("categorical feature not in dataset: " + name)
		}
		seen := map[float64]struct{}{}
		levels := []float64{}
		for _, v := range col {
			if math.IsNaN(v) {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			levels = append(levels, v)
		}
		if len(levels) == 0 {
			return nil, xerrors.New("categorical feature has no observed levels: " + name)
		}
		sort.Float64s(levels)
		s.Fields = append(s.Fields, Field{Name: name, Kind: Categorical, Levels: levels})
	}

	return s, nil
}

// Save writes the schema as JSON. The write is atomic: a partially written
// schema never becomes visible under path.
func (s *Schema) Save(path string) error {
	buf, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return xerrors.Wrap(err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return xerrors.Wrap(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return xerrors.Wrap(err)
	}
	return nil
}

// Load reads a schema written by Save.
func Load(path string) (*Schema, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	s := &Schema{}
	if err := json.Unmarshal(buf, s); err != nil {
		return nil, xerrors.WrapWithNote("broken schema file: "+path, err)
	}
	if len(s.Fields) == 0 {
		return nil, xerrors.New("schema file declares no fields: " + path)
	}
	return s, nil
}

// FormatLevel renders a category code the way levels are reported in errors
// and logs.
func FormatLevel(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
