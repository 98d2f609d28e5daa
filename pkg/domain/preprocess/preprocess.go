// Package preprocess turns raw feature rows into the numeric matrix the
// estimators consume.
//
// Numeric fields are imputed with the column median and scaled to zero mean /
// unit variance. Categorical fields are imputed with the most frequent level
// and expanded to one-hot indicator columns over the levels recorded in the
// schema. The output column order is fixed: numeric fields in schema order,
// then the one-hot blocks of the categorical fields in schema order. The same
// order is produced at fit time and at every later application, which is what
// keeps training and serving free of skew.
package preprocess

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/kardialab/kardia/pkg/domain/schema"
	"github.com/kardialab/kardia/pkg/xerrors"
)

// MedianImputer fills missing numeric values with per-column medians.
type MedianImputer struct {
	Fill []float64
}

// StandardScaler rescales each numeric column to zero mean / unit variance.
// Columns with zero spread are left centred but unscaled.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// MostFrequentImputer fills missing categorical values with the level seen
// most often at fit time. Ties break towards the smallest level, matching the
// trainer's reference behavior.
type MostFrequentImputer struct {
	Fill []float64
}

// OneHotEncoder expands each categorical column into one indicator column per
// recorded level. A value not among the levels encodes as all zeros rather
// than failing, so unseen categories at serving time degrade gracefully.
type OneHotEncoder struct {
	Levels [][]float64
}

// ColumnTransformer composes the numeric and categorical paths per the schema.
// All fields are exported so a fitted transformer can travel inside the
// serialized pipeline artifact.
type ColumnTransformer struct {
	NumericNames     []string
	CategoricalNames []string

	NumImputer *MedianImputer
	Scaler     *StandardScaler
	CatImputer *MostFrequentImputer
	Encoder    *OneHotEncoder

	fitted bool
}

// columns is the view of a training table the transformer reads.
type columns interface {
	Column(name string) ([]float64, bool)
	NumRows() int
}

// FromSchema configures an unfitted transformer: field names and one-hot
// levels come from the schema; the imputation and scaling statistics are
// learned later by Fit.
func FromSchema(s *schema.Schema) *ColumnTransformer {
	ct := &ColumnTransformer{
		NumImputer: &MedianImputer{},
		Scaler:     &StandardScaler{},
		CatImputer: &MostFrequentImputer{},
		Encoder:    &OneHotEncoder{},
	}
	for _, f := range s.Fields {
		switch f.Kind {
		case schema.Numeric:
			ct.NumericNames = append(ct.NumericNames, f.Name)
		case schema.Categorical:
			ct.CategoricalNames = append(ct.CategoricalNames, f.Name)
			levels := append([]float64(nil), f.Levels...)
			ct.Encoder.Levels = append(ct.Encoder.Levels, levels)
		}
	}
	return ct
}

// NumFeatures is the width of the transformed matrix.
func (ct *ColumnTransformer) NumFeatures() int {
	n := len(ct.NumericNames)
	for _, levels := range ct.Encoder.Levels {
		n += len(levels)
	}
	return n
}

// Fit learns medians, scaling statistics and most-frequent levels from the
// training table. It must be called before Transform.
func (ct *ColumnTransformer) Fit(tbl columns) error {
	ct.NumImputer.Fill = make([]float64, len(ct.NumericNames))
	ct.Scaler.Mean = make([]float64, len(ct.NumericNames))
	ct.Scaler.Std = make([]float64, len(ct.NumericNames))

	for j, name := range ct.NumericNames {
		col, ok := tbl.Column(name)
		if !ok {
			return xerrors.New("numeric column not in table: " + name)
		}
		med, err := median(col)
		if err != nil {
			return xerrors.WrapWithNote("column "+name, err)
		}
		ct.NumImputer.Fill[j] = med

		imputed := make([]float64, len(col))
		for i, v := range col {
			if math.IsNaN(v) {
				v = med
			}
			imputed[i] = v
		}
		ct.Scaler.Mean[j] = stat.Mean(imputed, nil)
		ct.Scaler.Std[j] = stat.PopStdDev(imputed, nil)
		if ct.Scaler.Std[j] == 0 {
			ct.Scaler.Std[j] = 1
		}
	}

	ct.CatImputer.Fill = make([]float64, len(ct.CategoricalNames))
	for j, name := range ct.CategoricalNames {
		col, ok := tbl.Column(name)
		if !ok {
			return xerrors.New("categorical column not in table: " + name)
		}
		mode, err := mostFrequent(col)
		if err != nil {
			return xerrors.WrapWithNote("column "+name, err)
		}
		ct.CatImputer.Fill[j] = mode
	}

	ct.fitted = true
	return nil
}

// Transform maps the table onto the fitted feature matrix.
func (ct *ColumnTransformer) Transform(tbl columns) (*mat.Dense, error) {
	if !ct.fitted && ct.Scaler.Mean == nil {
		return nil, xerrors.New("transformer is not fitted")
	}

	n := tbl.NumRows()
	out := mat.NewDense(n, ct.NumFeatures(), nil)

	for j, name := range ct.NumericNames {
		col, ok := tbl.Column(name)
		if !ok {
			return nil, xerrors.New("numeric column not in table: " + name)
		}
		for i, v := range col {
			out.Set(i, j, ct.scaleNumeric(j, v))
		}
	}

	offset := len(ct.NumericNames)
	for j, name := range ct.CategoricalNames {
		col, ok := tbl.Column(name)
		if !ok {
			return nil, xerrors.New("categorical column not in table: " + name)
		}
		levels := ct.Encoder.Levels[j]
		for i, v := range col {
			if math.IsNaN(v) {
				v = ct.CatImputer.Fill[j]
			}
			for l, level := range levels {
				if v == level {
					out.Set(i, offset+l, 1)
					break
				}
			}
		}
		offset += len(levels)
	}

	return out, nil
}

// TransformRows is the serving-side counterpart of Transform, applied to
// validated request rows.
func (ct *ColumnTransformer) TransformRows(rows []schema.Row) (*mat.Dense, error) {
	if ct.Scaler.Mean == nil {
		return nil, xerrors.New("transformer is not fitted")
	}

	out := mat.NewDense(len(rows), ct.NumFeatures(), nil)
	for i, row := range rows {
		for j, name := range ct.NumericNames {
			v, ok := row[name]
			if !ok {
				return nil, xerrors.New("row is missing numeric field: " + name)
			}
			out.Set(i, j, ct.scaleNumeric(j, v))
		}

		offset := len(ct.NumericNames)
		for j, name := range ct.CategoricalNames {
			v, ok := row[name]
			if !ok {
				return nil, xerrors.New("row is missing categorical field: " + name)
			}
			if math.IsNaN(v) {
				v = ct.CatImputer.Fill[j]
			}
			levels := ct.Encoder.Levels[j]
			for l, level := range levels {
				if v == level {
					out.Set(i, offset+l, 1)
					break
				}
			}
			offset += len(levels)
		}
	}
	return out, nil
}

func (ct *ColumnTransformer) scaleNumeric(j int, v float64) float64 {
	if math.IsNaN(v) {
		v = ct.NumImputer.Fill[j]
	}
	return (v - ct.Scaler.Mean[j]) / ct.Scaler.Std[j]
}

// median of the non-missing values. Even-sized samples average the middle two.
func median(col []float64) (float64, error) {
	vals := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, xerrors.New("no observed values")
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid], nil
	}
	return (vals[mid-1] + vals[mid]) / 2, nil
}

// mostFrequent of the non-missing values; ties break towards the smallest.
func mostFrequent(col []float64) (float64, error) {
	counts := map[float64]int{}
	for _, v := range col {
		if !math.IsNaN(v) {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return 0, xerrors.New("no observed values")
	}
	levels := make([]float64, 0, len(counts))
	for v := range counts {
		levels = append(levels, v)
	}
	sort.Float64s(levels)

	best := levels[0]
	for _, v := range levels[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best, nil
}
