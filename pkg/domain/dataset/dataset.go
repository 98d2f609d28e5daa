// Package dataset loads the training CSV into an in-memory column table and
// provides the index-based splits the trainer needs. A Table is immutable once
// loaded; training only ever reads it.
package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/kardialab/kardia/pkg/xerrors"
)

// Table is a row-per-patient feature table. Missing cells are NaN.
type Table struct {
	names []string
	cols  map[string][]float64
	nrows int
}

// Load reads a headered CSV file. Empty cells, "?", "NA" and "NaN" are
// treated as missing. Any other cell that does not parse as a number is an
// error: the trainer fails fast on a malformed dataset rather than training
// on silently mangled data.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	defer f.Close()

	return Read(f)
}

// Read is Load for an already-open CSV stream.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, xerrors.WrapWithNote("cannot read CSV header", err)
	}

	tbl := &Table{
		names: header,
		cols:  make(map[string][]float64, len(header)),
	}
	for _, name := range header {
		tbl.cols[name] = []float64{}
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xerrors.Wrap(err)
		}
		for i, cell := range rec {
			v, err := parseCell(cell)
			if err != nil {
				return nil, xerrors.WrapWithNote(
					"malformed value in column "+header[i], err,
				)
			}
			tbl.cols[header[i]] = append(tbl.cols[header[i]], v)
		}
		tbl.nrows++
	}

	if tbl.nrows == 0 {
		return nil, xerrors.New("dataset is empty")
	}
	return tbl, nil
}

func parseCell(cell string) (float64, error) {
	switch cell {
	case "", "?", "NA", "NaN":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

func (t *Table) NumRows() int {
	return t.nrows
}

func (t *Table) ColumnNames() []string {
	return t.names
}

// Column returns the named column, or false when the table has no such column.
func (t *Table) Column(name string) ([]float64, bool) {
	col, ok := t.cols[name]
	return col, ok
}

// Label extracts the named column as binary class labels. Values must be 0 or
// 1 with no missing entries.
func (t *Table) Label(name string) ([]int, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, xerrors.New("label column not in dataset: " + name)
	}
	y := make([]int, len(col))
	for i, v := range col {
		switch v {
		case 0:
			y[i] = 0
		case 1:
			y[i] = 1
		default:
			return nil, xerrors.New(
				"label column " + name + " holds a value other than 0/1: " +
					strconv.FormatFloat(v, 'g', -1, 64),
			)
		}
	}
	return y, nil
}

// Select returns a new table holding the given subset of rows, in order.
// The source table is left untouched.
func (t *Table) Select(rows []int) *Table {
	out := &Table{
		names: t.names,
		cols:  make(map[string][]float64, len(t.names)),
		nrows: len(rows),
	}
	for name, col := range t.cols {
		sub := make([]float64, len(rows))
		for i, r := range rows {
			sub[i] = col[r]
		}
		out.cols[name] = sub
	}
	return out
}

// SelectLabels picks the labels of the given rows.
func SelectLabels(y []int, rows []int) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = y[r]
	}
	return out
}
