package mocks

import (
	"errors"

	"github.com/kardialab/kardia/pkg/domain/schema"
	kmock "github.com/kardialab/kardia/pkg/internal/mocks"
	"github.com/kardialab/kardia/pkg/serving"
)

type Model struct {
	Impl struct {
		Schema    func() *schema.Schema
		Predict   func([]schema.Row) ([]int, []float64, error)
		Family    func() string
		Threshold func() float64
	}
	Calls struct {
		Schema    kmock.CallLog[struct{}]
		Predict   kmock.CallLog[struct{ Rows []schema.Row }]
		Family    kmock.CallLog[struct{}]
		Threshold kmock.CallLog[struct{}]
	}
}

func NewModel() *Model {
	return &Model{}
}

var _ serving.Model = &Model{}

func (m *Model) Schema() *schema.Schema {
	m.Calls.Schema = append(m.Calls.Schema, struct{}{})
	if m.Impl.Schema != nil {
		return m.Impl.Schema()
	}
	panic(errors.New("it should not be called"))
}

func (m *Model) Predict(rows []schema.Row) ([]int, []float64, error) {
	m.Calls.Predict = append(m.Calls.Predict, struct{ Rows []schema.Row }{Rows: rows})
	if m.Impl.Predict != nil {
		return m.Impl.Predict(rows)
	}
	panic(errors.New("it should not be called"))
}

func (m *Model) Family() string {
	m.Calls.Family = append(m.Calls.Family, struct{}{})
	if m.Impl.Family != nil {
		return m.Impl.Family()
	}
	panic(errors.New("it should not be called"))
}

func (m *Model) Threshold() float64 {
	m.Calls.Threshold = append(m.Calls.Threshold, struct{}{})
	if m.Impl.Threshold != nil {
		return m.Impl.Threshold()
	}
	panic(errors.New("it should not be called"))
}
