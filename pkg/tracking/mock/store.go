package mocks

import (
	"context"
	"errors"

	kmock "github.com/kardialab/kardia/pkg/internal/mocks"
	"github.com/kardialab/kardia/pkg/tracking"
)

type Store struct {
	Impl struct {
		Record func(context.Context, tracking.Run) error
		List   func(context.Context) ([]tracking.Run, error)
		Close  func() error
	}
	Calls struct {
		Record kmock.CallLog[struct{ Run tracking.Run }]
		List   kmock.CallLog[struct{}]
		Close  kmock.CallLog[struct{}]
	}
}

func NewStore() *Store {
	return &Store{}
}

var _ tracking.Store = &Store{}

func (s *Store) Record(ctx context.Context, run tracking.Run) error {
	s.Calls.Record = append(s.Calls.Record, struct{ Run tracking.Run }{Run: run})
	if s.Impl.Record != nil {
		return s.Impl.Record(ctx, run)
	}
	panic(errors.New("it should not be called"))
}

func (s *Store) List(ctx context.Context) ([]tracking.Run, error) {
	s.Calls.List = append(s.Calls.List, struct{}{})
	if s.Impl.List != nil {
		return s.Impl.List(ctx)
	}
	panic(errors.New("it should not be called"))
}

func (s *Store) Close() error {
	s.Calls.Close = append(s.Calls.Close, struct{}{})
	if s.Impl.Close != nil {
		return s.Impl.Close()
	}
	panic(errors.New("it should not be called"))
}
