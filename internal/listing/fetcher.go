package listing

import (
	"context"
	"sync/atomic"
)

// Query is one list request derived from the view state.
type Query struct {
	Filters  FilterState
	Sort     SortState
	Page     int
	PageSize int
}

// Page is the {results, count} envelope of a list endpoint.
type Page[T any] struct {
	Results []T `json:"results"`
	Count   int `json:"count"`
}

type Fetcher[T any] interface {
	Fetch(ctx context.Context, q Query) (Page[T], error)
}

type FetchFunc[T any] func(ctx context.Context, q Query) (Page[T], error)

func (f FetchFunc[T]) Fetch(ctx context.Context, q Query) (Page[T], error) {
	return f(ctx, q)
}

// Sequencer issues monotonically increasing request tickets. A response
// is applied only when its ticket is still the latest one issued.
type Sequencer interface {
	Next(ctx context.Context) (uint64, error)
	Latest(ctx context.Context) (uint64, error)
}

// MemorySequencer is an in-process Sequencer.
type MemorySequencer struct {
	n atomic.Uint64
}

func (s *MemorySequencer) Next(context.Context) (uint64, error) {
	return s.n.Add(1), nil
}

func (s *MemorySequencer) Latest(context.Context) (uint64, error) {
	return s.n.Load(), nil
}
