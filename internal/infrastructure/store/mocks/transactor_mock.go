package mocks

import (
	"context"

	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

// MockTransactor runs the callback directly and counts units of work.
type MockTransactor struct {
	Calls int
	Err   error
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	if m.Err != nil {
		return m.Err
	}
	return fn(ctx)
}

var _ store.Transactor = (*MockTransactor)(nil)
