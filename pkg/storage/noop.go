package storage

import "context"

// Noop drops every state.
type Noop struct{}

func (Noop) Save(context.Context, string, []byte) error   { return nil }
func (Noop) Load(context.Context, string) ([]byte, error) { return nil, ErrNotFound }
func (Noop) Close() error                                 { return nil }
