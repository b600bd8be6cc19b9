// Package shutdown collects resources that need orderly teardown.
//
// Resources opt in by implementing Closeable; the stack closes them in
// reverse registration order so consumers stop before the connections
// they read from.
package shutdown

import (
	"context"
	"log/slog"
)

// Closeable is the capability interface for resources that participate in
// orderly shutdown. Optional resources implement it explicitly; there is no
// reflection-based "close if it looks closeable" fallback.
type Closeable interface {
	Close(ctx context.Context) error
}

// CloseFunc adapts a function to the Closeable interface.
type CloseFunc func(ctx context.Context) error

func (f CloseFunc) Close(ctx context.Context) error { return f(ctx) }

// Stack closes registered resources in LIFO order.
type Stack struct {
	names     []string
	resources []Closeable
}

func NewStack() *Stack {
	return &Stack{}
}

// Register adds a named resource to the stack. Nil resources are ignored.
func (s *Stack) Register(name string, c Closeable) {
	if c == nil {
		return
	}
	s.names = append(s.names, name)
	s.resources = append(s.resources, c)
}

// Close tears down every registered resource, most recent first. Errors are
// logged, not returned, so one failing resource never blocks the rest.
func (s *Stack) Close(ctx context.Context, log *slog.Logger) {
	for i := len(s.resources) - 1; i >= 0; i-- {
		if err := s.resources[i].Close(ctx); err != nil {
			log.Error("failed to close resource", "resource", s.names[i], "error", err)
			continue
		}
		log.Info("closed resource", "resource", s.names[i])
	}
}
