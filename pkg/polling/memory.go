package polling

import (
	"context"
	"sync"
)

// FieldSource supplies the current formatted value of a device field; a
// real deployment wires this to the automation layer's data server.
type FieldSource func(moniker, field string) (formatted string, valid bool)

// MemoryService is an in-process Service for single-process deployments.
type MemoryService struct {
	source FieldSource

	mu sync.Mutex
	last map[Subscription]Value
}

// NewMemoryService returns a Service that reads fields via source.
func NewMemoryService(source FieldSource) *MemoryService {
	return &MemoryService{source: source, last: make(map[Subscription]Value)}
}

func (s *MemoryService) RegisterField(ctx context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok:= s.last[sub]; !ok {
		s.last[sub] = Value{}
	}
	return nil
}

func (s *MemoryService) UpdateValue(ctx context.Context, sub Subscription) (Value, bool, error) {
	formatted, valid:= s.source(sub.Moniker, sub.Field)
	next:= Value{Formatted: formatted, Valid: valid}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had:= s.last[sub]
	s.last[sub] = next
	changed:= !had || prev != next
	return next, changed, nil
}
