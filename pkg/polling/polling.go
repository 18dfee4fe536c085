// Package polling models the polling-service collaborator named here:
// register_field/update_value, consumed once per second by each session's
// field-subscription fan-in. Two backends are provided: an in-memory
// one for single-process deployments and a Redis-backed one (shared string
// keys) for fan-out across a multi-process deployment.
package polling

import "context"

// Subscription identifies one polled field by device moniker and field name.
type Subscription struct {
	Moniker string
	Field string
}

// Value is one field's last-known state.
type Value struct {
	Formatted string
	Valid bool
}

// Service is the façade a session's field-polling fan-in consumes.
type Service interface {
	// RegisterField begins tracking sub; safe to call more than once for the
	// same subscription.
	RegisterField(ctx context.Context, sub Subscription) error

	// UpdateValue re-reads sub's current value, returning the value and
	// whether it changed since the last call for this subscription.
	UpdateValue(ctx context.Context, sub Subscription) (Value, bool, error)
}
