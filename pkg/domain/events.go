package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventApply      EventType = "apply"
	EventApplyError EventType = "apply_error"
	EventTransform  EventType = "transform"
	EventLineage    EventType = "lineage"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	EntityID  int       `json:"entity_id"`
}

// ApplyEvent describes a finished Apply.
type ApplyEvent struct {
	EventBase
	Operation *Operation `json:"-"`
	Transient bool       `json:"transient"`
	Committed bool       `json:"committed"`
	Propagate bool       `json:"propagate"`
	Revision  int        `json:"revision"`
	Err       error      `json:"-"`
}

// TransformEvent describes one transform step performed while integrating a remote operation.
type TransformEvent struct {
	EventBase
	Local  *Operation     `json:"-"`
	Remote *Operation     `json:"-"`
	Result *TransformPair `json:"-"`
}

// LineageEvent records that Successor supersedes Superseded on the outer path.
// Apply returns it instead of touching the superseded operation.
type LineageEvent struct {
	EntityID   int
	Superseded *Operation
	Successor  *Operation
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnApply      func(context.Context, *ApplyEvent)
	OnApplyError func(context.Context, *ApplyEvent)
	OnTransform  func(context.Context, *TransformEvent)
	OnLineage    func(context.Context, *LineageEvent)
}

// ChainHooks combines hook sets; callbacks run in argument order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		out.OnApply = chain(out.OnApply, h.OnApply)
		out.OnApplyError = chain(out.OnApplyError, h.OnApplyError)
		out.OnTransform = chain(out.OnTransform, h.OnTransform)
		out.OnLineage = chain(out.OnLineage, h.OnLineage)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
