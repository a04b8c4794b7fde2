package identity

import (
	"context"
	"time"
)

// ActivityEventType names an identity lifecycle or login event
type ActivityEventType string

const (
	ActivityEventUserCreated  ActivityEventType = "user.created"
	ActivityEventUserUpdated  ActivityEventType = "user.updated"
	ActivityEventUserDeleted  ActivityEventType = "user.deleted"
	ActivityEventCapabilities ActivityEventType = "user.capabilities.changed"
	ActivityEventLoginSuccess ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure ActivityEventType = "auth.login.failure"
	ActivityEventPolicyFault  ActivityEventType = "policy.fault"
)

// ActivityEvent is emitted after the change it describes is committed.
// ActorID is empty for anonymous callers such as self registration.
type ActivityEvent struct {
	EventType  ActivityEventType
	ActorID    string
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives activity events. Errors are logged and never fail
// the operation that produced the event.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// emitActivity records the event and only logs sink failures
func emitActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		normalizeLogger(logger).Warn("activity sink failed", "event", event.EventType, "error", err)
	}
}
