package activitymap

import (
	"context"
	"strings"
	"time"

	identity "github.com/goliatone/go-identity"
)

const (
	defaultChannel    = "identity"
	defaultObjectType = "user"
	defaultActorID    = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
}

// Normalize converts an identity.ActivityEvent into the normalized shape.
// The actor falls back to the subject user, then to the configured default.
func Normalize(event identity.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	objectType := options.objectType
	if strings.TrimSpace(event.UserID) == "" {
		objectType = ""
	}

	return Normalized{
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.ActorID),
			strings.TrimSpace(event.UserID),
			options.actorFallback,
		),
		Verb:       string(event.EventType),
		ObjectType: objectType,
		ObjectID:   strings.TrimSpace(event.UserID),
		Channel:    options.channel,
		Metadata:   cloneMap(event.Metadata),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when neither actor nor user is known.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// Sink returns an identity.ActivitySink that normalizes every event before
// handing it to fn.
func Sink(fn func(ctx context.Context, record Normalized) error, opts ...Option) identity.ActivitySink {
	return identity.ActivitySinkFunc(func(ctx context.Context, event identity.ActivityEvent) error {
		if fn == nil {
			return nil
		}
		return fn(ctx, Normalize(event, opts...))
	})
}

// LogSink writes normalized events to logger at info level
func LogSink(logger identity.Logger, opts ...Option) identity.ActivitySink {
	return Sink(func(_ context.Context, r Normalized) error {
		if logger == nil {
			return nil
		}
		logger.Info("activity",
			"verb", r.Verb,
			"actor_id", r.ActorID,
			"object_id", r.ObjectID,
			"channel", r.Channel,
			"metadata", r.Metadata,
		)
		return nil
	}, opts...)
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
