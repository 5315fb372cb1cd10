package ports

import "github.com/vitaltrack/health-tracker/internal/core/domain"

// ActivitySink accepts audit events for asynchronous persistence. Enqueue must
// not block the request path.
type ActivitySink interface {
	Enqueue(event domain.ActivityEvent)
}

// NopActivitySink discards every event.
type NopActivitySink struct{}

func (NopActivitySink) Enqueue(domain.ActivityEvent) {}
