package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/api/metrics"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

type memoryActivityRepo struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
	err    error
}

func (r *memoryActivityRepo) InsertActivity(_ context.Context, e domain.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *memoryActivityRepo) all() []domain.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ActivityEvent(nil), r.events...)
}

func event(subject string, n int) domain.ActivityEvent {
	return domain.ActivityEvent{
		ActorUserID:   "admin-1",
		SubjectUserID: subject,
		Action:        domain.ActionRecordUpdate,
		ResourceID:    strconv.Itoa(n),
		Impersonated:  true,
	}
}

func TestDispatcher_StopDrainsInOrderPerSubject(t *testing.T) {
	repo := &memoryActivityRepo{}
	d := NewDispatcher(3, repo, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 50; i++ {
		d.Enqueue(event("user-1", i))
		d.Enqueue(event("user-2", i))
	}
	d.Stop()

	got := repo.all()
	if len(got) != 100 {
		t.Fatalf("expected 100 persisted events, got %d", len(got))
	}
	next := map[string]int{}
	for _, e := range got {
		if e.ResourceID != strconv.Itoa(next[e.SubjectUserID]) {
			t.Fatalf("out of order for %s: got %s, want %d", e.SubjectUserID, e.ResourceID, next[e.SubjectUserID])
		}
		next[e.SubjectUserID]++
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	repo := &memoryActivityRepo{}
	d := NewDispatcher(1, repo, zerolog.Nop())
	dropped := metrics.ActivityEventsTotal.WithLabelValues("dropped")
	before := testutil.ToFloat64(dropped)

	// Workers are not started, so the buffer fills up.
	for i := 0; i < channelBuffer+2; i++ {
		d.Enqueue(event("user-1", i))
	}

	if got := testutil.ToFloat64(dropped) - before; got != 2 {
		t.Fatalf("expected 2 dropped events, got %v", got)
	}
}

func TestDispatcher_EnqueueAfterStopIsDropped(t *testing.T) {
	repo := &memoryActivityRepo{}
	d := NewDispatcher(2, repo, zerolog.Nop())
	d.Start(context.Background())
	d.Stop()
	d.Stop()

	d.Enqueue(event("user-1", 0))
	if len(repo.all()) != 0 {
		t.Fatal("expected nothing persisted after stop")
	}
}

func TestDispatcher_FailedInsertIsCounted(t *testing.T) {
	repo := &memoryActivityRepo{err: errors.New("db down")}
	failed := metrics.ActivityEventsTotal.WithLabelValues("failed")
	before := testutil.ToFloat64(failed)

	d := NewDispatcher(1, repo, zerolog.Nop())
	d.Start(context.Background())
	d.Enqueue(event("user-1", 0))
	d.Stop()

	if got := testutil.ToFloat64(failed) - before; got != 1 {
		t.Fatalf("expected 1 failed event, got %v", got)
	}
}

func TestDispatcher_ShardIsStable(t *testing.T) {
	d := NewDispatcher(0, &memoryActivityRepo{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	if d.shardIndex("user-1") != d.shardIndex("user-1") {
		t.Fatal("shard must be deterministic")
	}
}
