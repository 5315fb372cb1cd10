package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/api/metrics"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher persists audit events off the request path. Events are routed to
// a fixed set of workers by hashing the subject user id, so one user's events
// are written in the order they were enqueued.
type Dispatcher struct {
	workers []chan domain.ActivityEvent
	repo    ports.ActivityRepository
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.ActivityRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.ActivityEvent, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ActivityEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or
// after Stop has drained their channel.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Stop rejects further events and waits for queued ones to be written.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Enqueue never blocks. When the worker's buffer is full, or the dispatcher
// is stopped, the event is dropped and counted.
func (d *Dispatcher) Enqueue(event domain.ActivityEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(event, "dispatcher stopped")
		return
	}

	idx := d.shardIndex(event.SubjectUserID)
	select {
	case d.workers[idx] <- event:
		metrics.ActivityQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.drop(event, "queue full")
	}
}

func (d *Dispatcher) drop(event domain.ActivityEvent, reason string) {
	metrics.ActivityEventsTotal.WithLabelValues("dropped").Inc()
	d.log.Warn().
		Str("action", event.Action).
		Str("actor_user_id", event.ActorUserID).
		Str("subject_user_id", event.SubjectUserID).
		Str("reason", reason).
		Msg("activity event dropped")
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ActivityEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.ActivityQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.repo.InsertActivity(ctx, event); err != nil {
				metrics.ActivityEventsTotal.WithLabelValues("failed").Inc()
				d.log.Error().Err(err).
					Str("action", event.Action).
					Str("subject_user_id", event.SubjectUserID).
					Int("worker_id", id).
					Msg("activity persist failed")
				continue
			}
			metrics.ActivityEventsTotal.WithLabelValues("persisted").Inc()
		}
	}
}
