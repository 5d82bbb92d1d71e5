// Package security implements threat detection and emergency lockdown for
// the VeriCase backend: the security event sink, the per-session address
// integrity monitor, and the kill switch state machine.
package security

import (
	"context"
	"log/slog"
	"time"

	"github.com/sndwiz/veriscase-backend/internal/models"
	"github.com/sndwiz/veriscase-backend/internal/pkg/metrics"
	"github.com/sndwiz/veriscase-backend/internal/repository"
)

// EventSink accepts security events without blocking the caller. A sink must
// never be able to fail a user-facing request: implementations log and drop
// on error.
type EventSink interface {
	Record(event *models.SecurityEvent)
}

// EventBroadcaster pushes recorded events to live subscribers (the operator
// dashboard's WebSocket feed). Optional.
type EventBroadcaster interface {
	BroadcastEvent(event *models.SecurityEvent)
}

// summaryWindow bounds the threat summary aggregation.
const summaryWindow = 30 * 24 * time.Hour

// writeTimeout bounds each store write made off the request path.
const writeTimeout = 10 * time.Second

// EventRecorder is the security event sink. Record enqueues; a single drain
// goroutine performs the store writes so the request path never waits on the
// database.
type EventRecorder struct {
	store       repository.SecurityEventStore
	log         *slog.Logger
	broadcaster EventBroadcaster
	queue       chan *models.SecurityEvent
	done        chan struct{}
}

// NewEventRecorder creates the sink and starts its drain goroutine.
// broadcaster may be nil.
func NewEventRecorder(store repository.SecurityEventStore, log *slog.Logger, broadcaster EventBroadcaster) *EventRecorder {
	r := &EventRecorder{
		store:       store,
		log:         log,
		broadcaster: broadcaster,
		queue:       make(chan *models.SecurityEvent, 256),
		done:        make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record appends one security event. Fire-and-forget: the caller continues
// immediately and write failures are logged, never surfaced. If the queue is
// full the write happens on its own goroutine instead of being dropped.
func (r *EventRecorder) Record(event *models.SecurityEvent) {
	if event == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = models.SeverityInfo
	}
	metrics.SecurityEventsTotal.WithLabelValues(event.EventType).Inc()

	select {
	case r.queue <- event:
	default:
		go r.write(event)
	}
}

// Query returns events newest-first.
func (r *EventRecorder) Query(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error) {
	return r.store.ListSecurityEvents(ctx, filter)
}

// Resolve marks an event resolved; repository.ErrNotFound when no such event.
func (r *EventRecorder) Resolve(ctx context.Context, id string) (*models.SecurityEvent, error) {
	return r.store.ResolveSecurityEvent(ctx, id)
}

// Summarize computes the threat rollup over the bounded recent window.
func (r *EventRecorder) Summarize(ctx context.Context) (*models.ThreatSummary, error) {
	return r.store.SummarizeSecurityEvents(ctx, summaryWindow)
}

// Close stops the drain goroutine after flushing queued events. Call during
// graceful shutdown; Record must not be called afterwards.
func (r *EventRecorder) Close() {
	close(r.queue)
	<-r.done
}

func (r *EventRecorder) drain() {
	defer close(r.done)
	for event := range r.queue {
		r.write(event)
	}
}

func (r *EventRecorder) write(event *models.SecurityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.store.CreateSecurityEvent(ctx, event); err != nil {
		r.log.Warn("security event write failed, dropping",
			"event_type", event.EventType, "ip", event.IPAddress, "error", err)
		return
	}
	if r.broadcaster != nil {
		r.broadcaster.BroadcastEvent(event)
	}
}
