// Package telemetry emits best-effort observability events. Recording an
// event never blocks and never fails from the caller's perspective: delivery
// problems are logged locally and swallowed.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names emitted by the service layer.
const (
	EventURLShortened = "url.shortened"
	EventURLResolved  = "url.resolved"
	EventURLLookedUp  = "url.looked_up"
	EventURLsListed   = "urls.listed"
	EventOpFailed     = "operation.failed"
)

// Event describes a single occurrence in the URL shortening lifecycle.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ShortCode   string    `json:"short_code,omitempty"`
	OriginalURL string    `json:"original_url,omitempty"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent creates an event with a fresh ID and the current timestamp.
func NewEvent(name string) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		OccurredAt: time.Now().UTC(),
	}
}

// Sink receives events. Implementations must not block the caller and must
// not surface delivery failures.
type Sink interface {
	Record(event Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Record(Event) {}

const (
	defaultBufferSize  = 256
	defaultSendTimeout = 5 * time.Second
)

// HTTPSink ships events to an external collector as JSON over HTTP. Events
// are buffered and delivered by a background worker; when the buffer is full
// new events are dropped rather than blocking the caller.
type HTTPSink struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewHTTPSink creates a sink posting events to endpoint and starts its
// delivery worker. Close must be called to flush buffered events.
func NewHTTPSink(endpoint string, bufferSize int, logger *slog.Logger) *HTTPSink {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	s := &HTTPSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultSendTimeout},
		logger:   logger,
		events:   make(chan Event, bufferSize),
		done:     make(chan struct{}),
	}

	go s.run()

	return s
}

// Record enqueues the event for delivery. It never blocks: if the buffer is
// full the event is dropped with a local log note.
func (s *HTTPSink) Record(event Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Debug("telemetry buffer full, event dropped",
			slog.String("event_id", event.ID),
			slog.String("event_name", event.Name),
		)
	}
}

// Close stops accepting events, flushes the buffer and waits for the worker
// to finish.
func (s *HTTPSink) Close() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
	<-s.done
}

func (s *HTTPSink) run() {
	defer close(s.done)

	for event := range s.events {
		if err := s.send(event); err != nil {
			s.logger.Debug("failed to ship telemetry event",
				slog.String("event_id", event.ID),
				slog.String("event_name", event.Name),
				slog.Any("err", err),
			)
		}
	}
}

func (s *HTTPSink) send(event Event) error {
	const op = "telemetry.HTTPSink.send"

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal event: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to ship event: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: collector responded with status %d", op, resp.StatusCode)
	}

	return nil
}

var (
	_ Sink = (*HTTPSink)(nil)
	_ Sink = Nop{}
)
