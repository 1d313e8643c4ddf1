package service

import (
	"context"
	"errors"
	"log"
)

// ProducerEvent is one raw event from a hardware producer: the badge
// reader or the camera/QR decoder.  The union is closed; drivers submit
// events instead of attaching callbacks, which makes ordering and
// delivery explicit.
type ProducerEvent interface {
	producerEvent()
}

// BadgeScanned is emitted by the badge-reader driver.  Opens a session;
// a re-scan while one is open closes it and opens a new one.
type BadgeScanned struct {
	BadgeCode string
}

// EndRequested is emitted when the operator explicitly signs off.
type EndRequested struct {
	SessionID string
}

// CodeCaptured is emitted by the QR decoder for one captured code.
type CodeCaptured struct {
	SessionID string
	Payload   string
}

func (BadgeScanned) producerEvent() {}
func (EndRequested) producerEvent() {}
func (CodeCaptured) producerEvent() {}

var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Dispatcher consumes producer events on a single goroutine and applies
// them to the session and scan services in submission order.  Exactly one
// consumer loop runs per dispatcher; duplicate rejections and
// session-gating failures are routine and only logged.
type Dispatcher struct {
	sessions *SessionService
	scans    *ScanService
	logger   *log.Logger
	events   chan ProducerEvent
	done     chan struct{}
}

func NewDispatcher(sessions *SessionService, scans *ScanService, buffer int, logger *log.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		sessions: sessions,
		scans:    scans,
		logger:   logger,
		events:   make(chan ProducerEvent, buffer),
		done:     make(chan struct{}),
	}
}

// Submit enqueues an event for processing.  Blocks while the buffer is
// full; fails once the dispatcher has shut down or ctx expires.
func (d *Dispatcher) Submit(ctx context.Context, ev ProducerEvent) error {
	select {
	case <-d.done:
		return ErrDispatcherClosed
	default:
	}

	select {
	case d.events <- ev:
		return nil
	case <-d.done:
		return ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes events until ctx is cancelled.  Call from exactly one
// goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			d.apply(ctx, ev)
		}
	}
}

func (d *Dispatcher) apply(ctx context.Context, ev ProducerEvent) {
	switch e := ev.(type) {
	case BadgeScanned:
		if _, err := d.sessions.Create(ctx, e.BadgeCode); err != nil {
			d.logger.Printf("dispatcher: badge scan rejected: %v", err)
		}
	case EndRequested:
		if _, err := d.sessions.End(ctx, e.SessionID); err != nil {
			d.logger.Printf("dispatcher: end rejected: %v", err)
		}
	case CodeCaptured:
		if _, err := d.scans.Ingest(ctx, e.SessionID, e.Payload); err != nil {
			d.logger.Printf("dispatcher: scan rejected: %v", err)
		}
	default:
		d.logger.Printf("dispatcher: unknown event %T", ev)
	}
}
