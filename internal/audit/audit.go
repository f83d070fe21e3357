// Package audit records the cascade's degraded-mode decisions so a reviewer
// can distinguish "confirmed because the evidence was clear" from "confirmed
// because confirmation failed".
package audit

import (
	"context"
	"log"
	"sync"
	"time"
)

// Kind classifies an audit event.
type Kind string

const (
	// KindFailsafeConfirm records a timeout/unavailable confirmation that was
	// resolved to confirmed with zero confidence.
	KindFailsafeConfirm Kind = "failsafe_confirm"
	// KindUnparseableConfirmation records confirmation text that matched no
	// lexical marker and was resolved to denied at low confidence.
	KindUnparseableConfirmation Kind = "unparseable_confirmation"
	// KindMalformedLogRow records a detection-log row skipped during merge.
	KindMalformedLogRow Kind = "malformed_log_row"
	// KindConfigMissing records a missing config file replaced by defaults.
	KindConfigMissing Kind = "config_missing"
)

// Event is one audit record.
type Event struct {
	Time      time.Time `json:"time"`
	Kind      Kind      `json:"kind"`
	Category  string    `json:"category,omitempty"`
	SampleSec float64   `json:"sample_sec,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Sink consumes audit events (file, webhook, etc.).
type Sink interface {
	Name() string
	Deliver(context.Context, *Event) error
	Close(context.Context) error
}

// Emitter buffers and delivers audit events to sinks without blocking the
// analysis path. Events are dropped, and counted, when the queue is full.
type Emitter struct {
	queue chan *Event
	sinks []Sink

	mu       sync.RWMutex
	countMu  sync.Mutex
	enqueued uint64
	dropped  uint64
	closed   bool
	wg       sync.WaitGroup
	shutdown time.Duration
}

// EmitterConfig controls queue sizing and shutdown behavior.
type EmitterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
}

// NewEmitter starts background workers delivering events to sinks.
func NewEmitter(cfg EmitterConfig, sinks []Sink) *Emitter {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 2 * time.Second
	}

	em := &Emitter{
		queue:    make(chan *Event, queueSize),
		sinks:    sinks,
		shutdown: shutdown,
	}

	for i := 0; i < workers; i++ {
		em.wg.Add(1)
		go em.worker()
	}

	return em
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for ev := range e.queue {
		for _, s := range e.sinks {
			if err := s.Deliver(context.Background(), ev); err != nil {
				log.Printf("audit: sink %s deliver error: %v", s.Name(), err)
			}
		}
	}
}

// Record enqueues an event without blocking. A nil emitter is a no-op, so
// callers never need to branch on whether auditing is configured.
func (e *Emitter) Record(ev Event) {
	if e == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.countMu.Lock()
		e.dropped++
		e.countMu.Unlock()
		return
	}

	select {
	case e.queue <- &ev:
		e.countMu.Lock()
		e.enqueued++
		e.countMu.Unlock()
	default:
		e.countMu.Lock()
		e.dropped++
		e.countMu.Unlock()
	}
}

// Enqueued returns the number of accepted events.
func (e *Emitter) Enqueued() uint64 {
	if e == nil {
		return 0
	}
	e.countMu.Lock()
	defer e.countMu.Unlock()
	return e.enqueued
}

// Dropped returns the number of rejected events.
func (e *Emitter) Dropped() uint64 {
	if e == nil {
		return 0
	}
	e.countMu.Lock()
	defer e.countMu.Unlock()
	return e.dropped
}

// Close stops accepting events and waits briefly for the queue to drain.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	waitCtx := ctx
	if waitCtx == nil {
		waitCtx = context.Background()
	}
	var cancel context.CancelFunc
	waitCtx, cancel = context.WithTimeout(waitCtx, e.shutdown)
	defer cancel()

	select {
	case <-done:
	case <-waitCtx.Done():
	}

	for _, s := range e.sinks {
		if err := s.Close(waitCtx); err != nil {
			log.Printf("audit: sink %s close error: %v", s.Name(), err)
		}
	}
}
