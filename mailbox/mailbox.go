// Package mailbox serializes the effect of concurrently submitted requests on a
// shared history log. Requests are processed concurrently, but their history
// entries are committed strictly in the order the requests were admitted.
package mailbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Processor does the work for one request. It runs outside every mailbox lock,
// so slow requests never block admission of new ones.
type Processor[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Entry is one committed history record. Failed requests are recorded too,
// with Error set.
type Entry[Req, Resp any] struct {
	Seq         uint64    `json:"seq"`
	Request     Req       `json:"request"`
	Response    Resp      `json:"response"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// Failed reports whether the processor returned an error for this entry
func (e Entry[Req, Resp]) Failed() bool {
	return e.Error != ""
}

// Mailbox admits requests concurrently and commits their history in admission order
type Mailbox[Req, Resp any] struct {
	process Processor[Req, Resp]
	log     HistoryLog[Req, Resp]
	logger  zerolog.Logger
	now     func() time.Time

	// admission: sequence assignment and the commit chain
	admitMu sync.Mutex
	seq     uint64
	tail    chan struct{}

	// the single mutator of the log
	logMu sync.Mutex
}

// Option configures a Mailbox
type Option[Req, Resp any] func(*Mailbox[Req, Resp])

// WithLog sets the history backend. Defaults to an in-memory log.
func WithLog[Req, Resp any](log HistoryLog[Req, Resp]) Option[Req, Resp] {
	return func(m *Mailbox[Req, Resp]) {
		m.log = log
	}
}

// WithLogger sets the logger for admission and commit events
func WithLogger[Req, Resp any](logger zerolog.Logger) Option[Req, Resp] {
	return func(m *Mailbox[Req, Resp]) {
		m.logger = logger
	}
}

// WithClock overrides time.Now
func WithClock[Req, Resp any](now func() time.Time) Option[Req, Resp] {
	return func(m *Mailbox[Req, Resp]) {
		m.now = now
	}
}

// New creates a mailbox in front of process
func New[Req, Resp any](process Processor[Req, Resp], opts ...Option[Req, Resp]) *Mailbox[Req, Resp] {
	tail := make(chan struct{})
	close(tail)

	m := &Mailbox[Req, Resp]{
		process: process,
		logger:  zerolog.Nop(),
		now:     time.Now,
		tail:    tail,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.log == nil {
		m.log = NewMemoryLog[Req, Resp]()
	}

	return m
}

// Submit processes req and returns once its history entry has been committed.
// The processor's error is returned as-is; a failure to record the entry is
// returned only when the processor itself succeeded.
func (m *Mailbox[Req, Resp]) Submit(ctx context.Context, req Req) (Resp, error) {
	return m.SubmitAsync(ctx, req).Wait()
}

// SubmitAsync admits req and returns immediately. The returned ticket resolves
// after the entry is committed, which is never before every earlier ticket's entry.
func (m *Mailbox[Req, Resp]) SubmitAsync(ctx context.Context, req Req) *Ticket[Resp] {
	m.admitMu.Lock()
	m.seq++
	submittedAt := m.now()
	t := &Ticket[Resp]{
		seq:       m.seq,
		committed: make(chan struct{}),
		done:      make(chan struct{}),
	}
	prev := m.tail
	m.tail = t.committed
	m.admitMu.Unlock()

	m.logger.Debug().
		Str("event", "request_admitted").
		Uint64("seq", t.seq).
		Msg("Request admitted")

	go m.run(ctx, t, prev, req, submittedAt)
	return t
}

func (m *Mailbox[Req, Resp]) run(ctx context.Context, t *Ticket[Resp], prev <-chan struct{}, req Req, submittedAt time.Time) {
	resp, err := m.safeProcess(ctx, req)

	entry := Entry[Req, Resp]{
		Seq:         t.seq,
		Request:     req,
		Response:    resp,
		SubmittedAt: submittedAt,
		CompletedAt: m.now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	// Entries commit in admission order no matter when processing finished
	<-prev

	m.logMu.Lock()
	appendErr := m.log.Append(context.WithoutCancel(ctx), entry)
	m.logMu.Unlock()
	close(t.committed)

	if appendErr != nil {
		m.logger.Error().
			Str("event", "history_append_failed").
			Uint64("seq", t.seq).
			Err(appendErr).
			Msg("Failed to record request history")
		if err == nil {
			err = fmt.Errorf("record history: %w", appendErr)
		}
	} else {
		m.logger.Debug().
			Str("event", "request_committed").
			Uint64("seq", t.seq).
			Bool("failed", entry.Failed()).
			Msg("Request committed")
	}

	t.resp, t.err = resp, err
	close(t.done)
}

// safeProcess turns a processor panic into an error so the commit chain never stalls
func (m *Mailbox[Req, Resp]) safeProcess(ctx context.Context, req Req) (resp Resp, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero Resp
			resp, err = zero, fmt.Errorf("request processor panicked: %v", r)
		}
	}()
	return m.process(ctx, req)
}

// History returns the committed entries in admission order. It never observes
// a partially written entry.
func (m *Mailbox[Req, Resp]) History(ctx context.Context) ([]Entry[Req, Resp], error) {
	m.logMu.Lock()
	defer m.logMu.Unlock()
	return m.log.Entries(ctx)
}

// Len returns the number of admitted requests, committed or not
func (m *Mailbox[Req, Resp]) Len() uint64 {
	m.admitMu.Lock()
	defer m.admitMu.Unlock()
	return m.seq
}

// Ticket is the eventual result of one submission
type Ticket[Resp any] struct {
	seq       uint64
	committed chan struct{}
	done      chan struct{}

	resp Resp
	err  error
}

// Seq is the admission sequence number, starting at 1
func (t *Ticket[Resp]) Seq() uint64 {
	return t.seq
}

// Done is closed once the result is available
func (t *Ticket[Resp]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the entry is committed and returns the processor's result
func (t *Ticket[Resp]) Wait() (Resp, error) {
	<-t.done
	return t.resp, t.err
}
