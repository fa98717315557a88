package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"codelab/internal/curriculum"
	"codelab/internal/declaration"
	feedbackrepo "codelab/internal/gateway/repository/feedback"
)

// DeclarationSync is the part of declaration.Synchronizer the runner drives.
type DeclarationSync interface {
	Gate() *declaration.Gate
	SyncAll(ctx context.Context, files []curriculum.FileConfig) error
	Reset(ctx context.Context, files []curriculum.FileConfig) error
}

// FeedbackRelay accepts a feedback record for delivery.
type FeedbackRelay interface {
	Append(ctx context.Context, path string, rec feedbackrepo.Record) error
}

// SnapshotStore persists serialized session state under a key.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
}

type RunnerOptions struct {
	Declarations DeclarationSync
	Feedback     FeedbackRelay
	Snapshots    SnapshotStore
	Logger       *slog.Logger
}

type lane struct {
	name  Lane
	mu    sync.Mutex
	queue []Effect
	wake  chan struct{}
}

func newLane(name Lane) *lane {
	return &lane{name: name, wake: make(chan struct{}, 1)}
}

func (l *lane) pop() (Effect, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	e := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return e, true
}

// push appends e and reports whether it added a new queue slot. A snapshot
// save replaces one still waiting, since only the latest state matters.
func (l *lane) push(e Effect) bool {
	l.mu.Lock()
	added := true
	if _, ok := e.(SaveSnapshot); ok && len(l.queue) > 0 {
		if _, ok := l.queue[len(l.queue)-1].(SaveSnapshot); ok {
			l.queue[len(l.queue)-1] = e
			added = false
		}
	}
	if added {
		l.queue = append(l.queue, e)
	}
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return added
}

// EffectRunner applies reducer effects off the dispatch path. Each lane runs
// its effects in order; lanes are independent of each other.
//
// Declaration effects carry a selection ticket. Once a ResetDeclarations with
// a newer ticket has been enqueued, older declaration effects are dropped
// without touching the synchronizer.
type EffectRunner struct {
	decls     DeclarationSync
	feedback  FeedbackRelay
	snapshots SnapshotStore
	logger    *slog.Logger

	lanes  map[Lane]*lane
	latest atomic.Uint64
	start  sync.Once

	mu      sync.Mutex
	pending int
	idle    chan struct{}
}

func NewEffectRunner(opts RunnerOptions) *EffectRunner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	idle := make(chan struct{})
	close(idle)
	return &EffectRunner{
		decls:     opts.Declarations,
		feedback:  opts.Feedback,
		snapshots: opts.Snapshots,
		logger:    opts.Logger,
		lanes: map[Lane]*lane{
			LaneDeclarations: newLane(LaneDeclarations),
			LaneFeedback:     newLane(LaneFeedback),
			LanePersistence:  newLane(LanePersistence),
		},
		idle: idle,
	}
}

// Start launches one worker per lane. Workers stop when ctx ends.
func (r *EffectRunner) Start(ctx context.Context) {
	r.start.Do(func() {
		for _, l := range r.lanes {
			go r.loop(ctx, l)
		}
	})
}

// Enqueue hands effects to their lanes in order.
func (r *EffectRunner) Enqueue(effects ...Effect) {
	for _, e := range effects {
		if reset, ok := e.(ResetDeclarations); ok {
			r.advance(reset.Ticket)
		}
		l, ok := r.lanes[e.Lane()]
		if !ok {
			r.logger.Warn("effect dropped", "lane", e.Lane(), "effect", fmt.Sprintf("%T", e))
			continue
		}
		r.mu.Lock()
		if l.push(e) {
			if r.pending == 0 {
				r.idle = make(chan struct{})
			}
			r.pending++
		}
		r.mu.Unlock()
	}
}

// Drain blocks until every enqueued effect has been applied or discarded.
func (r *EffectRunner) Drain(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *EffectRunner) advance(ticket uint64) {
	for {
		cur := r.latest.Load()
		if ticket <= cur || r.latest.CompareAndSwap(cur, ticket) {
			return
		}
	}
}

func (r *EffectRunner) stale(ticket uint64) bool {
	return ticket < r.latest.Load()
}

func (r *EffectRunner) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending--
	if r.pending == 0 {
		close(r.idle)
	}
}

func (r *EffectRunner) loop(ctx context.Context, l *lane) {
	for {
		e, ok := l.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-l.wake:
				continue
			}
		}
		result := r.apply(ctx, e)
		effectsTotal.WithLabelValues(string(l.name), result).Inc()
		r.finish()
	}
}

func (r *EffectRunner) apply(ctx context.Context, e Effect) string {
	var err error
	switch e := e.(type) {
	case ResyncDeclarations:
		return r.applyDeclarations(ctx, e.Ticket, func() error { return r.decls.SyncAll(ctx, e.Files) })
	case ResetDeclarations:
		return r.applyDeclarations(ctx, e.Ticket, func() error { return r.decls.Reset(ctx, e.Files) })
	case PushFeedback:
		if r.feedback == nil {
			return "skipped"
		}
		err = r.feedback.Append(ctx, e.Path, e.Record)
	case SaveSnapshot:
		if r.snapshots == nil {
			return "skipped"
		}
		var data []byte
		data, err = json.Marshal(e.State)
		if err == nil {
			err = r.snapshots.Save(ctx, e.Key, data)
		}
	default:
		err = fmt.Errorf("unsupported effect %T", e)
	}
	if err != nil {
		r.logger.Error("effect failed", "lane", e.Lane(), "error", err)
		return "failed"
	}
	return "applied"
}

// applyDeclarations waits for the analysis service before applying, and
// checks staleness again afterwards since the wait can be long.
func (r *EffectRunner) applyDeclarations(ctx context.Context, ticket uint64, fn func() error) string {
	if r.decls == nil {
		return "skipped"
	}
	if r.stale(ticket) {
		return "stale"
	}
	if _, err := r.decls.Gate().Wait(ctx); err != nil {
		r.logger.Warn("declarations not applied", "error", err)
		return "failed"
	}
	if r.stale(ticket) {
		return "stale"
	}
	if err := fn(); err != nil {
		r.logger.Error("declaration sync failed", "ticket", ticket, "error", err)
		return "failed"
	}
	return "applied"
}
