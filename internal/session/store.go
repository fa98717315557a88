package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"codelab/internal/curriculum"
)

const DefaultStateKey = "codelab-state"

type Options struct {
	// Fresh builds the default state used by INIT.
	Fresh     func() curriculum.SessionConfig
	Reducer   *Reducer
	Runner    *EffectRunner
	Snapshots SnapshotStore
	Key       string
	Logger    *slog.Logger
}

// Store is the single owner of the session state. Dispatch is serialized;
// readers get immutable values and never observe a partial update.
type Store struct {
	reducer   *Reducer
	runner    *EffectRunner
	snapshots SnapshotStore
	fresh     func() curriculum.SessionConfig
	key       string
	logger    *slog.Logger

	mu      sync.Mutex
	state   curriculum.SessionConfig
	epoch   uint64
	changed chan struct{}
}

func NewStore(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Reducer == nil {
		opts.Reducer = NewReducer(NewRunTrigger(nil, opts.Logger), "")
	}
	if opts.Fresh == nil {
		opts.Fresh = func() curriculum.SessionConfig { return curriculum.NewSession(curriculum.AppConfig{}, nil) }
	}
	if opts.Key == "" {
		opts.Key = DefaultStateKey
	}
	return &Store{
		reducer:   opts.Reducer,
		runner:    opts.Runner,
		snapshots: opts.Snapshots,
		fresh:     opts.Fresh,
		key:       opts.Key,
		logger:    opts.Logger,
		changed:   make(chan struct{}),
	}
}

// State returns the current state.
func (s *Store) State() curriculum.SessionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces a against the current state and hands the resulting
// effects to the runner. On error the state is unchanged.
func (s *Store) Dispatch(ctx context.Context, a Action) (curriculum.SessionConfig, error) {
	if a == nil {
		return s.State(), ErrUnknownAction
	}
	if init, ok := a.(Init); ok {
		a = s.prepareInit(ctx, init)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.reducer.Reduce(s.state, a)
	if err != nil {
		dispatchTotal.WithLabelValues(a.Kind().String(), "error").Inc()
		s.logger.Warn("dispatch rejected", "action", a.Kind().String(), "error", err)
		return s.state, err
	}
	dispatchTotal.WithLabelValues(a.Kind().String(), "ok").Inc()

	effects := s.ticketLocked(res.Effects)
	if res.State.App.PreserveState && s.snapshots != nil {
		effects = append(effects, SaveSnapshot{Key: s.key, State: res.State})
	}
	s.state = res.State
	if s.runner != nil {
		s.runner.Enqueue(effects...)
	}
	s.notifyLocked()
	return s.state, nil
}

// ticketLocked stamps declaration effects: every reset opens a new epoch,
// resyncs join the current one.
func (s *Store) ticketLocked(effects []Effect) []Effect {
	out := make([]Effect, 0, len(effects)+1)
	for _, e := range effects {
		switch e := e.(type) {
		case ResetDeclarations:
			s.epoch++
			e.Ticket = s.epoch
			out = append(out, e)
		case ResyncDeclarations:
			e.Ticket = s.epoch
			out = append(out, e)
		default:
			out = append(out, e)
		}
	}
	return out
}

// prepareInit fills the fresh default and, when persistence is on, the last
// saved snapshot. A corrupt snapshot is logged and ignored.
func (s *Store) prepareInit(ctx context.Context, a Init) Init {
	a.Fresh = s.fresh()
	a.Snapshot = nil
	if !a.Fresh.App.PreserveState || s.snapshots == nil {
		return a
	}
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		var corrupt *PersistenceCorruptError
		if errors.As(err, &corrupt) {
			s.logger.Warn("discarding persisted state", "key", s.key, "error", err)
		} else {
			s.logger.Error("load persisted state", "key", s.key, "error", err)
		}
		return a
	}
	a.Snapshot = snap
	return a
}

func (s *Store) loadSnapshot(ctx context.Context) (*curriculum.SessionConfig, error) {
	data, ok, err := s.snapshots.Load(ctx, s.key)
	if err != nil || !ok {
		return nil, err
	}
	var snap curriculum.SessionConfig
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &PersistenceCorruptError{Key: s.key, Err: err}
	}
	return &snap, nil
}

func (s *Store) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Subscribe emits the current state and then every change until ctx ends.
// A slow reader only sees the latest state.
func (s *Store) Subscribe(ctx context.Context) <-chan curriculum.SessionConfig {
	out := make(chan curriculum.SessionConfig, 1)
	go func() {
		defer close(out)
		for {
			s.mu.Lock()
			state := s.state
			ch := s.changed
			s.mu.Unlock()

			pushState(out, state)

			select {
			case <-ctx.Done():
				return
			case <-ch:
			}
		}
	}()
	return out
}

func pushState(out chan curriculum.SessionConfig, state curriculum.SessionConfig) {
	select {
	case out <- state:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- state:
	default:
	}
}
