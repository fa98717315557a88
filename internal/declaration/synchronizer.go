package declaration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"codelab/internal/curriculum"
)

const DefaultURIPrefix = "inmemory://model/"

type CollisionPolicy string

const (
	// CollisionReplace disposes the live entry and registers the newcomer.
	CollisionReplace CollisionPolicy = "replace"
	// CollisionReject keeps the live entry and returns DuplicateDeclarationError.
	CollisionReject CollisionPolicy = "reject"
)

// ParseCollisionPolicy maps a config string to a policy, defaulting to replace.
func ParseCollisionPolicy(raw string) CollisionPolicy {
	switch CollisionPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case CollisionReject:
		return CollisionReject
	default:
		return CollisionReplace
	}
}

type Options struct {
	Policy    CollisionPolicy
	URIPrefix string
	Logger    *slog.Logger
}

// Entry is a read-only view of one live registration.
type Entry struct {
	FileID   string
	Filename string
	Basename string
	Code     string
	URIs     []string
}

type registration struct {
	fileID   string
	filename string
	basename string
	code     string
	uris     []string
	handles  []Handle
}

// dispose releases every handle of the registration in one call.
func (r *registration) dispose() error {
	var errs []error
	for _, h := range r.handles {
		if err := h.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Synchronizer mirrors the live edited files into the analysis service.
//
// Entries are keyed by full filename and aliased by basename, because the
// editor resolves relative imports by basename only. At most one entry per
// basename is live at any time. Every operation waits for the ready gate.
type Synchronizer struct {
	gate   *Gate
	policy CollisionPolicy
	prefix string
	logger *slog.Logger

	mu      sync.Mutex
	byAlias map[string]*registration
	ambient []Handle
}

func NewSynchronizer(gate *Gate, opts Options) *Synchronizer {
	if gate == nil {
		gate = NewGate()
	}
	if opts.Policy == "" {
		opts.Policy = CollisionReplace
	}
	if opts.URIPrefix == "" {
		opts.URIPrefix = DefaultURIPrefix
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Synchronizer{
		gate:    gate,
		policy:  opts.Policy,
		prefix:  opts.URIPrefix,
		logger:  opts.Logger,
		byAlias: make(map[string]*registration),
	}
}

// Gate returns the ready signal this synchronizer waits on.
func (s *Synchronizer) Gate() *Gate {
	return s.gate
}

// Normalize strips any leading path segments.
func Normalize(filename string) string {
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		return filename[i+1:]
	}
	return filename
}

// Register adds file under its basename and, when the filename carries a
// path, under the full path as well.
func (s *Synchronizer) Register(ctx context.Context, file curriculum.FileConfig) error {
	svc, err := s.gate.Wait(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.byAlias[Normalize(file.Filename)]; ok {
		if err := s.evictLocked(cur, file); err != nil {
			return err
		}
	}
	return s.registerLocked(svc, file)
}

// Unregister disposes the registration held for file's basename.
func (s *Synchronizer) Unregister(ctx context.Context, file curriculum.FileConfig) error {
	if _, err := s.gate.Wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unregisterLocked(file.Filename)
}

// SyncOne brings one file's registration up to date. Unchanged code is a no-op.
func (s *Synchronizer) SyncOne(ctx context.Context, file curriculum.FileConfig) error {
	svc, err := s.gate.Wait(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncOneLocked(svc, file)
}

// SyncAll calls SyncOne for every file, continuing past failures.
func (s *Synchronizer) SyncAll(ctx context.Context, files []curriculum.FileConfig) error {
	svc, err := s.gate.Wait(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, f := range files {
		if err := s.syncOneLocked(svc, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CleanupAll unregisters every tracked entry. Ambient declarations stay.
func (s *Synchronizer) CleanupAll(ctx context.Context) error {
	if _, err := s.gate.Wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupLocked()
}

// Reset runs CleanupAll then SyncAll under one lock, so no other operation
// can observe the empty registry in between.
func (s *Synchronizer) Reset(ctx context.Context, files []curriculum.FileConfig) error {
	svc, err := s.gate.Wait(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := []error{s.cleanupLocked()}
	for _, f := range files {
		errs = append(errs, s.syncOneLocked(svc, f))
	}
	return errors.Join(errs...)
}

// RegisterAmbient adds an untracked declaration that outlives exercise switches.
func (s *Synchronizer) RegisterAmbient(ctx context.Context, uri, code string) error {
	svc, err := s.gate.Wait(ctx)
	if err != nil {
		return err
	}
	h, err := svc.RegisterExtraFile(code, uri)
	if err != nil {
		return fmt.Errorf("register ambient %s: %w", uri, err)
	}
	s.mu.Lock()
	s.ambient = append(s.ambient, h)
	s.mu.Unlock()
	operationsTotal.WithLabelValues("ambient").Inc()
	return nil
}

// Entries returns the live registrations sorted by basename.
func (s *Synchronizer) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.byAlias))
	for _, r := range s.byAlias {
		out = append(out, Entry{
			FileID:   r.fileID,
			Filename: r.filename,
			Basename: r.basename,
			Code:     r.code,
			URIs:     append([]string(nil), r.uris...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Basename < out[j].Basename })
	return out
}

// Len returns the number of live entries.
func (s *Synchronizer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byAlias)
}

func (s *Synchronizer) syncOneLocked(svc Service, file curriculum.FileConfig) error {
	cur, ok := s.byAlias[Normalize(file.Filename)]
	if !ok {
		return s.registerLocked(svc, file)
	}
	if cur.filename == file.Filename && cur.code == file.Code {
		operationsTotal.WithLabelValues("skip").Inc()
		return nil
	}
	if err := s.evictLocked(cur, file); err != nil {
		return err
	}
	return s.registerLocked(svc, file)
}

// evictLocked removes cur to make room for file, applying the collision
// policy when the two are different paths sharing a basename.
func (s *Synchronizer) evictLocked(cur *registration, file curriculum.FileConfig) error {
	if cur.filename != file.Filename {
		dup := &DuplicateDeclarationError{Basename: cur.basename, Existing: cur.filename, Incoming: file.Filename}
		if s.policy == CollisionReject {
			operationsTotal.WithLabelValues("reject").Inc()
			return dup
		}
		operationsTotal.WithLabelValues("replace").Inc()
		s.logger.Warn("declaration replaced", "error", dup)
	}
	return s.unregisterLocked(cur.filename)
}

func (s *Synchronizer) registerLocked(svc Service, file curriculum.FileConfig) error {
	basename := Normalize(file.Filename)
	uris := []string{s.prefix + basename}
	if basename != file.Filename {
		uris = append(uris, s.prefix+file.Filename)
	}
	reg := &registration{
		fileID:   file.ID,
		filename: file.Filename,
		basename: basename,
		code:     file.Code,
		uris:     uris,
	}
	for _, uri := range uris {
		h, err := svc.RegisterExtraFile(file.Code, uri)
		if err != nil {
			_ = reg.dispose()
			return fmt.Errorf("register %s: %w", uri, err)
		}
		reg.handles = append(reg.handles, h)
	}
	s.byAlias[basename] = reg
	operationsTotal.WithLabelValues("register").Inc()
	liveDeclarations.Inc()
	s.logger.Debug("declaration registered", "filename", file.Filename, "uris", len(uris))
	return nil
}

func (s *Synchronizer) unregisterLocked(filename string) error {
	basename := Normalize(filename)
	cur, ok := s.byAlias[basename]
	if !ok || cur.filename != filename {
		return &NotRegisteredError{Filename: filename, Basename: basename}
	}
	delete(s.byAlias, basename)
	operationsTotal.WithLabelValues("dispose").Inc()
	liveDeclarations.Dec()
	if err := cur.dispose(); err != nil {
		return fmt.Errorf("dispose %s: %w", filename, err)
	}
	return nil
}

func (s *Synchronizer) cleanupLocked() error {
	regs := make([]*registration, 0, len(s.byAlias))
	for _, r := range s.byAlias {
		regs = append(regs, r)
	}
	var errs []error
	for _, r := range regs {
		if err := s.unregisterLocked(r.filename); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
