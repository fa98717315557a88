package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codelab/internal/curriculum"
	"codelab/internal/declaration"
	feedbackrepo "codelab/internal/gateway/repository/feedback"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCourse() *curriculum.Curriculum {
	return &curriculum.Curriculum{
		Name: "TypeScript",
		Milestones: []curriculum.Milestone{
			{
				Name: "Intro",
				Exercises: []curriculum.Exercise{
					{
						Name: "Hello",
						FileTemplates: []curriculum.FileConfig{
							{Filename: "intro/Codelab.ts", Code: "export class Codelab {}"},
							{Filename: "intro/Guest.ts", Code: "class Guest {}"},
						},
						Solutions: []curriculum.FileConfig{
							{Filename: "intro/Guest.ts", Code: "export class Guest {}"},
						},
					},
					{
						Name: "Bootstrap",
						FileTemplates: []curriculum.FileConfig{
							{Filename: "bootstrap/AppComponent.ts", Code: "export class AppComponent {}"},
							{Filename: "bootstrap/AppModule.ts", Code: "export class AppModule {}"},
						},
					},
				},
			},
			{
				Name: "Components",
				Exercises: []curriculum.Exercise{
					{
						Name: "Template",
						FileTemplates: []curriculum.FileConfig{
							{Filename: "components/Template.ts", Code: "export const template = ''"},
						},
					},
				},
			},
		},
	}
}

func freshState(app curriculum.AppConfig) curriculum.SessionConfig {
	return curriculum.NewSession(app, testCourse())
}

func newTestReducer() *Reducer {
	return NewReducer(NewRunTrigger(nil, discardLogger()), "")
}

func reduce(t *testing.T, r *Reducer, s curriculum.SessionConfig, a Action) Result {
	t.Helper()
	res, err := r.Reduce(s, a)
	require.NoError(t, err)
	return res
}

// opened returns a session whose first exercise has been visited.
func opened(t *testing.T, r *Reducer, app curriculum.AppConfig) curriculum.SessionConfig {
	t.Helper()
	return reduce(t, r, freshState(app), SelectMilestone{Index: 0}).State
}

func selectedFiles(t *testing.T, s curriculum.SessionConfig) []curriculum.FileConfig {
	t.Helper()
	ex, err := s.SelectedExercise()
	require.NoError(t, err)
	return ex.EditedFiles
}

func filenames(files []curriculum.FileConfig) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Filename
	}
	return out
}

// analysisService records registrations made through the synchronizer.
type analysisService struct {
	mu        sync.Mutex
	nextID    int
	live      map[int]string
	registers []string
}

func newAnalysisService() *analysisService {
	return &analysisService{live: map[int]string{}}
}

func (a *analysisService) RegisterExtraFile(_ string, uri string) (declaration.Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	a.live[a.nextID] = uri
	a.registers = append(a.registers, uri)
	return analysisHandle{svc: a, id: a.nextID}, nil
}

func (a *analysisService) registered() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.registers...)
}

func (a *analysisService) liveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

type analysisHandle struct {
	svc *analysisService
	id  int
}

func (h analysisHandle) Dispose() error {
	h.svc.mu.Lock()
	defer h.svc.mu.Unlock()
	if _, ok := h.svc.live[h.id]; !ok {
		return fmt.Errorf("handle %d disposed twice", h.id)
	}
	delete(h.svc.live, h.id)
	return nil
}

type memorySnapshots struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{data: map[string][]byte{}}
}

func (m *memorySnapshots) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memorySnapshots) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	m.saves++
	return nil
}

func (m *memorySnapshots) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type harness struct {
	store     *Store
	runner    *EffectRunner
	decls     *declaration.Synchronizer
	gate      *declaration.Gate
	analysis  *analysisService
	snapshots *memorySnapshots
	feedback  *feedbackrepo.MemoryRelay
}

func newHarness(t *testing.T, app curriculum.AppConfig, snapshots *memorySnapshots) *harness {
	t.Helper()
	if snapshots == nil {
		snapshots = newMemorySnapshots()
	}
	gate := declaration.NewGate()
	synchronizer := declaration.NewSynchronizer(gate, declaration.Options{Logger: discardLogger()})
	relay := feedbackrepo.NewMemoryRelay()
	runner := NewEffectRunner(RunnerOptions{
		Declarations: synchronizer,
		Feedback:     relay,
		Snapshots:    snapshots,
		Logger:       discardLogger(),
	})
	runner.Start(t.Context())
	store := NewStore(Options{
		Fresh:     func() curriculum.SessionConfig { return freshState(app) },
		Reducer:   newTestReducer(),
		Runner:    runner,
		Snapshots: snapshots,
		Key:       "state",
		Logger:    discardLogger(),
	})
	return &harness{
		store:     store,
		runner:    runner,
		decls:     synchronizer,
		gate:      gate,
		analysis:  newAnalysisService(),
		snapshots: snapshots,
		feedback:  relay,
	}
}

func (h *harness) ready(t *testing.T) {
	t.Helper()
	require.True(t, h.gate.Resolve(h.analysis))
}

func (h *harness) dispatch(t *testing.T, a Action) curriculum.SessionConfig {
	t.Helper()
	s, err := h.store.Dispatch(t.Context(), a)
	require.NoError(t, err)
	return s
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.runner.Drain(ctx))
}
