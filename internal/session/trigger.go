package session

import (
	"log/slog"
	"time"

	"codelab/internal/curriculum"
)

// RunTrigger owns the run counter. Bumping runId is the only signal external
// test runners watch; debug timing is a side channel.
type RunTrigger struct {
	now    func() time.Time
	logger *slog.Logger
}

func NewRunTrigger(now func() time.Time, logger *slog.Logger) *RunTrigger {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunTrigger{now: now, logger: logger}
}

func (t *RunTrigger) Bump(s curriculum.SessionConfig) curriculum.SessionConfig {
	s.RunID++
	if s.App.Debug {
		s.DebugTrackTime = t.now()
		t.logger.Info("run started", "run_id", s.RunID)
	}
	return s
}

// Complete logs the elapsed time since the last Bump once every test has a
// result. It reports whether the run was settled.
func (t *RunTrigger) Complete(s curriculum.SessionConfig, tests []curriculum.TestInfo) bool {
	if !curriculum.Settled(tests) {
		return false
	}
	if s.App.Debug && !s.DebugTrackTime.IsZero() {
		t.logger.Info("run complete", "run_id", s.RunID, "elapsed_ms", t.now().Sub(s.DebugTrackTime).Milliseconds())
	}
	return true
}
