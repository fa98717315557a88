package session

import (
	"codelab/internal/curriculum"
	feedbackrepo "codelab/internal/gateway/repository/feedback"
)

// Lane groups effects that must apply in order relative to each other.
type Lane string

const (
	LaneDeclarations Lane = "declarations"
	LaneFeedback     Lane = "feedback"
	LanePersistence  Lane = "persistence"
)

// Effect is an intent emitted by the reducer and applied later by the
// EffectRunner. The reducer never waits for an effect.
type Effect interface {
	Lane() Lane
}

// ResyncDeclarations brings the listed files up to date incrementally.
type ResyncDeclarations struct {
	Ticket uint64
	Files  []curriculum.FileConfig
}

// ResetDeclarations drops every tracked declaration and registers Files.
// Each one opens a new selection epoch.
type ResetDeclarations struct {
	Ticket uint64
	Files  []curriculum.FileConfig
}

type PushFeedback struct {
	Path   string
	Record feedbackrepo.Record
}

type SaveSnapshot struct {
	Key   string
	State curriculum.SessionConfig
}

func (ResyncDeclarations) Lane() Lane { return LaneDeclarations }
func (ResetDeclarations) Lane() Lane  { return LaneDeclarations }
func (PushFeedback) Lane() Lane       { return LaneFeedback }
func (SaveSnapshot) Lane() Lane       { return LanePersistence }
