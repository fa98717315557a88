package curriculum

import (
	"errors"
	"fmt"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// NewSession builds the fresh default state for a curriculum.
func NewSession(app AppConfig, c *Curriculum) SessionConfig {
	page := app.Page
	if page == "" {
		page = PageMilestone
	}
	s := SessionConfig{
		App:     app,
		Name:    app.Name,
		Autorun: true,
		User:    app.User,
		Page:    page,
	}
	if c != nil {
		if c.Name != "" {
			s.Name = c.Name
		}
		s.Milestones = append([]Milestone(nil), c.Milestones...)
	}
	return s
}

// SelectedMilestone returns the milestone under the cursor.
func (s SessionConfig) SelectedMilestone() (Milestone, error) {
	if s.SelectedMilestoneIndex < 0 || s.SelectedMilestoneIndex >= len(s.Milestones) {
		return Milestone{}, fmt.Errorf("milestone %d of %d: %w", s.SelectedMilestoneIndex, len(s.Milestones), ErrIndexOutOfRange)
	}
	return s.Milestones[s.SelectedMilestoneIndex], nil
}

// SelectedExercise returns the exercise under both cursors.
func (s SessionConfig) SelectedExercise() (Exercise, error) {
	m, err := s.SelectedMilestone()
	if err != nil {
		return Exercise{}, err
	}
	if m.SelectedExerciseIndex < 0 || m.SelectedExerciseIndex >= len(m.Exercises) {
		return Exercise{}, fmt.Errorf("exercise %d of %d in milestone %q: %w", m.SelectedExerciseIndex, len(m.Exercises), m.Name, ErrIndexOutOfRange)
	}
	return m.Exercises[m.SelectedExerciseIndex], nil
}

// WithMilestone returns a copy of s whose milestone i is replaced by fn(m).
// Only the milestones spine is copied; other milestones are shared.
func (s SessionConfig) WithMilestone(i int, fn func(Milestone) Milestone) (SessionConfig, error) {
	if i < 0 || i >= len(s.Milestones) {
		return s, fmt.Errorf("milestone %d of %d: %w", i, len(s.Milestones), ErrIndexOutOfRange)
	}
	milestones := make([]Milestone, len(s.Milestones))
	copy(milestones, s.Milestones)
	milestones[i] = fn(milestones[i])
	s.Milestones = milestones
	return s, nil
}

// WithExercise returns a copy of m whose exercise i is replaced by fn(e).
func (m Milestone) WithExercise(i int, fn func(Exercise) Exercise) (Milestone, error) {
	if i < 0 || i >= len(m.Exercises) {
		return m, fmt.Errorf("exercise %d of %d in milestone %q: %w", i, len(m.Exercises), m.Name, ErrIndexOutOfRange)
	}
	exercises := make([]Exercise, len(m.Exercises))
	copy(exercises, m.Exercises)
	exercises[i] = fn(exercises[i])
	m.Exercises = exercises
	return m, nil
}

// WithSelectedExercise rewrites the exercise under both cursors.
func (s SessionConfig) WithSelectedExercise(fn func(Exercise) Exercise) (SessionConfig, error) {
	var inner error
	out, err := s.WithMilestone(s.SelectedMilestoneIndex, func(m Milestone) Milestone {
		next, err := m.WithExercise(m.SelectedExerciseIndex, fn)
		if err != nil {
			inner = err
			return m
		}
		return next
	})
	if err != nil {
		return s, err
	}
	if inner != nil {
		return s, inner
	}
	return out, nil
}

// MapFiles returns a new slice with fn applied to every file; files is not modified.
func MapFiles(files []FileConfig, fn func(FileConfig) FileConfig) []FileConfig {
	if files == nil {
		return nil
	}
	out := make([]FileConfig, len(files))
	for i, f := range files {
		out[i] = fn(f)
	}
	return out
}

// FindFile looks a file up by its stable id.
func FindFile(files []FileConfig, id string) (FileConfig, bool) {
	for _, f := range files {
		if f.ID == id {
			return f, true
		}
	}
	return FileConfig{}, false
}
