package curriculum

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoMilestones() SessionConfig {
	return NewSession(AppConfig{Name: "Codelab"}, &Curriculum{
		Milestones: []Milestone{
			{Name: "Intro", Exercises: []Exercise{{Name: "a"}, {Name: "b"}}},
			{Name: "Bootstrap", Exercises: []Exercise{{Name: "c"}}},
		},
	})
}

func TestNewSessionDefaults(t *testing.T) {
	s := twoMilestones()
	assert.Equal(t, PageMilestone, s.Page)
	assert.True(t, s.Autorun)
	assert.Equal(t, 0, s.RunID)
	assert.Equal(t, "Codelab", s.Name)
	assert.Len(t, s.Milestones, 2)
}

func TestWithSelectedExerciseCopiesOnlyTheSpine(t *testing.T) {
	before := twoMilestones()

	after, err := before.WithSelectedExercise(func(e Exercise) Exercise {
		e.Description = "changed"
		return e
	})
	require.NoError(t, err)

	assert.Equal(t, "", before.Milestones[0].Exercises[0].Description, "input must not be mutated")
	assert.Equal(t, "changed", after.Milestones[0].Exercises[0].Description)
	// Untouched milestone shares its exercises array.
	assert.Same(t, &before.Milestones[1].Exercises[0], &after.Milestones[1].Exercises[0])
}

func TestWithMilestoneOutOfRange(t *testing.T) {
	s := twoMilestones()
	_, err := s.WithMilestone(5, func(m Milestone) Milestone { return m })
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestSelectedExercise(t *testing.T) {
	s := twoMilestones()
	s.SelectedMilestoneIndex = 1
	ex, err := s.SelectedExercise()
	require.NoError(t, err)
	assert.Equal(t, "c", ex.Name)

	s.SelectedMilestoneIndex = 2
	_, err = s.SelectedExercise()
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSettled(t *testing.T) {
	yes, no := true, false
	tests := []TestInfo{{Title: "a", Pass: &yes}, {Title: "b", Pass: &no}, {Title: "c"}}
	assert.False(t, Settled(tests))
	tests[2].Pass = &yes
	assert.True(t, Settled(tests))
}

func TestEmptyMaterializationSurvivesEncoding(t *testing.T) {
	files, err := Materialize(Exercise{Name: "reading only"})
	require.NoError(t, err)
	require.NotNil(t, files)

	s, err := twoMilestones().WithSelectedExercise(func(e Exercise) Exercise {
		e.EditedFiles = files
		return e
	})
	require.NoError(t, err)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded SessionConfig
	require.NoError(t, json.Unmarshal(b, &decoded))

	assert.True(t, decoded.Milestones[0].Exercises[0].Materialized())
	assert.Empty(t, decoded.Milestones[0].Exercises[0].EditedFiles)
	assert.False(t, decoded.Milestones[0].Exercises[1].Materialized(), "unvisited stays unvisited")
}
