package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codelab/internal/curriculum"
	feedbackrepo "codelab/internal/gateway/repository/feedback"
)

const DefaultFeedbackPath = "/feedback"

// Result is the outcome of one reduction: the next state and the effects
// it asks for, in emission order.
type Result struct {
	State   curriculum.SessionConfig
	Effects []Effect
}

// Reducer is the pure transform behind the store. It never mutates the input
// state; every action copies only the spine it rewrites.
type Reducer struct {
	trigger      *RunTrigger
	feedbackPath string
	now          func() time.Time
}

func NewReducer(trigger *RunTrigger, feedbackPath string) *Reducer {
	if trigger == nil {
		trigger = NewRunTrigger(nil, nil)
	}
	if feedbackPath == "" {
		feedbackPath = DefaultFeedbackPath
	}
	return &Reducer{trigger: trigger, feedbackPath: feedbackPath, now: trigger.now}
}

type cursor struct {
	milestone int
	exercise  int
}

func cursorOf(s curriculum.SessionConfig) cursor {
	c := cursor{milestone: s.SelectedMilestoneIndex, exercise: -1}
	if m, err := s.SelectedMilestone(); err == nil {
		c.exercise = m.SelectedExerciseIndex
	}
	return c
}

// work accumulates state and effects while actions delegate to each other.
type work struct {
	state   curriculum.SessionConfig
	effects []Effect
	origin  cursor
}

func (w *work) emit(e Effect) {
	w.effects = append(w.effects, e)
}

// Reduce applies a to state. On error the input state is the valid result
// and no effects apply.
func (r *Reducer) Reduce(state curriculum.SessionConfig, a Action) (Result, error) {
	w := &work{state: state, origin: cursorOf(state)}
	var err error
	switch a := a.(type) {
	case Init:
		err = r.init(w, a)
	case ToggleAutorun:
		w.state.Autorun = !w.state.Autorun
	case OpenFeedback:
		w.state.Page = curriculum.PageFeedback
	case RunCode:
		r.runCode(w)
	case SetAuth:
		w.state.Auth = append(json.RawMessage(nil), a.Auth...)
	case SimulateState:
		r.simulateState(w, a)
	case SelectMilestone:
		err = r.selectMilestone(w, a.Index)
	case ToggleFile:
		err = r.toggleFile(w, a.FileID)
	case LoadAllSolutions:
		err = r.loadAllSolutions(w)
	case LoadSolution:
		err = r.loadSolution(w, a.FileID)
	case UpdateCode:
		err = r.updateCode(w, a.FileID, a.Code)
	case SetTestList:
		err = r.setTestList(w, a.Titles)
	case UpdateSingleTestResult:
		err = r.updateSingleTestResult(w, a)
	case NextExercise:
		err = r.nextExercise(w)
	case SendFeedback:
		err = r.sendFeedback(w, a)
	case SelectExercise:
		err = r.selectExercise(w, a.Index)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
	if err != nil {
		return Result{State: state}, err
	}
	return Result{State: w.state, Effects: w.effects}, nil
}

// init restores the snapshot only when preserveState is on; the app segment
// always comes from the fresh default.
func (r *Reducer) init(w *work, a Init) error {
	next := a.Fresh
	if a.Fresh.App.PreserveState && a.Snapshot != nil {
		next = *a.Snapshot
	}
	next.App = a.Fresh.App
	w.state = next
	r.resetSelected(w)
	return nil
}

func (r *Reducer) runCode(w *work) {
	w.state = r.trigger.Bump(w.state)
}

// simulateState replaces the whole tree but never the auth value.
func (r *Reducer) simulateState(w *work, a SimulateState) {
	auth := w.state.Auth
	w.state = a.State
	w.state.Auth = auth
	r.resetSelected(w)
}

// resetSelected points the declarations at the selected exercise after the
// whole tree was replaced. An unvisited selection clears them.
func (r *Reducer) resetSelected(w *work) {
	var files []curriculum.FileConfig
	if ex, err := w.state.SelectedExercise(); err == nil {
		files = ex.EditedFiles
	}
	w.emit(ResetDeclarations{Files: files})
}

func (r *Reducer) selectMilestone(w *work, index int) error {
	if index < 0 || index >= len(w.state.Milestones) {
		return fmt.Errorf("select milestone %d of %d: %w", index, len(w.state.Milestones), curriculum.ErrIndexOutOfRange)
	}
	w.state.Page = curriculum.PageMilestone
	w.state.SelectedMilestoneIndex = index
	return r.selectExercise(w, w.state.Milestones[index].SelectedExerciseIndex)
}

// selectExercise moves the exercise cursor and materializes the target on
// first visit. A visited exercise keeps its edited files and only has its
// declarations reset when the selection actually moved.
func (r *Reducer) selectExercise(w *work, index int) error {
	mi := w.state.SelectedMilestoneIndex
	m, err := w.state.SelectedMilestone()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(m.Exercises) {
		return fmt.Errorf("select exercise %d of %d in milestone %q: %w", index, len(m.Exercises), m.Name, curriculum.ErrIndexOutOfRange)
	}
	ex := m.Exercises[index]

	if ex.Materialized() {
		w.state, err = w.state.WithMilestone(mi, func(m curriculum.Milestone) curriculum.Milestone {
			m.SelectedExerciseIndex = index
			return m
		})
		if err != nil {
			return err
		}
		if (cursor{milestone: mi, exercise: index}) != w.origin {
			w.emit(ResetDeclarations{Files: ex.EditedFiles})
		}
		return nil
	}

	files, err := curriculum.Materialize(ex)
	if err != nil {
		var malformed *curriculum.MalformedExerciseError
		if errors.As(err, &malformed) && malformed.Milestone == "" {
			malformed.Milestone = m.Name
		}
		return err
	}
	var inner error
	w.state, err = w.state.WithMilestone(mi, func(m curriculum.Milestone) curriculum.Milestone {
		m.SelectedExerciseIndex = index
		next, err := m.WithExercise(index, func(e curriculum.Exercise) curriculum.Exercise {
			e.EditedFiles = files
			return e
		})
		if err != nil {
			inner = err
			return m
		}
		return next
	})
	if err != nil {
		return err
	}
	if inner != nil {
		return inner
	}
	w.emit(ResetDeclarations{Files: files})
	r.runCode(w)
	return nil
}

func (r *Reducer) materializedExercise(w *work) (curriculum.Exercise, error) {
	ex, err := w.state.SelectedExercise()
	if err != nil {
		return ex, err
	}
	if !ex.Materialized() {
		return ex, fmt.Errorf("exercise %q: %w", ex.Name, ErrNotMaterialized)
	}
	return ex, nil
}

func (r *Reducer) rewriteFiles(w *work, fn func(curriculum.FileConfig) curriculum.FileConfig) error {
	next, err := w.state.WithSelectedExercise(func(e curriculum.Exercise) curriculum.Exercise {
		e.EditedFiles = curriculum.MapFiles(e.EditedFiles, fn)
		return e
	})
	if err != nil {
		return err
	}
	w.state = next
	return nil
}

func (r *Reducer) toggleFile(w *work, id string) error {
	if _, err := r.materializedExercise(w); err != nil {
		return err
	}
	return r.rewriteFiles(w, func(f curriculum.FileConfig) curriculum.FileConfig {
		if f.ID == id {
			f.Collapsed = !f.Collapsed
		}
		return f
	})
}

func (r *Reducer) loadAllSolutions(w *work) error {
	ex, err := r.materializedExercise(w)
	if err != nil {
		return err
	}
	for _, f := range ex.EditedFiles {
		if f.Solution == "" {
			continue
		}
		if err := r.updateCode(w, f.ID, f.Solution); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reducer) loadSolution(w *work, id string) error {
	if _, err := r.materializedExercise(w); err != nil {
		return err
	}
	if err := r.rewriteFiles(w, func(f curriculum.FileConfig) curriculum.FileConfig {
		if f.ID == id {
			f.Code = f.Solution
		}
		return f
	}); err != nil {
		return err
	}
	ex, _ := w.state.SelectedExercise()
	w.emit(ResyncDeclarations{Files: ex.EditedFiles})
	return nil
}

func (r *Reducer) updateCode(w *work, id, code string) error {
	if _, err := r.materializedExercise(w); err != nil {
		return err
	}
	if err := r.rewriteFiles(w, func(f curriculum.FileConfig) curriculum.FileConfig {
		if f.ID == id {
			f.Code = code
		}
		return f
	}); err != nil {
		return err
	}
	ex, _ := w.state.SelectedExercise()
	w.emit(ResyncDeclarations{Files: ex.EditedFiles})
	if w.state.Autorun {
		r.runCode(w)
	}
	return nil
}

func (r *Reducer) setTestList(w *work, titles []string) error {
	tests := make([]curriculum.TestInfo, len(titles))
	for i, title := range titles {
		tests[i] = curriculum.TestInfo{Title: title}
	}
	next, err := w.state.WithSelectedExercise(func(e curriculum.Exercise) curriculum.Exercise {
		e.Tests = tests
		return e
	})
	if err != nil {
		return err
	}
	w.state = next
	return nil
}

func (r *Reducer) updateSingleTestResult(w *work, a UpdateSingleTestResult) error {
	next, err := w.state.WithSelectedExercise(func(e curriculum.Exercise) curriculum.Exercise {
		tests := make([]curriculum.TestInfo, len(e.Tests))
		for i, t := range e.Tests {
			if t.Title == a.Title {
				t.Pass = a.Pass
				t.Result = a.Result
			}
			tests[i] = t
		}
		e.Tests = tests
		return e
	})
	if err != nil {
		return err
	}
	w.state = next
	if w.state.App.Debug {
		ex, _ := w.state.SelectedExercise()
		r.trigger.Complete(w.state, ex.Tests)
	}
	return nil
}

// nextExercise advances within the milestone, then across milestones, and
// stays put on the last exercise of the last milestone.
func (r *Reducer) nextExercise(w *work) error {
	m, err := w.state.SelectedMilestone()
	if err != nil {
		return err
	}
	if next := m.SelectedExerciseIndex + 1; next < len(m.Exercises) {
		return r.selectExercise(w, next)
	}
	if next := w.state.SelectedMilestoneIndex + 1; next < len(w.state.Milestones) {
		return r.selectMilestone(w, next)
	}
	return nil
}

func (r *Reducer) sendFeedback(w *work, a SendFeedback) error {
	if !w.state.App.FeedbackEnabled {
		return nil
	}
	snapshot, err := json.Marshal(w.state)
	if err != nil {
		return fmt.Errorf("snapshot state for feedback: %w", err)
	}
	w.emit(PushFeedback{
		Path: r.feedbackPath,
		Record: feedbackrepo.Record{
			Comment:   a.Comment,
			State:     snapshot,
			Name:      a.Username,
			CreatedAt: r.now(),
		},
	})
	w.state.User = a.Username
	return nil
}
