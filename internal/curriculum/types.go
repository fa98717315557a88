package curriculum

import (
	"encoding/json"
	"time"
)

type Page string

const (
	PageMilestone Page = "milestone"
	PageFeedback  Page = "feedback"
)

// AppConfig is the app-wide settings segment. It is always taken from the
// fresh default on INIT, never from a restored snapshot.
type AppConfig struct {
	Name             string `json:"name" yaml:"name"`
	Page             Page   `json:"page" yaml:"page"`
	User             string `json:"user" yaml:"user"`
	Auth             string `json:"auth" yaml:"auth"`
	FeedbackEnabled  bool   `json:"feedbackEnabled" yaml:"feedbackEnabled"`
	PreserveState    bool   `json:"preserveState" yaml:"preserveState"`
	Debug            bool   `json:"debug" yaml:"debug"`
	Test             bool   `json:"test" yaml:"test"`
	PresentationMode bool   `json:"presentationMode" yaml:"presentationMode"`
}

// SessionConfig is the root of the state tree.
type SessionConfig struct {
	App                    AppConfig       `json:"app"`
	Name                   string          `json:"name"`
	RunID                  int             `json:"runId"`
	Autorun                bool            `json:"autorun"`
	User                   string          `json:"user"`
	Auth                   json.RawMessage `json:"auth,omitempty"`
	Page                   Page            `json:"page"`
	SelectedMilestoneIndex int             `json:"selectedMilestoneIndex"`
	Milestones             []Milestone     `json:"milestones"`
	DebugTrackTime         time.Time       `json:"debugTrackTime"`
}

type Milestone struct {
	Name                  string     `json:"name" yaml:"name" validate:"required"`
	SelectedExerciseIndex int        `json:"selectedExerciseIndex" yaml:"selectedExerciseIndex" validate:"gte=0"`
	Exercises             []Exercise `json:"exercises" yaml:"exercises" validate:"required,min=1,dive"`
}

// Exercise holds authored content plus the lazily materialized EditedFiles.
// A nil EditedFiles means the exercise has not been visited yet. A visited
// exercise without templates keeps an empty list, which encodes as [].
type Exercise struct {
	Name          string       `json:"name" yaml:"name" validate:"required"`
	Description   string       `json:"description,omitempty" yaml:"description"`
	MessageNext   string       `json:"messageNext,omitempty" yaml:"messageNext"`
	SkipTests     bool         `json:"skipTests,omitempty" yaml:"skipTests"`
	FileTemplates []FileConfig `json:"fileTemplates" yaml:"fileTemplates"`
	Solutions     []FileConfig `json:"solutions,omitempty" yaml:"solutions"`
	EditedFiles   []FileConfig `json:"editedFiles" yaml:"-"`
	Tests         []TestInfo   `json:"tests,omitempty" yaml:"-"`
}

// Materialized reports whether the exercise has been visited.
func (e Exercise) Materialized() bool {
	return e.EditedFiles != nil
}

type FileConfig struct {
	// ID is assigned at materialization and stays fixed while the code changes.
	ID                 string `json:"id,omitempty" yaml:"-"`
	Filename           string `json:"filename" yaml:"filename"`
	ModuleName         string `json:"moduleName,omitempty" yaml:"moduleName"`
	Type               string `json:"type,omitempty" yaml:"type"`
	Code               string `json:"code" yaml:"code"`
	Solution           string `json:"solution,omitempty" yaml:"solution"`
	Before             string `json:"before,omitempty" yaml:"before"`
	After              string `json:"after,omitempty" yaml:"after"`
	Test               bool   `json:"test,omitempty" yaml:"test"`
	Collapsed          bool   `json:"collapsed,omitempty" yaml:"collapsed"`
	Readonly           bool   `json:"readonly,omitempty" yaml:"readonly"`
	Hidden             bool   `json:"hidden,omitempty" yaml:"hidden"`
	Bootstrap          bool   `json:"bootstrap,omitempty" yaml:"bootstrap"`
	ExcludeFromTesting bool   `json:"excludeFromTesting,omitempty" yaml:"excludeFromTesting"`
}

// TestInfo carries a tri-state result: Pass is nil until the test has run.
type TestInfo struct {
	Title  string `json:"title"`
	Pass   *bool  `json:"pass,omitempty"`
	Result string `json:"result,omitempty"`
}

// Settled reports whether every test has a defined result.
func Settled(tests []TestInfo) bool {
	for _, t := range tests {
		if t.Pass == nil {
			return false
		}
	}
	return true
}
