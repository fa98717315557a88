package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"codelab/internal/curriculum"
)

// Kind enumerates the closed set of actions the store accepts.
type Kind int

const (
	KindInit Kind = iota + 1
	KindToggleAutorun
	KindOpenFeedback
	KindRunCode
	KindSetAuth
	KindSimulateState
	KindSelectMilestone
	KindToggleFile
	KindLoadAllSolutions
	KindLoadSolution
	KindUpdateCode
	KindSetTestList
	KindUpdateSingleTestResult
	KindNextExercise
	KindSendFeedback
	KindSelectExercise
)

var kindNames = map[Kind]string{
	KindInit:                   "INIT",
	KindToggleAutorun:          "TOGGLE_AUTORUN",
	KindOpenFeedback:           "OPEN_FEEDBACK",
	KindRunCode:                "RUN_CODE",
	KindSetAuth:                "SET_AUTH",
	KindSimulateState:          "SIMULATE_STATE",
	KindSelectMilestone:        "SELECT_MILESTONE",
	KindToggleFile:             "TOGGLE_FILE",
	KindLoadAllSolutions:       "LOAD_ALL_SOLUTIONS",
	KindLoadSolution:           "LOAD_SOLUTION",
	KindUpdateCode:             "UPDATE_CODE",
	KindSetTestList:            "SET_TEST_LIST",
	KindUpdateSingleTestResult: "UPDATE_SINGLE_TEST_RESULT",
	KindNextExercise:           "NEXT_EXERCISE",
	KindSendFeedback:           "SEND_FEEDBACK",
	KindSelectExercise:         "SELECT_EXERCISE",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a wire name such as "UPDATE_CODE".
func ParseKind(raw string) (Kind, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}

// Action is one of the payload types below.
type Action interface {
	Kind() Kind
}

// Init carries the fresh default state and the optional persisted snapshot.
// The store fills both; callers dispatch Init{}.
type Init struct {
	Fresh    curriculum.SessionConfig
	Snapshot *curriculum.SessionConfig
}

type ToggleAutorun struct{}

type OpenFeedback struct{}

type RunCode struct{}

type SetAuth struct {
	Auth json.RawMessage
}

type SimulateState struct {
	State curriculum.SessionConfig
}

type SelectMilestone struct {
	Index int
}

type ToggleFile struct {
	FileID string `json:"id"`
}

type LoadAllSolutions struct{}

type LoadSolution struct {
	FileID string `json:"id"`
}

type UpdateCode struct {
	FileID string `json:"fileId"`
	Code   string `json:"code"`
}

type SetTestList struct {
	Titles []string
}

type UpdateSingleTestResult struct {
	Title  string `json:"title"`
	Pass   *bool  `json:"pass"`
	Result string `json:"result"`
}

type NextExercise struct{}

type SendFeedback struct {
	Comment  string `json:"comment"`
	Username string `json:"username"`
}

type SelectExercise struct {
	Index int
}

func (Init) Kind() Kind                   { return KindInit }
func (ToggleAutorun) Kind() Kind          { return KindToggleAutorun }
func (OpenFeedback) Kind() Kind           { return KindOpenFeedback }
func (RunCode) Kind() Kind                { return KindRunCode }
func (SetAuth) Kind() Kind                { return KindSetAuth }
func (SimulateState) Kind() Kind          { return KindSimulateState }
func (SelectMilestone) Kind() Kind        { return KindSelectMilestone }
func (ToggleFile) Kind() Kind             { return KindToggleFile }
func (LoadAllSolutions) Kind() Kind       { return KindLoadAllSolutions }
func (LoadSolution) Kind() Kind           { return KindLoadSolution }
func (UpdateCode) Kind() Kind             { return KindUpdateCode }
func (SetTestList) Kind() Kind            { return KindSetTestList }
func (UpdateSingleTestResult) Kind() Kind { return KindUpdateSingleTestResult }
func (NextExercise) Kind() Kind           { return KindNextExercise }
func (SendFeedback) Kind() Kind           { return KindSendFeedback }
func (SelectExercise) Kind() Kind         { return KindSelectExercise }

// DecodeAction builds an Action from its wire name and JSON payload.
func DecodeAction(kind string, data json.RawMessage) (Action, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	switch k {
	case KindInit:
		return Init{}, nil
	case KindToggleAutorun:
		return ToggleAutorun{}, nil
	case KindOpenFeedback:
		return OpenFeedback{}, nil
	case KindRunCode:
		return RunCode{}, nil
	case KindLoadAllSolutions:
		return LoadAllSolutions{}, nil
	case KindNextExercise:
		return NextExercise{}, nil
	case KindSetAuth:
		return SetAuth{Auth: append(json.RawMessage(nil), data...)}, nil
	case KindSimulateState:
		var a SimulateState
		err := decodePayload(k, data, &a.State)
		return a, err
	case KindSelectMilestone:
		var a SelectMilestone
		err := decodePayload(k, data, &a.Index)
		return a, err
	case KindSelectExercise:
		var a SelectExercise
		err := decodePayload(k, data, &a.Index)
		return a, err
	case KindToggleFile:
		var a ToggleFile
		err := decodePayload(k, data, &a)
		return a, err
	case KindLoadSolution:
		var a LoadSolution
		err := decodePayload(k, data, &a)
		return a, err
	case KindUpdateCode:
		var a UpdateCode
		err := decodePayload(k, data, &a)
		return a, err
	case KindSetTestList:
		var a SetTestList
		err := decodePayload(k, data, &a.Titles)
		return a, err
	case KindUpdateSingleTestResult:
		var a UpdateSingleTestResult
		err := decodePayload(k, data, &a)
		return a, err
	case KindSendFeedback:
		var a SendFeedback
		err := decodePayload(k, data, &a)
		return a, err
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAction, k)
}

func decodePayload(k Kind, data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%s: %w", k, ErrMissingPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", k, err)
	}
	return nil
}
