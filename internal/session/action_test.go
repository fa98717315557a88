package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" update_code ")
	require.NoError(t, err)
	assert.Equal(t, KindUpdateCode, k)
	assert.Equal(t, "UPDATE_CODE", k.String())

	_, err = ParseKind("DANCE")
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, "Kind(0)", Kind(0).String())
}

func TestKindNamesAreComplete(t *testing.T) {
	for k := KindInit; k <= KindSelectExercise; k++ {
		name, ok := kindNames[k]
		require.True(t, ok, "kind %d has no name", k)
		parsed, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
}

func TestDecodeAction(t *testing.T) {
	cases := []struct {
		kind string
		data string
		want Action
	}{
		{"INIT", ``, Init{}},
		{"RUN_CODE", ``, RunCode{}},
		{"SELECT_MILESTONE", `1`, SelectMilestone{Index: 1}},
		{"SELECT_EXERCISE", `2`, SelectExercise{Index: 2}},
		{"TOGGLE_FILE", `{"id":"f"}`, ToggleFile{FileID: "f"}},
		{"LOAD_SOLUTION", `{"id":"f"}`, LoadSolution{FileID: "f"}},
		{"UPDATE_CODE", `{"fileId":"f","code":"c"}`, UpdateCode{FileID: "f", Code: "c"}},
		{"SET_TEST_LIST", `["a","b"]`, SetTestList{Titles: []string{"a", "b"}}},
		{"SEND_FEEDBACK", `{"comment":"c","username":"u"}`, SendFeedback{Comment: "c", Username: "u"}},
		{"SET_AUTH", `{"t":1}`, SetAuth{Auth: json.RawMessage(`{"t":1}`)}},
	}
	for _, tc := range cases {
		var data json.RawMessage
		if tc.data != "" {
			data = json.RawMessage(tc.data)
		}
		got, err := DecodeAction(tc.kind, data)
		require.NoError(t, err, tc.kind)
		assert.Equal(t, tc.want, got, tc.kind)
	}
}

func TestDecodeActionTestResult(t *testing.T) {
	got, err := DecodeAction("UPDATE_SINGLE_TEST_RESULT", json.RawMessage(`{"title":"t","pass":false,"result":"boom"}`))
	require.NoError(t, err)
	res := got.(UpdateSingleTestResult)
	require.NotNil(t, res.Pass)
	assert.False(t, *res.Pass)
	assert.Equal(t, "boom", res.Result)
}

func TestDecodeActionErrors(t *testing.T) {
	_, err := DecodeAction("SELECT_EXERCISE", nil)
	assert.ErrorIs(t, err, ErrMissingPayload)

	_, err = DecodeAction("SELECT_EXERCISE", json.RawMessage(`"x"`))
	var typeErr *json.UnmarshalTypeError
	assert.ErrorAs(t, err, &typeErr)

	_, err = DecodeAction("FLY", nil)
	assert.ErrorIs(t, err, ErrUnknownAction)
}
