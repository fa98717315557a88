package curriculum

import "fmt"

// MalformedExerciseError reports authored content that cannot be materialized.
type MalformedExerciseError struct {
	Milestone string
	Exercise  string
	Template  int
	Reason    string
}

func (e *MalformedExerciseError) Error() string {
	if e.Template >= 0 {
		return fmt.Sprintf("malformed exercise %q/%q: file template %d: %s", e.Milestone, e.Exercise, e.Template, e.Reason)
	}
	return fmt.Sprintf("malformed exercise %q/%q: %s", e.Milestone, e.Exercise, e.Reason)
}
