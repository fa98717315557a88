package curriculum

import (
	"strings"

	"github.com/google/uuid"
)

// Materialize expands the exercise's file templates into editable files,
// attaching the solution whose filename matches exactly. Every entry is a
// fresh copy with a new stable id; the templates are left untouched.
//
// Callers guard with Exercise.Materialized so this runs once per exercise.
func Materialize(ex Exercise) ([]FileConfig, error) {
	out := make([]FileConfig, 0, len(ex.FileTemplates))
	for i, tmpl := range ex.FileTemplates {
		if strings.TrimSpace(tmpl.Filename) == "" {
			return nil, &MalformedExerciseError{Exercise: ex.Name, Template: i, Reason: "missing filename"}
		}
		file := tmpl
		if sol, ok := findSolution(ex.Solutions, tmpl.Filename); ok {
			file.Solution = sol.Code
		}
		file.ID = uuid.NewString()
		out = append(out, file)
	}
	return out, nil
}

func findSolution(solutions []FileConfig, filename string) (FileConfig, bool) {
	for _, s := range solutions {
		if s.Filename == filename {
			return s, true
		}
	}
	return FileConfig{}, false
}
