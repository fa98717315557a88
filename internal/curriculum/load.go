package curriculum

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Curriculum is the authored content loaded at startup.
type Curriculum struct {
	Name       string               `json:"name" yaml:"name"`
	Milestones []Milestone          `json:"milestones" yaml:"milestones" validate:"required,min=1,dive"`
	Ambient    []AmbientDeclaration `json:"ambient,omitempty" yaml:"ambient" validate:"dive"`
}

// AmbientDeclaration is registered once with the analysis service when it
// becomes ready and is never cleaned up between exercises.
type AmbientDeclaration struct {
	URI  string `json:"uri" yaml:"uri" validate:"required"`
	Code string `json:"code" yaml:"code"`
}

var validate = validator.New()

// LoadFile reads a curriculum from a .json, .yaml or .yml file.
func LoadFile(path string) (*Curriculum, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}
	var c Curriculum
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(b, &c)
	default:
		err = yaml.Unmarshal(b, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("decode curriculum %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks structure first, then every file template, so a missing
// template surfaces as a MalformedExerciseError naming its position.
func (c *Curriculum) Validate() error {
	if c == nil {
		return errors.New("curriculum is nil")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid curriculum: %w", err)
	}
	for _, m := range c.Milestones {
		if m.SelectedExerciseIndex >= len(m.Exercises) {
			return &MalformedExerciseError{Milestone: m.Name, Template: -1, Reason: fmt.Sprintf("selectedExerciseIndex %d out of range", m.SelectedExerciseIndex)}
		}
		for _, ex := range m.Exercises {
			if ex.EditedFiles != nil {
				return &MalformedExerciseError{Milestone: m.Name, Exercise: ex.Name, Template: -1, Reason: "authored content must not carry edited files"}
			}
			for i, tmpl := range ex.FileTemplates {
				if strings.TrimSpace(tmpl.Filename) == "" {
					return &MalformedExerciseError{Milestone: m.Name, Exercise: ex.Name, Template: i, Reason: "missing filename"}
				}
			}
		}
	}
	return nil
}
