package curriculum

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
name: Angular codelab
ambient:
  - uri: "@angular/core.d.ts"
    code: "declare module '@angular/core' {}"
milestones:
  - name: Intro to TypeScript
    exercises:
      - name: Intro
        description: Welcome
      - name: Typescript
        fileTemplates:
          - filename: typescript-intro/Codelab.ts
            moduleName: typescript-intro/Codelab
            type: ts
            code: "export class Codelab {}"
          - filename: typescript-intro/Test.ts
            type: ts
            test: true
            hidden: true
        solutions:
          - filename: typescript-intro/Codelab.ts
            code: "export class Codelab { solved = true }"
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadFileYAML(t *testing.T) {
	c, err := LoadFile(writeFile(t, "codelab.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if c.Name != "Angular codelab" {
		t.Fatalf("Name = %q", c.Name)
	}
	if len(c.Milestones) != 1 || len(c.Milestones[0].Exercises) != 2 {
		t.Fatalf("unexpected shape: %+v", c.Milestones)
	}
	ex := c.Milestones[0].Exercises[1]
	if len(ex.FileTemplates) != 2 || !ex.FileTemplates[1].Hidden {
		t.Fatalf("templates = %+v", ex.FileTemplates)
	}
	if len(c.Ambient) != 1 || c.Ambient[0].URI != "@angular/core.d.ts" {
		t.Fatalf("ambient = %+v", c.Ambient)
	}
}

func TestLoadFileJSON(t *testing.T) {
	body := `{"name":"x","milestones":[{"name":"m","exercises":[{"name":"e","fileTemplates":[{"filename":"a.ts","code":"1"}]}]}]}`
	c, err := LoadFile(writeFile(t, "codelab.json", body))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := c.Milestones[0].Exercises[0].FileTemplates[0].Code; got != "1" {
		t.Fatalf("code = %q", got)
	}
}

func TestLoadFileMissingTemplateFilename(t *testing.T) {
	body := `
milestones:
  - name: m
    exercises:
      - name: e
        fileTemplates:
          - code: "orphan"
`
	_, err := LoadFile(writeFile(t, "bad.yaml", body))
	var malformed *MalformedExerciseError
	if !errors.As(err, &malformed) {
		t.Fatalf("LoadFile() error = %v, want MalformedExerciseError", err)
	}
	if malformed.Milestone != "m" || malformed.Exercise != "e" || malformed.Template != 0 {
		t.Fatalf("malformed = %+v", malformed)
	}
}

func TestLoadFileRejectsEmptyCurriculum(t *testing.T) {
	if _, err := LoadFile(writeFile(t, "empty.yaml", "name: nothing\n")); err == nil {
		t.Fatalf("LoadFile() error = nil, want validation error")
	}
}
