package curriculum

import (
	"errors"
	"testing"
)

func TestMaterializeAttachesMatchingSolutions(t *testing.T) {
	ex := Exercise{
		Name: "Create a component",
		FileTemplates: []FileConfig{
			{Filename: "app/AppComponent.ts", Code: "// todo"},
			{Filename: "Test.ts", Code: "test()", Hidden: true},
		},
		Solutions: []FileConfig{
			{Filename: "app/AppComponent.ts", Code: "export class AppComponent {}"},
			{Filename: "AppComponent.ts", Code: "basename only, must not match"},
		},
	}

	files, err := Materialize(ex)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want 2", len(files))
	}
	if files[0].Solution != "export class AppComponent {}" {
		t.Fatalf("files[0].Solution = %q", files[0].Solution)
	}
	if files[1].Solution != "" {
		t.Fatalf("files[1].Solution = %q, want empty", files[1].Solution)
	}
	if !files[1].Hidden {
		t.Fatalf("files[1].Hidden = false, want flags copied from template")
	}
	if files[0].ID == "" || files[1].ID == "" || files[0].ID == files[1].ID {
		t.Fatalf("ids = %q, %q, want distinct non-empty", files[0].ID, files[1].ID)
	}
}

func TestMaterializeDoesNotAliasTemplates(t *testing.T) {
	ex := Exercise{
		Name:          "Typescript",
		FileTemplates: []FileConfig{{Filename: "Codelab.ts", Code: "class Codelab {}"}},
		Solutions:     []FileConfig{{Filename: "Codelab.ts", Code: "solved"}},
	}
	files, err := Materialize(ex)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	files[0].Code = "edited"

	if ex.FileTemplates[0].Code != "class Codelab {}" {
		t.Fatalf("template code mutated: %q", ex.FileTemplates[0].Code)
	}
	if ex.FileTemplates[0].Solution != "" {
		t.Fatalf("template solution mutated: %q", ex.FileTemplates[0].Solution)
	}
	if ex.FileTemplates[0].ID != "" {
		t.Fatalf("template id mutated: %q", ex.FileTemplates[0].ID)
	}
}

func TestMaterializeRejectsMissingTemplate(t *testing.T) {
	ex := Exercise{
		Name:          "Broken",
		FileTemplates: []FileConfig{{Filename: "ok.ts"}, {}},
	}
	_, err := Materialize(ex)
	var malformed *MalformedExerciseError
	if !errors.As(err, &malformed) {
		t.Fatalf("Materialize() error = %v, want MalformedExerciseError", err)
	}
	if malformed.Template != 1 || malformed.Exercise != "Broken" {
		t.Fatalf("malformed = %+v", malformed)
	}
}

func TestMaterializeEmptyTemplatesYieldsNonNil(t *testing.T) {
	files, err := Materialize(Exercise{Name: "Intro"})
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if files == nil {
		t.Fatalf("files = nil, want empty non-nil so the exercise counts as visited")
	}
}
