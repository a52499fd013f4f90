package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AaronLay10/FrameScene/internal/scene"
)

func TestDefaultCatalog(t *testing.T) {
	r := Default()

	app, ok := r.App("render/text")
	if !ok {
		t.Fatal("expected render/text in default catalog")
	}
	if app.Category != CategoryRender {
		t.Errorf("expected category render, got %s", app.Category)
	}
	if !HasField(app.Fields, "text") {
		t.Error("expected render/text to declare field text")
	}

	dl, _ := r.App("data/downloadImage")
	if dl.Cache == nil || !dl.Cache.Enabled || dl.Cache.Duration != "900" {
		t.Errorf("expected default cache on data/downloadImage, got %+v", dl.Cache)
	}

	ev, ok := r.Event("setCurrentScene")
	if !ok || !ev.CanDispatch {
		t.Fatal("expected dispatchable setCurrentScene event")
	}
	var _ scene.SchemaSource = r
}

func TestInterpretedByCategory(t *testing.T) {
	byCat := Default().InterpretedByCategory()

	if len(byCat[CategoryData]) != 20 {
		t.Errorf("expected 20 interpreted data apps, got %d", len(byCat[CategoryData]))
	}
	if len(byCat[CategoryLogic]) != 4 {
		t.Errorf("expected 4 interpreted logic apps, got %d", len(byCat[CategoryLogic]))
	}
	if len(byCat[CategoryRender]) != 7 {
		t.Errorf("expected 7 interpreted render apps, got %d", len(byCat[CategoryRender]))
	}
	for _, k := range byCat[CategoryRender] {
		if k == "render/svg" {
			t.Error("render/svg is compiled-only")
		}
	}
}

func TestSchemaSource(t *testing.T) {
	r := Default()

	fields, ok := r.EventFields("setCurrentScene")
	if !ok {
		t.Fatal("expected setCurrentScene fields")
	}
	if fields[0].Type != scene.FieldScene {
		t.Errorf("expected sceneId to be scene-typed, got %s", fields[0].Type)
	}

	if _, ok := r.AppFields("nope/nope"); ok {
		t.Error("expected unknown app to report false")
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "wrong version",
			yaml:    "version: 2\n",
			wantErr: "unsupported catalog version",
		},
		{
			name:    "missing category",
			yaml:    "version: 1\napps:\n  - {keyword: a, name: A}\n",
			wantErr: "invalid catalog",
		},
		{
			name:    "bad category",
			yaml:    "version: 1\napps:\n  - {keyword: a, name: A, category: sound}\n",
			wantErr: "invalid catalog",
		},
		{
			name:    "field without type",
			yaml:    "version: 1\napps:\n  - {keyword: a, name: A, category: data, fields: [{name: x}]}\n",
			wantErr: "invalid catalog",
		},
		{
			name:    "duplicate app",
			yaml:    "version: 1\napps:\n  - {keyword: a, name: A, category: data}\n  - {keyword: a, name: B, category: logic}\n",
			wantErr: "duplicate app keyword",
		},
		{
			name:    "duplicate event",
			yaml:    "version: 1\nevents:\n  - {keyword: e}\n  - {keyword: e}\n",
			wantErr: "duplicate event keyword",
		},
		{
			name:    "not yaml",
			yaml:    "version: [",
			wantErr: "failed to parse catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `version: 1
apps:
  - keyword: render/text
    name: Text
    category: render
    interpreted: true
    fields:
      - {name: text, type: text}
events:
  - {keyword: render, listen: true}
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(r.Apps()) != 1 || len(r.Events()) != 1 {
		t.Errorf("expected 1 app and 1 event, got %d and %d", len(r.Apps()), len(r.Events()))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
