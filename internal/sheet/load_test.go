package sheet_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/expr-lang/expr"

	"github.com/sheetdiff-project/sheetdiff/internal/sheet"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "brianna.json", `{
		"uid": "pc-brianna",
		"name": "Brianna",
		"kind": "pc",
		"tags": ["party"],
		"stats": {"strength": 14, "wisdom": 9}
	}`)

	s, err := sheet.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.UID != "pc-brianna" || s.Name != "Brianna" || s.Kind != "pc" {
		t.Fatalf("header not lifted: %+v", s)
	}
	if !reflect.DeepEqual(s.Tags, []string{"party"}) {
		t.Fatalf("tags: %v", s.Tags)
	}
	stats, ok := s.Data["stats"].(map[string]any)
	if !ok {
		t.Fatalf("stats not a record: %T", s.Data["stats"])
	}
	if stats["strength"] != float64(14) {
		t.Fatalf("numbers should normalize to float64, got %T(%v)", stats["strength"], stats["strength"])
	}
}

func TestLoadFileYAMLNormalizesLikeJSON(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writeFile(t, dir, "a.json", `{"stats": {"hp": 21, "speed": 30.5}, "items": [1, 2]}`)
	yamlPath := writeFile(t, dir, "a.yaml", "stats:\n  hp: 21\n  speed: 30.5\nitems:\n  - 1\n  - 2\n")

	fromJSON, err := sheet.LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	fromYAML, err := sheet.LoadFile(yamlPath)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !reflect.DeepEqual(fromJSON.Data["stats"], fromYAML.Data["stats"]) {
		t.Fatalf("same document should normalize identically:\n%#v\n%#v",
			fromJSON.Data["stats"], fromYAML.Data["stats"])
	}
	if !reflect.DeepEqual(fromJSON.Data["items"], fromYAML.Data["items"]) {
		t.Fatalf("sequences differ:\n%#v\n%#v", fromJSON.Data["items"], fromYAML.Data["items"])
	}
}

func TestLoadFileUIDFallsBackToSlug(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Old Mage.yaml", `kind: npc`)

	s, err := sheet.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.UID != "old-mage" {
		t.Fatalf("want slug uid, got %q", s.UID)
	}
	if s.Name != "old-mage" {
		t.Fatalf("name should default to uid, got %q", s.Name)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `{"uid": "b"}`)
	writeFile(t, dir, "a.yaml", `uid: a`)
	writeFile(t, dir, "ignored.txt", "not a sheet")

	sheets, err := sheet.LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(sheets) != 2 {
		t.Fatalf("want 2 sheets, got %d", len(sheets))
	}
	if sheets[0].UID != "a" || sheets[1].UID != "b" {
		t.Fatalf("sheets not sorted by uid: %q, %q", sheets[0].UID, sheets[1].UID)
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := &sheet.Sheet{
		UID: "x",
		Data: map[string]any{
			"stats": map[string]any{"hp": float64(10)},
			"items": []any{"rope"},
		},
	}

	clone := original.Clone()
	clone.Data["stats"].(map[string]any)["hp"] = float64(1)
	clone.Data["items"].([]any)[0] = "torch"

	if original.Data["stats"].(map[string]any)["hp"] != float64(10) {
		t.Fatal("clone shares nested record with original")
	}
	if original.Data["items"].([]any)[0] != "rope" {
		t.Fatal("clone shares sequence with original")
	}
}

func TestFilterEnv(t *testing.T) {
	s := &sheet.Sheet{UID: "pc-brianna", Name: "Brianna", Kind: "pc", Tags: []string{"party", "caster"}}

	cases := []struct {
		expression string
		want       bool
	}{
		{`All()`, true},
		{`None()`, false},
		{`Kind("pc")`, true},
		{`Kind("npc")`, false},
		{`Name("Brianna", "Tasha")`, true},
		{`Tagged("party", "caster")`, true},
		{`Tagged("party", "dead")`, false},
		{`Kind("pc") && Tagged("party")`, true},
	}
	for _, tc := range cases {
		prog, err := expr.Compile(tc.expression, expr.Env(sheet.Env{}), expr.AsBool())
		if err != nil {
			t.Fatalf("compile %q: %v", tc.expression, err)
		}
		out, err := expr.Run(prog, sheet.Env{Sheet: s})
		if err != nil {
			t.Fatalf("run %q: %v", tc.expression, err)
		}
		if out != tc.want {
			t.Fatalf("%q: want %v, got %v", tc.expression, tc.want, out)
		}
	}
}
