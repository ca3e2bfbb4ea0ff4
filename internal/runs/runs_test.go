package runs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/insightloom/internal/runs"
)

func TestSaveListNewestFirst(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".runs")
	base := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	for i, src := range []string{"a.csv", "b.csv", "c.csv"} {
		m := &runs.Manifest{
			ID:        runs.NewID(),
			Source:    src,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Outputs:   map[string]string{"md": src + ".md"},
		}
		if err := runs.Save(dir, m); err != nil {
			t.Fatalf("save %s: %v", src, err)
		}
	}
	// junk files are ignored
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := runs.List(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(list))
	}
	if list[0].Source != "c.csv" || list[2].Source != "a.csv" {
		t.Fatalf("unexpected order: %s, %s, %s", list[0].Source, list[1].Source, list[2].Source)
	}
	got, err := runs.Load(dir, list[1].ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Outputs["md"] != "b.csv.md" {
		t.Fatalf("outputs not persisted: %v", got.Outputs)
	}
}

func TestListMissingDir(t *testing.T) {
	list, err := runs.List(filepath.Join(t.TempDir(), "none"))
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty history, got %v %v", list, err)
	}
}

func TestSaveRequiresID(t *testing.T) {
	if err := runs.Save(t.TempDir(), &runs.Manifest{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
