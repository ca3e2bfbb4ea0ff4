package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeBatch_GlobsAndReportsFailures(t *testing.T) {
	home := isolatedHome(t)

	// Same basename in different directories plus one file without numeric data
	writeDataset(t, filepath.Join(home, "d1", "metrics.csv"), 40)
	writeDataset(t, filepath.Join(home, "d2", "metrics.csv"), 60)
	if err := os.MkdirAll(filepath.Join(home, "d3"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, "d3", "metrics.csv"), []byte("col1,col2\nA,x\nB,y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(home, "reports")

	out, err := execCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"),
		"--no-narrative", "-o", outDir, "-f", "json", "-w", "2")
	if err == nil || !strings.Contains(err.Error(), "1 of 3 files failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(out, "40 records") || !strings.Contains(out, "60 records") {
		t.Fatalf("missing per-file results: %s", out)
	}
	if !strings.Contains(out, "[1/3]") || !strings.Contains(out, "[2/3]") {
		t.Fatalf("missing progress lines: %s", out)
	}

	// same basename, same second: the second report gets a run id suffix
	reports, _ := filepath.Glob(filepath.Join(outDir, "report_metrics_*.json"))
	if len(reports) != 2 {
		t.Fatalf("expected 2 distinct json reports, got %v", reports)
	}

	list := runCmd(t, "runs", "list", "-o", outDir)
	if got := strings.Count(list, "metrics.csv"); got != 2 {
		t.Fatalf("expected 2 recorded runs, got %d:\n%s", got, list)
	}
}

func TestAnalyzeBatch_NoMatches(t *testing.T) {
	home := isolatedHome(t)
	if _, err := execCmd(t, "analyze-batch", filepath.Join(home, "none", "*.csv"), "--no-narrative"); err == nil {
		t.Fatalf("expected error for empty glob")
	}
}

func TestExpandInputsDedupesAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.csv", "a.csv"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x\n1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got := expandInputs([]string{filepath.Join(dir, "*.csv"), filepath.Join(dir, "a.csv"), filepath.Join(dir, "missing.csv")})
	want := []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}
