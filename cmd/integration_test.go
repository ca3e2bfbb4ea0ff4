package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so invocations do not leak state.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns stdout and the error.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolatedHome points HOME at a temp dir and clears INSIGHT_* overrides.
func isolatedHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("INSIGHT_API_KEY", "")
	return home
}

func writeDataset(t *testing.T, path string, rows int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("order_id,units,revenue,region\n")
	for i := 0; i < rows; i++ {
		units := 10 + i%6
		revenue := 100.0 + float64(i%9)*2.5 + float64(i)*0.01
		if i == rows-1 {
			units, revenue = 500, 99999
		}
		fmt.Fprintf(&b, "ORD_%04d,%d,%.2f,%s\n", i, units, revenue, []string{"north", "south"}[i%2])
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
}

func TestCLI_AnalyzeWritesReportsAndRecordsRun(t *testing.T) {
	home := isolatedHome(t)
	data := filepath.Join(home, "in", "sales.csv")
	writeDataset(t, data, 80)
	outDir := filepath.Join(home, "reports")

	out := runCmd(t, "analyze", data, "--no-narrative", "-o", outDir, "-f", "json,md")
	if !strings.Contains(out, "✓ sales.csv: 80 records") {
		t.Fatalf("unexpected output: %s", out)
	}
	jsonFiles, _ := filepath.Glob(filepath.Join(outDir, "report_sales_*.json"))
	mdFiles, _ := filepath.Glob(filepath.Join(outDir, "report_sales_*.md"))
	htmlFiles, _ := filepath.Glob(filepath.Join(outDir, "report_sales_*.html"))
	if len(jsonFiles) != 1 || len(mdFiles) != 1 || len(htmlFiles) != 0 {
		t.Fatalf("unexpected report files: json=%v md=%v html=%v", jsonFiles, mdFiles, htmlFiles)
	}
	b, err := os.ReadFile(jsonFiles[0])
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if doc["title"] != "Analysis Report: sales" {
		t.Fatalf("title=%v", doc["title"])
	}
	if kpis, _ := doc["kpis"].([]any); len(kpis) != 3 {
		t.Fatalf("kpis=%v", doc["kpis"])
	}

	list := runCmd(t, "runs", "list", "-o", outDir)
	if !strings.Contains(list, "sales.csv") || !strings.Contains(list, "narrative=fallback") {
		t.Fatalf("runs list missing entry: %s", list)
	}
}

func TestCLI_AnalyzeRejectsEmptyAndTextOnly(t *testing.T) {
	home := isolatedHome(t)
	empty := filepath.Join(home, "empty.csv")
	text := filepath.Join(home, "names.csv")
	if err := os.WriteFile(empty, []byte("a,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(text, []byte("name,city\nann,oslo\nbob,rome\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(home, "reports")
	if _, err := execCmd(t, "analyze", empty, "--no-narrative", "-o", outDir); err == nil || !strings.Contains(err.Error(), "empty dataset") {
		t.Fatalf("expected empty dataset error, got %v", err)
	}
	if _, err := execCmd(t, "analyze", text, "--no-narrative", "-o", outDir); err == nil || !strings.Contains(err.Error(), "no numeric columns") {
		t.Fatalf("expected no numeric columns error, got %v", err)
	}
}

func TestCLI_InvalidOverrideFailsBeforeRunning(t *testing.T) {
	home := isolatedHome(t)
	data := filepath.Join(home, "sales.csv")
	writeDataset(t, data, 20)
	_, err := execCmd(t, "analyze", data, "--no-narrative", "--contamination", "0.9", "-o", filepath.Join(home, "r"))
	if err == nil || !strings.Contains(err.Error(), "contamination") {
		t.Fatalf("expected contamination validation error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(home, "r")); !os.IsNotExist(statErr) {
		t.Fatalf("no output should be written for an invalid configuration")
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolatedHome(t)
	runCmd(t, "config", "set", "contamination", "0.2")
	runCmd(t, "config", "set", "api_key", "sk-abcdef123456")
	if _, err := os.Stat(filepath.Join(home, ".insightloom", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "contamination: 0.200") {
		t.Fatalf("contamination not persisted: %s", out)
	}
	if !strings.Contains(out, "api_key: sk-****456") || strings.Contains(out, "abcdef") {
		t.Fatalf("api key not masked: %s", out)
	}
	if _, err := execCmd(t, "config", "set", "contamination", "0.7"); err == nil {
		t.Fatalf("expected invalid contamination to be rejected")
	}
	if _, err := execCmd(t, "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{"": "", "abc": "******", "sk-1234567": "sk-****567"}
	for in, want := range cases {
		if got := mask(in); got != want {
			t.Errorf("mask(%q)=%q, want %q", in, got, want)
		}
	}
}
