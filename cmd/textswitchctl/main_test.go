package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/textswitcher/textswitcher/internal/config"
	"github.com/textswitcher/textswitcher/internal/exceptions"
	"github.com/textswitcher/textswitcher/internal/forced"
	"github.com/textswitcher/textswitcher/internal/ngram"
	"github.com/textswitcher/textswitcher/internal/pipeline"
	"github.com/textswitcher/textswitcher/internal/techterms"
	"github.com/textswitcher/textswitcher/internal/validator"
)

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	dir := t.TempDir()

	tt := techterms.New()
	tt.LoadFile("../../internal/techterms/testdata/techterms.json")

	f := forced.Open(filepath.Join(dir, "forced_conversions.json"))
	t.Cleanup(f.Close)
	e := exceptions.Open(filepath.Join(dir, "text_switcher_exceptions.json"))
	t.Cleanup(e.Close)

	ng := ngram.New(nil)
	ng.LoadFile("../../internal/ngram/testdata/ngram.json")

	v := validator.New(tt, f, e, ng, nil, nil)
	return pipeline.New(v, config.Default())
}

func TestRunTextFlagConvertsAndPrints(t *testing.T) {
	cfgPath := writeTestConfig(t)

	var stdout, stderr strings.Builder
	code := run([]string{"--config", cfgPath, "--text", "ghbdtn"}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr.String())
	}
	if got := stdout.String(); got != "привет\n" {
		t.Fatalf("got %q, want привет\\n", got)
	}
}

func TestRunStdinConvertsAndPrints(t *testing.T) {
	cfgPath := writeTestConfig(t)

	var stdout, stderr strings.Builder
	code := run([]string{"--config", cfgPath}, strings.NewReader("ghbdtn"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr.String())
	}
	if got := stdout.String(); got != "привет" {
		t.Fatalf("got %q, want привет", got)
	}
}

// writeTestConfig points a fresh config file's paths at the small tuned
// test fixtures used throughout this repo, instead of config.Default()'s
// app-data directory (which coordinator.New would seed with the embedded
// production assets).
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	contents := `
[paths]
tech_terms = "../../internal/techterms/testdata/techterms.json"
ngram = "../../internal/ngram/testdata/ngram.json"
forced_conversions = "` + filepath.Join(dir, "forced_conversions.json") + `"
exceptions = "` + filepath.Join(dir, "text_switcher_exceptions.json") + `"
`
	if err := os.WriteFile(cfgPath, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestRunHelpFlagWritesUsage(t *testing.T) {
	var stdout, stderr strings.Builder
	code := run([]string{"--help"}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "--golden") {
		t.Fatalf("expected usage text to mention --golden, got %q", stdout.String())
	}
}

func TestLoadGoldenCasesPairsInAndGoldenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "simple", "ghbdtn", "привет")
	writeFixture(t, dir, "techterm", "Docker", "Docker")

	cases, err := loadGoldenCases(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(cases) != 2 {
		t.Fatalf("got %d cases, want 2", len(cases))
	}
	if cases[0].name != "simple" || cases[1].name != "techterm" {
		t.Fatalf("unexpected case names: %+v", cases)
	}
}

func TestRunGoldenAllPass(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "simple", "ghbdtn", "привет")
	writeFixture(t, dir, "techterm", "Docker", "Docker")

	p := newTestPipeline(t)
	report, err := runGolden(p, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !report.allPassed() {
		t.Fatalf("expected all fixtures to pass, report:\n%s", report.String())
	}
	if !strings.Contains(report.String(), "2/2 passed") {
		t.Fatalf("expected summary line, got:\n%s", report.String())
	}
}

func TestRunGoldenReportsFailure(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "wrong", "ghbdtn", "not-what-it-converts-to")

	p := newTestPipeline(t)
	report, err := runGolden(p, dir)
	if err != nil {
		t.Fatal(err)
	}
	if report.allPassed() {
		t.Fatal("expected a mismatched fixture to fail")
	}
	if !strings.Contains(report.String(), "FAIL wrong") {
		t.Fatalf("expected FAIL line for wrong, got:\n%s", report.String())
	}
}

func TestRunGoldenResetsStateBetweenScenarios(t *testing.T) {
	dir := t.TempDir()
	// The first scenario latches CLI mode; if Reset didn't run between
	// fixtures, the second scenario's plain word would stay unconverted.
	writeFixture(t, dir, "a_cli", "yarn dlx ghbdtn", "yarn dlx ghbdtn")
	writeFixture(t, dir, "b_plain", "ghbdtn", "привет")

	p := newTestPipeline(t)
	report, err := runGolden(p, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !report.allPassed() {
		t.Fatalf("expected both scenarios to pass independently, report:\n%s", report.String())
	}
}

// TestShippedGoldenFixturesPass exercises the literal end-to-end scenarios
// shipped under testdata/golden (spec §8's numbered table) against the
// same pipeline construction every other test in this repo uses.
func TestShippedGoldenFixturesPass(t *testing.T) {
	p := newTestPipeline(t)
	report, err := runGolden(p, "testdata/golden")
	if err != nil {
		t.Fatal(err)
	}
	if !report.allPassed() {
		t.Fatalf("shipped golden fixtures did not all pass:\n%s", report.String())
	}
}

func TestRunGoldenFlagEndToEnd(t *testing.T) {
	cfgPath := writeTestConfig(t)

	var stdout, stderr strings.Builder
	code := run([]string{"--config", cfgPath, "--golden", "testdata/golden"}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stdout = %q, stderr = %q", code, stdout.String(), stderr.String())
	}
	if !strings.Contains(stdout.String(), "passed") {
		t.Fatalf("expected a summary line, got %q", stdout.String())
	}
}

func writeFixture(t *testing.T, dir, name, in, golden string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".in"), []byte(in), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".golden"), []byte(golden), 0o644); err != nil {
		t.Fatal(err)
	}
}
