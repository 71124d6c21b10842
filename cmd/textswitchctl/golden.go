package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/textswitcher/textswitcher/internal/pipeline"
)

// goldenCase is one fixture: basename.in holds the literal input,
// basename.golden holds the expected output of pipeline.Process.
type goldenCase struct {
	name, input, want string
}

func loadGoldenCases(dir string) ([]goldenCase, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".in") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".in"))
	}
	sort.Strings(names)

	cases := make([]goldenCase, 0, len(names))
	for _, name := range names {
		input, err := os.ReadFile(filepath.Join(dir, name+".in"))
		if err != nil {
			return nil, err
		}
		want, err := os.ReadFile(filepath.Join(dir, name+".golden"))
		if err != nil {
			return nil, err
		}
		cases = append(cases, goldenCase{name: name, input: string(input), want: string(want)})
	}
	return cases, nil
}

type goldenResult struct {
	name      string
	got, want string
	passed    bool
}

type goldenReport struct {
	results []goldenResult
}

func (r goldenReport) allPassed() bool {
	for _, res := range r.results {
		if !res.passed {
			return false
		}
	}
	return true
}

func (r goldenReport) String() string {
	var b strings.Builder
	passed := 0
	for _, res := range r.results {
		status := "PASS"
		if res.passed {
			passed++
		} else {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%s %s\n", status, res.name)
		if !res.passed {
			fmt.Fprintf(&b, "  want: %q\n  got:  %q\n", res.want, res.got)
		}
	}
	fmt.Fprintf(&b, "%d/%d passed\n", passed, len(r.results))
	return b.String()
}

// runGolden replays every fixture under dir against p, resetting p's
// context-history and CLI-mode state between scenarios (spec §8: "each
// scenario is independent; the history ring is cleared between them").
func runGolden(p *pipeline.Pipeline, dir string) (goldenReport, error) {
	cases, err := loadGoldenCases(dir)
	if err != nil {
		return goldenReport{}, err
	}

	var report goldenReport
	for _, c := range cases {
		p.Reset()
		got := p.Process(c.input)
		report.results = append(report.results, goldenResult{
			name: c.name, got: got, want: c.want, passed: got == c.want,
		})
	}
	return report, nil
}
