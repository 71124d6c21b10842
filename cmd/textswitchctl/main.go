// Command textswitchctl drives internal/pipeline from the command line:
// component M's external interface (spec §4.M), grounded on every
// sqldef/cmd/*def/*.go entry point's jessevdk/go-flags usage.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/textswitcher/textswitcher/internal/config"
	"github.com/textswitcher/textswitcher/internal/coordinator"
	"github.com/textswitcher/textswitcher/internal/pipeline"
)

type options struct {
	Text   string `long:"text" description:"Convert this literal string instead of reading stdin" value-name:"text"`
	Golden string `long:"golden" description:"Run the golden-file harness against a directory of *.in/*.golden fixtures" value-name:"dir"`
	Config string `long:"config" description:"Path to a TOML config file overriding the built-in defaults" value-name:"path"`
	Help   bool   `long:"help" description:"Show this help"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options]"
	args, err := parser.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if opts.Help {
		parser.WriteHelp(stdout)
		return 0
	}

	cfg := config.Default()
	if opts.Config != "" {
		cfg = config.Load(opts.Config)
	}

	coord := coordinator.New(cfg)
	defer coord.Close()

	p := pipeline.New(coord.Validator, cfg)

	if opts.Golden != "" {
		report, err := runGolden(p, opts.Golden)
		fmt.Fprint(stdout, report)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if !report.allPassed() {
			return 1
		}
		return 0
	}

	if opts.Text != "" {
		fmt.Fprintln(stdout, p.Process(opts.Text))
		return 0
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprint(stdout, p.Process(string(data)))
	return 0
}
