// Package config loads the in-process tuning constants from spec §6 as a
// TOML file, grounded on hyprvoice's internal/config: decode into a
// defaulted struct, degrade to the defaults on any error rather than
// failing the process (spec §7 kind 3 applies here too — a malformed
// config is not fatal).
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/textswitcher/textswitcher/internal/xlog"
)

var log = xlog.New("config")

// Config holds every tunable named in spec §6's constant table, plus the
// input-source identifier lists from the same section.
type Config struct {
	DoubleCmdThreshold   Duration `toml:"double_cmd_threshold"`
	AutoRollbackWindow   Duration `toml:"auto_rollback_window"`
	CmdZUndoWindow       Duration `toml:"cmd_z_undo_window"`
	LearningDelay        Duration `toml:"learning_delay"`
	LayoutBiasWindow     Duration `toml:"layout_bias_window"`
	ContextTimeWindow    Duration `toml:"context_time_window"`
	ContextBiasThreshold float64  `toml:"context_bias_threshold"`
	MinContextWords      int      `toml:"min_context_words"`
	MinWordLength        int      `toml:"min_word_length"`
	UnknownProbability   float64  `toml:"unknown_probability"`
	TrigramWeight        float64  `toml:"trigram_weight"`

	// InputSources maps each layout name to its canonical-then-alternate
	// list of OS input-source identifiers (spec §6). Failure to find any
	// of them is logged but never raised.
	InputSources map[string][]string `toml:"input_sources"`

	Paths Paths `toml:"paths"`
}

// Paths names the three JSON files under the app-data directory (spec §6).
type Paths struct {
	ForcedConversions string `toml:"forced_conversions"`
	Exceptions        string `toml:"exceptions"`
	TechTerms         string `toml:"tech_terms"`
	Ngram             string `toml:"ngram"`
}

// Duration wraps time.Duration so BurntSushi/toml can decode a plain
// string like "400ms" instead of requiring an integer nanosecond count.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string { return time.Duration(d).String() }

// Default returns the constant table from spec §6 verbatim.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		DoubleCmdThreshold:   Duration(400 * time.Millisecond),
		AutoRollbackWindow:   Duration(3 * time.Second),
		CmdZUndoWindow:       Duration(10 * time.Second),
		LearningDelay:        Duration(2 * time.Second),
		LayoutBiasWindow:     Duration(5 * time.Second),
		ContextTimeWindow:    Duration(30 * time.Second),
		ContextBiasThreshold: 0.5,
		MinContextWords:      2,
		MinWordLength:        2,
		UnknownProbability:   1e-5,
		TrigramWeight:        1.5,
		InputSources: map[string][]string{
			"latin":    {"com.apple.keylayout.ABC", "com.apple.keylayout.US"},
			"cyrillic": {"com.apple.keylayout.Russian", "com.apple.keylayout.RussianWin"},
		},
		Paths: Paths{
			ForcedConversions: filepath.Join(dataDir, "forced_conversions.json"),
			Exceptions:        filepath.Join(dataDir, "text_switcher_exceptions.json"),
			TechTerms:         filepath.Join(dataDir, "techterms.json"),
			Ngram:             filepath.Join(dataDir, "ngram.json"),
		},
	}
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "textswitcher")
}

// Load reads path and decodes it over the defaults, so a partial file
// only overrides the keys it sets. A missing file returns the defaults
// silently; an unreadable or malformed file logs once and returns the
// defaults unchanged — a corpus/config problem must never
// stop the coordinator from starting (spec §7 kind 3).
func Load(path string) *Config {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("read config %s: %v", path, err)
		}
		return cfg
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		log.Printf("parse config %s: %v", path, err)
		return Default()
	}
	return cfg
}
