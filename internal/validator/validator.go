// Package validator implements HybridValidator (spec §4.H), the layered
// decision function that classifies a candidate word as keep or
// switch(targetLayout, reason). This is the heart of the system: every
// other component either feeds it inputs or acts on its verdict.
package validator

import (
	"context"

	"github.com/textswitcher/textswitcher/internal/config"
	"github.com/textswitcher/textswitcher/internal/dictionary"
	"github.com/textswitcher/textswitcher/internal/exceptions"
	"github.com/textswitcher/textswitcher/internal/forced"
	"github.com/textswitcher/textswitcher/internal/layout"
	"github.com/textswitcher/textswitcher/internal/ngram"
	"github.com/textswitcher/textswitcher/internal/sensitive"
	"github.com/textswitcher/textswitcher/internal/techterms"
)

// biasThreshold is layer 4's compareScores gap threshold (spec §6); it has
// no per-deployment config knob, unlike minWordLength below.
const biasThreshold = 1.5

// Verdict is the validator's output: either keep, or switch to Target
// with Result holding the literal replacement text and Reason the tag
// from spec §4.H's table.
type Verdict struct {
	Switch bool
	Target layout.Name
	Result string
	Reason string
}

func keep(reason string) Verdict {
	return Verdict{Switch: false, Reason: reason}
}

func switchTo(target layout.Name, result, reason string) Verdict {
	return Verdict{Switch: true, Target: target, Result: result, Reason: reason}
}

// Validator bundles the collaborators the layered pipeline consults.
type Validator struct {
	TechTerms  *techterms.Store
	Forced     *forced.Store
	Exceptions *exceptions.Store
	Ngram      *ngram.Scorer
	Dictionary dictionary.Oracle

	minWordLength int
}

// New wires a Validator from its collaborators. Dictionary may be nil, in
// which case it degrades to dictionary.NoopOracle{} (spec §4.G). cfg may
// be nil, in which case config.Default() is used for layer 0's minimum
// word length (spec §6).
func New(tt *techterms.Store, f *forced.Store, e *exceptions.Store, ng *ngram.Scorer, dict dictionary.Oracle, cfg *config.Config) *Validator {
	if dict == nil {
		dict = dictionary.NoopOracle{}
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Validator{TechTerms: tt, Forced: f, Exceptions: e, Ngram: ng, Dictionary: dict, minWordLength: cfg.MinWordLength}
}

// cliCommands is the closed set of recognised shell binaries for the
// cli_command / cli_argument layers (spec §4.H layers -2.4/-2.3). This is
// deliberately small and well-known rather than an exhaustive PATH scan —
// the spec's own literal scenario ("yarn dlx ghbdtn") only requires the
// latch to trigger on a handful of common tools.
var cliCommands = map[string]bool{
	"git": true, "npm": true, "yarn": true, "pnpm": true, "npx": true,
	"go": true, "docker": true, "kubectl": true, "ssh": true, "curl": true,
	"python": true, "python3": true, "pip": true, "node": true, "cargo": true,
	"brew": true, "make": true, "sudo": true, "bash": true, "zsh": true,
}

// IsCLICommand reports whether word is a recognised CLI binary name.
func IsCLICommand(word string) bool {
	return cliCommands[word]
}

// Bias carries the caller-computed context/layout-switch hint (spec §4.H:
// "Bias computation happens outside the validator"). Reason distinguishes
// which kind of bias it is, since that becomes the verdict's reason tag;
// a zero Bias (Target == layout.None) means no bias is in effect.
type Bias struct {
	Target layout.Name
	Reason string // "context_bias" or "layout_switch_bias"
}

// Validate runs the layered pipeline from spec §4.H. currentLayout is the
// layout detected for word; cliMode is true when the previous token was a
// recognised CLI command (the caller owns the one-shot latch, spec §3/§9
// open question (i)); bias is the caller-computed context or
// layout-switch bias.
func (v *Validator) Validate(ctx context.Context, word string, currentLayout layout.Name, cliMode bool, bias Bias) Verdict {
	// -2.5
	if sensitive.IsSensitive(word) {
		return keep("sensitive")
	}

	// -2.4
	if IsCLICommand(word) {
		return keep("cli_command")
	}

	// -2.3
	if cliMode {
		return keep("cli_argument")
	}

	// -2.2
	if v.Exceptions != nil && v.Exceptions.Contains(word) {
		return keep("user_exception")
	}

	// -2.1
	if corrected, ok := sensitive.CorrectedFilePath(word); ok {
		target := currentLayout.Opposite()
		return switchTo(target, corrected, "corrupted_file")
	}

	// -2.0
	if v.Forced != nil {
		if e, ok := v.Forced.Get(word); ok {
			target := layout.DetectLayout(e.ConvertedWord)
			return switchTo(target, e.ConvertedWord, "forced")
		}
	}

	opposite := currentLayout.Opposite()
	converted := layout.Convert(word, currentLayout, opposite, true)

	// -1
	if v.TechTerms != nil && v.TechTerms.Contains(word) {
		return keep("tech_buzzword")
	}

	// -1b
	if v.TechTerms != nil && v.TechTerms.Contains(converted) {
		return switchTo(opposite, converted, "mixed_buzzword:"+converted)
	}

	// 0
	if len([]rune(word)) < v.minWordLength {
		return keep("too_short")
	}

	// 1
	if ok, supported := v.Dictionary.IsSpelledCorrectly(ctx, word, currentLayout.LanguageCodeOf()); supported && ok {
		return keep("dict_valid")
	}

	// 2
	if ok, supported := v.Dictionary.IsSpelledCorrectly(ctx, converted, opposite.LanguageCodeOf()); supported && ok {
		return switchTo(opposite, converted, "dict_opposite")
	}

	// 3
	if v.Ngram != nil {
		probable := v.Ngram.ProbableLanguage(converted, currentLayout.LanguageCodeOf(), opposite.LanguageCodeOf())
		wordProbable := v.Ngram.ProbableLanguage(word, currentLayout.LanguageCodeOf(), opposite.LanguageCodeOf())
		if probable == opposite.LanguageCodeOf() && wordProbable != currentLayout.LanguageCodeOf() {
			return switchTo(opposite, converted, "ngram")
		}
	}

	// 4
	if bias.Target == opposite && v.Ngram != nil {
		diff := v.Ngram.CompareScores(converted, word, opposite.LanguageCodeOf())
		if diff > biasThreshold {
			reason := bias.Reason
			if reason == "" {
				reason = "context_bias"
			}
			return switchTo(opposite, converted, reason)
		}
	}

	// 5
	if target, result, ok := singleLetterWhitelist(word); ok {
		return switchTo(target, result, "single_letter_whitelist")
	}

	return keep("default_keep")
}

// singleLetterWhitelistTable is the literal four-pair table from spec
// §4.H layer 5.
var singleLetterWhitelistTable = map[string]struct {
	target layout.Name
	result string
}{
	"ш": {layout.Latin, "i"},
	"ф": {layout.Latin, "a"},
	"d": {layout.Cyrillic, "в"},
	"b": {layout.Cyrillic, "и"},
}

func singleLetterWhitelist(word string) (layout.Name, string, bool) {
	e, ok := singleLetterWhitelistTable[word]
	if !ok {
		return layout.None, "", false
	}
	return e.target, e.result, true
}
