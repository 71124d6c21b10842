// Package dictionary declares the black-box spellcheck oracle the
// validator consults (spec §4.G). The real implementation is OS/provider
// specific and explicitly out of scope (spec §1); this package provides
// only the interface and a no-op that reports every language as
// unsupported so the validator degrades to n-gram-only decisions rather
// than failing.
package dictionary

import "context"

// Oracle answers "is word a valid word in this language?" Implementations
// may not have resources for every language; the second return value
// reports whether the language is supported at all, which the validator
// uses to decide whether to trust a negative answer.
type Oracle interface {
	IsSpelledCorrectly(ctx context.Context, word, languageCode string) (correct, supported bool)
}

// NoopOracle reports every language as unsupported. The validator must
// not fail when the oracle is absent (spec §4.G) — this is that absence,
// made explicit rather than a nil interface callers have to guard against.
type NoopOracle struct{}

func (NoopOracle) IsSpelledCorrectly(context.Context, string, string) (bool, bool) {
	return false, false
}
