// Package layout implements the bidirectional Latin/Cyrillic character
// tables and the per-character conversion, toggle, and detection
// operations described in spec §4.A.
//
// The registry below (Register/ByName) is modeled directly on
// tcell's encoding.go: a mutex-guarded name->value map that ships
// pre-populated with the built-in entries and stays open for more.
package layout

import (
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Name identifies one of the two supported layouts.
type Name string

const (
	Latin    Name = "latin"
	Cyrillic Name = "cyrillic"
	None     Name = ""
)

// LanguageCodeOf returns the registered layout's language code ("en",
// "ru"), or "" for None or an unregistered name.
func (n Name) LanguageCodeOf() string {
	l := ByName(n)
	if l == nil {
		return ""
	}
	return l.LanguageCode
}

// Opposite returns the other layout; it is its own inverse.
func (n Name) Opposite() Name {
	switch n {
	case Latin:
		return Cyrillic
	case Cyrillic:
		return Latin
	default:
		return None
	}
}

// Layout is an immutable character table plus its language code.
type Layout struct {
	Name         Name
	LanguageCode string // "en" or "ru"

	lowerToOpposite map[rune]rune
	upperToOpposite map[rune]rune
	// lettersLower is the set of lowercase letters this layout's map
	// recognises, used by detectLayout/isPureLayout.
	lettersLower map[rune]bool
}

// commonPunctuation holds characters with identical meaning on both
// layouts: fixed points of every conversion map. Populated in tables.go.
var commonPunctuation = map[rune]bool{}

func isCommon(r rune) bool {
	if commonPunctuation[r] {
		return true
	}
	if unicode.IsDigit(r) || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '!', '%', '*', '(', ')', '-', '_', '+', '=', '\\', '|':
		return true
	}
	return false
}

var (
	registryMu sync.Mutex
	registry   = map[Name]*Layout{}
)

// Register adds (or replaces) a named layout in the package-wide registry.
// Mirrors tcell.RegisterEncoding: callers may extend the set of known
// layouts without touching this package.
func Register(l *Layout) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[l.Name] = l
}

// ByName looks up a previously registered layout. It returns nil if the
// name is unknown, same contract as tcell.GetEncoding.
func ByName(n Name) *Layout {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[n]
}

func init() {
	Register(buildLatin())
	Register(buildCyrillic())
}

// Convert transforms s from the `from` layout to the `to` layout.
//
// For each code point: common punctuation and, when includeAllSymbols is
// false, any other non-letter is emitted verbatim. Otherwise the primary
// from->to map is consulted; if includeAllSymbols is true and the map
// misses, the reverse to->from map is tried (handles a character
// physically produced by the *other* layout's shift row). Anything still
// unresolved is emitted verbatim.
//
// If every letter in s is upper case and s is non-empty, the result is
// upper-cased afterward, preserving ALL CAPS even when a map target
// happens to be lowercase.
func Convert(s string, from, to Name, includeAllSymbols bool) string {
	if from == to || from == None || to == None {
		return s
	}
	fl := ByName(from)
	tl := ByName(to)
	if fl == nil || tl == nil {
		return s
	}

	s = norm.NFC.String(s)

	hadLetter := false
	allUpper := true

	out := make([]rune, 0, len(s))
	for _, r := range s {
		if isCommon(r) {
			out = append(out, r)
			continue
		}
		isLetter := unicode.IsLetter(r)
		if isLetter {
			hadLetter = true
			if !unicode.IsUpper(r) {
				allUpper = false
			}
		} else if !includeAllSymbols {
			out = append(out, r)
			continue
		}

		if mapped, ok := fl.lookupForward(r); ok {
			out = append(out, mapped)
			continue
		}
		if includeAllSymbols {
			if mapped, ok := tl.lookupForward(r); ok {
				out = append(out, mapped)
				continue
			}
		}
		out = append(out, r)
	}

	result := string(out)
	if hadLetter && allUpper {
		result = toUpperPreserveWidth(result)
	}
	return result
}

func toUpperPreserveWidth(s string) string {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = unicode.ToUpper(r)
	}
	return string(rs)
}

func (l *Layout) lookupForward(r rune) (rune, bool) {
	if unicode.IsUpper(r) {
		if v, ok := l.upperToOpposite[r]; ok {
			return v, true
		}
		return 0, false
	}
	if v, ok := l.lowerToOpposite[r]; ok {
		return v, true
	}
	return 0, false
}

// ToggleLayout flips each character to the opposite layout's character at
// the same physical key, trying Cyrillic->Latin first, then Latin->Cyrillic,
// falling back to identity per character. Intended for selections whose
// layout is mixed, so a whole-string from/to pair can't be assumed.
func ToggleLayout(s string) string {
	s = norm.NFC.String(s)
	cyr := ByName(Cyrillic)
	lat := ByName(Latin)

	out := make([]rune, 0, len(s))
	for _, r := range s {
		if isCommon(r) {
			out = append(out, r)
			continue
		}
		if v, ok := cyr.lookupForward(r); ok {
			out = append(out, v)
			continue
		}
		if v, ok := lat.lookupForward(r); ok {
			out = append(out, v)
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// DetectLayout counts letters recognised by each lowercase map and returns
// the majority layout; ties or no-letter input return None.
func DetectLayout(s string) Name {
	latCount, cyrCount := 0, 0
	lat := ByName(Latin)
	cyr := ByName(Cyrillic)
	for _, r := range norm.NFC.String(s) {
		lr := unicode.ToLower(r)
		if !unicode.IsLetter(r) {
			continue
		}
		if lat.lettersLower[lr] {
			latCount++
		}
		if cyr.lettersLower[lr] {
			cyrCount++
		}
	}
	switch {
	case latCount == 0 && cyrCount == 0:
		return None
	case latCount > cyrCount:
		return Latin
	case cyrCount > latCount:
		return Cyrillic
	default:
		return None
	}
}

// IsMappableRune reports whether r is common punctuation, any letter, or
// appears in either registered layout's map — the boundary test internal/textio
// uses when walking backward over the last word (spec §4.I).
func IsMappableRune(r rune) bool {
	if isCommon(r) {
		return true
	}
	if unicode.IsLetter(r) {
		return true
	}
	lat := ByName(Latin)
	cyr := ByName(Cyrillic)
	if _, ok := lat.lookupForward(r); ok {
		return true
	}
	if _, ok := cyr.lookupForward(r); ok {
		return true
	}
	return false
}

// IsPureLayout reports whether every letter in s belongs to l's map;
// digits and punctuation don't count.
func IsPureLayout(s string, n Name) bool {
	l := ByName(n)
	if l == nil {
		return false
	}
	for _, r := range norm.NFC.String(s) {
		if !unicode.IsLetter(r) {
			continue
		}
		if !l.lettersLower[unicode.ToLower(r)] {
			return false
		}
	}
	return true
}
