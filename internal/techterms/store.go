// Package techterms holds the case-insensitive "never convert" tech-term
// vocabulary (spec §4.C): a closed set loaded once from a categorised JSON
// asset, plus a look-ahead check used while a word buffer is being
// assembled to keep compound terms like "gpt-4" or "react-router" from
// being split at the hyphen.
package techterms

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/textswitcher/textswitcher/internal/layout"
	"github.com/textswitcher/textswitcher/internal/tserr"
	"github.com/textswitcher/textswitcher/internal/xlog"
)

var log = xlog.New("techterms")

// compoundJoiners is the set of characters spec §4.C names as valid
// look-ahead triggers for a compound term in progress.
var compoundJoiners = map[rune]bool{'-': true, '+': true, '#': true, '.': true}

// Store is a case-insensitive set of tokens, safe for concurrent reads.
// Alongside the plain membership set it keeps a look-ahead prefix set
// (spec §4.C) covering every point in every term where a compound joiner
// appears, so MightBeCompound is an O(1) map lookup rather than a scan.
type Store struct {
	mu       sync.RWMutex
	terms    map[string]bool // lowercased
	prefixes map[string]bool // lowercased "prefix+joiner" fragments
}

// New returns an empty store. Use Load to populate it from an asset.
func New() *Store {
	return &Store{terms: map[string]bool{}, prefixes: map[string]bool{}}
}

// Load reads a categorised JSON asset of the shape {"category": ["term",
// ...], ...} and replaces the store's contents. A missing or malformed
// asset leaves the store empty and logs once, per spec §7 kind 3 — it
// never returns an error that would stop the caller.
func (s *Store) Load(r io.Reader) {
	var categories map[string][]string
	if err := json.NewDecoder(r).Decode(&categories); err != nil {
		log.Printf("%v: %v", tserr.ErrCorpusLoad, err)
		return
	}
	terms := make(map[string]bool)
	prefixes := make(map[string]bool)
	for _, list := range categories {
		for _, term := range list {
			lower := strings.ToLower(term)
			terms[lower] = true
			for i, r := range lower {
				if compoundJoiners[r] {
					prefixes[lower[:i+len(string(r))]] = true
				}
			}
		}
	}
	s.mu.Lock()
	s.terms = terms
	s.prefixes = prefixes
	s.mu.Unlock()
}

// LoadFile is a convenience wrapper around Load for a path on disk.
func (s *Store) LoadFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("%v: %v", tserr.ErrCorpusLoad, err)
		return
	}
	defer f.Close()
	s.Load(f)
}

// Contains reports whether word is a known tech term, case-insensitively.
func (s *Store) Contains(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terms[strings.ToLower(word)]
}

// MightBeCompound reports whether buffer+nextChar is the prefix of any
// known term. nextChar must be one of compoundJoiners; the buffer
// maintenance state machine (component J) uses this to decide whether to
// keep accumulating rather than treat nextChar as a word boundary.
//
// A reverse check is also performed against the buffer transliterated to
// the opposite layout, so a buffer typed in the wrong layout (e.g.
// "вфдд-" for "dall-") still extends correctly.
func (s *Store) MightBeCompound(buffer string, nextChar rune) bool {
	if !compoundJoiners[nextChar] {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := strings.ToLower(buffer) + string(nextChar)
	if s.prefixes[prefix] {
		return true
	}

	detected := layout.DetectLayout(buffer)
	if detected == layout.None {
		return false
	}
	flipped := layout.Convert(buffer, detected, detected.Opposite(), true)
	flippedPrefix := strings.ToLower(flipped) + string(nextChar)
	return s.prefixes[flippedPrefix]
}
