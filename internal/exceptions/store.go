// Package exceptions implements the persistent user-exception blacklist
// (spec §4.E): words the user has rejected automatic conversion for,
// looked up in O(1), with import/export helpers for the presentation
// layer's settings UI (out of scope here beyond the data operations).
package exceptions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/textswitcher/textswitcher/internal/tserr"
	"github.com/textswitcher/textswitcher/internal/xlog"
)

var log = xlog.New("exceptions")

// Reason records why a word was added to the blacklist.
type Reason string

const (
	ReasonManual      Reason = "manual"
	ReasonAutoLearned Reason = "auto_learned"
)

// Entry is one user-exception record (spec §3).
type Entry struct {
	Word    string    `json:"word"`
	AddedAt time.Time `json:"addedAt"`
	Reason  Reason    `json:"reason"`
}

type envelope struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Exceptions []Entry   `json:"exceptions"`
}

const envelopeVersion = 1

type mutation struct {
	apply func(map[string]Entry) map[string]Entry
	ack   chan struct{}
}

// Store is the persistent user-exception set.
type Store struct {
	path string

	mu       sync.RWMutex
	snapshot map[string]Entry // keyed by lowercase word

	mutations chan mutation
	done      chan struct{}
}

var now = time.Now

// Open loads path (if present) and starts the store's serial mutation
// worker, following the same shape as internal/forced.
func Open(path string) *Store {
	s := &Store{
		path:      path,
		snapshot:  map[string]Entry{},
		mutations: make(chan mutation, 16),
		done:      make(chan struct{}),
	}
	s.load()
	go s.run()
	return s
}

// Close stops the mutation worker, draining pending mutations first.
func (s *Store) Close() {
	close(s.mutations)
	<-s.done
}

func (s *Store) run() {
	defer close(s.done)
	for m := range s.mutations {
		s.mu.RLock()
		cur := s.snapshot
		s.mu.RUnlock()

		next := m.apply(cur)

		s.mu.Lock()
		s.snapshot = next
		s.mu.Unlock()

		s.persist(next)
		if m.ack != nil {
			close(m.ack)
		}
	}
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("load %s: %v", s.path, err)
		}
		return
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("parse %s: %v", s.path, err)
		return
	}
	m := make(map[string]Entry, len(env.Exceptions))
	for _, e := range env.Exceptions {
		m[strings.ToLower(e.Word)] = e
	}
	s.snapshot = m
}

func (s *Store) persist(m map[string]Entry) {
	entries := make([]Entry, 0, len(m))
	for _, e := range m {
		entries = append(entries, e)
	}
	env := envelope{Version: envelopeVersion, ExportedAt: now(), Exceptions: entries}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		log.Printf("marshal %s: %v", s.path, err)
		return
	}
	if err := writeTempThenRename(s.path, data); err != nil {
		log.Printf("%s: %v", s.path, fmt.Errorf("%w: %v", tserr.ErrPersist, err))
	}
}

func writeTempThenRename(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Contains reports whether word is a user exception, case-insensitively.
func (s *Store) Contains(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.snapshot[strings.ToLower(word)]
	return ok
}

// Add inserts word with the given reason if it isn't already present.
// Adding an already-present word is a no-op (word is unique, spec §3).
func (s *Store) Add(word string, reason Reason) {
	key := strings.ToLower(word)
	ack := make(chan struct{})
	s.mutations <- mutation{
		apply: func(m map[string]Entry) map[string]Entry {
			if _, ok := m[key]; ok {
				return m
			}
			next := cloneEntries(m)
			next[key] = Entry{Word: key, AddedAt: now(), Reason: reason}
			return next
		},
		ack: ack,
	}
	<-ack
}

// AddWordsFromText tokenises text on whitespace, keeps tokens of length >=
// 3, and adds each as a manual exception. It returns the number of
// genuinely new entries.
func (s *Store) AddWordsFromText(text string) int {
	added := 0
	for _, tok := range strings.Fields(text) {
		if len([]rune(tok)) < 3 {
			continue
		}
		if s.Contains(tok) {
			continue
		}
		s.Add(tok, ReasonManual)
		added++
	}
	return added
}

// Import merges entries into the store, skipping words already present,
// and returns the count of entries that were actually new.
func (s *Store) Import(entries []Entry) int {
	added := 0
	for _, e := range entries {
		if s.Contains(e.Word) {
			continue
		}
		s.Add(e.Word, e.Reason)
		added++
	}
	return added
}

// Export returns a sortable filename ("text_switcher_exceptions-<UTC time
// as 20060102T150405Z>.json") and the current entries sorted by word, for
// a caller that wants to write them out itself.
func (s *Store) Export() (filename string, entries []Entry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries = make([]Entry, 0, len(s.snapshot))
	for _, e := range s.snapshot {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Word < entries[j].Word })

	ts := now().UTC().Format("20060102T150405Z")
	filename = fmt.Sprintf("text_switcher_exceptions-%s.json", ts)
	return filename, entries
}

func cloneEntries(m map[string]Entry) map[string]Entry {
	next := make(map[string]Entry, len(m)+1)
	for k, v := range m {
		next[k] = v
	}
	return next
}
