// Package forced implements the persistent forced-conversion whitelist
// (spec §4.D): a map from a wrong-layout token to the word the user
// actually intended, with a confirmation counter that promotes an entry
// to "hard knowledge" once it has been reinforced three times.
package forced

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/textswitcher/textswitcher/internal/tserr"
	"github.com/textswitcher/textswitcher/internal/xlog"
)

var log = xlog.New("forced")

// Entry is one forced-conversion record (spec §3).
type Entry struct {
	OriginalWord      string    `json:"originalWord"`
	ConvertedWord     string    `json:"convertedWord"`
	AddedAt           time.Time `json:"addedAt"`
	ConfirmationCount int       `json:"confirmationCount"`
}

// IsHardKnowledge reports whether this entry has been confirmed enough
// times that it should never be second-guessed.
func (e Entry) IsHardKnowledge() bool { return e.ConfirmationCount >= 3 }

// envelope is the on-disk shape: {version, exportedAt, conversions: [...]}.
type envelope struct {
	Version     int       `json:"version"`
	ExportedAt  time.Time `json:"exportedAt"`
	Conversions []Entry   `json:"conversions"`
}

const envelopeVersion = 1

// mutation is a closure applied serially by the store's single writer
// goroutine, the same "one writer, atomically-swapped read snapshot" shape
// spec §4.D requires ("a serial worker thread owns mutations; reads are on
// a snapshot map"). ack, if non-nil, is closed once the mutation (and its
// persist) has completed, so callers that need to observe their own write
// — tests, mainly — have something to wait on.
type mutation struct {
	apply func(map[string]Entry) map[string]Entry
	ack   chan struct{}
}

// Store is the persistent forced-conversion whitelist.
type Store struct {
	path string

	mu       sync.RWMutex // guards snapshot
	snapshot map[string]Entry

	mutations chan mutation
	done      chan struct{}
}

// Open loads path (if present) and starts the store's serial mutation
// worker. A missing file starts the store empty; a malformed file is
// logged once and also starts the store empty (spec §7 kind 3).
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

// Close stops the mutation worker. Pending mutations are drained first.
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

	entries, err := parseEnvelopeOrBareArray(data)
	if err != nil {
		log.Printf("parse %s: %v", s.path, err)
		return
	}

	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[strings.ToLower(e.OriginalWord)] = e
	}
	s.snapshot = m
}

func parseEnvelopeOrBareArray(data []byte) ([]Entry, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Conversions != nil {
		return env.Conversions, nil
	}
	// Backward compatibility: a bare array is accepted on read.
	var bare []Entry
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}

func (s *Store) persist(m map[string]Entry) {
	entries := make([]Entry, 0, len(m))
	for _, e := range m {
		entries = append(entries, e)
	}
	env := envelope{
		Version:     envelopeVersion,
		ExportedAt:  now(),
		Conversions: entries,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		log.Printf("marshal %s: %v", s.path, err)
		return
	}
	if err := writeTempThenRename(s.path, data); err != nil {
		log.Printf("%s: %v", s.path, fmt.Errorf("%w: %v", tserr.ErrPersist, err))
	}
}

// writeTempThenRename is the atomic-write idiom spec §3/§5 require for all
// three persistent stores: write to a temp file in the same directory,
// then rename over the target so readers never observe a partial file.
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

var now = time.Now

// Get returns the forced conversion for word, if any. Reads go through the
// snapshot map and never block on the mutation worker.
func (s *Store) Get(word string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.snapshot[strings.ToLower(word)]
	return e, ok
}

// Add records that original was converted to converted. If the key already
// exists its confirmation counter increments; otherwise a new entry is
// inserted with count 1. Add returns once the mutation has been applied
// and persisted.
func (s *Store) Add(original, converted string) {
	key := strings.ToLower(original)
	ack := make(chan struct{})
	s.mutations <- mutation{
		apply: func(m map[string]Entry) map[string]Entry {
			next := cloneEntries(m)
			if e, ok := next[key]; ok {
				e.ConfirmationCount++
				e.ConvertedWord = converted
				next[key] = e
			} else {
				next[key] = Entry{
					OriginalWord:      original,
					ConvertedWord:     converted,
					AddedAt:           now(),
					ConfirmationCount: 1,
				}
			}
			return next
		},
		ack: ack,
	}
	<-ack
}

func cloneEntries(m map[string]Entry) map[string]Entry {
	next := make(map[string]Entry, len(m)+1)
	for k, v := range m {
		next[k] = v
	}
	return next
}
