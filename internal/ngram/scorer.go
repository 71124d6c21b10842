// Package ngram implements the bigram+trigram log-probability language
// scorer described in spec §4.F: a per-language score for how plausible a
// string is under that language's letter statistics, used by the
// validator's "ngram" and "context_bias"/"layout_switch_bias" layers.
package ngram

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/textswitcher/textswitcher/internal/config"
	"github.com/textswitcher/textswitcher/internal/xlog"
)

var log = xlog.New("ngram")

// compareThreshold is the log-space gap probableLanguage requires between
// the two languages' scores before it will pick a winner (spec §4.F).
const compareThreshold = 2.0

type languageModel struct {
	Bigrams  map[string]float64 `json:"bigrams"`
	Trigrams map[string]float64 `json:"trigrams"`
}

// bundle is the on-disk shape: {"en": {...}, "ru": {...}}.
type bundle map[string]languageModel

// Scorer holds the loaded bigram/trigram models for every language code,
// plus the two tunable constants from spec §6: the fixed fallback used
// for any bigram or trigram absent from a language's model, and the
// weight that scales the trigram term relative to the bigram term
// (score = Σ log P(bigram) + trigramWeight·Σ log P(trigram)).
type Scorer struct {
	mu     sync.RWMutex
	models bundle

	unknownProbability float64
	trigramWeight      float64
}

// New returns an empty scorer tuned from cfg (or config.Default() if cfg
// is nil); use Load to populate it.
func New(cfg *config.Config) *Scorer {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Scorer{
		models:             bundle{},
		unknownProbability: cfg.UnknownProbability,
		trigramWeight:      cfg.TrigramWeight,
	}
}

// Load reads a precomputed JSON bundle and replaces the scorer's models. A
// missing or malformed bundle leaves the scorer without models — Score
// then always returns unknownProbability-only sums (spec §7 kind 3).
func (s *Scorer) Load(r io.Reader) {
	var b bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		log.Printf("load ngram bundle: %v", err)
		return
	}
	s.mu.Lock()
	s.models = b
	s.mu.Unlock()
}

// LoadFile is a convenience wrapper around Load for a path on disk.
func (s *Scorer) LoadFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("load ngram bundle %s: %v", path, err)
		return
	}
	defer f.Close()
	s.Load(f)
}

// Score computes Σ log P(bigram) + trigramWeight·Σ log P(trigram) (1.5 by
// default) for s under
// languageCode's model. s is lowercased first; inputs shorter than two
// runes score 0 (there are no bigrams to sum).
func (s *Scorer) Score(word, languageCode string) float64 {
	word = strings.ToLower(word)
	runes := []rune(word)
	if len(runes) < 2 {
		return 0
	}

	s.mu.RLock()
	model, ok := s.models[languageCode]
	s.mu.RUnlock()

	score := 0.0
	for i := 0; i+1 < len(runes); i++ {
		bg := string(runes[i : i+2])
		score += math.Log(s.lookup(model.Bigrams, bg, ok))
	}
	for i := 0; i+2 < len(runes); i++ {
		tg := string(runes[i : i+3])
		score += s.trigramWeight * math.Log(s.lookup(model.Trigrams, tg, ok))
	}
	return score
}

func (s *Scorer) lookup(m map[string]float64, key string, modelKnown bool) float64 {
	if !modelKnown {
		return s.unknownProbability
	}
	if p, ok := m[key]; ok && p > 0 {
		return p
	}
	return s.unknownProbability
}

// CompareScores returns Score(a, lang) - Score(b, lang) for a language;
// used by the validator's context-bias layer to decide whether the
// converted form is meaningfully more probable than the original.
func (s *Scorer) CompareScores(a, b, languageCode string) float64 {
	return s.Score(a, languageCode) - s.Score(b, languageCode)
}

// ProbableLanguage returns the language code whose score for s exceeds the
// other by at least compareThreshold (in log-space), else "".
func (s *Scorer) ProbableLanguage(word, langA, langB string) string {
	scoreA := s.Score(word, langA)
	scoreB := s.Score(word, langB)
	switch {
	case scoreA-scoreB >= compareThreshold:
		return langA
	case scoreB-scoreA >= compareThreshold:
		return langB
	default:
		return ""
	}
}
