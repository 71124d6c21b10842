package ngram

import (
	"os"
	"testing"
)

func loadTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s := New(nil)
	f, err := os.Open("testdata/ngram.json")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	s.Load(f)
	return s
}

func TestScoreKnownWordBeatsUnknown(t *testing.T) {
	s := loadTestScorer(t)
	known := s.Score("hello", "en")
	unknown := s.Score("zzzzz", "en")
	if known <= unknown {
		t.Fatalf("expected hello (%v) to score higher than zzzzz (%v)", known, unknown)
	}
}

func TestScoreShortStringIsZero(t *testing.T) {
	s := loadTestScorer(t)
	if got := s.Score("a", "en"); got != 0 {
		t.Fatalf("expected 0 for length<2 input, got %v", got)
	}
}

func TestScoreUnknownLanguageDegrades(t *testing.T) {
	s := loadTestScorer(t)
	got := s.Score("hello", "fr")
	// every bigram/trigram falls back to unknownProbability.
	if got == 0 {
		t.Fatal("expected a nonzero (very negative) score from unknownProbability fallback")
	}
}

func TestProbableLanguage(t *testing.T) {
	s := loadTestScorer(t)
	if got := s.ProbableLanguage("hello", "en", "ru"); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
	if got := s.ProbableLanguage("привет", "en", "ru"); got != "ru" {
		t.Fatalf("expected ru, got %q", got)
	}
}

func TestCompareScores(t *testing.T) {
	s := loadTestScorer(t)
	diff := s.CompareScores("hello", "zzzzz", "en")
	if diff <= 0 {
		t.Fatalf("expected hello to outscore zzzzz, diff=%v", diff)
	}
}

func TestLoadMalformedDegradesGracefully(t *testing.T) {
	s := New(nil)
	// No Load call at all: should not panic and should use unknownProbability.
	got := s.Score("hello", "en")
	if got == 0 {
		t.Fatal("expected degraded nonzero score even with no model loaded")
	}
}
