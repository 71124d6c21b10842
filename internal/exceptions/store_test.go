package exceptions

import (
	"path/filepath"
	"testing"
)

func TestAddAndContains(t *testing.T) {
	dir := t.TempDir()
	s := Open(filepath.Join(dir, "text_switcher_exceptions.json"))
	defer s.Close()

	if s.Contains("privet") {
		t.Fatal("expected no entry before Add")
	}
	s.Add("privet", ReasonManual)
	if !s.Contains("PRIVET") {
		t.Fatal("Contains should be case-insensitive")
	}
}

func TestAddIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := Open(filepath.Join(dir, "text_switcher_exceptions.json"))
	defer s.Close()

	s.Add("privet", ReasonManual)
	s.Add("privet", ReasonAutoLearned)

	_, entries := s.Export()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(entries))
	}
	if entries[0].Reason != ReasonManual {
		t.Fatalf("first Add should win, got reason %q", entries[0].Reason)
	}
}

func TestAddWordsFromText(t *testing.T) {
	dir := t.TempDir()
	s := Open(filepath.Join(dir, "text_switcher_exceptions.json"))
	defer s.Close()

	n := s.AddWordsFromText("hi ok privet world a")
	if n != 2 {
		t.Fatalf("expected 2 new entries (privet, world >= 3 chars), got %d", n)
	}
	if !s.Contains("privet") || !s.Contains("world") {
		t.Fatal("expected privet and world to be added")
	}
	if s.Contains("hi") || s.Contains("ok") || s.Contains("a") {
		t.Fatal("short tokens should be filtered out")
	}
}

func TestImportMergesWithoutDuplicates(t *testing.T) {
	dir := t.TempDir()
	s := Open(filepath.Join(dir, "text_switcher_exceptions.json"))
	defer s.Close()

	s.Add("privet", ReasonManual)
	n := s.Import([]Entry{
		{Word: "privet", Reason: ReasonManual},
		{Word: "poka", Reason: ReasonAutoLearned},
	})
	if n != 1 {
		t.Fatalf("expected 1 new entry from import, got %d", n)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "text_switcher_exceptions.json")
	s := Open(path)
	s.Add("privet", ReasonManual)
	s.Close()

	s2 := Open(path)
	defer s2.Close()
	if !s2.Contains("privet") {
		t.Fatal("expected reloaded entry")
	}
}
