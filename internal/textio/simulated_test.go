package textio

import (
	"context"
	"errors"
	"testing"

	"github.com/textswitcher/textswitcher/internal/tserr"
)

func TestReadSelectionRequiresTwoChars(t *testing.T) {
	s := NewSimulated("hello world")
	s.SetSelection(0, 1)
	if _, ok := s.ReadSelection(context.Background()); ok {
		t.Fatal("expected single-character selection to be rejected")
	}
	s.SetSelection(0, 5)
	sel, ok := s.ReadSelection(context.Background())
	if !ok || sel != "hello" {
		t.Fatalf("expected hello/true, got %q/%v", sel, ok)
	}
}

func TestReadLastWordStopsAtWhitespace(t *testing.T) {
	s := NewSimulated("type ghbdtn")
	word, ok := s.ReadLastWord(context.Background())
	if !ok || word != "ghbdtn" {
		t.Fatalf("expected ghbdtn/true, got %q/%v", word, ok)
	}
}

func TestReadLastWordYieldsNothingAtBoundary(t *testing.T) {
	s := NewSimulated("   ")
	if _, ok := s.ReadLastWord(context.Background()); ok {
		t.Fatal("expected no word at an all-whitespace boundary")
	}
}

func TestWriteAtomicReplacesTrailingRun(t *testing.T) {
	s := NewSimulated("type ghbdtn")
	if ok := s.WriteAtomic(context.Background(), len("ghbdtn"), "привет"); !ok {
		t.Fatal("expected atomic write to succeed")
	}
	if got := s.Text(); got != "type привет" {
		t.Fatalf("expected %q, got %q", "type привет", got)
	}
}

func TestWriteAtomicFailureFallsBackToPaste(t *testing.T) {
	s := NewSimulated("type ghbdtn")
	s.FailNextAtomicWrite()
	if ok := s.WriteAtomic(context.Background(), len("ghbdtn"), "привет"); ok {
		t.Fatal("expected forced atomic-write failure")
	}
	if ok := s.WriteFallback(context.Background(), SelectAndPaste, len("ghbdtn"), "привет"); !ok {
		t.Fatal("expected fallback write to succeed")
	}
	if got := s.Text(); got != "type привет" {
		t.Fatalf("expected %q, got %q", "type привет", got)
	}
	if s.FallbackCallCount() != 1 {
		t.Fatalf("expected exactly one fallback call, got %d", s.FallbackCallCount())
	}
}

func TestWriteFallbackPasteOnlyUsesExistingSelection(t *testing.T) {
	s := NewSimulated("ghbdtn")
	s.SetSelection(0, 6)
	if ok := s.WriteFallback(context.Background(), PasteOnly, 0, "привет"); !ok {
		t.Fatal("expected fallback write to succeed")
	}
	if got := s.Text(); got != "привет" {
		t.Fatalf("expected %q, got %q", "привет", got)
	}
}

func TestOpenFallsThroughAndReportsPermissionMissing(t *testing.T) {
	if _, err := Open(); !errors.Is(err, tserr.ErrPermissionMissing) {
		t.Fatalf("expected ErrPermissionMissing without a registered platform backend, got %v", err)
	}
}
