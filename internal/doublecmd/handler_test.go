package doublecmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/textswitcher/textswitcher/internal/config"
	"github.com/textswitcher/textswitcher/internal/forced"
	"github.com/textswitcher/textswitcher/internal/keytap"
	"github.com/textswitcher/textswitcher/internal/layout"
	"github.com/textswitcher/textswitcher/internal/textio"
)

// fakeHost is a minimal Host double: it hands back a fixed auto-switch
// record (or none) and a fixed buffer, and records SetReplacing and
// SetCurrentLayout calls.
type fakeHost struct {
	rec       keytap.AutoSwitchRecord
	hasRec    bool
	cleared   bool
	buffer    string
	hasBuffer bool
	replacing []bool
	layouts   []layout.Name
}

func (h *fakeHost) LastAutoSwitch() (keytap.AutoSwitchRecord, bool) { return h.rec, h.hasRec }
func (h *fakeHost) ClearAutoSwitch()                                { h.cleared = true }
func (h *fakeHost) BufferAndPending() (string, bool)                { return h.buffer, h.hasBuffer }
func (h *fakeHost) SetReplacing(v bool)                              { h.replacing = append(h.replacing, v) }
func (h *fakeHost) SetCurrentLayout(n layout.Name)                   { h.layouts = append(h.layouts, n) }

func newTestHandler(t *testing.T, host Host, initialText string) (*Handler, *textio.Simulated) {
	t.Helper()
	dir := t.TempDir()
	f := forced.Open(filepath.Join(dir, "forced_conversions.json"))
	t.Cleanup(f.Close)
	surf := textio.NewSimulated(initialText)
	cfg := config.Default()
	cfg.LearningDelay = config.Duration(30 * time.Millisecond)
	return New(host, surf, f, cfg), surf
}

func TestActivateAutoRollbackWithinWindow(t *testing.T) {
	host := &fakeHost{
		rec: keytap.AutoSwitchRecord{
			Word: "ghbdtn", Original: "ghbdtn", Converted: "привет",
			Trigger: ' ', At: time.Now(),
		},
		hasRec: true,
	}
	h, surf := newTestHandler(t, host, "привет ")

	h.Activate(context.Background())

	if got := surf.Text(); got != "ghbdtn " {
		t.Fatalf("expected rollback to restore original, got %q", got)
	}
	if !host.cleared {
		t.Fatal("expected ClearAutoSwitch to be called")
	}
}

func TestActivateAutoRollbackOutsideWindowFallsThroughToCase3(t *testing.T) {
	host := &fakeHost{
		rec: keytap.AutoSwitchRecord{
			Word: "ghbdtn", Original: "ghbdtn", Converted: "привет",
			Trigger: ' ', At: time.Now().Add(-time.Hour),
		},
		hasRec:    true,
		buffer:    "ytn",
		hasBuffer: true,
	}
	h, surf := newTestHandler(t, host, "привет ytn")
	surf.SetCursor(len([]rune("привет ytn")))

	h.Activate(context.Background())

	if got := surf.Text(); got == "ghbdtn ytn" {
		t.Fatal("stale auto-switch record outside its window must not be rolled back")
	}
	if host.cleared {
		t.Fatal("ClearAutoSwitch must not be called when the rollback window has passed")
	}
	// Case 3 should have run on the last word "ytn" instead.
	if got := surf.Text(); got != "привет нет" {
		t.Fatalf("expected case 3 conversion of the last word, got %q", got)
	}
}

func TestActivateCase3ConvertsSelection(t *testing.T) {
	host := &fakeHost{}
	h, surf := newTestHandler(t, host, "ghbdtn")
	surf.SetSelection(0, len([]rune("ghbdtn")))

	h.Activate(context.Background())

	if got := surf.Text(); got != "привет" {
		t.Fatalf("expected selection to convert, got %q", got)
	}
}

func TestActivateCase3ConvertsLastWordWhenNoSelection(t *testing.T) {
	host := &fakeHost{buffer: "ghbdtn", hasBuffer: true}
	h, surf := newTestHandler(t, host, "ghbdtn")
	surf.SetCursor(len([]rune("ghbdtn")))

	h.Activate(context.Background())

	if got := surf.Text(); got != "привет" {
		t.Fatalf("expected last word to convert, got %q", got)
	}
}

func TestLearningTimerCommitsToForcedStore(t *testing.T) {
	host := &fakeHost{buffer: "ghbdtn", hasBuffer: true}
	h, surf := newTestHandler(t, host, "ghbdtn")
	surf.SetCursor(len([]rune("ghbdtn")))

	learned := make(chan [2]string, 1)
	h.OnLearned(func(original, converted string) {
		learned <- [2]string{original, converted}
	})

	h.Activate(context.Background())

	select {
	case pair := <-learned:
		if pair[0] != "ghbdtn" || pair[1] != "привет" {
			t.Fatalf("expected learned pair (ghbdtn, привет), got %v", pair)
		}
	case <-time.After(time.Second):
		t.Fatal("learning timer never fired")
	}

	if e, ok := h.Forced.Get("ghbdtn"); !ok || e.ConvertedWord != "привет" {
		t.Fatalf("expected forced store entry for ghbdtn, got %+v ok=%v", e, ok)
	}
}

func TestActivateSecondTimeCancelsPendingLearning(t *testing.T) {
	host := &fakeHost{buffer: "ghbdtn", hasBuffer: true}
	h, surf := newTestHandler(t, host, "ghbdtn")
	surf.SetCursor(len([]rune("ghbdtn")))

	h.Activate(context.Background()) // case 3: converts, arms learning timer
	if got := surf.Text(); got != "привет" {
		t.Fatalf("expected conversion, got %q", got)
	}

	h.Activate(context.Background()) // case 1: cancels learning, restores original
	if got := surf.Text(); got != "ghbdtn" {
		t.Fatalf("expected case 1 to restore the original, got %q", got)
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := h.Forced.Get("ghbdtn"); ok {
		t.Fatal("expected learning to have been cancelled, not committed")
	}
}
