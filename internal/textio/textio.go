// Package textio implements the read/write seam onto the host's focused
// UI element described in spec §4.I: an Accessibility-backed path tried
// first, a keystroke-and-clipboard fallback tried second. The factory
// that tries backends in order and falls through on failure is modeled
// on tcell's NewScreen/NewTerminfoScreen/NewConsoleScreen chain.
package textio

import (
	"context"

	"github.com/textswitcher/textswitcher/internal/tserr"
	"github.com/textswitcher/textswitcher/internal/xlog"
)

var log = xlog.New("textio")

// FallbackMode distinguishes the two keystroke-fallback flavours from
// spec §4.I, chosen by how the atomic write failed.
type FallbackMode int

const (
	// SelectAndPaste: the atomic write could not even establish a
	// selection; the fallback must select backward before pasting.
	SelectAndPaste FallbackMode = iota
	// PasteOnly: the atomic write had a selection but failed to set the
	// text; it is already highlighted, so the fallback only pastes.
	PasteOnly
)

// Surface is the read/write seam onto the focused UI element. Callers
// drive it from the main event loop only, so an implementation need not
// guard against concurrent callers (Simulated locks anyway).
type Surface interface {
	// ReadSelection returns the focused element's selected text. ok is
	// false when there is no selection or it is shorter than two
	// characters (spec §4.I).
	ReadSelection(ctx context.Context) (text string, ok bool)

	// ReadLastWord walks backward from the cursor, accumulating letters
	// and layout-mappable punctuation, until whitespace or a
	// non-mappable boundary.
	ReadLastWord(ctx context.Context) (text string, ok bool)

	// WriteAtomic replaces the n characters before the cursor with
	// replacement by selecting them, then assigning text to the
	// selection attribute. It reports whether the whole sequence
	// succeeded; a false return tells the caller which WriteFallback
	// flavour applies (spec §4.I).
	WriteAtomic(ctx context.Context, n int, replacement string) bool

	// WriteFallback deletes n characters with synthetic Backspace
	// events (a no-op under PasteOnly, since the primary path already
	// highlighted them) and pastes replacement via the clipboard.
	WriteFallback(ctx context.Context, mode FallbackMode, n int, replacement string) bool
}

// backend constructs a Surface, or reports why its OS collaborator
// isn't available right now.
type backend func() (Surface, error)

// backends is tried in order by Open, mirroring tcell.NewScreen's
// terminfo-then-console fallthrough. A real platform binding (the
// Accessibility API, a synthetic key-event emitter) is an OS-specific
// build that is out of scope here (spec §1); both stand-ins report
// ErrPermissionMissing so Open's fallthrough shape is exercised and a
// platform package can drop in a working backend later.
var backends = []backend{newAXSurface, newKeystrokeOnlySurface}

// Open tries each registered backend in turn and returns the first that
// succeeds. If every backend fails, it returns tserr.ErrPermissionMissing
// (spec §7 kind 1); the caller (internal/coordinator) must leave
// monitoring off and report monitoringActive=false rather than retry.
func Open() (Surface, error) {
	var lastErr error
	for _, b := range backends {
		s, err := b()
		if err == nil {
			return s, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = tserr.ErrPermissionMissing
	}
	log.Printf("no text-io backend available: %v", lastErr)
	return nil, lastErr
}

func newAXSurface() (Surface, error) {
	return nil, tserr.ErrPermissionMissing
}

func newKeystrokeOnlySurface() (Surface, error) {
	return nil, tserr.ErrPermissionMissing
}
