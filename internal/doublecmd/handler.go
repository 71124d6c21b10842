// Package doublecmd implements the Double-Cmd handler from spec §4.K:
// the three strictly-ordered cases a double tap of the Command modifier
// can mean, plus the cancellable learning timer that promotes a manual
// switch into a forced conversion after a willful pause.
//
// The learning timer is a single fire-once closure guarded by a
// "cancelled" flag, the same shape tcell's interceptors.go wraps draw
// callbacks in (wrapDrawInterceptFunc) — here wrapping one deferred
// action instead of composing two.
package doublecmd

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/textswitcher/textswitcher/internal/config"
	"github.com/textswitcher/textswitcher/internal/forced"
	"github.com/textswitcher/textswitcher/internal/keytap"
	"github.com/textswitcher/textswitcher/internal/layout"
	"github.com/textswitcher/textswitcher/internal/textio"
	"github.com/textswitcher/textswitcher/internal/xlog"
)

var log = xlog.New("doublecmd")

// Host is the slice of keytap.Tap the handler needs: the most recent
// auto-switch (for case 2) and the current word buffer (for case 3's
// fallback when there is no selection). Tap implements this directly.
type Host interface {
	LastAutoSwitch() (keytap.AutoSwitchRecord, bool)
	ClearAutoSwitch()
	BufferAndPending() (string, bool)
	SetReplacing(bool)
	SetCurrentLayout(layout.Name)
}

// ManualSwitchRecord describes one committed manual (double-Cmd) switch.
type ManualSwitchRecord struct {
	Original  string
	Converted string
	At        time.Time
}

type learningTimer struct {
	timer     *time.Timer
	original  string
	converted string
	cancelled bool
}

// Handler is component K.
type Handler struct {
	mu sync.Mutex

	Host    Host
	Surface textio.Surface
	Forced  *forced.Store
	Config  *config.Config

	learning *learningTimer

	lastManualSwitch ManualSwitchRecord
	hasManualSwitch  bool

	onLearned      func(original, converted string)
	onManualSwitch func(ManualSwitchRecord)
}

var _ keytap.DoubleCmdHandler = (*Handler)(nil)

// New wires a Handler. cfg may be nil, in which case config.Default() is
// used.
func New(host Host, surf textio.Surface, f *forced.Store, cfg *config.Config) *Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Handler{Host: host, Surface: surf, Forced: f, Config: cfg}
}

// OnLearned registers a callback fired when the learning timer commits
// an entry to the forced-conversion store.
func (h *Handler) OnLearned(fn func(original, converted string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onLearned = fn
}

// OnManualSwitch registers a callback fired after every committed
// manual switch (case 3).
func (h *Handler) OnManualSwitch(fn func(ManualSwitchRecord)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onManualSwitch = fn
}

// Activate runs the three cases from spec §4.K in strict order; the
// first applicable one wins.
func (h *Handler) Activate(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Case 1: cancel pending learning.
	if h.learning != nil {
		lt := h.learning
		lt.cancelled = true
		lt.timer.Stop()
		h.learning = nil
		h.writeLocked(ctx, lt.converted, lt.original, 0)
		return
	}

	// Case 2: auto-rollback window.
	if rec, ok := h.Host.LastAutoSwitch(); ok {
		if time.Since(rec.At) <= time.Duration(h.Config.AutoRollbackWindow) {
			h.writeLocked(ctx, rec.Converted, rec.Original, rec.Trigger)
			h.Host.ClearAutoSwitch()
			return
		}
	}

	// Case 3: convert the selection, or the last word.
	h.convertSelectionOrLastWordLocked(ctx)
}

// writeLocked deletes `from` (plus a trailing boundary rune, if any) and
// writes `to` back in its place — the shared rewrite path spec §4.J
// item 5 (undo) and §4.K cases 1/2 (learning-cancel, auto-rollback) all
// describe as "the same rewrite path".
func (h *Handler) writeLocked(ctx context.Context, from, to string, trigger rune) {
	n := len([]rune(from))
	replacement := to
	if trigger != 0 {
		n++
		replacement += string(trigger)
	}
	h.Host.SetReplacing(true)
	defer h.Host.SetReplacing(false)
	if ok := h.Surface.WriteAtomic(ctx, n, replacement); !ok {
		if !h.Surface.WriteFallback(ctx, textio.SelectAndPaste, n, replacement) {
			log.Printf("rewrite failed: both atomic and fallback paths failed")
		}
	}
}

func (h *Handler) convertSelectionOrLastWordLocked(ctx context.Context) {
	var original, converted string
	var target layout.Name

	if sel, ok := h.Surface.ReadSelection(ctx); ok && len([]rune(sel)) >= 2 {
		original = sel
		converted = layout.ToggleLayout(sel)
		target = layout.DetectLayout(converted)
		h.writeLocked(ctx, sel, converted, 0)
	} else {
		buf, ok := h.Host.BufferAndPending()
		if !ok {
			return
		}
		detected := layout.DetectLayout(buf)
		if detected == layout.None {
			return
		}
		original = buf
		target = detected.Opposite()
		converted = layout.Convert(buf, detected, target, true)
		h.writeLocked(ctx, buf, converted, 0)
	}

	now := time.Now()
	rec := ManualSwitchRecord{Original: original, Converted: converted, At: now}
	h.lastManualSwitch = rec
	h.hasManualSwitch = true
	if h.onManualSwitch != nil {
		h.onManualSwitch(rec)
	}

	h.switchInputSourceLocked(target)
	h.armLearningTimerLocked(original, converted)
}

// switchInputSourceLocked tries each configured identifier for target in
// order and never blocks on failure (spec §6). The real OS selector
// binding is out of scope (spec §1); tryInputSource here always reports
// failure so the fallthrough-and-log shape is still exercised. The Host
// is told about the attempted switch either way: it is this handler's
// own intent to move the system input source to target, and with no
// real OS callback wired up it is the best available signal for the
// layout-switch timestamp spec §3 defines.
func (h *Handler) switchInputSourceLocked(target layout.Name) {
	h.Host.SetCurrentLayout(target)

	ids := h.Config.InputSources[string(target)]
	for _, id := range ids {
		if h.tryInputSource(id) {
			return
		}
	}
	log.Printf("no input source succeeded for layout %s (tried %v)", target, ids)
}

func (h *Handler) tryInputSource(id string) bool {
	return false
}

// armLearningTimerLocked starts the learningDelay-duration timer from
// spec §4.K: on fire, trailing punctuation is stripped from both sides
// and the pair is committed to the forced-conversion store.
func (h *Handler) armLearningTimerLocked(original, converted string) {
	lt := &learningTimer{original: original, converted: converted}
	lt.timer = time.AfterFunc(time.Duration(h.Config.LearningDelay), func() {
		h.mu.Lock()
		if lt.cancelled || h.learning != lt {
			h.mu.Unlock()
			return
		}
		h.learning = nil
		onLearned := h.onLearned
		h.mu.Unlock()

		trimmedOriginal := strings.TrimRightFunc(original, unicode.IsPunct)
		trimmedConverted := strings.TrimRightFunc(converted, unicode.IsPunct)
		if h.Forced != nil {
			h.Forced.Add(trimmedOriginal, trimmedConverted)
		}
		if onLearned != nil {
			onLearned(trimmedOriginal, trimmedConverted)
		}
	})
	h.learning = lt
}
