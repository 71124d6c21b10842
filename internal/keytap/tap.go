package keytap

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode"

	"github.com/textswitcher/textswitcher/internal/config"
	"github.com/textswitcher/textswitcher/internal/exceptions"
	"github.com/textswitcher/textswitcher/internal/layout"
	"github.com/textswitcher/textswitcher/internal/textio"
	"github.com/textswitcher/textswitcher/internal/tserr"
	"github.com/textswitcher/textswitcher/internal/validator"
	"github.com/textswitcher/textswitcher/internal/xlog"
)

var log = xlog.New("keytap")

const (
	bufferMaxLen  = 50
	bufferTailLen = 30
	replaceSettle = 220 * time.Millisecond
)

// AutoSwitchRecord describes one committed auto-switch; it is what the
// Cmd+Z undo detector and the Double-Cmd handler's auto-rollback case
// (spec §4.K case 2) both act on.
type AutoSwitchRecord struct {
	Word      string // the word as originally typed
	Original  string
	Converted string
	// Trigger is the boundary rune (space or punctuation) written back
	// unchanged alongside Converted, or 0 for an Enter/Tab boundary —
	// needed to find the right span to restore on undo/rollback.
	Trigger rune
	At      time.Time
}

type historyEntry struct {
	layout layout.Name
	at     time.Time
}

// DoubleCmdHandler is component K; the tap only detects the gesture and
// hands off, per spec §4.J item 4.
type DoubleCmdHandler interface {
	Activate(ctx context.Context)
}

// Tap owns the buffer state machine, the Double-Cmd and Undo detectors,
// and the commit of validator verdicts through a textio.Surface. It
// implements the Host interface internal/doublecmd consumes.
type Tap struct {
	mu sync.Mutex

	Validator  *validator.Validator
	Surface    textio.Surface
	Exceptions *exceptions.Store
	Source     Source
	DoubleCmd  DoubleCmdHandler

	Config *config.Config

	currentLayout        layout.Name
	lastLayoutSwitchTime time.Time
	cliMode              bool

	buffer             []rune
	pendingPunctuation []rune
	lastProcessedWord  string

	isReplacing bool

	cmdHeld             bool
	otherKeyDuringCmd   bool
	pendingFirstRelease time.Time

	lastAutoSwitch AutoSwitchRecord
	hasAutoSwitch  bool
	undoCounts     map[string]int

	contextHistory []historyEntry

	onAutoSwitch func(AutoSwitchRecord)
}

// New wires a Tap. cfg may be nil, in which case config.Default() is used.
func New(v *validator.Validator, surf textio.Surface, exc *exceptions.Store, src Source, cfg *config.Config) *Tap {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Tap{
		Validator:     v,
		Surface:       surf,
		Exceptions:    exc,
		Source:        src,
		Config:        cfg,
		currentLayout: layout.Latin,
		undoCounts:    map[string]int{},
	}
}

// SetDoubleCmdHandler wires component K after construction, breaking the
// natural Tap<->Handler cyclic dependency (spec §9's weak-back-reference
// note).
func (t *Tap) SetDoubleCmdHandler(h DoubleCmdHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.DoubleCmd = h
}

// SetCurrentLayout updates the tap's fallback layout guess, used when a
// word's own letters don't disambiguate (e.g. all-digit tokens). A real
// change also stamps the layout-switch timestamp spec §3 defines layer 4's
// layout-switch bias from (spec §4.J item "Layout-switch timestamp").
func (t *Tap) SetCurrentLayout(n layout.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n != t.currentLayout {
		t.lastLayoutSwitchTime = time.Now()
	}
	t.currentLayout = n
}

// OnAutoSwitch registers a callback invoked after every committed
// auto-switch; internal/coordinator uses this to broadcast its own
// observer notifications and tally counters.
func (t *Tap) OnAutoSwitch(fn func(AutoSwitchRecord)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAutoSwitch = fn
}

// Start subscribes to the Source. Tap-timeout recovery (spec §4.J item
// 3) is the Source's responsibility: a real OS tap re-arms itself and
// keeps delivering to the same handler, so Start need only be called
// once. A Source that can't (re-)subscribe reports it the same way the
// OS timeout-disable does, so callers handle both uniformly.
func (t *Tap) Start() error {
	if err := t.Source.Start(t.handle); err != nil {
		return fmt.Errorf("%w: %v", tserr.ErrTapTimeout, err)
	}
	return nil
}

func (t *Tap) Stop() { t.Source.Stop() }

// ResetOnApplicationSwitch implements spec §4.J item 2: clears the word
// buffer and the context-history ring.
func (t *Tap) ResetOnApplicationSwitch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffer = t.buffer[:0]
	t.pendingPunctuation = t.pendingPunctuation[:0]
	t.contextHistory = t.contextHistory[:0]
}

// SetReplacing lets the Double-Cmd handler (which performs its own
// writes through the same Surface) suppress the tap for the duration of
// its own write, exactly like the tap's own isReplacing flag.
func (t *Tap) SetReplacing(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isReplacing = v
}

func (t *Tap) handle(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.Key == KeyCmd {
		if t.isReplacing {
			// item 6: the synthetic paste's own Cmd-down/up must not
			// register as a Double Cmd.
			return
		}
		t.detectDoubleCmdLocked(ev)
		return
	}

	if ev.Key == KeyZ && t.cmdHeld {
		t.detectUndoLocked(ev)
		t.otherKeyDuringCmd = true
		return
	}

	if t.cmdHeld {
		t.otherKeyDuringCmd = true
	}

	if ev.Mod&^(ModShift|ModCaps) != 0 {
		return // exotic modifier combo: ignored (item 1)
	}

	if t.isReplacing {
		return
	}

	switch ev.Key {
	case KeyEnter, KeyTab:
		if t.processWordIfNeededLocked(0) {
			t.buffer = t.buffer[:0]
		}
	case KeySpace:
		if t.processWordIfNeededLocked(' ') {
			t.buffer = t.buffer[:0]
		}
	case KeyBackspace:
		if len(t.buffer) > 0 {
			t.buffer = t.buffer[:len(t.buffer)-1]
		}
	case KeyEsc:
		t.buffer = t.buffer[:0]
	case KeyRune:
		t.handleRuneLocked(ev.Rune)
	}
}

func (t *Tap) handleRuneLocked(r rune) {
	if isAppendable(r) {
		t.buffer = append(t.buffer, r)
		t.pendingPunctuation = t.pendingPunctuation[:0]
		if len(t.buffer) > bufferMaxLen {
			t.buffer = append([]rune{}, t.buffer[len(t.buffer)-bufferTailLen:]...)
		}
		return
	}

	if t.Validator.TechTerms != nil && t.Validator.TechTerms.MightBeCompound(string(t.buffer), r) {
		t.buffer = append(t.buffer, r)
		return
	}

	if t.processWordIfNeededLocked(r) {
		t.buffer = t.buffer[:0]
	}
	if unicode.IsPunct(r) {
		t.pendingPunctuation = append(t.pendingPunctuation, r)
	}
}

func isAppendable(r rune) bool {
	if unicode.IsSpace(r) {
		return false
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return layout.IsMappableRune(r)
}

// processWordIfNeededLocked validates the current buffer, commits any
// switch verdict, and reports whether it actually ran (false when
// isReplacing or the buffer is empty) — the caller clears the buffer iff
// this returns true, independent of whether a switch happened.
func (t *Tap) processWordIfNeededLocked(trigger rune) bool {
	if t.isReplacing || len(t.buffer) == 0 {
		return false
	}
	word := string(t.buffer)
	t.lastProcessedWord = word

	current := layout.DetectLayout(word)
	if current == layout.None {
		current = t.currentLayout
	}

	cliMode := t.cliMode
	bias := t.computeBiasLocked(current)

	verdict := t.Validator.Validate(context.Background(), word, current, cliMode, bias)

	if verdict.Reason == "cli_command" {
		t.cliMode = true
	} else if cliMode {
		t.cliMode = false
	}

	if verdict.Switch {
		t.commitSwitchLocked(word, trigger, verdict)
	}
	return true
}

func (t *Tap) commitSwitchLocked(word string, trigger rune, verdict validator.Verdict) {
	ctx := context.Background()
	deleteCount := len([]rune(word))
	replacement := verdict.Result
	if trigger != 0 {
		deleteCount++
		replacement += string(trigger)
	}

	t.isReplacing = true
	time.AfterFunc(replaceSettle, func() {
		t.mu.Lock()
		t.isReplacing = false
		t.mu.Unlock()
	})

	if ok := t.Surface.WriteAtomic(ctx, deleteCount, replacement); !ok {
		// The Surface interface doesn't distinguish "couldn't select"
		// from "selected but failed to set text" (spec §4.I names both
		// fallback flavours); SelectAndPaste is the safe default since
		// it re-establishes the selection unconditionally.
		if !t.Surface.WriteFallback(ctx, textio.SelectAndPaste, deleteCount, replacement) {
			log.Printf("write failed for %q: both atomic and fallback paths failed", word)
		}
	}

	now := time.Now()
	rec := AutoSwitchRecord{Word: word, Original: word, Converted: verdict.Result, Trigger: trigger, At: now}
	t.lastAutoSwitch = rec
	t.hasAutoSwitch = true
	t.contextHistory = append(t.contextHistory, historyEntry{layout: verdict.Target, at: now})

	if t.onAutoSwitch != nil {
		t.onAutoSwitch(rec)
	}
}

// computeBiasLocked implements spec §4.H/§3's two bias signals. Context
// bias looks at the 30s history ring and takes priority; layout-switch
// bias is independent of the ring entirely — it fires off
// lastLayoutSwitchTime alone, so it can trigger right after a manual
// toggle with no history at all.
func (t *Tap) computeBiasLocked(current layout.Name) validator.Bias {
	opposite := current.Opposite()
	if opposite == layout.None {
		return validator.Bias{}
	}
	now := time.Now()

	cutoff := now.Add(-time.Duration(t.Config.ContextTimeWindow))
	kept := t.contextHistory[:0]
	for _, e := range t.contextHistory {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	t.contextHistory = kept

	if len(t.contextHistory) >= t.Config.MinContextWords {
		total, totalOpposite := 0, 0
		for _, e := range t.contextHistory {
			total++
			if e.layout == opposite {
				totalOpposite++
			}
		}
		if total > 0 && float64(totalOpposite)/float64(total) > t.Config.ContextBiasThreshold {
			return validator.Bias{Target: opposite, Reason: "context_bias"}
		}
	}

	if !t.lastLayoutSwitchTime.IsZero() &&
		now.Sub(t.lastLayoutSwitchTime) < time.Duration(t.Config.LayoutBiasWindow) &&
		current == t.currentLayout {
		return validator.Bias{Target: opposite, Reason: "layout_switch_bias"}
	}

	return validator.Bias{}
}

func (t *Tap) detectDoubleCmdLocked(ev Event) {
	if ev.Pressed {
		t.cmdHeld = true
		t.otherKeyDuringCmd = false
		return
	}

	held := t.cmdHeld
	t.cmdHeld = false
	if !held {
		return
	}
	if t.otherKeyDuringCmd {
		t.pendingFirstRelease = time.Time{}
		return
	}
	if !t.pendingFirstRelease.IsZero() && ev.At.Sub(t.pendingFirstRelease) <= time.Duration(t.Config.DoubleCmdThreshold) {
		t.pendingFirstRelease = time.Time{}
		if h := t.DoubleCmd; h != nil {
			// The handler calls back into the Tap (LastAutoSwitch,
			// SetReplacing, ...), so t.mu is released for the hand-off.
			t.mu.Unlock()
			h.Activate(context.Background())
			t.mu.Lock()
		}
		return
	}
	t.pendingFirstRelease = ev.At
}

func (t *Tap) detectUndoLocked(ev Event) {
	if !t.hasAutoSwitch {
		return
	}
	if ev.At.Sub(t.lastAutoSwitch.At) > time.Duration(t.Config.CmdZUndoWindow) {
		return
	}
	rec := t.lastAutoSwitch
	ctx := context.Background()
	deleteCount := len([]rune(rec.Converted))
	replacement := rec.Original
	if rec.Trigger != 0 {
		deleteCount++
		replacement += string(rec.Trigger)
	}
	if ok := t.Surface.WriteAtomic(ctx, deleteCount, replacement); !ok {
		t.Surface.WriteFallback(ctx, textio.SelectAndPaste, deleteCount, replacement)
	}

	t.undoCounts[rec.Word]++
	if t.undoCounts[rec.Word] >= 2 {
		if t.Exceptions != nil {
			t.Exceptions.Add(rec.Word, exceptions.ReasonAutoLearned)
		}
		delete(t.undoCounts, rec.Word)
	}
	t.hasAutoSwitch = false
}

// LastAutoSwitch reports the most recent committed auto-switch, for the
// Double-Cmd handler's auto-rollback case (spec §4.K case 2).
func (t *Tap) LastAutoSwitch() (AutoSwitchRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastAutoSwitch, t.hasAutoSwitch
}

// ClearAutoSwitch is called by the Double-Cmd handler once it has rolled
// an auto-switch back, so a second double-Cmd doesn't roll back the same
// record twice.
func (t *Tap) ClearAutoSwitch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hasAutoSwitch = false
}

// BufferAndPending returns the current word buffer joined with any
// pending trailing punctuation, and whether the buffer is non-empty —
// the Double-Cmd handler's case 3 fallback when there is no selection.
func (t *Tap) BufferAndPending() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buffer) > 0 {
		return string(t.buffer) + string(t.pendingPunctuation), true
	}
	if t.lastProcessedWord != "" {
		return t.lastProcessedWord + string(t.pendingPunctuation), true
	}
	return "", false
}
