// Package pipeline implements component M: the offline, single-string
// entry point spec §4.M calls "the single source of truth for
// end-to-end behaviour" and the golden-file test harness drives.
//
// Tokenisation is clipperhouse/uax29/v2/words, the same library the rest
// of the retrieval pack's text-processing tools (grounded on
// clipperhouse-uax29 itself) use for Unicode word segmentation. A
// whitespace run is always its own token under UAX29; a run of
// non-whitespace tokens with nothing between them (e.g. a hyphen-joined
// UUID, which the segmenter itself breaks into several adjacent tokens at
// the hyphens) is regrouped into one chunk before validation, so a
// sensitive pattern spanning punctuation is judged as a whole rather than
// piecemeal.
package pipeline

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"

	"github.com/textswitcher/textswitcher/internal/config"
	"github.com/textswitcher/textswitcher/internal/layout"
	"github.com/textswitcher/textswitcher/internal/validator"
)

type historyEntry struct {
	layout layout.Name
	at     time.Time
}

// Pipeline holds the state that must survive across chunks within one
// Process call (and, if the caller chooses not to call Reset, across
// calls): the context-history ring and the CLI-mode latch.
//
// Unlike internal/keytap.Tap, whose interactive CLI-mode latch clears
// after exactly one non-command token (spec §8 property 10 — right for
// a continuous keystroke stream that never "ends"), Pipeline's latch
// holds for the rest of the current line. Spec §8's literal scenario 8
// ("yarn dlx ghbdtn" → unchanged, "arguments" plural) only parses if
// every token after the recognised command is suppressed, not just the
// first; a one-shot string has no further keystrokes to eventually
// un-latch it, so "to end of line" is this driver's reading of the same
// CLI-mode concept.
// Pipeline is not safe for concurrent use by multiple goroutines; like
// keytap.Tap's state machine, a single caller drives it one Process (or
// Reset) call at a time.
type Pipeline struct {
	Validator     *validator.Validator
	Config        *config.Config
	DefaultLayout layout.Name

	cliMode        bool
	contextHistory []historyEntry

	systemLayout         layout.Name
	lastLayoutSwitchTime time.Time
}

// New wires a Pipeline. cfg may be nil, in which case config.Default()
// is used.
func New(v *validator.Validator, cfg *config.Config) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Pipeline{Validator: v, Config: cfg, DefaultLayout: layout.Latin, systemLayout: layout.Latin}
}

// NotifyLayoutSwitch records that the system's active input source
// changed to n, stamping the layout-switch timestamp spec §3 defines
// layer 4's layout-switch bias from. A driver replaying a transcript
// that includes manual Double-Cmd toggles calls this the same way
// internal/keytap.Tap.SetCurrentLayout does for the interactive tap.
func (p *Pipeline) NotifyLayoutSwitch(n layout.Name) {
	if n != p.systemLayout {
		p.lastLayoutSwitchTime = time.Now()
	}
	p.systemLayout = n
}

// Reset clears the context-history ring and the CLI-mode latch, as spec
// §8 requires between independent literal scenarios ("the history ring
// is cleared between them").
func (p *Pipeline) Reset() {
	p.cliMode = false
	p.contextHistory = p.contextHistory[:0]
	p.systemLayout = layout.Latin
	p.lastLayoutSwitchTime = time.Time{}
}

// Process runs the full pipeline over text and returns the rewritten
// string (spec §4.M).
func (p *Pipeline) Process(text string) string {
	var out strings.Builder

	iter := words.FromString(text)
	var pending strings.Builder
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		out.WriteString(p.processChunk(pending.String()))
		pending.Reset()
	}

	for iter.Next() {
		tok := iter.Value()
		if isWhitespaceToken(tok) {
			flush()
			out.WriteString(tok)
			if strings.ContainsRune(tok, '\n') {
				p.Reset()
			}
			continue
		}
		pending.WriteString(tok)
	}
	flush()

	return out.String()
}

func isWhitespaceToken(tok string) bool {
	for _, r := range tok {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return len(tok) > 0
}

// processChunk runs one maximal non-whitespace run through the
// validator as a single unit, without further splitting. Common
// punctuation such as '!' is a fixed point of Convert, so "ghbdtn!"
// becomes "привет!"; a corrupted file name is caught by the validator's
// corrupted_file layer. Punctuation that shares a key with a letter
// (',', '.', ';', ...) is converted along with the rest of the chunk.
func (p *Pipeline) processChunk(chunk string) string {
	current := layout.DetectLayout(chunk)
	if current == layout.None {
		current = p.DefaultLayout
	}

	bias := p.computeBias(current)
	verdict := p.Validator.Validate(context.Background(), chunk, current, p.cliMode, bias)

	switch verdict.Reason {
	case "cli_command":
		p.cliMode = true
	case "cli_argument":
		// Deliberately NOT cleared here: see the Pipeline doc comment.
	}

	if verdict.Switch {
		p.contextHistory = append(p.contextHistory, historyEntry{layout: verdict.Target, at: time.Now()})
		return verdict.Result
	}
	return chunk
}

// computeBias implements spec §4.H/§3's two bias signals, mirroring
// internal/keytap.Tap.computeBiasLocked: context bias (30s ring, takes
// priority) then layout-switch bias (independent of the ring, keyed off
// lastLayoutSwitchTime alone so it can fire with an empty ring right
// after NotifyLayoutSwitch).
func (p *Pipeline) computeBias(current layout.Name) validator.Bias {
	opposite := current.Opposite()
	if opposite == layout.None {
		return validator.Bias{}
	}
	now := time.Now()

	cutoff := now.Add(-time.Duration(p.Config.ContextTimeWindow))
	kept := p.contextHistory[:0]
	for _, e := range p.contextHistory {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	p.contextHistory = kept

	if len(p.contextHistory) >= p.Config.MinContextWords {
		total, totalOpposite := 0, 0
		for _, e := range p.contextHistory {
			total++
			if e.layout == opposite {
				totalOpposite++
			}
		}
		if total > 0 && float64(totalOpposite)/float64(total) > p.Config.ContextBiasThreshold {
			return validator.Bias{Target: opposite, Reason: "context_bias"}
		}
	}

	if !p.lastLayoutSwitchTime.IsZero() &&
		now.Sub(p.lastLayoutSwitchTime) < time.Duration(p.Config.LayoutBiasWindow) &&
		current == p.systemLayout {
		return validator.Bias{Target: opposite, Reason: "layout_switch_bias"}
	}

	return validator.Bias{}
}
