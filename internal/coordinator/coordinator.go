// Package coordinator implements component L: the on/off lifecycle that
// owns every other collaborator, exposes Pause/Resume for a hypothetical
// voice-capture collaborator (out of scope per spec §1, but the seam is
// real), tallies auto/manual switch counts, and fans observer
// notifications out to every subscriber.
package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/textswitcher/textswitcher/assets"
	"github.com/textswitcher/textswitcher/internal/config"
	"github.com/textswitcher/textswitcher/internal/dictionary"
	"github.com/textswitcher/textswitcher/internal/doublecmd"
	"github.com/textswitcher/textswitcher/internal/exceptions"
	"github.com/textswitcher/textswitcher/internal/forced"
	"github.com/textswitcher/textswitcher/internal/keytap"
	"github.com/textswitcher/textswitcher/internal/layout"
	"github.com/textswitcher/textswitcher/internal/ngram"
	"github.com/textswitcher/textswitcher/internal/techterms"
	"github.com/textswitcher/textswitcher/internal/textio"
	"github.com/textswitcher/textswitcher/internal/validator"
	"github.com/textswitcher/textswitcher/internal/xlog"
)

var log = xlog.New("coordinator")

// Observer is the presentation-layer seam: one method per broadcast kind,
// modeled line-for-line on tcell.interceptors' "combine, don't replace"
// idiom, generalized from a single field to a slice of subscribers since
// spec §9 allows more than one (Subscribe appends rather than wraps).
type Observer interface {
	OnLearned(original, converted string)
	OnAutoSwitch(rec keytap.AutoSwitchRecord)
	OnManualSwitch(rec doublecmd.ManualSwitchRecord)
}

// Stats reports the running tallies spec §4.L calls for.
type Stats struct {
	AutoSwitches   int
	ManualSwitches int
}

// Coordinator wires components D, E, F/G, H, I, J, K together and owns
// the single on/off flag that gates the event tap.
type Coordinator struct {
	mu sync.Mutex

	Config *config.Config

	Tap       *keytap.Tap
	DoubleCmd *doublecmd.Handler
	Surface   textio.Surface
	Validator *validator.Validator

	TechTerms  *techterms.Store
	Forced     *forced.Store
	Exceptions *exceptions.Store
	Ngram      *ngram.Scorer

	monitoringActive bool
	paused           bool

	stats Stats

	observers []Observer
}

// New wires every collaborator from cfg's paths and constants but does
// not yet start the tap; call Start for that. Surface acquisition
// happens in Start, since it is the step that can fail for want of
// Accessibility permission (spec §4.L, "Permissions").
func New(cfg *config.Config) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}

	seedAssetIfMissing(cfg.Paths.TechTerms, assets.TechTerms)
	seedAssetIfMissing(cfg.Paths.Ngram, assets.Ngram)

	tt := techterms.New()
	tt.LoadFile(cfg.Paths.TechTerms)

	f := forced.Open(cfg.Paths.ForcedConversions)
	e := exceptions.Open(cfg.Paths.Exceptions)

	ng := ngram.New(cfg)
	ng.LoadFile(cfg.Paths.Ngram)

	v := validator.New(tt, f, e, ng, dictionary.NoopOracle{}, cfg)

	c := &Coordinator{
		Config:     cfg,
		Validator:  v,
		TechTerms:  tt,
		Forced:     f,
		Exceptions: e,
		Ngram:      ng,
	}
	return c
}

// seedAssetIfMissing copies the embedded default corpus to path the first
// time the app-data directory is used, so techterms.Store and ngram.Scorer
// always have something to load even before the user's own data exists.
// An existing file, however small, is left untouched.
func seedAssetIfMissing(path string, data []byte) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err == nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("seed %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("seed %s: %v", path, err)
	}
}

// Close releases the persistent stores' background writers.
func (c *Coordinator) Close() {
	c.Forced.Close()
	c.Exceptions.Close()
}

// Start acquires a textio.Surface via textio.Open, then wires it up
// through StartWithSurface. Permission failures (spec §7 kind 1) are
// surfaced once here and leave MonitoringActive false with no retries.
func (c *Coordinator) Start(src keytap.Source) error {
	surf, err := textio.Open()
	if err != nil {
		c.mu.Lock()
		log.Printf("monitoring not started: %v", err)
		c.monitoringActive = false
		c.mu.Unlock()
		return err
	}
	return c.StartWithSurface(src, surf)
}

// StartWithSurface wires the tap and Double-Cmd handler to a
// caller-supplied Surface, skipping textio.Open — the seam this package's
// own tests use to drive a textio.Simulated instead of the real OS binding.
func (c *Coordinator) StartWithSurface(src keytap.Source, surf textio.Surface) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Surface = surf

	tap := keytap.New(c.Validator, surf, c.Exceptions, src, c.Config)
	tap.OnAutoSwitch(func(rec keytap.AutoSwitchRecord) {
		c.mu.Lock()
		c.stats.AutoSwitches++
		obs := append([]Observer{}, c.observers...)
		c.mu.Unlock()
		for _, o := range obs {
			o.OnAutoSwitch(rec)
		}
	})
	c.Tap = tap

	dc := doublecmd.New(tap, surf, c.Forced, c.Config)
	dc.OnManualSwitch(func(rec doublecmd.ManualSwitchRecord) {
		c.mu.Lock()
		c.stats.ManualSwitches++
		obs := append([]Observer{}, c.observers...)
		c.mu.Unlock()
		for _, o := range obs {
			o.OnManualSwitch(rec)
		}
	})
	dc.OnLearned(func(original, converted string) {
		c.mu.Lock()
		obs := append([]Observer{}, c.observers...)
		c.mu.Unlock()
		for _, o := range obs {
			o.OnLearned(original, converted)
		}
	})
	c.DoubleCmd = dc
	tap.SetDoubleCmdHandler(dc)

	if err := tap.Start(); err != nil {
		log.Printf("monitoring not started: %v", err)
		c.monitoringActive = false
		return err
	}

	c.monitoringActive = true
	return nil
}

// Stop tears the tap down; MonitoringActive reports false afterward.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Tap != nil {
		c.Tap.Stop()
	}
	c.monitoringActive = false
}

// Pause silences the tap for the duration of a collaborator that needs
// exclusive access to the keyboard stream (spec §4.L: "pause during
// voice capture"). It is idempotent.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused || c.Tap == nil {
		return
	}
	c.Tap.Stop()
	c.paused = true
}

// Resume reverses Pause, re-subscribing the tap to its Source.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused || c.Tap == nil {
		return
	}
	if err := c.Tap.Start(); err != nil {
		log.Printf("resume failed: %v", err)
		return
	}
	c.paused = false
}

// MonitoringActive reports whether the tap is currently live.
func (c *Coordinator) MonitoringActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitoringActive && !c.paused
}

// Subscribe appends o to the observer list; every future broadcast goes
// to every subscriber, in subscription order.
func (c *Coordinator) Subscribe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Stats returns a snapshot of the running auto/manual switch tallies.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ManualConvert lets the presentation layer trigger component K directly
// (e.g. a menu-bar "Convert Selection" action) rather than only through
// the Double-Cmd gesture.
func (c *Coordinator) ManualConvert(ctx context.Context) {
	c.mu.Lock()
	dc := c.DoubleCmd
	c.mu.Unlock()
	if dc != nil {
		dc.Activate(ctx)
	}
}

// SetCurrentLayout forwards to the tap, for a host that tracks the OS
// input source independently (spec §4.H's detectLayout fallback).
func (c *Coordinator) SetCurrentLayout(n layout.Name) {
	c.mu.Lock()
	tap := c.Tap
	c.mu.Unlock()
	if tap != nil {
		tap.SetCurrentLayout(n)
	}
}
