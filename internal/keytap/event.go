// Package keytap implements the keyboard event tap from spec §4.J: a
// single listen-only subscriber to key-down and modifier-flag events
// that maintains the current-word buffer, detects the Double-Cmd and
// Cmd+Z gestures, and drives the validator/text-io write path.
//
// The Event/Key/ModMask model below is tcell's key.go (EventKey, Key,
// ModMask) adapted from a terminal's function-key set to this domain's:
// KeyRune plus the handful of control keys the tap actually cares about.
package keytap

import "time"

// Key identifies a key relevant to the tap. Anything outside this set
// arrives as KeyOther and is ignored by the buffer state machine.
type Key int

const (
	KeyRune Key = iota
	KeyEnter
	KeyTab
	KeySpace
	KeyBackspace
	KeyEsc
	KeyCmd
	KeyZ
	KeyOther
)

// ModMask is the small modifier set the spec's buffer maintenance and
// Double-Cmd detector distinguish; anything else is an "exotic" combo
// that item 1 says to ignore outright.
type ModMask int

const (
	ModNone  ModMask = 0
	ModShift ModMask = 1 << 0
	ModCaps  ModMask = 1 << 1
	ModCmd   ModMask = 1 << 2
)

// Event is one key-down or modifier-flag change delivered by a Source.
type Event struct {
	Key Key
	// Rune is only meaningful when Key == KeyRune.
	Rune rune
	// Mod carries whichever modifiers were held during a KeyRune/KeyZ
	// event, or identifies the modifier itself for a KeyCmd event.
	Mod ModMask
	// Pressed distinguishes key-down (true) from key-up (false) for
	// modifier-flag events (KeyCmd); it is meaningless for key-down-only
	// events like KeyRune, which terminals (and this domain) only ever
	// observe as a single press.
	Pressed bool
	At      time.Time
}

// Source abstracts the real OS event tap: start delivers events to
// handler until Stop is called or the tap is disabled by the host.
type Source interface {
	Start(handler func(Event)) error
	Stop()
}
