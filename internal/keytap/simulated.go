package keytap

import "time"

var _ Source = (*Simulated)(nil)

// Simulated is a Source driven directly by tests, grounded on
// tcell.SimulationScreen's InjectKey: it
// lets a caller feed a synthetic key stream without a real global hook.
type Simulated struct {
	handler func(Event)
}

// NewSimulated returns a Simulated with no handler registered yet.
func NewSimulated() *Simulated { return &Simulated{} }

func (s *Simulated) Start(handler func(Event)) error {
	s.handler = handler
	return nil
}

func (s *Simulated) Stop() { s.handler = nil }

func (s *Simulated) inject(ev Event) {
	if s.handler == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.handler(ev)
}

// InjectKey delivers a single key-down event.
func (s *Simulated) InjectKey(key Key, r rune, mod ModMask) {
	s.inject(Event{Key: key, Rune: r, Mod: mod})
}

// InjectCmd delivers a Cmd modifier-flag transition (pressed=true for
// Cmd-down, false for Cmd-up).
func (s *Simulated) InjectCmd(pressed bool) {
	s.inject(Event{Key: KeyCmd, Mod: ModCmd, Pressed: pressed})
}

// InjectRunes delivers one KeyRune event per rune of s, in order — a
// convenience for feeding whole words in tests.
func (s *Simulated) InjectRunes(str string) {
	for _, r := range str {
		s.InjectKey(KeyRune, r, ModNone)
	}
}
