package textio

import (
	"context"
	"sync"
	"time"

	"github.com/textswitcher/textswitcher/internal/layout"
)

var _ Surface = (*Simulated)(nil)

// Simulated is an in-memory Surface: the textio analogue of
// tcell.SimulationScreen, holding a fake "focused element" (text,
// cursor, selection, clipboard) that tests drive directly instead of
// hooking a real OS.
type Simulated struct {
	mu sync.Mutex

	text     []rune
	cursor   int
	selStart int
	selEnd   int // selEnd <= selStart means no selection

	clipboard string

	failNextAtomicWrite bool
	fallbackCalls       []fallbackCall
}

type fallbackCall struct {
	Mode        FallbackMode
	DeleteCount int
	Replacement string
}

// NewSimulated returns a Simulated whose focused element starts with the
// given text and the cursor at its end.
func NewSimulated(initialText string) *Simulated {
	r := []rune(initialText)
	return &Simulated{text: r, cursor: len(r)}
}

// SetCursor moves the caret within the element's text.
func (s *Simulated) SetCursor(pos int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.text) {
		pos = len(s.text)
	}
	s.cursor = pos
}

// SetSelection marks [start, end) of the element's text as selected.
func (s *Simulated) SetSelection(start, end int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selStart, s.selEnd = start, end
}

// Text returns the full current value of the simulated element.
func (s *Simulated) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.text)
}

// Clipboard returns the last value written to the simulated pasteboard.
func (s *Simulated) Clipboard() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clipboard
}

// FailNextAtomicWrite forces the next WriteAtomic call to report
// failure, so callers can exercise both WriteFallback flavours from
// spec §4.I.
func (s *Simulated) FailNextAtomicWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextAtomicWrite = true
}

func (s *Simulated) ReadSelection(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selEnd <= s.selStart || s.selStart < 0 || s.selEnd > len(s.text) {
		return "", false
	}
	sel := string(s.text[s.selStart:s.selEnd])
	return sel, len([]rune(sel)) >= 2
}

func (s *Simulated) ReadLastWord(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selEnd > s.selStart {
		return "", false
	}
	end := s.cursor
	start := end
	for start > 0 {
		r := s.text[start-1]
		if r == ' ' || r == '\t' || r == '\n' {
			break
		}
		if !layout.IsMappableRune(r) {
			break
		}
		start--
	}
	if start == end {
		return "", false
	}
	return string(s.text[start:end]), true
}

func (s *Simulated) WriteAtomic(ctx context.Context, n int, replacement string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextAtomicWrite {
		s.failNextAtomicWrite = false
		return false
	}
	time.Sleep(2 * time.Millisecond) // mirrors spec §4.I's AX-repaint sleep
	start := s.cursor - n
	if start < 0 {
		start = 0
	}
	s.replaceLocked(start, s.cursor, replacement)
	return true
}

func (s *Simulated) WriteFallback(ctx context.Context, mode FallbackMode, n int, replacement string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.selStart
	end := s.cursor
	if mode == SelectAndPaste {
		start = s.cursor - n
		if start < 0 {
			start = 0
		}
		end = s.cursor
	}

	prevClipboard := s.clipboard
	s.clipboard = replacement
	s.replaceLocked(start, end, replacement)
	time.Sleep(100 * time.Microsecond) // mirrors spec §4.I's clipboard-restore delay, scaled for tests
	s.clipboard = prevClipboard

	s.fallbackCalls = append(s.fallbackCalls, fallbackCall{Mode: mode, DeleteCount: n, Replacement: replacement})
	return true
}

// FallbackCallCount reports how many times WriteFallback has been
// invoked, for assertions on the primary/fallback choice.
func (s *Simulated) FallbackCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fallbackCalls)
}

func (s *Simulated) replaceLocked(start, end int, replacement string) {
	if start < 0 {
		start = 0
	}
	if end > len(s.text) {
		end = len(s.text)
	}
	if start > end {
		start = end
	}
	rep := []rune(replacement)
	head := append([]rune{}, s.text[:start]...)
	tail := append([]rune{}, s.text[end:]...)
	s.text = append(head, append(rep, tail...)...)
	s.cursor = start + len(rep)
	s.selStart, s.selEnd = 0, 0
}
