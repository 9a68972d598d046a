// Package highlight walks through the words of a text while audio plays and
// renders a five-word window with the current word marked.
package highlight

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Slots is the number of preview positions.
const Slots = 5

// radius is the number of words shown on each side of the current one.
const radius = Slots / 2

// DefaultUnit is the delay per character of a word.
const DefaultUnit = 100 * time.Millisecond

// Slot is one preview position.
type Slot struct {
	Word    string
	Current bool
}

// Preview is the full set of preview positions. The zero value is all empty.
type Preview [Slots]Slot

// Words splits text on runs of whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// Window returns the preview for word i of words: the words from i-2 to i+2,
// clipped to the list, packed into the leading slots. The slot holding word i
// is marked current. Unused slots are empty.
func Window(words []string, i int) Preview {
	var p Preview
	if i < 0 || i >= len(words) {
		return p
	}
	start := max(0, i-radius)
	end := min(i+radius, len(words)-1)
	for j := start; j <= end; j++ {
		p[j-start] = Slot{Word: words[j], Current: j == i}
	}
	return p
}

// TimingStrategy decides how long a word stays highlighted.
type TimingStrategy interface {
	Delay(word string) time.Duration
}

// LengthProportional approximates speech timing as Unit per character.
// It has no knowledge of the actual audio.
type LengthProportional struct {
	Unit time.Duration
}

// Delay implements TimingStrategy.
func (l LengthProportional) Delay(word string) time.Duration {
	unit := l.Unit
	if unit <= 0 {
		unit = DefaultUnit
	}
	return time.Duration(utf8.RuneCountInString(word)) * unit
}

// Highlighter steps through words at the pace of a TimingStrategy.
type Highlighter struct {
	timing TimingStrategy
}

// New creates a highlighter. A nil timing uses LengthProportional with DefaultUnit.
func New(timing TimingStrategy) *Highlighter {
	if timing == nil {
		timing = LengthProportional{Unit: DefaultUnit}
	}
	return &Highlighter{timing: timing}
}

// Run renders the window for each word of text in turn, waiting the strategy's
// delay between words. It stops when the words run out, when active reports
// false, or when ctx is done, and always finishes by rendering an empty preview.
func (h *Highlighter) Run(ctx context.Context, text string, active func() bool, render func(Preview)) {
	defer render(Preview{})

	words := Words(text)
	for i, word := range words {
		if ctx.Err() != nil || !active() {
			return
		}
		render(Window(words, i))

		timer := time.NewTimer(h.timing.Delay(word))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
