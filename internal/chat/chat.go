// Package chat keeps the lobby's ordered chat log.
package chat

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

// DefaultMaxLines bounds the log when no cap is configured.
const DefaultMaxLines = 500

// Line is one received chat message. Wrapped holds Text split so that the
// origin prefix plus each line fits the width given at insertion.
type Line struct {
	Color    session.ColorRamp
	From     string
	Text     string
	Wrapped  []string
	Received time.Time
}

// Stamp renders the receive time as "[HH:MM]".
func (l Line) Stamp() string {
	return "[" + l.Received.Format("15:04") + "]"
}

// Log is an append-only chat log. When Max is positive the oldest lines are
// dropped once the log grows past it; zero keeps everything.
type Log struct {
	Max   int
	Width int
	Now   func() time.Time

	lines []Line
}

func NewLog(max, width int) *Log {
	return &Log{Max: max, Width: width, Now: time.Now}
}

// Add appends a line, wrapping text once against the configured width.
func (l *Log) Add(color session.ColorRamp, from, text string) Line {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	line := Line{
		Color:    color,
		From:     from,
		Text:     text,
		Received: now(),
	}
	line.Wrapped = Wrap(text, l.textWidth(from))

	l.lines = append(l.lines, line)
	if l.Max > 0 && len(l.lines) > l.Max {
		l.lines = l.lines[len(l.lines)-l.Max:]
	}
	return line
}

// Lines returns a copy of the log, oldest first.
func (l *Log) Lines() []Line {
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

// textWidth is what is left of Width after the "from: " prefix, never less
// than one cell. Zero means the log does not wrap.
func (l *Log) textWidth(from string) int {
	if l.Width <= 0 {
		return 0
	}
	return max(1, l.Width-runewidth.StringWidth(from+": "))
}

// Wrap splits s into lines no wider than width display cells. Words stay
// whole where they fit; longer words are broken between runes. Runs of
// spaces are preserved. A width below 1 disables wrapping.
func Wrap(s string, width int) []string {
	if width < 1 {
		return strings.Split(s, "\n")
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		var b strings.Builder
		cur := 0
		flush := func() {
			lines = append(lines, b.String())
			b.Reset()
			cur = 0
		}
		for _, tok := range strings.SplitAfter(para, " ") {
			if tok == "" {
				continue
			}
			w := runewidth.StringWidth(tok)
			if cur+w <= width {
				b.WriteString(tok)
				cur += w
				continue
			}
			// A trailing space may overhang the edge.
			if trimmed := strings.TrimRight(tok, " "); cur+runewidth.StringWidth(trimmed) <= width {
				b.WriteString(tok)
				flush()
				continue
			}
			if b.Len() > 0 {
				flush()
			}
			if w <= width {
				b.WriteString(tok)
				cur = w
				continue
			}
			for _, r := range tok {
				rw := runewidth.RuneWidth(r)
				if cur+rw > width && b.Len() > 0 {
					flush()
				}
				b.WriteRune(r)
				cur += rw
			}
		}
		flush()
	}
	return lines
}
