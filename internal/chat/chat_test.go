package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

func TestWrap(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		width int
		want  []string
	}{
		{"fits", "foo  bar", 100, []string{"foo  bar"}},
		{"word boundary", "hello world foo", 10, []string{"hello ", "world foo"}},
		{"long word split", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"wide runes", "日本語", 4, []string{"日本", "語"}},
		{"newlines kept", "a\nb", 10, []string{"a", "b"}},
		{"no width", "anything goes", 0, []string{"anything goes"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Wrap(tc.in, tc.width))
		})
	}
}

func fixedClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Minute)
	}
}

func TestLogKeepsInsertionOrderAndTimestamps(t *testing.T) {
	l := NewLog(0, 40)
	l.Now = fixedClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	red := session.ColorRamp{H: 0, S: 255, L: 127}
	l.Add(red, "alice", "first")
	l.Add(red, "bob", "second")

	lines := l.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "first", lines[0].Text)
	assert.Equal(t, "second", lines[1].Text)
	assert.Equal(t, "[09:01]", lines[0].Stamp())
	assert.True(t, lines[1].Received.After(lines[0].Received))
}

func TestLogWrapsAfterOriginPrefix(t *testing.T) {
	l := NewLog(0, 12)
	line := l.Add(session.ColorRamp{}, "bob", "one two three")
	// "bob: " takes 5 cells, leaving 7.
	assert.Equal(t, []string{"one two ", "three"}, line.Wrapped)
}

func TestLogWrapsWhenNameFillsWidth(t *testing.T) {
	l := NewLog(0, 12)
	line := l.Add(session.ColorRamp{}, "averyverylongname", "abcdef")
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, line.Wrapped)

	unbounded := NewLog(0, 0)
	line = unbounded.Add(session.ColorRamp{}, "averyverylongname", "abc def")
	assert.Equal(t, []string{"abc def"}, line.Wrapped)
}

func TestLogEvictsOldestPastCap(t *testing.T) {
	l := NewLog(3, 0)
	for i := range 5 {
		l.Add(session.ColorRamp{}, "bot", fmt.Sprintf("msg %d", i))
	}
	lines := l.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "msg 2", lines[0].Text)
	assert.Equal(t, "msg 4", lines[2].Text)
}
