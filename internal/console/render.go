// Package console is a line-oriented presenter for the lobby: it prints the
// view with lipgloss styling and turns typed lines into dispatcher calls.
package console

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/DoyleJ11/skirmish-lobby/internal/chat"
	"github.com/DoyleJ11/skirmish-lobby/internal/lobbylogic"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5C07B"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7F848E"))
	localStyle = lipgloss.NewStyle().Bold(true)
	readyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#98C379")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C6370")).Italic(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#61AFEF")).
			Padding(0, 1)
)

func swatch(c session.ColorRamp) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render("■")
}

// RenderView draws the lobby header, one line per slot and the spawn claims.
func RenderView(v lobbylogic.View) string {
	var b strings.Builder

	title := v.Title
	if title == "" {
		title = "Lobby"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	mapLine := labelStyle.Render("map: ")
	if v.HasMap {
		mapLine += fmt.Sprintf("%s (%s, %d players)", v.Map.Title, v.Map.Size(), v.Map.PlayerCount)
	} else {
		mapLine += warnStyle.Render("not installed")
	}
	b.WriteString(mapLine + "\n")

	b.WriteString(labelStyle.Render("lock teams: ") + onOff(v.LockTeams))
	b.WriteString(labelStyle.Render("  cheats: ") + onOff(v.AllowCheats))
	if v.IsHost {
		b.WriteString(labelStyle.Render("  (host)"))
	}
	if v.GameStarting {
		b.WriteString("  " + readyStyle.Render("starting..."))
	}
	b.WriteString("\n\n")

	for _, r := range v.Rows {
		b.WriteString(renderRow(r))
		b.WriteString("\n")
	}

	if len(v.SpawnColors) > 0 {
		points := make([]int, 0, len(v.SpawnColors))
		for p := range v.SpawnColors {
			points = append(points, p)
		}
		sort.Ints(points)
		parts := make([]string, 0, len(points))
		for _, p := range points {
			parts = append(parts, fmt.Sprintf("%d%s", p, swatch(v.SpawnColors[p])))
		}
		b.WriteString("\n" + labelStyle.Render("spawns: ") + strings.Join(parts, " "))
		if !v.CanClaimSpawns {
			b.WriteString(mutedStyle.Render("  (locked)"))
		}
		b.WriteString("\n")
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderRow(r lobbylogic.Row) string {
	slot := labelStyle.Render(fmt.Sprintf("%2d ", r.Slot.Index))
	switch r.Kind {
	case lobbylogic.RowEmpty:
		line := slot + mutedStyle.Render(r.Label)
		if r.CanJoin {
			line += labelStyle.Render("  [" + r.JoinLabel + ": /slot " + fmt.Sprint(r.Slot.Index) + "]")
		}
		if len(r.BotChoices) > 0 {
			line += labelStyle.Render("  bots: " + strings.Join(r.BotChoices, ", "))
		}
		return line
	}

	name := r.Label
	if r.Kind == lobbylogic.RowLocal {
		name = localStyle.Render(name + " *")
	}
	line := slot + swatch(r.Client.ColorRamp) + " " + name
	if r.ShowPlayerFields {
		line += labelStyle.Render("  faction: ") + r.FactionName
		line += labelStyle.Render("  team: ") + r.TeamLabel
		if r.Client.SpawnPoint > 0 {
			line += labelStyle.Render("  spawn: ") + fmt.Sprint(r.Client.SpawnPoint)
		}
	}
	if r.ShowSpectator {
		line += mutedStyle.Render("  spectator")
	}
	if r.Ready {
		line += "  " + readyStyle.Render("READY")
	}
	if r.CanKick {
		line += labelStyle.Render("  [/kick " + fmt.Sprint(r.Slot.Index) + "]")
	}
	return line
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// RenderChat formats one log line as "[HH:MM] from: text", continuing
// wrapped text on indented lines.
func RenderChat(l chat.Line) string {
	prefix := labelStyle.Render(l.Stamp()) + " "
	if l.From != "" {
		prefix += lipgloss.NewStyle().Foreground(lipgloss.Color(l.Color.Hex())).Render(l.From+":") + " "
	}
	wrapped := l.Wrapped
	if len(wrapped) == 0 {
		wrapped = []string{l.Text}
	}
	indent := strings.Repeat(" ", lipgloss.Width(prefix))
	var b strings.Builder
	for i, w := range wrapped {
		if i == 0 {
			b.WriteString(prefix)
		} else {
			b.WriteString("\n" + indent)
		}
		b.WriteString(w)
	}
	return b.String()
}

// RenderPrompt describes a connection drop and the two ways out of it.
func RenderPrompt(p lobbylogic.Prompt) string {
	msg := fmt.Sprintf("Connection to %s:%d lost.", p.Host, p.Port)
	if p.Err != nil {
		msg = fmt.Sprintf("Could not reconnect to %s:%d: %v", p.Host, p.Port, p.Err)
	}
	return warnStyle.Render(msg) + "\n" + labelStyle.Render("type /retry or /abort")
}
