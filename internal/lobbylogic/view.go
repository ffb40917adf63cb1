package lobbylogic

import (
	"strconv"

	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/rules"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

type RowKind string

const (
	// RowEmpty is a slot nobody occupies.
	RowEmpty RowKind = "empty"
	// RowLocal is the local client while it can still edit its settings.
	RowLocal RowKind = "local"
	// RowRemote is any other occupant, including the local client once Ready.
	RowRemote RowKind = "remote"
)

// Row is one slot of the lobby as the presentation layer should draw it.
type Row struct {
	Kind   RowKind
	Slot   session.Slot
	Client session.Client

	// Label is the occupant name, or Open / Closed / the bot name for an
	// empty slot.
	Label string

	// Empty slots.
	CanManageSlot bool     // host open/close menu
	BotChoices    []string // host bot entries in that menu
	CanJoin       bool
	JoinLabel     string

	// Occupied slots.
	FactionName      string
	TeamLabel        string
	ShowPlayerFields bool // color, faction and team
	ShowSpectator    bool
	Ready            bool
	CanToggleReady   bool
	CanKick          bool

	// Local row only.
	CanEditRace  bool
	CanEditColor bool
	CanEditTeam  bool
}

// RowInput is everything a row set is derived from.
type RowInput struct {
	Session     session.Session
	LocalClient int
	IsHost      bool
	Map         maps.Map
	HasMap      bool
	Rules       rules.Rules
}

// BuildRows derives the row set from the Slot×Client join, in slot order.
// It is a pure function of its input.
func BuildRows(in RowInput) []Row {
	local, _ := in.Session.ClientByIndex(in.LocalClient)
	rows := make([]Row, 0, len(in.Session.Slots))
	for _, slot := range in.Session.Slots {
		c, occupied := in.Session.ClientInSlot(slot.Index)
		switch {
		case !occupied:
			rows = append(rows, emptyRow(in, slot, local))
		case c.Index == in.LocalClient && !c.Ready():
			rows = append(rows, localRow(in, slot, c))
		default:
			rows = append(rows, remoteRow(in, slot, c))
		}
	}
	return rows
}

func emptyRow(in RowInput, slot session.Slot, local session.Client) Row {
	r := Row{
		Kind:      RowEmpty,
		Slot:      slot,
		Label:     emptySlotLabel(slot),
		JoinLabel: "Join",
		CanJoin:   !slot.Closed && slot.Bot == "" && !local.Ready(),
	}
	if slot.Spectator {
		r.JoinLabel = "Spectate in this slot"
		r.Label = openClosed(slot)
	}
	if in.IsHost {
		r.CanManageSlot = true
		if !slot.Spectator && in.HasMap && in.Map.Player(slot.MapPlayer).AllowBots {
			r.BotChoices = in.Rules.Bots()
		}
	}
	return r
}

func emptySlotLabel(slot session.Slot) string {
	if !slot.Closed && slot.Bot != "" {
		return slot.Bot
	}
	return openClosed(slot)
}

func openClosed(slot session.Slot) string {
	if slot.Closed {
		return "Closed"
	}
	return "Open"
}

func localRow(in RowInput, slot session.Slot, c session.Client) Row {
	r := occupiedRow(in, RowLocal, slot, c)
	r.CanToggleReady = true
	if r.ShowPlayerFields {
		p := mapPlayer(in, slot)
		r.CanEditRace = !p.LockRace
		r.CanEditColor = !p.LockColor
		r.CanEditTeam = !in.Session.GlobalSettings.LockTeams
	}
	return r
}

func remoteRow(in RowInput, slot session.Slot, c session.Client) Row {
	r := occupiedRow(in, RowRemote, slot, c)
	self := c.Index == in.LocalClient
	r.CanToggleReady = self
	r.CanKick = in.IsHost && !self
	return r
}

func occupiedRow(in RowInput, kind RowKind, slot session.Slot, c session.Client) Row {
	return Row{
		Kind:             kind,
		Slot:             slot,
		Client:           c,
		Label:            c.Name,
		FactionName:      in.Rules.FactionName(c.Country),
		TeamLabel:        teamLabel(c.Team),
		ShowPlayerFields: !slot.Spectator,
		ShowSpectator:    slot.Spectator || slot.Bot != "",
		Ready:            c.Ready(),
	}
}

func mapPlayer(in RowInput, slot session.Slot) maps.Player {
	if !in.HasMap {
		return maps.Player{}
	}
	return in.Map.Player(slot.MapPlayer)
}

func teamLabel(team int) string {
	if team == 0 {
		return "-"
	}
	return strconv.Itoa(team)
}

// View is the read-only lobby state handed to the presentation layer.
type View struct {
	Title  string
	Map    maps.Map
	HasMap bool
	Rows   []Row

	LockTeams   bool
	AllowCheats bool

	IsHost          bool
	CanEditSettings bool // lockteams/allowcheats
	CanChangeMap    bool
	CanStart        bool
	GameStarting    bool

	// SpawnColors maps each claimed spawn point to its holder's color.
	SpawnColors map[int]session.ColorRamp
	// CanClaimSpawns is false while the local client is Ready.
	CanClaimSpawns bool

	TeamOptions []int
	Factions    []rules.Faction
	ChatLabel   string
}

func teamOptions(m maps.Map, hasMap bool) []int {
	n := 0
	if hasMap {
		n = m.PlayerCount
	}
	out := make([]int, n+1)
	for i := range out {
		out[i] = i
	}
	return out
}

func chatLabel(team bool) string {
	if team {
		return "Team:"
	}
	return "Chat:"
}
