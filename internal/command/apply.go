package command

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrBadArgument = errors.New("bad argument")
var ErrNotHost = errors.New("issuer is not the host")
var ErrUnknownClient = errors.New("unknown client")
var ErrUnknownSlot = errors.New("unknown slot")
var ErrSlotUnavailable = errors.New("slot unavailable")
var ErrSpawnTaken = errors.New("spawn point taken")
var ErrLocked = errors.New("locked by map or settings")
var ErrBotsNotAllowed = errors.New("bots not allowed in slot")
var ErrKickSelf = errors.New("cannot kick self")
var ErrEmptyText = errors.New("empty text")
var ErrNotAllReady = errors.New("not all clients are ready")

// Issuer identifies who sent a command.
type Issuer struct {
	Client int
	Host   bool
}

type EventType string

const (
	EvtSessionChanged EventType = "SessionChanged"
	EvtChat           EventType = "Chat"
	EvtTeamChat       EventType = "TeamChat"
	EvtClientKicked   EventType = "ClientKicked"
	EvtGameStarted    EventType = "GameStarted"
)

type Event struct {
	Type   EventType
	Client int
	Text   string
}

/*
	Every command either fails with no change, or yields the new session plus
	the events the host should act on:

	slot_open/slot_close/slot_bot/spawn/slot/name/race/team/color/map/
	lockteams/allowcheats/ready -> EvtSessionChanged
	kick      -> EvtClientKicked -> EvtSessionChanged
	chat      -> EvtChat
	teamchat  -> EvtTeamChat
	startgame -> EvtGameStarted
*/

// Apply executes cmd on behalf of by. It never modifies s; on error the
// returned session is s unchanged. lookup may be nil, in which case map
// constraints are not enforced and "map" accepts any uid.
func Apply(s session.Session, by Issuer, cmd Command, lookup maps.Lookup) ([]Event, session.Session, error) {
	if cmd.Verb.HostOnly() && !by.Host {
		return nil, s, ErrNotHost
	}
	issuer, ok := s.ClientByIndex(by.Client)
	if !ok {
		return nil, s, ErrUnknownClient
	}

	newState := s.Clone()
	changed := []Event{{Type: EvtSessionChanged, Client: by.Client}}

	switch cmd.Verb {
	case VerbSpawn:
		point, err := intArg(cmd)
		if err != nil || point < 0 {
			return nil, s, ErrBadArgument
		}
		if m, ok := currentMap(s, lookup); ok && point > len(m.SpawnPoints) {
			return nil, s, ErrBadArgument
		}
		if !session.SpawnPointAvailable(s, point) {
			return nil, s, ErrSpawnTaken
		}
		issuer.SpawnPoint = point
		newState.UpdateClient(issuer)
		return changed, newState, nil

	case VerbSlot:
		idx, err := intArg(cmd)
		if err != nil {
			return nil, s, ErrBadArgument
		}
		slot, ok := s.SlotByIndex(idx)
		if !ok {
			return nil, s, ErrUnknownSlot
		}
		if !slotJoinable(s, slot) {
			return nil, s, ErrSlotUnavailable
		}
		issuer.Slot = idx
		newState.UpdateClient(issuer)
		return changed, newState, nil

	case VerbSlotOpen, VerbSlotClose:
		idx, err := intArg(cmd)
		if err != nil {
			return nil, s, ErrBadArgument
		}
		slot, ok := s.SlotByIndex(idx)
		if !ok {
			return nil, s, ErrUnknownSlot
		}
		slot.Closed = cmd.Verb == VerbSlotClose
		slot.Bot = ""
		if slot.Closed {
			if c, ok := s.ClientInSlot(idx); ok {
				c.Slot = session.NoSlot
				newState.UpdateClient(c)
			}
		}
		newState.UpdateSlot(slot)
		return changed, newState, nil

	case VerbSlotBot:
		idxArg, bot, _ := strings.Cut(cmd.Arg, " ")
		idx, err := strconv.Atoi(idxArg)
		bot = strings.TrimSpace(bot)
		if err != nil || bot == "" {
			return nil, s, ErrBadArgument
		}
		slot, ok := s.SlotByIndex(idx)
		if !ok {
			return nil, s, ErrUnknownSlot
		}
		if _, occupied := s.ClientInSlot(idx); occupied || slot.Spectator {
			return nil, s, ErrSlotUnavailable
		}
		if m, ok := currentMap(s, lookup); ok && !m.Player(slot.MapPlayer).AllowBots {
			return nil, s, ErrBotsNotAllowed
		}
		slot.Bot = bot
		slot.Closed = false
		newState.UpdateSlot(slot)
		return changed, newState, nil

	case VerbKick:
		idx, err := intArg(cmd)
		if err != nil {
			return nil, s, ErrBadArgument
		}
		target, ok := s.ClientInSlot(idx)
		if !ok {
			return nil, s, ErrUnknownClient
		}
		if target.Index == by.Client {
			return nil, s, ErrKickSelf
		}
		newState.RemoveClient(target.Index)
		return append([]Event{{Type: EvtClientKicked, Client: target.Index}}, changed...), newState, nil

	case VerbName:
		name := strings.TrimSpace(cmd.Arg)
		if name == "" {
			return nil, s, ErrEmptyText
		}
		issuer.Name = name
		newState.UpdateClient(issuer)
		return changed, newState, nil

	case VerbRace:
		faction := strings.TrimSpace(cmd.Arg)
		if faction == "" {
			return nil, s, ErrBadArgument
		}
		if p, ok := issuerMapPlayer(s, issuer, lookup); ok && p.LockRace {
			return nil, s, ErrLocked
		}
		issuer.Country = faction
		newState.UpdateClient(issuer)
		return changed, newState, nil

	case VerbTeam:
		team, err := intArg(cmd)
		if err != nil || team < 0 {
			return nil, s, ErrBadArgument
		}
		if s.GlobalSettings.LockTeams {
			return nil, s, ErrLocked
		}
		if m, ok := currentMap(s, lookup); ok && team > m.PlayerCount {
			return nil, s, ErrBadArgument
		}
		issuer.Team = team
		newState.UpdateClient(issuer)
		return changed, newState, nil

	case VerbColor:
		ramp, err := session.ParseColorRamp(cmd.Arg)
		if err != nil {
			return nil, s, fmt.Errorf("%w: %w", ErrBadArgument, err)
		}
		if p, ok := issuerMapPlayer(s, issuer, lookup); ok && p.LockColor {
			return nil, s, ErrLocked
		}
		issuer.ColorRamp = ramp
		newState.UpdateClient(issuer)
		return changed, newState, nil

	case VerbMap:
		uid := strings.TrimSpace(cmd.Arg)
		if uid == "" {
			return nil, s, ErrBadArgument
		}
		if lookup != nil {
			m, err := lookup.Lookup(uid)
			if err != nil {
				return nil, s, err
			}
			rebuildSlots(&newState, m)
		}
		newState.GlobalSettings.Map = uid
		return changed, newState, nil

	case VerbLockTeams, VerbAllowCheats:
		on, err := strconv.ParseBool(cmd.Arg)
		if err != nil {
			return nil, s, ErrBadArgument
		}
		if cmd.Verb == VerbLockTeams {
			newState.GlobalSettings.LockTeams = on
		} else {
			newState.GlobalSettings.AllowCheats = on
		}
		return changed, newState, nil

	case VerbReady:
		if issuer.Ready() {
			issuer.State = session.StateNotReady
		} else {
			issuer.State = session.StateReady
		}
		newState.UpdateClient(issuer)
		return changed, newState, nil

	case VerbStartGame:
		if !s.AllReady() {
			return nil, s, ErrNotAllReady
		}
		return []Event{{Type: EvtGameStarted, Client: by.Client}}, s, nil

	case VerbChat, VerbTeamChat:
		if strings.TrimSpace(cmd.Arg) == "" {
			return nil, s, ErrEmptyText
		}
		typ := EvtChat
		if cmd.Verb == VerbTeamChat {
			typ = EvtTeamChat
		}
		return []Event{{Type: typ, Client: by.Client, Text: cmd.Arg}}, s, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func intArg(cmd Command) (int, error) {
	return strconv.Atoi(strings.TrimSpace(cmd.Arg))
}

func slotJoinable(s session.Session, slot session.Slot) bool {
	if slot.Closed || slot.Bot != "" {
		return false
	}
	_, occupied := s.ClientInSlot(slot.Index)
	return !occupied
}

func currentMap(s session.Session, lookup maps.Lookup) (maps.Map, bool) {
	if lookup == nil {
		return maps.Map{}, false
	}
	m, err := lookup.Lookup(s.GlobalSettings.Map)
	return m, err == nil
}

func issuerMapPlayer(s session.Session, c session.Client, lookup maps.Lookup) (maps.Player, bool) {
	m, ok := currentMap(s, lookup)
	if !ok {
		return maps.Player{}, false
	}
	slot, ok := s.SlotByIndex(c.Slot)
	if !ok {
		return maps.Player{}, false
	}
	return m.Player(slot.MapPlayer), true
}

// rebuildSlots swaps the player slots for those of m, keeping spectator
// slots. Players keep the seat of the same map player when m has one and are
// unseated otherwise; spectators move to the new spectator slots in order.
// Spawn points are reset because they belong to the old map.
func rebuildSlots(s *session.Session, m maps.Map) {
	old := s.Slots
	spectators := 0
	for _, sl := range old {
		if sl.Spectator {
			spectators++
		}
	}
	s.Slots = maps.Slots(m, spectators)

	byPlayer := make(map[string]int, len(s.Slots))
	var free []int
	for _, sl := range s.Slots {
		if sl.Spectator {
			free = append(free, sl.Index)
		} else {
			byPlayer[sl.MapPlayer] = sl.Index
		}
	}

	for i := range s.Clients {
		c := &s.Clients[i]
		c.SpawnPoint = 0
		prev, ok := findSlot(old, c.Slot)
		switch {
		case !ok:
			c.Slot = session.NoSlot
		case prev.Spectator:
			c.Slot = session.NoSlot
			if len(free) > 0 {
				c.Slot, free = free[0], free[1:]
			}
		default:
			idx, seated := byPlayer[prev.MapPlayer]
			if !seated {
				idx = session.NoSlot
			}
			c.Slot = idx
		}
	}
}

func findSlot(slots []session.Slot, index int) (session.Slot, bool) {
	i := slices.IndexFunc(slots, func(sl session.Slot) bool { return sl.Index == index })
	if i < 0 {
		return session.Slot{}, false
	}
	return slots[i], true
}
