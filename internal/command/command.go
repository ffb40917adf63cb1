// Package command defines the textual lobby command grammar ("verb args")
// and the effect each accepted command has on a session.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

var ErrEmptyCommand = errors.New("empty command")

type Verb string

const (
	VerbSpawn       Verb = "spawn"
	VerbSlot        Verb = "slot"
	VerbSlotOpen    Verb = "slot_open"
	VerbSlotClose   Verb = "slot_close"
	VerbSlotBot     Verb = "slot_bot"
	VerbKick        Verb = "kick"
	VerbName        Verb = "name"
	VerbRace        Verb = "race"
	VerbTeam        Verb = "team"
	VerbColor       Verb = "color"
	VerbMap         Verb = "map"
	VerbLockTeams   Verb = "lockteams"
	VerbAllowCheats Verb = "allowcheats"
	VerbReady       Verb = "ready"
	VerbStartGame   Verb = "startgame"
	VerbChat        Verb = "chat"
	VerbTeamChat    Verb = "teamchat"
)

var hostOnly = map[Verb]bool{
	VerbSlotOpen:    true,
	VerbSlotClose:   true,
	VerbSlotBot:     true,
	VerbKick:        true,
	VerbMap:         true,
	VerbLockTeams:   true,
	VerbAllowCheats: true,
	VerbStartGame:   true,
}

// HostOnly reports whether only the host may issue v.
func (v Verb) HostOnly() bool { return hostOnly[v] }

// Command is one parsed lobby command. Arg is everything after the verb.
type Command struct {
	Verb Verb
	Arg  string
}

// String renders the command in its wire form.
func (c Command) String() string {
	if c.Arg == "" {
		return string(c.Verb)
	}
	return string(c.Verb) + " " + c.Arg
}

// Parse splits line at the first space. Verbs are case-sensitive and are not
// checked here; Apply rejects the ones it does not know.
func Parse(line string) (Command, error) {
	line = strings.TrimLeft(line, " ")
	if line == "" {
		return Command{}, ErrEmptyCommand
	}
	verb, arg, _ := strings.Cut(line, " ")
	return Command{Verb: Verb(verb), Arg: arg}, nil
}

func Spawn(point int) Command      { return intCmd(VerbSpawn, point) }
func Slot(slot int) Command        { return intCmd(VerbSlot, slot) }
func SlotOpen(slot int) Command    { return intCmd(VerbSlotOpen, slot) }
func SlotClose(slot int) Command   { return intCmd(VerbSlotClose, slot) }
func Kick(slot int) Command        { return intCmd(VerbKick, slot) }
func Team(team int) Command        { return intCmd(VerbTeam, team) }
func Name(name string) Command     { return Command{Verb: VerbName, Arg: name} }
func Race(faction string) Command  { return Command{Verb: VerbRace, Arg: faction} }
func Map(uid string) Command       { return Command{Verb: VerbMap, Arg: uid} }
func LockTeams(on bool) Command    { return Command{Verb: VerbLockTeams, Arg: strconv.FormatBool(on)} }
func AllowCheats(on bool) Command  { return Command{Verb: VerbAllowCheats, Arg: strconv.FormatBool(on)} }
func Ready() Command               { return Command{Verb: VerbReady} }
func StartGame() Command           { return Command{Verb: VerbStartGame} }
func Chat(text string) Command     { return Command{Verb: VerbChat, Arg: text} }
func TeamChat(text string) Command { return Command{Verb: VerbTeamChat, Arg: text} }

func SlotBot(slot int, bot string) Command {
	return Command{Verb: VerbSlotBot, Arg: fmt.Sprintf("%d %s", slot, bot)}
}

func Color(c session.ColorRamp) Command {
	return Command{Verb: VerbColor, Arg: c.String()}
}

func intCmd(v Verb, n int) Command {
	return Command{Verb: v, Arg: strconv.Itoa(n)}
}
