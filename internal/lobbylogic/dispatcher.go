package lobbylogic

import (
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/skirmish-lobby/internal/command"
	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

// Dispatcher turns presentation gestures into outbound commands. Every
// gesture emits exactly one command, or none when it is refused locally.
// It never edits the session; changes arrive through the next snapshot.
//
// Each method reports whether a command was emitted.
type Dispatcher struct {
	l *Lobby
}

func (d *Dispatcher) emit(cmd command.Command) bool {
	if d.l.detached {
		d.l.log.Debug("dropping intent on detached lobby", zap.String("command", cmd.String()))
		return false
	}
	d.l.opts.Transport.IssueCommand(cmd.String())
	return true
}

func (d *Dispatcher) refuse(v command.Verb, reason string) bool {
	d.l.log.Debug("intent refused", zap.String("verb", string(v)), zap.String("reason", reason))
	return false
}

func (d *Dispatcher) snapshot() session.Session {
	return d.l.opts.Transport.Session()
}

func (d *Dispatcher) local() (session.Client, bool) {
	return d.snapshot().ClientByIndex(d.l.opts.Transport.LocalClientIndex())
}

func (d *Dispatcher) isHost() bool {
	return d.l.opts.Transport.IsHost()
}

// editable reports whether the local client may still change its own
// settings.
func (d *Dispatcher) editable(v command.Verb) (session.Client, bool) {
	c, ok := d.local()
	if !ok {
		return c, d.refuse(v, "no local client")
	}
	if c.Ready() {
		return c, d.refuse(v, "ready")
	}
	return c, true
}

func (d *Dispatcher) ClaimSpawn(point int) bool {
	if _, ok := d.editable(command.VerbSpawn); !ok {
		return false
	}
	if point < 0 || (d.l.hasMap && point > len(d.l.m.SpawnPoints)) {
		return d.refuse(command.VerbSpawn, "no such spawn point")
	}
	if !session.SpawnPointAvailable(d.snapshot(), point) {
		return d.refuse(command.VerbSpawn, "spawn point taken")
	}
	return d.emit(command.Spawn(point))
}

func (d *Dispatcher) JoinSlot(slot int) bool {
	if _, ok := d.editable(command.VerbSlot); !ok {
		return false
	}
	s := d.snapshot()
	sl, ok := s.SlotByIndex(slot)
	if !ok {
		return d.refuse(command.VerbSlot, "no such slot")
	}
	if sl.Closed || sl.Bot != "" {
		return d.refuse(command.VerbSlot, "slot not open")
	}
	if _, full := s.ClientInSlot(slot); full {
		return d.refuse(command.VerbSlot, "slot occupied")
	}
	return d.emit(command.Slot(slot))
}

func (d *Dispatcher) OpenSlot(slot int) bool {
	if !d.hostSlot(command.VerbSlotOpen, slot) {
		return false
	}
	return d.emit(command.SlotOpen(slot))
}

func (d *Dispatcher) CloseSlot(slot int) bool {
	if !d.hostSlot(command.VerbSlotClose, slot) {
		return false
	}
	return d.emit(command.SlotClose(slot))
}

func (d *Dispatcher) AssignBot(slot int, bot string) bool {
	if !d.hostSlot(command.VerbSlotBot, slot) {
		return false
	}
	sl, _ := d.snapshot().SlotByIndex(slot)
	if sl.Spectator || !d.l.hasMap || !d.l.m.Player(sl.MapPlayer).AllowBots {
		return d.refuse(command.VerbSlotBot, "bots not allowed")
	}
	if bot == "" {
		return d.refuse(command.VerbSlotBot, "no bot")
	}
	return d.emit(command.SlotBot(slot, bot))
}

func (d *Dispatcher) hostSlot(v command.Verb, slot int) bool {
	if !d.isHost() {
		return d.refuse(v, "not host")
	}
	if _, ok := d.snapshot().SlotByIndex(slot); !ok {
		return d.refuse(v, "no such slot")
	}
	return true
}

// Kick evicts whoever sits in slot. The host cannot kick itself.
func (d *Dispatcher) Kick(slot int) bool {
	if !d.isHost() {
		return d.refuse(command.VerbKick, "not host")
	}
	target, ok := d.snapshot().ClientInSlot(slot)
	if !ok {
		return d.refuse(command.VerbKick, "slot empty")
	}
	if target.Index == d.l.opts.Transport.LocalClientIndex() {
		return d.refuse(command.VerbKick, "self")
	}
	return d.emit(command.Kick(slot))
}

// SetName submits the name field and returns what the field should show
// afterwards: the trimmed name, or the current name when the input is
// empty. Unchanged names emit nothing.
func (d *Dispatcher) SetName(text string) string {
	c, ok := d.editable(command.VerbName)
	if !ok {
		return c.Name
	}
	name := strings.TrimSpace(text)
	if name == "" {
		d.refuse(command.VerbName, "empty")
		return c.Name
	}
	if name == c.Name {
		return name
	}
	if d.emit(command.Name(name)) {
		d.l.opts.Prefs.RememberName(name)
	}
	return name
}

func (d *Dispatcher) SetRace(faction string) bool {
	c, ok := d.editable(command.VerbRace)
	if !ok {
		return false
	}
	if d.localPlayerLocks(c).LockRace {
		return d.refuse(command.VerbRace, "race locked")
	}
	if faction == "" {
		return d.refuse(command.VerbRace, "no faction")
	}
	return d.emit(command.Race(faction))
}

func (d *Dispatcher) SetTeam(team int) bool {
	if _, ok := d.editable(command.VerbTeam); !ok {
		return false
	}
	if d.snapshot().GlobalSettings.LockTeams {
		return d.refuse(command.VerbTeam, "teams locked")
	}
	if team < 0 || (d.l.hasMap && team > d.l.m.PlayerCount) {
		return d.refuse(command.VerbTeam, "no such team")
	}
	return d.emit(command.Team(team))
}

func (d *Dispatcher) SetColor(c session.ColorRamp) bool {
	local, ok := d.editable(command.VerbColor)
	if !ok {
		return false
	}
	if d.localPlayerLocks(local).LockColor {
		return d.refuse(command.VerbColor, "color locked")
	}
	if !d.emit(command.Color(c)) {
		return false
	}
	d.l.opts.Prefs.RememberColor(c)
	return true
}

func (d *Dispatcher) localPlayerLocks(c session.Client) maps.Player {
	sl, ok := d.snapshot().SlotByIndex(c.Slot)
	if !ok || !d.l.hasMap {
		return maps.Player{}
	}
	return d.l.m.Player(sl.MapPlayer)
}

func (d *Dispatcher) SetMap(uid string) bool {
	if !d.isHost() {
		return d.refuse(command.VerbMap, "not host")
	}
	if uid == "" {
		return d.refuse(command.VerbMap, "no map")
	}
	if !d.emit(command.Map(uid)) {
		return false
	}
	d.l.opts.Prefs.RememberMap(uid)
	return true
}

// ToggleLockTeams asks the host to flip the flag seen in the last snapshot.
func (d *Dispatcher) ToggleLockTeams() bool {
	if !d.settingsEditable(command.VerbLockTeams) {
		return false
	}
	return d.emit(command.LockTeams(!d.snapshot().GlobalSettings.LockTeams))
}

func (d *Dispatcher) ToggleAllowCheats() bool {
	if !d.settingsEditable(command.VerbAllowCheats) {
		return false
	}
	return d.emit(command.AllowCheats(!d.snapshot().GlobalSettings.AllowCheats))
}

func (d *Dispatcher) settingsEditable(v command.Verb) bool {
	if !d.isHost() {
		return d.refuse(v, "not host")
	}
	if d.l.gameStarting {
		return d.refuse(v, "game starting")
	}
	return true
}

// ToggleReady flips the local client's ready state on the host.
func (d *Dispatcher) ToggleReady() bool {
	if _, ok := d.local(); !ok {
		return d.refuse(command.VerbReady, "no local client")
	}
	return d.emit(command.Ready())
}

// StartGame asks the host to start. The start control stays disabled from
// then on whether or not the host accepts.
func (d *Dispatcher) StartGame() bool {
	if !d.settingsEditable(command.VerbStartGame) {
		return false
	}
	if !d.emit(command.StartGame()) {
		return false
	}
	d.l.gameStarting = true
	d.l.publish()
	return true
}

// SendChat sends text to everyone, or to the local team when team chat is
// toggled on. Blank text is ignored.
func (d *Dispatcher) SendChat(text string) bool {
	v := command.VerbChat
	if d.l.teamChat {
		v = command.VerbTeamChat
	}
	if strings.TrimSpace(text) == "" {
		return d.refuse(v, "empty")
	}
	if d.l.teamChat {
		return d.emit(command.TeamChat(text))
	}
	return d.emit(command.Chat(text))
}

// ToggleTeamChat switches the chat target. It is local state only and
// emits nothing.
func (d *Dispatcher) ToggleTeamChat() {
	if d.l.detached {
		return
	}
	d.l.teamChat = !d.l.teamChat
	d.l.publish()
}

func (d *Dispatcher) TeamChat() bool { return d.l.teamChat }
