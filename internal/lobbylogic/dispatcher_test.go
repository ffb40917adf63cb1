package lobbylogic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

func hostedLobby(s session.Session, local int, host bool) (*fakeTransport, *Lobby) {
	catalog := maps.NewCatalog(desert, jungle)
	tr := &fakeTransport{s: s, local: local, host: host, hosted: true, lookup: catalog}
	return tr, newTestLobby(tr, Options{Maps: catalog})
}

func TestSetName(t *testing.T) {
	prefs := &recordedPrefs{}
	tr := &fakeTransport{s: twoSlots(), local: 1, host: true}
	l := newTestLobby(tr, Options{Prefs: prefs})
	d := l.Dispatcher()

	assert.Equal(t, "Alice", d.SetName(" Alice "))
	assert.Equal(t, []string{"name Alice"}, tr.sent)
	assert.Equal(t, []string{"Alice"}, prefs.names)

	// Empty input reverts to the name in the snapshot and emits nothing.
	assert.Equal(t, "host", d.SetName("   "))
	assert.Equal(t, "host", d.SetName(""))
	// Unchanged names are not resent.
	assert.Equal(t, "host", d.SetName("host "))
	assert.Len(t, tr.sent, 1)
}

func TestReadyTwiceRestoresState(t *testing.T) {
	tr, l := hostedLobby(twoSlots(), 1, true)
	d := l.Dispatcher()

	require.True(t, d.ToggleReady())
	c, _ := tr.s.ClientByIndex(1)
	assert.True(t, c.Ready())
	assert.Equal(t, RowRemote, l.View().Rows[0].Kind)

	require.True(t, d.ToggleReady())
	c, _ = tr.s.ClientByIndex(1)
	assert.False(t, c.Ready())
	assert.Equal(t, RowLocal, l.View().Rows[0].Kind)
	assert.Equal(t, []string{"ready", "ready"}, tr.sent)
}

func TestHostOnlyGesturesRefusedForGuest(t *testing.T) {
	s := twoSlots()
	s.Clients = append(s.Clients, session.Client{Index: 2, Name: "guest", Slot: 1})
	tr := &fakeTransport{s: s, local: 2, host: false}
	l := newTestLobby(tr, Options{})
	d := l.Dispatcher()

	assert.False(t, d.OpenSlot(1))
	assert.False(t, d.CloseSlot(1))
	assert.False(t, d.AssignBot(0, "Easy AI"))
	assert.False(t, d.Kick(0))
	assert.False(t, d.SetMap("jungle"))
	assert.False(t, d.ToggleLockTeams())
	assert.False(t, d.ToggleAllowCheats())
	assert.False(t, d.StartGame())
	assert.Empty(t, tr.sent)

	v := l.View()
	assert.False(t, v.CanEditSettings)
	assert.False(t, v.CanChangeMap)
	assert.False(t, v.CanStart)
}

func TestGestureWireForms(t *testing.T) {
	s := twoSlots()
	s.Slots = append(s.Slots, session.Slot{Index: 2, MapPlayer: "multi0"})
	s.Clients = append(s.Clients, session.Client{Index: 2, Name: "guest", Slot: 1})
	tr := &fakeTransport{s: s, local: 1, host: true}
	l := newTestLobby(tr, Options{})
	d := l.Dispatcher()

	require.True(t, d.ClaimSpawn(2))
	require.True(t, d.JoinSlot(2))
	require.True(t, d.CloseSlot(2))
	require.True(t, d.OpenSlot(2))
	require.True(t, d.AssignBot(2, "Hard AI"))
	require.True(t, d.Kick(1))
	require.True(t, d.SetRace("nod"))
	require.True(t, d.SetTeam(2))
	require.True(t, d.SetColor(session.ColorRamp{H: 1, S: 2, L: 3, R: 10}))
	require.True(t, d.SetMap("jungle"))
	require.True(t, d.ToggleLockTeams())
	require.True(t, d.ToggleAllowCheats())
	require.True(t, d.SendChat("gl hf"))

	assert.Equal(t, []string{
		"spawn 2",
		"slot 2",
		"slot_close 2",
		"slot_open 2",
		"slot_bot 2 Hard AI",
		"kick 1",
		"race nod",
		"team 2",
		"color 1,2,3,10",
		"map jungle",
		"lockteams true",
		"allowcheats true",
		"chat gl hf",
	}, tr.sent)
}

func TestLocalRefusals(t *testing.T) {
	s := twoSlots()
	s.Clients = append(s.Clients, session.Client{Index: 2, Name: "guest", Slot: 1, SpawnPoint: 2})
	tr := &fakeTransport{s: s, local: 1, host: true}
	l := newTestLobby(tr, Options{})
	d := l.Dispatcher()

	assert.False(t, d.ClaimSpawn(2), "held by guest")
	assert.False(t, d.ClaimSpawn(9), "beyond the map")
	assert.False(t, d.JoinSlot(1), "occupied")
	assert.False(t, d.JoinSlot(7), "no such slot")
	assert.False(t, d.Kick(0), "self")
	assert.False(t, d.AssignBot(1, "Easy AI"), "map player forbids bots")
	assert.False(t, d.SetTeam(3), "beyond player count")
	assert.False(t, d.SendChat("  "))
	assert.Empty(t, tr.sent)
}

func TestMapLocksRefuseRaceAndColor(t *testing.T) {
	s := twoSlots()
	s.Clients[0].Slot = 1
	tr := &fakeTransport{s: s, local: 1, host: true}
	d := newTestLobby(tr, Options{}).Dispatcher()

	assert.False(t, d.SetRace("gdi"))
	assert.False(t, d.SetColor(session.ColorRamp{R: 10}))
	assert.Empty(t, tr.sent)
}

func TestReadyClientCannotEdit(t *testing.T) {
	s := twoSlots()
	s.Clients[0].State = session.StateReady
	tr := &fakeTransport{s: s, local: 1, host: true}
	l := newTestLobby(tr, Options{})
	d := l.Dispatcher()

	assert.False(t, d.ClaimSpawn(1))
	assert.False(t, d.SetTeam(1))
	assert.Equal(t, "host", d.SetName("other"))
	assert.False(t, l.View().CanClaimSpawns)
	assert.True(t, d.ToggleReady())
	assert.Equal(t, []string{"ready"}, tr.sent)
}

func TestSpawnRaceUsesLastSnapshot(t *testing.T) {
	s := twoSlots()
	s.Clients = append(s.Clients, session.Client{Index: 2, Name: "guest", Slot: 1})
	catalog := maps.NewCatalog(desert)
	first := &fakeTransport{s: s, local: 1, host: true}
	second := &fakeTransport{s: s, local: 2}
	d1 := newTestLobby(first, Options{Maps: catalog}).Dispatcher()
	d2 := newTestLobby(second, Options{Maps: catalog}).Dispatcher()

	// Both snapshots still show point 2 free.
	assert.True(t, d1.ClaimSpawn(2))
	assert.True(t, d2.ClaimSpawn(2))

	// Once the first claim is reflected, the second is refused locally.
	claimed := s.Clone()
	claimed.Clients[0].SpawnPoint = 2
	second.replace(claimed)
	assert.False(t, d2.ClaimSpawn(2))
	assert.True(t, d2.ClaimSpawn(3))
}

func TestTogglesSendNegation(t *testing.T) {
	s := twoSlots()
	s.GlobalSettings.LockTeams = true
	tr, l := hostedLobby(s, 1, true)
	d := l.Dispatcher()

	require.True(t, d.ToggleLockTeams())
	require.True(t, d.ToggleLockTeams())
	require.True(t, d.ToggleAllowCheats())

	assert.Equal(t, []string{"lockteams false", "lockteams true", "allowcheats true"}, tr.sent)
	assert.True(t, l.View().AllowCheats)
}

func TestStartGame(t *testing.T) {
	s := twoSlots()
	s.Clients[0].State = session.StateReady
	tr, l := hostedLobby(s, 1, true)
	starts := 0
	l.opts.OnStart = func() { starts++ }
	d := l.Dispatcher()

	require.True(t, d.StartGame())
	assert.True(t, l.View().GameStarting)
	assert.False(t, l.View().CanStart)
	assert.False(t, l.View().CanEditSettings)
	assert.Equal(t, 1, starts)

	assert.False(t, d.StartGame())
	assert.False(t, d.ToggleLockTeams())
	assert.Equal(t, []string{"startgame"}, tr.sent)
}

func TestTeamChatToggle(t *testing.T) {
	tr := &fakeTransport{s: twoSlots(), local: 1, host: true}
	l := newTestLobby(tr, Options{})
	d := l.Dispatcher()

	d.ToggleTeamChat()
	assert.Equal(t, "Team:", l.View().ChatLabel)
	require.True(t, d.SendChat("push left"))
	d.ToggleTeamChat()
	assert.Equal(t, "Chat:", l.View().ChatLabel)
	require.True(t, d.SendChat("gg"))

	assert.Equal(t, []string{"teamchat push left", "chat gg"}, tr.sent)
}

func TestPreferencesRecordedOnEmit(t *testing.T) {
	prefs := &recordedPrefs{}
	tr := &fakeTransport{s: twoSlots(), local: 1, host: true}
	d := newTestLobby(tr, Options{Prefs: prefs}).Dispatcher()

	ramp := session.ColorRamp{H: 9, S: 9, L: 90, R: 10}
	require.True(t, d.SetColor(ramp))
	require.True(t, d.SetMap("jungle"))

	assert.Equal(t, []session.ColorRamp{ramp}, prefs.colors)
	assert.Equal(t, []string{"jungle"}, prefs.maps)
}

func TestDetachedDispatcherDropsIntents(t *testing.T) {
	tr := &fakeTransport{s: twoSlots(), local: 1, host: true}
	l := newTestLobby(tr, Options{})
	d := l.Dispatcher()
	l.Detach()

	assert.False(t, d.ToggleReady())
	assert.False(t, d.SendChat("hello"))
	assert.False(t, d.SetMap("jungle"))
	assert.Equal(t, "Bob", d.SetName("Bob"))
	assert.Empty(t, tr.sent)
}
