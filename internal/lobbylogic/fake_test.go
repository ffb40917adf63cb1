package lobbylogic

import (
	"slices"

	"github.com/DoyleJ11/skirmish-lobby/internal/command"
	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

// fakeTransport records outbound commands. When hosted is set it applies
// them with command.Apply and publishes the result, standing in for a host.
type fakeTransport struct {
	s      session.Session
	local  int
	host   bool
	hosted bool
	lookup maps.Lookup

	addr string
	port int

	sent []string
	subs []func(Event)
}

func (f *fakeTransport) IssueCommand(text string) {
	f.sent = append(f.sent, text)
	if !f.hosted {
		return
	}
	cmd, err := command.Parse(text)
	if err != nil {
		return
	}
	events, next, err := command.Apply(f.s, command.Issuer{Client: f.local, Host: f.host}, cmd, f.lookup)
	if err != nil {
		return
	}
	f.s = next
	for _, ev := range events {
		switch ev.Type {
		case command.EvtSessionChanged:
			f.publish(SessionChanged{})
		case command.EvtChat, command.EvtTeamChat:
			c, _ := f.s.ClientByIndex(ev.Client)
			f.publish(ChatReceived{Color: c.ColorRamp, From: c.Name, Text: ev.Text})
		case command.EvtGameStarted:
			f.publish(BeforeStart{})
		}
	}
}

func (f *fakeTransport) Subscribe(fn func(Event)) func() {
	i := len(f.subs)
	f.subs = append(f.subs, fn)
	return func() { f.subs[i] = nil }
}

func (f *fakeTransport) publish(ev Event) {
	for _, fn := range slices.Clone(f.subs) {
		if fn != nil {
			fn(ev)
		}
	}
}

// replace swaps in a new snapshot and announces it.
func (f *fakeTransport) replace(s session.Session) {
	f.s = s
	f.publish(SessionChanged{})
}

func (f *fakeTransport) subscribers() int {
	n := 0
	for _, fn := range f.subs {
		if fn != nil {
			n++
		}
	}
	return n
}

func (f *fakeTransport) LocalClientIndex() int    { return f.local }
func (f *fakeTransport) IsHost() bool             { return f.host }
func (f *fakeTransport) Host() string             { return f.addr }
func (f *fakeTransport) Port() int                { return f.port }
func (f *fakeTransport) Session() session.Session { return f.s }

type recordedPrefs struct {
	names  []string
	colors []session.ColorRamp
	maps   []string
}

func (p *recordedPrefs) RememberName(name string)          { p.names = append(p.names, name) }
func (p *recordedPrefs) RememberColor(c session.ColorRamp) { p.colors = append(p.colors, c) }
func (p *recordedPrefs) RememberMap(uid string)            { p.maps = append(p.maps, uid) }

var desert = maps.Map{
	Uid:         "desert",
	Title:       "Desert Storm",
	PlayerCount: 2,
	SpawnPoints: []maps.Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}},
	Players: map[string]maps.Player{
		"multi0": {AllowBots: true},
		"multi1": {LockRace: true, LockColor: true},
	},
	Selectable: true,
}

var jungle = maps.Map{
	Uid:         "jungle",
	Title:       "Jungle",
	PlayerCount: 3,
	SpawnPoints: []maps.Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}},
	Players:     map[string]maps.Player{"a": {}, "b": {}, "c": {}},
	Selectable:  true,
}

// twoSlots is one local host client in slot 0 and an open slot 1.
func twoSlots() session.Session {
	s := session.New("Skirmish", "desert", []session.Slot{
		{Index: 0, MapPlayer: "multi0"},
		{Index: 1, MapPlayer: "multi1"},
	})
	s.Clients = []session.Client{
		{Index: 1, Name: "host", Slot: 0, Country: session.RandomCountry, State: session.StateNotReady},
	}
	return s
}

func newTestLobby(t *fakeTransport, opts Options) *Lobby {
	opts.Transport = t
	if opts.Maps == nil {
		opts.Maps = maps.NewCatalog(desert, jungle)
	}
	l := New(opts)
	l.Attach()
	return l
}
