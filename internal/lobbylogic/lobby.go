// Package lobbylogic is the client side of the multiplayer lobby. It keeps a
// derived view in step with the transport's session snapshot, turns gestures
// into outbound commands and handles connection loss.
//
// Everything in this package runs on a single control flow; no method is
// safe for concurrent use.
package lobbylogic

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/skirmish-lobby/internal/chat"
	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/rules"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

type Options struct {
	Transport Transport
	Maps      maps.Lookup
	Rules     rules.Rules
	Prefs     Preferences
	Chat      *chat.Log
	Logger    *zap.Logger

	// OnViewChanged is called with the rebuilt view after every
	// SessionChanged and after local UI state changes.
	OnViewChanged func(View)
	OnChat        func(chat.Line)
	// OnStart runs at most once, when the host starts the game.
	OnStart func()
}

// Lobby is the reconciliation controller for one connection. A fresh Lobby
// is bound to every transport; once detached it ignores notifications and its
// dispatcher drops every intent.
type Lobby struct {
	opts       Options
	log        *zap.Logger
	dispatcher *Dispatcher

	mapUID string
	m      maps.Map
	hasMap bool

	rows         []Row
	view         View
	gameStarting bool
	teamChat     bool

	started     bool
	attached    bool
	detached    bool
	unsubscribe func()
}

func New(opts Options) *Lobby {
	if opts.Prefs == nil {
		opts.Prefs = nopPreferences{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Chat == nil {
		opts.Chat = chat.NewLog(chat.DefaultMaxLines, 0)
	}
	if opts.Rules.Factions() == nil {
		opts.Rules = rules.Default()
	}
	l := &Lobby{opts: opts, log: opts.Logger}
	l.dispatcher = &Dispatcher{l: l}
	return l
}

// Attach subscribes to the transport and builds the initial view.
func (l *Lobby) Attach() {
	if l.attached || l.detached {
		return
	}
	l.attached = true
	l.unsubscribe = l.opts.Transport.Subscribe(l.handle)
	l.refresh()
}

// Detach removes the subscription. It is permanent: a detached Lobby is
// never reattached, a reconnect builds a new one.
func (l *Lobby) Detach() {
	if l.detached {
		return
	}
	l.detached = true
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
}

func (l *Lobby) Detached() bool { return l.detached }

func (l *Lobby) Dispatcher() *Dispatcher { return l.dispatcher }

func (l *Lobby) View() View { return l.view }

func (l *Lobby) ChatLines() []chat.Line { return l.opts.Chat.Lines() }

func (l *Lobby) handle(ev Event) {
	if l.detached {
		return
	}
	switch e := ev.(type) {
	case SessionChanged:
		l.refresh()
	case BeforeStart:
		l.start()
	case ChatReceived:
		line := l.opts.Chat.Add(e.Color, e.From, e.Text)
		if l.opts.OnChat != nil {
			l.opts.OnChat(line)
		}
	case ConnectionStateChanged:
		// Handled by Connection.
	}
}

func (l *Lobby) start() {
	if l.started {
		return
	}
	l.started = true
	if l.opts.OnStart != nil {
		l.opts.OnStart()
	}
}

// refresh recomputes the view from the latest snapshot. Calling it again
// without a new snapshot yields the same view.
func (l *Lobby) refresh() {
	t := l.opts.Transport
	s := t.Session()
	l.rebindMap(s.GlobalSettings.Map)

	l.rows = BuildRows(RowInput{
		Session:     s,
		LocalClient: t.LocalClientIndex(),
		IsHost:      t.IsHost(),
		Map:         l.m,
		HasMap:      l.hasMap,
		Rules:       l.opts.Rules,
	})
	l.publish()
}

// rebindMap loads the map only when the uid changed. An unresolvable uid
// keeps the previous binding.
func (l *Lobby) rebindMap(uid string) {
	if uid == l.mapUID || l.opts.Maps == nil {
		return
	}
	m, err := l.opts.Maps.Lookup(uid)
	if err != nil {
		l.log.Warn("keeping previous map", zap.String("uid", uid), zap.String("previous", l.mapUID), zap.Error(err))
		return
	}
	l.mapUID = uid
	l.m = m
	l.hasMap = true
	l.log.Debug("map bound", zap.String("uid", uid), zap.String("title", m.Title))
}

// publish rebuilds the view around the current rows and local UI state.
func (l *Lobby) publish() {
	t := l.opts.Transport
	s := t.Session()
	isHost := t.IsHost()
	local, _ := s.ClientByIndex(t.LocalClientIndex())

	colors := make(map[int]session.ColorRamp)
	for point, c := range session.SpawnClaims(s) {
		colors[point] = c.ColorRamp
	}

	l.view = View{
		Title:           s.GlobalSettings.ServerName,
		Map:             l.m,
		HasMap:          l.hasMap,
		Rows:            l.rows,
		LockTeams:       s.GlobalSettings.LockTeams,
		AllowCheats:     s.GlobalSettings.AllowCheats,
		IsHost:          isHost,
		CanEditSettings: isHost && !l.gameStarting,
		CanChangeMap:    isHost,
		CanStart:        isHost && !l.gameStarting,
		GameStarting:    l.gameStarting,
		SpawnColors:     colors,
		CanClaimSpawns:  l.hasMap && !local.Ready(),
		TeamOptions:     teamOptions(l.m, l.hasMap),
		Factions:        l.opts.Rules.Factions(),
		ChatLabel:       chatLabel(l.teamChat),
	}
	if l.opts.OnViewChanged != nil {
		l.opts.OnViewChanged(l.view)
	}
}

