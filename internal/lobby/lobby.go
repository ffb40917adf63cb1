// Package lobby is the host side of one multiplayer lobby: an actor that owns
// the session, applies commands in arrival order and fans the results out to
// every connected client.
package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/skirmish-lobby/internal/command"
	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

var ErrGameStarted = errors.New("game already started")
var ErrLobbyClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

// Join adds a client. The lobby replies on Reply, then starts writing to
// Outbox. The first client to join becomes the host.
type Join struct {
	Name   string
	Outbox chan Update
	Reply  chan JoinResult
}

func (Join) isLobbyMsg() {}

type JoinResult struct {
	Client int
	Host   bool
	Err    error
}

type Leave struct{ Client int }

func (Leave) isLobbyMsg() {}

// FromClient carries one "verb args" command line.
type FromClient struct {
	Client int
	Text   string
}

func (FromClient) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type UpdateKind string

const (
	UpdateWelcome     UpdateKind = "welcome"
	UpdateSession     UpdateKind = "session"
	UpdateChat        UpdateKind = "chat"
	UpdateBeforeStart UpdateKind = "before_start"
	UpdateKicked      UpdateKind = "kicked"
)

// Update is everything the lobby sends to one client.
type Update struct {
	Kind    UpdateKind
	Version int
	Session session.Session
	Client  int  // welcome: assigned index
	Host    bool // welcome: whether the client is the host
	Chat    ChatLine
}

type ChatLine struct {
	Color session.ColorRamp
	From  string
	Text  string
	Team  bool
}

type View struct {
	Code       string
	Version    int
	NumClients int
	Host       int
	Started    bool
	Session    session.Session
}

// Recorder persists lobby history. Calls happen on the lobby goroutine.
type Recorder interface {
	RecordCommand(ctx context.Context, code string, client int, text string, applied bool, reason string) error
	RecordChat(ctx context.Context, code string, from string, team bool, text string) error
}

type Config struct {
	Code     string
	Maps     maps.Lookup
	Recorder Recorder
	Logger   *zap.Logger
	// OnClose runs on the lobby goroutine once the lobby has shut down.
	OnClose func(code string)
}

type Lobby struct {
	inbox   chan Msg
	cfg     Config
	log     *zap.Logger
	state   session.Session
	version int
	clients map[int]chan Update
	host    int
	started bool
	// dirty is set when a client was dropped without a broadcast yet.
	dirty   bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, initial session.Session, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	l := &Lobby{
		inbox:   make(chan Msg, 64),
		cfg:     cfg,
		log:     cfg.Logger.With(zap.String("lobby", cfg.Code)),
		state:   initial,
		clients: make(map[int]chan Update),
		host:    session.NoSlot,
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.join(msg)

			case Leave:
				l.leave(msg.Client)

			case FromClient:
				l.fromClient(msg)

			case GetState:
				msg.Reply <- View{
					Code:       l.cfg.Code,
					Version:    l.version,
					NumClients: len(l.clients),
					Host:       l.host,
					Started:    l.started,
					Session:    l.state.Clone(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
			for l.dirty && l.ctx.Err() == nil {
				l.dirty = false
				l.changed()
			}
			if l.ctx.Err() != nil {
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) join(msg Join) {
	if l.started {
		msg.Reply <- JoinResult{Err: ErrGameStarted}
		return
	}
	next, c := command.Join(l.state, msg.Name)
	if l.host == session.NoSlot {
		l.host = c.Index
	}
	l.state = next
	l.clients[c.Index] = msg.Outbox
	msg.Reply <- JoinResult{Client: c.Index, Host: c.Index == l.host}
	l.log.Info("client joined", zap.Int("client", c.Index), zap.String("name", c.Name), zap.Int("slot", c.Slot))

	l.send(c.Index, Update{Kind: UpdateWelcome, Client: c.Index, Host: c.Index == l.host})
	l.changed()
}

func (l *Lobby) leave(client int) {
	ch, ok := l.clients[client]
	if !ok {
		return
	}
	close(ch)
	delete(l.clients, client)
	l.state.RemoveClient(client)
	l.log.Info("client left", zap.Int("client", client))

	if client == l.host {
		l.log.Info("host left, closing lobby")
		l.cancel()
		return
	}
	l.changed()
}

func (l *Lobby) fromClient(msg FromClient) {
	if _, ok := l.clients[msg.Client]; !ok {
		return
	}
	cmd, err := command.Parse(msg.Text)
	if err == nil {
		var events []command.Event
		var next session.Session
		events, next, err = command.Apply(l.state, command.Issuer{Client: msg.Client, Host: msg.Client == l.host}, cmd, l.cfg.Maps)
		if err == nil {
			l.state = next
			l.record(msg, true, "")
			l.dispatch(events)
			return
		}
	}
	// Rejections are never reported back to the client.
	l.log.Debug("command rejected", zap.Int("client", msg.Client), zap.String("command", msg.Text), zap.Error(err))
	l.record(msg, false, err.Error())
}

func (l *Lobby) dispatch(events []command.Event) {
	for _, ev := range events {
		switch ev.Type {
		case command.EvtSessionChanged:
			l.changed()

		case command.EvtClientKicked:
			l.send(ev.Client, Update{Kind: UpdateKicked})
			if ch, ok := l.clients[ev.Client]; ok {
				close(ch)
				delete(l.clients, ev.Client)
			}
			l.log.Info("client kicked", zap.Int("client", ev.Client))

		case command.EvtChat, command.EvtTeamChat:
			l.chat(ev)

		case command.EvtGameStarted:
			if l.started {
				continue
			}
			l.started = true
			l.log.Info("game starting", zap.Int("clients", len(l.clients)))
			l.broadcast(Update{Kind: UpdateBeforeStart})
		}
	}
}

// chat sends a line to everyone, or for team chat to the sender and the
// clients sharing its non-zero team.
func (l *Lobby) chat(ev command.Event) {
	from, ok := l.state.ClientByIndex(ev.Client)
	if !ok {
		return
	}
	team := ev.Type == command.EvtTeamChat
	u := Update{Kind: UpdateChat, Chat: ChatLine{Color: from.ColorRamp, From: from.Name, Text: ev.Text, Team: team}}

	if l.cfg.Recorder != nil {
		ctx, cancel := context.WithTimeout(l.ctx, 2*time.Second)
		if err := l.cfg.Recorder.RecordChat(ctx, l.cfg.Code, from.Name, team, ev.Text); err != nil {
			l.log.Warn("record chat", zap.Error(err))
		}
		cancel()
	}

	if !team {
		l.broadcast(u)
		return
	}
	for _, c := range l.state.Clients {
		if c.Index == from.Index || (from.Team != 0 && c.Team == from.Team) {
			l.send(c.Index, u)
		}
	}
}

func (l *Lobby) record(msg FromClient, applied bool, reason string) {
	if l.cfg.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(l.ctx, 2*time.Second)
	defer cancel()
	if err := l.cfg.Recorder.RecordCommand(ctx, l.cfg.Code, msg.Client, msg.Text, applied, reason); err != nil {
		l.log.Warn("record command", zap.Error(err))
	}
}

// changed bumps the version and sends the new session to everyone.
func (l *Lobby) changed() {
	l.version++
	l.broadcast(Update{Kind: UpdateSession, Version: l.version, Session: l.state})
}

func (l *Lobby) send(client int, u Update) {
	ch, ok := l.clients[client]
	if !ok {
		return
	}
	if u.Kind == UpdateSession {
		u.Session = u.Session.Clone()
	}
	select {
	case ch <- u:
	default:
		l.drop(client)
	}
}

func (l *Lobby) broadcast(u Update) {
	for id := range l.clients {
		l.send(id, u)
	}
}

// drop disconnects a client whose outbox is full. The session change is
// announced once the current message is handled.
func (l *Lobby) drop(client int) {
	ch := l.clients[client]
	close(ch)
	delete(l.clients, client)
	l.state.RemoveClient(client)
	l.dirty = true
	l.log.Warn("dropping slow client", zap.Int("client", client))
	if client == l.host {
		l.cancel()
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more updates
		delete(l.clients, id)
	}
	l.cancel()
	if l.cfg.OnClose != nil {
		l.cfg.OnClose(l.cfg.Code)
		l.cfg.OnClose = nil
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby stops accepting messages.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }
