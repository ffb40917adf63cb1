// Package hub is the registry of running lobbies, keyed by join code.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/skirmish-lobby/internal/lobby"
	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Code  string
	State session.Session
	Reply chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type EnsureLobby struct {
	Code  string
	State session.Session // only used if creation happens
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (EnsureLobby) isHubMsg()  {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

// Config is shared by every lobby the hub creates.
type Config struct {
	Maps     maps.Lookup
	Recorder lobby.Recorder
	Logger   *zap.Logger
}

type Hub struct {
	inbox   chan HubMsg
	cfg     Config
	log     *zap.Logger
	lobbies map[string]*lobby.Lobby
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		cfg:     cfg,
		log:     cfg.Logger,
		lobbies: make(map[string]*lobby.Lobby),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				msg.Reply <- h.ensure(msg.Code, msg.State)

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				msg.Reply <- h.ensure(msg.Code, msg.State)

			case RemoveLobby:
				if _, ok := h.lobbies[msg.Code]; ok {
					delete(h.lobbies, msg.Code)
					h.log.Info("lobby removed", zap.String("lobby", msg.Code))
				}

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) ensure(code string, state session.Session) *lobby.Lobby {
	if lb := h.lobbies[code]; lb != nil {
		return lb
	}
	lb := lobby.NewLobby(h.ctx, state, lobby.Config{
		Code:     code,
		Maps:     h.cfg.Maps,
		Recorder: h.cfg.Recorder,
		Logger:   h.log,
		OnClose:  h.removeLater,
	})
	h.lobbies[code] = lb
	h.log.Info("lobby created", zap.String("lobby", code), zap.String("map", state.GlobalSettings.Map))
	return lb
}

// removeLater runs on a lobby goroutine, so it must not block on the hub.
func (h *Hub) removeLater(code string) {
	go func() {
		select {
		case h.inbox <- RemoveLobby{Code: code}:
		case <-h.ctx.Done():
		}
	}()
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		select {
		case lb.Inbox() <- lobby.Shutdown{}:
		case <-lb.Done():
		}
	}
	clear(h.lobbies)
	h.cancel()
}
