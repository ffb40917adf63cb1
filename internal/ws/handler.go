// Package ws serves the lobby websocket: one connection per client, JSON
// envelopes from internal/types in both directions.
package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/skirmish-lobby/internal/hub"
	"github.com/DoyleJ11/skirmish-lobby/internal/lobby"
	"github.com/DoyleJ11/skirmish-lobby/internal/types"
)

const (
	helloTimeout = 10 * time.Second
	writeTimeout = 3 * time.Second
	outboxSize   = 32
)

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connLog := log.With(zap.String("lobby", code), zap.String("conn", uuid.NewString()))
		serve(r.Context(), conn, lb, connLog)
	}
}

func serve(ctx context.Context, conn *websocket.Conn, lb *lobby.Lobby, log *zap.Logger) {
	name, err := readHello(ctx, conn)
	if err != nil {
		log.Debug("no hello", zap.Error(err))
		writeError(ctx, conn, "expected Hello")
		conn.Close(websocket.StatusPolicyViolation, "expected Hello")
		return
	}

	out := make(chan lobby.Update, outboxSize)
	res, err := join(lb, name, out)
	if err == nil {
		err = res.Err
	}
	if err != nil {
		log.Info("join refused", zap.String("name", name), zap.Error(err))
		writeError(ctx, conn, err.Error())
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}
	log = log.With(zap.Int("client", res.Client))
	defer func() {
		select {
		case lb.Inbox() <- lobby.Leave{Client: res.Client}:
		case <-lb.Done():
		}
	}()

	// Writer goroutine
	writeCtx, writeCancel := context.WithCancel(ctx)
	defer writeCancel()
	go func() {
		for u := range out {
			wctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
			err := wsjson.Write(wctx, conn, toServerMessage(u))
			cancel()
			if err != nil {
				log.Debug("write", zap.Error(err))
				return
			}
			if u.Kind == lobby.UpdateKicked {
				conn.Close(websocket.StatusPolicyViolation, "kicked")
				return
			}
		}
		// The lobby closed our outbox: it shut down or dropped us.
		conn.Close(websocket.StatusNormalClosure, "lobby closed")
	}()

	// Reader loop
	for {
		var cm types.ClientMessage
		if err := wsjson.Read(ctx, conn, &cm); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Debug("client closed")
			default:
				log.Debug("read", zap.Error(err))
			}
			return
		}

		if cm.Type != types.MsgCommand {
			writeError(ctx, conn, "unknown type")
			continue
		}
		select {
		case lb.Inbox() <- lobby.FromClient{Client: res.Client, Text: cm.Text}:
		case <-lb.Done():
			return
		}
	}
}

func readHello(ctx context.Context, conn *websocket.Conn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, helloTimeout)
	defer cancel()
	var cm types.ClientMessage
	if err := wsjson.Read(ctx, conn, &cm); err != nil {
		return "", err
	}
	if cm.Type != types.MsgHello || cm.Name == "" {
		return "", errors.New("first message must be a named Hello")
	}
	return cm.Name, nil
}

func join(lb *lobby.Lobby, name string, out chan lobby.Update) (lobby.JoinResult, error) {
	reply := make(chan lobby.JoinResult, 1)
	select {
	case lb.Inbox() <- lobby.Join{Name: name, Outbox: out, Reply: reply}:
	case <-lb.Done():
		return lobby.JoinResult{}, lobby.ErrLobbyClosed
	}
	select {
	case res := <-reply:
		return res, nil
	case <-lb.Done():
		return lobby.JoinResult{}, lobby.ErrLobbyClosed
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, types.Error(msg))
}

func toServerMessage(u lobby.Update) types.ServerMessage {
	switch u.Kind {
	case lobby.UpdateWelcome:
		return types.Welcome(u.Client, u.Host)
	case lobby.UpdateSession:
		s := u.Session
		return types.ServerMessage{Type: types.MsgSessionChanged, Version: u.Version, Session: &s}
	case lobby.UpdateChat:
		return types.ServerMessage{
			Type:  types.MsgChat,
			Color: u.Chat.Color.String(),
			From:  u.Chat.From,
			Text:  u.Chat.Text,
			Team:  u.Chat.Team,
		}
	case lobby.UpdateBeforeStart:
		return types.ServerMessage{Type: types.MsgBeforeStart}
	case lobby.UpdateKicked:
		return types.ServerMessage{Type: types.MsgKicked}
	default:
		return types.Error("unknown update")
	}
}
