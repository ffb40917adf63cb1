// Package wsclient is the lobby transport over the host's websocket. It owns
// the session snapshot and delivers notifications on the caller's event loop.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/skirmish-lobby/internal/lobbylogic"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
	"github.com/DoyleJ11/skirmish-lobby/internal/types"
)

var ErrRejected = errors.New("host rejected the connection")
var ErrHandshake = errors.New("unexpected handshake message")

const (
	defaultOutbox  = 256
	writeTimeout   = 5 * time.Second
	maxMessageSize = 1 << 20
)

type Options struct {
	// Post runs a function on the event loop. Every notification and every
	// snapshot replacement goes through it.
	Post   func(func()) bool
	Name   string
	Code   string
	Logger *zap.Logger
	// OutboxSize bounds commands waiting for the writer.
	OutboxSize int
}

// Transport implements lobbylogic.Transport. Apart from Close, its methods
// must be called on the event loop.
type Transport struct {
	opts Options
	log  *zap.Logger
	host string
	port int

	conn      *websocket.Conn
	out       chan string
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error

	// Owned by the event loop.
	s       session.Session
	version int
	local   int
	isHost  bool
	subs    map[int]func(lobbylogic.Event)
	order   []int
	nextSub int
	lost    bool
}

// Dial connects to host:port, joins the lobby named by opts.Code and waits
// for the first snapshot.
func Dial(ctx context.Context, host string, port int, opts Options) (*Transport, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = defaultOutbox
	}
	u := url.URL{
		Scheme:   "ws",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/ws",
		RawQuery: url.Values{"code": {opts.Code}}.Encode(),
	}

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}
	conn.SetReadLimit(maxMessageSize)

	t := &Transport{
		opts: opts,
		log:  opts.Logger.With(zap.String("host", u.Host), zap.String("lobby", opts.Code)),
		host: host,
		port: port,
		conn: conn,
		out:  make(chan string, opts.OutboxSize),
		subs: make(map[int]func(lobbylogic.Event)),
	}
	if err := t.handshake(ctx); err != nil {
		conn.Close(websocket.StatusNormalClosure, "handshake failed")
		return nil, err
	}
	t.start()
	return t, nil
}

// handshake sends Hello and reads Welcome plus the first SessionChanged.
// It runs before the transport is visible to the loop.
func (t *Transport) handshake(ctx context.Context) error {
	if err := wsjson.Write(ctx, t.conn, types.ClientMessage{Type: types.MsgHello, Name: t.opts.Name}); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}
	welcomed := false
	for {
		var msg types.ServerMessage
		if err := wsjson.Read(ctx, t.conn, &msg); err != nil {
			return fmt.Errorf("read handshake: %w", err)
		}
		switch {
		case msg.Type == types.MsgError:
			return fmt.Errorf("%w: %s", ErrRejected, msg.Error)
		case msg.Type == types.MsgWelcome && msg.ClientIndex != nil:
			t.local = *msg.ClientIndex
			t.isHost = msg.IsHost
			welcomed = true
		case msg.Type == types.MsgSessionChanged && welcomed && msg.Session != nil:
			t.s = *msg.Session
			t.version = msg.Version
			t.log.Info("joined lobby", zap.Int("client", t.local), zap.Bool("is_host", t.isHost), zap.Int("version", t.version))
			return nil
		default:
			return fmt.Errorf("%w: %s", ErrHandshake, msg.Type)
		}
	}
}

func (t *Transport) start() {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return t.readLoop(gctx) })
	g.Go(func() error { return t.writeLoop(gctx) })
	go func() {
		err := g.Wait()
		t.conn.Close(websocket.StatusNormalClosure, "bye")
		t.opts.Post(func() { t.connectionLost(err) })
	}()
}

func (t *Transport) readLoop(ctx context.Context) error {
	for {
		var msg types.ServerMessage
		if err := wsjson.Read(ctx, t.conn, &msg); err != nil {
			return err
		}
		switch msg.Type {
		case types.MsgSessionChanged:
			if msg.Session == nil {
				continue
			}
			s, v := *msg.Session, msg.Version
			t.opts.Post(func() { t.replace(s, v) })

		case types.MsgChat:
			color, err := session.ParseColorRamp(msg.Color)
			if err != nil {
				t.log.Debug("chat color", zap.Error(err))
			}
			ev := lobbylogic.ChatReceived{Color: color, From: msg.From, Text: msg.Text}
			t.opts.Post(func() { t.publish(ev) })

		case types.MsgBeforeStart:
			t.opts.Post(func() { t.publish(lobbylogic.BeforeStart{}) })

		case types.MsgKicked:
			t.log.Info("kicked from lobby")

		case types.MsgError:
			t.log.Warn("host error", zap.String("error", msg.Error))

		default:
			t.log.Debug("ignoring message", zap.String("type", msg.Type))
		}
	}
}

func (t *Transport) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text := <-t.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, t.conn, types.ClientMessage{Type: types.MsgCommand, Text: text})
			cancel()
			if err != nil {
				return fmt.Errorf("send command: %w", err)
			}
		}
	}
}

// replace swaps the snapshot before anyone hears about it. Snapshots older
// than the current one are ignored.
func (t *Transport) replace(s session.Session, version int) {
	if t.lost || version <= t.version {
		return
	}
	t.s = s
	t.version = version
	t.publish(lobbylogic.SessionChanged{})
}

func (t *Transport) connectionLost(err error) {
	if t.lost {
		return
	}
	t.lost = true
	if err != nil && !errors.Is(err, context.Canceled) {
		t.log.Warn("connection lost", zap.Error(err))
	} else {
		t.log.Info("connection closed")
	}
	t.publish(lobbylogic.ConnectionStateChanged{State: lobbylogic.NotConnected})
}

func (t *Transport) publish(ev lobbylogic.Event) {
	ids := append([]int(nil), t.order...)
	for _, id := range ids {
		if fn, ok := t.subs[id]; ok {
			fn(ev)
		}
	}
}

// IssueCommand queues text for the writer. Commands leave in the order they
// were issued.
func (t *Transport) IssueCommand(text string) {
	if t.lost {
		t.log.Debug("dropping command, not connected", zap.String("command", text))
		return
	}
	select {
	case t.out <- text:
	default:
		t.log.Warn("outbox full, dropping command", zap.String("command", text))
	}
}

func (t *Transport) Subscribe(fn func(lobbylogic.Event)) func() {
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.order = append(t.order, id)
	return func() {
		delete(t.subs, id)
		for i, v := range t.order {
			if v == id {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
}

func (t *Transport) LocalClientIndex() int    { return t.local }
func (t *Transport) IsHost() bool             { return t.isHost }
func (t *Transport) Host() string             { return t.host }
func (t *Transport) Port() int                { return t.port }
func (t *Transport) Session() session.Session { return t.s }

// Close hangs up. The loss is still reported to subscribers that remain.
// Safe to call more than once.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
		t.closeErr = ignoreClosed(t.conn.Close(websocket.StatusNormalClosure, "bye"))
	})
	return t.closeErr
}

func ignoreClosed(err error) error {
	var ce websocket.CloseError
	if err == nil || errors.As(err, &ce) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Connector dials fresh transports with fixed options. It satisfies
// lobbylogic.Dialer.
type Connector struct {
	Options Options
}

func (c Connector) Dial(ctx context.Context, host string, port int) (lobbylogic.Transport, error) {
	t, err := Dial(ctx, host, port, c.Options)
	if err != nil {
		return nil, err
	}
	return t, nil
}
