package lobbylogic

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

var ErrNoTransport = errors.New("no transport bound")

// Dialer opens a new transport to a lobby host.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (Transport, error)
}

// Prompt is the recovery choice offered after a connection drop. Retry and
// Abort must be called on the control flow; only the first call of either
// counts.
type Prompt struct {
	Host  string
	Port  int
	Err   error // set when a retry failed
	Retry func()
	Abort func()
}

type ConnectionOptions struct {
	Dialer Dialer
	// Post hands a function to the control flow. Dial results come back
	// through it.
	Post        func(func()) bool
	DialTimeout time.Duration

	// Lobby is the template every bound Lobby is built from. Its Transport
	// field is ignored.
	Lobby Options

	OnBind     func(*Lobby)
	OnTeardown func()
	OnPrompt   func(Prompt)
	OnExit     func()
	Logger     *zap.Logger
}

// Connection owns the lobby bound to the current transport and handles
// drops: it tears the lobby down and offers exactly one prompt per drop.
// Nothing is retried automatically.
type Connection struct {
	opts ConnectionOptions
	log  *zap.Logger

	transport   Transport
	lobby       *Lobby
	unsubscribe func()
	state       ConnectionState

	started  bool
	prompt   int  // id of the outstanding prompt
	awaiting bool // a prompt is outstanding
	dialing  bool
	host     string
	port     int
}

func NewConnection(opts ConnectionOptions) *Connection {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.Lobby.Logger == nil {
		opts.Lobby.Logger = opts.Logger
	}
	return &Connection{opts: opts, log: opts.Logger, state: NotConnected}
}

// Bind attaches a fresh Lobby to t and returns it. Any previous lobby is
// detached first.
func (c *Connection) Bind(t Transport) *Lobby {
	c.teardown()

	c.transport = t
	c.host, c.port = t.Host(), t.Port()
	c.state = Connected
	c.awaiting = false

	lo := c.opts.Lobby
	lo.Transport = t
	onStart := lo.OnStart
	lo.OnStart = func() {
		c.started = true
		if onStart != nil {
			onStart()
		}
	}
	c.lobby = New(lo)
	c.unsubscribe = t.Subscribe(c.handle)
	c.lobby.Attach()

	c.log.Info("lobby bound", zap.String("host", c.host), zap.Int("port", c.port), zap.Int("client", t.LocalClientIndex()), zap.Bool("host_player", t.IsHost()))
	if c.opts.OnBind != nil {
		c.opts.OnBind(c.lobby)
	}
	return c.lobby
}

// Lobby returns the currently bound lobby, or nil while disconnected.
func (c *Connection) Lobby() *Lobby { return c.lobby }

func (c *Connection) State() ConnectionState { return c.state }

// Dispatcher returns the live dispatcher.
func (c *Connection) Dispatcher() (*Dispatcher, error) {
	if c.lobby == nil {
		return nil, ErrNoTransport
	}
	return c.lobby.Dispatcher(), nil
}

func (c *Connection) handle(ev Event) {
	e, ok := ev.(ConnectionStateChanged)
	if !ok || e.State != NotConnected {
		return
	}
	c.drop()
}

func (c *Connection) drop() {
	if c.state == NotConnected {
		return
	}
	c.state = NotConnected
	c.teardown()
	if c.started {
		c.log.Info("connection closed after game start")
		return
	}
	c.log.Warn("connection lost", zap.String("host", c.host), zap.Int("port", c.port))
	c.offer(nil)
}

func (c *Connection) teardown() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.lobby == nil {
		return
	}
	c.lobby.Detach()
	closeTransport(c.transport, c.log)
	c.lobby = nil
	c.transport = nil
	if c.opts.OnTeardown != nil {
		c.opts.OnTeardown()
	}
}

func (c *Connection) offer(err error) {
	c.prompt++
	c.awaiting = true
	id := c.prompt
	p := Prompt{
		Host:  c.host,
		Port:  c.port,
		Err:   err,
		Retry: func() { c.retry(id) },
		Abort: func() { c.abort(id) },
	}
	if c.opts.OnPrompt != nil {
		c.opts.OnPrompt(p)
	}
}

func (c *Connection) current(id int) bool {
	return c.awaiting && id == c.prompt && !c.dialing
}

func (c *Connection) retry(id int) {
	if !c.current(id) {
		return
	}
	if c.opts.Dialer == nil || c.opts.Post == nil {
		c.awaiting = false
		c.offer(ErrNoTransport)
		return
	}
	c.dialing = true
	host, port := c.host, c.port
	c.log.Info("reconnecting", zap.String("host", host), zap.Int("port", port))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
		defer cancel()
		t, err := c.opts.Dialer.Dial(ctx, host, port)
		if !c.opts.Post(func() { c.dialed(id, t, err) }) && err == nil {
			c.log.Info("loop stopped during reconnect, closing transport")
			closeTransport(t, c.log)
		}
	}()
}

func (c *Connection) dialed(id int, t Transport, err error) {
	c.dialing = false
	if id != c.prompt || !c.awaiting {
		if err == nil {
			closeTransport(t, c.log)
		}
		return
	}
	if err != nil {
		c.log.Warn("reconnect failed", zap.String("host", c.host), zap.Int("port", c.port), zap.Error(err))
		c.offer(err)
		return
	}
	c.Bind(t)
}

func (c *Connection) abort(id int) {
	if !c.current(id) {
		return
	}
	c.awaiting = false
	c.log.Info("connection abandoned", zap.String("host", c.host), zap.Int("port", c.port))
	if c.opts.OnExit != nil {
		c.opts.OnExit()
	}
}

// Close detaches the bound lobby without prompting.
func (c *Connection) Close() {
	c.state = NotConnected
	c.awaiting = false
	c.teardown()
}

func closeTransport(t Transport, log *zap.Logger) {
	cl, ok := t.(io.Closer)
	if !ok {
		return
	}
	if err := cl.Close(); err != nil {
		log.Debug("close transport", zap.Error(err))
	}
}
