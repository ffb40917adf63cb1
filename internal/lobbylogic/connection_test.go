package lobbylogic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDialer struct {
	next  []*fakeTransport
	err   error
	calls chan string
}

func (d *stubDialer) Dial(_ context.Context, host string, port int) (Transport, error) {
	d.calls <- host
	if d.err != nil {
		return nil, d.err
	}
	t := d.next[0]
	d.next = d.next[1:]
	return t, nil
}

// harness collects everything the connection reports and runs posted
// functions when the test asks for them.
type harness struct {
	posted    chan func()
	prompts   []Prompt
	teardowns int
	exits     int
	binds     []*Lobby
}

func newHarness() *harness {
	return &harness{posted: make(chan func(), 4)}
}

func (h *harness) options(d Dialer) ConnectionOptions {
	return ConnectionOptions{
		Dialer:     d,
		Post:       func(fn func()) bool { h.posted <- fn; return true },
		OnBind:     func(l *Lobby) { h.binds = append(h.binds, l) },
		OnTeardown: func() { h.teardowns++ },
		OnPrompt:   func(p Prompt) { h.prompts = append(h.prompts, p) },
		OnExit:     func() { h.exits++ },
	}
}

func (h *harness) runPosted(t *testing.T) {
	t.Helper()
	select {
	case fn := <-h.posted:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for posted function")
	}
}

func connectedTransport() *fakeTransport {
	return &fakeTransport{s: twoSlots(), local: 1, host: true, addr: "10.0.0.5", port: 1234}
}

func TestDropPromptsOncePerDrop(t *testing.T) {
	h := newHarness()
	c := NewConnection(h.options(nil))
	tr := connectedTransport()
	c.Bind(tr)
	require.Equal(t, Connected, c.State())
	require.Equal(t, 2, tr.subscribers())

	tr.publish(ConnectionStateChanged{State: NotConnected})
	tr.publish(ConnectionStateChanged{State: NotConnected})

	require.Len(t, h.prompts, 1)
	assert.Equal(t, "10.0.0.5", h.prompts[0].Host)
	assert.Equal(t, 1234, h.prompts[0].Port)
	assert.Equal(t, 1, h.teardowns)
	assert.Equal(t, 0, tr.subscribers())
	assert.Nil(t, c.Lobby())
	assert.Equal(t, NotConnected, c.State())
}

func TestRetryBindsFreshDispatcher(t *testing.T) {
	h := newHarness()
	fresh := connectedTransport()
	dialer := &stubDialer{next: []*fakeTransport{fresh}, calls: make(chan string, 1)}
	c := NewConnection(h.options(dialer))

	stale := connectedTransport()
	staleDispatcher := c.Bind(stale).Dispatcher()
	stale.publish(ConnectionStateChanged{State: NotConnected})
	require.Len(t, h.prompts, 1)

	h.prompts[0].Retry()
	h.prompts[0].Retry()
	assert.Equal(t, "10.0.0.5", <-dialer.calls)
	h.runPosted(t)

	require.Len(t, h.binds, 2)
	require.Same(t, h.binds[1], c.Lobby())
	assert.Equal(t, Connected, c.State())

	assert.False(t, staleDispatcher.ToggleReady())
	d, err := c.Dispatcher()
	require.NoError(t, err)
	assert.NotSame(t, staleDispatcher, d)
	assert.True(t, d.ToggleReady())

	assert.Empty(t, stale.sent)
	assert.Equal(t, []string{"ready"}, fresh.sent)
	assert.Len(t, h.posted, 0)
}

func TestRetryFailureOffersNewPrompt(t *testing.T) {
	h := newHarness()
	dialErr := errors.New("connection refused")
	dialer := &stubDialer{err: dialErr, calls: make(chan string, 1)}
	c := NewConnection(h.options(dialer))
	tr := connectedTransport()
	c.Bind(tr)
	tr.publish(ConnectionStateChanged{State: NotConnected})

	h.prompts[0].Retry()
	<-dialer.calls
	h.runPosted(t)

	require.Len(t, h.prompts, 2)
	assert.ErrorIs(t, h.prompts[1].Err, dialErr)
	// The old prompt is spent.
	h.prompts[0].Abort()
	assert.Equal(t, 0, h.exits)

	h.prompts[1].Abort()
	h.prompts[1].Abort()
	assert.Equal(t, 1, h.exits)
}

func TestNoPromptAfterStart(t *testing.T) {
	h := newHarness()
	c := NewConnection(h.options(nil))
	tr := connectedTransport()
	c.Bind(tr)

	tr.publish(BeforeStart{})
	tr.publish(ConnectionStateChanged{State: NotConnected})

	assert.Empty(t, h.prompts)
	assert.Equal(t, 1, h.teardowns)
}

func TestCloseDetachesWithoutPrompt(t *testing.T) {
	h := newHarness()
	c := NewConnection(h.options(nil))
	tr := connectedTransport()
	l := c.Bind(tr)

	c.Close()
	tr.publish(ConnectionStateChanged{State: NotConnected})

	assert.True(t, l.Detached())
	assert.Empty(t, h.prompts)
	_, err := c.Dispatcher()
	assert.ErrorIs(t, err, ErrNoTransport)
}

type closingTransport struct {
	*fakeTransport
	closed chan struct{}
}

func newClosingTransport() *closingTransport {
	return &closingTransport{fakeTransport: connectedTransport(), closed: make(chan struct{}, 4)}
}

func (c *closingTransport) Close() error {
	c.closed <- struct{}{}
	return nil
}

// closingDialer hands out one closingTransport per call.
type closingDialer struct {
	next *closingTransport
}

func (d *closingDialer) Dial(context.Context, string, int) (Transport, error) {
	return d.next, nil
}

func waitClosed(t *testing.T, tr *closingTransport) {
	t.Helper()
	select {
	case <-tr.closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("transport was never closed")
	}
}

func TestTeardownClosesTransport(t *testing.T) {
	h := newHarness()
	c := NewConnection(h.options(nil))
	tr := newClosingTransport()
	c.Bind(tr)

	c.Bind(connectedTransport())
	assert.Len(t, tr.closed, 1)
	assert.Equal(t, 0, tr.subscribers())
	assert.Empty(t, h.prompts)
}

func TestDialAfterCloseIsDiscarded(t *testing.T) {
	h := newHarness()
	fresh := newClosingTransport()
	c := NewConnection(h.options(&closingDialer{next: fresh}))
	tr := connectedTransport()
	c.Bind(tr)
	tr.publish(ConnectionStateChanged{State: NotConnected})
	require.Len(t, h.prompts, 1)

	h.prompts[0].Retry()
	c.Close()
	h.runPosted(t)

	waitClosed(t, fresh)
	assert.Len(t, h.binds, 1)
	assert.Nil(t, c.Lobby())
	assert.Equal(t, 0, fresh.subscribers())
}

func TestDialAfterLoopStopIsClosed(t *testing.T) {
	h := newHarness()
	fresh := newClosingTransport()
	opts := h.options(&closingDialer{next: fresh})
	opts.Post = func(func()) bool { return false }
	c := NewConnection(opts)
	tr := connectedTransport()
	c.Bind(tr)
	tr.publish(ConnectionStateChanged{State: NotConnected})
	require.Len(t, h.prompts, 1)

	h.prompts[0].Retry()
	waitClosed(t, fresh)
	assert.Len(t, h.binds, 1)
}
