package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLoop(t *testing.T) (*Loop, <-chan error) {
	t.Helper()
	l := New()
	errc := make(chan error, 1)
	go func() { errc <- l.Run(context.Background()) }()
	t.Cleanup(l.Stop)
	return l, errc
}

func TestLoopRunsInPostOrder(t *testing.T) {
	l, _ := runLoop(t)

	var got []int
	done := make(chan struct{})
	for i := range 50 {
		l.Post(func() { got = append(got, i) })
	}
	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for loop")
	}
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoopPostFromManyGoroutinesNeverOverlaps(t *testing.T) {
	l, _ := runLoop(t)

	var wg sync.WaitGroup
	running := 0
	overlapped := false
	count := 0
	finished := make(chan struct{})

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() {
				running++
				if running > 1 {
					overlapped = true
				}
				count++
				running--
			})
		}()
	}
	wg.Wait()
	l.Post(func() { close(finished) })

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for loop")
	}
	assert.False(t, overlapped)
	assert.Equal(t, 20, count)
}

func TestLoopPostFromInsideLoop(t *testing.T) {
	l, _ := runLoop(t)
	done := make(chan struct{})
	l.Post(func() {
		l.Post(func() { close(done) })
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("nested post never ran")
	}
}

func TestLoopStop(t *testing.T) {
	l, errc := runLoop(t)
	l.Stop()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after Stop")
	}
	assert.False(t, l.Post(func() {}))
}

func TestLoopContextCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
