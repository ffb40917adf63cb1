package hub

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/skirmish-lobby/internal/lobby"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

func newState() session.Session {
	return session.New("Test", "desert", []session.Slot{{Index: 0, MapPlayer: "multi0"}})
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, Config{})
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- CreateLobby{Code: "ZED123", State: newState(), Reply: reply}
	lb1 := <-reply

	h.Inbox() <- GetLobby{Code: "ZED123", Reply: reply}
	lb2 := <-reply

	if lb1 == nil || lb2 == nil || lb1 != lb2 {
		t.Fatalf("expected same lobby pointer")
	}

	h.Inbox() <- EnsureLobby{Code: "ZED123", State: newState(), Reply: reply}
	if lb3 := <-reply; lb3 != lb1 {
		t.Fatalf("ensure should return the existing lobby")
	}
}

func TestHub_GetUnknownIsNil(t *testing.T) {
	h := NewHub(context.Background(), Config{})
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- GetLobby{Code: "NOPE00", Reply: reply}
	if lb := <-reply; lb != nil {
		t.Fatalf("expected nil lobby for unknown code")
	}
}

func TestHub_ClosedLobbyIsRemoved(t *testing.T) {
	h := NewHub(context.Background(), Config{})
	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- CreateLobby{Code: "ABC123", State: newState(), Reply: reply}
	lb := <-reply

	lb.Inbox() <- lobby.Shutdown{}
	<-lb.Done()

	deadline := time.After(time.Second)
	for {
		count := make(chan int, 1)
		h.Inbox() <- CountLobbies{Reply: count}
		if <-count == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("closed lobby was never removed from the hub")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHub_ShutdownStopsLobbies(t *testing.T) {
	h := NewHub(context.Background(), Config{})
	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- CreateLobby{Code: "ABC123", State: newState(), Reply: reply}
	lb := <-reply

	h.Inbox() <- ShutdownHub{}

	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatalf("lobby still running after hub shutdown")
	}
	<-h.Done()
}
