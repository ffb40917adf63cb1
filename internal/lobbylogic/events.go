package lobbylogic

import "github.com/DoyleJ11/skirmish-lobby/internal/session"

// Event is a notification from the transport. Notifications are delivered
// one at a time on the lobby's control flow and never overlap.
type Event interface{ isLobbyEvent() }

type SessionChanged struct{}

func (SessionChanged) isLobbyEvent() {}

type BeforeStart struct{}

func (BeforeStart) isLobbyEvent() {}

type ChatReceived struct {
	Color session.ColorRamp
	From  string
	Text  string
}

func (ChatReceived) isLobbyEvent() {}

type ConnectionStateChanged struct {
	State ConnectionState
}

func (ConnectionStateChanged) isLobbyEvent() {}

type ConnectionState int

const (
	Connected ConnectionState = iota
	NotConnected
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case NotConnected:
		return "not_connected"
	default:
		return "unknown"
	}
}
