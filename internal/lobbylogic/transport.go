package lobbylogic

import "github.com/DoyleJ11/skirmish-lobby/internal/session"

// Transport is the session messaging layer the lobby talks through. It owns
// the Session snapshot; Session() returns the latest one and is only
// replaced between notifications.
type Transport interface {
	// IssueCommand sends one "verb args" command to the host. It does not
	// wait for, or report, the outcome.
	IssueCommand(text string)

	// Subscribe registers fn for every notification. The returned function
	// detaches it.
	Subscribe(fn func(Event)) (unsubscribe func())

	LocalClientIndex() int
	IsHost() bool
	Host() string
	Port() int
	Session() session.Session
}

// Preferences remembers the player's last choices between sessions.
type Preferences interface {
	RememberName(name string)
	RememberColor(c session.ColorRamp)
	RememberMap(uid string)
}

type nopPreferences struct{}

func (nopPreferences) RememberName(string)              {}
func (nopPreferences) RememberColor(session.ColorRamp) {}
func (nopPreferences) RememberMap(string)               {}
