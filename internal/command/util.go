package command

import (
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

// DefaultColorRamp is what a newly joined client starts with until it
// sends its own "color".
var DefaultColorRamp = session.ColorRamp{H: 75, S: 255, L: 180, R: session.DefaultRampRadius}

// Join adds a client named name to s, seating it in the first joinable
// non-spectator slot if there is one. New indexes start above the highest
// index in use.
func Join(s session.Session, name string) (session.Session, session.Client) {
	newState := s.Clone()
	c := session.Client{
		Index:     nextClientIndex(s),
		Name:      name,
		ColorRamp: DefaultColorRamp,
		Country:   session.RandomCountry,
		Slot:      session.NoSlot,
		State:     session.StateNotReady,
	}
	for _, sl := range s.Slots {
		if !sl.Spectator && slotJoinable(s, sl) {
			c.Slot = sl.Index
			break
		}
	}
	newState.Clients = append(newState.Clients, c)
	return newState, c
}

func nextClientIndex(s session.Session) int {
	next := 0
	for _, c := range s.Clients {
		if c.Index >= next {
			next = c.Index + 1
		}
	}
	return next
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
