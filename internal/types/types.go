// Package types is the JSON envelope exchanged over the lobby websocket.
//
// Client -> Host
//
//	Hello:   { "type": "Hello", "name": string }            first message, exactly once
//	Command: { "type": "Command", "text": "verb args" }      any lobby command
//
// Host -> Client
//
//	Welcome:        { "type": "Welcome", "client_index": number, "is_host": bool }
//	SessionChanged: { "type": "SessionChanged", "version": number, "session": Session }
//	Chat:           { "type": "Chat", "color": "H,S,L,R", "from": string, "text": string, "team": bool }
//	BeforeStart:    { "type": "BeforeStart" }
//	Kicked:         { "type": "Kicked" }                       the host closes the socket next
//	Error:          { "type": "Error", "error": string }
//
// Rejected commands get no reply; the only sign is that no SessionChanged follows.
package types

import "github.com/DoyleJ11/skirmish-lobby/internal/session"

const (
	MsgHello   = "Hello"
	MsgCommand = "Command"

	MsgWelcome        = "Welcome"
	MsgSessionChanged = "SessionChanged"
	MsgChat           = "Chat"
	MsgBeforeStart    = "BeforeStart"
	MsgKicked         = "Kicked"
	MsgError          = "Error"
)

type ClientMessage struct {
	Type string `json:"type"` // "Hello" | "Command"
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

type ServerMessage struct {
	Type        string           `json:"type"`
	ClientIndex *int             `json:"client_index,omitempty"`
	IsHost      bool             `json:"is_host,omitempty"`
	Version     int              `json:"version,omitempty"`
	Session     *session.Session `json:"session,omitempty"`
	Color       string           `json:"color,omitempty"`
	From        string           `json:"from,omitempty"`
	Text        string           `json:"text,omitempty"`
	Team        bool             `json:"team,omitempty"`
	Error       string           `json:"error,omitempty"`
}

func Welcome(clientIndex int, isHost bool) ServerMessage {
	return ServerMessage{Type: MsgWelcome, ClientIndex: &clientIndex, IsHost: isHost}
}

func Error(err string) ServerMessage {
	return ServerMessage{Type: MsgError, Error: err}
}
