package core

import "github.com/studybuddy/studybuddy-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessage delivers a chat message to room members.
	EventMessage EventKind = iota
	// EventHistory delivers message history to a client upon joining a room.
	EventHistory
	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	MatchID  string
	Message  *store.Message
	Messages []*store.Message // For EventHistory
	Error    *CoreError
}
