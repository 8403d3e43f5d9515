package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the client to a match's room.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unsubscribes the client from a match's room.
	CommandLeaveRoom
	// CommandSendMessage delivers a chat message to the match's room.
	CommandSendMessage
)

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	MatchID string
	Text    string
}
