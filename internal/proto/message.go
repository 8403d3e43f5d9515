package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoin  = "join_room"
	InboundTypeLeave = "leave_room"
	InboundTypeMsg   = "send_message"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameMessage = "receive_message"
	EventNameHistory = "history"
)

// JoinData requests to join the room of a specific match.
type JoinData struct {
	MatchID string `json:"matchId"`
}

// LeaveData requests to leave the room of a specific match.
type LeaveData struct {
	MatchID string `json:"matchId"`
}

// MsgData is a chat message from the client.
type MsgData struct {
	MatchID string `json:"matchId"`
	Text    string `json:"text"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage is a single persisted chat message delivered to room members.
type EventMessage struct {
	ID      string `json:"id"`
	MatchID string `json:"matchId"`
	Sender  string `json:"senderId"`
	Text    string `json:"text"`
	TS      int64  `json:"ts"`
}

// EventHistory delivers the full room history on join.
type EventHistory struct {
	MatchID  string         `json:"matchId"`
	Messages []EventMessage `json:"messages"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
