package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/studybuddy/studybuddy-server/internal/store"
)

// Hub coordinates chat sessions and rooms. A single run loop owns all room
// membership state, so join/leave/send never race; because sends are
// processed one at a time, a message is always persisted before it is
// broadcast and every room member observes messages in commit order.
type Hub struct {
	store store.Store
	log   *zerolog.Logger

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand

	// Owned by the run loop; never touched from outside it.
	rooms   map[string]*Room
	clients map[*Client]struct{}
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// NewHub creates a hub backed by the given store. The store authorizes room
// joins and persists messages.
func NewHub(st store.Store, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		store:      st,
		log:        logger,
		register:   make(chan *Client, 8),
		unregister: make(chan *Client, 8),
		commands:   make(chan clientCommand, 64),
		rooms:      make(map[string]*Room),
		clients:    make(map[*Client]struct{}),
	}
}

// RegisterClient adds a connected session to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient removes a session from the hub and every room it joined.
// Safe to call for a client that was never registered; invoked exactly once
// by the transport on disconnect.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// Run processes hub traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			go h.pump(ctx, c)
		case c := <-h.unregister:
			h.handleDisconnect(c)
		case cc := <-h.commands:
			h.handleCommand(ctx, cc.client, cc.cmd)
		case <-ctx.Done():
			return
		}
	}
}

// pump forwards one client's commands into the hub's single command stream.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleDisconnect(c *Client) {
	if _, known := h.clients[c]; !known {
		return
	}
	delete(h.clients, c)
	close(c.done)

	for matchID := range c.Rooms {
		if room, ok := h.rooms[matchID]; ok {
			room.RemoveClient(c)
			if room.Empty() {
				delete(h.rooms, matchID)
			}
		}
	}

	close(c.Events)
	h.log.Debug().Str("client_id", c.ID).Str("user_id", c.UserID).Msg("client disconnected")
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	if _, known := h.clients[c]; !known {
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		h.handleJoin(ctx, c, cmd.MatchID)
	case CommandLeaveRoom:
		h.handleLeave(c, cmd.MatchID)
	case CommandSendMessage:
		h.handleSend(ctx, c, cmd.MatchID, cmd.Text)
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, matchID string) {
	if matchID == "" {
		h.sendError(c, coreError(ErrCodeBadRequest, "match id is required"))
		return
	}

	// Joining twice has no additional effect.
	if _, joined := c.Rooms[matchID]; joined {
		return
	}

	m, err := h.store.GetMatch(ctx, matchID)
	if err != nil {
		h.sendError(c, coreError(ErrCodeMatchNotFound, "match not found"))
		return
	}
	if m.Status != store.MatchStatusMatched {
		h.sendError(c, coreError(ErrCodeNotMatched, "match is not mutual yet"))
		return
	}
	if c.UserID != m.Initiator && c.UserID != m.Target {
		h.sendError(c, coreError(ErrCodeNotParticipant, "not a participant of this match"))
		return
	}

	room, ok := h.rooms[matchID]
	if !ok {
		room = NewRoom(matchID)
		h.rooms[matchID] = room
	}
	room.AddClient(c)
	c.Rooms[matchID] = struct{}{}

	history, err := h.store.ListMessages(ctx, matchID)
	if err != nil {
		h.log.Warn().Err(err).Str("match_id", matchID).Msg("load history")
		h.sendError(c, coreError(ErrCodePersistenceFailed, "failed to load history"))
		return
	}
	h.send(c, &Event{Kind: EventHistory, MatchID: matchID, Messages: history})

	h.log.Debug().Str("user_id", c.UserID).Str("match_id", matchID).Msg("client joined room")
}

func (h *Hub) handleLeave(c *Client, matchID string) {
	if _, joined := c.Rooms[matchID]; !joined {
		return
	}
	delete(c.Rooms, matchID)

	if room, ok := h.rooms[matchID]; ok {
		room.RemoveClient(c)
		if room.Empty() {
			delete(h.rooms, matchID)
		}
	}
}

func (h *Hub) handleSend(ctx context.Context, c *Client, matchID, text string) {
	if text == "" {
		h.sendError(c, coreError(ErrCodeBadRequest, "message text is required"))
		return
	}
	if _, joined := c.Rooms[matchID]; !joined {
		h.sendError(c, coreError(ErrCodeNotInRoom, "join the room before sending"))
		return
	}

	// Persist first; broadcast only after the write commits. On failure the
	// error goes to the sender alone and nothing is delivered.
	msg, err := h.store.AppendMessage(ctx, matchID, c.UserID, text)
	if err != nil {
		h.log.Error().Err(err).Str("match_id", matchID).Msg("persist message")
		h.sendError(c, coreError(ErrCodePersistenceFailed, "failed to store message"))
		return
	}

	if room, ok := h.rooms[matchID]; ok {
		room.Broadcast(&Event{Kind: EventMessage, MatchID: matchID, Message: msg})
	}
}

func (h *Hub) send(c *Client, event *Event) {
	select {
	case c.Events <- event:
	default:
	}
}

func (h *Hub) sendError(c *Client, cerr *CoreError) {
	h.send(c, &Event{Kind: EventError, Error: cerr})
}
