package core

// Client is a connected chat session as seen by the core layer. UserID is
// the authenticated identity behind the connection; ID distinguishes
// multiple sessions of the same user.
type Client struct {
	ID       string
	UserID   string
	Commands chan *Command
	Events   chan *Event
	Rooms    map[string]struct{}

	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id, userID string) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 8),
		Rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}
