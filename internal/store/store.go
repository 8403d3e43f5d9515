package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateSwipe is returned when a swipe in the same direction
	// already exists for the pair.
	ErrDuplicateSwipe = errors.New("swipe already recorded")
	// ErrDuplicateEmail is returned when registering an already-used email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// User represents a registered user.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Bio          string
	Subjects     []Subject
	Availability []string
	Rating       float64
	CreatedAt    time.Time
}

// Subject is a study subject a user offers or looks for.
type Subject struct {
	Name  string `json:"name"`
	Level int    `json:"level"` // 1..5
}

// Profile is the public view of a user, safe to return to other users.
type Profile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio"`
	Subjects     []Subject `json:"subjects"`
	Availability []string  `json:"availability"`
	Rating       float64   `json:"rating"`
}

// PublicProfile strips credentials from a user record.
func (u *User) PublicProfile() *Profile {
	return &Profile{
		ID:           u.ID,
		Name:         u.Name,
		Bio:          u.Bio,
		Subjects:     u.Subjects,
		Availability: u.Availability,
		Rating:       u.Rating,
	}
}

// MatchStatus defines the lifecycle state of a match record.
type MatchStatus string

const (
	MatchStatusPending MatchStatus = "pending"
	MatchStatusMatched MatchStatus = "matched"
)

// Match is a swipe relation between two users. Initiator is the user who
// swiped first, Target the user swiped on. Participants is populated only
// once the record reaches the matched state; matched is terminal.
type Match struct {
	ID           string
	Initiator    string
	Target       string
	Status       MatchStatus
	Participants []string
	CreatedAt    time.Time
}

// Message is a persisted chat message belonging to a match.
type Message struct {
	ID        string
	MatchID   string
	Sender    string
	Text      string
	CreatedAt time.Time
}

// ProfileUpdate carries optional profile fields; nil means "leave as is".
type ProfileUpdate struct {
	Name         *string
	Bio          *string
	Subjects     []Subject
	Availability []string
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrDuplicateEmail if the
	// email is taken.
	CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID. Returns ErrNotFound if missing.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email. Returns ErrNotFound if missing.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdateProfile applies the non-nil fields of upd to the user.
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error)

	// ListUsers returns up to limit users excluding excludeID.
	ListUsers(ctx context.Context, excludeID string, limit int) ([]*User, error)

	// ListUsersBySubjects returns up to limit users excluding excludeID who
	// share at least one of the given subject names.
	ListUsersBySubjects(ctx context.Context, excludeID string, subjects []string, limit int) ([]*User, error)
}

// MatchStore handles match persistence. The unique index on
// (initiator, target) is the storage-level backstop for the swipe race:
// two same-direction inserts racing concurrently collapse to one record.
type MatchStore interface {
	// CreateMatch inserts a pending match record. Returns ErrDuplicateSwipe
	// if a record with the same (initiator, target) already exists.
	CreateMatch(ctx context.Context, initiator, target string) (*Match, error)

	// GetMatch retrieves a match by ID. Returns ErrNotFound if missing.
	GetMatch(ctx context.Context, id string) (*Match, error)

	// GetMatchBetween retrieves the match record between two users in
	// either direction, any status. Returns ErrNotFound if none exists.
	GetMatchBetween(ctx context.Context, userA, userB string) (*Match, error)

	// PromoteMatch flips a pending record to matched. The update is
	// conditional on status still being pending, so the transition fires
	// at most once. Returns ErrNotFound if no pending record has that ID.
	PromoteMatch(ctx context.Context, id string) (*Match, error)

	// ListMatched returns matched records where user is a participant.
	ListMatched(ctx context.Context, user string) ([]*Match, error)

	// ListPendingIncoming returns pending records where user is the target.
	ListPendingIncoming(ctx context.Context, user string) ([]*Match, error)
}

// MessageStore handles chat message persistence.
type MessageStore interface {
	// AppendMessage durably stores a message, assigning its server-side
	// ID and timestamp, and returns the materialized record.
	AppendMessage(ctx context.Context, matchID, sender, text string) (*Message, error)

	// ListMessages returns all messages for a match, oldest first. Ties on
	// created_at are broken by insertion order.
	ListMessages(ctx context.Context, matchID string) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MatchStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
