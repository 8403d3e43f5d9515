package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/studybuddy/studybuddy-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also serializes
	// writes, which gives messages a total commit order.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup opens the database and runs a setup function instead of the
// default schema. Useful for tests that need extra seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// ==== UserStore implementation ====

// CreateUser inserts a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*store.User, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO users (id, name, email, password_hash)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, name, email, passwordHash); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, bio, availability, rating, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(ctx, s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, bio, availability, rating, created_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(ctx, s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(ctx context.Context, row *sql.Row) (*store.User, error) {
	var user store.User
	var availability string
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Bio,
		&availability,
		&user.Rating,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if err := json.Unmarshal([]byte(availability), &user.Availability); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}

	subjects, err := s.loadSubjects(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Subjects = subjects

	return &user, nil
}

func (s *SQLiteStore) loadSubjects(ctx context.Context, userID string) ([]store.Subject, error) {
	query := `
		SELECT name, level FROM user_subjects
		WHERE user_id = ?
		ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []store.Subject
	for rows.Next() {
		var subj store.Subject
		if err := rows.Scan(&subj.Name, &subj.Level); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, subj)
	}

	return subjects, rows.Err()
}

// UpdateProfile applies partial profile changes inside a transaction so the
// subjects table stays consistent with the user row.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, id string, upd store.ProfileUpdate) (*store.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if upd.Name != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, *upd.Name, id); err != nil {
			return nil, fmt.Errorf("update name: %w", err)
		}
	}
	if upd.Bio != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET bio = ? WHERE id = ?`, *upd.Bio, id); err != nil {
			return nil, fmt.Errorf("update bio: %w", err)
		}
	}
	if upd.Availability != nil {
		data, err := json.Marshal(upd.Availability)
		if err != nil {
			return nil, fmt.Errorf("encode availability: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET availability = ? WHERE id = ?`, string(data), id); err != nil {
			return nil, fmt.Errorf("update availability: %w", err)
		}
	}
	if upd.Subjects != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_subjects WHERE user_id = ?`, id); err != nil {
			return nil, fmt.Errorf("clear subjects: %w", err)
		}
		for _, subj := range upd.Subjects {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_subjects (user_id, name, level) VALUES (?, ?, ?)`,
				id, subj.Name, subj.Level,
			); err != nil {
				return nil, fmt.Errorf("insert subject: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// ListUsers returns up to limit users excluding excludeID.
func (s *SQLiteStore) ListUsers(ctx context.Context, excludeID string, limit int) ([]*store.User, error) {
	query := `
		SELECT id FROM users
		WHERE id != ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	return s.listUsersByQuery(ctx, query, excludeID, limit)
}

// ListUsersBySubjects returns users sharing at least one subject name.
func (s *SQLiteStore) ListUsersBySubjects(ctx context.Context, excludeID string, subjects []string, limit int) ([]*store.User, error) {
	if len(subjects) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(subjects)-1) + "?"
	query := fmt.Sprintf(`
		SELECT DISTINCT u.id
		FROM users u
		JOIN user_subjects s ON s.user_id = u.id
		WHERE u.id != ? AND s.name IN (%s)
		ORDER BY u.created_at DESC
		LIMIT ?
	`, placeholders)

	args := make([]interface{}, 0, len(subjects)+2)
	args = append(args, excludeID)
	for _, name := range subjects {
		args = append(args, name)
	}
	args = append(args, limit)

	return s.listUsersByQuery(ctx, query, args...)
}

func (s *SQLiteStore) listUsersByQuery(ctx context.Context, query string, args ...interface{}) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	users := make([]*store.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.GetUserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, nil
}

// ==== MatchStore implementation ====

// CreateMatch inserts a pending match record.
func (s *SQLiteStore) CreateMatch(ctx context.Context, initiator, target string) (*store.Match, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO matches (id, initiator, target, status, created_at)
		VALUES (?, ?, ?, 'pending', ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, initiator, target, time.Now().UTC()); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateSwipe
		}
		return nil, fmt.Errorf("insert match: %w", err)
	}

	return s.GetMatch(ctx, id)
}

// GetMatch retrieves a match by ID.
func (s *SQLiteStore) GetMatch(ctx context.Context, id string) (*store.Match, error) {
	query := `
		SELECT id, initiator, target, status, created_at
		FROM matches
		WHERE id = ?
	`
	return scanMatch(s.db.QueryRowContext(ctx, query, id))
}

// GetMatchBetween retrieves the match record between two users in either
// direction, any status.
func (s *SQLiteStore) GetMatchBetween(ctx context.Context, userA, userB string) (*store.Match, error) {
	query := `
		SELECT id, initiator, target, status, created_at
		FROM matches
		WHERE (initiator = ? AND target = ?) OR (initiator = ? AND target = ?)
	`
	return scanMatch(s.db.QueryRowContext(ctx, query, userA, userB, userB, userA))
}

// PromoteMatch flips a pending record to matched. The WHERE clause makes the
// transition conditional, so it fires at most once even under a race.
func (s *SQLiteStore) PromoteMatch(ctx context.Context, id string) (*store.Match, error) {
	query := `
		UPDATE matches
		SET status = 'matched'
		WHERE id = ? AND status = 'pending'
	`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("promote match: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetMatch(ctx, id)
}

// ListMatched returns matched records where user is a participant.
func (s *SQLiteStore) ListMatched(ctx context.Context, user string) ([]*store.Match, error) {
	query := `
		SELECT id, initiator, target, status, created_at
		FROM matches
		WHERE status = 'matched' AND (initiator = ? OR target = ?)
		ORDER BY created_at DESC, id ASC
	`
	return s.listMatches(ctx, query, user, user)
}

// ListPendingIncoming returns pending records where user is the target.
func (s *SQLiteStore) ListPendingIncoming(ctx context.Context, user string) ([]*store.Match, error) {
	query := `
		SELECT id, initiator, target, status, created_at
		FROM matches
		WHERE status = 'pending' AND target = ?
		ORDER BY created_at DESC, id ASC
	`
	return s.listMatches(ctx, query, user)
}

func (s *SQLiteStore) listMatches(ctx context.Context, query string, args ...interface{}) ([]*store.Match, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var matches []*store.Match
	for rows.Next() {
		var m store.Match
		var status string
		if err := rows.Scan(&m.ID, &m.Initiator, &m.Target, &status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Status = store.MatchStatus(status)
		if m.Status == store.MatchStatusMatched {
			m.Participants = []string{m.Initiator, m.Target}
		}
		matches = append(matches, &m)
	}

	return matches, rows.Err()
}

func scanMatch(row *sql.Row) (*store.Match, error) {
	var m store.Match
	var status string
	err := row.Scan(&m.ID, &m.Initiator, &m.Target, &status, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query match: %w", err)
	}
	m.Status = store.MatchStatus(status)
	if m.Status == store.MatchStatusMatched {
		m.Participants = []string{m.Initiator, m.Target}
	}
	return &m, nil
}

// ==== MessageStore implementation ====

// AppendMessage durably stores a message with a server-assigned ID and
// timestamp. The single-connection pool serializes appends, so rowid order
// is commit order.
func (s *SQLiteStore) AppendMessage(ctx context.Context, matchID, sender, text string) (*store.Message, error) {
	msg := &store.Message{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO messages (id, match_id, sender, text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, msg.ID, msg.MatchID, msg.Sender, msg.Text, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

// ListMessages returns all messages for a match, oldest first. rowid breaks
// created_at ties in insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, matchID string) ([]*store.Message, error) {
	query := `
		SELECT id, match_id, sender, text, created_at
		FROM messages
		WHERE match_id = ?
		ORDER BY created_at ASC, rowid ASC
	`
	rows, err := s.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.MatchID, &msg.Sender, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
