package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studybuddy/studybuddy-server/internal/store"
)

// Common errors for match operations.
var (
	ErrSelfSwipe     = errors.New("cannot swipe on yourself")
	ErrUserNotFound  = errors.New("user not found")
	ErrMatchNotFound = errors.New("match not found")
)

// SwipeStatus is the outcome of a swipe.
type SwipeStatus string

const (
	SwipeStatusPending SwipeStatus = "pending"
	SwipeStatusMatched SwipeStatus = "matched"
)

// SwipeResult is returned by Swipe: the resulting status and the match
// record backing it. Repeated swipes return the same record, never a
// second one.
type SwipeResult struct {
	Status SwipeStatus
	Match  *store.Match
}

// Summary is a matched record resolved to the other participant's public
// profile for list views.
type Summary struct {
	MatchID   string
	OtherUser *store.Profile
	CreatedAt time.Time
}

// PendingSwipe is an incoming swipe that has not been reciprocated yet.
type PendingSwipe struct {
	MatchID   string
	From      *store.Profile
	CreatedAt time.Time
}

// Service implements the match lifecycle state machine:
// no relation -> pending -> matched, with matched terminal.
type Service struct {
	store store.Store
	pairs *pairLocks
}

// New creates a match service backed by the given store.
func New(st store.Store) *Service {
	return &Service{
		store: st,
		pairs: newPairLocks(),
	}
}

// Swipe records interest from actor in target. If target already swiped on
// actor, the pending record is promoted to matched; otherwise a pending
// record is created. Idempotent per ordered pair: repeating a swipe
// resolves to the existing record.
func (s *Service) Swipe(ctx context.Context, actor, target string) (*SwipeResult, error) {
	if actor == target {
		return nil, ErrSelfSwipe
	}

	if _, err := s.store.GetUserByID(ctx, target); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("look up target: %w", err)
	}

	// The existing-relation check and the insert below must be atomic per
	// pair, or two users swiping at each other simultaneously could end up
	// with two pending rows or a missed promotion.
	unlock := s.pairs.Lock(actor, target)
	defer unlock()

	result, err := s.resolveExisting(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	created, err := s.store.CreateMatch(ctx, actor, target)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateSwipe) {
			// Lost an insert race despite the pair lock (e.g. another
			// process on the same database). The unique index collapsed
			// the rows; re-read and resolve against what won.
			result, rerr := s.resolveExisting(ctx, actor, target)
			if rerr != nil {
				return nil, rerr
			}
			if result != nil {
				return result, nil
			}
		}
		return nil, fmt.Errorf("create match: %w", err)
	}

	return &SwipeResult{Status: SwipeStatusPending, Match: created}, nil
}

// resolveExisting maps the current stored relation between actor and target
// to a swipe result, or returns (nil, nil) when no relation exists yet.
func (s *Service) resolveExisting(ctx context.Context, actor, target string) (*SwipeResult, error) {
	existing, err := s.store.GetMatchBetween(ctx, actor, target)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("look up relation: %w", err)
	}

	switch {
	case existing.Status == store.MatchStatusMatched:
		// Matched is terminal; any further swipe is a no-op.
		return &SwipeResult{Status: SwipeStatusMatched, Match: existing}, nil
	case existing.Initiator == actor:
		// Repeat swipe in the same direction resolves to the pending record.
		return &SwipeResult{Status: SwipeStatusPending, Match: existing}, nil
	default:
		// The reverse direction already expressed interest: it's a match.
		promoted, err := s.store.PromoteMatch(ctx, existing.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Promoted between our read and the update; the record is
				// matched now either way.
				matched, gerr := s.store.GetMatch(ctx, existing.ID)
				if gerr != nil {
					return nil, fmt.Errorf("reload match: %w", gerr)
				}
				return &SwipeResult{Status: SwipeStatusMatched, Match: matched}, nil
			}
			return nil, fmt.Errorf("promote match: %w", err)
		}
		return &SwipeResult{Status: SwipeStatusMatched, Match: promoted}, nil
	}
}

// ListMatches returns the user's matched records, each resolved to the
// other participant's public profile.
func (s *Service) ListMatches(ctx context.Context, user string) ([]*Summary, error) {
	matches, err := s.store.ListMatched(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list matched: %w", err)
	}

	summaries := make([]*Summary, 0, len(matches))
	for _, m := range matches {
		other := m.Initiator
		if other == user {
			other = m.Target
		}

		profile, err := s.store.GetUserByID(ctx, other)
		if err != nil {
			// A participant may have been deleted out-of-band; skip rather
			// than failing the whole listing.
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load profile: %w", err)
		}

		summaries = append(summaries, &Summary{
			MatchID:   m.ID,
			OtherUser: profile.PublicProfile(),
			CreatedAt: m.CreatedAt,
		})
	}

	return summaries, nil
}

// ListPendingIncoming returns swipes received by the user that have not
// been reciprocated, resolved to the initiator's public profile.
func (s *Service) ListPendingIncoming(ctx context.Context, user string) ([]*PendingSwipe, error) {
	pending, err := s.store.ListPendingIncoming(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	swipes := make([]*PendingSwipe, 0, len(pending))
	for _, m := range pending {
		profile, err := s.store.GetUserByID(ctx, m.Initiator)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load profile: %w", err)
		}

		swipes = append(swipes, &PendingSwipe{
			MatchID:   m.ID,
			From:      profile.PublicProfile(),
			CreatedAt: m.CreatedAt,
		})
	}

	return swipes, nil
}

// GetMatch retrieves a match by ID.
func (s *Service) GetMatch(ctx context.Context, id string) (*store.Match, error) {
	m, err := s.store.GetMatch(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}
