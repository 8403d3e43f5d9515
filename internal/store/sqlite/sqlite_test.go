package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/studybuddy/studybuddy-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func seedUser(t *testing.T, s *SQLiteStore, name string) *store.User {
	t.Helper()

	user, err := s.CreateUser(context.Background(), name, name+"@example.com", "hash")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}

func TestCreateMatch_DuplicateSwipe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	first, err := s.CreateMatch(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("first swipe failed: %v", err)
	}
	if first.Status != store.MatchStatusPending {
		t.Fatalf("expected pending status, got %s", first.Status)
	}
	if first.Participants != nil {
		t.Fatalf("participants must not be set while pending, got %v", first.Participants)
	}

	if _, err := s.CreateMatch(ctx, alice.ID, bob.ID); !errors.Is(err, store.ErrDuplicateSwipe) {
		t.Fatalf("expected ErrDuplicateSwipe, got %v", err)
	}

	// Reverse direction is a distinct row as far as the store is concerned;
	// collapsing it is the state machine's job.
	if _, err := s.CreateMatch(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("reverse swipe failed: %v", err)
	}
}

func TestPromoteMatch_AtMostOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	m, err := s.CreateMatch(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create match failed: %v", err)
	}

	promoted, err := s.PromoteMatch(ctx, m.ID)
	if err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if promoted.Status != store.MatchStatusMatched {
		t.Fatalf("expected matched status, got %s", promoted.Status)
	}
	if len(promoted.Participants) != 2 {
		t.Fatalf("expected two participants, got %v", promoted.Participants)
	}
	if !promoted.CreatedAt.Equal(m.CreatedAt) {
		t.Fatalf("promotion must preserve the original timestamp: %v != %v", promoted.CreatedAt, m.CreatedAt)
	}

	// Matched is terminal; a second promote finds no pending row.
	if _, err := s.PromoteMatch(ctx, m.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second promote, got %v", err)
	}
}

func TestGetMatchBetween_EitherDirection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	m, err := s.CreateMatch(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create match failed: %v", err)
	}

	got, err := s.GetMatchBetween(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.ID != m.ID {
		t.Fatalf("expected match %s, got %s", m.ID, got.ID)
	}

	carol := seedUser(t, s, "carol")
	if _, err := s.GetMatchBetween(ctx, alice.ID, carol.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPendingIncoming(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	carol := seedUser(t, s, "carol")

	if _, err := s.CreateMatch(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("swipe failed: %v", err)
	}
	if _, err := s.CreateMatch(ctx, carol.ID, bob.ID); err != nil {
		t.Fatalf("swipe failed: %v", err)
	}
	if _, err := s.CreateMatch(ctx, bob.ID, carol.ID); err != nil {
		t.Fatalf("swipe failed: %v", err)
	}

	incoming, err := s.ListPendingIncoming(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(incoming) != 2 {
		t.Fatalf("expected 2 incoming swipes, got %d", len(incoming))
	}
	for _, m := range incoming {
		if m.Target != bob.ID {
			t.Errorf("incoming swipe has wrong target: %+v", m)
		}
	}
}

func TestListMessages_Order(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	m, err := s.CreateMatch(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create match failed: %v", err)
	}
	if _, err := s.PromoteMatch(ctx, m.ID); err != nil {
		t.Fatalf("promote failed: %v", err)
	}

	texts := []string{"first", "second", "third"}
	for _, text := range texts {
		if _, err := s.AppendMessage(ctx, m.ID, alice.ID, text); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	messages, err := s.ListMessages(ctx, m.ID)
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(messages) != len(texts) {
		t.Fatalf("expected %d messages, got %d", len(texts), len(messages))
	}
	for i, msg := range messages {
		if msg.Text != texts[i] {
			t.Errorf("expected %q at index %d, got %q", texts[i], i, msg.Text)
		}
		if msg.ID == "" {
			t.Errorf("message %d has no server-assigned id", i)
		}
	}
}

func TestListMessages_ConcurrentSenders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	m, err := s.CreateMatch(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create match failed: %v", err)
	}
	if _, err := s.PromoteMatch(ctx, m.ID); err != nil {
		t.Fatalf("promote failed: %v", err)
	}

	const perSender = 20

	// Each sender appends sequentially from its own goroutine, so the
	// commit order of any one sender's messages is its send order.
	appendAll := func(sender string, ids chan<- []string, errs chan<- error) {
		sent := make([]string, 0, perSender)
		for i := 0; i < perSender; i++ {
			msg, err := s.AppendMessage(ctx, m.ID, sender, fmt.Sprintf("%s-%d", sender, i))
			if err != nil {
				errs <- err
				return
			}
			sent = append(sent, msg.ID)
		}
		ids <- sent
	}

	aliceIDs := make(chan []string, 1)
	bobIDs := make(chan []string, 1)
	errs := make(chan error, 2)
	go appendAll(alice.ID, aliceIDs, errs)
	go appendAll(bob.ID, bobIDs, errs)

	bySender := map[string][]string{}
	for i := 0; i < 2; i++ {
		select {
		case ids := <-aliceIDs:
			bySender[alice.ID] = ids
		case ids := <-bobIDs:
			bySender[bob.ID] = ids
		case err := <-errs:
			t.Fatalf("concurrent append failed: %v", err)
		}
	}

	messages, err := s.ListMessages(ctx, m.ID)
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(messages) != 2*perSender {
		t.Fatalf("expected %d messages, got %d", 2*perSender, len(messages))
	}

	// The interleaving is arbitrary, but each sender's messages must appear
	// as a subsequence in send order.
	progress := map[string]int{}
	for i, msg := range messages {
		want := bySender[msg.Sender]
		pos := progress[msg.Sender]
		if pos >= len(want) {
			t.Fatalf("extra message from %s at index %d", msg.Sender, i)
		}
		if msg.ID != want[pos] {
			t.Fatalf("messages from %s out of send order at index %d: got %s, want %s", msg.Sender, i, msg.ID, want[pos])
		}
		progress[msg.Sender] = pos + 1
	}
}

func TestListUsersBySubjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	carol := seedUser(t, s, "carol")

	setSubjects := func(id string, subjects ...store.Subject) {
		t.Helper()
		if _, err := s.UpdateProfile(ctx, id, store.ProfileUpdate{Subjects: subjects}); err != nil {
			t.Fatalf("update profile failed: %v", err)
		}
	}

	setSubjects(alice.ID, store.Subject{Name: "calculus", Level: 3})
	setSubjects(bob.ID, store.Subject{Name: "calculus", Level: 2}, store.Subject{Name: "physics", Level: 4})
	setSubjects(carol.ID, store.Subject{Name: "history", Level: 5})

	shared, err := s.ListUsersBySubjects(ctx, alice.ID, []string{"calculus"}, 10)
	if err != nil {
		t.Fatalf("list by subjects failed: %v", err)
	}
	if len(shared) != 1 || shared[0].ID != bob.ID {
		t.Fatalf("expected only bob, got %+v", shared)
	}

	// Users sharing nothing should not appear.
	none, err := s.ListUsersBySubjects(ctx, carol.ID, []string{"calculus", "physics"}, 10)
	if err != nil {
		t.Fatalf("list by subjects failed: %v", err)
	}
	if len(none) != 2 {
		t.Fatalf("expected alice and bob, got %d users", len(none))
	}
}
