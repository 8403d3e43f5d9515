package core

import (
	"context"
	"testing"
	"time"

	"github.com/studybuddy/studybuddy-server/internal/store"
	"github.com/studybuddy/studybuddy-server/internal/store/sqlite"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func expectNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event: %+v", ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// newHubStore builds an in-memory store seeded with users alice, bob and
// carol, alice<->bob already matched.
func newHubStore(t testing.TB) (st store.Store, alice, bob, carol, matchID string) {
	t.Helper()

	sq, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })

	ctx := context.Background()
	ids := make(map[string]string)
	for _, name := range []string{"alice", "bob", "carol"} {
		user, err := sq.CreateUser(ctx, name, name+"@example.com", "hash")
		if err != nil {
			t.Fatalf("failed to create user %s: %v", name, err)
		}
		ids[name] = user.ID
	}

	m, err := sq.CreateMatch(ctx, ids["alice"], ids["bob"])
	if err != nil {
		t.Fatalf("failed to create match: %v", err)
	}
	if _, err := sq.PromoteMatch(ctx, m.ID); err != nil {
		t.Fatalf("failed to promote match: %v", err)
	}

	return sq, ids["alice"], ids["bob"], ids["carol"], m.ID
}
