package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/studybuddy/studybuddy-server/internal/proto"
)

type outboundEnvelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func dialWS(ctx context.Context, t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	return conn
}

func sendInbound(ctx context.Context, t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal inbound data: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
		t.Fatalf("write inbound: %v", err)
	}
}

// readUntilEvent reads outbound frames until one with the given event name arrives.
func readUntilEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, event string) outboundEnvelope {
	t.Helper()

	for {
		var out outboundEnvelope
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read outbound waiting for %s: %v", event, err)
		}
		if out.Type == proto.OutboundTypeEvent && out.Event == event {
			return out
		}
	}
}

func readOutbound(ctx context.Context, t *testing.T, conn *websocket.Conn) outboundEnvelope {
	t.Helper()

	var out outboundEnvelope
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, resp, err := websocket.Dial(ctx, wsURL, nil)
	if err == nil {
		conn.Close(websocket.StatusNormalClosure, "done")
		t.Fatalf("expected dial to fail without token")
	}
	if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake, got %d", resp.StatusCode)
	}
}

func TestWebSocketMatchChat(t *testing.T) {
	ts := startTestServer(t)

	aliceToken, aliceID := registerTestUser(t, ts, "alice", "alice@example.com")
	bobToken, bobID := registerTestUser(t, ts, "bob", "bob@example.com")

	// Mutual swipe over REST to establish the match.
	var swipeResp SwipeResponse
	doJSON(t, ts, http.MethodPost, "/api/matches/swipe", aliceToken, SwipeRequest{TargetID: bobID}, &swipeResp)
	doJSON(t, ts, http.MethodPost, "/api/matches/swipe", bobToken, SwipeRequest{TargetID: aliceID}, &swipeResp)
	if swipeResp.Status != "matched" {
		t.Fatalf("expected matched, got %s", swipeResp.Status)
	}
	matchID := swipeResp.Match.ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(ctx, t, ts, aliceToken)
	connB := dialWS(ctx, t, ts, bobToken)

	sendInbound(ctx, t, connA, proto.InboundTypeJoin, proto.JoinData{MatchID: matchID})
	sendInbound(ctx, t, connB, proto.InboundTypeJoin, proto.JoinData{MatchID: matchID})

	// Both receive the (empty) history on join.
	for _, conn := range []*websocket.Conn{connA, connB} {
		out := readUntilEvent(ctx, t, conn, proto.EventNameHistory)
		var history proto.EventHistory
		if err := json.Unmarshal(out.Data, &history); err != nil {
			t.Fatalf("unmarshal history: %v", err)
		}
		if history.MatchID != matchID || len(history.Messages) != 0 {
			t.Fatalf("unexpected history: %+v", history)
		}
	}

	sendInbound(ctx, t, connA, proto.InboundTypeMsg, proto.MsgData{MatchID: matchID, Text: "hi"})

	// Both room members receive the message, sender included.
	for _, conn := range []*websocket.Conn{connA, connB} {
		out := readUntilEvent(ctx, t, conn, proto.EventNameMessage)
		var event proto.EventMessage
		if err := json.Unmarshal(out.Data, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if event.Sender != aliceID || event.Text != "hi" || event.MatchID != matchID {
			t.Fatalf("unexpected event payload: %+v", event)
		}
		if event.ID == "" {
			t.Fatalf("expected persisted message id")
		}
	}

	// The message is durable and visible over REST.
	var history []MessageView
	if status := doJSON(t, ts, http.MethodGet, "/api/chat/"+matchID, bobToken, nil, &history); status != http.StatusOK {
		t.Fatalf("history: unexpected status %d", status)
	}
	if len(history) != 1 || history[0].Text != "hi" || history[0].Sender != aliceID {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestWebSocketJoinRequiresMatchedState(t *testing.T) {
	ts := startTestServer(t)

	aliceToken, _ := registerTestUser(t, ts, "alice", "alice@example.com")
	bobToken, bobID := registerTestUser(t, ts, "bob", "bob@example.com")
	carolToken, _ := registerTestUser(t, ts, "carol", "carol@example.com")

	// One-directional swipe leaves the match pending.
	var swipeResp SwipeResponse
	doJSON(t, ts, http.MethodPost, "/api/matches/swipe", aliceToken, SwipeRequest{TargetID: bobID}, &swipeResp)
	matchID := swipeResp.Match.ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(ctx, t, ts, aliceToken)
	sendInbound(ctx, t, connA, proto.InboundTypeJoin, proto.JoinData{MatchID: matchID})

	out := readOutbound(ctx, t, connA)
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != "not_matched" {
		t.Fatalf("expected not_matched error, got %+v", out)
	}

	// Promote and verify a stranger still cannot join.
	var aliceIDResp struct {
		ID string `json:"id"`
	}
	doJSON(t, ts, http.MethodGet, "/api/auth/me", aliceToken, nil, &aliceIDResp)
	doJSON(t, ts, http.MethodPost, "/api/matches/swipe", bobToken, SwipeRequest{TargetID: aliceIDResp.ID}, nil)

	connC := dialWS(ctx, t, ts, carolToken)
	sendInbound(ctx, t, connC, proto.InboundTypeJoin, proto.JoinData{MatchID: matchID})

	out = readOutbound(ctx, t, connC)
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != "not_participant" {
		t.Fatalf("expected not_participant error, got %+v", out)
	}
}
