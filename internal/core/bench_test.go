package core

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, aliceID, bobID, _, matchID := newHubStore(b)

	hub := NewHub(st, nil)
	go hub.Run(ctx)

	sender := NewClient("sender", aliceID)
	hub.RegisterClient(sender)
	sender.Commands <- &Command{Kind: CommandJoinRoom, MatchID: matchID}

	// Recipients are parallel sessions of the other participant.
	clients := make([]*Client, 0, recipients)
	for i := 0; i < recipients; i++ {
		c := NewClient(fmt.Sprintf("recv-%d", i), bobID)
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandJoinRoom, MatchID: matchID}
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}
	go func() {
		for range sender.Events {
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sender.Commands <- &Command{
			Kind:    CommandSendMessage,
			MatchID: matchID,
			Text:    "payload",
		}
		for {
			ev := <-target.Events
			if ev != nil && ev.Kind == EventMessage {
				break
			}
		}
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
