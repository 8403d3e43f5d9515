package http

import (
	"encoding/json"

	"github.com/studybuddy/studybuddy-server/internal/core"
	"github.com/studybuddy/studybuddy-server/internal/proto"
	"github.com/studybuddy/studybuddy-server/internal/store"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.MatchID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "matchId is required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandJoinRoom,
			MatchID: join.MatchID,
		}, nil, nil
	case proto.InboundTypeLeave:
		var leave proto.LeaveData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		if leave.MatchID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "matchId is required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandLeaveRoom,
			MatchID: leave.MatchID,
		}, nil, nil
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.MatchID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "matchId is required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandSendMessage,
			MatchID: msg.MatchID,
			Text:    msg.Text,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data:  eventMessageOf(event.Message),
		}
	case core.EventHistory:
		messages := make([]proto.EventMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, eventMessageOf(msg))
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameHistory,
			Data: proto.EventHistory{
				MatchID:  event.MatchID,
				Messages: messages,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventMessageOf(msg *store.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:      msg.ID,
		MatchID: msg.MatchID,
		Sender:  msg.Sender,
		Text:    msg.Text,
		TS:      msg.CreatedAt.Unix(),
	}
}
