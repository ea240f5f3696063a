package http

import (
	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/proto"
)

// framesFromEvent maps a core event to its wire frames. History expands to
// one frame per replayed message so the wire protocol stays a single flat
// frame shape.
func framesFromEvent(event *core.Event) []proto.Outbound {
	switch event.Kind {
	case core.EventRoomMessage:
		return []proto.Outbound{{
			Message:  event.Message.Text,
			Username: event.Message.From,
		}}
	case core.EventHistory:
		frames := make([]proto.Outbound, 0, len(event.Messages))
		for _, msg := range event.Messages {
			frames = append(frames, proto.Outbound{
				Message:  msg.Text,
				Username: msg.From,
			})
		}
		return frames
	default:
		return nil
	}
}
