package chat

import (
	"net"

	"github.com/rileyboughner/bboard/internal/wire"
)

// HandleSession owns one TCP connection: it reassembles frames from the
// stream, turns them into registry events, and guarantees the session is
// removed from every room when the peer goes away or asks to exit.
func HandleSession(c *Client, conn net.Conn, events chan<- Event) {
	defer func() {
		_ = conn.Close()
	}()

	StartOutboundWriter(conn, c)

	var frames wire.FrameBuffer
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames.Feed(buf[:n])
			if dispatchFrames(c, &frames, events) {
				return
			}
		}
		if err != nil {
			events <- Event{Type: EventExit, Client: c}
			return
		}
	}
}

// dispatchFrames drains complete frames from the buffer into the registry.
// It reports true once an EXIT has been dispatched; no further frames are
// processed after that.
func dispatchFrames(c *Client, frames *wire.FrameBuffer, events chan<- Event) bool {
	for {
		frame := frames.Next()
		if frame == nil {
			return false
		}
		req, err := wire.DecodeRequest(frame)
		if err != nil {
			// Wrong magic, unknown opcode, or overrunning length fields:
			// drop the frame silently and keep the connection.
			continue
		}
		ev := toEvent(c, req)
		events <- ev
		if ev.Type == EventExit {
			return true
		}
	}
}

func toEvent(c *Client, req wire.Request) Event {
	ev := Event{
		Client:    c,
		Username:  req.Username,
		GroupID:   req.GroupID,
		Subject:   req.Subject,
		Body:      req.Body,
		MessageID: req.MessageID,
	}
	switch req.Op {
	case wire.OpJoin:
		ev.Type = EventJoin
	case wire.OpGroupJoin:
		ev.Type = EventGroupJoin
	case wire.OpPost:
		ev.Type = EventPost
	case wire.OpGroupPost:
		ev.Type = EventGroupPost
	case wire.OpUsers:
		ev.Type = EventUsers
	case wire.OpGroupUsers:
		ev.Type = EventGroupUsers
	case wire.OpLeave:
		ev.Type = EventLeave
	case wire.OpGroupLeave:
		ev.Type = EventGroupLeave
	case wire.OpMessage:
		ev.Type = EventMessage
	case wire.OpGroupMessage:
		ev.Type = EventGroupMessage
	case wire.OpExit:
		ev.Type = EventExit
	case wire.OpGroups:
		ev.Type = EventGroups
	}
	return ev
}
