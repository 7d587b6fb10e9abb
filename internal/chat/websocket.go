package chat

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rileyboughner/bboard/internal/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The protocol has no browser origin story; any origin may connect.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsHandler exposes the same binary protocol over WebSocket. Each binary
// message carries one or more frames; replies and notices come back as
// one binary message per frame. Sessions share the registry with the TCP
// listener.
func (s *Server) wsHandler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", "addr", req.RemoteAddr, "error", err)
			return
		}
		c := s.newClient(req.RemoteAddr)
		s.logger.Info("client connected", "addr", c.Addr, "session", c.ID, "transport", "websocket")
		ConnectedClients.Inc()
		go func() {
			defer ConnectedClients.Dec()
			handleWSSession(c, conn, s.reg.Events())
		}()
	})
	return m
}

func handleWSSession(c *Client, conn *websocket.Conn, events chan<- Event) {
	defer func() {
		_ = conn.Close()
	}()

	go wsWritePump(c, conn)

	var frames wire.FrameBuffer
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			events <- Event{Type: EventExit, Client: c}
			return
		}
		frames.Feed(data)
		if dispatchFrames(c, &frames, events) {
			return
		}
	}
}

func wsWritePump(c *Client, conn *websocket.Conn) {
	for {
		select {
		case frame := <-c.Out:
			if conn.WriteMessage(websocket.BinaryMessage, frame) != nil {
				return
			}
		case <-c.done:
			for {
				select {
				case frame := <-c.Out:
					if conn.WriteMessage(websocket.BinaryMessage, frame) != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}
