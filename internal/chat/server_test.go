package chat

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rileyboughner/bboard/internal/wire"
)

func startTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv := NewServer(cfg, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func TestServerTCPEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.OpsAddr = ""
	srv := startTestServer(t, cfg)

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	mustWrite(t, conn, wire.EncodeRequest(wire.Request{Op: wire.OpJoin, Username: "alice"}))
	mustWrite(t, conn, wire.EncodeRequest(wire.Request{Op: wire.OpUsers}))

	var fb wire.FrameBuffer
	rep := readReply(t, conn, &fb, wire.OpUsers)
	if len(rep.Users) != 1 || rep.Users[0] != "alice" {
		t.Fatalf("unexpected users reply: %v", rep.Users)
	}
}

func TestServerOpsEndpoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.OpsAddr = "127.0.0.1:0"
	srv := startTestServer(t, cfg)

	base := "http://" + srv.OpsAddr().String()

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()
	var rooms []RoomStatus
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(rooms) != 4 {
		t.Fatalf("expected 4 rooms, got %d", len(rooms))
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", resp.StatusCode)
	}
}

func TestServerWebSocketEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.OpsAddr = ""
	cfg.WebSocketAddr = "127.0.0.1:0"
	srv := startTestServer(t, cfg)

	url := "ws://" + srv.WebSocketAddr().String() + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	join := wire.EncodeRequest(wire.Request{Op: wire.OpJoin, Username: "wsuser"})
	if err := conn.WriteMessage(websocket.BinaryMessage, join); err != nil {
		t.Fatalf("write join: %v", err)
	}
	users := wire.EncodeRequest(wire.Request{Op: wire.OpUsers})
	if err := conn.WriteMessage(websocket.BinaryMessage, users); err != nil {
		t.Fatalf("write users: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var fb wire.FrameBuffer
	for {
		if frame := fb.Next(); frame != nil {
			rep, err := wire.DecodeReply(frame)
			if err != nil {
				t.Fatalf("undecodable frame: %v", err)
			}
			if rep.Op != wire.OpUsers {
				continue
			}
			if len(rep.Users) != 1 || rep.Users[0] != "wsuser" {
				t.Fatalf("unexpected users reply: %v", rep.Users)
			}
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		fb.Feed(data)
	}
}
