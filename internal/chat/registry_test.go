package chat

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rileyboughner/bboard/internal/wire"
)

var nextTestSession atomic.Uint64

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(128, nil)
	go r.Run()
	t.Cleanup(func() {
		r.Stop()
		r.Wait()
	})
	return r
}

func newTestClient() *Client {
	return NewClient(SessionID(nextTestSession.Add(1)), "test", 256)
}

// joinPublic queues a Public join and waits for it to be processed. The
// snapshot doubles as an ordering barrier because events are handled
// strictly in queue order.
func joinPublic(t *testing.T, r *Registry, c *Client, username string) {
	t.Helper()
	r.events <- Event{Type: EventJoin, Client: c, Username: username}
	_ = r.Snapshot()
}

func joinGroup(t *testing.T, r *Registry, c *Client, groupID, username string) {
	t.Helper()
	r.events <- Event{Type: EventGroupJoin, Client: c, GroupID: groupID, Username: username}
	_ = r.Snapshot()
}

func roomStatus(t *testing.T, r *Registry, id string) RoomStatus {
	t.Helper()
	for _, st := range r.Snapshot() {
		if st.ID == id {
			return st
		}
	}
	t.Fatalf("room %q missing from snapshot", id)
	return RoomStatus{}
}

func waitForReply(t *testing.T, c *Client, op wire.Opcode) wire.Reply {
	t.Helper()
	deadline := time.NewTimer(1 * time.Second)
	defer deadline.Stop()
	for {
		select {
		case frame := <-c.Out:
			rep, err := wire.DecodeReply(frame)
			if err != nil {
				t.Fatalf("undecodable frame on Out: %v", err)
			}
			if rep.Op == op {
				return rep
			}
			// Ignore other notices.
		case <-deadline.C:
			t.Fatalf("timeout waiting for %s reply", op)
		}
	}
}

func drainHasError(c *Client) (string, bool) {
	for {
		select {
		case frame := <-c.Out:
			if rep, err := wire.DecodeReply(frame); err == nil && rep.Op == wire.OpError {
				return rep.Text, true
			}
		default:
			return "", false
		}
	}
}

func TestJoinRejectsDuplicateUsername(t *testing.T) {
	r := newTestRegistry(t)
	c1 := newTestClient()
	c2 := newTestClient()

	joinPublic(t, r, c1, "alice")

	r.events <- Event{Type: EventJoin, Client: c2, Username: "alice"}
	rep := waitForReply(t, c2, wire.OpError)
	if rep.Text != errUsernameTaken {
		t.Fatalf("unexpected error text: %q", rep.Text)
	}
	if users := roomStatus(t, r, PublicGroupID).Users; len(users) != 1 || users[0] != "alice" {
		t.Fatalf("unexpected Public members: %v", users)
	}
}

func TestJoinTwiceSameSessionRejected(t *testing.T) {
	r := newTestRegistry(t)
	c := newTestClient()

	joinPublic(t, r, c, "alice")

	r.events <- Event{Type: EventJoin, Client: c, Username: "alice2"}
	rep := waitForReply(t, c, wire.OpError)
	if rep.Text != errAlreadyJoined {
		t.Fatalf("unexpected error text: %q", rep.Text)
	}
	if users := roomStatus(t, r, PublicGroupID).Users; len(users) != 1 {
		t.Fatalf("membership count changed: %v", users)
	}
}

func TestUsernamesScopedPerRoom(t *testing.T) {
	r := newTestRegistry(t)
	c1 := newTestClient()
	c2 := newTestClient()

	joinPublic(t, r, c1, "alice")
	// The same username is free in a different room.
	joinGroup(t, r, c2, "Private1", "alice")

	if text, found := drainHasError(c2); found {
		t.Fatalf("unexpected error joining Private1: %q", text)
	}
	if users := roomStatus(t, r, "Private1").Users; len(users) != 1 || users[0] != "alice" {
		t.Fatalf("unexpected Private1 members: %v", users)
	}
}

func TestUsersReflectJoinLeave(t *testing.T) {
	r := newTestRegistry(t)
	alice := newTestClient()
	bob := newTestClient()

	joinPublic(t, r, alice, "alice")
	joinPublic(t, r, bob, "bob")

	r.events <- Event{Type: EventUsers, Client: alice}
	rep := waitForReply(t, alice, wire.OpUsers)
	if len(rep.Users) != 2 || rep.Users[0] != "alice" || rep.Users[1] != "bob" {
		t.Fatalf("unexpected users list: %v", rep.Users)
	}

	r.events <- Event{Type: EventLeave, Client: bob}
	r.events <- Event{Type: EventUsers, Client: alice}
	rep = waitForReply(t, alice, wire.OpUsers)
	if len(rep.Users) != 1 || rep.Users[0] != "alice" {
		t.Fatalf("unexpected users list after leave: %v", rep.Users)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	c := newTestClient()

	joinPublic(t, r, c, "alice")
	r.events <- Event{Type: EventLeave, Client: c}
	r.events <- Event{Type: EventLeave, Client: c}
	_ = r.Snapshot()

	if users := roomStatus(t, r, PublicGroupID).Users; len(users) != 0 {
		t.Fatalf("expected empty room, got %v", users)
	}
	if text, found := drainHasError(c); found {
		t.Fatalf("second leave produced an error: %q", text)
	}
}

func TestPostAssignsSequentialIDs(t *testing.T) {
	r := newTestRegistry(t)
	c := newTestClient()

	joinPublic(t, r, c, "alice")
	for i := 0; i < 3; i++ {
		r.events <- Event{Type: EventPost, Client: c, Subject: "s", Body: "b"}
	}

	st := roomStatus(t, r, PublicGroupID)
	want := []string{"msg1", "msg2", "msg3"}
	if len(st.Messages) != len(want) {
		t.Fatalf("unexpected message ids: %v", st.Messages)
	}
	for i, id := range want {
		if st.Messages[i] != id {
			t.Fatalf("unexpected message ids: %v", st.Messages)
		}
	}
}

func TestExitRemovesEveryMembership(t *testing.T) {
	r := newTestRegistry(t)
	c := newTestClient()

	joinPublic(t, r, c, "alice")
	joinGroup(t, r, c, "Private1", "alice")
	joinGroup(t, r, c, "Private2", "alice")

	r.events <- Event{Type: EventExit, Client: c}
	_ = r.Snapshot()

	for _, id := range []string{PublicGroupID, "Private1", "Private2"} {
		if users := roomStatus(t, r, id).Users; len(users) != 0 {
			t.Fatalf("room %s still has members after exit: %v", id, users)
		}
	}

	select {
	case <-c.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("Done not closed after exit")
	}
}

func TestSnapshotInvariants(t *testing.T) {
	r := newTestRegistry(t)
	c1 := newTestClient()
	c2 := newTestClient()

	joinPublic(t, r, c1, "alice")
	joinPublic(t, r, c2, "bob")
	r.events <- Event{Type: EventPost, Client: c1, Subject: "a", Body: "x"}
	r.events <- Event{Type: EventPost, Client: c2, Subject: "b", Body: "y"}

	for _, st := range r.Snapshot() {
		seen := make(map[string]bool, len(st.Users))
		for _, u := range st.Users {
			if seen[u] {
				t.Fatalf("duplicate username %q in room %s", u, st.ID)
			}
			seen[u] = true
		}
		ids := make(map[string]bool, len(st.Messages))
		for _, id := range st.Messages {
			if ids[id] {
				t.Fatalf("duplicate message id %q in room %s", id, st.ID)
			}
			ids[id] = true
		}
	}
}
