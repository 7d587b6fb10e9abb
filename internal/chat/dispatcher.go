package chat

import (
	"fmt"
	"time"

	"github.com/rileyboughner/bboard/internal/wire"
)

// replayPacing spaces out the frames of a join replay so a naive client
// reader is not overwhelmed. Not a correctness requirement.
const replayPacing = 10 * time.Millisecond

// replayWindow caps how many recent messages a new member catches up on.
const replayWindow = 2

func (r *Registry) dispatch(rooms map[string]*room, ev Event) {
	switch ev.Type {
	case EventJoin:
		r.handleJoin(rooms, ev)
	case EventGroupJoin:
		r.handleGroupJoin(rooms, ev)
	case EventPost:
		r.handlePost(rooms, ev)
	case EventGroupPost:
		r.handleGroupPost(rooms, ev)
	case EventUsers:
		r.handleUsers(rooms, ev)
	case EventGroupUsers:
		r.handleGroupUsers(rooms, ev)
	case EventLeave:
		r.handleLeave(rooms, ev)
	case EventGroupLeave:
		r.handleGroupLeave(rooms, ev)
	case EventMessage:
		r.handleMessage(rooms, ev)
	case EventGroupMessage:
		r.handleGroupMessage(rooms, ev)
	case EventExit:
		r.handleExit(rooms, ev)
	case EventGroups:
		r.handleGroups(rooms, ev)
	case EventSnapshot:
		r.handleSnapshot(rooms, ev)
	}
}

func (r *Registry) handleJoin(rooms map[string]*room, ev Event) {
	pub := rooms[PublicGroupID]
	if _, joined := pub.members[ev.Client.ID]; joined {
		send(ev.Client, wire.ErrorReply(errAlreadyJoined))
		return
	}
	for _, m := range pub.members {
		if m.username == ev.Username {
			send(ev.Client, wire.ErrorReply(errUsernameTaken))
			return
		}
	}

	// Notice goes out before the membership is inserted, so a joiner never
	// receives its own join notice.
	r.broadcastPublic(rooms, wire.JoinNotice(ev.Username))
	pub.members[ev.Client.ID] = &member{client: ev.Client, username: ev.Username}

	r.logger.Info("user joined", "username", ev.Username, "session", ev.Client.ID)
	replayRecent(ev.Client, pub)
}

func (r *Registry) handleGroupJoin(rooms map[string]*room, ev Event) {
	g, ok := rooms[ev.GroupID]
	if !ok {
		send(ev.Client, wire.ErrorReply(errGroupNotFound))
		return
	}
	// Unlike the Public join, a repeated group join from the same session is
	// not rejected on session identity; only a held username blocks it.
	for _, m := range g.members {
		if m.username == ev.Username {
			send(ev.Client, wire.ErrorReply(errUsernameTaken))
			return
		}
	}

	r.broadcastPublic(rooms, wire.GroupJoinNotice(ev.Username, g.id, g.name))
	g.members[ev.Client.ID] = &member{client: ev.Client, username: ev.Username}

	r.logger.Info("user joined group", "username", ev.Username, "group", g.id, "session", ev.Client.ID)
	replayRecent(ev.Client, g)
}

func (r *Registry) handlePost(rooms map[string]*room, ev Event) {
	pub := rooms[PublicGroupID]
	msg := storeMessage(pub, ev.Client.ID, ev.Subject, ev.Body)
	r.logger.Info("message posted", "id", msg.ID, "sender", msg.Sender, "group", pub.id)
	r.broadcastPublic(rooms, wire.PostNotice(msg.ID, msg.Sender, msg.Date, msg.Subject))
}

func (r *Registry) handleGroupPost(rooms map[string]*room, ev Event) {
	g, ok := rooms[ev.GroupID]
	if !ok {
		send(ev.Client, wire.ErrorReply(errGroupNotFound))
		return
	}
	if _, joined := g.members[ev.Client.ID]; !joined {
		send(ev.Client, wire.ErrorReply(errNotAMember))
		return
	}
	msg := storeMessage(g, ev.Client.ID, ev.Subject, ev.Body)
	r.logger.Info("message posted", "id", msg.ID, "sender", msg.Sender, "group", g.id)
	r.broadcastPublic(rooms, wire.GroupPostNotice(msg.ID, msg.Sender, msg.Date, msg.Subject, g.id, g.name))
}

func (r *Registry) handleUsers(rooms map[string]*room, ev Event) {
	send(ev.Client, wire.UsersReply(usernames(rooms[PublicGroupID])))
}

func (r *Registry) handleGroupUsers(rooms map[string]*room, ev Event) {
	g, ok := rooms[ev.GroupID]
	if !ok {
		send(ev.Client, wire.ErrorReply(errGroupNotFound))
		return
	}
	if _, joined := g.members[ev.Client.ID]; !joined {
		send(ev.Client, wire.ErrorReply(errNotAMember))
		return
	}
	send(ev.Client, wire.GroupUsersReply(usernames(g), g.id, g.name))
}

func (r *Registry) handleLeave(rooms map[string]*room, ev Event) {
	pub := rooms[PublicGroupID]
	m, joined := pub.members[ev.Client.ID]
	if !joined {
		// Idempotent: leaving a room the session is not in is a no-op.
		return
	}
	delete(pub.members, ev.Client.ID)
	r.logger.Info("user left", "username", m.username, "session", ev.Client.ID)
	r.broadcastPublic(rooms, wire.LeaveNotice(m.username))
}

func (r *Registry) handleGroupLeave(rooms map[string]*room, ev Event) {
	g, ok := rooms[ev.GroupID]
	if !ok {
		send(ev.Client, wire.ErrorReply(errGroupNotFound))
		return
	}
	m, joined := g.members[ev.Client.ID]
	if !joined {
		send(ev.Client, wire.ErrorReply(errNotAMember))
		return
	}
	delete(g.members, ev.Client.ID)
	r.logger.Info("user left group", "username", m.username, "group", g.id, "session", ev.Client.ID)
	r.broadcastPublic(rooms, wire.GroupLeaveNotice(m.username, g.id, g.name))
}

func (r *Registry) handleMessage(rooms map[string]*room, ev Event) {
	msg, ok := rooms[PublicGroupID].messages[ev.MessageID]
	if !ok {
		send(ev.Client, wire.ErrorReply(errMessageNotFound))
		return
	}
	send(ev.Client, wire.MessageReply(msg.Body))
}

func (r *Registry) handleGroupMessage(rooms map[string]*room, ev Event) {
	g, ok := rooms[ev.GroupID]
	if !ok {
		send(ev.Client, wire.ErrorReply(errGroupNotFound))
		return
	}
	if _, joined := g.members[ev.Client.ID]; !joined {
		send(ev.Client, wire.ErrorReply(errNotAMember))
		return
	}
	msg, ok := g.messages[ev.MessageID]
	if !ok {
		send(ev.Client, wire.ErrorReply(errMessageNotFound))
		return
	}
	send(ev.Client, wire.MessageReply(msg.Body))
}

// handleExit removes the session from every room it belongs to, with a
// leave notice per removed membership, then signals the writer goroutine
// to drain and stop. Both the EXIT opcode and a physical disconnect land
// here.
func (r *Registry) handleExit(rooms map[string]*room, ev Event) {
	pub := rooms[PublicGroupID]
	if m, joined := pub.members[ev.Client.ID]; joined {
		delete(pub.members, ev.Client.ID)
		r.broadcastPublic(rooms, wire.LeaveNotice(m.username))
	}
	for _, id := range sortedRoomIDs(rooms) {
		g := rooms[id]
		m, joined := g.members[ev.Client.ID]
		if !joined {
			continue
		}
		delete(g.members, ev.Client.ID)
		r.broadcastPublic(rooms, wire.GroupLeaveNotice(m.username, g.id, g.name))
	}
	r.logger.Info("session closed", "session", ev.Client.ID, "addr", ev.Client.Addr)
	close(ev.Client.done)
}

func (r *Registry) handleGroups(rooms map[string]*room, ev Event) {
	infos := make([]wire.GroupInfo, 0, len(rooms))
	for _, id := range sortedRoomIDs(rooms) {
		infos = append(infos, wire.GroupInfo{ID: id, Name: rooms[id].name})
	}
	send(ev.Client, wire.GroupsReply(infos))
}

// storeMessage creates the next message in g. The sender is whatever
// username the session currently holds in g; a non-member posts with an
// empty sender rather than being rejected (membership is only enforced
// for group posts, before this point).
func storeMessage(g *room, id SessionID, subject, body string) *Message {
	sender := ""
	if m, joined := g.members[id]; joined {
		sender = m.username
	}
	msg := &Message{
		ID:      fmt.Sprintf("msg%d", len(g.messages)+1),
		Sender:  sender,
		Date:    time.Now().Format("2006-01-02"),
		Subject: subject,
		Body:    body,
	}
	g.messages[msg.ID] = msg
	g.order = append(g.order, msg.ID)
	return msg
}

// replayRecent sends the room's most recent messages to a fresh member as
// individual POST frames. The window is snapshotted here, inside the event
// loop; the paced writes happen on their own goroutine so the loop never
// sleeps.
func replayRecent(c *Client, g *room) {
	start := len(g.order) - replayWindow
	if start < 0 {
		start = 0
	}
	frames := make([][]byte, 0, replayWindow)
	for _, id := range g.order[start:] {
		msg := g.messages[id]
		frames = append(frames, wire.PostNotice(msg.ID, msg.Sender, msg.Date, msg.Subject))
	}
	if len(frames) == 0 {
		return
	}
	go func() {
		for _, f := range frames {
			send(c, f)
			time.Sleep(replayPacing)
		}
	}()
}
