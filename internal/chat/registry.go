package chat

import (
	"log/slog"
	"sort"
	"time"
)

// PublicGroupID is the always-present default room, implicitly targeted by
// the non-group opcodes.
const PublicGroupID = "Public"

type member struct {
	client   *Client
	username string
}

type room struct {
	id       string
	name     string
	members  map[SessionID]*member
	messages map[string]*Message
	order    []string // message ids in posting order; the ordering source of truth
}

func newRoom(id, name string) *room {
	return &room{
		id:       id,
		name:     name,
		members:  make(map[SessionID]*member),
		messages: make(map[string]*Message),
	}
}

// seedRooms builds the fixed room set. Rooms are never created or deleted
// at runtime.
func seedRooms() map[string]*room {
	return map[string]*room{
		PublicGroupID: newRoom(PublicGroupID, "Public group for all users."),
		"Private1":    newRoom("Private1", "Private group 1."),
		"Private2":    newRoom("Private2", "Private group 2."),
		"Private3":    newRoom("Private3", "Private group 3."),
	}
}

// Registry owns all room, membership, and message state. A single Run
// goroutine processes events one at a time, so every
// validate-mutate-broadcast sequence is serialized process-wide.
type Registry struct {
	events chan Event
	stopCh chan struct{}
	doneCh chan struct{}
	logger *slog.Logger
}

func NewRegistry(buffer int, logger *slog.Logger) *Registry {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		events: make(chan Event, buffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: logger,
	}
}

func (r *Registry) Events() chan<- Event {
	return r.events
}

// Stop signals the Run loop to exit.
func (r *Registry) Stop() {
	close(r.stopCh)
}

// Wait blocks until the Run loop has completely finished.
func (r *Registry) Wait() {
	<-r.doneCh
}

func (r *Registry) Run() {
	defer close(r.doneCh)
	// Single-writer ownership: these maps are only accessed in this goroutine.
	rooms := seedRooms()

	for {
		select {
		case ev := <-r.events:
			start := time.Now()
			r.dispatch(rooms, ev)
			PacketsTotal.WithLabelValues(ev.Type.String()).Inc()
			EventProcessingDuration.WithLabelValues(ev.Type.String()).Observe(time.Since(start).Seconds())
		case <-r.stopCh:
			return
		}
	}
}

// Snapshot returns a consistent view of every room. It goes through the
// event loop like any other operation, so it also serves as an ordering
// barrier after previously queued events.
func (r *Registry) Snapshot() []RoomStatus {
	reply := make(chan []RoomStatus, 1)
	r.events <- Event{Type: EventSnapshot, StatusCh: reply}
	return <-reply
}

func (r *Registry) handleSnapshot(rooms map[string]*room, ev Event) {
	if ev.StatusCh == nil {
		return
	}
	out := make([]RoomStatus, 0, len(rooms))
	for _, id := range sortedRoomIDs(rooms) {
		g := rooms[id]
		st := RoomStatus{
			ID:       g.id,
			Name:     g.name,
			Users:    usernames(g),
			Messages: append([]string(nil), g.order...),
		}
		out = append(out, st)
	}
	ev.StatusCh <- out
}

func sortedRoomIDs(rooms map[string]*room) []string {
	ids := make([]string, 0, len(rooms))
	for id := range rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func usernames(g *room) []string {
	names := make([]string, 0, len(g.members))
	for _, m := range g.members {
		names = append(names, m.username)
	}
	sort.Strings(names)
	return names
}

// broadcastPublic delivers one frame to every current Public member. It
// runs inside the event loop, so the recipient set cannot change
// mid-broadcast. All notices fan out to the Public room; group events are
// not scoped to their own room's members.
func (r *Registry) broadcastPublic(rooms map[string]*room, frame []byte) {
	pub := rooms[PublicGroupID]
	for _, m := range pub.members {
		send(m.client, frame)
	}
	BroadcastFrames.Add(float64(len(pub.members)))
}

// send queues one frame for a client without ever blocking the event loop.
// A nil frame (a reply too large to encode) is dropped outright. The
// non-blocking send applies to direct replies as well as broadcast
// notices: a client that has let its Out buffer fill can lose its own
// ERROR or USERS reply, the same backpressure tradeoff as for notices.
func send(c *Client, frame []byte) {
	if frame == nil {
		return
	}
	select {
	case c.Out <- frame:
	default:
		// Drop when the client is slow; each recipient is attempted independently.
	}
}
