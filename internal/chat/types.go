package chat

// SessionID identifies one client connection for the lifetime of the
// process. It is allocated by the server, never reused, and is the only
// connection-derived value the registry stores.
type SessionID uint64

// Client is the registry's view of a connection: a stable id and the
// outbound frame channel drained by the connection's writer goroutine.
// The connection itself stays with the session loop. Out is never closed;
// the done channel tells the writer to drain and stop, which keeps the
// paced replay goroutine free to send without a close race.
type Client struct {
	ID   SessionID
	Addr string
	Out  chan []byte
	done chan struct{}
}

func NewClient(id SessionID, addr string, outBuffer int) *Client {
	if outBuffer <= 0 {
		outBuffer = 32
	}
	return &Client{
		ID:   id,
		Addr: addr,
		Out:  make(chan []byte, outBuffer),
		done: make(chan struct{}),
	}
}

// Done is closed once the registry has removed the session from every room.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Message is one immutable board post. Ids are "msg" + ordinal within the
// owning room.
type Message struct {
	ID      string
	Sender  string
	Date    string
	Subject string
	Body    string
}

type EventType int

const (
	EventJoin EventType = iota
	EventGroupJoin
	EventPost
	EventGroupPost
	EventUsers
	EventGroupUsers
	EventLeave
	EventGroupLeave
	EventMessage
	EventGroupMessage
	EventExit
	EventGroups
	EventSnapshot
)

func (t EventType) String() string {
	switch t {
	case EventJoin:
		return "join"
	case EventGroupJoin:
		return "group_join"
	case EventPost:
		return "post"
	case EventGroupPost:
		return "group_post"
	case EventUsers:
		return "users"
	case EventGroupUsers:
		return "group_users"
	case EventLeave:
		return "leave"
	case EventGroupLeave:
		return "group_leave"
	case EventMessage:
		return "message"
	case EventGroupMessage:
		return "group_message"
	case EventExit:
		return "exit"
	case EventGroups:
		return "groups"
	case EventSnapshot:
		return "snapshot"
	}
	return "unknown"
}

type Event struct {
	Type      EventType
	Client    *Client
	Username  string
	GroupID   string
	Subject   string
	Body      string
	MessageID string
	StatusCh  chan []RoomStatus // used by snapshot only
}

// RoomStatus is a point-in-time view of one room, served on the ops
// endpoint and used by tests. Messages holds message ids in posting order.
type RoomStatus struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Users    []string `json:"users"`
	Messages []string `json:"messages"`
}

// Error texts surfaced to clients as ERROR replies. None of these close
// the connection.
const (
	errAlreadyJoined   = "Already joined."
	errUsernameTaken   = "Username already taken."
	errGroupNotFound   = "Group ID not found."
	errNotAMember      = "Not a member of the group."
	errMessageNotFound = "Message ID not found."
)
