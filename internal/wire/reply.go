package wire

import "fmt"

// GroupInfo is one (id, display name) pair in a GROUPS reply.
type GroupInfo struct {
	ID   string
	Name string
}

// Notice and reply builders. Each returns a complete framed packet ready
// to hand to a writer.

func JoinNotice(username string) []byte {
	return NewBuilder(OpJoin).String(username).Packet()
}

func GroupJoinNotice(username, groupID, groupName string) []byte {
	return NewBuilder(OpGroupJoin).String(username).String(groupID).String(groupName).Packet()
}

func PostNotice(id, sender, date, subject string) []byte {
	return NewBuilder(OpPost).String(id).String(sender).String(date).String(subject).Packet()
}

func GroupPostNotice(id, sender, date, subject, groupID, groupName string) []byte {
	return NewBuilder(OpGroupPost).String(id).String(sender).String(date).String(subject).
		String(groupID).String(groupName).Packet()
}

func UsersReply(usernames []string) []byte {
	b := NewBuilder(OpUsers).Uint16(uint16(len(usernames)))
	for _, u := range usernames {
		b.String(u)
	}
	return b.Packet()
}

func GroupUsersReply(usernames []string, groupID, groupName string) []byte {
	b := NewBuilder(OpGroupUsers).Uint16(uint16(len(usernames)))
	for _, u := range usernames {
		b.String(u)
	}
	return b.String(groupID).String(groupName).Packet()
}

func LeaveNotice(username string) []byte {
	return NewBuilder(OpLeave).String(username).Packet()
}

func GroupLeaveNotice(username, groupID, groupName string) []byte {
	return NewBuilder(OpGroupLeave).String(username).String(groupID).String(groupName).Packet()
}

func MessageReply(body string) []byte {
	return NewBuilder(OpMessage).String(body).Packet()
}

func GroupsReply(groups []GroupInfo) []byte {
	b := NewBuilder(OpGroups).Uint16(uint16(len(groups)))
	for _, g := range groups {
		b.String(g.ID).String(g.Name)
	}
	return b.Packet()
}

func ErrorReply(text string) []byte {
	return NewBuilder(OpError).String(text).Packet()
}

// Reply is a decoded server reply or notice, used by the client and by
// tests. Field population depends on the opcode.
type Reply struct {
	Op        Opcode
	Username  string
	GroupID   string
	GroupName string
	MessageID string
	Sender    string
	Date      string
	Subject   string
	Body      string
	Users     []string
	Groups    []GroupInfo
	Text      string
}

// DecodeReply parses one complete frame into a Reply.
func DecodeReply(frame []byte) (Reply, error) {
	op, r, err := ParsePacket(frame)
	if err != nil {
		return Reply{}, err
	}
	rep := Reply{Op: op}
	switch op {
	case OpJoin, OpLeave:
		rep.Username, err = r.String()
	case OpGroupJoin, OpGroupLeave:
		if rep.Username, err = r.String(); err == nil {
			if rep.GroupID, err = r.String(); err == nil {
				rep.GroupName, err = r.String()
			}
		}
	case OpPost, OpGroupPost:
		rep.MessageID, rep.Sender, rep.Date, rep.Subject, err = readPostFields(r)
		if err == nil && op == OpGroupPost {
			if rep.GroupID, err = r.String(); err == nil {
				rep.GroupName, err = r.String()
			}
		}
	case OpUsers, OpGroupUsers:
		rep.Users, err = readStringList(r)
		if err == nil && op == OpGroupUsers {
			if rep.GroupID, err = r.String(); err == nil {
				rep.GroupName, err = r.String()
			}
		}
	case OpMessage:
		rep.Body, err = r.String()
	case OpGroups:
		var n uint16
		if n, err = r.Uint16(); err == nil {
			rep.Groups = make([]GroupInfo, 0, n)
			for i := 0; i < int(n) && err == nil; i++ {
				var g GroupInfo
				if g.ID, err = r.String(); err == nil {
					g.Name, err = r.String()
				}
				rep.Groups = append(rep.Groups, g)
			}
		}
	case OpError:
		rep.Text, err = r.String()
	default:
		return Reply{}, fmt.Errorf("wire: unknown opcode %s", op)
	}
	if err != nil {
		return Reply{}, err
	}
	return rep, nil
}

func readPostFields(r *Reader) (id, sender, date, subject string, err error) {
	if id, err = r.String(); err != nil {
		return
	}
	if sender, err = r.String(); err != nil {
		return
	}
	if date, err = r.String(); err != nil {
		return
	}
	subject, err = r.String()
	return
}

func readStringList(r *Reader) ([]string, error) {
	n, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := 0; i < int(n); i++ {
		s, err := r.String()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
