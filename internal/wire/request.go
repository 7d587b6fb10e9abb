package wire

import "fmt"

// Request is a decoded client request. Field population depends on the
// opcode; unused fields stay zero.
type Request struct {
	Op        Opcode
	Username  string
	GroupID   string
	Subject   string
	Body      string
	MessageID string
}

// DecodeRequest parses one complete frame into a Request. Unknown opcodes
// and frames whose length fields overrun the buffer are errors; callers
// drop such frames without replying.
func DecodeRequest(frame []byte) (Request, error) {
	op, r, err := ParsePacket(frame)
	if err != nil {
		return Request{}, err
	}
	req := Request{Op: op}
	switch op {
	case OpJoin:
		req.Username, err = r.String()
	case OpGroupJoin:
		if req.GroupID, err = r.String(); err == nil {
			req.Username, err = r.String()
		}
	case OpPost:
		if req.Subject, err = r.String(); err == nil {
			req.Body, err = r.String()
		}
	case OpGroupPost:
		if req.GroupID, err = r.String(); err == nil {
			if req.Subject, err = r.String(); err == nil {
				req.Body, err = r.String()
			}
		}
	case OpUsers, OpLeave, OpExit, OpGroups:
		// No payload.
	case OpGroupUsers, OpGroupLeave:
		req.GroupID, err = r.String()
	case OpMessage:
		req.MessageID, err = r.String()
	case OpGroupMessage:
		if req.GroupID, err = r.String(); err == nil {
			req.MessageID, err = r.String()
		}
	default:
		return Request{}, fmt.Errorf("wire: unknown opcode %s", op)
	}
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

// EncodeRequest produces the framed bytes for a client request.
func EncodeRequest(req Request) []byte {
	b := NewBuilder(req.Op)
	switch req.Op {
	case OpJoin:
		b.String(req.Username)
	case OpGroupJoin:
		b.String(req.GroupID).String(req.Username)
	case OpPost:
		b.String(req.Subject).String(req.Body)
	case OpGroupPost:
		b.String(req.GroupID).String(req.Subject).String(req.Body)
	case OpGroupUsers, OpGroupLeave:
		b.String(req.GroupID)
	case OpMessage:
		b.String(req.MessageID)
	case OpGroupMessage:
		b.String(req.GroupID).String(req.MessageID)
	}
	return b.Packet()
}
