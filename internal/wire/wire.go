// Package wire implements the bulletin-board binary protocol: packet
// framing, opcode constants, and bounds-checked payload encoding/decoding.
//
// Packet layout (all integers little-endian):
//
//	MAGIC(4) | BODY_LEN(u16) | OPCODE(1) | PAYLOAD(BODY_LEN-1 bytes)
//
// Strings inside a payload are a u16 length followed by that many raw bytes.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Opcode identifies the semantic type of a packet's payload.
type Opcode byte

const (
	OpJoin    Opcode = 0x01
	OpPost    Opcode = 0x02
	OpUsers   Opcode = 0x03
	OpLeave   Opcode = 0x04
	OpMessage Opcode = 0x05
	OpExit    Opcode = 0x06
	OpGroups  Opcode = 0x07

	OpGroupJoin    Opcode = 0xA1
	OpGroupPost    Opcode = 0xA2
	OpGroupUsers   Opcode = 0xA3
	OpGroupLeave   Opcode = 0xA4
	OpGroupMessage Opcode = 0xA5

	OpError Opcode = 0xFF
)

func (o Opcode) String() string {
	switch o {
	case OpJoin:
		return "JOIN"
	case OpPost:
		return "POST"
	case OpUsers:
		return "USERS"
	case OpLeave:
		return "LEAVE"
	case OpMessage:
		return "MESSAGE"
	case OpExit:
		return "EXIT"
	case OpGroups:
		return "GROUPS"
	case OpGroupJoin:
		return "GROUP_JOIN"
	case OpGroupPost:
		return "GROUP_POST"
	case OpGroupUsers:
		return "GROUP_USERS"
	case OpGroupLeave:
		return "GROUP_LEAVE"
	case OpGroupMessage:
		return "GROUP_MESSAGE"
	case OpError:
		return "ERROR"
	}
	return fmt.Sprintf("0x%02X", byte(o))
}

// Magic is the fixed sentinel that opens every packet.
var Magic = [4]byte{0xF0, 0x0D, 0xBE, 0xEF}

const (
	magicSize  = 4
	headerSize = magicSize + 2 // magic + body length
	maxBodyLen = 0xFFFF       // u16 body length bound, shared by every length field
)

var (
	// ErrNotProtocol marks bytes that do not start with the magic sentinel.
	ErrNotProtocol = errors.New("wire: not a protocol packet")
	// ErrTruncated marks a packet whose declared or implied lengths would
	// read past the received bytes.
	ErrTruncated = errors.New("wire: truncated packet")
)

// Builder accumulates a packet body field by field and frames it on Packet.
type Builder struct {
	body     []byte
	overflow bool
}

func NewBuilder(op Opcode) *Builder {
	return &Builder{body: []byte{byte(op)}}
}

func (b *Builder) Uint16(v uint16) *Builder {
	b.body = binary.LittleEndian.AppendUint16(b.body, v)
	return b
}

func (b *Builder) String(s string) *Builder {
	if len(s) > maxBodyLen {
		b.overflow = true
		return b
	}
	b.body = binary.LittleEndian.AppendUint16(b.body, uint16(len(s)))
	b.body = append(b.body, s...)
	return b
}

// Packet prepends the magic sentinel and body length to the accumulated
// body. It returns nil when any field or the whole body exceeds the u16
// range: a frame that cannot be represented is dropped by the caller
// rather than emitted with truncated length fields.
func (b *Builder) Packet() []byte {
	if b.overflow || len(b.body) > maxBodyLen {
		return nil
	}
	pkt := make([]byte, 0, headerSize+len(b.body))
	pkt = append(pkt, Magic[:]...)
	pkt = binary.LittleEndian.AppendUint16(pkt, uint16(len(b.body)))
	return append(pkt, b.body...)
}

// Reader walks a packet payload with a cursor. Every read is checked
// against the payload boundary so peer-supplied lengths can never index
// out of range.
type Reader struct {
	buf []byte
	off int
}

// ParsePacket validates the header of a single complete packet and returns
// its opcode plus a Reader positioned at the start of the payload.
func ParsePacket(p []byte) (Opcode, *Reader, error) {
	if len(p) < magicSize || !bytes.Equal(p[:magicSize], Magic[:]) {
		return 0, nil, ErrNotProtocol
	}
	if len(p) < headerSize+1 {
		return 0, nil, ErrTruncated
	}
	bodyLen := int(binary.LittleEndian.Uint16(p[magicSize:headerSize]))
	if bodyLen < 1 || headerSize+bodyLen > len(p) {
		return 0, nil, ErrTruncated
	}
	op := Opcode(p[headerSize])
	return op, &Reader{buf: p[headerSize+1 : headerSize+bodyLen]}, nil
}

func (r *Reader) Uint16() (uint16, error) {
	if r.off+2 > len(r.buf) {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) String() (string, error) {
	n, err := r.Uint16()
	if err != nil {
		return "", err
	}
	if r.off+int(n) > len(r.buf) {
		return "", ErrTruncated
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

// Remaining reports how many payload bytes the cursor has not consumed.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// FrameBuffer reassembles complete packets from a byte stream. Stream
// transports may split one packet across reads or coalesce several into
// one; Feed buffers whatever arrived and Next cuts off complete frames
// using the declared body length. Bytes ahead of a magic sentinel are
// discarded.
type FrameBuffer struct {
	buf []byte
}

func (f *FrameBuffer) Feed(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next returns the next complete frame, or nil if no complete frame has
// been buffered yet.
func (f *FrameBuffer) Next() []byte {
	i := bytes.Index(f.buf, Magic[:])
	if i < 0 {
		// Keep a tail that could still be a magic prefix.
		if len(f.buf) > magicSize-1 {
			f.buf = f.buf[len(f.buf)-(magicSize-1):]
		}
		return nil
	}
	f.buf = f.buf[i:]
	if len(f.buf) < headerSize {
		return nil
	}
	total := headerSize + int(binary.LittleEndian.Uint16(f.buf[magicSize:headerSize]))
	if len(f.buf) < total {
		return nil
	}
	frame := make([]byte, total)
	copy(frame, f.buf[:total])
	f.buf = f.buf[total:]
	return frame
}
