// Package icmp builds, sends and receives ICMP Echo Request/Reply packets
// over a raw IPv4 socket.
//
// Echo header layout (RFC 792):
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|     Type      |     Code      |          Checksum             |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|           Identifier          |        Sequence Number        |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// Type 8 = Echo Request, Type 0 = Echo Reply. Requests carry no payload.
package icmp

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/net/ipv4"
)

const (
	// ProtocolICMP is the IP protocol number for ICMPv4.
	ProtocolICMP = 1

	// HeaderLen is the size of an echo header on the wire.
	HeaderLen = 8

	// DisplayPayloadSize is the packet size reported to users. It is not
	// what goes on the wire.
	DisplayPayloadSize = 64
)

var (
	// ErrShortMessage is returned when fewer than HeaderLen bytes are parsed.
	ErrShortMessage = errors.New("icmp: message shorter than echo header")
	// ErrBadChecksum is returned by Verify for a corrupted message.
	ErrBadChecksum = errors.New("icmp: bad checksum")
)

// Echo is an ICMP echo header.
type Echo struct {
	Type     ipv4.ICMPType
	Code     uint8
	Checksum uint16
	ID       uint16
	Seq      uint16
}

// NewEchoRequest returns an echo request header for the given identifier
// and sequence number.
func NewEchoRequest(id, seq uint16) Echo {
	return Echo{Type: ipv4.ICMPTypeEcho, ID: id, Seq: seq}
}

// Marshal serializes e in network byte order and fills in the checksum.
// The Checksum field of e is ignored.
//
//	Byte 0   : Type
//	Byte 1   : Code
//	Bytes 2-3: Checksum (computed with this field zeroed)
//	Bytes 4-5: Identifier
//	Bytes 6-7: Sequence Number
func (e Echo) Marshal() ([]byte, error) {
	b := make([]byte, HeaderLen)
	b[0] = byte(e.Type)
	b[1] = e.Code
	binary.BigEndian.PutUint16(b[4:6], e.ID)
	binary.BigEndian.PutUint16(b[6:8], e.Seq)

	sum, err := Checksum(b)
	if err != nil {
		return nil, fmt.Errorf("marshal echo: %w", err)
	}
	binary.BigEndian.PutUint16(b[2:4], sum)
	return b, nil
}

// ParseEcho decodes the echo header at the start of b. Any payload after the
// header is ignored.
func ParseEcho(b []byte) (Echo, error) {
	if len(b) < HeaderLen {
		return Echo{}, ErrShortMessage
	}
	return Echo{
		Type:     ipv4.ICMPType(b[0]),
		Code:     b[1],
		Checksum: binary.BigEndian.Uint16(b[2:4]),
		ID:       binary.BigEndian.Uint16(b[4:6]),
		Seq:      binary.BigEndian.Uint16(b[6:8]),
	}, nil
}

// Verify recomputes the checksum over the whole message b.
func Verify(b []byte) error {
	sum, err := Checksum(b)
	if err != nil {
		return err
	}
	if sum != 0 {
		return ErrBadChecksum
	}
	return nil
}

// IsReplyTo reports whether e answers req. Replies carrying another
// process's identifier do not match.
func (e Echo) IsReplyTo(req Echo) bool {
	return e.Type == ipv4.ICMPTypeEchoReply &&
		e.Code == 0 &&
		e.ID == req.ID &&
		e.Seq == req.Seq
}
