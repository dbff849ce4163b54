package icmp

import (
	"encoding/binary"
	"errors"
)

// ErrOddLength is returned by Checksum for input that is not a whole number
// of 16-bit words.
var ErrOddLength = errors.New("icmp: checksum input has odd length")

// Checksum computes the Internet checksum (RFC 1071) over b.
//
// Algorithm:
//  1. Sum all 16-bit words in network byte order.
//  2. Fold carry bits back into the lower 16 bits until none remain.
//  3. Take the one's complement (bitwise NOT).
//
// Running Checksum over a message whose checksum field is already filled in
// yields 0 when the message is intact.
func Checksum(b []byte) (uint16, error) {
	if len(b)%2 != 0 {
		return 0, ErrOddLength
	}
	var sum uint32
	for i := 0; i < len(b); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum), nil
}
