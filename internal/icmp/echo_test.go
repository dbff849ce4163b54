package icmp

import (
	"bytes"
	"errors"
	"testing"

	xicmp "golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

func TestMarshalMatchesXNet(t *testing.T) {
	for _, tt := range []struct{ id, seq uint16 }{
		{0, 0}, {5446, 1}, {0xffff, 0xffff}, {0x1234, 0x00ff},
	} {
		got, err := NewEchoRequest(tt.id, tt.seq).Marshal()
		if err != nil {
			t.Fatal(err)
		}
		msg := xicmp.Message{
			Type: ipv4.ICMPTypeEcho,
			Body: &xicmp.Echo{ID: int(tt.id), Seq: int(tt.seq)},
		}
		want, err := msg.Marshal(nil)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("id=%d seq=%d: got % x, want % x", tt.id, tt.seq, got, want)
		}
	}
}

func TestMarshalIgnoresChecksumField(t *testing.T) {
	e := NewEchoRequest(7, 9)
	want, _ := e.Marshal()
	e.Checksum = 0xbeef
	got, _ := e.Marshal()
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestParseEcho(t *testing.T) {
	b, err := NewEchoRequest(5446, 3).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	e, err := ParseEcho(append(b, 0xaa, 0xbb))
	if err != nil {
		t.Fatalf("ParseEcho() error = %v", err)
	}
	if e.Type != ipv4.ICMPTypeEcho || e.Code != 0 || e.ID != 5446 || e.Seq != 3 {
		t.Errorf("ParseEcho() = %+v", e)
	}
	if err := Verify(b); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	// The x/net parser must agree on the fields.
	m, err := xicmp.ParseMessage(ProtocolICMP, b)
	if err != nil {
		t.Fatal(err)
	}
	body, ok := m.Body.(*xicmp.Echo)
	if !ok || body.ID != 5446 || body.Seq != 3 {
		t.Errorf("x/net parsed %+v", m.Body)
	}

	if _, err := ParseEcho(b[:HeaderLen-1]); !errors.Is(err, ErrShortMessage) {
		t.Errorf("ParseEcho(short) error = %v, want ErrShortMessage", err)
	}
}

func TestVerifyCorrupt(t *testing.T) {
	b, _ := NewEchoRequest(1, 1).Marshal()
	b[7] ^= 0x01
	if err := Verify(b); !errors.Is(err, ErrBadChecksum) {
		t.Errorf("Verify() error = %v, want ErrBadChecksum", err)
	}
	if err := Verify(b[:7]); !errors.Is(err, ErrOddLength) {
		t.Errorf("Verify(odd) error = %v, want ErrOddLength", err)
	}
}

func TestIsReplyTo(t *testing.T) {
	req := NewEchoRequest(100, 5)
	tests := []struct {
		name  string
		reply Echo
		want  bool
	}{
		{"match", Echo{Type: ipv4.ICMPTypeEchoReply, ID: 100, Seq: 5}, true},
		{"request echoed back", Echo{Type: ipv4.ICMPTypeEcho, ID: 100, Seq: 5}, false},
		{"foreign identifier", Echo{Type: ipv4.ICMPTypeEchoReply, ID: 101, Seq: 5}, false},
		{"stale sequence", Echo{Type: ipv4.ICMPTypeEchoReply, ID: 100, Seq: 4}, false},
		{"nonzero code", Echo{Type: ipv4.ICMPTypeEchoReply, Code: 1, ID: 100, Seq: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reply.IsReplyTo(req); got != tt.want {
				t.Errorf("IsReplyTo() = %v, want %v", got, tt.want)
			}
		})
	}
}
