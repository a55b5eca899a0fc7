package protocol

import (
	"bytes"
	"reflect"
	"testing"
)

func TestPacketHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		header Header
		body   []byte
	}{
		{
			name: "Plain high frequency",
			header: Header{
				Flags:    0,
				Sequence: 1,
				Message:  MessageID{1, FrequencyHigh},
			},
			body: []byte{0x01, 0x37, 0, 0, 0},
		},
		{
			name: "Reliable zerocoded low with extra",
			header: Header{
				Flags:    FlagReliable | FlagZerocoded,
				Sequence: 0xDEADBEEF,
				Extra:    []byte{0xAB, 0x00, 0xCD},
				Message:  MessageID{3, FrequencyLow},
			},
			body: []byte{0, 0, 0, 0, 5, 0},
		},
		{
			name: "Resent medium",
			header: Header{
				Flags:    FlagResent,
				Sequence: 42,
				Message:  MessageID{12, FrequencyMedium},
			},
		},
		{
			name: "Fixed ack",
			header: Header{
				Flags:    FlagReliable,
				Sequence: 7,
				Message:  MessageID{0xFFFFFFFB, FrequencyFixed},
			},
			body: []byte{1, 9, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePacket(&Packet{Header: tt.header, Body: tt.body})
			if err != nil {
				t.Fatalf("EncodePacket failed: %v", err)
			}
			got, body, err := ParseHeader(data)
			if err != nil {
				t.Fatalf("ParseHeader failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.header) {
				t.Errorf("header mismatch: got %+v, want %+v", got, tt.header)
			}
			if !bytes.Equal(body, tt.body) {
				t.Errorf("body mismatch: got %x, want %x", body, tt.body)
			}
		})
	}
}

func TestParseHeaderFlags(t *testing.T) {
	data := []byte{0xF0, 0, 0, 0, 9, 0, 0x01}
	h, _, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if !h.Flags.Zerocoded() || !h.Flags.Reliable() || !h.Flags.Resent() || !h.Flags.Ack() {
		t.Errorf("flags %s: expected every bit set", h.Flags)
	}
	if h.Sequence != 9 {
		t.Errorf("sequence = %d, want 9", h.Sequence)
	}
}

func TestParseHeaderExtraLengthMismatch(t *testing.T) {
	data := []byte{0x00, 0, 0, 0, 1, 2, 0xAA}
	_, _, err := ParseHeader(data)
	if err == nil {
		t.Fatal("expected framing error, got nil")
	}
	if !IsKind(err, KindFraming) {
		t.Errorf("expected framing error, got %v", err)
	}
}

func TestParseHeaderShort(t *testing.T) {
	_, _, err := ParseHeader([]byte{0x40, 0, 0})
	if !IsKind(err, KindFraming) {
		t.Errorf("expected framing error, got %v", err)
	}
}

func TestEncodePacketRejectsOversizeExtra(t *testing.T) {
	_, err := EncodePacket(&Packet{Header: Header{
		Extra:   make([]byte, 256),
		Message: MessageID{1, FrequencyHigh},
	}})
	if !IsKind(err, KindFraming) {
		t.Errorf("expected framing error, got %v", err)
	}
}

func TestAppendedAcks(t *testing.T) {
	p := &Packet{
		Header: Header{
			Flags:    FlagZerocoded,
			Sequence: 5,
			Message:  MessageID{3, FrequencyLow},
		},
		Body: []byte{0, 0, 1},
		Acks: []uint32{100, 0x01020304},
	}
	data, err := EncodePacket(p)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	if data[0]&byte(FlagAck) == 0 {
		t.Fatal("ack flag not set on encoded packet")
	}
	trailer := []byte{0, 0, 0, 100, 1, 2, 3, 4, 2}
	if !bytes.HasSuffix(data, trailer) {
		t.Fatalf("trailer mismatch: %x", data)
	}

	got, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}
	if !reflect.DeepEqual(got.Acks, p.Acks) {
		t.Errorf("acks = %v, want %v", got.Acks, p.Acks)
	}
	if !bytes.Equal(got.Body, p.Body) {
		t.Errorf("body = %x, want %x", got.Body, p.Body)
	}
	if got.Header.Message != p.Header.Message {
		t.Errorf("message = %s, want %s", got.Header.Message, p.Header.Message)
	}
}

func TestParsePacketAckTrailerOverrun(t *testing.T) {
	data := []byte{byte(FlagAck), 0, 0, 0, 1, 0, 0x01, 9}
	_, err := ParsePacket(data)
	if !IsKind(err, KindFraming) {
		t.Errorf("expected framing error, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	data := []byte{0xE0, 0, 0, 0, 2, 1, 0x77, 0xFF, 0xFF, 0x00, 0x01, 0x03}
	line, err := Describe(data, nil)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if want := "[2] (Low 3) +1 Resent Reliable Encoded"; line != want {
		t.Errorf("Describe = %q, want %q", line, want)
	}
}
