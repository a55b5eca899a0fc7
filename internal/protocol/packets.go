// Package protocol implements the circuit wire format spoken with a region
// simulator: zero-run coding, frequency-classed message ids, the packet
// preamble and the schema-driven body codec. Header fields are big-endian,
// body fields little-endian.
package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Flags is the first byte of every datagram.
type Flags uint8

const (
	FlagZerocoded Flags = 0x80 // Post-header region is zero-run coded
	FlagReliable  Flags = 0x40 // Receiver must acknowledge the sequence number
	FlagResent    Flags = 0x20 // Retransmission of an earlier sequence number
	FlagAck       Flags = 0x10 // Appended acknowledgements follow the body
)

func (f Flags) Zerocoded() bool { return f&FlagZerocoded != 0 }
func (f Flags) Reliable() bool  { return f&FlagReliable != 0 }
func (f Flags) Resent() bool    { return f&FlagResent != 0 }
func (f Flags) Ack() bool       { return f&FlagAck != 0 }

func (f Flags) String() string {
	var parts []string
	if f.Zerocoded() {
		parts = append(parts, "ZEROCODED")
	}
	if f.Reliable() {
		parts = append(parts, "RELIABLE")
	}
	if f.Resent() {
		parts = append(parts, "RESENT")
	}
	if f.Ack() {
		parts = append(parts, "ACK")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// PreambleSize is the flags byte, the sequence number and the extra length byte.
const PreambleSize = 6

// MaxDatagramSize bounds a single inbound read.
const MaxDatagramSize = 8192

// MaxExtraLength is the largest extra header a single length byte can describe.
const MaxExtraLength = 255

// Header is the parsed preamble of one datagram plus the message id that
// follows it.
type Header struct {
	Flags    Flags
	Sequence uint32
	Extra    []byte
	Message  MessageID
}

// Packet is one full datagram. Body is always the plain (zero-decoded) body.
type Packet struct {
	Header Header
	Body   []byte
	Acks   []uint32
}

// EncodePacket renders a packet to wire bytes. When the zerocoded flag is set
// the id and body are zero-coded together. Appended acks are written after
// the coded region and set the ack flag.
func EncodePacket(p *Packet) ([]byte, error) {
	h := p.Header
	if len(h.Extra) > MaxExtraLength {
		return nil, NewError(KindFraming, "extra header of %d bytes exceeds %d", len(h.Extra), MaxExtraLength)
	}
	if len(p.Acks) > 255 {
		return nil, NewError(KindFraming, "%d appended acks exceeds 255", len(p.Acks))
	}
	if !h.Message.Valid() {
		return nil, NewError(KindFraming, "message id %s outside its class range", h.Message)
	}

	flags := h.Flags
	if len(p.Acks) > 0 {
		flags |= FlagAck
	} else {
		flags &^= FlagAck
	}

	region := NewPacketBuilder().
		WriteBytes(EncodeMessageID(h.Message)).
		WriteBytes(p.Body).
		Build()
	if flags.Zerocoded() {
		region = ZeroEncode(region)
	}

	out := make([]byte, 0, PreambleSize+len(h.Extra)+len(region)+4*len(p.Acks)+1)
	out = append(out, byte(flags))
	out = binary.BigEndian.AppendUint32(out, h.Sequence)
	out = append(out, byte(len(h.Extra)))
	out = append(out, h.Extra...)
	out = append(out, region...)
	if len(p.Acks) > 0 {
		for _, seq := range p.Acks {
			out = binary.BigEndian.AppendUint32(out, seq)
		}
		out = append(out, byte(len(p.Acks)))
	}
	return out, nil
}

// ParseHeader parses the preamble and message id of data. The returned body
// is the remainder after the id, already zero-decoded if the packet is
// zerocoded. Appended acks are not interpreted; use ParsePacket for that.
func ParseHeader(data []byte) (Header, []byte, error) {
	var h Header
	if len(data) < PreambleSize {
		return h, nil, NewError(KindFraming, "datagram of %d bytes is shorter than the %d byte preamble", len(data), PreambleSize)
	}

	h.Flags = Flags(data[0])
	h.Sequence = binary.BigEndian.Uint32(data[1:5])
	extraLen := int(data[5])
	if len(data) < PreambleSize+extraLen {
		return h, nil, NewError(KindFraming, "extra header declares %d bytes, %d available", extraLen, len(data)-PreambleSize)
	}
	if extraLen > 0 {
		h.Extra = append([]byte(nil), data[PreambleSize:PreambleSize+extraLen]...)
	}

	region := data[PreambleSize+extraLen:]
	if h.Flags.Zerocoded() {
		decoded, err := ZeroDecode(region)
		if err != nil {
			return h, nil, err
		}
		region = decoded
	}

	id, n, err := DecodeMessageID(region)
	if err != nil {
		return h, nil, err
	}
	h.Message = id
	return h, region[n:], nil
}

// ParsePacket parses a whole datagram, stripping the appended ack trailer
// when the ack flag is set.
func ParsePacket(data []byte) (*Packet, error) {
	payload := data
	var acks []uint32
	if len(data) > 0 && Flags(data[0]).Ack() {
		count := int(data[len(data)-1])
		trailer := 4*count + 1
		if len(data)-trailer < PreambleSize {
			return nil, NewError(KindFraming, "ack trailer of %d entries overruns datagram of %d bytes", count, len(data))
		}
		start := len(data) - trailer
		acks = make([]uint32, count)
		for i := range acks {
			acks[i] = binary.BigEndian.Uint32(data[start+4*i:])
		}
		payload = data[:start]
	}

	h, body, err := ParseHeader(payload)
	if err != nil {
		return nil, err
	}
	return &Packet{Header: h, Body: body, Acks: acks}, nil
}

// String summarises the header for debug logs.
func (h Header) String() string {
	return fmt.Sprintf("seq=%d flags=%s msg=%s extra=%d", h.Sequence, h.Flags, h.Message, len(h.Extra))
}
