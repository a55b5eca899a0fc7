package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// NameResolver maps a message id to its catalog name.
type NameResolver interface {
	NameFor(id MessageID) (string, error)
}

// Dissection is a fully inspected datagram. Name is empty when the id is not
// in the catalog; Body is nil when no schema is known for the name.
type Dissection struct {
	Packet  *Packet
	Name    string
	Body    *Body
	BodyErr error
}

// Dissect parses a datagram and decodes as much of its body as the catalog
// and the schema table allow. Only framing failures are returned as errors.
func Dissect(data []byte, resolver NameResolver) (*Dissection, error) {
	pkt, err := ParsePacket(data)
	if err != nil {
		return nil, err
	}
	d := &Dissection{Packet: pkt}
	if resolver == nil {
		return d, nil
	}
	name, err := resolver.NameFor(pkt.Header.Message)
	if err != nil {
		return d, nil
	}
	d.Name = name
	if schema, ok := LookupSchema(name); ok {
		d.Body, d.BodyErr = DecodeBody(schema, pkt.Body)
	}
	return d, nil
}

// HeaderLine renders "[seq] (Freq id) +extra Resent Reliable Encoded Acknowledge Name".
func (d *Dissection) HeaderLine() string {
	h := d.Packet.Header
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] (%s) +%d", h.Sequence, h.Message, len(h.Extra))
	if h.Flags.Resent() {
		sb.WriteString(" Resent")
	}
	if h.Flags.Reliable() {
		sb.WriteString(" Reliable")
	}
	if h.Flags.Zerocoded() {
		sb.WriteString(" Encoded")
	}
	if h.Flags.Ack() {
		sb.WriteString(" Acknowledge")
	}
	if d.Name != "" {
		sb.WriteString(" ")
		sb.WriteString(d.Name)
	}
	return sb.String()
}

// Describe returns the one-line summary of a datagram.
func Describe(data []byte, resolver NameResolver) (string, error) {
	d, err := Dissect(data, resolver)
	if err != nil {
		return "", err
	}
	return d.HeaderLine(), nil
}

// ParseHex decodes a hex dump, ignoring whitespace and an optional 0x prefix.
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.Join(strings.Fields(s), "")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, WrapError(KindCodec, err, "invalid hex dump")
	}
	return data, nil
}

// FormatHex renders data as space separated uppercase byte pairs.
func FormatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
