package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Frequency is the class a message id belongs to. The class determines how
// many bytes the id occupies on the wire.
type Frequency uint8

const (
	FrequencyHigh Frequency = iota + 1
	FrequencyMedium
	FrequencyLow
	FrequencyFixed
)

var frequencyStrings = map[Frequency]string{
	FrequencyHigh:   "High",
	FrequencyMedium: "Medium",
	FrequencyLow:    "Low",
	FrequencyFixed:  "Fixed",
}

// ParseFrequency maps a template frequency keyword to its class.
func ParseFrequency(s string) (Frequency, bool) {
	for f, name := range frequencyStrings {
		if name == s {
			return f, true
		}
	}
	return 0, false
}

func (f Frequency) String() string {
	if s, ok := frequencyStrings[f]; ok {
		return s
	}
	return "Unknown"
}

func (f Frequency) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// MessageID identifies a message kind. Number is the per-class number for
// High, Medium and Low ids and the full 32-bit value for Fixed ids.
type MessageID struct {
	Number    uint32
	Frequency Frequency
}

// Value returns the 32-bit catalog value of the id:
//
//	Low:    0xFFFF0000 | n
//	Medium: (0xFF00 | n) << 16
//	High:   n << 24
//	Fixed:  n
func (m MessageID) Value() uint32 {
	switch m.Frequency {
	case FrequencyLow:
		return 0xFFFF0000 | (m.Number & 0xFFFF)
	case FrequencyMedium:
		return (0xFF00 | (m.Number & 0xFF)) << 16
	case FrequencyHigh:
		return (m.Number & 0xFF) << 24
	default:
		return m.Number
	}
}

func (m MessageID) String() string {
	if m.Frequency == FrequencyFixed {
		return fmt.Sprintf("Fixed 0x%08X", m.Number)
	}
	return fmt.Sprintf("%s %d", m.Frequency, m.Number)
}

// Wire widths of the id classes.
const (
	highIDLen   = 1
	mediumIDLen = 2
	longIDLen   = 4
)

// Valid reports whether the id lies in its class's legal range.
func (m MessageID) Valid() bool {
	switch m.Frequency {
	case FrequencyHigh:
		return m.Number >= 0x01 && m.Number <= 0xFE
	case FrequencyMedium:
		return m.Number >= 0x01 && m.Number <= 0xFE
	case FrequencyLow:
		return m.Number >= 0x0001 && m.Number <= 0xFFF9
	case FrequencyFixed:
		return m.Number >= 0xFFFFFFFA
	}
	return false
}

// EncodeMessageID writes the wire form of an id. The width follows the value's
// mask: all-ones in the top 16 bits is a 4-byte id, all-ones in the top 8 bits
// a 2-byte id, anything else a 1-byte id.
func EncodeMessageID(id MessageID) []byte {
	v := id.Value()
	switch {
	case v&0xFFFF0000 == 0xFFFF0000:
		out := make([]byte, longIDLen)
		binary.BigEndian.PutUint32(out, v)
		return out
	case v&0xFF000000 == 0xFF000000:
		out := make([]byte, mediumIDLen)
		binary.BigEndian.PutUint16(out, uint16(v>>16))
		return out
	default:
		return []byte{byte(v >> 24)}
	}
}

// DecodeMessageID reads an id from the start of data and returns it with the
// number of bytes it occupied. Two or more leading 0xFF bytes select a 4-byte
// id, a single leading 0xFF a 2-byte Medium id, otherwise a 1-byte High id.
func DecodeMessageID(data []byte) (MessageID, int, error) {
	if len(data) == 0 {
		return MessageID{}, 0, NewError(KindFraming, "message id: empty input")
	}

	if data[0] == 0xFF && len(data) >= 2 && data[1] == 0xFF {
		if len(data) < longIDLen {
			return MessageID{}, 0, NewError(KindFraming, "message id: need %d bytes, have %d", longIDLen, len(data))
		}
		v := binary.BigEndian.Uint32(data[:longIDLen])
		switch {
		case v >= 0xFFFFFFFA:
			return MessageID{Number: v, Frequency: FrequencyFixed}, longIDLen, nil
		case v >= 0xFFFF0001:
			return MessageID{Number: v & 0xFFFF, Frequency: FrequencyLow}, longIDLen, nil
		}
		return MessageID{}, 0, NewError(KindFraming, "message id: 0x%08X outside every class", v)
	}

	if data[0] == 0xFF {
		if len(data) < mediumIDLen {
			return MessageID{}, 0, NewError(KindFraming, "message id: need %d bytes, have %d", mediumIDLen, len(data))
		}
		n := data[1]
		if n == 0x00 {
			return MessageID{}, 0, NewError(KindFraming, "message id: 0xFF00 outside every class")
		}
		return MessageID{Number: uint32(n), Frequency: FrequencyMedium}, mediumIDLen, nil
	}

	if data[0] == 0x00 {
		return MessageID{}, 0, NewError(KindFraming, "message id: 0x00 outside every class")
	}
	return MessageID{Number: uint32(data[0]), Frequency: FrequencyHigh}, highIDLen, nil
}
