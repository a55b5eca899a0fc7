package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// PacketBuilder constructs little-endian message bodies. Writes are chained;
// the first failing write is remembered and reported by Err, later writes are
// ignored.
type PacketBuilder struct {
	buf bytes.Buffer
	err error
}

// NewPacketBuilder creates a new PacketBuilder.
func NewPacketBuilder() *PacketBuilder {
	return &PacketBuilder{}
}

// Reset clears the builder for reuse.
func (b *PacketBuilder) Reset() {
	b.buf.Reset()
	b.err = nil
}

func (b *PacketBuilder) WriteUint8(v byte) *PacketBuilder {
	if b.err == nil {
		b.buf.WriteByte(v)
	}
	return b
}

func (b *PacketBuilder) WriteBool(v bool) *PacketBuilder {
	if v {
		return b.WriteUint8(1)
	}
	return b.WriteUint8(0)
}

func (b *PacketBuilder) WriteUint16(v uint16) *PacketBuilder {
	if b.err == nil {
		b.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
	}
	return b
}

func (b *PacketBuilder) WriteUint32(v uint32) *PacketBuilder {
	if b.err == nil {
		b.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
	}
	return b
}

func (b *PacketBuilder) WriteUint64(v uint64) *PacketBuilder {
	if b.err == nil {
		b.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
	}
	return b
}

func (b *PacketBuilder) WriteFloat32(v float32) *PacketBuilder {
	return b.WriteUint32(math.Float32bits(v))
}

func (b *PacketBuilder) WriteFloat64(v float64) *PacketBuilder {
	return b.WriteUint64(math.Float64bits(v))
}

// WriteUUID writes the 16 raw bytes of id.
func (b *PacketBuilder) WriteUUID(id uuid.UUID) *PacketBuilder {
	return b.WriteBytes(id[:])
}

// WriteVector3 writes three little-endian float32 components.
func (b *PacketBuilder) WriteVector3(v [3]float32) *PacketBuilder {
	for _, c := range v {
		b.WriteFloat32(c)
	}
	return b
}

// WriteRotation4 writes four little-endian float32 components.
func (b *PacketBuilder) WriteRotation4(q [4]float32) *PacketBuilder {
	for _, c := range q {
		b.WriteFloat32(c)
	}
	return b
}

// WriteVariable1 writes data behind a 1-byte length prefix.
// Format: [length:1][bytes...]
func (b *PacketBuilder) WriteVariable1(data []byte) *PacketBuilder {
	if len(data) > math.MaxUint8 {
		return b.fail(NewError(KindSchema, "variable1 field of %d bytes exceeds %d", len(data), math.MaxUint8))
	}
	return b.WriteUint8(byte(len(data))).WriteBytes(data)
}

// WriteVariable2 writes data behind a 2-byte little-endian length prefix.
// Format: [length:2][bytes...]
func (b *PacketBuilder) WriteVariable2(data []byte) *PacketBuilder {
	if len(data) > math.MaxUint16 {
		return b.fail(NewError(KindSchema, "variable2 field of %d bytes exceeds %d", len(data), math.MaxUint16))
	}
	return b.WriteUint16(uint16(len(data))).WriteBytes(data)
}

// WriteBytes writes raw bytes.
func (b *PacketBuilder) WriteBytes(data []byte) *PacketBuilder {
	if b.err == nil {
		b.buf.Write(data)
	}
	return b
}

func (b *PacketBuilder) fail(err error) *PacketBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Err returns the first error raised by a write.
func (b *PacketBuilder) Err() error {
	return b.err
}

// Build returns the constructed bytes.
func (b *PacketBuilder) Build() []byte {
	return b.buf.Bytes()
}

// Len returns the current size of the body being built.
func (b *PacketBuilder) Len() int {
	return b.buf.Len()
}

// String returns a hex dump of the current body for debugging.
func (b *PacketBuilder) String() string {
	data := b.buf.Bytes()
	return fmt.Sprintf("PacketBuilder[%d bytes]: %x", len(data), data)
}
