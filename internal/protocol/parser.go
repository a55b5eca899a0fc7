package protocol

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// BodyReader consumes little-endian fields from a message body, advancing an
// offset. Every read past the end is a codec error naming the field.
type BodyReader struct {
	data []byte
	off  int
}

// NewBodyReader creates a reader positioned at the start of data.
func NewBodyReader(data []byte) *BodyReader {
	return &BodyReader{data: data}
}

// Offset returns the number of bytes consumed so far.
func (r *BodyReader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *BodyReader) Remaining() int { return len(r.data) - r.off }

func (r *BodyReader) take(field string, n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, NewError(KindCodec, "field %q needs %d bytes at offset %d, %d left", field, n, r.off, r.Remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *BodyReader) ReadUint8(field string) (byte, error) {
	b, err := r.take(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *BodyReader) ReadUint16(field string) (uint16, error) {
	b, err := r.take(field, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *BodyReader) ReadUint32(field string) (uint32, error) {
	b, err := r.take(field, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *BodyReader) ReadUint64(field string) (uint64, error) {
	b, err := r.take(field, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *BodyReader) ReadFloat32(field string) (float32, error) {
	v, err := r.ReadUint32(field)
	return math.Float32frombits(v), err
}

func (r *BodyReader) ReadFloat64(field string) (float64, error) {
	v, err := r.ReadUint64(field)
	return math.Float64frombits(v), err
}

func (r *BodyReader) ReadUUID(field string) (uuid.UUID, error) {
	b, err := r.take(field, 16)
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	copy(id[:], b)
	return id, nil
}

func (r *BodyReader) ReadVector3(field string) ([3]float32, error) {
	var v [3]float32
	for i := range v {
		c, err := r.ReadFloat32(field)
		if err != nil {
			return v, err
		}
		v[i] = c
	}
	return v, nil
}

func (r *BodyReader) ReadRotation4(field string) ([4]float32, error) {
	var q [4]float32
	for i := range q {
		c, err := r.ReadFloat32(field)
		if err != nil {
			return q, err
		}
		q[i] = c
	}
	return q, nil
}

// ReadVariable1 reads a 1-byte length prefix and that many bytes.
func (r *BodyReader) ReadVariable1(field string) ([]byte, error) {
	n, err := r.ReadUint8(field)
	if err != nil {
		return nil, err
	}
	b, err := r.take(field, int(n))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// ReadVariable2 reads a 2-byte little-endian length prefix and that many bytes.
func (r *BodyReader) ReadVariable2(field string) ([]byte, error) {
	n, err := r.ReadUint16(field)
	if err != nil {
		return nil, err
	}
	b, err := r.take(field, int(n))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}
