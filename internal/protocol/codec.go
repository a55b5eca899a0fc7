package protocol

import (
	"sort"

	"github.com/google/uuid"
)

// DecodeBody consumes fields of s from data left to right. On failure the
// fields decoded before the failing one are returned alongside the error, so
// callers can still inspect a partially understood message. Bytes after the
// last field are ignored.
func DecodeBody(s *Schema, data []byte) (*Body, error) {
	body := NewBody()
	r := NewBodyReader(data)
	for _, f := range s.Fields {
		v, err := decodeField(r, f)
		if err != nil {
			return body, WrapError(KindOf(err), err, "decode %s.%s", s.Name, f.Name)
		}
		body.Set(f.Name, v)
	}
	return body, nil
}

func decodeField(r *BodyReader, f Field) (interface{}, error) {
	switch f.Type {
	case FieldU8:
		return r.ReadUint8(f.Name)
	case FieldS8:
		v, err := r.ReadUint8(f.Name)
		return int8(v), err
	case FieldU16:
		return r.ReadUint16(f.Name)
	case FieldS16:
		v, err := r.ReadUint16(f.Name)
		return int16(v), err
	case FieldU32:
		return r.ReadUint32(f.Name)
	case FieldS32:
		v, err := r.ReadUint32(f.Name)
		return int32(v), err
	case FieldU64:
		return r.ReadUint64(f.Name)
	case FieldS64:
		v, err := r.ReadUint64(f.Name)
		return int64(v), err
	case FieldF32:
		return r.ReadFloat32(f.Name)
	case FieldF64:
		return r.ReadFloat64(f.Name)
	case FieldBool:
		v, err := r.ReadUint8(f.Name)
		return v != 0, err
	case FieldUUID:
		return r.ReadUUID(f.Name)
	case FieldVector3:
		return r.ReadVector3(f.Name)
	case FieldRotation4:
		return r.ReadRotation4(f.Name)
	case FieldVariable1:
		return r.ReadVariable1(f.Name)
	case FieldVariable2:
		return r.ReadVariable2(f.Name)
	case FieldRepeatingBlock:
		return nil, ErrUnsupportedRepeatingBlock
	}
	return nil, NewError(KindSchema, "field %q has unknown type %s", f.Name, f.Type)
}

// EncodeBody packs body according to s. Every schema field must be present
// with its exact Go type and no foreign keys may be set; anything else is a
// schema error.
func EncodeBody(s *Schema, body *Body) ([]byte, error) {
	known := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = struct{}{}
	}
	var foreign []string
	for _, name := range body.names {
		if _, ok := known[name]; !ok {
			foreign = append(foreign, name)
		}
	}
	if len(foreign) > 0 {
		sort.Strings(foreign)
		return nil, NewError(KindSchema, "%s has no fields %v", s.Name, foreign)
	}

	b := NewPacketBuilder()
	for _, f := range s.Fields {
		v, ok := body.values[f.Name]
		if !ok {
			return nil, NewError(KindSchema, "%s.%s missing", s.Name, f.Name)
		}
		if err := encodeField(b, f, v); err != nil {
			return nil, WrapError(KindSchema, err, "encode %s.%s", s.Name, f.Name)
		}
		if err := b.Err(); err != nil {
			return nil, WrapError(KindSchema, err, "encode %s.%s", s.Name, f.Name)
		}
	}
	return b.Build(), nil
}

func encodeField(b *PacketBuilder, f Field, v interface{}) error {
	mismatch := func() error {
		return NewError(KindSchema, "value %T does not fit %s", v, f.Type)
	}
	switch f.Type {
	case FieldU8:
		x, ok := v.(uint8)
		if !ok {
			return mismatch()
		}
		b.WriteUint8(x)
	case FieldS8:
		x, ok := v.(int8)
		if !ok {
			return mismatch()
		}
		b.WriteUint8(uint8(x))
	case FieldU16:
		x, ok := v.(uint16)
		if !ok {
			return mismatch()
		}
		b.WriteUint16(x)
	case FieldS16:
		x, ok := v.(int16)
		if !ok {
			return mismatch()
		}
		b.WriteUint16(uint16(x))
	case FieldU32:
		x, ok := v.(uint32)
		if !ok {
			return mismatch()
		}
		b.WriteUint32(x)
	case FieldS32:
		x, ok := v.(int32)
		if !ok {
			return mismatch()
		}
		b.WriteUint32(uint32(x))
	case FieldU64:
		x, ok := v.(uint64)
		if !ok {
			return mismatch()
		}
		b.WriteUint64(x)
	case FieldS64:
		x, ok := v.(int64)
		if !ok {
			return mismatch()
		}
		b.WriteUint64(uint64(x))
	case FieldF32:
		x, ok := v.(float32)
		if !ok {
			return mismatch()
		}
		b.WriteFloat32(x)
	case FieldF64:
		x, ok := v.(float64)
		if !ok {
			return mismatch()
		}
		b.WriteFloat64(x)
	case FieldBool:
		x, ok := v.(bool)
		if !ok {
			return mismatch()
		}
		b.WriteBool(x)
	case FieldUUID:
		x, ok := v.(uuid.UUID)
		if !ok {
			return mismatch()
		}
		b.WriteUUID(x)
	case FieldVector3:
		x, ok := v.([3]float32)
		if !ok {
			return mismatch()
		}
		b.WriteVector3(x)
	case FieldRotation4:
		x, ok := v.([4]float32)
		if !ok {
			return mismatch()
		}
		b.WriteRotation4(x)
	case FieldVariable1:
		x, ok := v.([]byte)
		if !ok {
			return mismatch()
		}
		b.WriteVariable1(x)
	case FieldVariable2:
		x, ok := v.([]byte)
		if !ok {
			return mismatch()
		}
		b.WriteVariable2(x)
	case FieldRepeatingBlock:
		return ErrUnsupportedRepeatingBlock
	default:
		return NewError(KindSchema, "unknown field type %s", f.Type)
	}
	return nil
}
