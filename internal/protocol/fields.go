package protocol

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// FieldType tags how a single field is laid out in a message body.
type FieldType uint8

const (
	FieldU8 FieldType = iota + 1
	FieldS8
	FieldU16
	FieldS16
	FieldU32
	FieldS32
	FieldU64
	FieldS64
	FieldF32
	FieldF64
	FieldBool
	FieldUUID
	FieldVector3
	FieldRotation4
	FieldVariable1
	FieldVariable2
	FieldRepeatingBlock
)

var fieldTypeStrings = map[FieldType]string{
	FieldU8:             "U8",
	FieldS8:             "S8",
	FieldU16:            "U16",
	FieldS16:            "S16",
	FieldU32:            "U32",
	FieldS32:            "S32",
	FieldU64:            "U64",
	FieldS64:            "S64",
	FieldF32:            "F32",
	FieldF64:            "F64",
	FieldBool:           "Bool",
	FieldUUID:           "Uuid",
	FieldVector3:        "Vector3",
	FieldRotation4:      "Rotation4",
	FieldVariable1:      "Variable1",
	FieldVariable2:      "Variable2",
	FieldRepeatingBlock: "RepeatingBlock",
}

func (t FieldType) String() string {
	if s, ok := fieldTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("FieldType(%d)", uint8(t))
}

// Field is one named entry of a schema. Block is the repeated sub-schema of a
// RepeatingBlock field and empty otherwise.
type Field struct {
	Name  string
	Type  FieldType
	Block []Field
}

// Schema is the ordered field list of one message type.
type Schema struct {
	Name   string
	Fields []Field
}

// Body holds decoded or to-be-encoded field values in schema order.
//
// Values use these Go types: U8 uint8, S8 int8, U16 uint16, S16 int16,
// U32 uint32, S32 int32, U64 uint64, S64 int64, F32 float32, F64 float64,
// Bool bool, Uuid uuid.UUID, Vector3 [3]float32, Rotation4 [4]float32,
// Variable1 and Variable2 []byte.
type Body struct {
	names  []string
	values map[string]interface{}
}

// NewBody creates an empty body.
func NewBody() *Body {
	return &Body{values: make(map[string]interface{})}
}

// Set stores a value, keeping first-insertion order.
func (b *Body) Set(name string, v interface{}) *Body {
	if _, ok := b.values[name]; !ok {
		b.names = append(b.names, name)
	}
	b.values[name] = v
	return b
}

// Get returns the raw value stored under name.
func (b *Body) Get(name string) (interface{}, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Names returns field names in insertion order.
func (b *Body) Names() []string {
	return append([]string(nil), b.names...)
}

func (b *Body) Len() int {
	return len(b.names)
}

func (b *Body) U8(name string) uint8 {
	v, _ := b.values[name].(uint8)
	return v
}

func (b *Body) U16(name string) uint16 {
	v, _ := b.values[name].(uint16)
	return v
}

func (b *Body) U32(name string) uint32 {
	v, _ := b.values[name].(uint32)
	return v
}

func (b *Body) U64(name string) uint64 {
	v, _ := b.values[name].(uint64)
	return v
}

func (b *Body) S32(name string) int32 {
	v, _ := b.values[name].(int32)
	return v
}

func (b *Body) F32(name string) float32 {
	v, _ := b.values[name].(float32)
	return v
}

func (b *Body) Bool(name string) bool {
	v, _ := b.values[name].(bool)
	return v
}

// UUID returns the Uuid value under name, uuid.Nil when absent.
func (b *Body) UUID(name string) uuid.UUID {
	v, _ := b.values[name].(uuid.UUID)
	return v
}

func (b *Body) Vector3(name string) [3]float32 {
	v, _ := b.values[name].([3]float32)
	return v
}

func (b *Body) Bytes(name string) []byte {
	v, _ := b.values[name].([]byte)
	return v
}

// Text returns a variable field as a string with trailing NUL bytes removed.
func (b *Body) Text(name string) string {
	return string(bytes.TrimRight(b.Bytes(name), "\x00"))
}

// MarshalJSON renders the body as an object in field order. Printable
// variable fields become strings, others hex.
func (b *Body) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range b.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(displayValue(b.values[name]))
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatValue renders a single field value for logs and dissection output.
func FormatValue(v interface{}) string {
	switch x := displayValue(v).(type) {
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func displayValue(v interface{}) interface{} {
	switch x := v.(type) {
	case uuid.UUID:
		return x.String()
	case []byte:
		trimmed := bytes.TrimRight(x, "\x00")
		if utf8.Valid(trimmed) && isPrintable(trimmed) {
			return string(trimmed)
		}
		return hex.EncodeToString(x)
	default:
		return v
	}
}

func isPrintable(b []byte) bool {
	for _, r := range string(b) {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return false
		}
	}
	return true
}
