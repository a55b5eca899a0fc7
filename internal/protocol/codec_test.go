package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
)

var everyTypeSchema = &Schema{
	Name: "EveryType",
	Fields: []Field{
		{Name: "A", Type: FieldU8},
		{Name: "B", Type: FieldS8},
		{Name: "C", Type: FieldU16},
		{Name: "D", Type: FieldS16},
		{Name: "E", Type: FieldU32},
		{Name: "F", Type: FieldS32},
		{Name: "G", Type: FieldU64},
		{Name: "H", Type: FieldS64},
		{Name: "I", Type: FieldF32},
		{Name: "J", Type: FieldF64},
		{Name: "K", Type: FieldBool},
		{Name: "L", Type: FieldUUID},
		{Name: "M", Type: FieldVector3},
		{Name: "N", Type: FieldRotation4},
		{Name: "O", Type: FieldVariable1},
		{Name: "P", Type: FieldVariable2},
	},
}

func everyTypeBody() *Body {
	return NewBody().
		Set("A", uint8(0xFE)).
		Set("B", int8(-5)).
		Set("C", uint16(0xBEEF)).
		Set("D", int16(-1234)).
		Set("E", uint32(0xCAFEBABE)).
		Set("F", int32(-70000)).
		Set("G", uint64(1)<<40).
		Set("H", int64(-1)<<40).
		Set("I", float32(1.5)).
		Set("J", float64(-2.25)).
		Set("K", true).
		Set("L", uuid.MustParse("779e1d56-5500-4e22-940a-cd7b5adddbe0")).
		Set("M", [3]float32{1, 2, 3}).
		Set("N", [4]float32{0, 0, 0, 1}).
		Set("O", []byte("short")).
		Set("P", []byte("hello, region\x00"))
}

func TestFieldCodecRoundTrip(t *testing.T) {
	body := everyTypeBody()
	data, err := EncodeBody(everyTypeSchema, body)
	if err != nil {
		t.Fatalf("EncodeBody failed: %v", err)
	}
	got, err := DecodeBody(everyTypeSchema, data)
	if err != nil {
		t.Fatalf("DecodeBody failed: %v", err)
	}
	if !reflect.DeepEqual(got, body) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", got.values, body.values)
	}
	if !reflect.DeepEqual(got.Names(), body.Names()) {
		t.Errorf("field order = %v, want %v", got.Names(), body.Names())
	}
}

func TestFieldCodecLittleEndian(t *testing.T) {
	s := &Schema{Name: "LE", Fields: []Field{{Name: "V", Type: FieldU32}, {Name: "S", Type: FieldVariable2}}}
	data, err := EncodeBody(s, NewBody().Set("V", uint32(0x01020304)).Set("S", []byte("ab")))
	if err != nil {
		t.Fatalf("EncodeBody failed: %v", err)
	}
	want := []byte{0x04, 0x03, 0x02, 0x01, 0x02, 0x00, 'a', 'b'}
	if !bytes.Equal(data, want) {
		t.Errorf("EncodeBody = %x, want %x", data, want)
	}
}

func TestEncodeBodySchemaErrors(t *testing.T) {
	s := &Schema{Name: "Small", Fields: []Field{
		{Name: "ID", Type: FieldU8},
		{Name: "Name", Type: FieldVariable1},
	}}
	tests := []struct {
		name string
		body *Body
	}{
		{name: "Missing field", body: NewBody().Set("ID", uint8(1))},
		{name: "Foreign field", body: NewBody().Set("ID", uint8(1)).Set("Name", []byte{}).Set("Extra", uint8(2))},
		{name: "Wrong type", body: NewBody().Set("ID", 1).Set("Name", []byte{})},
		{name: "Variable1 overflow", body: NewBody().Set("ID", uint8(1)).Set("Name", make([]byte, 256))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeBody(s, tt.body)
			if err == nil {
				t.Fatal("expected schema error, got nil")
			}
			if !IsKind(err, KindSchema) {
				t.Errorf("expected schema error, got %v", err)
			}
		})
	}
}

func TestVariable2Bounds(t *testing.T) {
	s := &Schema{Name: "Big", Fields: []Field{{Name: "Data", Type: FieldVariable2}}}
	if _, err := EncodeBody(s, NewBody().Set("Data", make([]byte, 65535))); err != nil {
		t.Errorf("65535 bytes should encode: %v", err)
	}
	if _, err := EncodeBody(s, NewBody().Set("Data", make([]byte, 65536))); !IsKind(err, KindSchema) {
		t.Errorf("65536 bytes: expected schema error, got %v", err)
	}
}

func TestDecodeBodyTruncated(t *testing.T) {
	s := &Schema{Name: "Trunc", Fields: []Field{
		{Name: "A", Type: FieldU8},
		{Name: "B", Type: FieldU32},
	}}
	body, err := DecodeBody(s, []byte{1, 2, 3})
	if !IsKind(err, KindCodec) {
		t.Fatalf("expected codec error, got %v", err)
	}
	if body.Len() != 1 || body.U8("A") != 1 {
		t.Errorf("partial body = %v", body.values)
	}
}

func TestRepeatingBlockUnsupported(t *testing.T) {
	s := &Schema{Name: "Repeat", Fields: []Field{
		{Name: "Head", Type: FieldU8},
		{Name: "Rows", Type: FieldRepeatingBlock, Block: []Field{{Name: "X", Type: FieldU64}}},
	}}
	_, err := DecodeBody(s, []byte{1, 1, 0, 0, 0, 0, 0, 0, 0, 0})
	if !errors.Is(err, ErrUnsupportedRepeatingBlock) {
		t.Errorf("DecodeBody: expected ErrUnsupportedRepeatingBlock, got %v", err)
	}
	_, err = EncodeBody(s, NewBody().Set("Head", uint8(1)).Set("Rows", nil))
	if !errors.Is(err, ErrUnsupportedRepeatingBlock) {
		t.Errorf("EncodeBody: expected ErrUnsupportedRepeatingBlock, got %v", err)
	}
}

func TestPingCheckScenario(t *testing.T) {
	data, err := ParseHex("00 00 00 00 38 00 01 01 37 00 00 00")
	if err != nil {
		t.Fatal(err)
	}
	pkt, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}
	if pkt.Header.Message != (MessageID{1, FrequencyHigh}) {
		t.Fatalf("message = %s, want High 1", pkt.Header.Message)
	}
	start, _ := LookupSchema(MsgStartPingCheck)
	ping, err := DecodeBody(start, pkt.Body)
	if err != nil {
		t.Fatalf("DecodeBody failed: %v", err)
	}
	if ping.U8("PingID") != 1 || ping.U32("OldestUnacked") != 0x37 {
		t.Fatalf("ping = %v", ping.values)
	}

	complete, _ := LookupSchema(MsgCompletePingCheck)
	reply, err := EncodeBody(complete, NewBody().Set("PingID", ping.U8("PingID")))
	if err != nil {
		t.Fatalf("EncodeBody failed: %v", err)
	}
	if !bytes.Equal(reply, []byte{0x01}) {
		t.Errorf("CompletePingCheck body = %x, want 01", reply)
	}
}

const instantMessageDatagram = "C0 00 00 0F BB 00 FF FF 00 01 FE 77 9E 1D 56 55 00 01 4E 22 94 0A CD 7B 5A DD DB E0 " +
	"D6 D5 43 A0 A5 5E 43 6A A3 DE 58 3D 4C C5 25 25 00 01 8B 84 B5 DC B5 70 4A 77 93 05 3B A3 7A E0 C8 A9 " +
	"00 20 01 00 01 FC 1A A8 8A E0 70 04 55 07 0F F6 D8 20 3D 13 49 00 04 12 57 75 6C 66 69 65 20 52 65 61 " +
	"6E 69 6D 61 74 6F 72 00 01 0F 00 01 74 68 69 73 20 69 73 20 61 20 74 65 73 74 00 01 01 00 02"

func TestInstantMessageScenario(t *testing.T) {
	data, err := ParseHex(instantMessageDatagram)
	if err != nil {
		t.Fatal(err)
	}
	pkt, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}
	if pkt.Header.Message != (MessageID{254, FrequencyLow}) {
		t.Fatalf("message = %s, want Low 254", pkt.Header.Message)
	}

	schema, _ := LookupSchema(MsgImprovedInstantMessage)
	body, err := DecodeBody(schema, pkt.Body)
	if err != nil {
		t.Fatalf("DecodeBody failed: %v", err)
	}
	if body.U8("Dialog") != 0 {
		t.Errorf("Dialog = %d, want 0", body.U8("Dialog"))
	}
	if got := body.Text("Message"); got != "this is a test" {
		t.Errorf("Message = %q", got)
	}
	if got := body.Text("FromAgentName"); got != "Wulfie Reanimator" {
		t.Errorf("FromAgentName = %q", got)
	}
	if got := body.UUID("AgentID").String(); got != "779e1d56-5500-4e22-940a-cd7b5adddbe0" {
		t.Errorf("AgentID = %s", got)
	}

	reencoded, err := EncodeBody(schema, body)
	if err != nil {
		t.Fatalf("EncodeBody failed: %v", err)
	}
	out, err := EncodePacket(&Packet{Header: pkt.Header, Body: reencoded})
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("re-encoded datagram differs:\n got %s\nwant %s", FormatHex(out), FormatHex(data))
	}
}

const regionHandshakeDatagram = "C0 00 00 00 02 00 FF FF 00 01 94 26 82 90 5C 15 08 46 69 64 65 6C 69 73 00 01 02 64 28 B1 50 71 " +
	"47 2F 9C DB E2 85 CC 39 DA 9E 00 01 CD CC A0 41 00 04 FB FE A8 13 09 AD 3D 92 3A DD 36 DC 7E BB 13 47 9C 43 " +
	"4A 43 D5 D8 A3 DD B6 24 41 67 82 38 34 78 AB B7 83 E6 3E 93 26 C0 24 8A 24 76 66 85 5D A3 17 9C DA BD 39 8A " +
	"9B 6B 13 91 4D C3 33 BA 32 1F BE B1 69 C7 11 EA FF F2 EF E5 0F 24 DC 88 1D F2 CB 1C BC 94 17 46 88 17 AA 35 " +
	"9E 0A 50 4C 89 FA F3 1A AE 95 84 09 97 94 F7 C8 59 35 13 62 6C 77 DB A2 21 E5 81 35 19 E9 94 7C 03 4F 3E DF " +
	"A1 C9 DB A2 21 E5 81 35 19 E9 94 7C 03 4F 3E DF A1 C9 00 02 30 41 00 02 A0 41 00 02 A0 41 00 02 A0 41 00 02 " +
	"A0 41 00 02 0C 42 00 02 0C 42 00 02 0C 42 BD E2 D4 99 11 35 49 9C 82 32 C2 D6 8E 00 01 8C AC B3 03 00 02 01 " +
	"00 03 0F 61 77 73 2D 75 73 2D 77 65 73 74 2D 32 61 00 01 04 32 32 39 00 01 13 45 73 74 61 74 65 20 2F 20 48 " +
	"6F 6D 65 73 74 65 61 64 00 01 01 26 82 90 5C 00 04 01 00 07"

func TestRegionHandshakePartialDecode(t *testing.T) {
	data, err := ParseHex(regionHandshakeDatagram)
	if err != nil {
		t.Fatal(err)
	}
	pkt, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}
	if pkt.Header.Message != (MessageID{148, FrequencyLow}) {
		t.Fatalf("message = %s, want Low 148", pkt.Header.Message)
	}

	schema, _ := LookupSchema(MsgRegionHandshake)
	body, err := DecodeBody(schema, pkt.Body)
	if !errors.Is(err, ErrUnsupportedRepeatingBlock) {
		t.Fatalf("expected ErrUnsupportedRepeatingBlock, got %v", err)
	}
	if got := body.Text("SimName"); got != "Fidelis" {
		t.Errorf("SimName = %q, want Fidelis", got)
	}
	if got := body.Text("ColoName"); got != "aws-us-west-2a" {
		t.Errorf("ColoName = %q", got)
	}
	if got := body.Text("ProductName"); got != "Estate / Homestead" {
		t.Errorf("ProductName = %q", got)
	}
	if got := body.UUID("RegionID").String(); got != "bde2d499-1135-499c-8232-c2d68e008cac" {
		t.Errorf("RegionID = %s", got)
	}
	if body.S32("CPUClassID") != 947 {
		t.Errorf("CPUClassID = %d, want 947", body.S32("CPUClassID"))
	}
}

func TestBodyMarshalJSON(t *testing.T) {
	body := NewBody().
		Set("ID", uuid.Nil).
		Set("Name", []byte("Fidelis\x00")).
		Set("Raw", []byte{0x01, 0x02})
	out, err := body.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	want := `{"ID":"00000000-0000-0000-0000-000000000000","Name":"Fidelis","Raw":"0102"}`
	if string(out) != want {
		t.Errorf("MarshalJSON = %s, want %s", out, want)
	}
	if !strings.HasPrefix(FormatValue([3]float32{1, 2, 3}), "[1 2 3") {
		t.Errorf("FormatValue vector = %q", FormatValue([3]float32{1, 2, 3}))
	}
}
