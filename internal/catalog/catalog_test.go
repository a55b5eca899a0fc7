package catalog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/simlink-project/simlink/internal/protocol"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	tests := []struct {
		name      string
		id        protocol.MessageID
		zerocoded bool
	}{
		{"PacketAck", protocol.MessageID{Number: 0xFFFFFFFB, Frequency: protocol.FrequencyFixed}, false},
		{"CloseCircuit", protocol.MessageID{Number: 0xFFFFFFFD, Frequency: protocol.FrequencyFixed}, false},
		{"StartPingCheck", protocol.MessageID{Number: 1, Frequency: protocol.FrequencyHigh}, false},
		{"CompletePingCheck", protocol.MessageID{Number: 2, Frequency: protocol.FrequencyHigh}, false},
		{"AgentUpdate", protocol.MessageID{Number: 4, Frequency: protocol.FrequencyHigh}, true},
		{"CoarseLocationUpdate", protocol.MessageID{Number: 6, Frequency: protocol.FrequencyMedium}, false},
		{"UseCircuitCode", protocol.MessageID{Number: 3, Frequency: protocol.FrequencyLow}, false},
		{"RegionHandshake", protocol.MessageID{Number: 148, Frequency: protocol.FrequencyLow}, true},
		{"RegionHandshakeReply", protocol.MessageID{Number: 149, Frequency: protocol.FrequencyLow}, true},
		{"ImprovedInstantMessage", protocol.MessageID{Number: 254, Frequency: protocol.FrequencyLow}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := c.Lookup(tt.name)
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			if e.ID != tt.id {
				t.Errorf("id = %s, want %s", e.ID, tt.id)
			}
			if e.Zerocoded != tt.zerocoded {
				t.Errorf("zerocoded = %v, want %v", e.Zerocoded, tt.zerocoded)
			}
			name, err := c.NameFor(tt.id)
			if err != nil || name != tt.name {
				t.Errorf("NameFor(%s) = %q, %v", tt.id, name, err)
			}
		})
	}
}

func TestEveryEntryRoundTripsOnTheWire(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	for _, e := range c.Entries() {
		wire := protocol.EncodeMessageID(e.ID)
		got, n, err := protocol.DecodeMessageID(wire)
		if err != nil {
			t.Errorf("%s: DecodeMessageID failed: %v", e.Name, err)
			continue
		}
		if got != e.ID || n != len(wire) {
			t.Errorf("%s: decoded %s (%d bytes), want %s (%d bytes)", e.Name, got, n, e.ID, len(wire))
		}
	}
}

func TestEverySchemaIsCataloged(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	for _, s := range protocol.Schemas() {
		if _, err := c.EncodingFor(s.Name); err != nil {
			t.Errorf("schema %s has no catalog entry: %v", s.Name, err)
		}
	}
}

func TestUnknownLookups(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	_, err = c.EncodingFor("NoSuchMessage")
	if !errors.Is(err, ErrUnknownMessage) || !protocol.IsKind(err, protocol.KindCatalog) {
		t.Errorf("EncodingFor unknown: got %v", err)
	}
	_, err = c.NameFor(protocol.MessageID{Number: 200, Frequency: protocol.FrequencyHigh})
	if !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("NameFor unknown: got %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		template    string
		expectedLen int
		expectedErr bool
	}{
		{
			name: "Comments and blocks skipped",
			template: "// header\nversion 2.0\n\n{\n\tFoo Low 7 Trusted Zerocoded\n\t{\n\t\tBlock Single\n\t\t{ ID U32 }\n\t}\n}\n",
			expectedLen: 1,
		},
		{
			name:        "Missing trust and encoding",
			template:    "Foo High 9\n",
			expectedLen: 1,
		},
		{
			name:        "Unknown frequency keyword ignored",
			template:    "Foo Sometimes 9\nBar Medium 9\n",
			expectedLen: 1,
		},
		{
			name:        "Duplicate name",
			template:    "Foo Low 1\nFoo Low 2\n",
			expectedErr: true,
		},
		{
			name:        "Duplicate id",
			template:    "Foo Low 1\nBar Low 1\n",
			expectedErr: true,
		},
		{
			name:        "High out of range",
			template:    "Foo High 255\n",
			expectedErr: true,
		},
		{
			name:        "Fixed below range",
			template:    "Foo Fixed 0xFFFFFFF0\n",
			expectedErr: true,
		},
		{
			name:        "Bad decimal",
			template:    "Foo Low 0x10\n",
			expectedErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(strings.NewReader(tt.template))
			if (err != nil) != tt.expectedErr {
				t.Fatalf("Parse error = %v, expectedErr %v", err, tt.expectedErr)
			}
			if err != nil {
				if !protocol.IsKind(err, protocol.KindCatalog) {
					t.Errorf("expected catalog error, got %v", err)
				}
				return
			}
			if c.Len() != tt.expectedLen {
				t.Errorf("Len = %d, want %d", c.Len(), tt.expectedLen)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.msg")
	if err := os.WriteFile(path, []byte("Ping High 1 NotTrusted Unencoded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.msg")); err == nil {
		t.Error("expected error for missing template")
	}
	if !bytes.Contains(embeddedTemplate, []byte("PacketAck Fixed 0xFFFFFFFB")) {
		t.Error("embedded template missing PacketAck")
	}
}
