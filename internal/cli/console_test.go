package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/simlink-project/simlink/internal/catalog"
	"github.com/simlink-project/simlink/internal/circuit"
	"github.com/simlink-project/simlink/internal/events"
)

type fakeCircuit struct {
	mu        sync.Mutex
	cat       *catalog.Catalog
	status    circuit.Status
	submitted []circuit.Intent
}

func (f *fakeCircuit) Status() circuit.Status    { return f.status }
func (f *fakeCircuit) Catalog() *catalog.Catalog { return f.cat }
func (f *fakeCircuit) Submit(in circuit.Intent) error {
	if err := in.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, in)
	return nil
}

func (f *fakeCircuit) intents() []circuit.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]circuit.Intent(nil), f.submitted...)
}

func newTestConsole(t *testing.T, input string) (*Console, *fakeCircuit, *bytes.Buffer) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default: %v", err)
	}
	fc := &fakeCircuit{cat: cat}
	var out bytes.Buffer
	return NewConsole(fc, events.NewEventBus(), strings.NewReader(input), &out), fc, &out
}

func TestExecute(t *testing.T) {
	to := uuid.MustParse("779e1d56-5500-4e22-940a-cd7b5adddbe0")

	tests := []struct {
		name        string
		line        string
		expectedErr bool
		quit        bool
		intent      *circuit.Intent
	}{
		{name: "Blank", line: "   "},
		{name: "Plain chat", line: "hello there", intent: &circuit.Intent{Kind: circuit.IntentChat, Text: "hello there", ChatType: events.ChatNormal}},
		{name: "Emote", line: "/me waves", intent: &circuit.Intent{Kind: circuit.IntentChat, Text: "/me waves", ChatType: events.ChatNormal}},
		{name: "Shout", line: "/shout over here", intent: &circuit.Intent{Kind: circuit.IntentChat, Text: "over here", ChatType: events.ChatShout}},
		{name: "Whisper missing text", line: "/whisper", expectedErr: true},
		{name: "IM", line: "/im " + to.String() + "  hi  you", intent: &circuit.Intent{Kind: circuit.IntentInstantMessage, To: to, Text: "hi  you"}},
		{name: "IM bad id", line: "/im bob hi", expectedErr: true},
		{name: "IM missing text", line: "/im " + to.String(), expectedErr: true},
		{name: "Quit", line: "/quit", quit: true, intent: &circuit.Intent{Kind: circuit.IntentLogout}},
		{name: "Unknown", line: "/dance"},
		{name: "Help", line: "/help"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fc, _ := newTestConsole(t, "")
			quit, err := c.execute(tt.line)
			if (err != nil) != tt.expectedErr {
				t.Fatalf("err = %v, expectedErr %v", err, tt.expectedErr)
			}
			if quit != tt.quit {
				t.Errorf("quit = %v, want %v", quit, tt.quit)
			}
			got := fc.intents()
			if tt.intent == nil {
				if len(got) != 0 {
					t.Errorf("unexpected intents %+v", got)
				}
				return
			}
			if len(got) != 1 || got[0] != *tt.intent {
				t.Errorf("intents = %+v, want %+v", got, *tt.intent)
			}
		})
	}
}

func TestStartReadsUntilQuit(t *testing.T) {
	c, fc, out := newTestConsole(t, "hi\n/quit\nnever sent\n")

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop after /quit")
	}

	got := fc.intents()
	if len(got) != 2 || got[0].Kind != circuit.IntentChat || got[1].Kind != circuit.IntentLogout {
		t.Fatalf("intents = %+v", got)
	}
	if !strings.Contains(out.String(), "Logging out") {
		t.Errorf("output = %q", out.String())
	}
}

func TestEventPrinting(t *testing.T) {
	c, _, out := newTestConsole(t, "")
	c.Subscribe()
	ctx := context.Background()

	c.bus.EmitSync(ctx, events.Event{Type: events.EventChat, Payload: events.ChatPayload{FromName: "Wulfie Reanimator", Message: "hello", ChatType: events.ChatNormal}})
	c.bus.EmitSync(ctx, events.Event{Type: events.EventChat, Payload: events.ChatPayload{FromName: "Wulfie Reanimator", Message: "/me waves", ChatType: events.ChatNormal}})
	c.bus.EmitSync(ctx, events.Event{Type: events.EventInstantMessage, Payload: events.InstantMessagePayload{FromName: "Bot", Message: "psst", Dialog: events.DialogIM}})
	c.bus.EmitSync(ctx, events.Event{Type: events.EventInstantMessage, Payload: events.InstantMessagePayload{FromName: "Bot", Dialog: events.DialogTypingStarted}})
	c.bus.EmitSync(ctx, events.Event{Type: events.EventStateChanged, Payload: events.StateChangedPayload{From: "awaiting_handshake", To: "connected", Region: "Fidelis"}})

	text := out.String()
	for _, want := range []string{
		"Wulfie Reanimator: hello\n",
		"Wulfie Reanimator waves\n",
		"[IM] Bot (",
		"* connected to Fidelis\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Count(text, "Bot") != 1 {
		t.Errorf("typing indicator printed:\n%s", text)
	}
}

func TestFormatChat(t *testing.T) {
	tests := []struct {
		name     string
		payload  events.ChatPayload
		expected string
	}{
		{name: "Normal", payload: events.ChatPayload{FromName: "A", Message: "hi", ChatType: events.ChatNormal}, expected: "A: hi"},
		{name: "Shout", payload: events.ChatPayload{FromName: "A", Message: "hi", ChatType: events.ChatShout}, expected: "A shouts: hi"},
		{name: "Whisper", payload: events.ChatPayload{FromName: "A", Message: "hi", ChatType: events.ChatWhisper}, expected: "A whispers: hi"},
		{name: "Emote", payload: events.ChatPayload{FromName: "A", Message: "/me sits", ChatType: events.ChatShout}, expected: "A sits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatChat(tt.payload); got != tt.expected {
				t.Errorf("FormatChat = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintStatus(&buf, circuit.Status{
		State:  circuit.StateDisconnected,
		Region: "Fidelis",
		Reason: circuit.ReasonPeerDisconnect,
		Detail: "kicked: bye",
	})
	for _, want := range []string{"disconnected", "Fidelis", "peer_disconnect", "kicked: bye"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("status table missing %q:\n%s", want, buf.String())
		}
	}
}

func TestPrintCatalog(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	PrintCatalog(&buf, cat, "PacketAck", "NoSuchMessage")
	text := buf.String()
	if !strings.Contains(text, "PacketAck") || !strings.Contains(text, "0xFFFFFFFB") {
		t.Errorf("catalog table:\n%s", text)
	}
	if !strings.Contains(text, "Unknown message: NoSuchMessage") {
		t.Errorf("missing unknown notice:\n%s", text)
	}
}
