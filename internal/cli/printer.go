package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/simlink-project/simlink/internal/catalog"
	"github.com/simlink-project/simlink/internal/circuit"
	"github.com/simlink-project/simlink/internal/events"
)

// FormatChat renders a chat line the way viewers do: emotes drop the colon.
func FormatChat(p events.ChatPayload) string {
	if rest, ok := strings.CutPrefix(p.Message, "/me "); ok {
		return fmt.Sprintf("%s %s", p.FromName, rest)
	}
	switch p.ChatType {
	case events.ChatShout:
		return fmt.Sprintf("%s shouts: %s", p.FromName, p.Message)
	case events.ChatWhisper:
		return fmt.Sprintf("%s whispers: %s", p.FromName, p.Message)
	}
	return fmt.Sprintf("%s: %s", p.FromName, p.Message)
}

// FormatInstantMessage renders an IM. Non-message dialogs are tagged with
// their kind.
func FormatInstantMessage(p events.InstantMessagePayload) string {
	switch p.Dialog {
	case events.DialogIM, events.DialogSessionSendMessage:
		prefix := "IM"
		if p.Offline {
			prefix = "Offline IM"
		}
		return fmt.Sprintf("[%s] %s (%s): %s", prefix, p.FromName, p.FromAgentID, p.Message)
	default:
		return fmt.Sprintf("[IM %s] %s: %s", p.Dialog, p.FromName, p.Message)
	}
}

func (c *Console) onChat(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.ChatPayload)
	if !ok || p.Message == "" {
		return nil
	}
	c.printf("%s\n", FormatChat(p))
	return nil
}

func (c *Console) onInstantMessage(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.InstantMessagePayload)
	if !ok {
		return nil
	}
	if p.Dialog == events.DialogTypingStarted || p.Dialog == events.DialogTypingStopped {
		return nil
	}
	c.printf("%s\n", FormatInstantMessage(p))
	return nil
}

func (c *Console) onStateChanged(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.StateChangedPayload)
	if !ok {
		return nil
	}
	if p.Region != "" && p.To == circuit.StateConnected.String() {
		c.printf("* connected to %s\n", p.Region)
		return nil
	}
	c.printf("* %s -> %s\n", p.From, p.To)
	return nil
}

func (c *Console) onNameResolved(ctx context.Context, event events.Event) error {
	if p, ok := event.Payload.(events.NameResolvedPayload); ok {
		c.printf("* you are %s %s\n", p.FirstName, p.LastName)
	}
	return nil
}

func (c *Console) onIdle(ctx context.Context, event events.Event) error {
	if p, ok := event.Payload.(events.IdlePayload); ok {
		c.printf("* no traffic from the simulator for %s\n", p.Silence.Round(time.Second))
	}
	return nil
}

// PrintStatus writes the circuit snapshot as a two-column table.
func PrintStatus(w io.Writer, st circuit.Status) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Field", "Value"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	rows := [][]string{
		{"State", st.State.String()},
		{"Region", dash(st.Region)},
		{"Simulator", dash(st.SimAddr)},
		{"Agent", dash(st.AgentName)},
		{"Agent ID", st.AgentID.String()},
		{"Circuit code", fmt.Sprintf("%d", st.CircuitCode)},
		{"Sequence", fmt.Sprintf("%d", st.Sequence)},
		{"Packets in", fmt.Sprintf("%d", st.PacketsIn)},
		{"Packets out", fmt.Sprintf("%d", st.PacketsOut)},
		{"State since", formatTime(st.StateSince)},
		{"Last received", formatTime(st.LastReceived)},
	}
	if st.Reason != circuit.ReasonNone {
		rows = append(rows, []string{"Reason", st.Reason.String()}, []string{"Detail", dash(st.Detail)})
	}
	tw.AppendBulk(rows)
	tw.Render()
}

// PrintCatalog writes catalog entries as a table. With names given, only
// those entries are listed.
func PrintCatalog(w io.Writer, cat *catalog.Catalog, names ...string) {
	entries := cat.Entries()
	if len(names) > 0 {
		entries = entries[:0:0]
		for _, name := range names {
			if e, err := cat.Lookup(name); err == nil {
				entries = append(entries, e)
			} else {
				fmt.Fprintf(w, "Unknown message: %s\n", name)
			}
		}
		if len(entries) == 0 {
			return
		}
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Name", "Frequency", "Number", "Value", "Trusted", "Zerocoded"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, e := range entries {
		tw.Append([]string{
			e.Name,
			e.ID.Frequency.String(),
			fmt.Sprintf("%d", e.ID.Number),
			fmt.Sprintf("0x%08X", e.ID.Value()),
			fmt.Sprintf("%v", e.Trusted),
			fmt.Sprintf("%v", e.Zerocoded),
		})
	}
	tw.Render()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
