// Package cli implements the interactive console of a running circuit. Plain
// input lines are spoken in local chat; lines starting with '/' are commands.
// Received chat, instant messages and state changes are printed as they
// arrive.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/simlink-project/simlink/internal/catalog"
	"github.com/simlink-project/simlink/internal/circuit"
	"github.com/simlink-project/simlink/internal/events"
)

// Circuit is the part of the engine the console drives.
type Circuit interface {
	Status() circuit.Status
	Submit(in circuit.Intent) error
	Catalog() *catalog.Catalog
}

// Console reads intents from in and prints events to out.
type Console struct {
	circuit Circuit
	bus     *events.EventBus
	in      io.Reader

	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a console handler.
func NewConsole(c Circuit, bus *events.EventBus, in io.Reader, out io.Writer) *Console {
	return &Console{
		circuit: c,
		bus:     bus,
		in:      in,
		out:     out,
	}
}

// Subscribe registers the console's event printers.
func (c *Console) Subscribe() {
	c.bus.Subscribe(events.EventChat, "cli.chat", c.onChat)
	c.bus.Subscribe(events.EventInstantMessage, "cli.im", c.onInstantMessage)
	c.bus.Subscribe(events.EventStateChanged, "cli.state", c.onStateChanged)
	c.bus.Subscribe(events.EventNameResolved, "cli.name", c.onNameResolved)
	c.bus.Subscribe(events.EventIdle, "cli.idle", c.onIdle)
}

// Start reads lines until ctx is cancelled, the input ends or the user quits.
func (c *Console) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.printf("simlink console ready. Type /help for commands.\n")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn().Err(err).Msg("CLI: input error")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			quit, err := c.execute(line)
			if err != nil {
				c.printf("Error: %v\n", err)
			}
			if quit {
				return
			}
		}
	}
}

// execute handles one input line. It reports true once the user asked to
// leave.
func (c *Console) execute(line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") || strings.HasPrefix(line, "/me ") {
		return false, c.circuit.Submit(circuit.ChatIntent(line, 0))
	}

	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help", "/h", "/?":
		c.printHelp()
	case "/status", "/s":
		c.withOutput(func(w io.Writer) { PrintStatus(w, c.circuit.Status()) })
	case "/catalog":
		c.withOutput(func(w io.Writer) { PrintCatalog(w, c.circuit.Catalog(), args...) })
	case "/im":
		return false, c.cmdInstantMessage(line, args)
	case "/shout":
		return false, c.cmdChat(args, events.ChatShout)
	case "/whisper":
		return false, c.cmdChat(args, events.ChatWhisper)
	case "/quit", "/exit", "/q", "/logout":
		c.printf("Logging out...\n")
		return true, c.circuit.Submit(circuit.LogoutIntent())
	default:
		c.printf("Unknown command: '%s'. Type /help for available commands.\n", cmd)
	}
	return false, nil
}

func (c *Console) cmdInstantMessage(line string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: /im <agent-uuid> <message>")
	}
	to, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid agent id: %s", args[0])
	}
	text := strings.TrimSpace(line[strings.Index(line, args[0])+len(args[0]):])
	return c.circuit.Submit(circuit.InstantMessageIntent(to, text))
}

func (c *Console) cmdChat(args []string, chatType events.ChatType) error {
	if len(args) == 0 {
		return fmt.Errorf("message text required")
	}
	in := circuit.ChatIntent(strings.Join(args, " "), 0)
	in.ChatType = chatType
	return c.circuit.Submit(in)
}

func (c *Console) printHelp() {
	c.withOutput(func(w io.Writer) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  <text>                  Say text in local chat")
		fmt.Fprintln(w, "  /shout <text>           Shout text")
		fmt.Fprintln(w, "  /whisper <text>         Whisper text")
		fmt.Fprintln(w, "  /im <uuid> <text>       Send an instant message")
		fmt.Fprintln(w, "  /status                 Show circuit status")
		fmt.Fprintln(w, "  /catalog [name...]      List message definitions")
		fmt.Fprintln(w, "  /quit                   Log out and exit")
		fmt.Fprintln(w, "  /help                   Show this help message")
		fmt.Fprintln(w)
	})
}

func (c *Console) printf(format string, args ...interface{}) {
	c.withOutput(func(w io.Writer) { fmt.Fprintf(w, format, args...) })
}

func (c *Console) withOutput(fn func(w io.Writer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.out)
}
