package circuit

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simlink-project/simlink/internal/events"
)

// MaxTextLength bounds chat and IM text accepted from the user.
const MaxTextLength = 1023

var (
	// ErrQueueFull is returned by Submit when the engine has not drained
	// earlier intents yet.
	ErrQueueFull = errors.New("intent queue full")
	// ErrCircuitClosed is returned by Submit once the engine has stopped.
	ErrCircuitClosed = errors.New("circuit closed")
)

// IntentKind is what the user asked the engine to do.
type IntentKind int

const (
	IntentChat IntentKind = iota
	IntentInstantMessage
	IntentLogout
)

func (k IntentKind) String() string {
	switch k {
	case IntentChat:
		return "chat"
	case IntentInstantMessage:
		return "instant_message"
	case IntentLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// Intent is one user request queued for the receive loop.
type Intent struct {
	Kind     IntentKind
	Text     string
	Channel  int32
	ChatType events.ChatType
	To       uuid.UUID
}

// ChatIntent says text on the given channel at normal volume.
func ChatIntent(text string, channel int32) Intent {
	return Intent{Kind: IntentChat, Text: text, Channel: channel, ChatType: events.ChatNormal}
}

// InstantMessageIntent sends a plain IM to another agent.
func InstantMessageIntent(to uuid.UUID, text string) Intent {
	return Intent{Kind: IntentInstantMessage, To: to, Text: text}
}

// LogoutIntent asks the simulator to end the session.
func LogoutIntent() Intent {
	return Intent{Kind: IntentLogout}
}

// Validate rejects intents that could not be encoded.
func (i Intent) Validate() error {
	switch i.Kind {
	case IntentChat:
		if i.Text == "" {
			return fmt.Errorf("chat text is empty")
		}
	case IntentInstantMessage:
		if i.Text == "" {
			return fmt.Errorf("message text is empty")
		}
		if i.To == uuid.Nil {
			return fmt.Errorf("recipient is required")
		}
	case IntentLogout:
		return nil
	default:
		return fmt.Errorf("unknown intent kind %d", i.Kind)
	}
	if len(i.Text) > MaxTextLength {
		return fmt.Errorf("text of %d bytes exceeds %d", len(i.Text), MaxTextLength)
	}
	return nil
}

// Submit queues an intent without blocking. The receive loop drains the
// queue between reads.
func (e *Engine) Submit(in Intent) error {
	if err := in.Validate(); err != nil {
		return err
	}
	select {
	case <-e.done:
		return ErrCircuitClosed
	default:
	}
	select {
	case e.intents <- in:
		return nil
	default:
		return ErrQueueFull
	}
}
