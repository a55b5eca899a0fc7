// Package events defines the application events a circuit emits and the
// typed payloads and enumerations they carry.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event emitted through the EventBus.
type EventType string

const (
	// Circuit lifecycle
	EventStateChanged EventType = "state_changed"
	EventDisconnected EventType = "disconnected"
	EventIdle         EventType = "idle"

	// Application messages
	EventChat           EventType = "chat"
	EventInstantMessage EventType = "instant_message"
	EventNameResolved   EventType = "name_resolved"

	// Process
	EventShutdown EventType = "shutdown"
)

// Event represents a single event in the system.
type Event struct {
	Type    EventType   `json:"type"`
	Source  string      `json:"source"`
	Time    time.Time   `json:"time"`
	Payload interface{} `json:"payload"`
}

// Dialog is the kind of an instant message.
type Dialog uint8

const (
	DialogIM                           Dialog = 0
	DialogNotificationOK               Dialog = 1
	DialogNotificationCountdown        Dialog = 2
	DialogGroupInvite                  Dialog = 3
	DialogInventoryOffer               Dialog = 4
	DialogInventoryOfferAccepted       Dialog = 5
	DialogInventoryOfferDeclined       Dialog = 6
	DialogGroupMessageToAll            Dialog = 8
	DialogObjectInventoryOffer         Dialog = 9
	DialogObjectInventoryOfferAccepted Dialog = 10
	DialogObjectInventoryOfferDeclined Dialog = 11
	DialogSessionInvite                Dialog = 13
	DialogSessionInviteP2P             Dialog = 14
	DialogSessionStartGroup            Dialog = 15
	DialogSessionStartConference       Dialog = 16
	DialogSessionSendMessage           Dialog = 17
	DialogSessionLeave                 Dialog = 18
	DialogFromObject                   Dialog = 19
	DialogAutoResponse                 Dialog = 20
	DialogShowInConsoleHistory         Dialog = 21
	DialogTeleportOffer                Dialog = 22
	DialogTeleportResponseA            Dialog = 23
	DialogTeleportResponseB            Dialog = 24
	DialogNoEmail                      Dialog = 31
	DialogGroupAnnouncement            Dialog = 32
	DialogTypingStarted                Dialog = 41
	DialogTypingStopped                Dialog = 42
)

var dialogStrings = map[Dialog]string{
	DialogIM:                           "im",
	DialogNotificationOK:               "notification_ok",
	DialogNotificationCountdown:        "notification_countdown",
	DialogGroupInvite:                  "group_invite",
	DialogInventoryOffer:               "inventory_offer",
	DialogInventoryOfferAccepted:       "inventory_offer_accepted",
	DialogInventoryOfferDeclined:       "inventory_offer_declined",
	DialogGroupMessageToAll:            "group_message_to_all",
	DialogObjectInventoryOffer:         "object_inventory_offer",
	DialogObjectInventoryOfferAccepted: "object_inventory_offer_accepted",
	DialogObjectInventoryOfferDeclined: "object_inventory_offer_declined",
	DialogSessionInvite:                "session_invite",
	DialogSessionInviteP2P:             "session_invite_p2p",
	DialogSessionStartGroup:            "session_start_group",
	DialogSessionStartConference:       "session_start_conference",
	DialogSessionSendMessage:           "session_send_message",
	DialogSessionLeave:                 "session_leave",
	DialogFromObject:                   "im_from_object",
	DialogAutoResponse:                 "im_autoresponse",
	DialogShowInConsoleHistory:         "show_in_console_history",
	DialogTeleportOffer:                "teleport_offer",
	DialogTeleportResponseA:            "teleport_response_a",
	DialogTeleportResponseB:            "teleport_response_b",
	DialogNoEmail:                      "im_no_email",
	DialogGroupAnnouncement:            "im_group_announcement",
	DialogTypingStarted:                "im_typing_started",
	DialogTypingStopped:                "im_typing_stopped",
}

// String returns the lowercase name of the dialog kind.
func (d Dialog) String() string {
	if s, ok := dialogStrings[d]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON serializes Dialog as a JSON string (e.g. "im").
func (d Dialog) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// ChatType is how loudly a local chat line was spoken.
type ChatType uint8

const (
	ChatWhisper     ChatType = 0
	ChatNormal      ChatType = 1
	ChatShout       ChatType = 2
	ChatSay         ChatType = 3
	ChatStartTyping ChatType = 4
	ChatStopTyping  ChatType = 5
	ChatDebug       ChatType = 6
	ChatOwnerSay    ChatType = 8
)

var chatTypeStrings = map[ChatType]string{
	ChatWhisper:     "whisper",
	ChatNormal:      "normal",
	ChatShout:       "shout",
	ChatSay:         "say",
	ChatStartTyping: "start_typing",
	ChatStopTyping:  "stop_typing",
	ChatDebug:       "debug",
	ChatOwnerSay:    "owner_say",
}

func (c ChatType) String() string {
	if s, ok := chatTypeStrings[c]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON serializes ChatType as a JSON string (e.g. "shout").
func (c ChatType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// Typing reports whether the chat line is only a typing indicator.
func (c ChatType) Typing() bool {
	return c == ChatStartTyping || c == ChatStopTyping
}

// ChatSourceType is what produced a local chat line.
type ChatSourceType uint8

const (
	SourceSystem ChatSourceType = 0
	SourceAgent  ChatSourceType = 1
	SourceObject ChatSourceType = 2
)

var sourceTypeStrings = map[ChatSourceType]string{
	SourceSystem: "system",
	SourceAgent:  "agent",
	SourceObject: "object",
}

func (s ChatSourceType) String() string {
	if str, ok := sourceTypeStrings[s]; ok {
		return str
	}
	return "unknown"
}

// MarshalJSON serializes ChatSourceType as a JSON string (e.g. "agent").
func (s ChatSourceType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// ChatAudible is how well the local agent heard a chat line. It travels as
// an unsigned byte, so "not audible" arrives as 0xFF.
type ChatAudible int8

const (
	AudibleNot    ChatAudible = -1
	AudibleBarely ChatAudible = 0
	AudibleFully  ChatAudible = 1
)

var audibleStrings = map[ChatAudible]string{
	AudibleNot:    "not",
	AudibleBarely: "barely",
	AudibleFully:  "fully",
}

func (a ChatAudible) String() string {
	if s, ok := audibleStrings[a]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON serializes ChatAudible as a JSON string (e.g. "fully").
func (a ChatAudible) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// StateChangedPayload is emitted on every circuit state transition.
type StateChangedPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Region string `json:"region,omitempty"`
}

// DisconnectedPayload is emitted once when a circuit ends.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// IdlePayload is emitted when no datagram arrived for the idle timeout.
type IdlePayload struct {
	Silence time.Duration `json:"silence"`
}

// ChatPayload is a decoded local chat line.
type ChatPayload struct {
	FromName   string         `json:"from_name"`
	SourceID   uuid.UUID      `json:"source_id"`
	OwnerID    uuid.UUID      `json:"owner_id"`
	SourceType ChatSourceType `json:"source_type"`
	ChatType   ChatType       `json:"chat_type"`
	Audible    ChatAudible    `json:"audible"`
	Position   [3]float32     `json:"position"`
	Message    string         `json:"message"`
}

// InstantMessagePayload is a decoded instant message.
type InstantMessagePayload struct {
	FromAgentID uuid.UUID  `json:"from_agent_id"`
	ToAgentID   uuid.UUID  `json:"to_agent_id"`
	SessionID   uuid.UUID  `json:"session_id"`
	FromName    string     `json:"from_name"`
	Message     string     `json:"message"`
	Dialog      Dialog     `json:"dialog"`
	Offline     bool       `json:"offline"`
	FromGroup   bool       `json:"from_group"`
	Position    [3]float32 `json:"position"`
	Timestamp   uint32     `json:"timestamp"`
}

// NameResolvedPayload carries the display name of an agent.
type NameResolvedPayload struct {
	AgentID   uuid.UUID `json:"agent_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}
