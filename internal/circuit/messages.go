package circuit

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/simlink-project/simlink/internal/events"
	"github.com/simlink-project/simlink/internal/protocol"
)

// Axis-aligned camera and identity rotation sent with the first AgentUpdate.
var (
	identityRotation = [4]float32{0, 0, 0, 1}
	axisX            = [3]float32{1, 0, 0}
	axisY            = [3]float32{0, 1, 0}
	axisZ            = [3]float32{0, 0, 1}
)

// IMSessionID derives the session id an instant message travels under.
func IMSessionID(dialog events.Dialog, self, other uuid.UUID) uuid.UUID {
	if dialog != events.DialogIM {
		switch {
		case dialog == events.DialogSessionInvite || dialog == events.DialogSessionStartGroup:
			return other
		case self == other:
			return self
		case dialog == events.DialogSessionStartConference:
			return uuid.New()
		}
	}
	var id uuid.UUID
	for i := range id {
		id[i] = self[i] ^ other[i]
	}
	return id
}

// cstring renders text as the NUL-terminated bytes variable fields carry.
func cstring(s string) []byte {
	return append([]byte(s), 0)
}

// maxVariable1Text is the longest string that fits a Variable1 field
// together with its terminating NUL.
const maxVariable1Text = 254

// shortCString is cstring for Variable1 fields: s is cut to
// maxVariable1Text bytes without splitting a UTF-8 sequence.
func shortCString(s string) []byte {
	if len(s) > maxVariable1Text {
		cut := maxVariable1Text
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return cstring(s)
}

func useCircuitCodeBody(s Session) *protocol.Body {
	return protocol.NewBody().
		Set("Code", s.CircuitCode).
		Set("SessionID", s.SessionID).
		Set("ID", s.AgentID)
}

func completeAgentMovementBody(s Session) *protocol.Body {
	return protocol.NewBody().
		Set("AgentID", s.AgentID).
		Set("SessionID", s.SessionID).
		Set("CircuitCode", s.CircuitCode)
}

func uuidNameRequestBody(id uuid.UUID) *protocol.Body {
	return protocol.NewBody().
		Set("Count", uint8(1)).
		Set("ID", id)
}

func regionHandshakeReplyBody(s Session) *protocol.Body {
	return protocol.NewBody().
		Set("AgentID", s.AgentID).
		Set("SessionID", s.SessionID).
		Set("Flags", uint32(0))
}

func agentUpdateBody(s Session, drawDistance float32) *protocol.Body {
	return protocol.NewBody().
		Set("AgentID", s.AgentID).
		Set("SessionID", s.SessionID).
		Set("BodyRotation", identityRotation).
		Set("HeadRotation", identityRotation).
		Set("State", uint8(0)).
		Set("CameraCenter", [3]float32{}).
		Set("CameraAtAxis", axisX).
		Set("CameraLeftAxis", axisY).
		Set("CameraUpAxis", axisZ).
		Set("Far", drawDistance).
		Set("ControlFlags", uint32(0)).
		Set("Flags", uint8(0))
}

func packetAckBody(sequence uint32) *protocol.Body {
	return protocol.NewBody().
		Set("Count", uint8(1)).
		Set("ID", sequence)
}

func completePingCheckBody(pingID uint8) *protocol.Body {
	return protocol.NewBody().Set("PingID", pingID)
}

func chatFromViewerBody(s Session, text string, chatType events.ChatType, channel int32) *protocol.Body {
	return protocol.NewBody().
		Set("AgentID", s.AgentID).
		Set("SessionID", s.SessionID).
		Set("Message", cstring(text)).
		Set("Type", uint8(chatType)).
		Set("Channel", channel)
}

func instantMessageBody(s Session, fromName string, to uuid.UUID, text string, now time.Time) *protocol.Body {
	return protocol.NewBody().
		Set("AgentID", s.AgentID).
		Set("SessionID", s.SessionID).
		Set("FromGroup", false).
		Set("ToAgentID", to).
		Set("ParentEstateID", uint32(0)).
		Set("RegionID", uuid.Nil).
		Set("Position", [3]float32{}).
		Set("Offline", uint8(0)).
		Set("Dialog", uint8(events.DialogIM)).
		Set("ID", IMSessionID(events.DialogIM, s.AgentID, to)).
		Set("Timestamp", uint32(now.Unix())).
		Set("FromAgentName", shortCString(fromName)).
		Set("Message", cstring(text)).
		Set("BinaryBucket", []byte{})
}

func logoutRequestBody(s Session) *protocol.Body {
	return protocol.NewBody().
		Set("AgentID", s.AgentID).
		Set("SessionID", s.SessionID)
}

func chatPayload(b *protocol.Body) events.ChatPayload {
	return events.ChatPayload{
		FromName:   b.Text("FromName"),
		SourceID:   b.UUID("SourceID"),
		OwnerID:    b.UUID("OwnerID"),
		SourceType: events.ChatSourceType(b.U8("SourceType")),
		ChatType:   events.ChatType(b.U8("ChatType")),
		Audible:    events.ChatAudible(int8(b.U8("Audible"))),
		Position:   b.Vector3("Position"),
		Message:    b.Text("Message"),
	}
}

func instantMessagePayload(b *protocol.Body) events.InstantMessagePayload {
	return events.InstantMessagePayload{
		FromAgentID: b.UUID("AgentID"),
		ToAgentID:   b.UUID("ToAgentID"),
		SessionID:   b.UUID("ID"),
		FromName:    b.Text("FromAgentName"),
		Message:     b.Text("Message"),
		Dialog:      events.Dialog(b.U8("Dialog")),
		Offline:     b.U8("Offline") != 0,
		FromGroup:   b.Bool("FromGroup"),
		Position:    b.Vector3("Position"),
		Timestamp:   b.U32("Timestamp"),
	}
}
