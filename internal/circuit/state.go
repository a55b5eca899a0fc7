// Package circuit runs one UDP session with a region simulator: it opens the
// circuit, completes the region handshake, acknowledges reliable traffic,
// answers keep-alive probes and turns chat and instant messages into events.
package circuit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of a circuit.
type State int

const (
	StateDisconnected State = iota
	StateCircuitOpen
	StateAwaitingHandshake
	StateConnected
)

var stateStrings = map[State]string{
	StateDisconnected:      "disconnected",
	StateCircuitOpen:       "circuit_open",
	StateAwaitingHandshake: "awaiting_handshake",
	StateConnected:         "connected",
}

func (s State) String() string {
	if str, ok := stateStrings[s]; ok {
		return str
	}
	return "unknown"
}

// MarshalJSON serializes State as a JSON string (e.g. "connected").
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Live reports whether datagrams are being exchanged.
func (s State) Live() bool {
	return s != StateDisconnected
}

// DisconnectReason is why a circuit ended.
type DisconnectReason int

const (
	ReasonNone DisconnectReason = iota
	ReasonLocalLogout
	ReasonPeerDisconnect
	ReasonTransportFailure
)

var reasonStrings = map[DisconnectReason]string{
	ReasonNone:             "none",
	ReasonLocalLogout:      "local_logout",
	ReasonPeerDisconnect:   "peer_disconnect",
	ReasonTransportFailure: "transport_failure",
}

func (r DisconnectReason) String() string {
	if s, ok := reasonStrings[r]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON serializes DisconnectReason as a JSON string.
func (r DisconnectReason) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// Session holds the parameters handed out by the login service.
type Session struct {
	AgentID     uuid.UUID
	SessionID   uuid.UUID
	CircuitCode uint32
	SimAddr     string
}

// Status is a point-in-time snapshot of a circuit.
type Status struct {
	State        State            `json:"state"`
	Reason       DisconnectReason `json:"reason"`
	Detail       string           `json:"detail,omitempty"`
	Region       string           `json:"region,omitempty"`
	SimAddr      string           `json:"sim_addr"`
	AgentID      uuid.UUID        `json:"agent_id"`
	AgentName    string           `json:"agent_name,omitempty"`
	CircuitCode  uint32           `json:"circuit_code"`
	Sequence     uint32           `json:"sequence"`
	PacketsIn    uint64           `json:"packets_in"`
	PacketsOut   uint64           `json:"packets_out"`
	StateSince   time.Time        `json:"state_since"`
	LastReceived time.Time        `json:"last_received,omitempty"`
}

// tracker is the thread-safe state read by the API and console while the
// receive loop mutates it.
type tracker struct {
	mu     sync.RWMutex
	status Status
}

func newTracker(s Session) *tracker {
	return &tracker{status: Status{
		State:       StateDisconnected,
		SimAddr:     s.SimAddr,
		AgentID:     s.AgentID,
		CircuitCode: s.CircuitCode,
		StateSince:  time.Now(),
	}}
}

// setState records a transition and returns the previous state.
func (t *tracker) setState(state State) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.status.State
	t.status.State = state
	t.status.StateSince = time.Now()
	return old
}

func (t *tracker) state() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status.State
}

func (t *tracker) update(fn func(s *Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.status)
}

func (t *tracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
