package circuit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/simlink-project/simlink/internal/catalog"
	"github.com/simlink-project/simlink/internal/config"
	"github.com/simlink-project/simlink/internal/events"
	"github.com/simlink-project/simlink/internal/protocol"
	"github.com/simlink-project/simlink/internal/util"
)

const (
	eventSource = "circuit"

	defaultPollInterval = 250 * time.Millisecond
	defaultQueueSize    = 32

	// LogoutGrace is how long the engine waits for LogoutReply after sending
	// LogoutRequest.
	LogoutGrace = 5 * time.Second
)

// Conn is the datagram socket an engine owns. *net.UDPConn satisfies it.
type Conn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Options carries the engine's collaborators.
type Options struct {
	Catalog *catalog.Catalog
	Bus     *events.EventBus
	Metrics *Metrics
	Circuit config.CircuitConfig

	// AgentName is the display name used on outgoing IMs until the
	// simulator answers the name lookup.
	AgentName string
}

// Engine drives one circuit from establishment to disconnect. All socket
// I/O happens on the goroutine that calls Run.
type Engine struct {
	conn    Conn
	session Session
	catalog *catalog.Catalog
	bus     *events.EventBus
	metrics *Metrics
	cfg     config.CircuitConfig
	logger  zerolog.Logger

	tracker *tracker
	intents chan Intent
	done    chan struct{}
	started atomic.Bool

	// Owned by the receive loop.
	eventCtx       context.Context
	sequence       uint32
	lastReceived   time.Time
	idleReported   bool
	logoutDeadline time.Time
}

type termination struct {
	reason DisconnectReason
	detail string
}

// NewEngine creates an engine for an already associated socket.
func NewEngine(conn Conn, session Session, opts Options) (*Engine, error) {
	if conn == nil {
		return nil, errors.New("circuit requires a socket")
	}
	if opts.Catalog == nil {
		return nil, errors.New("circuit requires a message catalog")
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	queue := opts.Circuit.IntentQueueSize
	if queue <= 0 {
		queue = defaultQueueSize
	}

	t := newTracker(session)
	t.status.AgentName = opts.AgentName

	return &Engine{
		conn:    conn,
		session: session,
		catalog: opts.Catalog,
		bus:     opts.Bus,
		metrics: opts.Metrics,
		cfg:     opts.Circuit,
		logger: util.ComponentLogger("circuit").With().
			Str("sim", session.SimAddr).
			Uint32("circuit_code", session.CircuitCode).
			Logger(),
		tracker: t,
		intents: make(chan Intent, queue),
		done:    make(chan struct{}),
	}, nil
}

// Status returns a snapshot of the circuit.
func (e *Engine) Status() Status {
	return e.tracker.snapshot()
}

// Session returns the login parameters the circuit runs under.
func (e *Engine) Session() Session {
	return e.session
}

// Catalog returns the message catalog the engine resolves ids with.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Run opens the circuit and processes datagrams until the simulator ends
// the session, the user logs out, ctx is cancelled or the socket fails.
// Cancelling ctx sends LogoutRequest before returning. The socket is closed
// on return. A non-nil error means a transport failure or a message the
// engine itself failed to build.
func (e *Engine) Run(ctx context.Context) (DisconnectReason, error) {
	if !e.started.CompareAndSwap(false, true) {
		return ReasonNone, errors.New("circuit already started")
	}
	defer close(e.done)
	defer e.conn.Close()

	e.eventCtx = context.WithoutCancel(ctx)

	term, err := e.run(ctx)
	if err != nil {
		term = termination{reason: reasonFor(err), detail: err.Error()}
	}
	e.finish(term)
	return term.reason, err
}

func (e *Engine) run(ctx context.Context) (termination, error) {
	if err := e.open(); err != nil {
		return termination{}, err
	}

	buf := make([]byte, protocol.MaxDatagramSize)
	e.lastReceived = time.Now()

	for {
		if ctx.Err() != nil {
			if err := e.send(protocol.MsgLogoutRequest, logoutRequestBody(e.session), true); err != nil {
				e.logger.Warn().Err(err).Msg("failed to send logout on shutdown")
			}
			return termination{reason: ReasonLocalLogout, detail: "shutdown"}, nil
		}

		if err := e.drainIntents(); err != nil {
			return termination{}, err
		}
		if !e.logoutDeadline.IsZero() && time.Now().After(e.logoutDeadline) {
			return termination{reason: ReasonLocalLogout, detail: "no logout reply"}, nil
		}

		n, err := e.receive(buf)
		if err != nil {
			if isTimeout(err) {
				e.checkIdle()
				continue
			}
			return termination{}, protocol.WrapError(protocol.KindTransport, err, "receive from %s", e.session.SimAddr)
		}

		term, err := e.handleDatagram(buf[:n])
		if err != nil {
			return termination{}, err
		}
		if term != nil {
			return *term, nil
		}
	}
}

// open sends the circuit establishment sequence.
func (e *Engine) open() error {
	e.transition(StateCircuitOpen)

	if err := e.send(protocol.MsgUseCircuitCode, useCircuitCodeBody(e.session), true); err != nil {
		return err
	}
	if err := e.send(protocol.MsgCompleteAgentMovement, completeAgentMovementBody(e.session), true); err != nil {
		return err
	}
	if err := e.send(protocol.MsgUUIDNameRequest, uuidNameRequestBody(e.session.AgentID), true); err != nil {
		return err
	}

	e.transition(StateAwaitingHandshake)
	return nil
}

func (e *Engine) receive(buf []byte) (int, error) {
	poll := e.cfg.PollInterval()
	if poll <= 0 {
		poll = defaultPollInterval
	}
	if err := e.conn.SetReadDeadline(time.Now().Add(poll)); err != nil {
		return 0, err
	}
	return e.conn.Read(buf)
}

func (e *Engine) checkIdle() {
	timeout := e.cfg.IdleTimeout()
	if timeout <= 0 || e.idleReported {
		return
	}
	silence := time.Since(e.lastReceived)
	if silence < timeout {
		return
	}
	e.idleReported = true
	e.logger.Warn().Dur("silence", silence).Msg("no traffic from simulator")
	e.emit(events.EventIdle, events.IdlePayload{Silence: silence})
}

func (e *Engine) drainIntents() error {
	for {
		select {
		case in := <-e.intents:
			if err := e.perform(in); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (e *Engine) perform(in Intent) error {
	if in.Kind == IntentLogout {
		if !e.logoutDeadline.IsZero() {
			return nil
		}
		e.logger.Info().Msg("logging out")
		e.logoutDeadline = time.Now().Add(LogoutGrace)
		return e.send(protocol.MsgLogoutRequest, logoutRequestBody(e.session), true)
	}

	if st := e.tracker.state(); st != StateConnected {
		e.logger.Warn().
			Str("intent", in.Kind.String()).
			Str("state", st.String()).
			Msg("dropping intent before region handshake")
		return nil
	}

	switch in.Kind {
	case IntentChat:
		return e.send(protocol.MsgChatFromViewer, chatFromViewerBody(e.session, in.Text, in.ChatType, in.Channel), true)
	case IntentInstantMessage:
		name := e.tracker.snapshot().AgentName
		return e.send(protocol.MsgImprovedInstantMessage, instantMessageBody(e.session, name, in.To, in.Text, time.Now()), true)
	}
	return nil
}

// handleDatagram processes one inbound datagram. Malformed or unknown
// datagrams are logged and dropped; only a send failure returns an error.
func (e *Engine) handleDatagram(data []byte) (*termination, error) {
	e.lastReceived = time.Now()
	e.idleReported = false
	e.tracker.update(func(s *Status) {
		s.PacketsIn++
		s.LastReceived = e.lastReceived
	})

	pkt, err := protocol.ParsePacket(data)
	if err != nil {
		e.drop(err, "malformed datagram")
		return nil, nil
	}
	h := pkt.Header

	if h.Flags.Reliable() {
		if err := e.send(protocol.MsgPacketAck, packetAckBody(h.Sequence), false); err != nil {
			return nil, err
		}
		e.metrics.AcksSent.Inc()
	}
	if len(pkt.Acks) > 0 {
		e.logger.Debug().Interface("acks", pkt.Acks).Msg("appended acknowledgements")
	}

	name, err := e.catalog.NameFor(h.Message)
	if err != nil {
		e.metrics.Dropped.WithLabelValues(protocol.KindCatalog.String()).Inc()
		e.logger.Debug().
			Uint32("sequence", h.Sequence).
			Str("message", h.Message.String()).
			Msg("skipping unknown message")
		return nil, nil
	}

	e.metrics.PacketsReceived.WithLabelValues(name).Inc()
	e.logger.Trace().Str("header", h.String()).Str("message", name).Msg("received")

	return e.dispatch(name, pkt)
}

func (e *Engine) dispatch(name string, pkt *protocol.Packet) (*termination, error) {
	switch name {
	case protocol.MsgStartPingCheck:
		body, ok := e.decode(name, pkt)
		if !ok {
			return nil, nil
		}
		return nil, e.send(protocol.MsgCompletePingCheck, completePingCheckBody(body.U8("PingID")), false)

	case protocol.MsgRegionHandshake:
		return nil, e.onRegionHandshake(pkt)

	case protocol.MsgChatFromSimulator:
		if !e.expect(name, pkt, StateConnected) {
			return nil, nil
		}
		body, ok := e.decode(name, pkt)
		if !ok {
			return nil, nil
		}
		chat := chatPayload(body)
		if chat.ChatType.Typing() {
			return nil, nil
		}
		e.emit(events.EventChat, chat)

	case protocol.MsgImprovedInstantMessage:
		if !e.expect(name, pkt, StateConnected) {
			return nil, nil
		}
		body, ok := e.decode(name, pkt)
		if !ok {
			return nil, nil
		}
		e.emit(events.EventInstantMessage, instantMessagePayload(body))

	case protocol.MsgUUIDNameReply:
		if !e.expect(name, pkt, StateAwaitingHandshake, StateConnected) {
			return nil, nil
		}
		body, ok := e.decode(name, pkt)
		if !ok {
			return nil, nil
		}
		e.onNameReply(body)

	case protocol.MsgKickUser:
		detail := "kicked"
		if body, err := e.decodeBody(name, pkt); body != nil {
			if reason := body.Text("Reason"); reason != "" {
				detail = "kicked: " + reason
			}
		} else if err != nil {
			e.logger.Debug().Err(err).Msg("kick reason unreadable")
		}
		return &termination{reason: ReasonPeerDisconnect, detail: detail}, nil

	case protocol.MsgDisableSimulator:
		return &termination{reason: ReasonPeerDisconnect, detail: "simulator disabled"}, nil

	case protocol.MsgCloseCircuit:
		return &termination{reason: ReasonPeerDisconnect, detail: "circuit closed by simulator"}, nil

	case protocol.MsgLogoutReply:
		return &termination{reason: ReasonLocalLogout, detail: "logout confirmed"}, nil

	default:
		e.logger.Debug().Str("message", name).Uint32("sequence", pkt.Header.Sequence).Msg("unhandled message")
	}
	return nil, nil
}

// onRegionHandshake completes entry into the region. The trailing
// RegionInfo4 block cannot be decoded, so the reply depends only on the
// message identity.
func (e *Engine) onRegionHandshake(pkt *protocol.Packet) error {
	if !e.expect(protocol.MsgRegionHandshake, pkt, StateAwaitingHandshake) {
		return nil
	}

	region := ""
	body, err := e.decodeBody(protocol.MsgRegionHandshake, pkt)
	if body != nil {
		region = body.Text("SimName")
	}
	if err != nil {
		e.logger.Debug().Err(err).Str("region", region).Msg("region handshake decoded partially")
	}

	if err := e.send(protocol.MsgRegionHandshakeReply, regionHandshakeReplyBody(e.session), true); err != nil {
		return err
	}
	if err := e.send(protocol.MsgAgentUpdate, agentUpdateBody(e.session, e.cfg.DrawDistance), false); err != nil {
		return err
	}

	e.tracker.update(func(s *Status) { s.Region = region })
	e.transition(StateConnected)
	return nil
}

func (e *Engine) onNameReply(body *protocol.Body) {
	payload := events.NameResolvedPayload{
		AgentID:   body.UUID("ID"),
		FirstName: body.Text("FirstName"),
		LastName:  body.Text("LastName"),
	}
	if payload.AgentID == e.session.AgentID {
		name := payload.FirstName
		if payload.LastName != "" {
			name += " " + payload.LastName
		}
		e.tracker.update(func(s *Status) { s.AgentName = name })
	}
	e.emit(events.EventNameResolved, payload)
}

// expect reports whether the circuit is in one of states, logging a
// protocol-state error when it is not.
func (e *Engine) expect(name string, pkt *protocol.Packet, states ...State) bool {
	current := e.tracker.state()
	for _, s := range states {
		if s == current {
			return true
		}
	}
	e.drop(protocol.NewError(protocol.KindProtocolState, "%s unexpected in state %s", name, current), "ignoring message")
	return false
}

func (e *Engine) decodeBody(name string, pkt *protocol.Packet) (*protocol.Body, error) {
	schema, ok := protocol.LookupSchema(name)
	if !ok {
		return nil, protocol.NewError(protocol.KindSchema, "no layout for %s", name)
	}
	return protocol.DecodeBody(schema, pkt.Body)
}

// decode returns the full body, or false after logging when any field could
// not be decoded.
func (e *Engine) decode(name string, pkt *protocol.Packet) (*protocol.Body, bool) {
	body, err := e.decodeBody(name, pkt)
	if err != nil {
		e.drop(err, "dropping "+name)
		return nil, false
	}
	return body, true
}

func (e *Engine) drop(err error, msg string) {
	kind := protocol.KindOf(err)
	e.metrics.Dropped.WithLabelValues(kind.String()).Inc()
	e.logger.Warn().Err(err).Str("kind", kind.String()).Msg(msg)
}

// send encodes and writes one message. Encoding failures are returned as
// is; write failures are transport errors.
func (e *Engine) send(name string, body *protocol.Body, reliable bool) error {
	entry, err := e.catalog.Lookup(name)
	if err != nil {
		return err
	}
	schema, ok := protocol.LookupSchema(name)
	if !ok {
		return protocol.NewError(protocol.KindSchema, "no layout for %s", name)
	}
	payload, err := protocol.EncodeBody(schema, body)
	if err != nil {
		return err
	}

	var flags protocol.Flags
	if reliable {
		flags |= protocol.FlagReliable
	}
	if entry.Zerocoded {
		flags |= protocol.FlagZerocoded
	}

	e.sequence++
	data, err := protocol.EncodePacket(&protocol.Packet{
		Header: protocol.Header{Flags: flags, Sequence: e.sequence, Message: entry.ID},
		Body:   payload,
	})
	if err != nil {
		return err
	}
	if _, err := e.conn.Write(data); err != nil {
		return protocol.WrapError(protocol.KindTransport, err, "send %s", name)
	}

	seq := e.sequence
	e.tracker.update(func(s *Status) {
		s.PacketsOut++
		s.Sequence = seq
	})
	e.metrics.PacketsSent.WithLabelValues(name).Inc()
	e.logger.Trace().Uint32("sequence", seq).Str("message", name).Msg("sent")
	return nil
}

func (e *Engine) transition(to State) {
	from := e.tracker.setState(to)
	e.metrics.State.Set(float64(to))
	status := e.tracker.snapshot()

	e.logger.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Str("region", status.Region).
		Msg("circuit state changed")

	e.emit(events.EventStateChanged, events.StateChangedPayload{
		From:   from.String(),
		To:     to.String(),
		Region: status.Region,
	})
}

func (e *Engine) finish(term termination) {
	e.tracker.update(func(s *Status) {
		s.Reason = term.reason
		s.Detail = term.detail
	})
	e.transition(StateDisconnected)

	e.logger.Info().
		Str("reason", term.reason.String()).
		Str("detail", term.detail).
		Msg("circuit closed")

	e.emit(events.EventDisconnected, events.DisconnectedPayload{
		Reason: term.reason.String(),
		Detail: term.detail,
	})
}

func (e *Engine) emit(t events.EventType, payload interface{}) {
	if e.bus == nil {
		return
	}
	ctx := e.eventCtx
	if ctx == nil {
		ctx = context.Background()
	}
	e.bus.Emit(ctx, events.Event{Type: t, Source: eventSource, Payload: payload})
}

func reasonFor(err error) DisconnectReason {
	if protocol.IsKind(err, protocol.KindTransport) {
		return ReasonTransportFailure
	}
	return ReasonNone
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Describe renders a one-line summary of how a circuit ended.
func Describe(st Status, err error) string {
	switch {
	case err != nil && st.Reason == ReasonTransportFailure:
		return fmt.Sprintf("network failure: %v", err)
	case err != nil:
		return fmt.Sprintf("circuit error: %v", err)
	case st.Reason == ReasonPeerDisconnect:
		return "disconnected by simulator (" + st.Detail + ")"
	case st.Reason == ReasonLocalLogout:
		return "logged out (" + st.Detail + ")"
	default:
		return "disconnected"
	}
}
