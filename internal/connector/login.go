// Package connector implements the external services a circuit depends on:
// the XML-RPC login service that exchanges credentials for circuit
// parameters.
package connector

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kolo/xmlrpc"
	"github.com/rs/zerolog"

	"github.com/simlink-project/simlink/internal/config"
	"github.com/simlink-project/simlink/internal/protocol"
	"github.com/simlink-project/simlink/internal/util"
)

const (
	loginMethod  = "login_to_simulator"
	loginTimeout = 60 * time.Second
)

// ErrLoginRejected is wrapped by every *RejectedError.
var ErrLoginRejected = errors.New("login rejected")

// ErrMalformedReply is returned when the service accepted the login but the
// reply lacks usable circuit parameters.
var ErrMalformedReply = errors.New("malformed login reply")

// RejectedError is returned when the login service answered but refused the
// credentials or the session.
type RejectedError struct {
	Reason  string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("login rejected (%s): %s", e.Reason, e.Message)
}

func (e *RejectedError) Unwrap() error {
	return ErrLoginRejected
}

// LoginResponse holds the circuit parameters handed out by the login service.
type LoginResponse struct {
	SimIP           string
	SimPort         int
	CircuitCode     uint32
	SessionID       uuid.UUID
	SecureSessionID uuid.UUID
	AgentID         uuid.UUID
	FirstName       string
	LastName        string
	SeedCapability  string
	Message         string
}

// SimAddr returns the simulator's UDP address as host:port.
func (r *LoginResponse) SimAddr() string {
	return net.JoinHostPort(r.SimIP, strconv.Itoa(r.SimPort))
}

// LoginClient calls login_to_simulator on the configured grid.
type LoginClient struct {
	login     config.LoginConfig
	system    util.SystemInfo
	transport http.RoundTripper
	logger    zerolog.Logger
}

// NewLoginClient creates a login client. A nil transport uses a default
// HTTP transport.
func NewLoginClient(login config.LoginConfig, system util.SystemInfo, transport http.RoundTripper) *LoginClient {
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSHandshakeTimeout: 15 * time.Second,
			IdleConnTimeout:     30 * time.Second,
		}
	}
	return &LoginClient{
		login:     login,
		system:    system,
		transport: transport,
		logger:    util.ComponentLogger("login"),
	}
}

// PasswordDigest renders a password the way the login service expects it:
// "$1$" followed by the hex MD5 of the plain password.
func PasswordDigest(password string) string {
	sum := md5.Sum([]byte(password))
	return "$1$" + hex.EncodeToString(sum[:])
}

// Params builds the login_to_simulator request struct.
func (c *LoginClient) Params(password string) map[string]interface{} {
	return map[string]interface{}{
		"first":         c.login.FirstName,
		"last":          c.login.LastName,
		"passwd":        PasswordDigest(password),
		"start":         c.login.Start,
		"channel":       c.login.Channel,
		"version":       c.login.Version,
		"platform":      c.system.Platform.LoginCode(),
		"mac":           "",
		"id0":           c.system.HardwareDigest(),
		"viewer_digest": "",
		"agree_to_tos":  "true",
		"options":       []interface{}{},
	}
}

// Login exchanges the configured account and password for circuit
// parameters. Network failures are transport errors; a refusal from the
// service is a *RejectedError and an unusable acceptance wraps
// ErrMalformedReply.
func (c *LoginClient) Login(ctx context.Context, password string) (*LoginResponse, error) {
	client, err := xmlrpc.NewClient(c.login.URI, c.transport)
	if err != nil {
		return nil, protocol.WrapError(protocol.KindTransport, err, "login client for %s", c.login.URI)
	}
	defer client.Close()

	c.logger.Info().
		Str("uri", c.login.URI).
		Str("first", c.login.FirstName).
		Str("last", c.login.LastName).
		Msg("logging in")

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	var reply map[string]interface{}
	call := client.Go(loginMethod, c.Params(password), &reply, nil)
	select {
	case <-ctx.Done():
		return nil, protocol.WrapError(protocol.KindTransport, ctx.Err(), "login request to %s", c.login.URI)
	case <-call.Done:
	}
	if call.Error != nil {
		return nil, protocol.WrapError(protocol.KindTransport, call.Error, "login request to %s", c.login.URI)
	}

	resp, err := parseLoginReply(reply)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("sim", resp.SimAddr()).
		Str("agent_id", resp.AgentID.String()).
		Uint32("circuit_code", resp.CircuitCode).
		Msg("login accepted")
	return resp, nil
}

func parseLoginReply(reply map[string]interface{}) (*LoginResponse, error) {
	if str(reply, "login") != "true" {
		reason := str(reply, "reason")
		if reason == "" {
			reason = "unknown"
		}
		return nil, &RejectedError{Reason: reason, Message: str(reply, "message")}
	}

	resp, err := acceptedReply(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}
	return resp, nil
}

func acceptedReply(reply map[string]interface{}) (*LoginResponse, error) {
	resp := &LoginResponse{
		SimIP:          str(reply, "sim_ip"),
		FirstName:      strings.Trim(str(reply, "first_name"), `"`),
		LastName:       str(reply, "last_name"),
		SeedCapability: str(reply, "seed_capability"),
		Message:        str(reply, "message"),
	}

	port, err := num(reply, "sim_port")
	if err != nil {
		return nil, err
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("login reply sim_port %d out of range", port)
	}
	resp.SimPort = int(port)

	code, err := num(reply, "circuit_code")
	if err != nil {
		return nil, err
	}
	resp.CircuitCode = uint32(code)

	if net.ParseIP(resp.SimIP) == nil {
		return nil, fmt.Errorf("login reply sim_ip %q is not an IP address", resp.SimIP)
	}
	if resp.SessionID, err = uuid.Parse(str(reply, "session_id")); err != nil {
		return nil, fmt.Errorf("login reply session_id: %w", err)
	}
	if resp.AgentID, err = uuid.Parse(str(reply, "agent_id")); err != nil {
		return nil, fmt.Errorf("login reply agent_id: %w", err)
	}
	if s := str(reply, "secure_session_id"); s != "" {
		resp.SecureSessionID, _ = uuid.Parse(s)
	}
	return resp, nil
}

func str(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// num reads an integer member that may arrive as <int> or as a string.
func num(m map[string]interface{}, key string) (int64, error) {
	switch v := m[key].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("login reply %s: %w", key, err)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("login reply missing %s", key)
	default:
		return 0, fmt.Errorf("login reply %s has type %T", key, v)
	}
}
