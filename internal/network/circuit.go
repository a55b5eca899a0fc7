// Package network opens the UDP socket a circuit runs over.
package network

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"github.com/simlink-project/simlink/internal/util"
)

// CircuitDialer returns a net.Dialer that sizes the socket receive buffer
// before the socket is connected. A size of zero keeps the OS default.
func CircuitDialer(receiveBuffer int) *net.Dialer {
	d := &net.Dialer{}
	if receiveBuffer > 0 {
		d.Control = func(network, address string, c syscall.RawConn) error {
			return setReceiveBuffer(c, receiveBuffer)
		}
	}
	return d
}

// DialCircuit opens a connected UDP socket to the simulator at addr.
func DialCircuit(ctx context.Context, addr string, receiveBuffer int) (*net.UDPConn, error) {
	conn, err := CircuitDialer(receiveBuffer).DialContext(ctx, "udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open circuit to %s: %w", addr, err)
	}

	udp, ok := conn.(*net.UDPConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("circuit to %s is not a UDP socket", addr)
	}

	logger := util.ComponentLogger("network")
	logger.Debug().
		Str("local", udp.LocalAddr().String()).
		Str("remote", addr).
		Int("rcvbuf", receiveBuffer).
		Msg("circuit socket open")
	return udp, nil
}
