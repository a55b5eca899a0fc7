package network

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestDialCircuitExchangesDatagrams(t *testing.T) {
	sim, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	tests := []struct {
		name   string
		rcvbuf int
	}{
		{name: "Default buffer", rcvbuf: 0},
		{name: "Sized buffer", rcvbuf: 1 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := DialCircuit(context.Background(), sim.LocalAddr().String(), tt.rcvbuf)
			if err != nil {
				t.Fatalf("DialCircuit failed: %v", err)
			}
			defer conn.Close()

			if _, err := conn.Write([]byte{0x40, 0, 0, 0, 1, 0}); err != nil {
				t.Fatal(err)
			}
			buf := make([]byte, 64)
			sim.SetReadDeadline(time.Now().Add(2 * time.Second))
			n, from, err := sim.ReadFromUDP(buf)
			if err != nil {
				t.Fatal(err)
			}
			if n != 6 {
				t.Errorf("simulator read %d bytes", n)
			}

			if _, err := sim.WriteToUDP([]byte{0x00, 0, 0, 0, 2, 0}, from); err != nil {
				t.Fatal(err)
			}
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			if n, err = conn.Read(buf); err != nil || n != 6 {
				t.Errorf("client read n=%d err=%v", n, err)
			}
		})
	}
}

func TestDialCircuitBadAddress(t *testing.T) {
	if _, err := DialCircuit(context.Background(), "not-an-address", 0); err == nil {
		t.Error("expected error for malformed address")
	}
}
