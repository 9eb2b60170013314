// SPDX-License-Identifier: MIT
// Package udp sends playhead positions as compact datagrams for external
// visualizers that cannot speak WebSocket.
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"spectro/internal/log"
	"spectro/internal/transport"
)

// Sender is a Transport that packs position messages into datagrams. Tile
// messages are larger than a datagram and are rejected with
// transport.ErrUnsupportedMessage.
type Sender struct {
	mu     sync.Mutex
	conn   *net.UDPConn
	packet []byte
	closed bool
}

var _ transport.Transport = (*Sender)(nil)

// NewSender dials target ("host:port").
func NewSender(target string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", target, err)
	}
	log.Infof("UDP Sender: sending positions to %s", conn.RemoteAddr())
	return &Sender{conn: conn, packet: make([]byte, 0, PacketSize)}, nil
}

func (s *Sender) Send(msg any) error {
	m, ok := msg.(*transport.PositionMessage)
	if !ok {
		return fmt.Errorf("%w: %T over UDP", transport.ErrUnsupportedMessage, msg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("UDP sender is closed")
	}
	s.packet = AppendPacket(s.packet[:0], m)
	if _, err := s.conn.Write(s.packet); err != nil {
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}
