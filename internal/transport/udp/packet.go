// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"math"
	"time"

	"spectro/internal/transport"
)

/*
Position packet layout (big-endian):

	+----------+-----------+-------+---------+-------+
	| sequence | timestamp | frame | seconds | flags |
	|  uint32  |   int64   | int64 | float64 | uint8 |
	+----------+-----------+-------+---------+-------+

timestamp is nanoseconds since the Unix epoch; flags bit 0 is set while
playing.
*/
const PacketSize = 4 + 8 + 8 + 8 + 1

const flagPlaying = 1

// ErrShortPacket is returned by ParsePacket for truncated input.
var ErrShortPacket = errors.New("udp: short position packet")

// AppendPacket appends the wire form of m to dst.
func AppendPacket(dst []byte, m *transport.PositionMessage) []byte {
	var flags byte
	if m.Playing {
		flags |= flagPlaying
	}
	dst = binary.BigEndian.AppendUint32(dst, m.Sequence)
	dst = binary.BigEndian.AppendUint64(dst, uint64(m.Sent.UnixNano()))
	dst = binary.BigEndian.AppendUint64(dst, uint64(m.Frame))
	dst = binary.BigEndian.AppendUint64(dst, math.Float64bits(m.Seconds))
	return append(dst, flags)
}

// ParsePacket decodes a packet produced by AppendPacket.
func ParsePacket(b []byte) (*transport.PositionMessage, error) {
	if len(b) < PacketSize {
		return nil, ErrShortPacket
	}
	return &transport.PositionMessage{
		Type:     transport.TypePosition,
		Sequence: binary.BigEndian.Uint32(b[0:]),
		Sent:     time.Unix(0, int64(binary.BigEndian.Uint64(b[4:]))),
		Frame:    int64(binary.BigEndian.Uint64(b[12:])),
		Seconds:  math.Float64frombits(binary.BigEndian.Uint64(b[20:])),
		Playing:  b[28]&flagPlaying != 0,
	}, nil
}
