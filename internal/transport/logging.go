// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"spectro/internal/log"
)

// LoggingTransport writes a one-line summary of each message to the debug
// log. It is used when no viewer transport is configured.
type LoggingTransport struct {
	sent atomic.Int64
}

var _ Transport = (*LoggingTransport)(nil)

func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: using logging transport")
	return &LoggingTransport{}
}

func (lt *LoggingTransport) Send(msg any) error {
	lt.sent.Add(1)
	switch m := msg.(type) {
	case *TileMessage:
		log.Debugf("Transport: tile d%d [%d,+%d) band [%.4f,%.4f) %d bytes",
			m.Depth, m.Start, m.Count, m.MinFreq, m.MaxFreq, len(m.PNG))
	case *PositionMessage:
		log.Debugf("Transport: position #%d frame %d (%.3fs, playing=%v)", m.Sequence, m.Frame, m.Seconds, m.Playing)
	default:
		log.Debugf("Transport: %T", msg)
	}
	return nil
}

// Sent returns the number of messages seen.
func (lt *LoggingTransport) Sent() int64 { return lt.sent.Load() }

func (lt *LoggingTransport) Close() error {
	log.Debugf("Transport: logging transport closed after %d messages", lt.sent.Load())
	return nil
}
