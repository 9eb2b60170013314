// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"spectro/internal/log"
)

// Playhead is a source of playback positions.
type Playhead interface {
	Position() int64
	Playing() bool
}

// DefaultInterval is the publish period used for non-positive intervals.
const DefaultInterval = 16 * time.Millisecond

// Publisher periodically sends the playhead to a set of transports.
type Publisher struct {
	playhead   Playhead
	sampleRate int
	interval   time.Duration
	sinks      []Transport

	mu       sync.Mutex
	ticker   *time.Ticker
	done     chan struct{}
	wg       sync.WaitGroup
	sequence uint32
}

// NewPublisher returns a stopped publisher. sampleRate converts frames to
// seconds.
func NewPublisher(interval time.Duration, playhead Playhead, sampleRate int, sinks ...Transport) (*Publisher, error) {
	if playhead == nil {
		return nil, errors.New("transport: publisher needs a playhead")
	}
	if len(sinks) == 0 {
		return nil, errors.New("transport: publisher needs at least one transport")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("transport: invalid sample rate %d", sampleRate)
	}
	if interval <= 0 {
		log.Warnf("Publisher: invalid interval %v, defaulting to %v", interval, DefaultInterval)
		interval = DefaultInterval
	}
	return &Publisher{
		playhead:   playhead,
		sampleRate: sampleRate,
		interval:   interval,
		sinks:      sinks,
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher does nothing.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("Publisher: Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	ticker, done := p.ticker, p.done
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("Publisher: started (interval %v)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.Publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop ends the publishing goroutine and waits for it to exit.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}
	p.ticker.Stop()
	p.ticker = nil
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("Publisher: stopped after %d messages", p.sequence)
}

// Publish sends one position message to every transport now. Transports
// that fail are logged and skipped.
func (p *Publisher) Publish() {
	frame := p.playhead.Position()
	p.mu.Lock()
	p.sequence++
	msg := &PositionMessage{
		Type:     TypePosition,
		Sequence: p.sequence,
		Sent:     time.Now(),
		Frame:    frame,
		Seconds:  float64(frame) / float64(p.sampleRate),
		Playing:  p.playhead.Playing(),
	}
	p.mu.Unlock()

	for _, s := range p.sinks {
		if err := s.Send(msg); err != nil {
			log.Warnf("Publisher: %T: %v", s, err)
		}
	}
}

// Close stops the publisher. Transports are left open.
func (p *Publisher) Close() error {
	p.Stop()
	return nil
}
