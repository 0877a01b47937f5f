// Package mock provides an in-memory [media.Player] for unit tests.
//
// The mock is safe for concurrent use. It records every call and exposes
// exported fields that control return values.
//
// Typical usage:
//
//	p := &mock.Player{Position: "0:01:05.0"}
//	// inject p into the editor …
//	if len(p.Seeks) != 1 || p.Seeks[0] != 65 {
//	    t.Errorf("unexpected seeks: %v", p.Seeks)
//	}
package mock

import (
	"sync"

	"github.com/MrWong99/scribe/pkg/media"
)

// PlayCall records one PlayRange invocation.
type PlayCall struct {
	Start    float64
	Duration float64
}

// Player is a mock implementation of [media.Player].
type Player struct {
	mu sync.Mutex

	// Position is returned by [Player.CurrentTimestamp].
	Position string

	// SeekErr is returned by [Player.Seek] when non-nil.
	SeekErr error

	// PlayErr is returned by [Player.PlayRange] when non-nil.
	PlayErr error

	// Seeks records every Seek argument in order.
	Seeks []float64

	// Plays records every PlayRange call in order.
	Plays []PlayCall

	// StopCount records how many times Stop was called.
	StopCount int
}

var _ media.Player = (*Player)(nil)

// CurrentTimestamp implements [media.Player].
func (p *Player) CurrentTimestamp() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Position
}

// SetPosition changes the reported position.
func (p *Player) SetPosition(pos string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Position = pos
}

// Seek implements [media.Player].
func (p *Player) Seek(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Seeks = append(p.Seeks, seconds)
	return p.SeekErr
}

// PlayRange implements [media.Player].
func (p *Player) PlayRange(start, duration float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Plays = append(p.Plays, PlayCall{Start: start, Duration: duration})
	return p.PlayErr
}

// Stop implements [media.Player].
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StopCount++
	return nil
}

// SeekCalls returns a copy of the recorded seeks.
func (p *Player) SeekCalls() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.Seeks...)
}

// PlayCalls returns a copy of the recorded plays.
func (p *Player) PlayCalls() []PlayCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PlayCall(nil), p.Plays...)
}
