// Package media defines the audio/video player the editor drives: reading
// the playback position when inserting timestamps, seeking to a timestamp
// under the cursor and playing speaker snippets.
//
// Decoding and playback happen elsewhere (a browser over WebSocket, a desktop
// player); the editor only needs this narrow contract.
package media

import "errors"

// ErrNoMedia is returned by [Nop] and by players with nothing loaded.
var ErrNoMedia = errors.New("media: no media loaded")

// Player controls media playback.
type Player interface {
	// CurrentTimestamp returns the playback position as a clock string
	// ("H:MM:SS.f" or "M:SS"), or "" when unknown.
	CurrentTimestamp() string

	// Seek moves playback to seconds.
	Seek(seconds float64) error

	// PlayRange plays from start for duration seconds. A duration <= 0
	// plays on until stopped.
	PlayRange(start, duration float64) error

	// Stop halts playback.
	Stop() error
}

// Nop is a Player without media, used by batch tools.
type Nop struct{}

var _ Player = Nop{}

// CurrentTimestamp implements [Player].
func (Nop) CurrentTimestamp() string { return "" }

// Seek implements [Player].
func (Nop) Seek(float64) error { return ErrNoMedia }

// PlayRange implements [Player].
func (Nop) PlayRange(float64, float64) error { return ErrNoMedia }

// Stop implements [Player].
func (Nop) Stop() error { return nil }
