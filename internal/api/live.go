package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/scribe/internal/editor"
	"github.com/MrWong99/scribe/pkg/media"
	"github.com/MrWong99/scribe/pkg/timestamp"
)

// Event types sent to the live client.
const (
	EventNotice = "notice"
	EventScroll = "scroll"
	EventSeek   = "media.seek"
	EventPlay   = "media.play"
	EventStop   = "media.stop"
	EventResult = "result"
	EventError  = "error"
)

// Message types sent by the live client.
const (
	MessageCommand  = "command"
	MessagePosition = "media.position"
)

const (
	// queueSize bounds the events waiting for the socket writer.
	queueSize = 64

	writeTimeout = 5 * time.Second
)

var (
	// ErrNoClient is returned by the remote player while no live client is
	// attached.
	ErrNoClient = fmt.Errorf("api: no live client: %w", media.ErrNoMedia)

	// ErrClientAttached is returned when a second client connects to a
	// document.
	ErrClientAttached = errors.New("api: a live client is already attached")

	// ErrQueueFull is returned when the client does not keep up with events.
	ErrQueueFull = errors.New("api: live event queue full")
)

// Event is a server-to-client WebSocket message.
type Event struct {
	Type     string         `json:"type"`
	Notice   *editor.Notice `json:"notice,omitempty"`
	Index    *int           `json:"index,omitempty"`
	Seconds  *float64       `json:"seconds,omitempty"`
	Duration *float64       `json:"duration,omitempty"`
	Result   *editor.Result `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ClientMessage is a client-to-server WebSocket message. A position report
// carries either a clock string or Seconds.
type ClientMessage struct {
	Type     string          `json:"type"`
	Command  *editor.Command `json:"command,omitempty"`
	Position string          `json:"position,omitempty"`
	Seconds  *float64        `json:"seconds,omitempty"`
}

// Live bridges one editing session to at most one WebSocket client. It is
// the session's [editor.Notifier], [editor.Scroller] and [media.Player]:
// notices and player calls become events, position reports from the client
// answer CurrentTimestamp.
//
// The editor calls Live with its lock held, so every method only queues and
// never waits for the socket.
type Live struct {
	mu       sync.Mutex
	out      chan Event
	cancel   context.CancelFunc
	position string
}

var (
	_ media.Player    = (*Live)(nil)
	_ editor.Notifier = (*Live)(nil)
	_ editor.Scroller = (*Live)(nil)
)

// NewLive returns a Live without a client.
func NewLive() *Live { return &Live{} }

// attach registers a client and returns its event queue. cancel is called
// by disconnect.
func (l *Live) attach(cancel context.CancelFunc) (chan Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out != nil {
		return nil, ErrClientAttached
	}
	l.out = make(chan Event, queueSize)
	l.cancel = cancel
	return l.out, nil
}

func (l *Live) detach(out chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out != out {
		return
	}
	l.out = nil
	l.cancel = nil
	l.position = ""
}

// disconnect ends the attached client's connection, if any.
func (l *Live) disconnect() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Connected reports whether a client is attached.
func (l *Live) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out != nil
}

func (l *Live) setPosition(pos string) {
	l.mu.Lock()
	l.position = pos
	l.mu.Unlock()
}

func (l *Live) send(ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return ErrNoClient
	}
	select {
	case l.out <- ev:
		return nil
	default:
		slog.Warn("api: live client too slow, dropping event", "type", ev.Type)
		return ErrQueueFull
	}
}

// Notify implements [editor.Notifier]. Notices are dropped without a client.
func (l *Live) Notify(n editor.Notice) {
	_ = l.send(Event{Type: EventNotice, Notice: &n})
}

// ScrollTo implements [editor.Scroller].
func (l *Live) ScrollTo(index int) {
	_ = l.send(Event{Type: EventScroll, Index: &index})
}

// CurrentTimestamp implements [media.Player]. It returns the last position
// the client reported.
func (l *Live) CurrentTimestamp() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

// Seek implements [media.Player].
func (l *Live) Seek(seconds float64) error {
	return l.send(Event{Type: EventSeek, Seconds: &seconds})
}

// PlayRange implements [media.Player].
func (l *Live) PlayRange(start, duration float64) error {
	return l.send(Event{Type: EventPlay, Seconds: &start, Duration: &duration})
}

// Stop implements [media.Player]. Without a client there is nothing to stop.
func (l *Live) Stop() error {
	if err := l.send(Event{Type: EventStop}); err != nil && !errors.Is(err, ErrNoClient) {
		return err
	}
	return nil
}

// serve runs the connection until the client leaves or ctx ends. Commands
// are executed in arrival order on ed.
func (l *Live) serve(ctx context.Context, conn *websocket.Conn, ed *editor.Editor, out chan Event) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		writeLoop(ctx, conn, out)
	}()

	l.readLoop(ctx, conn, ed, out)
	cancel()
	wg.Wait()
}

func writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-out:
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Error("api: marshal live event", "type", ev.Type, "err", err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("api: live write failed", "err", err)
				return
			}
		}
	}
}

func (l *Live) readLoop(ctx context.Context, conn *websocket.Conn, ed *editor.Editor, out chan<- Event) {
	reply := func(ev Event) {
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					slog.Debug("api: live read failed", "doc_id", ed.ID(), "err", err)
				}
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			reply(Event{Type: EventError, Error: "malformed message: " + err.Error()})
			continue
		}

		switch msg.Type {
		case MessageCommand:
			if msg.Command == nil {
				reply(Event{Type: EventError, Error: "command message without command"})
				continue
			}
			res, err := ed.Execute(ctx, *msg.Command)
			ev := Event{Type: EventResult, Result: &res}
			if err != nil {
				ev.Error = err.Error()
			}
			reply(ev)
		case MessagePosition:
			pos := msg.Position
			if msg.Seconds != nil {
				pos = timestamp.Format(*msg.Seconds)
			}
			l.setPosition(pos)
		default:
			reply(Event{Type: EventError, Error: fmt.Sprintf("unknown message type %q", msg.Type)})
		}
	}
}
