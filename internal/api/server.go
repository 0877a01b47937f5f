// Package api serves editing sessions over HTTP.
//
// Documents are opened, commanded and closed through a small JSON API under
// /v1/documents. A browser editor attaches to a document over a WebSocket at
// /v1/documents/{id}/live: it sends commands and media position reports and
// receives notices, scroll requests, media control events and command
// results. The same server exposes /healthz, /readyz and, when enabled,
// /metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/scribe/internal/app"
	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/internal/editor"
	"github.com/MrWong99/scribe/internal/health"
	"github.com/MrWong99/scribe/internal/observe"
)

// maxBodyBytes caps request bodies. Transcripts of long recordings run to a
// few megabytes.
const maxBodyBytes = 16 << 20

// Config holds the dependencies of a [Server].
type Config struct {
	// Sessions owns the open documents. Required.
	Sessions *app.SessionManager

	// Store is pinged by /readyz. Optional.
	Store health.Pinger

	// Metrics enables the request middleware. Optional.
	Metrics *observe.Metrics

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	// OriginPatterns lists the hosts allowed to open a live WebSocket from a
	// browser, in addition to the server's own host.
	OriginPatterns []string
}

// Server is the HTTP front end of the session manager.
type Server struct {
	cfg Config

	mu   sync.Mutex
	live map[string]*Live
}

// New creates a Server.
func New(cfg Config) *Server {
	return &Server{cfg: cfg, live: make(map[string]*Live)}
}

// Handler returns the routed handler, wrapped in the request middleware when
// metrics are configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/documents", s.handleList)
	mux.HandleFunc("POST /v1/documents", s.handleOpen)
	mux.HandleFunc("GET /v1/documents/{id}", s.handleGet)
	mux.HandleFunc("DELETE /v1/documents/{id}", s.handleClose)
	mux.HandleFunc("POST /v1/documents/{id}/commands", s.handleCommand)
	mux.HandleFunc("GET /v1/documents/{id}/live", s.handleLive)

	checkers := []health.Checker{health.DegradedChecker(s.cfg.Sessions)}
	if s.cfg.Store != nil {
		checkers = append(checkers, health.StorageChecker(s.cfg.Store))
	}
	health.New(checkers...).Register(mux)

	if s.cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.cfg.MetricsHandler)
	}

	if s.cfg.Metrics == nil {
		return mux
	}
	return observe.Middleware(s.cfg.Metrics)(mux)
}

type openRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type documentResponse struct {
	ID        string              `json:"id"`
	Text      string              `json:"text"`
	Selection *document.Selection `json:"selection,omitempty"`
	Live      bool                `json:"live"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Sessions.List())
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !decode(w, r, &req) {
		return
	}

	live := NewLive()
	ed, err := s.cfg.Sessions.Open(r.Context(), req.ID, req.Text,
		editor.WithPlayer(live),
		editor.WithNotifier(live),
	)
	switch {
	case errors.Is(err, app.ErrSessionExists):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		observe.Logger(r.Context()).Error("api: open session", "doc_id", req.ID, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	s.live[ed.ID()] = live
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, s.describe(ed, live))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ed, live, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.describe(ed, live))
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.cfg.Sessions.Close(r.Context(), id)
	if errors.Is(err, app.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}

	s.mu.Lock()
	live := s.live[id]
	delete(s.live, id)
	s.mu.Unlock()
	if live != nil {
		live.disconnect()
	}

	if err != nil {
		observe.Logger(r.Context()).Warn("api: close session", "doc_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	ed, _, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var cmd editor.Command
	if !decode(w, r, &cmd) {
		return
	}

	res, err := ed.Execute(r.Context(), cmd)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, editor.ErrUnknownOp), errors.Is(err, editor.ErrMissingArgument):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, editor.ErrClosed):
		writeError(w, http.StatusGone, err)
	default:
		// The editor refused the edit, e.g. an empty selection. The document
		// is unchanged and the user was notified.
		writeError(w, http.StatusUnprocessableEntity, err)
	}
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	ed, live, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if live == nil {
		writeError(w, http.StatusNotFound, errors.New("document was not opened through the API"))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	out, err := live.attach(cancel)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	defer live.detach(out)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.OriginPatterns,
	})
	if err != nil {
		slog.Debug("api: websocket accept failed", "doc_id", ed.ID(), "err", err)
		return
	}
	defer conn.CloseNow()

	slog.Info("api: live client attached", "doc_id", ed.ID())
	live.serve(ctx, conn, ed, out)
	conn.Close(websocket.StatusNormalClosure, "session ended")
	slog.Info("api: live client detached", "doc_id", ed.ID())
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*editor.Editor, *Live, bool) {
	id := r.PathValue("id")
	ed, ok := s.cfg.Sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, app.ErrSessionNotFound)
		return nil, nil, false
	}
	s.mu.Lock()
	live := s.live[id]
	s.mu.Unlock()
	return ed, live, true
}

func (s *Server) describe(ed *editor.Editor, live *Live) documentResponse {
	resp := documentResponse{ID: ed.ID(), Text: ed.Text()}
	if sel, ok := ed.Selection(); ok {
		resp.Selection = &sel
	}
	if live != nil {
		resp.Live = live.Connected()
	}
	return resp
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("api: encode response", "err", err)
	}
}
