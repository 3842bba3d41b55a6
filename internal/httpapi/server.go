package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cob-labs/carebot/internal/config"
	"github.com/cob-labs/carebot/internal/dialog"
	"github.com/cob-labs/carebot/internal/escalation"
	"github.com/cob-labs/carebot/internal/observability"
	"github.com/cob-labs/carebot/internal/protocol"
	"github.com/cob-labs/carebot/internal/session"
)

type Server struct {
	cfg       config.Config
	sessions  *session.Manager
	dialogs   *dialog.Manager
	escalator *escalation.Engine
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, dialogs *dialog.Manager, escalator *escalation.Engine, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		sessions:  sessions,
		dialogs:   dialogs,
		escalator: escalator,
		metrics:   metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chat/session", s.handleCreateSession)
	r.Post("/v1/chat/session/{id}/end", s.handleEndSession)
	r.Post("/v1/chat/message", s.handleMessage)
	r.Get("/v1/chat/ws", s.handleChatWS)
	r.Get("/v1/escalations", s.handleListEscalations)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"session_backend": s.cfg.SessionBackend,
		"booking_mode":    s.cfg.BookingMode,
	})
}

type createSessionRequest struct {
	UserID string `json:"user_id"`
}

type createSessionResponse struct {
	SessionID     string    `json:"session_id"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	IdleTimeoutMS int64     `json:"idle_timeout_ms"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	sess, _, err := s.sessions.GetOrCreate(r.Context(), req.UserID, "")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session_create_failed", err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
	}

	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:     sess.ID,
		UserID:        sess.UserID,
		CreatedAt:     sess.CreatedAt,
		IdleTimeoutMS: s.cfg.SessionIdleTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	if err := s.dialogs.EndSession(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session_id": id, "status": "ended"})
}

type messageRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type messageResponse struct {
	SessionID       string   `json:"session_id"`
	Response        string   `json:"response"`
	Intent          string   `json:"intent"`
	Confidence      float64  `json:"confidence"`
	NeedsEscalation bool     `json:"needs_escalation"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "missing_message", "message is required")
		return
	}

	res, err := s.dialogs.HandleTurn(r.Context(), req.UserID, req.SessionID, req.Message)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{
		SessionID:       res.SessionID,
		Response:        res.Response,
		Intent:          string(res.Intent),
		Confidence:      res.Confidence,
		NeedsEscalation: res.NeedsEscalation,
		Suggestions:     res.Suggestions,
	})
}

func (s *Server) handleListEscalations(w http.ResponseWriter, _ *http.Request) {
	queue := s.escalator.Queue()
	respondJSON(w, http.StatusOK, map[string]any{
		"tickets": queue,
		"count":   len(queue),
	})
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	write := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			log.Debug().Err(err).Msg("ws write failed")
			return false
		}
		return true
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			if !write(protocol.NewErrorEvent("", "invalid_client_message", err.Error(), false)) {
				return
			}
			continue
		}

		switch msg := parsed.(type) {
		case protocol.ClientMessage:
			res, err := s.dialogs.HandleTurn(r.Context(), msg.UserID, msg.SessionID, msg.Text)
			if err != nil {
				if !write(protocol.NewErrorEvent(msg.SessionID, "turn_failed", err.Error(), true)) {
					return
				}
				continue
			}
			if res.Created {
				if !write(protocol.NewSessionEvent(res.SessionID, "session_created", "")) {
					return
				}
			}
			if !write(protocol.NewBotReply(res.SessionID, res.Response, string(res.Intent), res.Confidence, res.NeedsEscalation, res.Suggestions)) {
				return
			}
		case protocol.ClientControl:
			if msg.Action != "end" {
				if !write(protocol.NewErrorEvent(msg.SessionID, "unsupported_action", msg.Action, false)) {
					return
				}
				continue
			}
			if err := s.dialogs.EndSession(r.Context(), msg.SessionID); err != nil {
				if !write(protocol.NewErrorEvent(msg.SessionID, "session_not_found", err.Error(), false)) {
					return
				}
				continue
			}
			if !write(protocol.NewSessionEvent(msg.SessionID, "session_ended", "")) {
				return
			}
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
