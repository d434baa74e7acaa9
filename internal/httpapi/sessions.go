package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/hrdesk/internal/intake"
	"github.com/ent0n29/hrdesk/internal/protocol"
	"github.com/ent0n29/hrdesk/internal/session"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sess := s.deps.Sessions.Create(req.Label)
	s.observeSessions("created")

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:       sess.ID,
		Label:           sess.Label,
		Status:          sess.Status,
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.deps.Sessions.InactivityTimeout().Milliseconds(),
		MaxTurns:        s.deps.Sessions.MaxTurns(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.deps.Sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.observeSessions("ended")
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req session.TurnRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "content is required")
		return
	}

	res, err := s.runSessionTurn(context.WithoutCancel(r.Context()), id, req.Content)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	out := newTurnResponse(res)
	out.SessionID = id
	respondJSON(w, http.StatusOK, out)
}

// runSessionTurn runs one cycle against the session history and records
// the assistant turns it produced.
func (s *Server) runSessionTurn(ctx context.Context, sessionID, content string) (intake.TurnResult, error) {
	turnID, history, err := s.deps.Sessions.StartTurn(sessionID, protocol.Turn{
		Role:    protocol.RoleUser,
		Content: strings.TrimSpace(content),
	})
	if err != nil {
		return intake.TurnResult{}, err
	}
	res := s.deps.Intake.Handle(ctx, history)
	if err := s.deps.Sessions.FinishTurn(sessionID, turnID, res.Transcript()...); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("finish turn failed")
	}
	return res, nil
}

func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, session.ErrEnded):
		respondError(w, http.StatusGone, "session_ended", err.Error())
	case errors.Is(err, session.ErrTurnInProgress):
		respondError(w, http.StatusConflict, "turn_in_progress", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (s *Server) observeSessions(event string) {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.ActiveSessions.Set(float64(s.deps.Sessions.ActiveCount()))
	s.deps.Metrics.SessionEvents.WithLabelValues(event).Inc()
}

func (s *Server) observeWS(direction string, t protocol.MessageType) {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.WSMessages.WithLabelValues(direction, string(t)).Inc()
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if sess.Status != session.StatusActive {
		respondError(w, http.StatusGone, "session_ended", session.ErrEnded.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.observeSessions("ws_connected")

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	inbound := make(chan protocol.UserMessage, 16)
	outbound := make(chan any, 64)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		defer close(outbound)
		for msg := range inbound {
			s.emitTurn(ctx, sessionID, msg.Content, outbound)
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range outbound {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				cancel()
				_ = conn.Close()
				// Drain so the runner never blocks on a dead connection.
				for range outbound {
				}
				return
			}
			if t, ok := messageTypeOf(msg); ok {
				s.observeWS("outbound", t)
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(s.deps.Sessions.InactivityTimeout()))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.deps.Sessions.InactivityTimeout()))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.deps.Sessions.InactivityTimeout()))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			select {
			case outbound <- protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			}:
			default:
			}
			continue
		}
		msg, ok := parsed.(protocol.UserMessage)
		if !ok {
			continue
		}
		s.observeWS("inbound", msg.Type)
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- msg:
		}
	}

	close(inbound)
	<-runDone
	<-writerDone
	s.observeSessions("ws_disconnected")
}

// emitTurn runs one session turn and queues its websocket events.
func (s *Server) emitTurn(ctx context.Context, sessionID, content string, outbound chan<- any) {
	res, err := s.runSessionTurn(ctx, sessionID, content)
	if err != nil {
		outbound <- protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      sessionErrorCode(err),
			Detail:    err.Error(),
		}
		return
	}

	if res.Reply != "" {
		outbound <- protocol.AssistantMessage{Type: protocol.TypeAssistantMessage, SessionID: sessionID, Content: res.Reply}
	}
	if res.FollowUp != "" {
		outbound <- protocol.AssistantMessage{Type: protocol.TypeAssistantMessage, SessionID: sessionID, Content: res.FollowUp, FollowUp: true}
	}
	if res.Statistics != nil {
		outbound <- protocol.StatisticsEvent{
			Type:          protocol.TypeStatistics,
			SessionID:     sessionID,
			TotalRequests: res.Statistics.TotalRequests,
			LeaveRequests: res.Statistics.LeaveRequests,
			SickLeave:     res.Statistics.SickLeave,
			LateArrivals:  res.Statistics.LateArrivals,
		}
	}
	if res.Err != nil {
		outbound <- protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      string(res.Err.Kind),
			Retryable: res.Err.Retryable,
			Detail:    res.Err.Message,
		}
	}
}

func sessionErrorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "session_not_found"
	case errors.Is(err, session.ErrEnded):
		return "session_ended"
	case errors.Is(err, session.ErrTurnInProgress):
		return "turn_in_progress"
	default:
		return "internal_error"
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.UserMessage:
		return m.Type, true
	case protocol.AssistantMessage:
		return m.Type, true
	case protocol.StatisticsEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
