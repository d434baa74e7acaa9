package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/ent0n29/hrdesk/internal/hr"
	"github.com/ent0n29/hrdesk/internal/protocol"
	"github.com/ent0n29/hrdesk/internal/reliability"
)

type chatRequest struct {
	Messages []protocol.Turn `json:"messages"`
}

type chatResponse struct {
	Content string `json:"content"`
}

type queryRequest struct {
	Filters *hr.Filters `json:"filters"`
}

type queryResponse struct {
	Data []hr.Request `json:"data"`
}

// handleChat proxies the conversation to the model once and returns the
// raw reply; the client parses it.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondKindError(w, reliability.Wrap(reliability.KindRequest, "invalid request body", err))
		return
	}

	// Once issued, the upstream call runs to completion even if the client goes away.
	reply, err := s.deps.Intake.Complete(context.WithoutCancel(r.Context()), req.Messages)
	if err != nil {
		respondKindError(w, asKindError(err))
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Content: reply})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		s.log.WithError(err).Warn("invalid query body")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error processing query"})
		return
	}
	var filters hr.Filters
	if req.Filters != nil {
		filters = *req.Filters
	}

	rows, err := s.deps.Bridge.Query(context.WithoutCancel(r.Context()), filters)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error processing query"})
		return
	}
	respondJSON(w, http.StatusOK, queryResponse{Data: rows})
}

// handleTurn runs the whole cycle for a client-held conversation.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondKindError(w, reliability.Wrap(reliability.KindRequest, "invalid request body", err))
		return
	}

	res := s.deps.Intake.Handle(context.WithoutCancel(r.Context()), req.Messages)
	if res.Err != nil && res.Err.Kind == reliability.KindRequest {
		respondKindError(w, res.Err)
		return
	}
	respondJSON(w, http.StatusOK, newTurnResponse(res))
}

func asKindError(err error) *reliability.Error {
	if e, ok := reliability.As(err); ok {
		return e
	}
	return reliability.Wrap(reliability.KindProcessing, "error processing chat request", err)
}
