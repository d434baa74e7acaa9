package httpapi

import (
	"github.com/ent0n29/hrdesk/internal/intake"
	"github.com/ent0n29/hrdesk/internal/reliability"
)

type turnError struct {
	Error      string           `json:"error"`
	Type       reliability.Kind `json:"type"`
	Retryable  bool             `json:"retryable"`
	RetryAfter string           `json:"retryAfter,omitempty"`
}

// turnResponse is a TurnResult plus its classified error, if any.
type turnResponse struct {
	intake.TurnResult
	SessionID string     `json:"sessionId,omitempty"`
	Error     *turnError `json:"error,omitempty"`
}

func newTurnResponse(res intake.TurnResult) turnResponse {
	out := turnResponse{TurnResult: res}
	if res.Err != nil {
		out.Error = &turnError{
			Error:      res.Err.Message,
			Type:       res.Err.Kind,
			Retryable:  res.Err.Retryable,
			RetryAfter: res.Err.RetryAfter,
		}
	}
	return out
}
