// Package intake runs one conversational cycle: model call, payload
// extraction, persistence or query, and the follow-up message.
package intake

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ent0n29/hrdesk/internal/assistant"
	"github.com/ent0n29/hrdesk/internal/bridge"
	"github.com/ent0n29/hrdesk/internal/extract"
	"github.com/ent0n29/hrdesk/internal/hr"
	"github.com/ent0n29/hrdesk/internal/observability"
	"github.com/ent0n29/hrdesk/internal/protocol"
	"github.com/ent0n29/hrdesk/internal/redact"
	"github.com/ent0n29/hrdesk/internal/reliability"
)

// ApologyMessage replaces the reply when a cycle fails.
const ApologyMessage = "Lo siento, hubo un error al procesar tu solicitud. Por favor, inténtalo de nuevo."

// TurnResult is what one cycle produced. Err is set when the model call
// or the query failed; Reply or FollowUp then carries the apology.
type TurnResult struct {
	Reply      string             `json:"reply"`
	FollowUp   string             `json:"followUp,omitempty"`
	Payload    extract.Kind       `json:"payload"`
	Saved      bool               `json:"saved"`
	Record     *hr.Request        `json:"record,omitempty"`
	Query      *hr.QueryDirective `json:"query,omitempty"`
	Results    []hr.Request       `json:"results,omitempty"`
	Statistics *bridge.Statistics `json:"statistics,omitempty"`
	Raw        string             `json:"-"`
	Err        *reliability.Error `json:"-"`
}

// Transcript returns the assistant turns this cycle adds to a conversation.
// A reply that was only a payload keeps its raw text so the next model
// call never receives an empty assistant turn.
func (r TurnResult) Transcript() []protocol.Turn {
	reply := r.Reply
	if reply == "" {
		reply = r.Raw
	}
	var out []protocol.Turn
	if reply != "" {
		out = append(out, protocol.Turn{Role: protocol.RoleAssistant, Content: reply})
	}
	if r.FollowUp != "" {
		out = append(out, protocol.Turn{Role: protocol.RoleAssistant, Content: r.FollowUp})
	}
	return out
}

type Service struct {
	adapter assistant.Adapter
	bridge  *bridge.Service
	metrics *observability.Metrics
	log     logrus.FieldLogger
}

func NewService(adapter assistant.Adapter, b *bridge.Service, metrics *observability.Metrics, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		adapter: adapter,
		bridge:  b,
		metrics: metrics,
		log:     log.WithField("component", "intake"),
	}
}

// Complete forwards turns to the model once and returns its raw reply.
// All failures are *reliability.Error.
func (s *Service) Complete(ctx context.Context, turns []protocol.Turn) (string, error) {
	if err := protocol.ValidateTurns(turns); err != nil {
		return "", reliability.Wrap(reliability.KindRequest, err.Error(), err)
	}

	start := time.Now()
	reply, err := s.adapter.Complete(ctx, turns)
	if err != nil {
		e := classify(err)
		s.metrics.ObserveUpstream(time.Since(start), string(e.Kind))
		s.log.WithError(err).WithFields(logrus.Fields{
			"kind":   e.Kind,
			"status": e.Status,
		}).Warn("assistant call failed")
		return "", e
	}
	s.metrics.ObserveUpstream(time.Since(start), "")
	return reply, nil
}

// Handle runs a full cycle over turns.
func (s *Service) Handle(ctx context.Context, turns []protocol.Turn) (out TurnResult) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveTurn(time.Since(start), turnOutcome(out))
	}()

	s.log.WithFields(logrus.Fields{
		"turns":   len(turns),
		"preview": redact.Preview(lastUserContent(turns), 80),
	}).Debug("turn received")

	reply, err := s.Complete(ctx, turns)
	if err != nil {
		e := classify(err)
		if e.Kind == reliability.KindRequest {
			return TurnResult{Payload: extract.KindNone, Err: e}
		}
		return TurnResult{Reply: ApologyMessage, Payload: extract.KindNone, Err: e}
	}

	parsed := extract.Parse(reply)
	out = TurnResult{Reply: parsed.Text, Payload: parsed.Payload.Kind, Raw: reply}
	if parsed.Found && parsed.Payload.Kind == extract.KindNone {
		s.log.WithField("payload", redact.Preview(string(parsed.Payload.Raw), 120)).Debug("payload discarded")
	}

	switch parsed.Payload.Kind {
	case extract.KindRequest:
		saved, ok := s.bridge.Save(ctx, *parsed.Payload.Request)
		if !ok {
			out.Record = parsed.Payload.Request
			return out
		}
		out.Saved = true
		out.Record = &saved
		if st, err := s.bridge.Statistics(ctx, bridge.StatsFilter{}); err == nil {
			out.Statistics = &st
		} else {
			s.log.WithError(err).Warn("statistics refresh failed")
		}

	case extract.KindQuery:
		out.Query = parsed.Payload.Query
		rows, err := s.bridge.Query(ctx, parsed.Payload.Query.Filters)
		if err != nil {
			out.FollowUp = ApologyMessage
			out.Err = classify(err)
			return out
		}
		out.Results = rows
		out.FollowUp = bridge.FormatResults(rows)
	}
	return out
}

// turnOutcome labels a finished cycle for the latency report.
func turnOutcome(res TurnResult) string {
	switch {
	case res.Err != nil:
		return string(res.Err.Kind)
	case res.Saved:
		return observability.OutcomeRecordSaved
	case res.Payload == extract.KindRequest:
		return observability.OutcomeRecordRejected
	case res.Payload == extract.KindQuery:
		return observability.OutcomeQueryAnswered
	default:
		return observability.OutcomeConversation
	}
}

func lastUserContent(turns []protocol.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == protocol.RoleUser {
			return turns[i].Content
		}
	}
	return ""
}

func classify(err error) *reliability.Error {
	if e, ok := reliability.As(err); ok {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return reliability.Wrap(reliability.KindUpstream, "request interrupted", err)
	}
	return reliability.Wrap(reliability.KindProcessing, "processing failed", err)
}
