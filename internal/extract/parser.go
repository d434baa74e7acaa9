// Package extract separates the conversational part of an assistant reply
// from the JSON payload the model appends to it.
package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/ent0n29/hrdesk/internal/hr"
)

// Kind identifies what an extracted payload asks for.
type Kind string

const (
	KindNone    Kind = "none"
	KindRequest Kind = "request"
	KindQuery   Kind = "query"
)

// RequestPayload is the record shape the assistant emits for a formal request.
type RequestPayload struct {
	Name     string `json:"name" jsonschema:"description=Nombre del empleado"`
	Type     string `json:"type" jsonschema:"enum=leave,enum=sick leave,enum=late arrival"`
	Duration string `json:"duration" jsonschema:"description=Duración de la solicitud"`
	Reason   string `json:"reason" jsonschema:"description=Razón de la solicitud"`
	Date     string `json:"date" jsonschema:"description=Fecha de la solicitud (YYYY-MM-DD)"`
}

// Request converts the payload into a domain record.
func (p RequestPayload) Request() hr.Request {
	return hr.Request{
		Name:     p.Name,
		Type:     hr.RequestType(p.Type),
		Duration: p.Duration,
		Reason:   p.Reason,
		Date:     p.Date,
	}.Normalize()
}

// Payload is the classified JSON object found in a reply.
type Payload struct {
	Kind    Kind               `json:"kind"`
	Raw     json.RawMessage    `json:"raw,omitempty"`
	Request *hr.Request        `json:"request,omitempty"`
	Query   *hr.QueryDirective `json:"query,omitempty"`
}

// Result is the outcome of parsing one reply.
type Result struct {
	Text    string  `json:"text"`
	Payload Payload `json:"payload"`
	// Found is true when a JSON object was located and removed from Text,
	// even if it classified as KindNone.
	Found bool `json:"found"`
}

// Parse locates the first syntactically complete top-level JSON object in
// reply, removes it from the conversational text and classifies it.
// When no object is found the whole reply is the text and the payload is
// KindNone; extraction never fails.
func Parse(reply string) Result {
	start, end, ok := findObject(reply)
	if !ok {
		return Result{Text: strings.TrimSpace(reply), Payload: Payload{Kind: KindNone}}
	}
	raw := json.RawMessage(reply[start:end])
	before, after := stripEmptyFence(reply[:start], reply[end:])
	return Result{
		Text:    strings.TrimSpace(before + after),
		Payload: Classify(raw),
		Found:   true,
	}
}

// findObject returns the byte span of the first '{' from which a complete
// JSON object decodes. Braces in prose that do not open a valid object are
// skipped.
func findObject(s string) (start, end int, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		return i, i + int(dec.InputOffset()), true
	}
	return 0, 0, false
}

// stripEmptyFence drops a markdown code fence that only wrapped the payload.
func stripEmptyFence(before, after string) (string, string) {
	b := strings.TrimRight(before, " \t\r\n")
	a := strings.TrimLeft(after, " \t\r\n")
	if !strings.HasPrefix(a, "```") {
		return before, after
	}
	idx := strings.LastIndex(b, "```")
	if idx < 0 {
		return before, after
	}
	lang := strings.TrimSpace(b[idx+3:])
	if lang != "" && lang != "json" {
		return before, after
	}
	return b[:idx], a[3:]
}

type probe struct {
	Action string          `json:"action"`
	Type   json.RawMessage `json:"type"`
}

// Classify decides whether raw is a query directive, an HR request record or
// neither. Objects that are neither, or that fail to decode into their
// shape, classify as KindNone.
func Classify(raw json.RawMessage) Payload {
	none := Payload{Kind: KindNone, Raw: raw}

	var p probe
	if err := json.Unmarshal(raw, &p); err != nil {
		return none
	}

	if strings.TrimSpace(p.Action) == hr.ActionQuery {
		var q hr.QueryDirective
		if err := json.Unmarshal(raw, &q); err != nil {
			return none
		}
		q.Action = hr.ActionQuery
		q.Filters = q.Filters.Normalize()
		return Payload{Kind: KindQuery, Raw: raw, Query: &q}
	}

	if len(p.Type) == 0 || bytes.Equal(p.Type, []byte("null")) {
		return none
	}
	var rp RequestPayload
	if err := json.Unmarshal(raw, &rp); err != nil {
		return none
	}
	req := rp.Request()
	if err := req.Validate(); err != nil {
		return none
	}
	return Payload{Kind: KindRequest, Raw: raw, Request: &req}
}
