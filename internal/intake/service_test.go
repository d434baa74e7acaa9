package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ent0n29/hrdesk/internal/bridge"
	"github.com/ent0n29/hrdesk/internal/extract"
	"github.com/ent0n29/hrdesk/internal/hr"
	"github.com/ent0n29/hrdesk/internal/protocol"
	"github.com/ent0n29/hrdesk/internal/reliability"
	"github.com/ent0n29/hrdesk/internal/store"
)

type stubAdapter struct {
	reply string
	err   error
	calls int
	last  []protocol.Turn
}

func (s *stubAdapter) Complete(_ context.Context, turns []protocol.Turn) (string, error) {
	s.calls++
	s.last = turns
	return s.reply, s.err
}

type brokenQueryStore struct {
	store.Store
}

func (brokenQueryStore) Query(context.Context, store.Query) ([]hr.Request, error) {
	return nil, errors.New("relation does not exist")
}

func newService(adapter *stubAdapter, st store.Store) *Service {
	if st == nil {
		st = store.NewInMemoryStore()
	}
	b := bridge.NewService(st, bridge.NewMemoryStatsCache(time.Minute), nil, nil)
	return NewService(adapter, b, nil, nil)
}

func userTurn(text string) []protocol.Turn {
	return []protocol.Turn{{Role: protocol.RoleUser, Content: text}}
}

func TestHandleSavesRequestAndRefreshesStatistics(t *testing.T) {
	adapter := &stubAdapter{reply: "Entendido Carlos, registro tu incapacidad.\n\n" +
		`{"name":"Carlos","type":"sick leave","duration":"1 día","reason":"gripe","date":"2025-01-15"}`}
	svc := newService(adapter, nil)

	res := svc.Handle(context.Background(), userTurn("Soy Carlos, hoy no puedo ir porque tengo gripe"))
	if res.Err != nil {
		t.Fatalf("Handle() error = %v", res.Err)
	}
	if res.Reply != "Entendido Carlos, registro tu incapacidad." {
		t.Fatalf("Reply = %q", res.Reply)
	}
	if res.Payload != extract.KindRequest || !res.Saved || res.Record == nil || res.Record.ID == "" {
		t.Fatalf("result = %+v, want saved request", res)
	}
	if res.Statistics == nil || res.Statistics.SickLeave != 1 || res.Statistics.TotalRequests != 1 {
		t.Fatalf("Statistics = %+v, want sickLeave 1", res.Statistics)
	}
	if res.FollowUp != "" {
		t.Fatalf("FollowUp = %q, want none after a save", res.FollowUp)
	}
}

func TestHandleQueryFormatsFollowUp(t *testing.T) {
	st := store.NewInMemoryStore()
	_, _ = st.Insert(context.Background(), hr.Request{Name: "Laura Trujillo", Type: hr.TypeLeave, Duration: "1 día", Reason: "trámite", Date: "2025-01-20"})
	_, _ = st.Insert(context.Background(), hr.Request{Name: "Carlos", Type: hr.TypeLeave, Duration: "1 día", Reason: "viaje", Date: "2025-01-21"})

	adapter := &stubAdapter{reply: "Déjame revisar.\n\n" +
		`{"action":"query","filters":{"name":"laura","startDate":"2025-01-01","endDate":"2025-01-31"}}`}
	svc := newService(adapter, st)

	res := svc.Handle(context.Background(), userTurn("¿Cuántos permisos tomó Laura Trujillo en enero 2025?"))
	if res.Err != nil {
		t.Fatalf("Handle() error = %v", res.Err)
	}
	if res.Payload != extract.KindQuery || len(res.Results) != 1 {
		t.Fatalf("result = %+v, want one query row", res)
	}
	want := "Laura Trujillo:\n- Permiso (1 día) el 2025-01-20: trámite"
	if res.FollowUp != want {
		t.Fatalf("FollowUp = %q, want %q", res.FollowUp, want)
	}
}

func TestHandleQueryWithoutMatches(t *testing.T) {
	adapter := &stubAdapter{reply: `{"action":"query","filters":{"name":"Laura Trujillo","startDate":"2025-01-01","endDate":"2025-01-31"}}`}
	svc := newService(adapter, nil)

	res := svc.Handle(context.Background(), userTurn("¿Cuántos permisos tomó Laura Trujillo en enero 2025?"))
	if res.FollowUp != bridge.NoResultsMessage {
		t.Fatalf("FollowUp = %q", res.FollowUp)
	}
	if res.Reply != "" {
		t.Fatalf("Reply = %q, want empty conversational text", res.Reply)
	}
	turns := res.Transcript()
	if len(turns) != 2 || turns[0].Content != adapter.reply {
		t.Fatalf("Transcript() = %+v, want raw reply kept for the empty text", turns)
	}
}

func TestHandleQueryStoreFailure(t *testing.T) {
	adapter := &stubAdapter{reply: `Consultando. {"action":"query","filters":{}}`}
	svc := newService(adapter, brokenQueryStore{Store: store.NewInMemoryStore()})

	res := svc.Handle(context.Background(), userTurn("muéstrame todo"))
	if res.Err == nil || res.Err.Kind != reliability.KindStore {
		t.Fatalf("Err = %v, want store_error", res.Err)
	}
	if res.Reply != "Consultando." || res.FollowUp != ApologyMessage {
		t.Fatalf("Reply=%q FollowUp=%q", res.Reply, res.FollowUp)
	}
}

func TestHandleUpstreamErrorReturnsApology(t *testing.T) {
	adapter := &stubAdapter{err: &reliability.Error{
		Kind:      reliability.KindOverloaded,
		Message:   "Overloaded",
		Status:    529,
		Retryable: true,
	}}
	svc := newService(adapter, nil)

	res := svc.Handle(context.Background(), userTurn("hola"))
	if res.Reply != ApologyMessage {
		t.Fatalf("Reply = %q, want apology", res.Reply)
	}
	if res.Err == nil || res.Err.Kind != reliability.KindOverloaded || !res.Err.Retryable {
		t.Fatalf("Err = %+v, want retryable overloaded_error", res.Err)
	}
	if adapter.calls != 1 {
		t.Fatalf("adapter calls = %d, want 1", adapter.calls)
	}
}

func TestHandleGeneralConversationPersistsNothing(t *testing.T) {
	st := store.NewInMemoryStore()
	adapter := &stubAdapter{reply: "Los permisos se solicitan con dos días de anticipación."}
	svc := newService(adapter, st)

	res := svc.Handle(context.Background(), userTurn("¿Cómo pido un permiso?"))
	if res.Payload != extract.KindNone || res.Saved {
		t.Fatalf("result = %+v, want plain conversation", res)
	}
	rows, _ := st.Query(context.Background(), store.Query{})
	if len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}
}

func TestHandleDiscardsUnknownType(t *testing.T) {
	st := store.NewInMemoryStore()
	adapter := &stubAdapter{reply: `Anotado. {"name":"Ana","type":"vacation","date":"2025-01-02"}`}
	svc := newService(adapter, st)

	res := svc.Handle(context.Background(), userTurn("me voy de vacaciones"))
	if res.Saved || res.Payload != extract.KindNone {
		t.Fatalf("result = %+v, want discarded payload", res)
	}
	if res.Reply != "Anotado." {
		t.Fatalf("Reply = %q", res.Reply)
	}
	rows, _ := st.Query(context.Background(), store.Query{})
	if len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}
}

func TestCompleteRejectsInvalidTurns(t *testing.T) {
	adapter := &stubAdapter{reply: "x"}
	svc := newService(adapter, nil)

	_, err := svc.Complete(context.Background(), []protocol.Turn{{Role: "system", Content: "hi"}})
	e, ok := reliability.As(err)
	if !ok || e.Kind != reliability.KindRequest {
		t.Fatalf("error = %v, want request_error", err)
	}
	if adapter.calls != 0 {
		t.Fatalf("adapter called with invalid turns")
	}
}
