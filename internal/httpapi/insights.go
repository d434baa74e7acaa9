package httpapi

import (
	"errors"
	"net/http"

	"github.com/ent0n29/hrdesk/internal/bridge"
	"github.com/ent0n29/hrdesk/internal/extract"
	"github.com/ent0n29/hrdesk/internal/hr"
	"github.com/ent0n29/hrdesk/internal/reliability"
	"github.com/ent0n29/hrdesk/internal/report"
)

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := bridge.StatsFilter{Month: q.Get("month"), Type: hr.RequestType(q.Get("type"))}
	if f.Month == report.All {
		f.Month = ""
	}
	if f.Type == report.All {
		f.Type = ""
	}

	st, err := s.deps.Bridge.Statistics(r.Context(), f)
	if err != nil {
		if errors.Is(err, bridge.ErrInvalidFilter) {
			respondError(w, http.StatusBadRequest, string(reliability.KindRequest), err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, string(reliability.KindStore), "error fetching statistics")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rep, err := report.Build(r.Context(), s.deps.Store, report.Filter{
		Month:    q.Get("month"),
		Type:     q.Get("type"),
		Employee: q.Get("employee"),
	})
	switch {
	case errors.Is(err, report.ErrNoFilter):
		respondError(w, http.StatusBadRequest, "no_filter", "Por favor selecciona al menos un filtro (mes, tipo o empleado)")
		return
	case errors.Is(err, report.ErrInvalidFilter):
		respondError(w, http.StatusBadRequest, string(reliability.KindRequest), err.Error())
		return
	case err != nil:
		s.log.WithError(err).Error("error generating report")
		respondError(w, http.StatusInternalServerError, string(reliability.KindStore), "error generating report")
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

type employeeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	names, err := report.Employees(r.Context(), s.deps.Store)
	if err != nil {
		s.log.WithError(err).Error("error listing employees")
		respondError(w, http.StatusInternalServerError, string(reliability.KindStore), "error listing employees")
		return
	}
	options := make([]employeeOption, 0, len(names)+1)
	options = append(options, employeeOption{Value: report.All, Label: "Todos los empleados"})
	for _, name := range names {
		options = append(options, employeeOption{Value: name, Label: name})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"employees": names,
		"options":   options,
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, extract.Schemas())
}
