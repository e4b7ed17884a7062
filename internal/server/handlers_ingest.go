package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/grc"
	"github.com/cisoworks/asset-intelligence/pkg/ingest"
	"github.com/cisoworks/asset-intelligence/pkg/tenancy"
)

func (s *Server) listSyncRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f ingest.RunListFilter
	if v := q.Get("source"); v != "" {
		src := entity.SourceSystem(v)
		f.Source = &src
	}
	if v := q.Get("success"); v != "" {
		ok := v == "true"
		f.Success = &ok
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = n
	}
	out, err := s.ingest.ListRuns(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSyncRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.ingest.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listRunRecords(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	out, err := s.ingest.ListRecords(ingest.RecordListFilter{SyncRunID: &runID})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listFailedRecords(w http.ResponseWriter, r *http.Request) {
	f := ingest.RecordListFilter{FailedOnly: true}
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		f.Limit = n
	}
	out, err := s.ingest.ListRecords(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// triggerIngest runs one sync for the named source using the configured
// connector entry. The run executes synchronously; callers treat this as an
// operational endpoint, not a user-facing one.
func (s *Server) triggerIngest(w http.ResponseWriter, r *http.Request) {
	source := entity.SourceSystem(chi.URLParam(r, "source"))
	cfg, ok := s.connectors[source]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "not_found",
			"message": "no connector configured for source " + string(source),
		})
		return
	}
	conn, err := ingest.NewConnector(cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	run, err := s.ingester.Ingest(r.Context(), conn)
	var ingErr *ingest.IngestionFailure
	if err != nil && !errors.As(err, &ingErr) {
		s.writeError(w, err)
		return
	}
	// A failed run is still a completed run; return it with its error text.
	writeJSON(w, http.StatusCreated, run)
}

// ---------------------------------------------------------------------------
// GRC

func orgIDPtr(r *http.Request) *string {
	if id := tenancy.OrgIDFromContext(r.Context()); id != "" {
		return &id
	}
	return nil
}

func (s *Server) listRisks(w http.ResponseWriter, r *http.Request) {
	out, err := s.grc.ListRisks(orgIDPtr(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRisk(w http.ResponseWriter, r *http.Request) {
	risk, err := s.grc.GetRisk(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, risk)
}

func (s *Server) createRisk(w http.ResponseWriter, r *http.Request) {
	var risk grc.Risk
	if err := decodeBody(r, &risk); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}
	risk.OrgID = orgIDPtr(r)
	if err := s.grc.CreateRisk(&risk); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, risk)
}

func (s *Server) linkRiskControl(w http.ResponseWriter, r *http.Request) {
	if err := s.grc.LinkControl(chi.URLParam(r, "id"), chi.URLParam(r, "controlID")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "linked"})
}

func (s *Server) listControls(w http.ResponseWriter, r *http.Request) {
	out, err := s.grc.ListControls(orgIDPtr(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getControl(w http.ResponseWriter, r *http.Request) {
	c, err := s.grc.GetControl(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) createControl(w http.ResponseWriter, r *http.Request) {
	var c grc.Control
	if err := decodeBody(r, &c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}
	c.OrgID = orgIDPtr(r)
	if err := s.grc.CreateControl(&c); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
