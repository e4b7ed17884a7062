package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/graph"
)

func refFromRequest(r *http.Request) (entity.Ref, error) {
	ref := entity.Ref{
		Type: entity.Type(chi.URLParam(r, "type")),
		ID:   chi.URLParam(r, "id"),
	}
	return ref, ref.Validate()
}

func (s *Server) listExternalIDs(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.resolver.ExternalIDsOf(ref)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type linkExternalIDRequest struct {
	EntityType     entity.Type         `json:"entity_type"`
	EntityID       string              `json:"entity_id"`
	Source         entity.SourceSystem `json:"source"`
	ExternalID     string              `json:"external_id"`
	ExternalIDType string              `json:"external_id_type"`
}

func (s *Server) linkExternalID(w http.ResponseWriter, r *http.Request) {
	var req linkExternalIDRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}
	ref := entity.Ref{Type: req.EntityType, ID: req.EntityID}
	if err := s.resolver.Link(ref, req.Source, req.ExternalID, req.ExternalIDType); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "linked"})
}

func (s *Server) entityRelationships(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	dir := graph.Direction(r.URL.Query().Get("direction"))
	if dir == "" {
		dir = graph.DirectionBoth
	}
	var relType *graph.RelationshipType
	if v := r.URL.Query().Get("relationship_type"); v != "" {
		t := graph.RelationshipType(v)
		relType = &t
	}
	out, err := s.graph.Neighbors(ref, dir, relType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) queryRelationships(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f graph.Filter
	if v := q.Get("relationship_type"); v != "" {
		t := graph.RelationshipType(v)
		f.RelationshipType = &t
	}
	if v := q.Get("source"); v != "" {
		src := entity.SourceSystem(v)
		f.Source = &src
	}
	if ft, fid := q.Get("from_type"), q.Get("from_id"); ft != "" && fid != "" {
		ref := entity.Ref{Type: entity.Type(ft), ID: fid}
		f.From = &ref
	}
	if tt, tid := q.Get("to_type"), q.Get("to_id"); tt != "" && tid != "" {
		ref := entity.Ref{Type: entity.Type(tt), ID: tid}
		f.To = &ref
	}
	out, err := s.graph.Query(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type upsertRelationshipRequest struct {
	FromType         entity.Type            `json:"from_entity_type"`
	FromID           string                 `json:"from_entity_id"`
	ToType           entity.Type            `json:"to_entity_type"`
	ToID             string                 `json:"to_entity_id"`
	RelationshipType graph.RelationshipType `json:"relationship_type"`
	Source           entity.SourceSystem    `json:"source"`
	Confidence       *float64               `json:"confidence"`
	LastConfirmedAt  *time.Time             `json:"last_confirmed_at"`
}

func (s *Server) upsertRelationship(w http.ResponseWriter, r *http.Request) {
	var req upsertRelationshipRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}
	confidence := 1.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	edge, err := s.graph.Upsert(
		entity.Ref{Type: req.FromType, ID: req.FromID},
		entity.Ref{Type: req.ToType, ID: req.ToID},
		req.RelationshipType, req.Source, confidence, req.LastConfirmedAt,
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}
