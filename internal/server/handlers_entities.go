package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

func listOptionsFromQuery(r *http.Request) entity.ListOptions {
	q := r.URL.Query()
	opts := entity.ListOptions{
		OrderBy: q.Get("order_by"),
		Desc:    q.Get("desc") == "true",
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		opts.Offset = n
	}
	return opts
}

func strParam(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

// ---------------------------------------------------------------------------
// Assets

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entity.AssetListFilter{
		Name:          strParam(r, "name"),
		OwnerTeamID:   strParam(r, "owner_team_id"),
		EnvironmentID: strParam(r, "environment_id"),
		LocationID:    strParam(r, "location_id"),
		ListOptions:   listOptionsFromQuery(r),
	}
	if v := q.Get("type"); v != "" {
		t := entity.AssetType(v)
		f.Type = &t
	}
	if v := q.Get("criticality"); v != "" {
		c := entity.Criticality(v)
		f.Criticality = &c
	}
	if v := q.Get("lifecycle_state"); v != "" {
		l := entity.LifecycleState(v)
		f.LifecycleState = &l
	}
	if v := q.Get("data_classification"); v != "" {
		d := entity.DataClassification(v)
		f.DataClassification = &d
	}
	out, err := s.registry.ListAssets(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	a, err := s.registry.GetAsset(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	var a entity.Asset
	if err := decodeBody(r, &a); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}
	if err := s.registry.CreateAsset(&a); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ---------------------------------------------------------------------------
// Identities

func (s *Server) listIdentities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entity.IdentityListFilter{
		Username:    strParam(r, "username"),
		Email:       strParam(r, "email"),
		OwnerTeamID: strParam(r, "owner_team_id"),
		ListOptions: listOptionsFromQuery(r),
	}
	if v := q.Get("type"); v != "" {
		t := entity.IdentityType(v)
		f.Type = &t
	}
	if v := q.Get("status"); v != "" {
		st := entity.IdentityStatus(v)
		f.Status = &st
	}
	out, err := s.registry.ListIdentities(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getIdentity(w http.ResponseWriter, r *http.Request) {
	i, err := s.registry.GetIdentity(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, i)
}

func (s *Server) createIdentity(w http.ResponseWriter, r *http.Request) {
	var i entity.Identity
	if err := decodeBody(r, &i); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}
	if err := s.registry.CreateIdentity(&i); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, i)
}

// ---------------------------------------------------------------------------
// Groups

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entity.GroupListFilter{
		Name:        strParam(r, "name"),
		OwnerTeamID: strParam(r, "owner_team_id"),
		ListOptions: listOptionsFromQuery(r),
	}
	if v := q.Get("type"); v != "" {
		t := entity.GroupType(v)
		f.Type = &t
	}
	out, err := s.registry.ListGroups(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.registry.GetGroup(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var g entity.Group
	if err := decodeBody(r, &g); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}
	if err := s.registry.CreateGroup(&g); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// ---------------------------------------------------------------------------
// Environments

func (s *Server) listEnvironments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entity.EnvironmentListFilter{
		Type:        strParam(r, "type"),
		Name:        strParam(r, "name"),
		OwnerTeamID: strParam(r, "owner_team_id"),
		ListOptions: listOptionsFromQuery(r),
	}
	if v := q.Get("criticality"); v != "" {
		c := entity.Criticality(v)
		f.Criticality = &c
	}
	if v := q.Get("lifecycle_state"); v != "" {
		l := entity.LifecycleState(v)
		f.LifecycleState = &l
	}
	out, err := s.registry.ListEnvironments(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getEnvironment(w http.ResponseWriter, r *http.Request) {
	e, err := s.registry.GetEnvironment(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) createEnvironment(w http.ResponseWriter, r *http.Request) {
	var e entity.Environment
	if err := decodeBody(r, &e); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}
	if err := s.registry.CreateEnvironment(&e); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// ---------------------------------------------------------------------------
// Locations

func (s *Server) listLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entity.LocationListFilter{
		Name:        strParam(r, "name"),
		ListOptions: listOptionsFromQuery(r),
	}
	if v := q.Get("type"); v != "" {
		t := entity.LocationType(v)
		f.Type = &t
	}
	if v := q.Get("tier"); v != "" {
		c := entity.Criticality(v)
		f.Tier = &c
	}
	out, err := s.registry.ListLocations(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getLocation(w http.ResponseWriter, r *http.Request) {
	l, err := s.registry.GetLocation(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) createLocation(w http.ResponseWriter, r *http.Request) {
	var l entity.Location
	if err := decodeBody(r, &l); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}
	if err := s.registry.CreateLocation(&l); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// ---------------------------------------------------------------------------
// Teams

func (s *Server) listTeams(w http.ResponseWriter, r *http.Request) {
	f := entity.TeamListFilter{
		Name:        strParam(r, "name"),
		ParentID:    strParam(r, "parent_team_id"),
		ListOptions: listOptionsFromQuery(r),
	}
	if v := r.URL.Query().Get("criticality"); v != "" {
		c := entity.Criticality(v)
		f.Criticality = &c
	}
	out, err := s.registry.ListTeams(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTeam(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.GetTeam(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) createTeam(w http.ResponseWriter, r *http.Request) {
	var t entity.Team
	if err := decodeBody(r, &t); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}
	if err := s.registry.CreateTeam(&t); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ---------------------------------------------------------------------------
// Business services

func (s *Server) listBusinessServices(w http.ResponseWriter, r *http.Request) {
	f := entity.BusinessServiceListFilter{
		Name:        strParam(r, "name"),
		OwnerTeamID: strParam(r, "owner_team_id"),
		ListOptions: listOptionsFromQuery(r),
	}
	if v := r.URL.Query().Get("criticality"); v != "" {
		c := entity.Criticality(v)
		f.Criticality = &c
	}
	out, err := s.registry.ListBusinessServices(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getBusinessService(w http.ResponseWriter, r *http.Request) {
	b, err := s.registry.GetBusinessService(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) createBusinessService(w http.ResponseWriter, r *http.Request) {
	var b entity.BusinessService
	if err := decodeBody(r, &b); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}
	if err := s.registry.CreateBusinessService(&b); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}
