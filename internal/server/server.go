// Package server exposes the read/create API over the entity graph, the
// ingestion audit trail, and the GRC records.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/graph"
	"github.com/cisoworks/asset-intelligence/pkg/grc"
	"github.com/cisoworks/asset-intelligence/pkg/ingest"
	"github.com/cisoworks/asset-intelligence/pkg/tenancy"
)

// Server wires the stores behind the HTTP API.
type Server struct {
	registry *entity.Registry
	resolver *entity.Resolver
	graph    *graph.Store
	ingest   *ingest.Store
	ingester *ingest.Ingester
	grc      *grc.Store
	tenants  *tenancy.Store
	features *tenancy.FeatureService
	// connectors holds the configured connector entries, keyed by source.
	connectors map[entity.SourceSystem]ingest.ConnectorConfig
	logger     *slog.Logger
}

// Options configures a Server.
type Options struct {
	Registry   *entity.Registry
	Resolver   *entity.Resolver
	Graph      *graph.Store
	Ingest     *ingest.Store
	Ingester   *ingest.Ingester
	GRC        *grc.Store
	Tenants    *tenancy.Store
	Features   *tenancy.FeatureService
	Connectors []ingest.ConnectorConfig
	Logger     *slog.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	conns := make(map[entity.SourceSystem]ingest.ConnectorConfig, len(opts.Connectors))
	for _, c := range opts.Connectors {
		conns[c.Source] = c
	}
	return &Server{
		registry:   opts.Registry,
		resolver:   opts.Resolver,
		graph:      opts.Graph,
		ingest:     opts.Ingest,
		ingester:   opts.Ingester,
		grc:        opts.GRC,
		tenants:    opts.Tenants,
		features:   opts.Features,
		connectors: conns,
		logger:     opts.Logger,
	}
}

// Router builds the HTTP router with all routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", tenancy.OrgHeader},
		MaxAge:         300,
	}))
	r.Use(tenancy.Middleware(s.tenants))

	r.Get("/healthz", s.healthHandler)
	r.Get("/livez", s.healthHandler)
	r.Get("/readyz", s.healthHandler)

	r.Route("/api/intel/v1", func(r chi.Router) {
		r.Use(s.requireFeature(tenancy.FeatureIntelligence))

		r.Get("/assets", s.listAssets)
		r.Post("/assets", s.createAsset)
		r.Get("/assets/{id}", s.getAsset)
		r.Get("/identities", s.listIdentities)
		r.Post("/identities", s.createIdentity)
		r.Get("/identities/{id}", s.getIdentity)
		r.Get("/groups", s.listGroups)
		r.Post("/groups", s.createGroup)
		r.Get("/groups/{id}", s.getGroup)
		r.Get("/environments", s.listEnvironments)
		r.Post("/environments", s.createEnvironment)
		r.Get("/environments/{id}", s.getEnvironment)
		r.Get("/locations", s.listLocations)
		r.Post("/locations", s.createLocation)
		r.Get("/locations/{id}", s.getLocation)
		r.Get("/teams", s.listTeams)
		r.Post("/teams", s.createTeam)
		r.Get("/teams/{id}", s.getTeam)
		r.Get("/business-services", s.listBusinessServices)
		r.Post("/business-services", s.createBusinessService)
		r.Get("/business-services/{id}", s.getBusinessService)

		r.Get("/entities/{type}/{id}/external-ids", s.listExternalIDs)
		r.Post("/external-ids", s.linkExternalID)
		r.Get("/entities/{type}/{id}/relationships", s.entityRelationships)

		r.Get("/relationships", s.queryRelationships)
		r.Post("/relationships", s.upsertRelationship)

		r.Get("/sync-runs", s.listSyncRuns)
		r.Get("/sync-runs/{id}", s.getSyncRun)
		r.Get("/sync-runs/{id}/records", s.listRunRecords)
		r.Post("/sync-runs/{source}", s.triggerIngest)
		r.Get("/raw-records/failed", s.listFailedRecords)
	})

	r.Route("/api/grc/v1", func(r chi.Router) {
		r.With(s.requireFeature(tenancy.FeatureRisks)).Get("/risks", s.listRisks)
		r.With(s.requireFeature(tenancy.FeatureRisks)).Post("/risks", s.createRisk)
		r.With(s.requireFeature(tenancy.FeatureRisks)).Get("/risks/{id}", s.getRisk)
		r.With(s.requireFeature(tenancy.FeatureRisks)).Post("/risks/{id}/controls/{controlID}", s.linkRiskControl)
		r.With(s.requireFeature(tenancy.FeatureControls)).Get("/controls", s.listControls)
		r.With(s.requireFeature(tenancy.FeatureControls)).Post("/controls", s.createControl)
		r.With(s.requireFeature(tenancy.FeatureControls)).Get("/controls/{id}", s.getControl)
	})

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireFeature rejects requests when the feature is off for the caller's
// org.
func (s *Server) requireFeature(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			enabled, err := s.features.Enabled(r.Context(), key)
			if err != nil {
				s.writeError(w, err)
				return
			}
			if !enabled {
				writeJSON(w, http.StatusForbidden, map[string]string{
					"error":   "feature_disabled",
					"message": "feature " + key + " is not enabled for this organization",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	var kind string
	var uniq *entity.UniquenessViolation
	var badEnum *entity.InvalidEnumValue
	var conflict *entity.ConflictingExternalID

	switch {
	case errors.Is(err, entity.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.As(err, &uniq):
		status, kind = http.StatusConflict, "uniqueness_violation"
	case errors.As(err, &conflict):
		status, kind = http.StatusConflict, "conflicting_external_id"
	case errors.As(err, &badEnum):
		status, kind = http.StatusBadRequest, "invalid_enum_value"
	default:
		status, kind = http.StatusInternalServerError, "internal_error"
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": kind, "message": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
