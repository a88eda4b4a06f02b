package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	policyfactory "tessera/contexts/naming/policy-factory"
	registryservice "tessera/contexts/naming/registry-service"
	feepolicy "tessera/contexts/policies/fee-policy"
	savingspolicy "tessera/contexts/policies/savings-policy"
	splitpolicy "tessera/contexts/policies/split-policy"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "tessera/internal/platform/httpserver/docs"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	registry registryservice.Module
	factory  policyfactory.Module
	split    splitpolicy.Module
	savings  savingspolicy.Module
	fees     feepolicy.Module
}

func New(
	registry registryservice.Module,
	factory policyfactory.Module,
	split splitpolicy.Module,
	savings savingspolicy.Module,
	fees feepolicy.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		registry: registry,
		factory:  factory,
		split:    split,
		savings:  savings,
		fees:     fees,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.registerRegistryRoutes()
	s.registerFactoryRoutes()
	s.registerSplitRoutes()
	s.registerSavingsRoutes()
	s.registerFeeRoutes()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// resolveActor reads the acting account address. Mutating routes that
// carry the actor in the body skip this helper.
func resolveActor(r *http.Request) string {
	return r.Header.Get("X-Actor-Id")
}

func parsePage(r *http.Request) (limit int, offset int, ok bool) {
	query := r.URL.Query()
	if raw := query.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, false
		}
		limit = v
	}
	if raw := query.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, false
		}
		offset = v
	}
	return limit, offset, true
}
