package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/catalog"
	"github.com/jrsteele09/go-roleplay-desk/chat"
	"github.com/jrsteele09/go-roleplay-desk/identity"
	"github.com/jrsteele09/go-roleplay-desk/internal/config"
	"github.com/jrsteele09/go-roleplay-desk/session"
	"github.com/jrsteele09/go-roleplay-desk/token"
)

// Dependencies are the collaborators the server is built from. The command wires the real
// adapters; tests wire the in-memory fakes.
type Dependencies struct {
	Identity identity.Client
	Codec    *token.Codec
	Catalog  *catalog.Service
	Chat     *chat.Service
	// Registry receives the application metrics. A private registry is created when nil.
	Registry *prometheus.Registry
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	handler  http.Handler
	routes   []string
	config   config.Config
	identity identity.Client
	resolver *session.Resolver
	gate     *session.Gate
	refresh  *session.RefreshMiddleware
	catalog  *catalog.Service
	chat     *chat.Service
	registry *prometheus.Registry
	metrics  *httpMetrics
}

func New(cfg config.Config, deps Dependencies) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	resolver := session.NewResolver(deps.Identity,
		session.WithTimeout(cfg.GetIdentityTimeout()),
		session.WithMetrics(session.NewMetrics(registry)),
	)

	gateOpts := []session.GateOption{
		session.WithLoginPath(RouteLogin),
		session.WithEntryPaths(RouteRegister, routeAPIAuthPrefix),
		session.WithNextMaxAge(cfg.GetNextCookieMaxAge()),
	}
	if cfg.GetTrustLocalClaims() {
		gateOpts = append(gateOpts, session.WithLocalClaims(deps.Codec))
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		identity: deps.Identity,
		resolver: resolver,
		gate:     session.NewGate(resolver, gateOpts...),
		refresh:  session.NewRefreshMiddleware(deps.Codec, resolver, gateOpts...),
		catalog:  deps.Catalog,
		chat:     deps.Chat,
		registry: registry,
		metrics:  newHTTPMetrics(registry),
	}

	s.initRoutes()
	s.logRoutes()

	// Every request passes the refresh middleware before it is routed, so a handler never
	// sees an access token that expired while a refresh token was still available. Logging
	// and recovery sit outside it so its redirects are logged and counted too.
	s.handler = middleware.RequestID(middleware.RealIP(
		ChainMiddleware(s.refresh.Middleware(s.mux.ServeHTTP), s.LoggingMiddleware, s.RecoverMiddleware),
	))

	return s, nil
}

func (d Dependencies) validate() error {
	var missing []string
	if d.Identity == nil {
		missing = append(missing, "identity client")
	}
	if d.Codec == nil {
		missing = append(missing, "token codec")
	}
	if d.Catalog == nil {
		missing = append(missing, "catalog service")
	}
	if d.Chat == nil {
		missing = append(missing, "chat service")
	}
	if len(missing) > 0 {
		return errors.New("missing dependencies: " + strings.Join(missing, ", "))
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
