package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", ChainMiddleware(s.gate.Optional(s.IndexHandler()), s.HTMLMiddleWare()...))

	// LOGIN / REGISTER
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.gate.Optional(s.LoginPageUIHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteRegister, ChainMiddleware(s.gate.Optional(s.SignupGetHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteRegister, ChainMiddleware(s.SignupPostHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// ROLEPLAY
	s.RegisterRouteFunc("GET "+RouteDashboard, ChainMiddleware(s.gate.Require(s.DashboardHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteChat, ChainMiddleware(s.gate.Require(s.ChatPageHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteChatCreate, ChainMiddleware(s.gate.Require(s.ChatCreateGetHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteChatCreate, ChainMiddleware(s.gate.Require(s.ChatCreatePostHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteChatSession, ChainMiddleware(s.gate.Require(s.ChatSessionHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteChatEnd, ChainMiddleware(s.gate.Require(s.ChatEndHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteHTMXChat+"{$}", ChainMiddleware(s.gate.Require(s.HTMXChatHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteHTMXChatSession, ChainMiddleware(s.gate.Require(s.HTMXChatSessionHandler()), s.HTMLMiddleWare()...))

	// ACCOUNT
	s.RegisterRouteFunc("GET "+RouteSettings, ChainMiddleware(s.gate.Require(s.AccountSettingsHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteSettingsAccount, ChainMiddleware(s.gate.Require(s.AccountSettingsHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteSettingsUpdate, ChainMiddleware(s.gate.Require(s.UpdateAccountHandler()), s.HTMLMiddleWare()...))

	// CATALOG
	s.RegisterRouteFunc("GET "+RouteItems, ChainMiddleware(s.gate.Require(s.ItemsPageHandler()), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteHTMXAddItem+"{$}", ChainMiddleware(s.gate.Require(s.HTMXAddItemHandler()), s.HTMLMiddleWare()...))

	// API routes
	s.RegisterRouteFunc("POST "+RouteAPIRegister, ChainMiddleware(s.APIRegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAPILogin, ChainMiddleware(s.APILoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAPILogout, ChainMiddleware(s.APILogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAPIRefresh, ChainMiddleware(s.APIRefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAPIMe, ChainMiddleware(s.gate.RequireAPI(s.APIMeHandler()), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAPIItems+"{$}", ChainMiddleware(s.gate.RequireAPI(s.APIListItemsHandler()), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAPIItems+"{$}", ChainMiddleware(s.gate.RequireAPI(s.APIAddItemHandler()), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAPIChat+"{$}", ChainMiddleware(s.gate.RequireAPI(s.APIChatHandler()), s.APIMiddleware()...))
	// CORS preflight for every API route
	s.RegisterRouteFunc("OPTIONS /api/", ChainMiddleware(preflightHandler, s.APIMiddleware()...))

	// OPERATIONS
	s.RegisterRouteFunc("GET "+RouteMetrics, s.MetricsHandler())
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthHandler())

	s.RegisterRouteFunc("GET "+RouteStatic, ChainMiddleware(s.StaticFileHandler(), s.HTMLMiddleWare()...))
}

// preflightHandler answers OPTIONS requests the CORS middleware let through (no Origin).
func preflightHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
