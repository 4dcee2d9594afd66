package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Auth Routes
	RouteLogin    = "/login"
	RouteRegister = "/register"
	RouteLogout   = "/logout"

	// Roleplay Routes
	RouteDashboard   = "/dashboard"
	RouteChat        = "/chat"
	RouteChatCreate  = "/chat/create"
	RouteChatSession = "/chat/{id}"
	RouteChatEnd     = "/chat/{id}/end"

	// Account Routes
	RouteSettings        = "/settings"
	RouteSettingsAccount = "/settings/account"
	RouteSettingsUpdate  = "/settings/update"

	// Catalog Routes
	RouteItems = "/items"

	// HTMX fragment Routes
	RouteHTMXChat        = "/htmx/chat/"
	RouteHTMXChatSession = "/htmx/chat/{id}"
	RouteHTMXAddItem     = "/htmx/add/"

	// API Routes
	routeAPIAuthPrefix = "/api/auth/"
	RouteAPIRegister   = "/api/auth/register"
	RouteAPILogin      = "/api/auth/login"
	RouteAPILogout     = "/api/auth/logout"
	RouteAPIRefresh    = "/api/auth/refresh"
	RouteAPIMe         = "/api/auth/me"
	RouteAPIItems      = "/api/items/"
	RouteAPIChat       = "/api/chat/"

	// Operational Routes
	RouteMetrics = "/metrics"
	RouteHealthz = "/healthz"

	// Static Asset Routes (patterns)
	RouteStatic = "/static/{file}"
)

// chatSessionPath is the page of one roleplay session.
func chatSessionPath(id string) string {
	return "/chat/" + id
}
