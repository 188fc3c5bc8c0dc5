package router

import (
	"net/http"

	"support-console-backend/internal/api"
	"support-console-backend/internal/api/endpoints"
	"support-console-backend/internal/api/middleware"
)

// ConsoleRoutes wires the operator console surface. The websocket route skips
// the JWT middleware because the upgrade request authenticates via query
// token inside the endpoint itself.
func ConsoleRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		consoleEndpoints := endpoints.NewConsoleEndpoints(s.Registry(), s.Handler())

		mux.HandleFunc(prefix+"/session", s.MakeHTTPHandleFunc(consoleEndpoints.Session, middleware.ValidateOperatorJWT))
		mux.HandleFunc(prefix+"/session/channel", s.MakeHTTPHandleFunc(consoleEndpoints.Channel, middleware.ValidateOperatorJWT))
		mux.HandleFunc(prefix+"/session/search", s.MakeHTTPHandleFunc(consoleEndpoints.Search, middleware.ValidateOperatorJWT))
		mux.HandleFunc(prefix+"/session/select", s.MakeHTTPHandleFunc(consoleEndpoints.Select, middleware.ValidateOperatorJWT))
		mux.HandleFunc(prefix+"/session/send", s.MakeHTTPHandleFunc(consoleEndpoints.Send, middleware.ValidateOperatorJWT))
		mux.HandleFunc(prefix+"/session/retry", s.MakeHTTPHandleFunc(consoleEndpoints.Retry, middleware.ValidateOperatorJWT))
		mux.HandleFunc(prefix+"/unread-counts", s.MakeHTTPHandleFunc(consoleEndpoints.UnreadCounts, middleware.ValidateOperatorJWT))
		mux.HandleFunc(prefix+"/ws", s.MakeHTTPHandleFunc(consoleEndpoints.Websocket))
	}
}
