package router

import (
	"net/http"

	"support-console-backend/internal/api"
	"support-console-backend/internal/api/endpoints"
	"support-console-backend/internal/api/middleware"
)

func AuthRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		authEndpoints := endpoints.NewAuthEndpoints(s.Database())
		mux.HandleFunc(prefix+"/auth/login", s.MakeHTTPHandleFunc(authEndpoints.Login))
		mux.HandleFunc(prefix+"/auth/refresh", s.MakeHTTPHandleFunc(authEndpoints.Refresh))
		mux.HandleFunc(prefix+"/auth/me", s.MakeHTTPHandleFunc(authEndpoints.Me, middleware.ValidateOperatorJWT))
		mux.HandleFunc(prefix+"/auth/operators", s.MakeHTTPHandleFunc(authEndpoints.Operators, middleware.ValidateOperatorJWT))
	}
}
