package router

import (
	"net/http"

	"support-console-backend/internal/api"
	"support-console-backend/internal/api/endpoints"
	"support-console-backend/internal/api/middleware"
	authservice "support-console-backend/internal/service/auth"
	conversationservice "support-console-backend/internal/service/conversation"
)

func ConversationRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		service := conversationservice.New(s.Database())
		auth := authservice.New(s.Database())
		convEndpoints := endpoints.NewConversationEndpoints(service, auth, prefix)

		mux.HandleFunc(prefix+"/conversations", s.MakeHTTPHandleFunc(convEndpoints.Conversations, middleware.ValidateOperatorJWT))
		mux.HandleFunc(prefix+"/conversations/", s.MakeHTTPHandleFunc(convEndpoints.ConversationActions, middleware.ValidateOperatorJWT))
		mux.HandleFunc(prefix+"/unread-counts", s.MakeHTTPHandleFunc(convEndpoints.UnreadCounts, middleware.ValidateOperatorJWT))
	}
}
