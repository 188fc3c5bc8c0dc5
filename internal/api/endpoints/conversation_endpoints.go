package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"support-console-backend/internal/api"
	"support-console-backend/internal/dto"
	"support-console-backend/internal/model"
	authservice "support-console-backend/internal/service/auth"
	conversationservice "support-console-backend/internal/service/conversation"
)

type ConversationEndpoints interface {
	Conversations(http.ResponseWriter, *http.Request) error
	ConversationActions(http.ResponseWriter, *http.Request) error
	UnreadCounts(http.ResponseWriter, *http.Request) error
}

type ConversationPaths struct {
	ConversationsPath  string
	ConversationPrefix string
	UnreadCountsPath   string
}

type conversationEndpoints struct {
	service *conversationservice.Service
	auth    *authservice.Service
	paths   ConversationPaths
}

func NewConversationEndpoints(service *conversationservice.Service, auth *authservice.Service, prefix string) ConversationEndpoints {
	base := strings.TrimRight(prefix, "/")
	return NewConversationEndpointsWithPaths(service, auth, ConversationPaths{
		ConversationsPath:  base + "/conversations",
		ConversationPrefix: base + "/conversations/",
		UnreadCountsPath:   base + "/unread-counts",
	})
}

func NewConversationEndpointsWithPaths(service *conversationservice.Service, auth *authservice.Service, paths ConversationPaths) ConversationEndpoints {
	return &conversationEndpoints{
		service: service,
		auth:    auth,
		paths:   paths,
	}
}

func (h *conversationEndpoints) Conversations(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListConversations,
		http.MethodPost: h.handleCreateConversation,
	})
}

func (h *conversationEndpoints) ConversationActions(w http.ResponseWriter, r *http.Request) error {
	_, action, err := h.extractConversationPath(r.URL.Path)
	if err != nil {
		return err
	}

	switch action {
	case "messages":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet:  h.handleListMessages,
			http.MethodPost: h.handlePostMessage,
		})
	case "read":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleMarkRead,
		})
	default:
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Conversation not found",
			ErrorLog:   fmt.Errorf("unknown conversation action: %s", action),
		}
	}
}

func (h *conversationEndpoints) UnreadCounts(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleUnreadCounts,
	})
}

func (h *conversationEndpoints) handleListConversations(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	channel := strings.TrimSpace(r.URL.Query().Get("channel"))
	search := r.URL.Query().Get("search")

	result, err := h.service.ListConversations(r.Context(), identity, channel, search)
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.ListConversationsResponse{Conversations: make([]dto.ConversationRecord, len(result.Conversations))}
	for i, conv := range result.Conversations {
		resp.Conversations[i] = toConversationRecord(conv)
	}

	return api.WriteJSON(w, http.StatusOK, resp)
}

func (h *conversationEndpoints) handleCreateConversation(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode create conversation request: %w", err),
		}
	}

	result, err := h.service.CreateConversation(r.Context(), identity, conversationservice.CreateConversationParams{
		Content:             req.Content,
		AttachmentURL:       req.AttachmentURL,
		TargetParticipantID: req.TargetParticipantID,
	})
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.CreateConversationResponse{
		Conversation: toConversationRecord(result.Conversation),
		Message:      toMessageRecord(result.Message),
	}

	return api.WriteJSON(w, http.StatusCreated, resp)
}

func (h *conversationEndpoints) handleListMessages(w http.ResponseWriter, r *http.Request) error {
	conversationID, _, err := h.extractConversationPath(r.URL.Path)
	if err != nil {
		return err
	}

	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	result, err := h.service.ListMessages(r.Context(), identity, conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.ListMessagesResponse{Messages: make([]dto.MessageRecord, len(result.Messages))}
	for i, msg := range result.Messages {
		resp.Messages[i] = toMessageRecord(msg)
	}

	return api.WriteJSON(w, http.StatusOK, resp)
}

func (h *conversationEndpoints) handlePostMessage(w http.ResponseWriter, r *http.Request) error {
	conversationID, _, err := h.extractConversationPath(r.URL.Path)
	if err != nil {
		return err
	}

	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode post message request: %w", err),
		}
	}

	result, err := h.service.PostMessage(r.Context(), identity, conversationID, conversationservice.PostMessageParams{
		SenderID:      req.SenderID,
		SenderType:    req.SenderType,
		Content:       req.Content,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusCreated, toMessageRecord(result.Message))
}

func (h *conversationEndpoints) handleMarkRead(w http.ResponseWriter, r *http.Request) error {
	conversationID, _, err := h.extractConversationPath(r.URL.Path)
	if err != nil {
		return err
	}

	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	conversation, err := h.service.MarkRead(r.Context(), identity, conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, dto.MarkReadResponse{
		ConversationID: conversation.ConversationID,
		Unread:         conversation.Unread,
	})
}

func (h *conversationEndpoints) handleUnreadCounts(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	// Admin callers may narrow counts to one affiliate's slice.
	if identity.AffiliateID == "" {
		identity.AffiliateID = strings.TrimSpace(r.URL.Query().Get("affiliateId"))
	}

	result, err := h.service.UnreadCounts(r.Context(), identity)
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, dto.UnreadCountsResponse{
		Guest:     result.Guest,
		Player:    result.Player,
		Affiliate: result.Affiliate,
	})
}

func (h *conversationEndpoints) identity(r *http.Request) (conversationservice.Identity, error) {
	identity, err := h.auth.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return conversationservice.Identity{}, h.authError(err)
	}
	return conversationservice.Identity{
		OperatorID:  identity.OperatorID,
		Email:       identity.Email,
		Role:        identity.Role,
		AffiliateID: identity.AffiliateID,
	}, nil
}

func (h *conversationEndpoints) extractConversationPath(path string) (string, string, error) {
	prefix := h.paths.ConversationPrefix
	if prefix == "" {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Conversation not found", ErrorLog: fmt.Errorf("conversation routes not configured")}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Conversation not found", ErrorLog: fmt.Errorf("conversation path mismatch: %s", path)}
	}
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Conversation not found", ErrorLog: fmt.Errorf("invalid conversation path: %s", path)}
	}
	return parts[0], parts[1], nil
}

func (h *conversationEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*conversationservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("conversation service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		logErr = svcErr
	}

	switch svcErr.Code {
	case conversationservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeForbidden:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeConflict:
		return &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}

func (h *conversationEndpoints) authError(err error) error {
	svcErr, ok := err.(*authservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("auth service: %w", err),
		}
	}
	return &HTTPError{
		StatusCode: http.StatusUnauthorized,
		Message:    svcErr.Message,
		ErrorLog:   svcErr,
	}
}

func toConversationRecord(item model.ConversationItem) dto.ConversationRecord {
	return dto.ConversationRecord{
		ConversationID:        item.ConversationID,
		Channel:               item.Channel,
		ParticipantName:       item.ParticipantName,
		ParticipantEmail:      item.ParticipantEmail,
		LoginActive:           item.LoginActive,
		GuestTag:              item.GuestTag,
		Unread:                item.Unread,
		LastMessageBody:       item.LastMessageBody,
		LastMessageAt:         item.LastMessageAt,
		LastMessageAttachment: item.LastMessageAttachment,
		CreatedAt:             item.CreatedAt,
	}
}

func toMessageRecord(item model.MessageItem) dto.MessageRecord {
	return dto.MessageRecord{
		MessageID:      item.MessageID,
		ConversationID: item.ConversationID,
		SenderType:     item.SenderType,
		SenderID:       item.SenderID,
		Body:           item.Body,
		AttachmentURL:  item.AttachmentURL,
		CreatedAt:      item.CreatedAt,
	}
}
