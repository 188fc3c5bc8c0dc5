package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"support-console-backend/internal/api"
	"support-console-backend/internal/chat"
	"support-console-backend/internal/console"
	"support-console-backend/internal/dto"
	internaljwt "support-console-backend/internal/jwt"
	"support-console-backend/internal/session"
	"support-console-backend/internal/transport"
	"support-console-backend/internal/websocket"
)

// ConsoleEndpoints is the operator-facing surface of the console server. Every
// handler resolves the caller's session from the registry, performs one state
// transition and returns the resulting view. The same view is also pushed over
// the operator's websocket room, so polling and push clients stay in sync.
type ConsoleEndpoints interface {
	Session(http.ResponseWriter, *http.Request) error
	Channel(http.ResponseWriter, *http.Request) error
	Search(http.ResponseWriter, *http.Request) error
	Select(http.ResponseWriter, *http.Request) error
	Send(http.ResponseWriter, *http.Request) error
	Retry(http.ResponseWriter, *http.Request) error
	UnreadCounts(http.ResponseWriter, *http.Request) error
	Websocket(http.ResponseWriter, *http.Request) error
}

type consoleEndpoints struct {
	registry *console.Registry
	handler  *websocket.Handler
}

func NewConsoleEndpoints(registry *console.Registry, handler *websocket.Handler) ConsoleEndpoints {
	return &consoleEndpoints{
		registry: registry,
		handler:  handler,
	}
}

func (h *consoleEndpoints) Session(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleSessionView,
	})
}

func (h *consoleEndpoints) Channel(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSwitchChannel,
	})
}

func (h *consoleEndpoints) Search(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSearch,
	})
}

func (h *consoleEndpoints) Select(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSelect,
	})
}

func (h *consoleEndpoints) Send(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSend,
	})
}

func (h *consoleEndpoints) Retry(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRetry,
	})
}

func (h *consoleEndpoints) UnreadCounts(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleUnreadCounts,
	})
}

// Websocket upgrades the operator's push connection. Browsers cannot set an
// Authorization header on the upgrade request, so the token travels in the
// query string instead.
func (h *consoleEndpoints) Websocket(w http.ResponseWriter, r *http.Request) error {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	}

	identity, err := identityFromToken(token)
	if err != nil {
		return err
	}

	// Keep the session warm so pushes have a subscriber-side source even
	// before the first REST call.
	h.registry.GetOrCreate(identity, token)

	roomID := websocket.RoomID(identity.OperatorID)
	h.handler.CreateRoom(roomID)
	h.handler.JoinRoom(w, r, roomID, uuid.NewString())
	return nil
}

func (h *consoleEndpoints) handleSessionView(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}
	return api.WriteJSON(w, http.StatusOK, sess.View())
}

func (h *consoleEndpoints) handleSwitchChannel(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}

	var req dto.SwitchChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badPayload("decode switch channel request", err)
	}

	channel, err := chat.ParseChannel(req.Channel)
	if err != nil {
		return consoleError(err)
	}

	view, err := sess.SwitchChannel(r.Context(), channel, req.SearchTerm)
	if err != nil {
		return consoleError(err)
	}
	return api.WriteJSON(w, http.StatusOK, view)
}

func (h *consoleEndpoints) handleSearch(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}

	var req dto.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badPayload("decode search request", err)
	}

	view, err := sess.Search(r.Context(), req.SearchTerm)
	if err != nil {
		return consoleError(err)
	}
	return api.WriteJSON(w, http.StatusOK, view)
}

func (h *consoleEndpoints) handleSelect(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}

	var req dto.SelectConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badPayload("decode select conversation request", err)
	}

	var view dto.SessionView
	if strings.TrimSpace(req.ConversationID) == "" {
		view, err = sess.ClearSelection(r.Context())
	} else {
		view, err = sess.SelectConversation(r.Context(), req.ConversationID)
	}
	if err != nil {
		return consoleError(err)
	}
	return api.WriteJSON(w, http.StatusOK, view)
}

func (h *consoleEndpoints) handleSend(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badPayload("decode send message request", err)
	}

	msg, err := sess.Send(r.Context(), req.Content, req.AttachmentURL, req.TargetParticipantID)
	if err != nil {
		return consoleError(err)
	}
	return api.WriteJSON(w, http.StatusCreated, console.MessageView(msg))
}

func (h *consoleEndpoints) handleRetry(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}

	view, err := sess.Retry(r.Context())
	if err != nil {
		return consoleError(err)
	}
	return api.WriteJSON(w, http.StatusOK, view)
}

func (h *consoleEndpoints) handleUnreadCounts(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}

	counts, err := sess.Counts(r.Context())
	if err != nil {
		return consoleError(err)
	}
	return api.WriteJSON(w, http.StatusOK, dto.UnreadCountsResponse{
		Guest:     counts.Guest,
		Player:    counts.Player,
		Affiliate: counts.Affiliate,
	})
}

func (h *consoleEndpoints) session(r *http.Request) (*console.Session, error) {
	token := ExtractTokenFromHeaders(r)
	identity, err := identityFromToken(token)
	if err != nil {
		return nil, err
	}
	return h.registry.GetOrCreate(identity, token), nil
}

func identityFromToken(token string) (console.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return console.Identity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("missing bearer token"),
		}
	}

	claims, err := internaljwt.ParseToken(token, internaljwt.RoleOperator)
	if err != nil {
		return console.Identity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("parse operator token: %w", err),
		}
	}

	operator := internaljwt.OperatorFromClaims(claims)
	if operator.ID == "" {
		return console.Identity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("token missing operator id"),
		}
	}

	return console.Identity{
		OperatorID:  operator.ID,
		Email:       operator.Email,
		Role:        operator.Role,
		AffiliateID: operator.AffiliateID,
	}, nil
}

func badPayload(op string, err error) error {
	return &HTTPError{
		StatusCode: http.StatusBadRequest,
		Message:    "Invalid request payload",
		ErrorLog:   fmt.Errorf("%s: %w", op, err),
	}
}

// consoleError maps session failures onto HTTP statuses. Transport failures
// surface as 502 so the UI can distinguish platform outages from its own bad
// requests.
func consoleError(err error) error {
	if err == nil {
		return nil
	}

	var validationErr *chat.ValidationError
	if errors.As(err, &validationErr) {
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: validationErr.Error(), ErrorLog: err}
	}

	var channelErr *chat.ChannelError
	if errors.As(err, &channelErr) {
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: channelErr.Error(), ErrorLog: err}
	}

	if errors.Is(err, session.ErrNotReady) {
		return &HTTPError{StatusCode: http.StatusConflict, Message: "Conversation is still loading", ErrorLog: err}
	}

	if errors.Is(err, transport.ErrNotFound) {
		return &HTTPError{StatusCode: http.StatusNotFound, Message: "Conversation not found", ErrorLog: err}
	}

	var transportErr *transport.Error
	if errors.As(err, &transportErr) {
		return &HTTPError{StatusCode: http.StatusBadGateway, Message: "Support platform is unreachable", ErrorLog: err}
	}

	return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: err}
}
