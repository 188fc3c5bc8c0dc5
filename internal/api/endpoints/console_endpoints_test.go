package endpoints

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"support-console-backend/internal/api"
	"support-console-backend/internal/api/middleware"
	"support-console-backend/internal/chat"
	"support-console-backend/internal/console"
	"support-console-backend/internal/dto"
	"support-console-backend/internal/env"
	internaljwt "support-console-backend/internal/jwt"
	"support-console-backend/internal/model"
	"support-console-backend/internal/queue"
	"support-console-backend/internal/transport"
)

// stubPlatform is the minimal far side a console session needs: fixed lists
// and histories, plus an append-only send.
type stubPlatform struct {
	mu        sync.Mutex
	lists     map[chat.Channel][]chat.Conversation
	histories map[string][]chat.Message
	counts    transport.UnreadCounts
	sent      int
}

func newStubPlatform() *stubPlatform {
	return &stubPlatform{
		lists:     make(map[chat.Channel][]chat.Conversation),
		histories: make(map[string][]chat.Message),
	}
}

func (f *stubPlatform) ListConversations(ctx context.Context, channel chat.Channel, searchTerm string) ([]chat.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chat.Conversation, len(f.lists[channel]))
	copy(out, f.lists[channel])
	return out, nil
}

func (f *stubPlatform) FetchMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chat.Message, len(f.histories[conversationID]))
	copy(out, f.histories[conversationID])
	return out, nil
}

func (f *stubPlatform) CreateConversation(ctx context.Context, params transport.CreateParams) (transport.Created, error) {
	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	conv := chat.Conversation{ID: "new-1", Channel: chat.ChannelGuest, CreatedAt: now}
	msg := chat.Message{
		ID:             "new-m1",
		ConversationID: conv.ID,
		Sender:         chat.SenderOperator,
		Content:        params.InitialContent,
		CreatedAt:      now,
	}
	f.mu.Lock()
	f.histories[conv.ID] = []chat.Message{msg}
	f.lists[conv.Channel] = append([]chat.Conversation{conv}, f.lists[conv.Channel]...)
	f.mu.Unlock()
	return transport.Created{Conversation: conv, Message: msg}, nil
}

func (f *stubPlatform) SendMessage(ctx context.Context, params transport.SendParams) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	msg := chat.Message{
		ID:             "sent-1",
		ConversationID: params.ConversationID,
		Sender:         params.SenderType,
		SenderID:       params.SenderID,
		Content:        params.Content,
		CreatedAt:      time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}
	f.histories[params.ConversationID] = append(f.histories[params.ConversationID], msg)
	return msg, nil
}

func (f *stubPlatform) MarkRead(ctx context.Context, conversationID string, sender chat.SenderType) error {
	return nil
}

func (f *stubPlatform) UnreadCounts(ctx context.Context, scope transport.Scope) (transport.UnreadCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts, nil
}

func setupConsoleHandler(t *testing.T, platform *stubPlatform) (http.Handler, func()) {
	t.Helper()
	t.Setenv(env.OperatorSecretKey, "test-secret")

	registry := console.NewRegistry(
		func(tokens *console.TokenStore) transport.Client { return platform },
		nil,
	)
	consoleEndpoints := NewConsoleEndpoints(registry, nil)

	queueManager := queue.NewRequestQueueManager(10, 1)
	server := api.NewAPIServer(":0", queueManager, nil, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", server.MakeHTTPHandleFunc(consoleEndpoints.Session, middleware.ValidateOperatorJWT))
	mux.HandleFunc("/api/session/channel", server.MakeHTTPHandleFunc(consoleEndpoints.Channel, middleware.ValidateOperatorJWT))
	mux.HandleFunc("/api/session/search", server.MakeHTTPHandleFunc(consoleEndpoints.Search, middleware.ValidateOperatorJWT))
	mux.HandleFunc("/api/session/select", server.MakeHTTPHandleFunc(consoleEndpoints.Select, middleware.ValidateOperatorJWT))
	mux.HandleFunc("/api/session/send", server.MakeHTTPHandleFunc(consoleEndpoints.Send, middleware.ValidateOperatorJWT))
	mux.HandleFunc("/api/session/retry", server.MakeHTTPHandleFunc(consoleEndpoints.Retry, middleware.ValidateOperatorJWT))
	mux.HandleFunc("/api/unread-counts", server.MakeHTTPHandleFunc(consoleEndpoints.UnreadCounts, middleware.ValidateOperatorJWT))

	return mux, func() {
		queueManager.Shutdown()
	}
}

func consoleHeaders(t *testing.T) map[string]string {
	t.Helper()
	token := operatorToken(t, internaljwt.Operator{
		ID:    "op-1",
		Email: "op@example.com",
		Role:  model.RoleAdmin,
	})
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestConsoleSessionFlow(t *testing.T) {
	platform := newStubPlatform()
	platform.lists[chat.ChannelPlayer] = []chat.Conversation{
		{ID: "P1", Channel: chat.ChannelPlayer, Unread: true, CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "P2", Channel: chat.ChannelPlayer, CreatedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
	}
	platform.histories["P1"] = []chat.Message{
		{ID: "m1", ConversationID: "P1", Sender: chat.SenderCounterpart, Content: "hello", CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
	}
	platform.histories["P2"] = []chat.Message{}
	platform.counts = transport.UnreadCounts{Player: 1}

	handler, cleanup := setupConsoleHandler(t, platform)
	defer cleanup()
	headers := consoleHeaders(t)

	view := doJSONRequest[dto.SessionView](t, handler, http.MethodPost, "/api/session/channel",
		dto.SwitchChannelRequest{Channel: "player"}, headers, http.StatusOK)
	if len(view.Conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(view.Conversations))
	}
	if view.Selected == nil || view.Selected.ConversationID != "P1" {
		t.Fatalf("expected first conversation auto-selected, got %#v", view.Selected)
	}
	if view.Status != "ready" {
		t.Fatalf("expected ready view, got %s", view.Status)
	}
	if len(view.Messages) != 1 || view.Messages[0].Body != "hello" {
		t.Fatalf("expected history of P1, got %#v", view.Messages)
	}

	view = doJSONRequest[dto.SessionView](t, handler, http.MethodPost, "/api/session/select",
		dto.SelectConversationRequest{ConversationID: "P2"}, headers, http.StatusOK)
	if view.Selected == nil || view.Selected.ConversationID != "P2" {
		t.Fatalf("expected P2 selected, got %#v", view.Selected)
	}

	msg := doJSONRequest[dto.MessageRecord](t, handler, http.MethodPost, "/api/session/send",
		dto.SendMessageRequest{Content: "on it"}, headers, http.StatusCreated)
	if msg.ConversationID != "P2" || msg.Body != "on it" {
		t.Fatalf("unexpected sent message: %#v", msg)
	}
	if platform.sent != 1 {
		t.Fatalf("expected 1 send on the platform, got %d", platform.sent)
	}

	counts := doJSONRequest[dto.UnreadCountsResponse](t, handler, http.MethodGet, "/api/unread-counts", nil, headers, http.StatusOK)
	if counts.Player != 1 {
		t.Fatalf("expected 1 unread player conversation, got %d", counts.Player)
	}

	snapshot := doJSONRequest[dto.SessionView](t, handler, http.MethodGet, "/api/session", nil, headers, http.StatusOK)
	if snapshot.Selected == nil || snapshot.Selected.ConversationID != "P2" {
		t.Fatalf("expected snapshot to keep P2 selected, got %#v", snapshot.Selected)
	}
}

func TestConsoleRejectsUnknownChannel(t *testing.T) {
	platform := newStubPlatform()
	handler, cleanup := setupConsoleHandler(t, platform)
	defer cleanup()
	headers := consoleHeaders(t)

	resp := doJSONRequest[api.ApiError](t, handler, http.MethodPost, "/api/session/channel",
		dto.SwitchChannelRequest{Channel: "smoke-signal"}, headers, http.StatusBadRequest)
	if resp.Error == "" {
		t.Fatal("expected error message in response")
	}
}

func TestConsoleSelectOutsideListIs404(t *testing.T) {
	platform := newStubPlatform()
	handler, cleanup := setupConsoleHandler(t, platform)
	defer cleanup()
	headers := consoleHeaders(t)

	doJSONRequest[api.ApiError](t, handler, http.MethodPost, "/api/session/select",
		dto.SelectConversationRequest{ConversationID: "ghost"}, headers, http.StatusNotFound)
}

func TestConsoleClearSelection(t *testing.T) {
	platform := newStubPlatform()
	platform.lists[chat.ChannelGuest] = []chat.Conversation{
		{ID: "G1", Channel: chat.ChannelGuest, CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
	}
	platform.histories["G1"] = []chat.Message{}

	handler, cleanup := setupConsoleHandler(t, platform)
	defer cleanup()
	headers := consoleHeaders(t)

	view := doJSONRequest[dto.SessionView](t, handler, http.MethodPost, "/api/session/channel",
		dto.SwitchChannelRequest{Channel: "guest"}, headers, http.StatusOK)
	if view.Selected == nil {
		t.Fatal("expected auto-selection")
	}

	view = doJSONRequest[dto.SessionView](t, handler, http.MethodPost, "/api/session/select",
		dto.SelectConversationRequest{}, headers, http.StatusOK)
	if view.Selected != nil {
		t.Fatalf("expected cleared selection, got %#v", view.Selected)
	}
	if view.Status != "idle" {
		t.Fatalf("expected idle view after clearing, got %s", view.Status)
	}
}
