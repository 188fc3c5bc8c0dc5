package conversation

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"support-console-backend/internal/model"
)

type memoryRepository struct {
	mu            sync.Mutex
	conversations map[string]model.ConversationItem
	messages      map[string][]model.MessageItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		conversations: make(map[string]model.ConversationItem),
		messages:      make(map[string][]model.MessageItem),
	}
}

func (m *memoryRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversation.ConversationID] = conversation
	return nil
}

func (m *memoryRepository) GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return model.ConversationItem{}, ErrNotFound
	}
	return conversation, nil
}

func (m *memoryRepository) FindConversationByParticipant(ctx context.Context, channel, participantID string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.Channel == channel && c.ParticipantID == participantID {
			return c, nil
		}
	}
	return model.ConversationItem{}, ErrNotFound
}

func (m *memoryRepository) ListConversations(ctx context.Context, channel string) ([]model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]model.ConversationItem, 0)
	for _, c := range m.conversations {
		if c.Channel == channel {
			items = append(items, c)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].LastMessageAt != items[j].LastMessageAt {
			return items[i].LastMessageAt > items[j].LastMessageAt
		}
		return items[i].ConversationID > items[j].ConversationID
	})
	return items, nil
}

func (m *memoryRepository) UpdateConversationPreview(ctx context.Context, conversationID, body string, hasAttachment bool, at string, unread *bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conversation.LastMessageBody = body
	conversation.LastMessageAttachment = hasAttachment
	conversation.LastMessageAt = at
	conversation.UpdatedAt = at
	if unread != nil {
		conversation.Unread = *unread
	}
	m.conversations[conversationID] = conversation
	return nil
}

func (m *memoryRepository) SetConversationRead(ctx context.Context, conversationID, updatedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conversation.Unread = false
	conversation.UpdatedAt = updatedAt
	m.conversations[conversationID] = conversation
	return nil
}

func (m *memoryRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[message.ConversationID] = append(m.messages[message.ConversationID], message)
	return nil
}

func (m *memoryRepository) ListMessages(ctx context.Context, conversationID string) ([]model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]model.MessageItem, 0, len(m.messages[conversationID]))
	items = append(items, m.messages[conversationID]...)
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt != items[j].CreatedAt {
			return items[i].CreatedAt < items[j].CreatedAt
		}
		return items[i].MessageID < items[j].MessageID
	})
	return items, nil
}

func (m *memoryRepository) ListUnreadConversations(ctx context.Context, channel string) ([]model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]model.ConversationItem, 0)
	for _, c := range m.conversations {
		if c.Channel == channel && c.Unread {
			items = append(items, c)
		}
	}
	return items, nil
}

func testService(repo *memoryRepository) (*Service, time.Time) {
	now := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	return NewWithRepository(repo, func() time.Time { return now }), now
}

var adminIdentity = Identity{OperatorID: "op-1", Email: "op@example.com", Role: model.RoleAdmin}

func TestCreateGuestConversation(t *testing.T) {
	repo := newMemoryRepository()
	svc, now := testService(repo)

	result, err := svc.CreateConversation(context.Background(), adminIdentity, CreateConversationParams{
		Content: "Hello there",
	})
	if err != nil {
		t.Fatalf("CreateConversation error: %v", err)
	}

	if result.Conversation.Channel != model.ChannelGuest {
		t.Fatalf("expected guest channel, got %s", result.Conversation.Channel)
	}
	if result.Conversation.GuestTag == "" {
		t.Fatal("expected guest tag")
	}
	if result.Message.Body != "Hello there" {
		t.Fatalf("unexpected message body %s", result.Message.Body)
	}
	if result.Message.SenderType != SenderTypeOperator {
		t.Fatalf("unexpected sender type %s", result.Message.SenderType)
	}
	if result.Conversation.LastMessageAt != now.Format(time.RFC3339) {
		t.Fatalf("unexpected lastMessageAt %s", result.Conversation.LastMessageAt)
	}
}

func TestCreateConversationReusesPlayerThread(t *testing.T) {
	repo := newMemoryRepository()
	svc, _ := testService(repo)

	first, err := svc.CreateConversation(context.Background(), adminIdentity, CreateConversationParams{
		Content:             "Hi",
		TargetParticipantID: "player:p-77",
	})
	if err != nil {
		t.Fatalf("CreateConversation error: %v", err)
	}
	if first.Conversation.Channel != model.ChannelPlayer {
		t.Fatalf("expected player channel, got %s", first.Conversation.Channel)
	}
	if first.Conversation.ParticipantID != "p-77" {
		t.Fatalf("unexpected participant %s", first.Conversation.ParticipantID)
	}

	second, err := svc.CreateConversation(context.Background(), adminIdentity, CreateConversationParams{
		Content:             "Hi again",
		TargetParticipantID: "player:p-77",
	})
	if err != nil {
		t.Fatalf("CreateConversation error: %v", err)
	}
	if second.Conversation.ConversationID != first.Conversation.ConversationID {
		t.Fatal("expected existing player thread to be reused")
	}

	messages, err := svc.ListMessages(context.Background(), adminIdentity, first.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("ListMessages error: %v", err)
	}
	if len(messages.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages.Messages))
	}
}

func TestCreateConversationRejectsBadTarget(t *testing.T) {
	repo := newMemoryRepository()
	svc, _ := testService(repo)

	for _, target := range []string{"player:", "tenant:x", "p-77"} {
		_, err := svc.CreateConversation(context.Background(), adminIdentity, CreateConversationParams{
			Content:             "Hi",
			TargetParticipantID: target,
		})
		if err == nil {
			t.Fatalf("expected error for target %q", target)
		}
		svcErr, ok := err.(*Error)
		if !ok {
			t.Fatalf("expected *Error, got %T", err)
		}
		if svcErr.Code != ErrorCodeValidation {
			t.Fatalf("expected validation error for %q, got %s", target, svcErr.Code)
		}
	}
}

func TestCreateConversationRequiresContentOrAttachment(t *testing.T) {
	repo := newMemoryRepository()
	svc, _ := testService(repo)

	_, err := svc.CreateConversation(context.Background(), adminIdentity, CreateConversationParams{})
	if err == nil {
		t.Fatal("expected error for empty message")
	}

	result, err := svc.CreateConversation(context.Background(), adminIdentity, CreateConversationParams{
		AttachmentURL: "https://files.example.com/receipt.png",
	})
	if err != nil {
		t.Fatalf("attachment-only create error: %v", err)
	}
	if !result.Conversation.LastMessageAttachment {
		t.Fatal("expected attachment flag on preview")
	}
}

func TestPostCounterpartMessageFlagsUnread(t *testing.T) {
	repo := newMemoryRepository()
	svc, _ := testService(repo)

	created, err := svc.CreateConversation(context.Background(), adminIdentity, CreateConversationParams{
		Content:             "Welcome",
		TargetParticipantID: "player:p-1",
	})
	if err != nil {
		t.Fatalf("CreateConversation error: %v", err)
	}
	if created.Conversation.Unread {
		t.Fatal("operator-opened thread should not start unread")
	}

	result, err := svc.PostMessage(context.Background(), adminIdentity, created.Conversation.ConversationID, PostMessageParams{
		SenderType: SenderTypeCounterpart,
		SenderID:   "p-1",
		Content:    "Need help with a payout",
	})
	if err != nil {
		t.Fatalf("PostMessage error: %v", err)
	}
	if !result.Conversation.Unread {
		t.Fatal("counterpart message should flag conversation unread")
	}

	reply, err := svc.PostMessage(context.Background(), adminIdentity, created.Conversation.ConversationID, PostMessageParams{
		SenderType: SenderTypeOperator,
		Content:    "Looking into it",
	})
	if err != nil {
		t.Fatalf("PostMessage error: %v", err)
	}
	if !reply.Conversation.Unread {
		t.Fatal("operator reply must not clear the unread flag")
	}
}

func TestMarkReadClearsUnreadAndIsIdempotent(t *testing.T) {
	repo := newMemoryRepository()
	svc, _ := testService(repo)

	created, err := svc.CreateConversation(context.Background(), adminIdentity, CreateConversationParams{
		Content:             "Welcome",
		TargetParticipantID: "player:p-1",
	})
	if err != nil {
		t.Fatalf("CreateConversation error: %v", err)
	}

	if _, err := svc.PostMessage(context.Background(), adminIdentity, created.Conversation.ConversationID, PostMessageParams{
		SenderType: SenderTypeCounterpart,
		SenderID:   "p-1",
		Content:    "Hello?",
	}); err != nil {
		t.Fatalf("PostMessage error: %v", err)
	}

	marked, err := svc.MarkRead(context.Background(), adminIdentity, created.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("MarkRead error: %v", err)
	}
	if marked.Unread {
		t.Fatal("expected unread cleared")
	}

	again, err := svc.MarkRead(context.Background(), adminIdentity, created.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("repeat MarkRead error: %v", err)
	}
	if again.Unread {
		t.Fatal("repeat MarkRead should stay read")
	}
}

func TestListConversationsFiltersBySearch(t *testing.T) {
	repo := newMemoryRepository()
	svc, now := testService(repo)
	nowStr := now.Format(time.RFC3339)

	repo.conversations["c-1"] = model.ConversationItem{
		ConversationID:   "c-1",
		Channel:          model.ChannelPlayer,
		ParticipantID:    "p-1",
		ParticipantName:  "Alice Cooper",
		ParticipantEmail: "alice@example.com",
		LastMessageAt:    nowStr,
		CreatedAt:        nowStr,
	}
	repo.conversations["c-2"] = model.ConversationItem{
		ConversationID:  "c-2",
		Channel:         model.ChannelPlayer,
		ParticipantID:   "p-2",
		ParticipantName: "Bob",
		LastMessageAt:   nowStr,
		CreatedAt:       nowStr,
	}

	result, err := svc.ListConversations(context.Background(), adminIdentity, model.ChannelPlayer, "alice")
	if err != nil {
		t.Fatalf("ListConversations error: %v", err)
	}
	if len(result.Conversations) != 1 {
		t.Fatalf("expected 1 match, got %d", len(result.Conversations))
	}
	if result.Conversations[0].ConversationID != "c-1" {
		t.Fatalf("unexpected match %s", result.Conversations[0].ConversationID)
	}
}

func TestListConversationsRejectsUnknownChannel(t *testing.T) {
	repo := newMemoryRepository()
	svc, _ := testService(repo)

	_, err := svc.ListConversations(context.Background(), adminIdentity, "vip", "")
	if err == nil {
		t.Fatal("expected error for unknown channel")
	}
	svcErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if svcErr.Code != ErrorCodeValidation {
		t.Fatalf("expected validation error, got %s", svcErr.Code)
	}
}

func TestAffiliateOperatorIsScoped(t *testing.T) {
	repo := newMemoryRepository()
	svc, now := testService(repo)
	nowStr := now.Format(time.RFC3339)

	affiliate := Identity{OperatorID: "op-aff", Role: model.RoleAffiliate, AffiliateID: "aff-1"}

	repo.conversations["c-own"] = model.ConversationItem{
		ConversationID: "c-own",
		Channel:        model.ChannelAffiliate,
		ParticipantID:  "a-1",
		AffiliateID:    "aff-1",
		Unread:         true,
		LastMessageAt:  nowStr,
		CreatedAt:      nowStr,
	}
	repo.conversations["c-other"] = model.ConversationItem{
		ConversationID: "c-other",
		Channel:        model.ChannelAffiliate,
		ParticipantID:  "a-2",
		AffiliateID:    "aff-2",
		Unread:         true,
		LastMessageAt:  nowStr,
		CreatedAt:      nowStr,
	}

	list, err := svc.ListConversations(context.Background(), affiliate, model.ChannelAffiliate, "")
	if err != nil {
		t.Fatalf("ListConversations error: %v", err)
	}
	if len(list.Conversations) != 1 || list.Conversations[0].ConversationID != "c-own" {
		t.Fatalf("expected only the affiliate's own conversation, got %+v", list.Conversations)
	}

	if _, err := svc.ListConversations(context.Background(), affiliate, model.ChannelGuest, ""); err == nil {
		t.Fatal("expected forbidden error for guest channel")
	}

	if _, err := svc.ListMessages(context.Background(), affiliate, "c-other"); err == nil {
		t.Fatal("expected foreign conversation to be hidden")
	}

	counts, err := svc.UnreadCounts(context.Background(), affiliate)
	if err != nil {
		t.Fatalf("UnreadCounts error: %v", err)
	}
	if counts.Affiliate != 1 || counts.Guest != 0 || counts.Player != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestUnreadCountsPerChannel(t *testing.T) {
	repo := newMemoryRepository()
	svc, now := testService(repo)
	nowStr := now.Format(time.RFC3339)

	for i, channel := range []string{model.ChannelGuest, model.ChannelGuest, model.ChannelPlayer} {
		id := string(rune('a' + i))
		repo.conversations[id] = model.ConversationItem{
			ConversationID: id,
			Channel:        channel,
			ParticipantID:  "p-" + id,
			Unread:         true,
			LastMessageAt:  nowStr,
			CreatedAt:      nowStr,
		}
	}
	repo.conversations["read"] = model.ConversationItem{
		ConversationID: "read",
		Channel:        model.ChannelPlayer,
		ParticipantID:  "p-read",
		Unread:         false,
		LastMessageAt:  nowStr,
		CreatedAt:      nowStr,
	}

	counts, err := svc.UnreadCounts(context.Background(), adminIdentity)
	if err != nil {
		t.Fatalf("UnreadCounts error: %v", err)
	}
	if counts.Guest != 2 || counts.Player != 1 || counts.Affiliate != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestListMessagesOrderedByCreatedAtThenID(t *testing.T) {
	repo := newMemoryRepository()
	svc, now := testService(repo)
	nowStr := now.Format(time.RFC3339)

	repo.conversations["c-1"] = model.ConversationItem{
		ConversationID: "c-1",
		Channel:        model.ChannelPlayer,
		ParticipantID:  "p-1",
		LastMessageAt:  nowStr,
		CreatedAt:      nowStr,
	}
	later := now.Add(time.Minute).Format(time.RFC3339)
	repo.messages["c-1"] = []model.MessageItem{
		{MessageID: "m-b", ConversationID: "c-1", Body: "second", CreatedAt: nowStr},
		{MessageID: "m-c", ConversationID: "c-1", Body: "third", CreatedAt: later},
		{MessageID: "m-a", ConversationID: "c-1", Body: "first", CreatedAt: nowStr},
	}

	result, err := svc.ListMessages(context.Background(), adminIdentity, "c-1")
	if err != nil {
		t.Fatalf("ListMessages error: %v", err)
	}
	got := make([]string, 0, len(result.Messages))
	for _, msg := range result.Messages {
		got = append(got, msg.MessageID)
	}
	want := []string{"m-a", "m-b", "m-c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order %v, want %v", got, want)
		}
	}
}
