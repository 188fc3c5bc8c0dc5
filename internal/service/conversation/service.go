package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"support-console-backend/internal/database"
	"support-console-backend/internal/model"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Identity is the authenticated operator making the call. Affiliate-role
// operators carry an AffiliateID and only ever see their own slice of the
// affiliate channel.
type Identity struct {
	OperatorID  string
	Email       string
	Role        string
	AffiliateID string
}

const (
	SenderTypeOperator    = "operator"
	SenderTypeCounterpart = "counterpart"
)

type CreateConversationParams struct {
	Content             string
	AttachmentURL       string
	TargetParticipantID string
}

type PostMessageParams struct {
	SenderID      string
	SenderType    string
	Content       string
	AttachmentURL string
}

type ConversationResult struct {
	Conversation model.ConversationItem
	Message      model.MessageItem
}

type MessageResult struct {
	Conversation model.ConversationItem
	Message      model.MessageItem
}

type ListConversationsResult struct {
	Conversations []model.ConversationItem
}

type ListMessagesResult struct {
	Conversation model.ConversationItem
	Messages     []model.MessageItem
}

type UnreadCountsResult struct {
	Guest     int
	Player    int
	Affiliate int
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

func (s *Service) ListConversations(ctx context.Context, identity Identity, channel, search string) (ListConversationsResult, error) {
	if identity.OperatorID == "" {
		return ListConversationsResult{}, newError(ErrorCodeUnauthorized, "invalid operator identity", nil)
	}
	if !model.ValidChannel(channel) {
		return ListConversationsResult{}, newError(ErrorCodeValidation, "unknown channel: "+channel, nil)
	}
	if identity.AffiliateID != "" && channel != model.ChannelAffiliate {
		return ListConversationsResult{}, newError(ErrorCodeForbidden, "affiliate operators are limited to the affiliate channel", nil)
	}

	conversations, err := s.repo.ListConversations(ctx, channel)
	if err != nil {
		return ListConversationsResult{}, newError(ErrorCodeInternal, "failed to list conversations", err)
	}

	conversations = scopeConversations(conversations, identity.AffiliateID)

	if term := strings.TrimSpace(search); term != "" {
		filtered := conversations[:0]
		for _, conversation := range conversations {
			if matchesSearch(conversation, term) {
				filtered = append(filtered, conversation)
			}
		}
		conversations = filtered
	}

	return ListConversationsResult{Conversations: conversations}, nil
}

func (s *Service) ListMessages(ctx context.Context, identity Identity, conversationID string) (ListMessagesResult, error) {
	if identity.OperatorID == "" {
		return ListMessagesResult{}, newError(ErrorCodeUnauthorized, "invalid operator identity", nil)
	}

	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return ListMessagesResult{}, newError(ErrorCodeValidation, "conversationId is required", nil)
	}

	conversation, err := s.getScopedConversation(ctx, identity, conversationID)
	if err != nil {
		return ListMessagesResult{}, err
	}

	messages, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return ListMessagesResult{}, newError(ErrorCodeInternal, "failed to list messages", err)
	}

	return ListMessagesResult{
		Conversation: conversation,
		Messages:     messages,
	}, nil
}

// CreateConversation starts a thread on behalf of an operator. An empty
// target opens a fresh guest thread; "player:<id>" and "affiliate:<id>"
// targets reuse the participant's existing thread when one is already open.
func (s *Service) CreateConversation(ctx context.Context, identity Identity, params CreateConversationParams) (ConversationResult, error) {
	if identity.OperatorID == "" {
		return ConversationResult{}, newError(ErrorCodeUnauthorized, "invalid operator identity", nil)
	}

	content := strings.TrimSpace(params.Content)
	attachmentURL := strings.TrimSpace(params.AttachmentURL)
	if content == "" && attachmentURL == "" {
		return ConversationResult{}, newError(ErrorCodeValidation, "message content is required", nil)
	}

	channel, participantID, err := parseTarget(params.TargetParticipantID)
	if err != nil {
		return ConversationResult{}, err
	}
	if identity.AffiliateID != "" && channel != model.ChannelAffiliate {
		return ConversationResult{}, newError(ErrorCodeForbidden, "affiliate operators are limited to the affiliate channel", nil)
	}

	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	var conversation model.ConversationItem
	existing := false

	if channel != model.ChannelGuest {
		conversation, err = s.repo.FindConversationByParticipant(ctx, channel, participantID)
		switch {
		case err == nil:
			existing = true
		case errors.Is(err, ErrNotFound):
		default:
			return ConversationResult{}, newError(ErrorCodeInternal, "failed to look up participant thread", err)
		}
	}

	if !existing {
		conversationID := uuid.NewString()
		if participantID == "" {
			participantID = uuid.NewString()
		}

		conversation = model.ConversationItem{
			ConversationID: conversationID,
			Channel:        channel,
			ParticipantID:  participantID,
			CreatedAt:      nowStr,
			UpdatedAt:      nowStr,
			LastMessageAt:  nowStr,
		}
		if channel == model.ChannelGuest {
			conversation.GuestTag = guestTag(participantID)
		}
		if channel == model.ChannelAffiliate {
			conversation.AffiliateID = identity.AffiliateID
		}

		if err := s.repo.CreateConversation(ctx, conversation); err != nil {
			return ConversationResult{}, newError(ErrorCodeInternal, "failed to create conversation", err)
		}
	} else if conversation.AffiliateID != "" && identity.AffiliateID != "" && conversation.AffiliateID != identity.AffiliateID {
		return ConversationResult{}, newError(ErrorCodeForbidden, "conversation belongs to another affiliate", nil)
	}

	messageID := uuid.NewString()
	message := model.MessageItem{
		PK:             model.MessagePK(conversation.ConversationID, messageID),
		ConversationID: conversation.ConversationID,
		MessageID:      messageID,
		SenderType:     SenderTypeOperator,
		SenderID:       identity.OperatorID,
		Body:           content,
		AttachmentURL:  attachmentURL,
		CreatedAt:      nowStr,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return ConversationResult{}, newError(ErrorCodeInternal, "failed to store message", err)
	}

	if err := s.repo.UpdateConversationPreview(ctx, conversation.ConversationID, content, attachmentURL != "", nowStr, nil); err != nil {
		return ConversationResult{}, newError(ErrorCodeInternal, "failed to update conversation", err)
	}

	conversation.LastMessageBody = content
	conversation.LastMessageAttachment = attachmentURL != ""
	conversation.LastMessageAt = nowStr
	conversation.UpdatedAt = nowStr

	return ConversationResult{
		Conversation: conversation,
		Message:      message,
	}, nil
}

func (s *Service) PostMessage(ctx context.Context, identity Identity, conversationID string, params PostMessageParams) (MessageResult, error) {
	if identity.OperatorID == "" {
		return MessageResult{}, newError(ErrorCodeUnauthorized, "invalid operator identity", nil)
	}

	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return MessageResult{}, newError(ErrorCodeValidation, "conversationId is required", nil)
	}

	content := strings.TrimSpace(params.Content)
	attachmentURL := strings.TrimSpace(params.AttachmentURL)
	if content == "" && attachmentURL == "" {
		return MessageResult{}, newError(ErrorCodeValidation, "message content is required", nil)
	}

	senderType := params.SenderType
	if senderType != SenderTypeOperator && senderType != SenderTypeCounterpart {
		return MessageResult{}, newError(ErrorCodeValidation, "unknown sender type: "+senderType, nil)
	}

	senderID := strings.TrimSpace(params.SenderID)
	if senderID == "" {
		senderID = identity.OperatorID
	}

	conversation, err := s.getScopedConversation(ctx, identity, conversationID)
	if err != nil {
		return MessageResult{}, err
	}

	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	messageID := uuid.NewString()
	message := model.MessageItem{
		PK:             model.MessagePK(conversationID, messageID),
		ConversationID: conversationID,
		MessageID:      messageID,
		SenderType:     senderType,
		SenderID:       senderID,
		Body:           content,
		AttachmentURL:  attachmentURL,
		CreatedAt:      nowStr,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return MessageResult{}, newError(ErrorCodeInternal, "failed to store message", err)
	}

	// Only counterpart traffic flips the unread flag. An operator reply
	// leaves it untouched so an unseen counterpart message keeps its badge.
	var unread *bool
	if senderType == SenderTypeCounterpart {
		flagged := true
		unread = &flagged
	}

	if err := s.repo.UpdateConversationPreview(ctx, conversationID, content, attachmentURL != "", nowStr, unread); err != nil {
		return MessageResult{}, newError(ErrorCodeInternal, "failed to update conversation", err)
	}

	if unread != nil {
		conversation.Unread = *unread
	}
	conversation.LastMessageBody = content
	conversation.LastMessageAttachment = attachmentURL != ""
	conversation.LastMessageAt = nowStr
	conversation.UpdatedAt = nowStr

	return MessageResult{
		Conversation: conversation,
		Message:      message,
	}, nil
}

func (s *Service) MarkRead(ctx context.Context, identity Identity, conversationID string) (model.ConversationItem, error) {
	if identity.OperatorID == "" {
		return model.ConversationItem{}, newError(ErrorCodeUnauthorized, "invalid operator identity", nil)
	}

	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "conversationId is required", nil)
	}

	conversation, err := s.getScopedConversation(ctx, identity, conversationID)
	if err != nil {
		return model.ConversationItem{}, err
	}

	if !conversation.Unread {
		return conversation, nil
	}

	nowStr := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.SetConversationRead(ctx, conversationID, nowStr); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to mark conversation read", err)
	}

	conversation.Unread = false
	conversation.UpdatedAt = nowStr
	return conversation, nil
}

func (s *Service) UnreadCounts(ctx context.Context, identity Identity) (UnreadCountsResult, error) {
	if identity.OperatorID == "" {
		return UnreadCountsResult{}, newError(ErrorCodeUnauthorized, "invalid operator identity", nil)
	}

	result := UnreadCountsResult{}
	for _, channel := range model.Channels {
		if identity.AffiliateID != "" && channel != model.ChannelAffiliate {
			continue
		}

		unread, err := s.repo.ListUnreadConversations(ctx, channel)
		if err != nil {
			return UnreadCountsResult{}, newError(ErrorCodeInternal, "failed to count unread conversations", err)
		}
		count := len(scopeConversations(unread, identity.AffiliateID))

		switch channel {
		case model.ChannelGuest:
			result.Guest = count
		case model.ChannelPlayer:
			result.Player = count
		case model.ChannelAffiliate:
			result.Affiliate = count
		}
	}

	return result, nil
}

func (s *Service) getScopedConversation(ctx context.Context, identity Identity, conversationID string) (model.ConversationItem, error) {
	conversation, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ConversationItem{}, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to fetch conversation", err)
	}

	if identity.AffiliateID != "" {
		if conversation.Channel != model.ChannelAffiliate || conversation.AffiliateID != identity.AffiliateID {
			return model.ConversationItem{}, newError(ErrorCodeNotFound, "conversation not found", nil)
		}
	}

	return conversation, nil
}

func parseTarget(target string) (channel, participantID string, err error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return model.ChannelGuest, "", nil
	}

	prefix, id, found := strings.Cut(target, ":")
	if !found || strings.TrimSpace(id) == "" {
		return "", "", newError(ErrorCodeValidation, "target participant must be \"player:<id>\" or \"affiliate:<id>\"", nil)
	}

	switch prefix {
	case model.ChannelPlayer, model.ChannelAffiliate:
		return prefix, strings.TrimSpace(id), nil
	}
	return "", "", newError(ErrorCodeValidation, "unknown target channel: "+prefix, nil)
}

func scopeConversations(conversations []model.ConversationItem, affiliateID string) []model.ConversationItem {
	if affiliateID == "" {
		return conversations
	}
	scoped := conversations[:0]
	for _, conversation := range conversations {
		if conversation.AffiliateID == affiliateID {
			scoped = append(scoped, conversation)
		}
	}
	return scoped
}

func matchesSearch(conversation model.ConversationItem, term string) bool {
	term = strings.ToLower(term)
	for _, field := range []string{
		conversation.ParticipantName,
		conversation.ParticipantEmail,
		conversation.GuestTag,
		conversation.ParticipantID,
	} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func guestTag(participantID string) string {
	tag := participantID
	if len(tag) > 8 {
		tag = tag[:8]
	}
	return "guest-" + tag
}
