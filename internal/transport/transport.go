// Package transport defines the boundary the console core talks through. The
// session manager, list synchronizer and unread counter all issue their reads
// and writes against Client; the HTTP implementation lives in httptransport
// and fakes stand in for it in tests.
package transport

import (
	"context"
	"errors"
	"fmt"

	"support-console-backend/internal/chat"
)

// ErrNotFound reports a conversation that no longer exists server-side.
var ErrNotFound = errors.New("transport: not found")

// Error wraps a network or server failure. Callers treat it as retryable.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Scope narrows reads to the operator's own affiliate-managed subset. The
// zero value is unscoped and sees everything.
type Scope struct {
	AffiliateID string
}

type UnreadCounts struct {
	Guest     int
	Player    int
	Affiliate int
}

type CreateParams struct {
	InitialContent string
	AttachmentURL  string
	// TargetParticipantID addresses the counterpart of the new thread as
	// "player:<id>" or "affiliate:<id>"; empty starts a guest thread.
	TargetParticipantID string
}

type SendParams struct {
	ConversationID string
	SenderID       string
	SenderType     chat.SenderType
	Content        string
	AttachmentURL  string
}

// Created is the result of bootstrapping a new thread: the conversation plus
// the server's echo of the initial message.
type Created struct {
	Conversation chat.Conversation
	Message      chat.Message
}

type Client interface {
	ListConversations(ctx context.Context, channel chat.Channel, searchTerm string) ([]chat.Conversation, error)
	FetchMessages(ctx context.Context, conversationID string) ([]chat.Message, error)
	CreateConversation(ctx context.Context, params CreateParams) (Created, error)
	SendMessage(ctx context.Context, params SendParams) (chat.Message, error)
	MarkRead(ctx context.Context, conversationID string, sender chat.SenderType) error
	UnreadCounts(ctx context.Context, scope Scope) (UnreadCounts, error)
}
