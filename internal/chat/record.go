// Package chat holds the canonical operator-facing shapes of a conversation
// and its messages. It is pure data plus validation: records come off the wire
// as DTOs and are parsed into these types before anything else touches them.
package chat

import (
	"fmt"
	"strings"
	"time"

	"support-console-backend/internal/dto"
)

type Channel string

const (
	ChannelGuest     Channel = "guest"
	ChannelPlayer    Channel = "player"
	ChannelAffiliate Channel = "affiliate"
)

// Channels lists every audience channel in badge display order.
var Channels = []Channel{ChannelGuest, ChannelPlayer, ChannelAffiliate}

type ChannelError struct {
	Value string
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("invalid channel %q", e.Value)
}

func ParseChannel(value string) (Channel, error) {
	switch Channel(value) {
	case ChannelGuest, ChannelPlayer, ChannelAffiliate:
		return Channel(value), nil
	}
	return "", &ChannelError{Value: value}
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

type SenderType string

const (
	SenderOperator    SenderType = "operator"
	SenderCounterpart SenderType = "counterpart"
)

func ParseSenderType(value string) (SenderType, error) {
	switch SenderType(value) {
	case SenderOperator, SenderCounterpart:
		return SenderType(value), nil
	}
	return "", &ValidationError{Field: "senderType", Reason: fmt.Sprintf("unknown value %q", value)}
}

// Participant is the display summary of the non-operator party. Player and
// affiliate conversations carry an email and a login-active flag; guest
// conversations carry only the anonymous guest tag.
type Participant struct {
	Name        string
	Email       string
	LoginActive bool
	GuestTag    string
}

// Preview is the derived last-message summary shown in the conversation list.
type Preview struct {
	Body          string
	At            time.Time
	HasAttachment bool
}

type Conversation struct {
	ID          string
	Channel     Channel
	Participant Participant
	LastMessage *Preview
	Unread      bool
	CreatedAt   time.Time
}

type Message struct {
	ID             string
	ConversationID string
	Sender         SenderType
	SenderID       string
	Content        string
	AttachmentURL  string
	CreatedAt      time.Time
}

// ParseConversation validates a wire record. Records missing id, channel or
// createdAt are rejected; everything else is carried through as-is.
func ParseConversation(raw dto.ConversationRecord) (Conversation, error) {
	if strings.TrimSpace(raw.ConversationID) == "" {
		return Conversation{}, &ValidationError{Field: "conversationId", Reason: "missing"}
	}
	channel, err := ParseChannel(raw.Channel)
	if err != nil {
		return Conversation{}, err
	}
	createdAt, err := parseTimestamp("createdAt", raw.CreatedAt)
	if err != nil {
		return Conversation{}, err
	}

	conv := Conversation{
		ID:      raw.ConversationID,
		Channel: channel,
		Participant: Participant{
			Name:        raw.ParticipantName,
			Email:       raw.ParticipantEmail,
			LoginActive: raw.LoginActive,
			GuestTag:    raw.GuestTag,
		},
		Unread:    raw.Unread,
		CreatedAt: createdAt,
	}

	if raw.LastMessageAt != "" {
		at, err := parseTimestamp("lastMessageAt", raw.LastMessageAt)
		if err != nil {
			return Conversation{}, err
		}
		conv.LastMessage = &Preview{
			Body:          raw.LastMessageBody,
			At:            at,
			HasAttachment: raw.LastMessageAttachment,
		}
	}

	return conv, nil
}

// ParseMessage validates a wire record. Content may be empty only when an
// attachment is present.
func ParseMessage(raw dto.MessageRecord) (Message, error) {
	if strings.TrimSpace(raw.MessageID) == "" {
		return Message{}, &ValidationError{Field: "messageId", Reason: "missing"}
	}
	if strings.TrimSpace(raw.ConversationID) == "" {
		return Message{}, &ValidationError{Field: "conversationId", Reason: "missing"}
	}
	sender, err := ParseSenderType(raw.SenderType)
	if err != nil {
		return Message{}, err
	}
	if raw.Body == "" && raw.AttachmentURL == "" {
		return Message{}, &ValidationError{Field: "content", Reason: "empty without attachment"}
	}
	createdAt, err := parseTimestamp("createdAt", raw.CreatedAt)
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:             raw.MessageID,
		ConversationID: raw.ConversationID,
		Sender:         sender,
		SenderID:       raw.SenderID,
		Content:        raw.Body,
		AttachmentURL:  raw.AttachmentURL,
		CreatedAt:      createdAt,
	}, nil
}

// Before reports the total order of messages within a conversation:
// (createdAt, id) ascending, id breaking same-millisecond ties.
func Before(a, b Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func parseTimestamp(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, &ValidationError{Field: field, Reason: "missing"}
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: "not a valid RFC3339 timestamp"}
	}
	return ts, nil
}
