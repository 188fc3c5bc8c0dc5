package model

import "fmt"

const (
	ChannelGuest     = "guest"
	ChannelPlayer    = "player"
	ChannelAffiliate = "affiliate"
)

// Channels lists every valid audience channel in badge display order.
var Channels = []string{ChannelGuest, ChannelPlayer, ChannelAffiliate}

func ValidChannel(channel string) bool {
	switch channel {
	case ChannelGuest, ChannelPlayer, ChannelAffiliate:
		return true
	}
	return false
}

func MessagePK(conversationID, messageID string) string {
	return fmt.Sprintf("%s#%s", conversationID, messageID)
}

type ConversationItem struct {
	ConversationID        string `dynamodbav:"conversationId"`
	Channel               string `dynamodbav:"channel"`
	ParticipantID         string `dynamodbav:"participantId"`
	ParticipantName       string `dynamodbav:"participantName,omitempty"`
	ParticipantEmail      string `dynamodbav:"participantEmail,omitempty"`
	LoginActive           bool   `dynamodbav:"loginActive"`
	GuestTag              string `dynamodbav:"guestTag,omitempty"`
	AffiliateID           string `dynamodbav:"affiliateId,omitempty"`
	Unread                bool   `dynamodbav:"unread"`
	LastMessageBody       string `dynamodbav:"lastMessageBody,omitempty"`
	LastMessageAt         string `dynamodbav:"lastMessageAt"`
	LastMessageAttachment bool   `dynamodbav:"lastMessageAttachment"`
	CreatedAt             string `dynamodbav:"createdAt"`
	UpdatedAt             string `dynamodbav:"updatedAt"`
}

type MessageItem struct {
	PK             string `dynamodbav:"pk"`
	ConversationID string `dynamodbav:"conversationId"`
	MessageID      string `dynamodbav:"messageId"`
	SenderType     string `dynamodbav:"senderType"`
	SenderID       string `dynamodbav:"senderId"`
	Body           string `dynamodbav:"body"`
	AttachmentURL  string `dynamodbav:"attachmentUrl,omitempty"`
	CreatedAt      string `dynamodbav:"createdAt"`
}

type OperatorItem struct {
	OperatorID   string `dynamodbav:"operatorId"`
	Email        string `dynamodbav:"email"`
	Name         string `dynamodbav:"name,omitempty"`
	PasswordHash string `dynamodbav:"passwordHash"`
	Role         string `dynamodbav:"role"`
	AffiliateID  string `dynamodbav:"affiliateId,omitempty"`
	CreatedAt    string `dynamodbav:"createdAt"`
}

const (
	RoleAdmin     = "admin"
	RoleAffiliate = "affiliate"
)
