package dto

type ConversationRecord struct {
	ConversationID        string `json:"conversationId"`
	Channel               string `json:"channel"`
	ParticipantName       string `json:"participantName,omitempty"`
	ParticipantEmail      string `json:"participantEmail,omitempty"`
	LoginActive           bool   `json:"loginActive,omitempty"`
	GuestTag              string `json:"guestTag,omitempty"`
	Unread                bool   `json:"unread"`
	LastMessageBody       string `json:"lastMessageBody,omitempty"`
	LastMessageAt         string `json:"lastMessageAt,omitempty"`
	LastMessageAttachment bool   `json:"lastMessageAttachment,omitempty"`
	CreatedAt             string `json:"createdAt"`
}

type MessageRecord struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	SenderType     string `json:"senderType"`
	SenderID       string `json:"senderId"`
	Body           string `json:"body"`
	AttachmentURL  string `json:"attachmentUrl,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

type ListConversationsResponse struct {
	Conversations []ConversationRecord `json:"conversations"`
}

type ListMessagesResponse struct {
	Messages []MessageRecord `json:"messages"`
}

type CreateConversationRequest struct {
	Content             string `json:"content"`
	AttachmentURL       string `json:"attachmentUrl,omitempty"`
	TargetParticipantID string `json:"targetParticipantId,omitempty"`
}

type CreateConversationResponse struct {
	Conversation ConversationRecord `json:"conversation"`
	Message      MessageRecord      `json:"message"`
}

type PostMessageRequest struct {
	SenderID      string `json:"senderId"`
	SenderType    string `json:"senderType"`
	Content       string `json:"content"`
	AttachmentURL string `json:"attachmentUrl,omitempty"`
}

type MarkReadRequest struct {
	SenderType string `json:"senderType"`
}

type MarkReadResponse struct {
	ConversationID string `json:"conversationId"`
	Unread         bool   `json:"unread"`
}

type UnreadCountsResponse struct {
	Guest     int `json:"guest"`
	Player    int `json:"player"`
	Affiliate int `json:"affiliate"`
}
