package dto

// Console session views. The console server pushes SessionView over the
// operator's websocket room after every state change, and returns it from the
// snapshot endpoint, so the UI renders from one shape in both cases.

type SessionView struct {
	Status        string               `json:"status"`
	Error         string               `json:"error,omitempty"`
	Channel       string               `json:"channel,omitempty"`
	SearchTerm    string               `json:"searchTerm,omitempty"`
	Selected      *ConversationRecord  `json:"selected,omitempty"`
	Messages      []MessageRecord      `json:"messages"`
	Conversations []ConversationRecord `json:"conversations"`
}

type SwitchChannelRequest struct {
	Channel    string `json:"channel"`
	SearchTerm string `json:"searchTerm,omitempty"`
}

type SearchRequest struct {
	SearchTerm string `json:"searchTerm"`
}

type SelectConversationRequest struct {
	ConversationID string `json:"conversationId"`
}

type SendMessageRequest struct {
	Content             string `json:"content"`
	AttachmentURL       string `json:"attachmentUrl,omitempty"`
	TargetParticipantID string `json:"targetParticipantId,omitempty"`
}
