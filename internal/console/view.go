package console

import (
	"time"

	"support-console-backend/internal/chat"
	"support-console-backend/internal/dto"
)

func toConversationRecord(conv chat.Conversation) dto.ConversationRecord {
	record := dto.ConversationRecord{
		ConversationID:   conv.ID,
		Channel:          string(conv.Channel),
		ParticipantName:  conv.Participant.Name,
		ParticipantEmail: conv.Participant.Email,
		LoginActive:      conv.Participant.LoginActive,
		GuestTag:         conv.Participant.GuestTag,
		Unread:           conv.Unread,
		CreatedAt:        conv.CreatedAt.UTC().Format(time.RFC3339),
	}
	if conv.LastMessage != nil {
		record.LastMessageBody = conv.LastMessage.Body
		record.LastMessageAt = conv.LastMessage.At.UTC().Format(time.RFC3339)
		record.LastMessageAttachment = conv.LastMessage.HasAttachment
	}
	return record
}

// MessageView is the wire shape of one delivered message.
func MessageView(msg chat.Message) dto.MessageRecord {
	return toMessageRecord(msg)
}

func toMessageRecord(msg chat.Message) dto.MessageRecord {
	return dto.MessageRecord{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderType:     string(msg.Sender),
		SenderID:       msg.SenderID,
		Body:           msg.Content,
		AttachmentURL:  msg.AttachmentURL,
		CreatedAt:      msg.CreatedAt.UTC().Format(time.RFC3339),
	}
}
