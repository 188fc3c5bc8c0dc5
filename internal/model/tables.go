package model

const (
	ConversationsTable = "console-conversations"
	MessagesTable      = "console-messages"
	OperatorsTable     = "console-operators"
)

const (
	ConversationsByChannelIndex = "byChannel"
	MessagesByConversationIndex = "byConversation"
	OperatorsByEmailIndex       = "byEmail"
)
