package conversation

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"support-console-backend/internal/database"
	"support-console-backend/internal/model"
)

var ErrNotFound = errors.New("conversation repository: not found")

type Repository interface {
	CreateConversation(ctx context.Context, conversation model.ConversationItem) error
	GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error)
	FindConversationByParticipant(ctx context.Context, channel, participantID string) (model.ConversationItem, error)
	ListConversations(ctx context.Context, channel string) ([]model.ConversationItem, error)
	UpdateConversationPreview(ctx context.Context, conversationID, body string, hasAttachment bool, at string, unread *bool) error
	SetConversationRead(ctx context.Context, conversationID, updatedAt string) error
	CreateMessage(ctx context.Context, message model.MessageItem) error
	ListMessages(ctx context.Context, conversationID string) ([]model.MessageItem, error)
	ListUnreadConversations(ctx context.Context, channel string) ([]model.ConversationItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	return r.db.Client.PutItem(ctx, model.ConversationsTable, conversation)
}

func (r *DynamoRepository) GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	var conversation model.ConversationItem
	err := r.db.Client.GetItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		&conversation,
	)
	if err != nil {
		if isNotFound(err) {
			return model.ConversationItem{}, ErrNotFound
		}
		return model.ConversationItem{}, err
	}
	return conversation, nil
}

func (r *DynamoRepository) FindConversationByParticipant(ctx context.Context, channel, participantID string) (model.ConversationItem, error) {
	items, err := r.db.Client.QueryItemsWithFilter(
		ctx,
		model.ConversationsTable,
		aws.String(model.ConversationsByChannelIndex),
		"channel = :channel",
		aws.String("participantId = :participantId"),
		map[string]types.AttributeValue{
			":channel":       &types.AttributeValueMemberS{Value: channel},
			":participantId": &types.AttributeValueMemberS{Value: participantID},
		},
		nil,
	)
	if err != nil {
		return model.ConversationItem{}, err
	}
	if len(items) == 0 {
		return model.ConversationItem{}, ErrNotFound
	}

	var conversation model.ConversationItem
	if err := attributevalue.UnmarshalMap(items[0], &conversation); err != nil {
		return model.ConversationItem{}, err
	}
	return conversation, nil
}

func (r *DynamoRepository) ListConversations(ctx context.Context, channel string) ([]model.ConversationItem, error) {
	scanForward := false
	items, err := r.db.Client.QueryItems(
		ctx,
		model.ConversationsTable,
		aws.String(model.ConversationsByChannelIndex),
		"channel = :channel",
		map[string]types.AttributeValue{
			":channel": &types.AttributeValueMemberS{Value: channel},
		},
		nil,
		&scanForward,
	)
	if err != nil {
		return nil, err
	}

	conversations := make([]model.ConversationItem, 0, len(items))
	for _, item := range items {
		var conversation model.ConversationItem
		if err := attributevalue.UnmarshalMap(item, &conversation); err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}

	// The byChannel index sorts by lastMessageAt, but conversations created
	// before the first reply share a timestamp with their creation instant.
	// Re-sorting keeps ordering stable across index eventual consistency.
	sort.Slice(conversations, func(i, j int) bool {
		if conversations[i].LastMessageAt != conversations[j].LastMessageAt {
			return conversations[i].LastMessageAt > conversations[j].LastMessageAt
		}
		return conversations[i].ConversationID > conversations[j].ConversationID
	})

	return conversations, nil
}

func (r *DynamoRepository) UpdateConversationPreview(ctx context.Context, conversationID, body string, hasAttachment bool, at string, unread *bool) error {
	updateExpr := "SET #lastMessageBody = :body, #lastMessageAttachment = :attachment, #lastMessageAt = :at, #updatedAt = :at"
	exprValues := map[string]types.AttributeValue{
		":body":       &types.AttributeValueMemberS{Value: body},
		":attachment": &types.AttributeValueMemberBOOL{Value: hasAttachment},
		":at":         &types.AttributeValueMemberS{Value: at},
	}
	attrNames := map[string]string{
		"#lastMessageBody":       "lastMessageBody",
		"#lastMessageAttachment": "lastMessageAttachment",
		"#lastMessageAt":         "lastMessageAt",
		"#updatedAt":             "updatedAt",
	}

	if unread != nil {
		updateExpr += ", #unread = :unread"
		exprValues[":unread"] = &types.AttributeValueMemberBOOL{Value: *unread}
		attrNames["#unread"] = "unread"
	}

	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		updateExpr,
		exprValues,
		attrNames,
		nil,
	)
}

func (r *DynamoRepository) SetConversationRead(ctx context.Context, conversationID, updatedAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET #unread = :unread, #updatedAt = :updatedAt",
		map[string]types.AttributeValue{
			":unread":    &types.AttributeValueMemberBOOL{Value: false},
			":updatedAt": &types.AttributeValueMemberS{Value: updatedAt},
		},
		map[string]string{
			"#unread":    "unread",
			"#updatedAt": "updatedAt",
		},
		nil,
	)
}

func (r *DynamoRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	return r.db.Client.PutItem(ctx, model.MessagesTable, message)
}

func (r *DynamoRepository) ListMessages(ctx context.Context, conversationID string) ([]model.MessageItem, error) {
	scanForward := true
	items, err := r.db.Client.QueryItems(
		ctx,
		model.MessagesTable,
		aws.String(model.MessagesByConversationIndex),
		"conversationId = :conversationId",
		map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		nil,
		&scanForward,
	)
	if err != nil {
		return nil, err
	}

	messages := make([]model.MessageItem, 0, len(items))
	for _, item := range items {
		var message model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt != messages[j].CreatedAt {
			return messages[i].CreatedAt < messages[j].CreatedAt
		}
		return messages[i].MessageID < messages[j].MessageID
	})

	return messages, nil
}

func (r *DynamoRepository) ListUnreadConversations(ctx context.Context, channel string) ([]model.ConversationItem, error) {
	items, err := r.db.Client.QueryItemsWithFilter(
		ctx,
		model.ConversationsTable,
		aws.String(model.ConversationsByChannelIndex),
		"channel = :channel",
		aws.String("unread = :unread"),
		map[string]types.AttributeValue{
			":channel": &types.AttributeValueMemberS{Value: channel},
			":unread":  &types.AttributeValueMemberBOOL{Value: true},
		},
		nil,
	)
	if err != nil {
		return nil, err
	}

	conversations := make([]model.ConversationItem, 0, len(items))
	for _, item := range items {
		var conversation model.ConversationItem
		if err := attributevalue.UnmarshalMap(item, &conversation); err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
