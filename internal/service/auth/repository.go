package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"support-console-backend/internal/database"
	"support-console-backend/internal/model"
)

var ErrNotFound = errors.New("auth repository: not found")

type Repository interface {
	CreateOperator(ctx context.Context, operator model.OperatorItem) error
	GetOperator(ctx context.Context, operatorID string) (model.OperatorItem, error)
	FindOperatorByEmail(ctx context.Context, email string) (model.OperatorItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateOperator(ctx context.Context, operator model.OperatorItem) error {
	return r.db.Client.PutItem(ctx, model.OperatorsTable, operator)
}

func (r *DynamoRepository) GetOperator(ctx context.Context, operatorID string) (model.OperatorItem, error) {
	var operator model.OperatorItem
	err := r.db.Client.GetItem(
		ctx,
		model.OperatorsTable,
		map[string]types.AttributeValue{
			"operatorId": &types.AttributeValueMemberS{Value: operatorID},
		},
		&operator,
	)
	if err != nil {
		if isNotFoundError(err) {
			return model.OperatorItem{}, ErrNotFound
		}
		return model.OperatorItem{}, err
	}

	return operator, nil
}

func (r *DynamoRepository) FindOperatorByEmail(ctx context.Context, email string) (model.OperatorItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.OperatorsTable,
		aws.String(model.OperatorsByEmailIndex),
		"email = :email",
		map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
		nil,
		nil,
	)
	if err != nil {
		return model.OperatorItem{}, err
	}

	if len(items) == 0 {
		return model.OperatorItem{}, ErrNotFound
	}

	var operator model.OperatorItem
	if err := attributevalue.UnmarshalMap(items[0], &operator); err != nil {
		return model.OperatorItem{}, err
	}

	return operator, nil
}

func isNotFoundError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
