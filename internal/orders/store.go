package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-queue-orderflow/internal/aws"
)

var (
	// ErrVersionMismatch is returned when another writer updated the order first.
	ErrVersionMismatch = errors.New("order version mismatch/conditional failed")
	// ErrAlreadyExists is returned by Create when the order id is taken.
	ErrAlreadyExists = errors.New("order already exists")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	pageSize  int32
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		pageSize:  100,
		nowFunc:   time.Now,
	}
}

// Create inserts a new order at version 1.
func (s *Store) Create(ctx context.Context, o Order) (Order, error) {
	o.Version = 1
	o.UpdatedAt = s.nowFunc().UTC()
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return Order{}, fmt.Errorf("marshal order: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return Order{}, ErrAlreadyExists
		}
		return Order{}, fmt.Errorf("put order: %w", err)
	}
	return o, nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            key(orderID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// Scan reads every order, following LastEvaluatedKey until the table is exhausted.
func (s *Store) Scan(ctx context.Context) ([]Order, error) {
	var (
		out   []Order
		start map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			Limit:             &s.pageSize,
			ExclusiveStartKey: start,
			ConsistentRead:    aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		var batch []Order
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		out = append(out, batch...)
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		start = page.LastEvaluatedKey
	}
}

// Update writes o if the stored version still equals o.Version, bumping the
// version. Returns ErrVersionMismatch if the condition failed.
func (s *Store) Update(ctx context.Context, o Order) (Order, error) {
	put, next, err := s.UpdateTx(o)
	if err != nil {
		return Order{}, err
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                 put.Put.TableName,
		Item:                      put.Put.Item,
		ConditionExpression:       put.Put.ConditionExpression,
		ExpressionAttributeNames:  put.Put.ExpressionAttributeNames,
		ExpressionAttributeValues: put.Put.ExpressionAttributeValues,
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return Order{}, ErrVersionMismatch
		}
		return Order{}, fmt.Errorf("put order: %w", err)
	}
	return next, nil
}

// UpdateTx builds the conditional put Update would issue, for use inside a
// larger TransactWriteItems. It returns the order as it will be stored.
func (s *Store) UpdateTx(o Order) (types.TransactWriteItem, Order, error) {
	expected := o.Version
	o.Version++
	o.UpdatedAt = s.nowFunc().UTC()
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return types.TransactWriteItem{}, Order{}, fmt.Errorf("marshal order: %w", err)
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:                &s.tableName,
			Item:                     item,
			ConditionExpression:      aws.String("#v = :expected"),
			ExpressionAttributeNames: map[string]string{"#v": "version"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
			},
		},
	}, o, nil
}

// VersionCheckTx fails the surrounding transaction unless the stored order is
// still at o.Version.
func (s *Store) VersionCheckTx(o Order) types.TransactWriteItem {
	return types.TransactWriteItem{
		ConditionCheck: &types.ConditionCheck{
			TableName:                &s.tableName,
			Key:                      key(o.OrderID),
			ConditionExpression:      aws.String("#v = :expected"),
			ExpressionAttributeNames: map[string]string{"#v": "version"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(o.Version, 10)},
			},
		},
	}
}

func key(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}
