package payments

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-queue-orderflow/internal/aws"
)

// Store reads payments and stages their writes (partition key "pk").
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// GetCurrent returns the order's current attempt, or (nil, nil).
func (s *Store) GetCurrent(ctx context.Context, orderID string) (*Payment, error) {
	return s.get(ctx, orderKey(orderID))
}

// Get returns one attempt by payment id, or (nil, nil).
func (s *Store) Get(ctx context.Context, paymentID string) (*Payment, error) {
	return s.get(ctx, paymentKey(paymentID))
}

// PutTx stages p as both a history item and the order's current attempt. The
// current-item put only succeeds if the stored current attempt is still prev
// in the same status, so two writers cannot both replace it.
func (s *Store) PutTx(p Payment, prev *Payment) ([]types.TransactWriteItem, error) {
	history, err := attributevalue.MarshalMap(record{PK: paymentKey(p.PaymentID), Payment: p})
	if err != nil {
		return nil, fmt.Errorf("marshal payment: %w", err)
	}
	current, err := attributevalue.MarshalMap(record{PK: orderKey(p.OrderID), Payment: p})
	if err != nil {
		return nil, fmt.Errorf("marshal payment: %w", err)
	}

	put := &types.Put{TableName: &s.tableName, Item: current}
	if prev == nil {
		put.ConditionExpression = aws.String("attribute_not_exists(pk)")
	} else {
		put.ConditionExpression = aws.String("payment_id = :pid AND #s = :st")
		put.ExpressionAttributeNames = map[string]string{"#s": "status"}
		put.ExpressionAttributeValues = map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: prev.PaymentID},
			":st":  &types.AttributeValueMemberS{Value: string(prev.Status)},
		}
	}
	return []types.TransactWriteItem{
		{Put: &types.Put{TableName: &s.tableName, Item: history}},
		{Put: put},
	}, nil
}

func (s *Store) get(ctx context.Context, pk string) (*Payment, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var r record
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("unmarshal payment: %w", err)
	}
	return &r.Payment, nil
}
