package coupons

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-queue-orderflow/internal/aws"
	"github.com/imrishuroy/go-queue-orderflow/internal/cache"
)

const cacheTTL = 24 * time.Hour

// Store reads and stages writes for the coupons table (partition key "pk").
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	cache     cache.Cache
	logger    *slog.Logger
}

// NewStore returns a Store. c may be nil to disable the code cache; a nil
// logger falls back to slog.Default.
func NewStore(client aws.DynamoDBAPI, tableName string, c cache.Cache, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, tableName: tableName, cache: c, logger: logger}
}

// GetByOrder returns (nil, nil) when the order has no coupon.
func (s *Store) GetByOrder(ctx context.Context, orderID string) (*Coupon, error) {
	return s.get(ctx, orderKey(orderID))
}

// GetByCode returns (nil, nil) for unknown codes. Hits are served from the cache
// when one is configured; coupons never change once written.
func (s *Store) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.GenerateKey("coupon", code)
		if raw, err := s.cache.Get(ctx, cacheKey); err != nil {
			s.logger.WarnContext(ctx, "coupon cache read failed", slog.String("code", code), slog.Any("error", err))
		} else if raw != "" {
			var c Coupon
			if err := json.Unmarshal([]byte(raw), &c); err == nil {
				return &c, nil
			}
		}
	}

	c, err := s.get(ctx, codeKey(code))
	if err != nil || c == nil {
		return c, err
	}
	if s.cache != nil {
		if raw, err := json.Marshal(c); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(raw), cacheTTL); err != nil {
				s.logger.WarnContext(ctx, "coupon cache write failed", slog.String("code", code), slog.Any("error", err))
			}
		}
	}
	return c, nil
}

// PutTx returns the two conditional puts that persist c. Either fails the
// transaction if the order already has a coupon or the code is taken.
func (s *Store) PutTx(c Coupon) ([]types.TransactWriteItem, error) {
	items := make([]types.TransactWriteItem, 0, 2)
	for _, pk := range []string{orderKey(c.OrderID), codeKey(c.Code)} {
		av, err := attributevalue.MarshalMap(record{PK: pk, Coupon: c})
		if err != nil {
			return nil, fmt.Errorf("marshal coupon: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           &s.tableName,
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(pk)"),
			},
		})
	}
	return items, nil
}

func (s *Store) get(ctx context.Context, pk string) (*Coupon, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var r record
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("unmarshal coupon: %w", err)
	}
	return &r.Coupon, nil
}
