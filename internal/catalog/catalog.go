// Package catalog resolves menu item ids to their price and preparation time.
// Menu management lives elsewhere; this package only reads the menu table.
package catalog

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
	"github.com/imrishuroy/go-queue-orderflow/internal/aws"
	"github.com/imrishuroy/go-queue-orderflow/internal/money"
)

// Item is one menu entry.
type Item struct {
	ID          string       `dynamodbav:"item_id" json:"id"`
	Name        string       `dynamodbav:"name" json:"name"`
	Price       money.Amount `dynamodbav:"price" json:"price"`
	PrepMinutes int          `dynamodbav:"prep_minutes" json:"prepMinutes"`
	Available   bool         `dynamodbav:"available" json:"available"`
}

// Catalog resolves item ids. The result has one entry per requested id, in
// request order, so duplicates resolve twice. Unknown ids fail with NotFound.
type Catalog interface {
	ResolveItems(ctx context.Context, ids []string) ([]Item, error)
}

// DynamoCatalog reads the menu table keyed by item_id.
type DynamoCatalog struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewDynamoCatalog returns a catalog over tableName.
func NewDynamoCatalog(client aws.DynamoDBAPI, tableName string) *DynamoCatalog {
	return &DynamoCatalog{client: client, tableName: tableName}
}

// ResolveItems fetches each distinct id once.
func (c *DynamoCatalog) ResolveItems(ctx context.Context, ids []string) ([]Item, error) {
	resolved := make(map[string]Item, len(ids))
	for _, id := range ids {
		if _, ok := resolved[id]; ok {
			continue
		}
		it, err := c.get(ctx, id)
		if err != nil {
			return nil, err
		}
		resolved[id] = it
	}
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, resolved[id])
	}
	return out, nil
}

func (c *DynamoCatalog) get(ctx context.Context, id string) (Item, error) {
	out, err := c.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &c.tableName,
		Key: map[string]types.AttributeValue{
			"item_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return Item{}, fmt.Errorf("get menu item %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return Item{}, apperr.NotFound("menu item %s not found", id)
	}
	var it Item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return Item{}, fmt.Errorf("unmarshal menu item %s: %w", id, err)
	}
	return it, nil
}

// Static is an in-memory catalog, handy for local runs and tests.
type Static map[string]Item

func (s Static) ResolveItems(ctx context.Context, ids []string) ([]Item, error) {
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		it, ok := s[id]
		if !ok {
			return nil, apperr.NotFound("menu item %s not found", id)
		}
		out = append(out, it)
	}
	return out, nil
}
