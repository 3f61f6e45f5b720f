// Package identity looks up users. Authentication itself happens upstream;
// the directory only answers whether a user id exists.
package identity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-queue-orderflow/internal/aws"
)

type User struct {
	ID       string `dynamodbav:"user_id" json:"id"`
	Username string `dynamodbav:"username" json:"username"`
}

// Directory resolves a user id. It returns (nil, nil) for unknown users.
type Directory interface {
	ResolveUser(ctx context.Context, id string) (*User, error)
}

// DynamoDirectory reads the users table keyed by user_id.
type DynamoDirectory struct {
	client    aws.DynamoDBAPI
	tableName string
}

func NewDynamoDirectory(client aws.DynamoDBAPI, tableName string) *DynamoDirectory {
	return &DynamoDirectory{client: client, tableName: tableName}
}

func (d *DynamoDirectory) ResolveUser(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, nil
	}
	out, err := d.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &d.tableName,
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var u User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// Static is an in-memory directory keyed by user id.
type Static map[string]User

func (s Static) ResolveUser(ctx context.Context, id string) (*User, error) {
	u, ok := s[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}
