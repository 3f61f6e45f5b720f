package aws

import (
	"context"
	"errors"
	"fmt"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrTransactionConflict is returned by TransactWrite when any condition in the
// transaction failed. Nothing was written.
var ErrTransactionConflict = errors.New("transaction canceled: condition check failed")

// TransactWrite commits items as a single all-or-nothing unit.
func TransactWrite(ctx context.Context, client DynamoDBAPI, items ...types.TransactWriteItem) error {
	if len(items) == 0 {
		return nil
	}
	_, err := client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return fmt.Errorf("%w: %s", ErrTransactionConflict, cancellationSummary(tce))
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

func cancellationSummary(tce *types.TransactionCanceledException) string {
	if tce == nil || len(tce.CancellationReasons) == 0 {
		return "no reasons reported"
	}
	out := ""
	for i, r := range tce.CancellationReasons {
		if i > 0 {
			out += ","
		}
		code := "None"
		if r.Code != nil {
			code = *r.Code
		}
		out += code
	}
	return out
}

// String returns a pointer to s, for SDK input structs.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
