// Package money holds the decimal amount type used for prices and order totals.
package money

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// Amount is a decimal currency value in major units (e.g. rupees).
// It is stored as a DynamoDB number and rendered as a JSON number.
type Amount struct {
	decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// New wraps a decimal.
func New(d decimal.Decimal) Amount { return Amount{Decimal: d} }

// FromInt returns a whole amount.
func FromInt(v int64) Amount { return Amount{Decimal: decimal.NewFromInt(v)} }

// Parse reads a decimal string such as "49.50".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{Decimal: d}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return Amount{Decimal: a.Decimal.Add(b.Decimal)} }

// Equal compares by value, so 80 and 80.00 are equal.
func (a Amount) Equal(b Amount) bool { return a.Decimal.Equal(b.Decimal) }

// MinorUnits returns round(a * 100), the amount gateways expect (paise, cents).
func (a Amount) MinorUnits() int64 {
	return a.Decimal.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Sum adds every amount.
func Sum(amounts ...Amount) Amount {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func (a Amount) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: a.Decimal.String()}, nil
}

func (a *Amount) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	var raw string
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		raw = v.Value
	case *types.AttributeValueMemberS:
		raw = v.Value
	case *types.AttributeValueMemberNULL:
		*a = Zero
		return nil
	default:
		return fmt.Errorf("amount: unsupported attribute type %T", av)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	a.Decimal = d
	return nil
}

// MarshalJSON renders a bare number rather than decimal's default quoted string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts both 49.5 and "49.5".
func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}
