package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/imrishuroy/go-queue-orderflow/internal/money"
)

// Status is the closed set of order lifecycle states.
type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus accepts any letter case and surrounding spaces.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

// Active reports whether the order still occupies the kitchen queue.
func (s Status) Active() bool { return s == StatusPlaced || s == StatusPreparing }

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return len(transitions[s]) == 0 }

func (s Status) String() string { return string(s) }

// Line is one ordered item with the catalog values captured at placement.
type Line struct {
	ItemID      string       `dynamodbav:"item_id" json:"itemId"`
	Name        string       `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Price       money.Amount `dynamodbav:"price" json:"price"`
	PrepMinutes int          `dynamodbav:"prep_minutes" json:"prepMinutes"`
}

// Order represents the item stored in the orders DynamoDB table.
type Order struct {
	OrderID       string       `dynamodbav:"order_id" json:"orderId"` // PK
	CustomerID    string       `dynamodbav:"customer_id" json:"customerId"`
	Items         []Line       `dynamodbav:"items" json:"items"`
	TotalAmount   money.Amount `dynamodbav:"total_amount" json:"totalAmount"`
	Status        Status       `dynamodbav:"status" json:"status"`
	OrderTime     time.Time    `dynamodbav:"order_time" json:"orderTime"`
	ReadyTime     *time.Time   `dynamodbav:"ready_time,omitempty" json:"readyTime,omitempty"`
	CompletedTime *time.Time   `dynamodbav:"completed_time,omitempty" json:"completedTime,omitempty"`
	CouponCode    string       `dynamodbav:"coupon_code,omitempty" json:"couponCode,omitempty"`
	Version       int64        `dynamodbav:"version" json:"version"`
	UpdatedAt     time.Time    `dynamodbav:"updated_at" json:"updatedAt"`
}

// PrepMinutes is the prep-time sum over every line.
func (o Order) PrepMinutes() int {
	total := 0
	for _, l := range o.Items {
		total += l.PrepMinutes
	}
	return total
}

// ItemIDs lists the catalog ids of every line, duplicates included.
func (o Order) ItemIDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, l := range o.Items {
		ids = append(ids, l.ItemID)
	}
	return ids
}
