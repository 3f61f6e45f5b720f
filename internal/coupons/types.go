package coupons

import "time"

// Coupon is the redemption code issued once per paid order.
type Coupon struct {
	Code      string    `dynamodbav:"code" json:"code"`
	OrderID   string    `dynamodbav:"order_id" json:"orderId"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"createdAt"`
}

// record is the stored shape. Each coupon is written twice, once under
// ORDER#<orderId> and once under CODE#<code>, so both stay unique.
type record struct {
	PK string `dynamodbav:"pk"`
	Coupon
}

func orderKey(orderID string) string { return "ORDER#" + orderID }

func codeKey(code string) string { return "CODE#" + code }
