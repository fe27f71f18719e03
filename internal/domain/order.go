package domain

import "time"

// CustomerInfo is the contact data collected at checkout.
type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// OrderTotals breaks down the amount charged for an order.
type OrderTotals struct {
	Subtotal   float64 `json:"subtotal"`
	ServiceFee float64 `json:"service_fee"`
	Tax        float64 `json:"tax"`
	Total      float64 `json:"total"`
}

// Order is the outbound checkout request. It is constructed once per
// checkout attempt and immutable after construction.
type Order struct {
	TableID       string       `json:"table_id"`
	Customer      CustomerInfo `json:"customer"`
	Items         []CartLine   `json:"items"`
	PaymentMethod string       `json:"payment_method"`
	Totals        OrderTotals  `json:"totals"`
	EstimatedTime int          `json:"estimated_time"`
	CreatedAt     time.Time    `json:"created_at"`
}

// OrderResult is the normalized terminal outcome of a checkout attempt.
// Every submission produces one, even when the remote call fails; the
// Offline flag marks a locally synthesized confirmation.
type OrderResult struct {
	Success       bool    `json:"success"`
	OrderID       string  `json:"order_id"`
	OrderNumber   string  `json:"order_number"`
	Status        string  `json:"status"`
	EstimatedTime int     `json:"estimated_time"`
	TotalAmount   float64 `json:"total_amount"`
	CreatedAt     string  `json:"created_at"`
	Offline       bool    `json:"offline,omitempty"`
}
