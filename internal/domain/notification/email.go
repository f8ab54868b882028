package notification

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmailJobType values understood by the email worker.
const (
	EmailNewOrder = "NEW_ORDER"
)

// EmailJob is one pending outbound email on the work queue.
type EmailJob struct {
	EventID        string        `json:"eventId"`
	EventType      string        `json:"eventType" validate:"required"`
	RecipientEmail string        `json:"recipientEmail" validate:"required,email"`
	CreatedAt      time.Time     `json:"createdAt"`
	RetryCount     int           `json:"retryCount" validate:"gte=0"`
	Metadata       EmailMetadata `json:"metadata"`
}

type EmailMetadata struct {
	OrderID       string          `json:"orderId" validate:"required"`
	CustomerName  string          `json:"customerName" validate:"required"`
	PhoneNumber   string          `json:"phoneNumber,omitempty"`
	FullAddress   string          `json:"fullAddress,omitempty"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	TotalItems    int             `json:"totalItems" validate:"gte=0"`
	OrderItems    []OrderItem     `json:"orderItems" validate:"dive"`
	OrderPlacedAt string          `json:"orderPlacedAt,omitempty"`
}

type OrderItem struct {
	ProductName string          `json:"productName" validate:"required"`
	ProductSKU  string          `json:"productSku,omitempty"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}
