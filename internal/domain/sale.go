package domain

import (
	"strings"
	"time"
)

const (
	SaleStatusActive    = "ACTIVE"
	SaleStatusCancelled = "CANCELLED"
)

const (
	PaymentCash = "CASH"
	PaymentCard = "CARD"
	PaymentUPI  = "UPI"
)

// Sale is one ledger entry. UnitPrice, Subtotal and TotalAmount are fixed at creation.
// Cancelled sales stay in the ledger with Status CANCELLED.
//
// DiscountPercentage and DiscountAmount are recorded only; they are not folded into
// TotalAmount.
type Sale struct {
	ID                 int64     `gorm:"primaryKey" json:"id,string"`
	BikeID             int64     `gorm:"index" json:"bikeId,string"`
	CustomerID         int64     `gorm:"index" json:"customerId,string"`
	Quantity           int       `json:"quantity"`
	UnitPrice          float64   `json:"unitPrice"`
	InvoiceNumber      string    `gorm:"size:64;uniqueIndex" json:"invoiceNumber"`
	DiscountPercentage float64   `json:"discountPercentage"`
	DiscountAmount     float64   `json:"discountAmount"`
	Subtotal           float64   `json:"subtotal"`
	TotalAmount        float64   `json:"totalAmount"`
	PaymentMethod      string    `gorm:"size:16" json:"paymentMethod"`
	SaleDate           time.Time `gorm:"index" json:"saleDate"`
	Status             string    `gorm:"size:16;index" json:"status"`
	CreatedAt          time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (Sale) TableName() string {
	return "shop_sale"
}

func (s *Sale) IsCancelled() bool {
	return s.Status == SaleStatusCancelled
}

// SaleDetail is a sale joined with display fields of its bike and customer.
// Either side is nil when the referenced row no longer exists.
type SaleDetail struct {
	Sale
	Bike     *BikeRef     `json:"bike,omitempty"`
	Customer *CustomerRef `json:"customer,omitempty"`
}

// NormalizePaymentMethod accepts case variants of CASH, CARD and UPI.
// An empty value defaults to CASH; ok is false for anything else.
func NormalizePaymentMethod(v string) (method string, ok bool) {
	v = strings.ToUpper(strings.TrimSpace(v))
	switch v {
	case "":
		return PaymentCash, true
	case PaymentCash, PaymentCard, PaymentUPI:
		return v, true
	}
	return "", false
}
