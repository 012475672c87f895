package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus tracks a purchase order after it leaves the requisition.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
)

// PaymentStatus tracks settlement of a purchase order.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
)

// OrderLine is one medication on a purchase order.
type OrderLine struct {
	MedicationName string          `json:"medicationName"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
}

// PurchaseOrder is a planned order to a single depot derived from a report.
type PurchaseOrder struct {
	ID               string          `json:"id"`
	RequisitionID    string          `json:"requisitionId"`
	ReportID         string          `json:"reportId"`
	Depot            string          `json:"depot"`
	Items            []OrderLine     `json:"items"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Status           OrderStatus     `json:"status"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus"`
	OrderDate        time.Time       `json:"orderDate"`
	ExpectedDelivery time.Time       `json:"expectedDelivery"`
}
