package model

import "github.com/shopspring/decimal"

// DepotQuote is one depot's offer for a medication at a given quantity.
type DepotQuote struct {
	DepotName    string          `json:"depotName"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	DeliveryDays int             `json:"deliveryDays"`
	InStock      bool            `json:"inStock"`
}
