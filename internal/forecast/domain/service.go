// Package domain defines the cash-outflow forecast read model.
package domain

import "context"

// OutflowPoint is the projected payable total for one due-date range.
type OutflowPoint struct {
	Range string  `json:"range"`
	Total float64 `json:"total"`
}

// Service projects open invoices onto configured due-date ranges. Every
// configured range is always present in the response, zero when empty.
type Service interface {
	GetCashOutflow(ctx context.Context) ([]OutflowPoint, error)
}
