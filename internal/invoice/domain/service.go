package domain

import "context"

// ListInvoicesRequest filters the searchable invoice table.
type ListInvoicesRequest struct {
	// Query matches invoice number or vendor name, case-insensitive substring.
	Query string
	// DocumentType narrows by document type, case-insensitive substring.
	DocumentType string
}

// ListInvoicesResponse carries at most MaxListResults invoices, newest first.
type ListInvoicesResponse struct {
	Invoices []Invoice `json:"invoices"`
}

// MaxListResults caps the searchable invoice table.
const MaxListResults = 50

// Service exposes read access to ingested invoices.
type Service interface {
	List(ctx context.Context, req ListInvoicesRequest) (ListInvoicesResponse, error)
}
