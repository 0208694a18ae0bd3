// Package domain defines the read models served by the analytics dashboard.
package domain

import "context"

// StatsRequest controls the reporting window of the KPI summary.
type StatsRequest struct {
	// AllTime forces all-time totals instead of year-to-date.
	AllTime bool
}

// StatsResponse is the KPI summary card payload. Change fields compare the
// current calendar month against the previous one; percentage changes are 0
// when the previous month had no data.
type StatsResponse struct {
	TotalSpend         float64 `json:"totalSpend"`
	TotalInvoices      int64   `json:"totalInvoices"`
	DocumentsThisMonth int64   `json:"documentsThisMonth"`
	AvgInvoiceValue    float64 `json:"avgInvoiceValue"`
	SpendChange        float64 `json:"spendChange"`
	InvoiceChange      float64 `json:"invoiceChange"`
	DocumentsChange    int64   `json:"documentsChange"`
	AvgInvoiceChange   float64 `json:"avgInvoiceChange"`
}

// TrendPoint is one calendar month of invoice volume, labeled "Jan 2006".
type TrendPoint struct {
	Month        string  `json:"month"`
	TotalAmount  float64 `json:"totalamount"`
	InvoiceCount int64   `json:"invoicecount"`
}

// VendorSpend ranks a vendor by its summed invoice totals.
type VendorSpend struct {
	VendorName string  `gorm:"column:vendor_name" json:"vendor_name"`
	TotalSpend float64 `gorm:"column:total_spend" json:"total_spend"`
}

// CategorySpend sums line item spend per ledger code. Line items without a
// ledger code report under "Unknown".
type CategorySpend struct {
	Category   string  `gorm:"column:category" json:"category"`
	TotalSpend float64 `gorm:"column:total_spend" json:"total_spend"`
}

// VendorInvoiceStats carries per-vendor invoice counts and net values.
type VendorInvoiceStats struct {
	VendorName   string  `gorm:"column:vendor_name" json:"vendor_name"`
	InvoiceCount int64   `gorm:"column:invoice_count" json:"invoice_count"`
	NetValue     float64 `gorm:"column:net_value" json:"net_value"`
}

// TopVendorLimit caps the vendor ranking endpoints.
const TopVendorLimit = 10

// Service aggregates ingested invoices into dashboard read models.
type Service interface {
	GetStats(ctx context.Context, req StatsRequest) (StatsResponse, error)
	ListMonthlyTrends(ctx context.Context) ([]TrendPoint, error)
	ListTopVendors(ctx context.Context) ([]VendorSpend, error)
	ListCategorySpend(ctx context.Context) ([]CategorySpend, error)
	ListVendorInvoiceStats(ctx context.Context) ([]VendorInvoiceStats, error)
}
