// Package domain contains persistence models for ingested invoice documents.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Vendor is a supplier extracted from invoice documents, unique by name.
// Rows are upserted during ingestion and read-only afterwards.
type Vendor struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null;uniqueIndex:ux_vendors_name" json:"name"`
	Slug      string       `gorm:"type:text;not null;default:'';index:ix_vendors_slug" json:"slug"`
	TaxID     *string      `gorm:"type:text" json:"tax_id,omitempty"`
	Address   *string      `gorm:"type:text" json:"address,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Vendor) TableName() string { return "vendors" }

// Document is one processed source document from the extraction pipeline.
type Document struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	ExternalID     string            `gorm:"type:text;not null;uniqueIndex:ux_documents_external_id" json:"external_id"`
	Name           *string           `gorm:"type:text" json:"name,omitempty"`
	FilePath       *string           `gorm:"type:text" json:"file_path,omitempty"`
	FileType       *string           `gorm:"type:text" json:"file_type,omitempty"`
	Status         *string           `gorm:"type:text" json:"status,omitempty"`
	OrganizationID *string           `gorm:"type:text" json:"organization_id,omitempty"`
	DepartmentID   *string           `gorm:"type:text" json:"department_id,omitempty"`
	AnalyticsID    *string           `gorm:"type:text" json:"analytics_id,omitempty"`
	ProcessedAt    *time.Time        `gorm:"index:ix_documents_processed_at" json:"processed_at,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Document) TableName() string { return "documents" }

// Invoice is the extracted invoice belonging to exactly one document.
// VendorID is nil when the source document carried no vendor name.
type Invoice struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	VendorID       *snowflake.ID `gorm:"index:ix_invoices_vendor_id" json:"vendor_id,omitempty"`
	DocumentID     snowflake.ID  `gorm:"not null;index:ix_invoices_document_id" json:"document_id"`
	InvoiceNumber  *string       `gorm:"type:text" json:"invoice_number,omitempty"`
	InvoiceDate    *time.Time    `gorm:"index:ix_invoices_invoice_date" json:"invoice_date,omitempty"`
	DeliveryDate   *time.Time    `gorm:"" json:"delivery_date,omitempty"`
	DocumentType   *string       `gorm:"type:text" json:"document_type,omitempty"`
	SubTotal       float64       `gorm:"not null;default:0" json:"sub_total"`
	TotalTax       float64       `gorm:"not null;default:0" json:"total_tax"`
	InvoiceTotal   float64       `gorm:"not null;default:0" json:"invoice_total"`
	CurrencySymbol string        `gorm:"type:text;not null;default:'€'" json:"currency_symbol"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Vendor *Vendor `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Payment holds the payment terms extracted for an invoice, zero-or-one per
// invoice in this model.
type Payment struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID       snowflake.ID `gorm:"not null;index:ix_payments_invoice_id" json:"invoice_id"`
	BankAccount     *string      `gorm:"type:text" json:"bank_account,omitempty"`
	BIC             *string      `gorm:"type:text;column:bic" json:"bic,omitempty"`
	AccountName     *string      `gorm:"type:text" json:"account_name,omitempty"`
	DueDate         *time.Time   `gorm:"index:ix_payments_due_date" json:"due_date,omitempty"`
	NetDays         int          `gorm:"not null;default:0" json:"net_days"`
	DiscountedTotal float64      `gorm:"not null;default:0" json:"discounted_total"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// LineItem is one position on an invoice. LedgerCode carries the accounting
// category (Sachkonto) used for category spend reporting.
type LineItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID `gorm:"not null;index:ix_line_items_invoice_id" json:"invoice_id"`
	SrNo        int          `gorm:"not null;default:0" json:"sr_no"`
	Description *string      `gorm:"type:text" json:"description,omitempty"`
	Quantity    float64      `gorm:"not null;default:0" json:"quantity"`
	UnitPrice   float64      `gorm:"not null;default:0" json:"unit_price"`
	TotalPrice  float64      `gorm:"not null;default:0" json:"total_price"`
	VATAmount   float64      `gorm:"not null;default:0;column:vat_amount" json:"vat_amount"`
	VATRate     float64      `gorm:"not null;default:0;column:vat_rate" json:"vat_rate"`
	LedgerCode  *string      `gorm:"type:text;index:ix_line_items_ledger_code" json:"ledger_code,omitempty"`
	BookingKey  *string      `gorm:"type:text" json:"booking_key,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "line_items" }
