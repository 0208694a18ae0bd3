package service

import (
	"context"
	"strings"

	invoicedomain "github.com/fintelhq/spendsight/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),
	}
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoicesRequest) (invoicedomain.ListInvoicesResponse, error) {
	query := s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Joins("LEFT JOIN vendors ON vendors.id = invoices.vendor_id").
		Preload("Vendor")

	if docType := strings.TrimSpace(req.DocumentType); docType != "" {
		query = query.Where("LOWER(invoices.document_type) LIKE ?", containsPattern(docType))
	}
	if q := strings.TrimSpace(req.Query); q != "" {
		pattern := containsPattern(q)
		query = query.Where(
			"LOWER(invoices.invoice_number) LIKE ? OR LOWER(vendors.name) LIKE ?",
			pattern, pattern,
		)
	}

	var invoices []invoicedomain.Invoice
	if err := query.
		Order("invoices.invoice_date DESC").
		Limit(invoicedomain.MaxListResults).
		Find(&invoices).Error; err != nil {
		return invoicedomain.ListInvoicesResponse{}, err
	}

	return invoicedomain.ListInvoicesResponse{Invoices: invoices}, nil
}

func containsPattern(value string) string {
	return "%" + strings.ToLower(strings.TrimSpace(value)) + "%"
}
