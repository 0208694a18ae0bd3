// Package ingest loads the extraction export into the relational store.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fintelhq/spendsight/internal/config"
	invoicedomain "github.com/fintelhq/spendsight/internal/invoice/domain"
	"github.com/fintelhq/spendsight/internal/observability/metrics"
	"github.com/fintelhq/spendsight/pkg/db"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Config  config.Config
	Log     *zap.Logger
	Node    *snowflake.Node
	Metrics *metrics.Metrics `optional:"true"`
}

// Result summarizes one ingest run.
type Result struct {
	Documents int
	Failures  int
}

type Service struct {
	db      *gorm.DB
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	node    *snowflake.Node
}

func NewService(p Params) *Service {
	return &Service{
		db:      p.DB,
		cfg:     p.Config,
		log:     p.Log.Named("ingest"),
		metrics: p.Metrics,
		node:    p.Node,
	}
}

// RunFile ingests the export at path, falling back to the configured seed
// data path. Documents are processed independently: a bad record is logged
// and skipped, the batch keeps going.
func (s *Service) RunFile(ctx context.Context, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		path = s.cfg.SeedDataPath
	}
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ingest: no data file configured")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: read export: %w", err)
	}

	var docs []RawDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return Result{}, fmt.Errorf("ingest: decode export: %w", err)
	}
	s.log.Info("export loaded", zap.String("path", path), zap.Int("documents", len(docs)))

	return s.Run(ctx, docs)
}

// Run ingests decoded documents. Each document commits in its own
// transaction so a failure never leaves dangling child rows.
func (s *Service) Run(ctx context.Context, docs []RawDocument) (Result, error) {
	var result Result
	for i := range docs {
		if err := s.ingestDocument(ctx, &docs[i]); err != nil {
			s.log.Error("document skipped",
				zap.Int("index", i),
				zap.String("external_id", string(docs[i].ID)),
				zap.String("reason", failureReason(err)),
				zap.Error(err),
			)
			s.metrics.RecordIngestFailure(ctx, failureReason(err))
			result.Failures++
			continue
		}
		s.metrics.RecordDocumentIngested(ctx)
		result.Documents++
	}
	s.log.Info("ingest finished",
		zap.Int("documents", result.Documents),
		zap.Int("failures", result.Failures),
	)
	return result, nil
}

func (s *Service) ingestDocument(ctx context.Context, raw *RawDocument) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vendorID, err := s.upsertVendor(tx, raw)
		if err != nil {
			return fmt.Errorf("vendor: %w", err)
		}

		doc, err := s.createDocument(tx, raw)
		if err != nil {
			return fmt.Errorf("document: %w", err)
		}

		invoice, err := s.createInvoice(tx, raw, doc.ID, vendorID)
		if err != nil {
			return fmt.Errorf("invoice: %w", err)
		}

		if err := s.createPayment(tx, raw, invoice.ID); err != nil {
			return fmt.Errorf("payment: %w", err)
		}
		if err := s.createLineItems(tx, raw, invoice.ID); err != nil {
			return fmt.Errorf("line items: %w", err)
		}
		return nil
	})
}

// upsertVendor keys vendors on the extracted name and refreshes tax id and
// address on re-ingest. Documents without a vendor name stay unattributed.
func (s *Service) upsertVendor(tx *gorm.DB, raw *RawDocument) (*snowflake.ID, error) {
	vendorNode := llmData(raw).Vendor
	if !vendorNode.Present {
		return nil, nil
	}
	name := strings.TrimSpace(vendorNode.Value.VendorName.Value)
	if name == "" {
		return nil, nil
	}
	taxID := vendorNode.Value.VendorTaxID.Ptr()
	address := vendorNode.Value.VendorAddress.Ptr()

	var vendor invoicedomain.Vendor
	err := tx.Where("name = ?", name).First(&vendor).Error
	switch {
	case err == nil:
		updates := map[string]any{}
		if taxID != nil {
			updates["tax_id"] = *taxID
		}
		if address != nil {
			updates["address"] = *address
		}
		if len(updates) > 0 {
			if err := tx.Model(&vendor).Updates(updates).Error; err != nil {
				return nil, err
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		vendor = invoicedomain.Vendor{
			ID:      s.node.Generate(),
			Name:    name,
			Slug:    slug.Make(name),
			TaxID:   taxID,
			Address: address,
		}
		if err := tx.Create(&vendor).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return &vendor.ID, nil
}

func (s *Service) createDocument(tx *gorm.DB, raw *RawDocument) (invoicedomain.Document, error) {
	externalID := strings.TrimSpace(string(raw.ID))
	if externalID == "" {
		externalID = uuid.NewString()
	}

	metadata := datatypes.JSONMap{}
	for k, v := range raw.Metadata {
		metadata[k] = v
	}

	doc := invoicedomain.Document{
		ID:             s.node.Generate(),
		ExternalID:     externalID,
		Name:           raw.Name,
		FilePath:       raw.FilePath,
		FileType:       raw.FileType,
		Status:         raw.Status,
		OrganizationID: raw.OrganizationID,
		DepartmentID:   raw.DepartmentID,
		AnalyticsID:    raw.AnalyticsID,
		ProcessedAt:    raw.ProcessedAt.Time,
		Metadata:       metadata,
	}
	if err := tx.Create(&doc).Error; err != nil {
		return invoicedomain.Document{}, err
	}
	return doc, nil
}

func (s *Service) createInvoice(tx *gorm.DB, raw *RawDocument, documentID snowflake.ID, vendorID *snowflake.ID) (invoicedomain.Invoice, error) {
	data := llmData(raw)
	invoiceNode := data.Invoice.Value
	summary := data.Summary.Value

	currency := "€"
	if summary.CurrencySymbol != nil && strings.TrimSpace(*summary.CurrencySymbol) != "" {
		currency = *summary.CurrencySymbol
	}

	var invoiceNumber *string
	if number := strings.TrimSpace(invoiceNode.InvoiceID.Value); number != "" {
		invoiceNumber = &number
	}

	invoice := invoicedomain.Invoice{
		ID:             s.node.Generate(),
		VendorID:       vendorID,
		DocumentID:     documentID,
		InvoiceNumber:  invoiceNumber,
		InvoiceDate:    invoiceNode.InvoiceDate.Time,
		DeliveryDate:   invoiceNode.DeliveryDate.Time,
		DocumentType:   summary.DocumentType,
		SubTotal:       float64(summary.SubTotal),
		TotalTax:       float64(summary.TotalTax),
		InvoiceTotal:   float64(summary.InvoiceTotal),
		CurrencySymbol: currency,
	}
	if err := tx.Create(&invoice).Error; err != nil {
		return invoicedomain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) createPayment(tx *gorm.DB, raw *RawDocument, invoiceID snowflake.ID) error {
	paymentNode := llmData(raw).Payment
	if !paymentNode.Present {
		return nil
	}
	p := paymentNode.Value

	payment := invoicedomain.Payment{
		ID:              s.node.Generate(),
		InvoiceID:       invoiceID,
		BankAccount:     p.BankAccountNumber.Ptr(),
		BIC:             p.BIC.Ptr(),
		AccountName:     p.AccountName.Ptr(),
		DueDate:         p.DueDate.Time,
		NetDays:         int(p.NetDays.Value),
		DiscountedTotal: float64(p.DiscountedTotal.Value),
	}
	return tx.Create(&payment).Error
}

func (s *Service) createLineItems(tx *gorm.DB, raw *RawDocument, invoiceID snowflake.ID) error {
	itemsNode := llmData(raw).LineItems
	if !itemsNode.Present {
		return nil
	}
	for _, item := range itemsNode.Value.Items.Value {
		row := invoicedomain.LineItem{
			ID:          s.node.Generate(),
			InvoiceID:   invoiceID,
			SrNo:        int(item.SrNo.Value),
			Description: item.Description.Ptr(),
			Quantity:    float64(item.Quantity.Value),
			UnitPrice:   float64(item.UnitPrice.Value),
			TotalPrice:  float64(item.TotalPrice.Value),
			VATAmount:   float64(item.VATAmount.Value),
			VATRate:     float64(item.VATRate.Value),
			LedgerCode:  item.LedgerCode.Ptr(),
			BookingKey:  item.BookingKey.Ptr(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// failureReason labels a skipped document for the failure counter. Duplicate
// external ids are the common re-run case and get their own label.
func failureReason(err error) string {
	if db.IsDuplicateKeyErr(err) {
		return "duplicate"
	}
	return "document"
}

var emptyLLMData RawLLMData

func llmData(raw *RawDocument) *RawLLMData {
	if raw.ExtractedData == nil || raw.ExtractedData.LLMData == nil {
		return &emptyLLMData
	}
	return raw.ExtractedData.LLMData
}
