package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/fintelhq/spendsight/internal/config"
	invoicedomain "github.com/fintelhq/spendsight/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sampleExport = `[
  {
    "_id": "doc-001",
    "name": "scan-march.pdf",
    "fileType": "pdf",
    "status": "processed",
    "processedAt": {"$date": "2026-03-05T10:00:00Z"},
    "metadata": {"source": "upload"},
    "extractedData": {
      "llmData": {
        "vendor": {
          "value": {
            "vendorName": {"value": "Acme GmbH"},
            "vendorTaxId": {"value": "DE123456789"},
            "vendorAddress": {"value": "Musterstr. 1, Berlin"}
          }
        },
        "invoice": {
          "value": {
            "invoiceId": {"value": "INV-1001"},
            "invoiceDate": {"value": "2026-03-01"},
            "deliveryDate": {"value": "not-a-date"}
          }
        },
        "summary": {
          "value": {
            "documentType": "Rechnung",
            "subTotal": 100,
            "totalTax": "19",
            "invoiceTotal": 119
          }
        },
        "payment": {
          "value": {
            "bankAccountNumber": {"value": "DE02120300000000202051"},
            "dueDate": {"value": "2026-03-31T00:00:00Z"},
            "netDays": {"value": 30}
          }
        },
        "lineItems": {
          "value": {
            "items": {
              "value": [
                {
                  "srNo": {"value": 1},
                  "description": {"value": "Paper"},
                  "quantity": {"value": 2},
                  "unitPrice": {"value": 50},
                  "totalPrice": {"value": 100},
                  "vatAmount": {"value": 19},
                  "vatRate": {"value": 19},
                  "Sachkonto": {"value": "4930"}
                }
              ]
            }
          }
        }
      }
    }
  }
]`

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&invoicedomain.Vendor{},
		&invoicedomain.Document{},
		&invoicedomain.Invoice{},
		&invoicedomain.Payment{},
		&invoicedomain.LineItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{DB: db, Config: config.Config{}, Log: zap.NewNop(), Node: node})
	return svc, db
}

func decodeDocs(t *testing.T, data string) []RawDocument {
	t.Helper()
	var docs []RawDocument
	require.NoError(t, json.Unmarshal([]byte(data), &docs))
	return docs
}

func TestRunIngestsOneRowPerTable(t *testing.T) {
	svc, db := newTestService(t)

	result, err := svc.Run(context.Background(), decodeDocs(t, sampleExport))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Documents)
	assert.Zero(t, result.Failures)

	var vendor invoicedomain.Vendor
	require.NoError(t, db.First(&vendor).Error)
	assert.Equal(t, "Acme GmbH", vendor.Name)
	assert.Equal(t, "acme-gmbh", vendor.Slug)
	require.NotNil(t, vendor.TaxID)
	assert.Equal(t, "DE123456789", *vendor.TaxID)

	var doc invoicedomain.Document
	require.NoError(t, db.First(&doc).Error)
	assert.Equal(t, "doc-001", doc.ExternalID)
	require.NotNil(t, doc.ProcessedAt)
	assert.Equal(t, time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC), doc.ProcessedAt.UTC())

	var invoice invoicedomain.Invoice
	require.NoError(t, db.First(&invoice).Error)
	require.NotNil(t, invoice.VendorID)
	assert.Equal(t, vendor.ID, *invoice.VendorID)
	assert.Equal(t, doc.ID, invoice.DocumentID)
	require.NotNil(t, invoice.InvoiceNumber)
	assert.Equal(t, "INV-1001", *invoice.InvoiceNumber)
	require.NotNil(t, invoice.InvoiceDate)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), invoice.InvoiceDate.UTC())
	assert.Nil(t, invoice.DeliveryDate) // unparseable date dropped
	assert.InDelta(t, 19, invoice.TotalTax, 0.001) // numeric string coerced
	assert.InDelta(t, 119, invoice.InvoiceTotal, 0.001)
	assert.Equal(t, "€", invoice.CurrencySymbol)

	var payment invoicedomain.Payment
	require.NoError(t, db.First(&payment).Error)
	assert.Equal(t, invoice.ID, payment.InvoiceID)
	assert.Equal(t, 30, payment.NetDays)
	require.NotNil(t, payment.DueDate)

	var item invoicedomain.LineItem
	require.NoError(t, db.First(&item).Error)
	assert.Equal(t, invoice.ID, item.InvoiceID)
	assert.Equal(t, 1, item.SrNo)
	require.NotNil(t, item.LedgerCode)
	assert.Equal(t, "4930", *item.LedgerCode)
	assert.Nil(t, item.BookingKey)
}

func TestRunUpdatesVendorOnReingest(t *testing.T) {
	svc, db := newTestService(t)

	docs := decodeDocs(t, sampleExport)
	_, err := svc.Run(context.Background(), docs)
	require.NoError(t, err)

	second := decodeDocs(t, sampleExport)
	second[0].ID = "doc-002"
	taxID := "DE999999999"
	second[0].ExtractedData.LLMData.Vendor.Value.VendorTaxID.Value = taxID
	second[0].ExtractedData.LLMData.Vendor.Value.VendorTaxID.Present = true
	_, err = svc.Run(context.Background(), second)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&invoicedomain.Vendor{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var vendor invoicedomain.Vendor
	require.NoError(t, db.First(&vendor).Error)
	require.NotNil(t, vendor.TaxID)
	assert.Equal(t, taxID, *vendor.TaxID)
}

func TestRunSkipsFailedDocumentAndContinues(t *testing.T) {
	svc, db := newTestService(t)

	docs := decodeDocs(t, sampleExport)
	// same external id twice: the duplicate violates the unique index and is
	// skipped, the following document still lands
	duplicate := decodeDocs(t, sampleExport)[0]
	third := decodeDocs(t, sampleExport)[0]
	third.ID = "doc-003"
	docs = append(docs, duplicate, third)

	result, err := svc.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Documents)
	assert.Equal(t, 1, result.Failures)

	var count int64
	require.NoError(t, db.Model(&invoicedomain.Document{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestFailureReasonClassifiesDuplicates(t *testing.T) {
	assert.Equal(t, "duplicate", failureReason(gorm.ErrDuplicatedKey))
	assert.Equal(t, "duplicate", failureReason(errors.New("UNIQUE constraint failed: documents.external_id")))
	assert.Equal(t, "document", failureReason(errors.New("invoice: connection reset")))
}

func TestRunHandlesDocumentWithoutVendorOrID(t *testing.T) {
	svc, db := newTestService(t)

	const bare = `[{"extractedData": {"llmData": {"summary": {"value": {"invoiceTotal": 42}}}}}]`
	result, err := svc.Run(context.Background(), decodeDocs(t, bare))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Documents)

	var doc invoicedomain.Document
	require.NoError(t, db.First(&doc).Error)
	assert.NotEmpty(t, doc.ExternalID) // generated id

	var invoice invoicedomain.Invoice
	require.NoError(t, db.First(&invoice).Error)
	assert.Nil(t, invoice.VendorID)
	assert.InDelta(t, 42, invoice.InvoiceTotal, 0.001)
	assert.Equal(t, "€", invoice.CurrencySymbol)
}
