package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	invoicedomain "github.com/fintelhq/spendsight/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func newTestService(t *testing.T, db *gorm.DB) invoicedomain.Service {
	t.Helper()
	return NewService(Params{DB: db, Log: zap.NewNop()})
}

func seedInvoice(t *testing.T, db *gorm.DB, node *snowflake.Node, vendorName, number string, date time.Time, total float64, docType string) invoicedomain.Invoice {
	t.Helper()

	var vendorID *snowflake.ID
	if vendorName != "" {
		var vendor invoicedomain.Vendor
		require.NoError(t, db.
			Where(invoicedomain.Vendor{Name: vendorName}).
			Attrs(invoicedomain.Vendor{ID: node.Generate(), Slug: vendorName}).
			FirstOrCreate(&vendor).Error)
		vendorID = &vendor.ID
	}

	doc := invoicedomain.Document{ID: node.Generate(), ExternalID: node.Generate().String()}
	require.NoError(t, db.Create(&doc).Error)

	inv := invoicedomain.Invoice{
		ID:           node.Generate(),
		VendorID:     vendorID,
		DocumentID:   doc.ID,
		InvoiceNumber: &number,
		InvoiceDate:  &date,
		InvoiceTotal: total,
	}
	if docType != "" {
		inv.DocumentType = &docType
	}
	require.NoError(t, db.Create(&inv).Error)
	return inv
}

func TestListInvoicesMatchesNumberAndVendorName(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)
	svc := newTestService(t, db)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedInvoice(t, db, node, "Acme GmbH", "INV-1001", base, 100, "Rechnung")
	seedInvoice(t, db, node, "Beta AG", "INV-2002", base.AddDate(0, 0, 1), 200, "Rechnung")
	seedInvoice(t, db, node, "Gamma KG", "XX-9", base.AddDate(0, 0, 2), 300, "Gutschrift")

	resp, err := svc.List(context.Background(), invoicedomain.ListInvoicesRequest{Query: "acme"})
	require.NoError(t, err)
	require.Len(t, resp.Invoices, 1)
	require.NotNil(t, resp.Invoices[0].Vendor)
	assert.Equal(t, "Acme GmbH", resp.Invoices[0].Vendor.Name)

	resp, err = svc.List(context.Background(), invoicedomain.ListInvoicesRequest{Query: "inv-"})
	require.NoError(t, err)
	assert.Len(t, resp.Invoices, 2)
}

func TestListInvoicesDocumentTypeFilterAndOrder(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)
	svc := newTestService(t, db)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedInvoice(t, db, node, "Acme GmbH", "A-1", base, 100, "Rechnung")
	seedInvoice(t, db, node, "Acme GmbH", "A-2", base.AddDate(0, 0, 5), 150, "Rechnung")
	seedInvoice(t, db, node, "Beta AG", "B-1", base.AddDate(0, 0, 3), 200, "Gutschrift")

	// reusing a vendor name attaches to the existing row
	var vendorCount int64
	require.NoError(t, db.Model(&invoicedomain.Vendor{}).Count(&vendorCount).Error)
	require.EqualValues(t, 2, vendorCount)

	resp, err := svc.List(context.Background(), invoicedomain.ListInvoicesRequest{DocumentType: "rechnung"})
	require.NoError(t, err)
	require.Len(t, resp.Invoices, 2)
	// newest invoice date first
	assert.Equal(t, "A-2", *resp.Invoices[0].InvoiceNumber)
	assert.Equal(t, "A-1", *resp.Invoices[1].InvoiceNumber)
}

func TestListInvoicesCapsResults(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)
	svc := newTestService(t, db)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < invoicedomain.MaxListResults+10; i++ {
		seedInvoice(t, db, node, "Acme GmbH", "N-"+base.AddDate(0, 0, i).Format("20060102"), base.AddDate(0, 0, i), 10, "")
	}

	resp, err := svc.List(context.Background(), invoicedomain.ListInvoicesRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Invoices, invoicedomain.MaxListResults)
}
