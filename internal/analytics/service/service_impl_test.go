package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	analyticsdomain "github.com/fintelhq/spendsight/internal/analytics/domain"
	"github.com/fintelhq/spendsight/internal/clock"
	invoicedomain "github.com/fintelhq/spendsight/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   analyticsdomain.Service
}

func newFixture(t *testing.T, now time.Time) *fixture {
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

	fake := clock.NewFakeClock(now)
	return &fixture{
		db:    db,
		node:  node,
		clock: fake,
		svc:   NewService(Params{DB: db, Log: zap.NewNop(), Clock: fake}),
	}
}

func (f *fixture) vendor(t *testing.T, name string) invoicedomain.Vendor {
	t.Helper()
	var vendor invoicedomain.Vendor
	require.NoError(t, f.db.
		Where(invoicedomain.Vendor{Name: name}).
		Attrs(invoicedomain.Vendor{ID: f.node.Generate(), Slug: name}).
		FirstOrCreate(&vendor).Error)
	return vendor
}

func (f *fixture) document(t *testing.T, processedAt *time.Time) invoicedomain.Document {
	t.Helper()
	doc := invoicedomain.Document{
		ID:          f.node.Generate(),
		ExternalID:  f.node.Generate().String(),
		ProcessedAt: processedAt,
	}
	require.NoError(t, f.db.Create(&doc).Error)
	return doc
}

func (f *fixture) invoice(t *testing.T, vendorName string, date *time.Time, total float64) invoicedomain.Invoice {
	t.Helper()

	var vendorID *snowflake.ID
	if vendorName != "" {
		vendor := f.vendor(t, vendorName)
		vendorID = &vendor.ID
	}
	doc := f.document(t, date)

	inv := invoicedomain.Invoice{
		ID:           f.node.Generate(),
		VendorID:     vendorID,
		DocumentID:   doc.ID,
		InvoiceDate:  date,
		InvoiceTotal: total,
	}
	require.NoError(t, f.db.Create(&inv).Error)
	return inv
}

func (f *fixture) lineItem(t *testing.T, invoiceID snowflake.ID, ledgerCode *string, totalPrice float64) {
	t.Helper()
	item := invoicedomain.LineItem{
		ID:         f.node.Generate(),
		InvoiceID:  invoiceID,
		LedgerCode: ledgerCode,
		TotalPrice: totalPrice,
	}
	require.NoError(t, f.db.Create(&item).Error)
}

func datePtr(t time.Time) *time.Time { return &t }

func TestGetStatsYearToDateWithMonthlyDeltas(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	// current month: two invoices, 300 total
	f.invoice(t, "Acme GmbH", datePtr(time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)), 100)
	f.invoice(t, "Acme GmbH", datePtr(time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)), 200)
	// previous month: one invoice, 200 total
	f.invoice(t, "Beta AG", datePtr(time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)), 200)
	// previous year, outside YTD
	f.invoice(t, "Beta AG", datePtr(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)), 1000)

	stats, err := f.svc.GetStats(context.Background(), analyticsdomain.StatsRequest{})
	require.NoError(t, err)

	assert.InDelta(t, 500, stats.TotalSpend, 0.001)
	assert.EqualValues(t, 3, stats.TotalInvoices)
	assert.EqualValues(t, 2, stats.DocumentsThisMonth)
	assert.InDelta(t, 500.0/3, stats.AvgInvoiceValue, 0.001)

	// month over month: spend 300 vs 200, count 2 vs 1
	assert.InDelta(t, 50, stats.SpendChange, 0.001)
	assert.InDelta(t, 100, stats.InvoiceChange, 0.001)
	assert.EqualValues(t, -1, stats.DocumentsChange)
}

func TestGetStatsAllTimeFallbackWhenYearIsEmpty(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	f.invoice(t, "Acme GmbH", datePtr(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), 400)
	f.invoice(t, "Beta AG", datePtr(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)), 600)

	stats, err := f.svc.GetStats(context.Background(), analyticsdomain.StatsRequest{})
	require.NoError(t, err)

	assert.InDelta(t, 1000, stats.TotalSpend, 0.001)
	assert.EqualValues(t, 2, stats.TotalInvoices)
	assert.InDelta(t, 500, stats.AvgInvoiceValue, 0.001)
}

func TestGetStatsAllTimeParamOverridesYearToDate(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	f.invoice(t, "Acme GmbH", datePtr(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)), 100)
	f.invoice(t, "Beta AG", datePtr(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), 900)

	stats, err := f.svc.GetStats(context.Background(), analyticsdomain.StatsRequest{AllTime: true})
	require.NoError(t, err)

	assert.InDelta(t, 1000, stats.TotalSpend, 0.001)
}

func TestGetStatsZeroBaselineReportsZeroChange(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	// only current-month data, nothing in the previous month
	f.invoice(t, "Acme GmbH", datePtr(time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)), 100)

	stats, err := f.svc.GetStats(context.Background(), analyticsdomain.StatsRequest{})
	require.NoError(t, err)

	assert.Zero(t, stats.SpendChange)
	assert.Zero(t, stats.InvoiceChange)
	assert.Zero(t, stats.AvgInvoiceChange)
}

func TestGetStatsEmptyStore(t *testing.T) {
	f := newFixture(t, time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC))

	stats, err := f.svc.GetStats(context.Background(), analyticsdomain.StatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, analyticsdomain.StatsResponse{}, stats)
}

func TestListMonthlyTrendsOrdersByEarliestDate(t *testing.T) {
	f := newFixture(t, time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC))

	f.invoice(t, "Acme GmbH", datePtr(time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)), 50)
	f.invoice(t, "Acme GmbH", datePtr(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)), 100)
	f.invoice(t, "Beta AG", datePtr(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)), 200)
	f.invoice(t, "Beta AG", nil, 999) // undated, excluded

	points, err := f.svc.ListMonthlyTrends(context.Background())
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "Jan 2026", points[0].Month)
	assert.InDelta(t, 200, points[0].TotalAmount, 0.001)
	assert.EqualValues(t, 1, points[0].InvoiceCount)

	assert.Equal(t, "Mar 2026", points[1].Month)
	assert.InDelta(t, 150, points[1].TotalAmount, 0.001)
	assert.EqualValues(t, 2, points[1].InvoiceCount)
}

func TestListTopVendorsRanksBySpend(t *testing.T) {
	f := newFixture(t, time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 12; i++ {
		name := string(rune('A'+i)) + " Supplies"
		f.invoice(t, name, datePtr(time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC)), float64(100*(i+1)))
	}
	// invoice without a vendor never ranks
	f.invoice(t, "", datePtr(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)), 10000)

	vendors, err := f.svc.ListTopVendors(context.Background())
	require.NoError(t, err)
	require.Len(t, vendors, analyticsdomain.TopVendorLimit)
	assert.Equal(t, "L Supplies", vendors[0].VendorName)
	assert.InDelta(t, 1200, vendors[0].TotalSpend, 0.001)
	assert.GreaterOrEqual(t, vendors[0].TotalSpend, vendors[len(vendors)-1].TotalSpend)
}

func TestListCategorySpendGroupsUnknown(t *testing.T) {
	f := newFixture(t, time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC))

	inv := f.invoice(t, "Acme GmbH", datePtr(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)), 300)
	office := "4930"
	f.lineItem(t, inv.ID, &office, 120)
	f.lineItem(t, inv.ID, &office, 80)
	f.lineItem(t, inv.ID, nil, 50)

	categories, err := f.svc.ListCategorySpend(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "4930", categories[0].Category)
	assert.InDelta(t, 200, categories[0].TotalSpend, 0.001)
	assert.Equal(t, "Unknown", categories[1].Category)
	assert.InDelta(t, 50, categories[1].TotalSpend, 0.001)
}

func TestListVendorInvoiceStatsSkipsVendorsWithoutInvoices(t *testing.T) {
	f := newFixture(t, time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC))

	f.vendor(t, "Idle Vendor")
	f.invoice(t, "Acme GmbH", datePtr(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)), 100)
	f.invoice(t, "Acme GmbH", datePtr(time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)), 150)
	f.invoice(t, "Beta AG", datePtr(time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)), 400)

	stats, err := f.svc.ListVendorInvoiceStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "Beta AG", stats[0].VendorName)
	assert.EqualValues(t, 1, stats[0].InvoiceCount)
	assert.InDelta(t, 400, stats[0].NetValue, 0.001)

	assert.Equal(t, "Acme GmbH", stats[1].VendorName)
	assert.EqualValues(t, 2, stats[1].InvoiceCount)
	assert.InDelta(t, 250, stats[1].NetValue, 0.001)
}
