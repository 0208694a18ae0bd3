package service

import (
	"context"
	"sort"
	"time"

	analyticsdomain "github.com/fintelhq/spendsight/internal/analytics/domain"
	"github.com/fintelhq/spendsight/internal/clock"
	invoicedomain "github.com/fintelhq/spendsight/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func NewService(p Params) analyticsdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("analytics.service"),
		clock: p.Clock,
	}
}

// GetStats builds the KPI summary. Totals default to year-to-date and fall
// back to all-time when the current year has no invoices yet; change fields
// always compare the current calendar month against the previous one.
func (s *Service) GetStats(ctx context.Context, req analyticsdomain.StatsRequest) (analyticsdomain.StatsResponse, error) {
	now := s.clock.Now()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	ytdSpend, err := s.sumInvoiceTotal(ctx, &yearStart, nil)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}
	allTimeSpend, err := s.sumInvoiceTotal(ctx, nil, nil)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}
	totalSpend := ytdSpend
	if req.AllTime || ytdSpend == 0 {
		totalSpend = allTimeSpend
	}

	currentMonthSpend, err := s.sumInvoiceTotal(ctx, &monthStart, nil)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}
	lastMonthSpend, err := s.sumInvoiceTotal(ctx, &lastMonthStart, &monthStart)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}

	ytdInvoices, err := s.countInvoices(ctx, &yearStart, nil)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}
	allTimeInvoices, err := s.countInvoices(ctx, nil, nil)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}
	totalInvoices := ytdInvoices
	if totalInvoices == 0 {
		totalInvoices = allTimeInvoices
	}

	currentMonthInvoices, err := s.countInvoices(ctx, &monthStart, nil)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}
	lastMonthInvoices, err := s.countInvoices(ctx, &lastMonthStart, &monthStart)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}

	documentsThisMonth, err := s.countDocuments(ctx, &monthStart, nil)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}
	documentsLastMonth, err := s.countDocuments(ctx, &lastMonthStart, &monthStart)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}

	ytdAvg, err := s.avgInvoiceTotal(ctx, &yearStart, nil)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}
	lastMonthAvg, err := s.avgInvoiceTotal(ctx, &lastMonthStart, &monthStart)
	if err != nil {
		return analyticsdomain.StatsResponse{}, err
	}

	avgInvoiceValue := ytdAvg
	if ytdSpend == 0 {
		divisor := allTimeInvoices
		if divisor == 0 {
			divisor = 1
		}
		avgInvoiceValue = allTimeSpend / float64(divisor)
	}

	return analyticsdomain.StatsResponse{
		TotalSpend:         totalSpend,
		TotalInvoices:      totalInvoices,
		DocumentsThisMonth: documentsThisMonth,
		AvgInvoiceValue:    avgInvoiceValue,
		SpendChange:        percentChange(currentMonthSpend, lastMonthSpend),
		InvoiceChange:      percentChange(float64(currentMonthInvoices), float64(lastMonthInvoices)),
		DocumentsChange:    documentsLastMonth - documentsThisMonth,
		AvgInvoiceChange:   percentChange(ytdAvg, lastMonthAvg),
	}, nil
}

// ListMonthlyTrends groups dated invoices per calendar month, ordered by the
// earliest invoice date in each group. Undated invoices are excluded.
func (s *Service) ListMonthlyTrends(ctx context.Context) ([]analyticsdomain.TrendPoint, error) {
	var rows []struct {
		InvoiceDate  time.Time
		InvoiceTotal float64
	}
	if err := s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Select("invoice_date, invoice_total").
		Where("invoice_date IS NOT NULL").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		point    analyticsdomain.TrendPoint
		earliest time.Time
	}
	byMonth := make(map[string]*bucket)
	for _, row := range rows {
		label := row.InvoiceDate.Format("Jan 2006")
		b, ok := byMonth[label]
		if !ok {
			b = &bucket{
				point:    analyticsdomain.TrendPoint{Month: label},
				earliest: row.InvoiceDate,
			}
			byMonth[label] = b
		}
		b.point.TotalAmount += row.InvoiceTotal
		b.point.InvoiceCount++
		if row.InvoiceDate.Before(b.earliest) {
			b.earliest = row.InvoiceDate
		}
	}

	buckets := make([]*bucket, 0, len(byMonth))
	for _, b := range byMonth {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].earliest.Before(buckets[j].earliest)
	})

	points := make([]analyticsdomain.TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, b.point)
	}
	return points, nil
}

func (s *Service) ListTopVendors(ctx context.Context) ([]analyticsdomain.VendorSpend, error) {
	var vendors []analyticsdomain.VendorSpend
	if err := s.db.WithContext(ctx).
		Table("invoices").
		Select("vendors.name AS vendor_name, SUM(invoices.invoice_total) AS total_spend").
		Joins("JOIN vendors ON vendors.id = invoices.vendor_id").
		Group("vendors.name").
		Order("total_spend DESC").
		Limit(analyticsdomain.TopVendorLimit).
		Scan(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (s *Service) ListCategorySpend(ctx context.Context) ([]analyticsdomain.CategorySpend, error) {
	var categories []analyticsdomain.CategorySpend
	if err := s.db.WithContext(ctx).
		Table("line_items").
		Select("COALESCE(ledger_code, 'Unknown') AS category, SUM(total_price) AS total_spend").
		Group("category").
		Order("total_spend DESC").
		Scan(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// ListVendorInvoiceStats ranks vendors by summed net value. Vendors without
// any invoice are filtered out.
func (s *Service) ListVendorInvoiceStats(ctx context.Context) ([]analyticsdomain.VendorInvoiceStats, error) {
	var stats []analyticsdomain.VendorInvoiceStats
	if err := s.db.WithContext(ctx).
		Table("vendors").
		Select("vendors.name AS vendor_name, COUNT(invoices.id) AS invoice_count, COALESCE(SUM(invoices.invoice_total), 0) AS net_value").
		Joins("LEFT JOIN invoices ON invoices.vendor_id = vendors.id").
		Group("vendors.name").
		Having("COUNT(invoices.id) > 0").
		Order("net_value DESC").
		Limit(analyticsdomain.TopVendorLimit).
		Scan(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) sumInvoiceTotal(ctx context.Context, from, to *time.Time) (float64, error) {
	var total float64
	query := s.applyDateRange(
		s.db.WithContext(ctx).Model(&invoicedomain.Invoice{}),
		"invoice_date", from, to,
	)
	err := query.Select("COALESCE(SUM(invoice_total), 0)").Scan(&total).Error
	return total, err
}

func (s *Service) avgInvoiceTotal(ctx context.Context, from, to *time.Time) (float64, error) {
	var avg float64
	query := s.applyDateRange(
		s.db.WithContext(ctx).Model(&invoicedomain.Invoice{}),
		"invoice_date", from, to,
	)
	err := query.Select("COALESCE(AVG(invoice_total), 0)").Scan(&avg).Error
	return avg, err
}

func (s *Service) countInvoices(ctx context.Context, from, to *time.Time) (int64, error) {
	var count int64
	query := s.applyDateRange(
		s.db.WithContext(ctx).Model(&invoicedomain.Invoice{}),
		"invoice_date", from, to,
	)
	err := query.Count(&count).Error
	return count, err
}

func (s *Service) countDocuments(ctx context.Context, from, to *time.Time) (int64, error) {
	var count int64
	query := s.applyDateRange(
		s.db.WithContext(ctx).Model(&invoicedomain.Document{}),
		"processed_at", from, to,
	)
	err := query.Count(&count).Error
	return count, err
}

func (s *Service) applyDateRange(query *gorm.DB, column string, from, to *time.Time) *gorm.DB {
	if from != nil {
		query = query.Where(column+" >= ?", *from)
	}
	if to != nil {
		query = query.Where(column+" < ?", *to)
	}
	return query
}

func percentChange(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return (current - previous) / previous * 100
}
