package service

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fintelhq/spendsight/internal/clock"
	"github.com/fintelhq/spendsight/internal/config"
	forecastdomain "github.com/fintelhq/spendsight/internal/forecast/domain"
	invoicedomain "github.com/fintelhq/spendsight/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Forecast *config.ForecastConfigHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	forecast *config.ForecastConfigHolder
}

func NewService(p Params) forecastdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("forecast.service"),
		clock:    p.Clock,
		forecast: p.Forecast,
	}
}

// GetCashOutflow resolves a due date per invoice and sums invoice totals into
// the configured ranges. Invoices without a resolvable due date and invoices
// already overdue are left out of the projection.
func (s *Service) GetCashOutflow(ctx context.Context) ([]forecastdomain.OutflowPoint, error) {
	cfg := s.forecast.Get()
	now := s.clock.Now()

	var invoices []invoicedomain.Invoice
	if err := s.db.WithContext(ctx).
		Select("id, invoice_date, invoice_total").
		Find(&invoices).Error; err != nil {
		return nil, err
	}

	var payments []invoicedomain.Payment
	if err := s.db.WithContext(ctx).
		Select("id, invoice_id, due_date, net_days").
		Order("id ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	paymentByInvoice := make(map[snowflake.ID]*invoicedomain.Payment, len(payments))
	for i := range payments {
		p := &payments[i]
		if _, ok := paymentByInvoice[p.InvoiceID]; !ok {
			paymentByInvoice[p.InvoiceID] = p
		}
	}

	totals := make([]float64, len(cfg.Buckets))
	excluded := 0
	for _, inv := range invoices {
		dueDate, ok := resolveDueDate(inv, paymentByInvoice[inv.ID], cfg.DefaultTermDays)
		if !ok || dueDate.Before(now) {
			excluded++
			continue
		}
		idx := bucketIndex(cfg.Buckets, daysUntil(now, dueDate))
		totals[idx] += inv.InvoiceTotal
	}
	if excluded > 0 {
		s.log.Debug("invoices excluded from outflow projection", zap.Int("count", excluded))
	}

	points := make([]forecastdomain.OutflowPoint, len(cfg.Buckets))
	for i, b := range cfg.Buckets {
		points[i] = forecastdomain.OutflowPoint{Range: b.Label, Total: totals[i]}
	}
	return points, nil
}

// resolveDueDate picks, in order: the payment due date, the invoice date plus
// the payment's net days, then the invoice date plus the default term.
func resolveDueDate(inv invoicedomain.Invoice, payment *invoicedomain.Payment, defaultTermDays int) (time.Time, bool) {
	if payment != nil {
		if payment.DueDate != nil {
			return *payment.DueDate, true
		}
		if payment.NetDays > 0 && inv.InvoiceDate != nil {
			return inv.InvoiceDate.AddDate(0, 0, payment.NetDays), true
		}
	}
	if inv.InvoiceDate != nil {
		return inv.InvoiceDate.AddDate(0, 0, defaultTermDays), true
	}
	return time.Time{}, false
}

func daysUntil(now, dueDate time.Time) int {
	return int(math.Ceil(dueDate.Sub(now).Hours() / 24))
}

// bucketIndex returns the first configured range whose upper bound covers the
// day distance; an open-ended range catches everything beyond it.
func bucketIndex(buckets []config.OutflowBucket, days int) int {
	for i, b := range buckets {
		if b.MaxDays == nil || days <= *b.MaxDays {
			return i
		}
	}
	return len(buckets) - 1
}
