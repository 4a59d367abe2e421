// Package reporting is the read side of the shop: dashboards, trends and summaries
// aggregated from the sale ledger. Nothing here writes or locks.
package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/internal/store"
	"gorm.io/gorm"
)

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

const (
	DefaultLowStockThreshold = 5
	DefaultTopBikesLimit     = 5
)

// Engine runs report queries against the committed ledger state.
type Engine struct {
	db                *gorm.DB
	stores            *store.Stores
	lowStockThreshold int
	now               func() time.Time
}

// NewEngine creates a report engine. A threshold below 1 falls back to DefaultLowStockThreshold.
func NewEngine(db *gorm.DB, lowStockThreshold int) *Engine {
	if lowStockThreshold < 1 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &Engine{
		db:                db,
		stores:            store.New(db),
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}
}

// LowStockThreshold returns the stock level under which a bike counts as low.
func (e *Engine) LowStockThreshold() int {
	return e.lowStockThreshold
}

// PeriodTotals is a sale count with its revenue.
type PeriodTotals struct {
	Count   int64   `json:"count"`
	Revenue float64 `json:"revenue"`
}

type aggregate struct {
	Count   int64
	Revenue float64
	Units   int64
}

// window selects sales whose column lies in [from, to). A zero to leaves the window open.
type window struct {
	column     string
	from, to   time.Time
	activeOnly bool
}

func (e *Engine) sum(ctx context.Context, w window) (aggregate, error) {
	var agg aggregate
	q := e.db.WithContext(ctx).Model(&domain.Sale{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS revenue, COALESCE(SUM(quantity), 0) AS units")
	if !w.from.IsZero() {
		q = q.Where(w.column+" >= ?", w.from)
	}
	if !w.to.IsZero() {
		q = q.Where(w.column+" < ?", w.to)
	}
	if w.activeOnly {
		q = q.Where("status = ?", domain.SaleStatusActive)
	}
	err := q.Scan(&agg).Error
	return agg, errors.Wrap(err, "sum sales")
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the Sunday that opens the calendar week of t.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// AllSales lists the whole ledger, newest first by creation time.
func (e *Engine) AllSales(ctx context.Context) ([]domain.SaleDetail, error) {
	sales, _, err := e.stores.Sales.ListDetails(ctx, store.SaleFilter{OrderBy: "created_at"})
	return sales, err
}

// SalesByCustomer lists one customer's sales, newest first by creation time.
func (e *Engine) SalesByCustomer(ctx context.Context, customerID int64) ([]domain.SaleDetail, error) {
	sales, _, err := e.stores.Sales.ListDetails(ctx, store.SaleFilter{CustomerID: customerID, OrderBy: "created_at"})
	return sales, err
}

// SalesByBike lists one bike's sales, newest first by creation time.
func (e *Engine) SalesByBike(ctx context.Context, bikeID int64) ([]domain.SaleDetail, error) {
	sales, _, err := e.stores.Sales.ListDetails(ctx, store.SaleFilter{BikeID: bikeID, OrderBy: "created_at"})
	return sales, err
}

// DailyReport lists the active sales created on one calendar day.
type DailyReport struct {
	Date         string              `json:"date"`
	TotalSales   int                 `json:"totalSales"`
	TotalRevenue float64             `json:"totalRevenue"`
	Sales        []domain.SaleDetail `json:"sales"`
}

// DailySales reports the active sales created during the day of date.
// A zero date means today.
func (e *Engine) DailySales(ctx context.Context, date time.Time) (*DailyReport, error) {
	if date.IsZero() {
		date = e.now()
	}
	start := startOfDay(date)
	end := start.AddDate(0, 0, 1)

	sales, _, err := e.stores.Sales.ListDetails(ctx, store.SaleFilter{
		Status:      domain.SaleStatusActive,
		CreatedFrom: &start,
		CreatedTo:   &end,
		OrderBy:     "created_at",
	})
	if err != nil {
		return nil, err
	}
	report := &DailyReport{
		Date:       start.Format("Mon Jan 02 2006"),
		TotalSales: len(sales),
		Sales:      sales,
	}
	for _, s := range sales {
		report.TotalRevenue += s.TotalAmount
	}
	return report, nil
}

// RevenueSummary is the lifetime total over every sale, cancelled ones included.
type RevenueSummary struct {
	TotalRevenue float64 `json:"totalRevenue"`
	TotalSales   int64   `json:"totalSales"`
	AverageSale  float64 `json:"averageSale"`
	MedianSale   float64 `json:"medianSale"`
}

// RevenueSummary sums totalAmount over the whole ledger without a status filter.
func (e *Engine) RevenueSummary(ctx context.Context) (*RevenueSummary, error) {
	agg, err := e.sum(ctx, window{})
	if err != nil {
		return nil, err
	}
	summary := &RevenueSummary{TotalRevenue: agg.Revenue, TotalSales: agg.Count}
	if agg.Count == 0 {
		return summary, nil
	}

	var amounts []float64
	if err := e.db.WithContext(ctx).Model(&domain.Sale{}).Pluck("total_amount", &amounts).Error; err != nil {
		return nil, errors.Wrap(err, "query sale amounts")
	}
	data := stats.Float64Data(amounts)
	if mean, err := data.Mean(); err == nil {
		summary.AverageSale, _ = stats.Round(mean, 2)
	}
	if median, err := data.Median(); err == nil {
		summary.MedianSale, _ = stats.Round(median, 2)
	}
	return summary, nil
}

// SalesStatistics is the sale page header: today, the calendar week and the calendar month.
type SalesStatistics struct {
	Today   PeriodTotals `json:"today"`
	Weekly  PeriodTotals `json:"weekly"`
	Monthly PeriodTotals `json:"monthly"`
}

// SalesStatistics totals sales by sale date over calendar periods, whatever their status.
func (e *Engine) SalesStatistics(ctx context.Context) (*SalesStatistics, error) {
	today := startOfDay(e.now())
	week := startOfWeek(today)
	month := startOfMonth(today)

	windows := []window{
		{column: "sale_date", from: today, to: today.AddDate(0, 0, 1)},
		{column: "sale_date", from: week, to: week.AddDate(0, 0, 7)},
		{column: "sale_date", from: month, to: month.AddDate(0, 1, 0)},
	}
	totals := make([]PeriodTotals, len(windows))
	for i, w := range windows {
		agg, err := e.sum(ctx, w)
		if err != nil {
			return nil, err
		}
		totals[i] = PeriodTotals{Count: agg.Count, Revenue: agg.Revenue}
	}
	return &SalesStatistics{Today: totals[0], Weekly: totals[1], Monthly: totals[2]}, nil
}

// OverviewPoint is one bucket of the sales chart, keyed by day or by month.
type OverviewPoint struct {
	Period       string  `json:"_id"`
	SalesCount   int64   `json:"salesCount"`
	TotalRevenue float64 `json:"totalRevenue"`
	BikesSold    int64   `json:"bikesSold"`
}

// SalesOverview buckets active sales of the selected period by sale day, or by month
// for the yearly period. Unknown periods fall back to monthly.
func (e *Engine) SalesOverview(ctx context.Context, period string) ([]OverviewPoint, error) {
	end := e.now()
	var start time.Time
	layout := "2006-01-02"
	switch period {
	case PeriodWeekly:
		start = end.AddDate(0, 0, -7)
	case PeriodYearly:
		start = end.AddDate(-1, 0, 0)
		layout = "2006-01"
	default:
		start = end.AddDate(0, -1, 0)
	}

	var sales []domain.Sale
	err := e.db.WithContext(ctx).
		Select("sale_date, total_amount, quantity").
		Where("sale_date >= ? AND sale_date <= ? AND status = ?", start, end, domain.SaleStatusActive).
		Find(&sales).Error
	if err != nil {
		return nil, errors.Wrap(err, "query sales overview")
	}

	buckets := make(map[string]*OverviewPoint)
	for _, s := range sales {
		key := s.SaleDate.In(end.Location()).Format(layout)
		p, ok := buckets[key]
		if !ok {
			p = &OverviewPoint{Period: key}
			buckets[key] = p
		}
		p.SalesCount++
		p.TotalRevenue += s.TotalAmount
		p.BikesSold += int64(s.Quantity)
	}

	points := make([]OverviewPoint, 0, len(buckets))
	for _, p := range buckets {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Period < points[j].Period })
	return points, nil
}

// TopBike is one bike line ranked by units sold.
type TopBike struct {
	BikeID       int64   `json:"_id,string"`
	BikeModel    string  `json:"bikeModel"`
	BikeColor    string  `json:"bikeColor"`
	TotalSold    int64   `json:"totalSold"`
	TotalRevenue float64 `json:"totalRevenue"`
	AveragePrice float64 `json:"averagePrice"`
}

// TopSellingBikes ranks bikes by units sold in active sales. Sales of bikes that no
// longer exist are left out. A limit below 1 means DefaultTopBikesLimit.
func (e *Engine) TopSellingBikes(ctx context.Context, limit int) ([]TopBike, error) {
	if limit < 1 {
		limit = DefaultTopBikesLimit
	}
	var rows []TopBike
	err := e.db.WithContext(ctx).
		Table(domain.Sale{}.TableName()+" AS s").
		Select("s.bike_id AS bike_id, MAX(b.model) AS bike_model, MAX(b.color) AS bike_color, "+
			"SUM(s.quantity) AS total_sold, SUM(s.total_amount) AS total_revenue, AVG(s.unit_price) AS average_price").
		Joins("JOIN "+domain.Bike{}.TableName()+" b ON b.id = s.bike_id").
		Where("s.status = ?", domain.SaleStatusActive).
		Group("s.bike_id").
		Order("total_sold DESC, s.bike_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query top bikes")
	}
	return rows, nil
}

// RevenueStats compares active revenue of today and this month with the previous period.
type RevenueStats struct {
	Today         float64 `json:"today"`
	Yesterday     float64 `json:"yesterday"`
	ThisMonth     float64 `json:"thisMonth"`
	LastMonth     float64 `json:"lastMonth"`
	DailyGrowth   float64 `json:"dailyGrowth"`
	MonthlyGrowth float64 `json:"monthlyGrowth"`
}

// RevenueGrowth reports today against yesterday and this month against last month.
// Today's window has no upper bound, so sales dated in the future count as today.
func (e *Engine) RevenueGrowth(ctx context.Context) (*RevenueStats, error) {
	today := startOfDay(e.now())
	month := startOfMonth(today)

	windows := []window{
		{column: "sale_date", from: today, activeOnly: true},
		{column: "sale_date", from: today.AddDate(0, 0, -1), to: today, activeOnly: true},
		{column: "sale_date", from: month, to: month.AddDate(0, 1, 0), activeOnly: true},
		{column: "sale_date", from: month.AddDate(0, -1, 0), to: month, activeOnly: true},
	}
	revenue := make([]float64, len(windows))
	for i, w := range windows {
		agg, err := e.sum(ctx, w)
		if err != nil {
			return nil, err
		}
		revenue[i] = agg.Revenue
	}
	return &RevenueStats{
		Today:         revenue[0],
		Yesterday:     revenue[1],
		ThisMonth:     revenue[2],
		LastMonth:     revenue[3],
		DailyGrowth:   Growth(revenue[0], revenue[1]),
		MonthlyGrowth: Growth(revenue[2], revenue[3]),
	}, nil
}
