package reporting

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	ActivitySale     = "sale"
	ActivityStock    = "stock"
	ActivityCustomer = "customer"
	ActivityAlert    = "alert"
)

const (
	recentSalesLimit     = 5
	recentBikesLimit     = 3
	recentCustomersLimit = 3
	activityFeedSize     = 4
)

// Activity is one line of the dashboard feed.
type Activity struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// DailyTrend is the active sale count and revenue of one sale day.
type DailyTrend struct {
	Day     string  `json:"_id"`
	Count   int64   `json:"count"`
	Revenue float64 `json:"revenue"`
}

// PaymentShare is the active sale count and amount of one payment method.
type PaymentShare struct {
	Method string  `json:"_id"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

type DashboardStats struct {
	TotalBikes     int64          `json:"totalBikes"`
	InStock        int64          `json:"inStock"`
	SoldToday      int64          `json:"soldToday"`
	RevenueToday   float64        `json:"revenueToday"`
	BikesSoldToday int64          `json:"bikesSoldToday"`
	LowStock       int64          `json:"lowStock"`
	TotalCustomers int64          `json:"totalCustomers"`
	WeeklySales    []DailyTrend   `json:"weeklySales"`
	PaymentMethods []PaymentShare `json:"paymentMethods"`
}

type Dashboard struct {
	Stats            DashboardStats `json:"stats"`
	RecentActivities []Activity     `json:"recentActivities"`
}

// Dashboard collects the home page counters, trends and activity feed.
// The independent queries run concurrently; the first failure cancels the rest.
func (e *Engine) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := e.now()
	today := startOfDay(now)

	var (
		stats     DashboardStats
		todayAgg  aggregate
		sales     []domain.SaleDetail
		bikes     []domain.Bike
		customers []domain.Customer
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalBikes, err = e.stores.Bikes.Count(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		stats.InStock, err = e.stores.Bikes.Count(gctx, domain.BikeStatusInStock)
		return err
	})
	g.Go(func() (err error) {
		stats.LowStock, err = e.stores.Bikes.CountLowStock(gctx, e.lowStockThreshold)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalCustomers, err = e.stores.Customers.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		todayAgg, err = e.sum(gctx, window{column: "sale_date", from: today, to: today.AddDate(0, 0, 1), activeOnly: true})
		return err
	})
	g.Go(func() (err error) {
		stats.WeeklySales, err = e.weeklyTrend(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.PaymentMethods, err = e.paymentShares(gctx)
		return err
	})
	g.Go(func() (err error) {
		sales, _, err = e.stores.Sales.ListDetails(gctx, store.SaleFilter{
			Status:  domain.SaleStatusActive,
			OrderBy: "created_at",
			Page:    store.Page{Page: 1, Limit: recentSalesLimit},
		})
		return err
	})
	g.Go(func() (err error) {
		bikes, err = e.stores.Bikes.Recent(gctx, recentBikesLimit)
		return err
	})
	g.Go(func() (err error) {
		customers, err = e.stores.Customers.Recent(gctx, recentCustomersLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.SoldToday = todayAgg.Count
	stats.RevenueToday = todayAgg.Revenue
	stats.BikesSoldToday = todayAgg.Units

	return &Dashboard{
		Stats:            stats,
		RecentActivities: e.activityFeed(sales, bikes, customers, stats.LowStock),
	}, nil
}

// activityFeed lists sales, then bike additions, then customer signups, then the
// low stock alert, and keeps the first activityFeedSize entries.
func (e *Engine) activityFeed(sales []domain.SaleDetail, bikes []domain.Bike, customers []domain.Customer, lowStock int64) []Activity {
	now := e.now()
	feed := make([]Activity, 0, len(sales)+len(bikes)+len(customers)+1)
	for _, s := range sales {
		model, name := "Bike", "Customer"
		if s.Bike != nil && s.Bike.Model != "" {
			model = s.Bike.Model
		}
		if s.Customer != nil && s.Customer.Name != "" {
			name = s.Customer.Name
		}
		feed = append(feed, Activity{
			Type:    ActivitySale,
			Message: fmt.Sprintf("%s sold to %s", model, name),
			Time:    TimeAgo(now, s.CreatedAt),
		})
	}
	for _, b := range bikes {
		feed = append(feed, Activity{
			Type:    ActivityStock,
			Message: fmt.Sprintf("Added %d units of %s", b.Stock, b.Model),
			Time:    TimeAgo(now, b.CreatedAt),
		})
	}
	for _, c := range customers {
		feed = append(feed, Activity{
			Type:    ActivityCustomer,
			Message: "New customer registered: " + c.Name,
			Time:    TimeAgo(now, c.CreatedAt),
		})
	}
	if lowStock > 0 {
		plural := ""
		if lowStock > 1 {
			plural = "s"
		}
		feed = append(feed, Activity{
			Type:    ActivityAlert,
			Message: fmt.Sprintf("Low stock alert: %d bike%s need restocking", lowStock, plural),
			Time:    "Just now",
		})
	}
	if len(feed) > activityFeedSize {
		feed = feed[:activityFeedSize]
	}
	return feed
}

// weeklyTrend buckets the active sales of the last seven days by sale day.
func (e *Engine) weeklyTrend(ctx context.Context) ([]DailyTrend, error) {
	now := e.now()
	var sales []domain.Sale
	err := e.db.WithContext(ctx).
		Select("sale_date, total_amount").
		Where("sale_date >= ? AND status = ?", now.AddDate(0, 0, -7), domain.SaleStatusActive).
		Find(&sales).Error
	if err != nil {
		return nil, errors.Wrap(err, "query weekly sales")
	}

	byDay := make(map[string]*DailyTrend)
	for _, s := range sales {
		day := s.SaleDate.In(now.Location()).Format("2006-01-02")
		t, ok := byDay[day]
		if !ok {
			t = &DailyTrend{Day: day}
			byDay[day] = t
		}
		t.Count++
		t.Revenue += s.TotalAmount
	}
	trend := make([]DailyTrend, 0, len(byDay))
	for _, t := range byDay {
		trend = append(trend, *t)
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Day < trend[j].Day })
	return trend, nil
}

func (e *Engine) paymentShares(ctx context.Context) ([]PaymentShare, error) {
	shares := make([]PaymentShare, 0)
	err := e.db.WithContext(ctx).
		Model(&domain.Sale{}).
		Select("payment_method AS method, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount").
		Where("status = ?", domain.SaleStatusActive).
		Group("payment_method").
		Order("payment_method ASC").
		Scan(&shares).Error
	return shares, errors.Wrap(err, "query payment methods")
}
