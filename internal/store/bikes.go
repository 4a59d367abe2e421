package store

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/pkg/common"
	"gorm.io/gorm"
)

// BikeStore handles persistence of bikes and their stock counters
type BikeStore interface {
	// Create inserts a new bike, defaulting brand and status
	Create(ctx context.Context, bike *domain.Bike) error

	// GetByID retrieves a bike, domain.ErrBikeNotFound when absent
	GetByID(ctx context.Context, id int64) (*domain.Bike, error)

	// GetForUpdate retrieves a bike and locks its row until the transaction ends
	GetForUpdate(ctx context.Context, id int64) (*domain.Bike, error)

	// List returns all bikes, newest first
	List(ctx context.Context) ([]domain.Bike, error)

	// Update writes only the given columns and returns the stored bike
	Update(ctx context.Context, id int64, columns map[string]interface{}) (*domain.Bike, error)

	// Delete removes a bike unless it is SOLD
	Delete(ctx context.Context, id int64) error

	// DecrementStock takes qty units out of stock, flipping status to SOLD at zero
	DecrementStock(ctx context.Context, id int64, qty int) error

	// RestoreStock puts qty units back, flipping SOLD to IN_STOCK when stock becomes positive
	RestoreStock(ctx context.Context, id int64, qty int) error

	// StockSummary groups bikes by brand, model and color
	StockSummary(ctx context.Context) ([]domain.StockSummary, error)
}

// GormBikeStore is the GORM implementation of BikeStore
type GormBikeStore struct {
	db *gorm.DB
}

var _ BikeStore = (*GormBikeStore)(nil)

// NewGormBikeStore creates a new GORM-based bike store
func NewGormBikeStore(db *gorm.DB) *GormBikeStore {
	return &GormBikeStore{db: db}
}

func (r *GormBikeStore) Create(ctx context.Context, bike *domain.Bike) error {
	if bike.ID == 0 {
		bike.ID = common.UUIDint64()
	}
	bike.Brand = strings.TrimSpace(bike.Brand)
	if bike.Brand == "" {
		bike.Brand = domain.DefaultBikeBrand
	}
	if bike.Status == "" {
		bike.Status = domain.BikeStatusInStock
	}
	return errors.Wrap(r.db.WithContext(ctx).Create(bike).Error, "create bike")
}

func (r *GormBikeStore) GetByID(ctx context.Context, id int64) (*domain.Bike, error) {
	return r.first(r.db.WithContext(ctx), id)
}

func (r *GormBikeStore) GetForUpdate(ctx context.Context, id int64) (*domain.Bike, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormBikeStore) first(db *gorm.DB, id int64) (*domain.Bike, error) {
	var bike domain.Bike
	err := db.Where("id = ?", id).First(&bike).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBikeNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "query bike")
	}
	return &bike, nil
}

func (r *GormBikeStore) List(ctx context.Context) ([]domain.Bike, error) {
	var bikes []domain.Bike
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&bikes).Error
	return bikes, errors.Wrap(err, "list bikes")
}

// Update never rewrites columns missing from columns, so stock moved by a
// concurrent sale survives a price or name edit.
func (r *GormBikeStore) Update(ctx context.Context, id int64, columns map[string]interface{}) (*domain.Bike, error) {
	updates := make(map[string]interface{}, len(columns)+1)
	for k, v := range columns {
		updates[k] = v
	}
	updates["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).
		Model(&domain.Bike{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "update bike")
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrBikeNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *GormBikeStore) Delete(ctx context.Context, id int64) error {
	bike, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bike.IsSold() {
		return domain.ErrBikeSold
	}
	return errors.Wrap(r.db.WithContext(ctx).Delete(&domain.Bike{}, id).Error, "delete bike")
}

func (r *GormBikeStore) DecrementStock(ctx context.Context, id int64, qty int) error {
	// status is assigned before stock so dialects that evaluate SET left to right
	// (MySQL) still see the old stock value in the CASE expression.
	res := r.db.WithContext(ctx).
		Model(&domain.Bike{}).
		Where("id = ? AND stock >= ?", id, qty).
		Updates(map[string]interface{}{
			"status":     gorm.Expr("CASE WHEN stock - ? = 0 THEN ? ELSE status END", qty, domain.BikeStatusSold),
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		bike, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return domain.InsufficientStock(bike.Stock, qty)
	}
	return nil
}

func (r *GormBikeStore) RestoreStock(ctx context.Context, id int64, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Bike{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": gorm.Expr("CASE WHEN status = ? AND stock + ? > 0 THEN ? ELSE status END",
				domain.BikeStatusSold, qty, domain.BikeStatusInStock),
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return domain.ErrBikeNotFound
	}
	return nil
}

func (r *GormBikeStore) StockSummary(ctx context.Context) ([]domain.StockSummary, error) {
	var rows []domain.StockSummary
	err := r.db.WithContext(ctx).
		Model(&domain.Bike{}).
		Select("brand, model, color, COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS sold", domain.BikeStatusSold).
		Group("brand, model, color").
		Order("model ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "stock summary")
	}
	for i := range rows {
		rows[i].InStock = rows[i].Total - rows[i].Sold
	}
	return rows, nil
}

// Count returns the number of bikes, optionally filtered by status.
func (r *GormBikeStore) Count(ctx context.Context, status string) (int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&domain.Bike{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&total).Error
	return total, errors.Wrap(err, "count bikes")
}

// LowStock returns IN_STOCK bikes whose stock is below threshold.
func (r *GormBikeStore) LowStock(ctx context.Context, threshold int) ([]domain.Bike, error) {
	var bikes []domain.Bike
	err := r.lowStockQuery(ctx, threshold).Order("stock ASC").Find(&bikes).Error
	return bikes, errors.Wrap(err, "query low stock")
}

// CountLowStock counts IN_STOCK bikes whose stock is below threshold.
func (r *GormBikeStore) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	var total int64
	err := r.lowStockQuery(ctx, threshold).Count(&total).Error
	return total, errors.Wrap(err, "count low stock")
}

func (r *GormBikeStore) lowStockQuery(ctx context.Context, threshold int) *gorm.DB {
	return r.db.WithContext(ctx).Model(&domain.Bike{}).
		Where("stock < ? AND status = ?", threshold, domain.BikeStatusInStock)
}

// Recent returns the latest added bikes.
func (r *GormBikeStore) Recent(ctx context.Context, limit int) ([]domain.Bike, error) {
	var bikes []domain.Bike
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&bikes).Error
	return bikes, errors.Wrap(err, "recent bikes")
}
