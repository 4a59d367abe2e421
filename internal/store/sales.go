package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/pkg/common"
	"gorm.io/gorm"
)

// SaleStore is the sale ledger. Sales are never deleted, only cancelled.
type SaleStore interface {
	// Create appends a sale to the ledger
	Create(ctx context.Context, sale *domain.Sale) error

	// GetByID retrieves a sale, domain.ErrSaleNotFound when absent
	GetByID(ctx context.Context, id int64) (*domain.Sale, error)

	// GetForUpdate retrieves a sale and locks its row until the transaction ends
	GetForUpdate(ctx context.Context, id int64) (*domain.Sale, error)

	// UpdateStatus sets the status of a sale
	UpdateStatus(ctx context.Context, id int64, status string) error

	// Detail returns one sale joined with bike and customer display fields
	Detail(ctx context.Context, id int64) (*domain.SaleDetail, error)

	// ListDetails returns joined sales matching filter and the unpaged total
	ListDetails(ctx context.Context, filter SaleFilter) ([]domain.SaleDetail, int64, error)
}

// SaleFilter narrows ListDetails. Zero values disable a criterion.
type SaleFilter struct {
	CustomerID int64
	BikeID     int64
	Status     string
	// StartDate and EndDate bound sale_date inclusively.
	StartDate *time.Time
	EndDate   *time.Time
	// CreatedFrom (inclusive) and CreatedTo (exclusive) bound created_at.
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// OrderBy is "sale_date" or "created_at", always descending.
	OrderBy string
	Page    Page
}

// GormSaleStore is the GORM implementation of SaleStore
type GormSaleStore struct {
	db *gorm.DB
}

var _ SaleStore = (*GormSaleStore)(nil)

func NewGormSaleStore(db *gorm.DB) *GormSaleStore {
	return &GormSaleStore{db: db}
}

func (r *GormSaleStore) Create(ctx context.Context, sale *domain.Sale) error {
	if sale.ID == 0 {
		sale.ID = common.UUIDint64()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusActive
	}
	return errors.Wrap(r.db.WithContext(ctx).Create(sale).Error, "create sale")
}

func (r *GormSaleStore) GetByID(ctx context.Context, id int64) (*domain.Sale, error) {
	return r.first(r.db.WithContext(ctx), id)
}

func (r *GormSaleStore) GetForUpdate(ctx context.Context, id int64) (*domain.Sale, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormSaleStore) first(db *gorm.DB, id int64) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.Where("id = ?", id).First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSaleNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "query sale")
	}
	return &sale, nil
}

func (r *GormSaleStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Sale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update sale status")
	}
	if res.RowsAffected == 0 {
		return domain.ErrSaleNotFound
	}
	return nil
}

// saleRow is the flat scan target of the sale/bike/customer join.
type saleRow struct {
	domain.Sale
	BikeRefID     int64
	BikeBrand     string
	BikeModel     string
	BikeColor     string
	BikeEngineCC  float64
	CustomerRefID int64
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
}

const saleDetailColumns = "s.*, " +
	"COALESCE(b.id, 0) AS bike_ref_id, COALESCE(b.brand, '') AS bike_brand, " +
	"COALESCE(b.model, '') AS bike_model, COALESCE(b.color, '') AS bike_color, " +
	"COALESCE(b.engine_cc, 0) AS bike_engine_cc, " +
	"COALESCE(c.id, 0) AS customer_ref_id, COALESCE(c.name, '') AS customer_name, " +
	"COALESCE(c.phone, '') AS customer_phone, COALESCE(c.email, '') AS customer_email"

func (row saleRow) detail() domain.SaleDetail {
	d := domain.SaleDetail{Sale: row.Sale}
	if row.BikeRefID != 0 {
		d.Bike = &domain.BikeRef{
			ID:       row.BikeRefID,
			Brand:    row.BikeBrand,
			Model:    row.BikeModel,
			Color:    row.BikeColor,
			EngineCC: row.BikeEngineCC,
		}
	}
	if row.CustomerRefID != 0 {
		d.Customer = &domain.CustomerRef{
			ID:    row.CustomerRefID,
			Name:  row.CustomerName,
			Phone: row.CustomerPhone,
			Email: row.CustomerEmail,
		}
	}
	return d
}

// filtered builds a fresh query over the ledger aliased as s.
func (r *GormSaleStore) filtered(ctx context.Context, f SaleFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Table(domain.Sale{}.TableName() + " AS s")
	if f.CustomerID != 0 {
		q = q.Where("s.customer_id = ?", f.CustomerID)
	}
	if f.BikeID != 0 {
		q = q.Where("s.bike_id = ?", f.BikeID)
	}
	if f.Status != "" {
		q = q.Where("s.status = ?", f.Status)
	}
	if f.StartDate != nil {
		q = q.Where("s.sale_date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("s.sale_date <= ?", *f.EndDate)
	}
	if f.CreatedFrom != nil {
		q = q.Where("s.created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("s.created_at < ?", *f.CreatedTo)
	}
	return q
}

func (r *GormSaleStore) joined(q *gorm.DB) *gorm.DB {
	return q.Select(saleDetailColumns).
		Joins("LEFT JOIN " + domain.Bike{}.TableName() + " b ON b.id = s.bike_id").
		Joins("LEFT JOIN " + domain.Customer{}.TableName() + " c ON c.id = s.customer_id")
}

func (r *GormSaleStore) Detail(ctx context.Context, id int64) (*domain.SaleDetail, error) {
	var rows []saleRow
	err := r.joined(r.db.WithContext(ctx).Table(domain.Sale{}.TableName()+" AS s")).
		Where("s.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query sale detail")
	}
	if len(rows) == 0 {
		return nil, domain.ErrSaleNotFound
	}
	d := rows[0].detail()
	return &d, nil
}

func (r *GormSaleStore) ListDetails(ctx context.Context, f SaleFilter) ([]domain.SaleDetail, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count sales")
	}

	order := "s.sale_date DESC"
	if f.OrderBy == "created_at" {
		order = "s.created_at DESC"
	}
	q := r.joined(r.filtered(ctx, f)).Order(order + ", s.id DESC")
	if f.Page.enabled() {
		q = q.Offset(f.Page.offset()).Limit(f.Page.Limit)
	}

	var rows []saleRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list sales")
	}
	details := make([]domain.SaleDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.detail())
	}
	return details, total, nil
}
