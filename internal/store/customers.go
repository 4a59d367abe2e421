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

// CustomerStore handles persistence of customers
type CustomerStore interface {
	// Create inserts a customer, domain.ErrCustomerExists when the phone is taken
	Create(ctx context.Context, customer *domain.Customer) error

	// GetByID retrieves a customer, domain.ErrCustomerNotFound when absent
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)

	// List returns all customers, newest first
	List(ctx context.Context) ([]domain.Customer, error)

	// Update applies the set fields of patch
	Update(ctx context.Context, id int64, patch CustomerPatch) (*domain.Customer, error)

	// Delete removes a customer
	Delete(ctx context.Context, id int64) error
}

// CustomerPatch carries the fields to change; nil fields are left untouched.
// Email and Address may be set to "" to clear them, Name and Phone may not.
type CustomerPatch struct {
	Name    *string
	Phone   *string
	Email   *string
	Address *string
}

func (p CustomerPatch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Email == nil && p.Address == nil
}

// GormCustomerStore is the GORM implementation of CustomerStore
type GormCustomerStore struct {
	db *gorm.DB
}

var _ CustomerStore = (*GormCustomerStore)(nil)

func NewGormCustomerStore(db *gorm.DB) *GormCustomerStore {
	return &GormCustomerStore{db: db}
}

func (r *GormCustomerStore) phoneTaken(ctx context.Context, phone string, exceptID int64) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&domain.Customer{}).Where("phone = ?", phone)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "check customer phone")
	}
	return count > 0, nil
}

func (r *GormCustomerStore) Create(ctx context.Context, customer *domain.Customer) error {
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Phone = strings.TrimSpace(customer.Phone)
	taken, err := r.phoneTaken(ctx, customer.Phone, 0)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrCustomerExists
	}
	if customer.ID == 0 {
		customer.ID = common.UUIDint64()
	}
	return errors.Wrap(r.db.WithContext(ctx).Create(customer).Error, "create customer")
}

func (r *GormCustomerStore) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "query customer")
	}
	return &customer, nil
}

func (r *GormCustomerStore) List(ctx context.Context) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&customers).Error
	return customers, errors.Wrap(err, "list customers")
}

func (r *GormCustomerStore) Update(ctx context.Context, id int64, patch CustomerPatch) (*domain.Customer, error) {
	customer, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	columns := make(map[string]interface{})
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domain.Validation("VALIDATION_ERROR", "Name cannot be empty")
		}
		columns["name"] = name
	}
	if patch.Phone != nil {
		phone := strings.TrimSpace(*patch.Phone)
		if phone == "" {
			return nil, domain.Validation("VALIDATION_ERROR", "Phone cannot be empty")
		}
		if phone != customer.Phone {
			taken, err := r.phoneTaken(ctx, phone, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, domain.ErrCustomerExists
			}
		}
		columns["phone"] = phone
	}
	if patch.Email != nil {
		columns["email"] = strings.TrimSpace(*patch.Email)
	}
	if patch.Address != nil {
		columns["address"] = strings.TrimSpace(*patch.Address)
	}
	if len(columns) == 0 {
		return customer, nil
	}
	columns["updated_at"] = time.Now()

	err = r.db.WithContext(ctx).Model(&domain.Customer{}).Where("id = ?", id).Updates(columns).Error
	if err != nil {
		return nil, errors.Wrap(err, "update customer")
	}
	return r.GetByID(ctx, id)
}

func (r *GormCustomerStore) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Customer{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete customer")
	}
	if res.RowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

// Count returns the number of customers.
func (r *GormCustomerStore) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).Count(&total).Error
	return total, errors.Wrap(err, "count customers")
}

// Recent returns the latest registered customers.
func (r *GormCustomerStore) Recent(ctx context.Context, limit int) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&customers).Error
	return customers, errors.Wrap(err, "recent customers")
}
