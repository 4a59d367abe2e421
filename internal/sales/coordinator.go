package sales

import (
	"context"
	"time"

	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/internal/store"
	"github.com/talkincode/bikeshop/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SellRequest is the input of Coordinator.Sell.
type SellRequest struct {
	BikeID             int64
	CustomerID         int64
	Quantity           int
	DiscountPercentage float64
	DiscountAmount     float64
	PaymentMethod      string
	// SaleDate defaults to the request time when nil.
	SaleDate *time.Time
}

// Coordinator runs sale creation and cancellation as single transactions
// spanning the sale ledger and the bike stock counter.
type Coordinator struct {
	db        *gorm.DB
	publisher Publisher
	now       func() time.Time
	invoiceFn func() string
}

// NewCoordinator creates a coordinator. publisher may be nil.
func NewCoordinator(db *gorm.DB, publisher Publisher) *Coordinator {
	return &Coordinator{
		db:        db,
		publisher: publisher,
		now:       time.Now,
		invoiceFn: common.InvoiceNumber,
	}
}

func (req *SellRequest) validate() (paymentMethod string, err error) {
	if req.BikeID == 0 {
		return "", domain.Validation("INVALID_BIKE", "bikeId is required")
	}
	if req.CustomerID == 0 {
		return "", domain.Validation("INVALID_CUSTOMER", "customerId is required")
	}
	if req.Quantity < 1 {
		return "", domain.ErrInvalidQuantity
	}
	if req.DiscountPercentage < 0 || req.DiscountPercentage > 100 {
		return "", domain.ErrInvalidDiscount
	}
	method, ok := domain.NormalizePaymentMethod(req.PaymentMethod)
	if !ok {
		return "", domain.ErrInvalidPayment
	}
	return method, nil
}

// Sell validates stock and customer, appends an ACTIVE sale priced at the bike's
// current selling price and takes the units out of stock. Either every write
// commits or none does.
func (c *Coordinator) Sell(ctx context.Context, req SellRequest) (*domain.SaleDetail, error) {
	paymentMethod, err := req.validate()
	if err != nil {
		return nil, err
	}
	saleDate := c.now()
	if req.SaleDate != nil && !req.SaleDate.IsZero() {
		saleDate = *req.SaleDate
	}

	var result domain.SaleDetail
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := store.New(tx)

		bike, err := st.Bikes.GetForUpdate(ctx, req.BikeID)
		if err != nil {
			return err
		}
		if bike.Stock < req.Quantity {
			return domain.InsufficientStock(bike.Stock, req.Quantity)
		}

		customer, err := st.Customers.GetByID(ctx, req.CustomerID)
		if err != nil {
			return err
		}

		unitPrice := bike.SellingPrice
		subtotal := unitPrice * float64(req.Quantity)
		sale := &domain.Sale{
			BikeID:             bike.ID,
			CustomerID:         customer.ID,
			Quantity:           req.Quantity,
			UnitPrice:          unitPrice,
			InvoiceNumber:      c.invoiceFn(),
			DiscountPercentage: req.DiscountPercentage,
			DiscountAmount:     req.DiscountAmount,
			Subtotal:           subtotal,
			TotalAmount:        subtotal,
			PaymentMethod:      paymentMethod,
			SaleDate:           saleDate,
			Status:             domain.SaleStatusActive,
		}
		if err := st.Sales.Create(ctx, sale); err != nil {
			return err
		}
		if err := st.Bikes.DecrementStock(ctx, bike.ID, req.Quantity); err != nil {
			return err
		}

		result = domain.SaleDetail{
			Sale: *sale,
			Bike: &domain.BikeRef{
				ID:       bike.ID,
				Brand:    bike.Brand,
				Model:    bike.Model,
				Color:    bike.Color,
				EngineCC: bike.EngineCC,
			},
			Customer: &domain.CustomerRef{
				ID:    customer.ID,
				Name:  customer.Name,
				Phone: customer.Phone,
				Email: customer.Email,
			},
		}
		return nil
	})
	if err != nil {
		zap.L().Warn("sale rejected",
			zap.Int64("bike_id", req.BikeID),
			zap.Int64("customer_id", req.CustomerID),
			zap.Int("quantity", req.Quantity),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("sale completed",
		zap.Int64("sale_id", result.ID),
		zap.String("invoice", result.InvoiceNumber),
		zap.Int64("bike_id", result.BikeID),
		zap.Int("quantity", result.Quantity),
		zap.Float64("total", result.TotalAmount))
	c.publish(ctx, TopicSaleCreated, result.Sale)
	return &result, nil
}

// Cancel marks an ACTIVE sale CANCELLED and puts its units back in stock.
// The sale row is kept; prices and discounts are not touched.
func (c *Coordinator) Cancel(ctx context.Context, saleID int64) (*domain.Sale, error) {
	var cancelled domain.Sale
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := store.New(tx)

		sale, err := st.Sales.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.IsCancelled() {
			return domain.ErrSaleAlreadyCancelled
		}
		if err := st.Bikes.RestoreStock(ctx, sale.BikeID, sale.Quantity); err != nil {
			return err
		}
		if err := st.Sales.UpdateStatus(ctx, sale.ID, domain.SaleStatusCancelled); err != nil {
			return err
		}
		sale.Status = domain.SaleStatusCancelled
		cancelled = *sale
		return nil
	})
	if err != nil {
		zap.L().Warn("sale cancellation rejected", zap.Int64("sale_id", saleID), zap.Error(err))
		return nil, err
	}

	zap.L().Info("sale cancelled",
		zap.Int64("sale_id", cancelled.ID),
		zap.String("invoice", cancelled.InvoiceNumber),
		zap.Int64("bike_id", cancelled.BikeID),
		zap.Int("quantity", cancelled.Quantity))
	c.publish(ctx, TopicSaleCancelled, cancelled)
	return &cancelled, nil
}

func (c *Coordinator) publish(ctx context.Context, topic string, sale domain.Sale) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(topic, SaleEvent{Sale: sale, Operator: OperatorFrom(ctx), At: c.now()})
}
