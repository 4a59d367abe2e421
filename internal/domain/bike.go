package domain

import "time"

const (
	BikeStatusInStock = "IN_STOCK"
	BikeStatusSold    = "SOLD"
)

const DefaultBikeBrand = "TVS"

// Bike is a stock line of identical bikes. Status is a cached field written only
// when stock moves through a sale or a cancellation; it is not recomputed on read.
type Bike struct {
	ID            int64     `gorm:"primaryKey" json:"id,string"`
	Brand         string    `gorm:"size:64;index:idx_bike_group,priority:1" json:"brand"`
	Model         string    `gorm:"size:128;index:idx_bike_group,priority:2" json:"model"`
	Color         string    `gorm:"size:64;index:idx_bike_group,priority:3" json:"color"`
	EngineCC      float64   `json:"engineCC"`
	PurchasePrice float64   `json:"purchasePrice"`
	SellingPrice  float64   `json:"sellingPrice"`
	Stock         int       `json:"stock"`
	Status        string    `gorm:"size:16;index" json:"status"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (Bike) TableName() string {
	return "shop_bike"
}

func (b *Bike) IsSold() bool {
	return b.Status == BikeStatusSold
}

// BikeRef is the bike summary joined into sale results.
type BikeRef struct {
	ID       int64   `json:"id,string"`
	Brand    string  `json:"brand,omitempty"`
	Model    string  `json:"model"`
	Color    string  `json:"color,omitempty"`
	EngineCC float64 `json:"engineCC,omitempty"`
}

// StockSummary is one (brand, model, color) group of the stock report.
type StockSummary struct {
	Brand   string `json:"brand"`
	Model   string `json:"model"`
	Color   string `json:"color"`
	Total   int64  `json:"total"`
	Sold    int64  `json:"sold"`
	InStock int64  `json:"inStock"`
}
