package domain

import "time"

type Customer struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Name      string    `gorm:"size:128;index" json:"name"`
	Phone     string    `gorm:"size:32;uniqueIndex" json:"phone"`
	Email     string    `gorm:"size:128" json:"email"`
	Address   string    `gorm:"size:512" json:"address"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (Customer) TableName() string {
	return "shop_customer"
}

// CustomerRef is the customer summary joined into sale results.
type CustomerRef struct {
	ID    int64  `json:"id,string"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}
