package domain

import (
	"time"
)

const (
	OprLevelSuper = "super"
	OprLevelOpr   = "opr"
)

// SysOpr is an admin operator allowed through the protect middleware.
type SysOpr struct {
	ID        int64     `json:"id,string"`
	Name      string    `json:"name"`
	Email     string    `gorm:"size:128;uniqueIndex" json:"email"`
	Password  string    `json:"-"`
	Level     string    `gorm:"size:16" json:"level"`
	Status    string    `gorm:"size:16" json:"status"`
	LastLogin time.Time `json:"lastLogin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (SysOpr) TableName() string {
	return "sys_opr"
}

// SysOprLog audit trail entry
type SysOprLog struct {
	ID        int64     `json:"id,string"`
	OprName   string    `gorm:"size:128" json:"oprName"`
	OprIp     string    `gorm:"size:64" json:"oprIp"`
	OptAction string    `gorm:"size:64;index" json:"optAction"`
	OptDesc   string    `gorm:"size:1024" json:"optDesc"`
	OptTime   time.Time `gorm:"index" json:"optTime"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}
