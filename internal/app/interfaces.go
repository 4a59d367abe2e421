package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/bikeshop/config"
	"github.com/talkincode/bikeshop/internal/reporting"
	"github.com/talkincode/bikeshop/internal/sales"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// EventProvider provides the in-process event bus
type EventProvider interface {
	Bus() EventBus.Bus
}

// SalesProvider provides the sale transaction coordinator
type SalesProvider interface {
	Sales() *sales.Coordinator
}

// ReportProvider provides the reporting engine
type ReportProvider interface {
	Reports() *reporting.Engine
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	EventProvider
	SalesProvider
	ReportProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
