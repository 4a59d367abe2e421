package app

import (
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/bikeshop/config"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/internal/reporting"
	"github.com/talkincode/bikeshop/internal/sales"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig   *config.AppConfig
	gormDB      *gorm.DB
	sched       *cron.Cron
	bus         EventBus.Bus
	auditor     *AuditRecorder
	coordinator *sales.Coordinator
	reports     *reporting.Engine
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ EventProvider     = (*Application)(nil)
	_ SalesProvider     = (*Application)(nil)
	_ ReportProvider    = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

func (a *Application) Sales() *sales.Coordinator {
	return a.coordinator
}

func (a *Application) Reports() *reporting.Engine {
	return a.reports
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Auditor returns the audit log recorder
func (a *Application) Auditor() *AuditRecorder {
	return a.auditor
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	// Initialize database connection
	db := getDatabase(cfg.Database, cfg.GetDataDir())
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
	return a.start(db)
}

// start wires the services on db and schedules the background jobs.
// Jobs are never scheduled against a half-initialized application.
func (a *Application) start(db *gorm.DB) error {
	if err := a.Setup(db); err != nil {
		return errors.Wrap(err, "application setup")
	}
	a.initJob()
	return nil
}

// Setup migrates db, seeds the default admin and wires the services on top of it.
// Init calls it after opening the configured database; tests call it with their own handle.
func (a *Application) Setup(db *gorm.DB) error {
	a.gormDB = db
	if err := a.MigrateDB(false); err != nil {
		return err
	}
	a.checkSuper()

	a.bus = EventBus.New()
	auditor, err := NewAuditRecorder(db, a.bus)
	if err != nil {
		return err
	}
	a.auditor = auditor
	a.coordinator = sales.NewCoordinator(db, a.bus)
	a.reports = reporting.NewEngine(db, a.appConfig.Shop.LowStockThreshold)
	return nil
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	// Build logger with file rotation if enabled
	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
	a.checkSuper()
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.auditor != nil {
		a.auditor.Close()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = zap.L().Sync()
}
