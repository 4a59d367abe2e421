package app

import (
	"fmt"
	"path"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/talkincode/bikeshop/config"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// getDatabase opens the configured database and panics when it cannot be reached.
func getDatabase(cfg config.DBConfig, dataDir string) *gorm.DB {
	gormConfig := &gorm.Config{
		Logger: newGormLogger(cfg.Debug),
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Passwd, cfg.Host, cfg.Port, cfg.Name)
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(path.Join(dataDir, cfg.Name+".db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	default:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name, time.Local.String())
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	if cfg.Type == "sqlite" {
		// one writer at a time keeps sale transactions serialized
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db
}

// newGormLogger routes SQL logging through the global zap logger.
func newGormLogger(debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return logger.New(zap.NewStdLog(zap.L()), logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
