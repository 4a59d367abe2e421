package app

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/talkincode/bikeshop/internal/store"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@hourly", a.SchedLowStockTask)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", a.SchedPurgeOprLogTask)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	if a.appConfig.Mail.Enabled {
		_, err = a.sched.AddFunc(a.appConfig.Mail.ReportCron, a.SchedDailyReportTask)
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	a.sched.Start()
}

// SchedLowStockTask logs the bikes that need restocking.
func (a *Application) SchedLowStockTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	threshold := a.reports.LowStockThreshold()
	bikes, err := store.NewGormBikeStore(a.gormDB).LowStock(context.Background(), threshold)
	if err != nil {
		zap.L().Error("low stock check failed", zap.Error(err))
		return
	}
	if len(bikes) == 0 {
		return
	}
	names := make([]string, 0, len(bikes))
	for _, b := range bikes {
		names = append(names, b.Brand+" "+b.Model+" "+b.Color)
	}
	zap.L().Warn("low stock",
		zap.Int("threshold", threshold),
		zap.Int("count", len(bikes)),
		zap.String("bikes", strings.Join(names, ", ")))
}

// SchedPurgeOprLogTask drops operation logs past the retention window.
func (a *Application) SchedPurgeOprLogTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	n, err := a.auditor.Purge(a.appConfig.Shop.AuditRetentionDays)
	if err != nil {
		zap.L().Error("purge operation logs failed", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("purged operation logs", zap.Int64("count", n))
	}
}

// SchedDailyReportTask mails today's sales report.
func (a *Application) SchedDailyReportTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := a.SendDailyReport(ctx, time.Now()); err != nil {
		zap.L().Error("daily report mail failed", zap.Error(err))
	}
}
