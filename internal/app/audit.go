package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/internal/sales"
	"github.com/talkincode/bikeshop/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TopicOprLog carries a domain.SysOprLog written as is.
const TopicOprLog = "opr:log"

const auditPoolSize = 4

// AuditRecorder subscribes to the event bus and writes operation logs from a worker pool,
// keeping the database write out of the request path.
type AuditRecorder struct {
	db   *gorm.DB
	pool *ants.Pool
	wg   sync.WaitGroup
}

func NewAuditRecorder(db *gorm.DB, bus EventBus.Bus) (*AuditRecorder, error) {
	pool, err := ants.NewPool(auditPoolSize, ants.WithPanicHandler(func(p interface{}) {
		zap.S().Errorf("audit worker panic: %v", p)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create audit pool")
	}
	r := &AuditRecorder{db: db, pool: pool}

	subs := map[string]interface{}{
		TopicOprLog:              r.onOprLog,
		sales.TopicSaleCreated:   r.onSaleCreated,
		sales.TopicSaleCancelled: r.onSaleCancelled,
	}
	for topic, fn := range subs {
		if err := bus.Subscribe(topic, fn); err != nil {
			pool.Release()
			return nil, errors.Wrapf(err, "subscribe %s", topic)
		}
	}
	return r, nil
}

func (r *AuditRecorder) onOprLog(entry domain.SysOprLog) {
	r.Record(entry)
}

func (r *AuditRecorder) onSaleCreated(ev sales.SaleEvent) {
	r.Record(domain.SysOprLog{
		OprName:   ev.Operator.Name,
		OprIp:     ev.Operator.IP,
		OptAction: "sale_create",
		OptDesc: fmt.Sprintf("invoice %s bike %d customer %d quantity %d total %.2f",
			ev.Sale.InvoiceNumber, ev.Sale.BikeID, ev.Sale.CustomerID, ev.Sale.Quantity, ev.Sale.TotalAmount),
		OptTime: ev.At,
	})
}

func (r *AuditRecorder) onSaleCancelled(ev sales.SaleEvent) {
	r.Record(domain.SysOprLog{
		OprName:   ev.Operator.Name,
		OprIp:     ev.Operator.IP,
		OptAction: "sale_cancel",
		OptDesc: fmt.Sprintf("invoice %s bike %d quantity %d restored",
			ev.Sale.InvoiceNumber, ev.Sale.BikeID, ev.Sale.Quantity),
		OptTime: ev.At,
	})
}

// Record queues entry for writing.
func (r *AuditRecorder) Record(entry domain.SysOprLog) {
	if entry.ID == 0 {
		entry.ID = common.UUIDint64()
	}
	if entry.OptTime.IsZero() {
		entry.OptTime = time.Now()
	}
	r.wg.Add(1)
	err := r.pool.Submit(func() {
		defer r.wg.Done()
		if err := r.db.Create(&entry).Error; err != nil {
			zap.L().Error("write operation log failed", zap.String("action", entry.OptAction), zap.Error(err))
		}
	})
	if err != nil {
		r.wg.Done()
		zap.L().Error("queue operation log failed", zap.String("action", entry.OptAction), zap.Error(err))
	}
}

// Flush waits until every queued entry is written.
func (r *AuditRecorder) Flush() {
	r.wg.Wait()
}

func (r *AuditRecorder) Close() {
	r.Flush()
	r.pool.Release()
}

// Purge deletes entries older than retentionDays.
func (r *AuditRecorder) Purge(retentionDays int) (int64, error) {
	res := r.db.Where("opt_time < ?", time.Now().AddDate(0, 0, -retentionDays)).Delete(&domain.SysOprLog{})
	return res.RowsAffected, errors.Wrap(res.Error, "purge operation logs")
}
