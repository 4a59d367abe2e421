package sales

import (
	"context"
	"time"

	"github.com/talkincode/bikeshop/internal/domain"
)

// Event bus topics published after a sale transaction commits.
const (
	TopicSaleCreated   = "sale:created"
	TopicSaleCancelled = "sale:cancelled"
)

// Operator identifies the admin on whose behalf an operation runs.
type Operator struct {
	ID   int64
	Name string
	IP   string
}

type operatorKey struct{}

// WithOperator attaches the acting admin to ctx.
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFrom returns the admin attached to ctx, or a zero Operator.
func OperatorFrom(ctx context.Context) Operator {
	op, _ := ctx.Value(operatorKey{}).(Operator)
	return op
}

// SaleEvent is the payload of TopicSaleCreated and TopicSaleCancelled.
type SaleEvent struct {
	Sale     domain.Sale
	Operator Operator
	At       time.Time
}

// Publisher is the part of EventBus.Bus the coordinator needs.
type Publisher interface {
	Publish(topic string, args ...interface{})
}
