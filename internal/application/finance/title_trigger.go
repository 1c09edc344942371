package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/finance"
	"github.com/erp/stockcore/internal/domain/pipeline"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderReader resolves the order a title is raised for
type OrderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*pipeline.Order, error)
}

// TitleTrigger is the default FinancialTrigger. It writes a pending Title through the
// repositories of the caller's transaction, so the title commits or rolls back together
// with the stage transition that raised it.
type TitleTrigger struct {
	tenantID uuid.UUID
	titles   finance.TitleRepository
	orders   OrderReader
	logger   *zap.Logger
	now      func() time.Time
}

// TitleTriggerOption configures a TitleTrigger
type TitleTriggerOption func(*TitleTrigger)

// WithClock overrides the clock used for due and competence dates
func WithClock(now func() time.Time) TitleTriggerOption {
	return func(t *TitleTrigger) {
		t.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) TitleTriggerOption {
	return func(t *TitleTrigger) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTitleTrigger creates a trigger bound to the tenant of the given repositories
func NewTitleTrigger(tenantID uuid.UUID, titles finance.TitleRepository, orders OrderReader, opts ...TitleTriggerOption) *TitleTrigger {
	t := &TitleTrigger{
		tenantID: tenantID,
		titles:   titles,
		orders:   orders,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CreateTitle creates a PENDING title for the order and returns its id. Amount original
// and balance both start at amount; due and competence date are the current day.
func (t *TitleTrigger) CreateTitle(ctx context.Context, tenantID, orderID uuid.UUID, amount decimal.Decimal, kind finance.TitleKind) (uuid.UUID, error) {
	if tenantID != t.tenantID {
		return uuid.Nil, shared.NewDomainError(shared.CodeInvalidInput, "Title tenant does not match the transaction tenant")
	}

	order, err := t.orders.FindByID(ctx, orderID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("find order for title: %w", err)
	}

	title, err := finance.NewOrderTitle(tenantID, kind, order.ID, order.DisplayID, amount, t.now())
	if err != nil {
		return uuid.Nil, err
	}
	if err := t.titles.Save(ctx, title); err != nil {
		return uuid.Nil, fmt.Errorf("save title: %w", err)
	}

	t.logger.Info("financial title created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("title_id", title.ID.String()),
		zap.String("kind", string(kind)),
		zap.String("amount", amount.String()),
	)
	return title.ID, nil
}

var _ finance.FinancialTrigger = (*TitleTrigger)(nil)
