package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/stockcore/internal/domain/finance"
	"github.com/erp/stockcore/internal/domain/pipeline"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTitleRepository is a mock implementation of TitleRepository
type MockTitleRepository struct {
	mock.Mock
}

func (m *MockTitleRepository) Save(ctx context.Context, title *finance.Title) error {
	args := m.Called(ctx, title)
	return args.Error(0)
}

func (m *MockTitleRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Title, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Title), args.Error(1)
}

func (m *MockTitleRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]finance.Title, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]finance.Title), args.Error(1)
}

func (m *MockTitleRepository) ExistsForOrder(ctx context.Context, orderID uuid.UUID, kind finance.TitleKind) (bool, error) {
	args := m.Called(ctx, orderID, kind)
	return args.Bool(0), args.Error(1)
}

// MockOrderReader is a mock implementation of OrderReader
type MockOrderReader struct {
	mock.Mock
}

func (m *MockOrderReader) FindByID(ctx context.Context, id uuid.UUID) (*pipeline.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Order), args.Error(1)
}

func createTestOrder(t *testing.T, tenantID uuid.UUID) *pipeline.Order {
	t.Helper()
	p, err := pipeline.NewPipeline(tenantID, "Sales")
	require.NoError(t, err)
	stage, err := p.AddStage("Draft", 0, pipeline.StageCategoryDraft, pipeline.StageTrigger{})
	require.NoError(t, err)
	order, err := pipeline.NewOrder(tenantID, 42, p.ID, stage, uuid.New())
	require.NoError(t, err)
	return order
}

func TestTitleTrigger_CreateTitle(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	fixed := time.Date(2026, 10, 15, 17, 30, 0, 0, time.UTC)

	t.Run("creates a pending receivable for the order", func(t *testing.T) {
		titles := new(MockTitleRepository)
		orders := new(MockOrderReader)
		order := createTestOrder(t, tenantID)
		orders.On("FindByID", ctx, order.ID).Return(order, nil)

		var saved *finance.Title
		titles.On("Save", ctx, mock.AnythingOfType("*finance.Title")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*finance.Title) }).
			Return(nil)

		trigger := NewTitleTrigger(tenantID, titles, orders, WithClock(func() time.Time { return fixed }))
		titleID, err := trigger.CreateTitle(ctx, tenantID, order.ID, decimal.RequireFromString("150.50"), finance.TitleKindReceivable)

		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, saved.ID, titleID)
		assert.Equal(t, finance.TitleKindReceivable, saved.Kind)
		assert.Equal(t, finance.TitleStatusPending, saved.Status)
		assert.Equal(t, "Order #42", saved.Description)
		assert.True(t, saved.AmountOriginal.Equal(decimal.RequireFromString("150.50")))
		assert.True(t, saved.AmountBalance.Equal(saved.AmountOriginal))
		assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), saved.DueDate)
		assert.Equal(t, saved.DueDate, saved.CompetenceDate)
		require.NotNil(t, saved.OrderID)
		assert.Equal(t, order.ID, *saved.OrderID)
		titles.AssertExpectations(t)
		orders.AssertExpectations(t)
	})

	t.Run("rejects another tenant", func(t *testing.T) {
		titles := new(MockTitleRepository)
		orders := new(MockOrderReader)

		trigger := NewTitleTrigger(tenantID, titles, orders)
		_, err := trigger.CreateTitle(ctx, uuid.New(), uuid.New(), decimal.NewFromInt(1), finance.TitleKindReceivable)

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		orders.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		titles.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unknown order", func(t *testing.T) {
		titles := new(MockTitleRepository)
		orders := new(MockOrderReader)
		orderID := uuid.New()
		orders.On("FindByID", ctx, orderID).Return(nil, shared.ErrNotFound)

		trigger := NewTitleTrigger(tenantID, titles, orders)
		_, err := trigger.CreateTitle(ctx, tenantID, orderID, decimal.NewFromInt(1), finance.TitleKindReceivable)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		titles.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("negative amount is rejected before saving", func(t *testing.T) {
		titles := new(MockTitleRepository)
		orders := new(MockOrderReader)
		order := createTestOrder(t, tenantID)
		orders.On("FindByID", ctx, order.ID).Return(order, nil)

		trigger := NewTitleTrigger(tenantID, titles, orders)
		_, err := trigger.CreateTitle(ctx, tenantID, order.ID, decimal.NewFromInt(-5), finance.TitleKindPayable)

		require.Error(t, err)
		assert.Equal(t, "INVALID_AMOUNT", shared.ErrorCode(err))
		titles.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("save failure is returned", func(t *testing.T) {
		titles := new(MockTitleRepository)
		orders := new(MockOrderReader)
		order := createTestOrder(t, tenantID)
		orders.On("FindByID", ctx, order.ID).Return(order, nil)
		titles.On("Save", ctx, mock.Anything).Return(errors.New("connection reset"))

		trigger := NewTitleTrigger(tenantID, titles, orders)
		_, err := trigger.CreateTitle(ctx, tenantID, order.ID, decimal.NewFromInt(10), finance.TitleKindReceivable)

		assert.ErrorContains(t, err, "connection reset")
	})
}
