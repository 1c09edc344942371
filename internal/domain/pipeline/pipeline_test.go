package pipeline

import (
	"testing"
	"time"

	"github.com/erp/stockcore/internal/domain/catalog"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// standardPipeline builds Draft(0) -> Confirmed(1, reserve) -> Delivered(2, deduct, receivable, locked) -> Cancelled(3)
func standardPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(uuid.New(), "Delivery")
	require.NoError(t, err)

	_, err = p.AddStage("Delivered", 2, StageCategoryDone, StageTrigger{StockAction: StockActionDeduct, GeneratesReceivable: true, IsLocked: true})
	require.NoError(t, err)
	_, err = p.AddStage("Draft", 0, StageCategoryDraft, StageTrigger{})
	require.NoError(t, err)
	_, err = p.AddStage("Confirmed", 1, StageCategoryActive, StageTrigger{StockAction: StockActionReserve})
	require.NoError(t, err)
	_, err = p.AddStage("Cancelled", 3, StageCategoryCancelled, StageTrigger{})
	require.NoError(t, err)
	return p
}

func stageNamed(t *testing.T, p *Pipeline, name string) *Stage {
	t.Helper()
	for i := range p.Stages {
		if p.Stages[i].Name == name {
			return &p.Stages[i]
		}
	}
	t.Fatalf("stage %s not found", name)
	return nil
}

func productSnapshot(price string) catalog.ItemSnapshot {
	return catalog.ItemSnapshot{
		ItemID:    uuid.New(),
		SKU:       "W-1",
		Name:      "Widget",
		Kind:      catalog.ItemKindProduct,
		BaseUnit:  "pcs",
		SalePrice: decimal.RequireFromString(price),
		CostPrice: decimal.RequireFromString("1.5"),
	}
}

func TestPipeline_AddStage(t *testing.T) {
	p := standardPipeline(t)

	positions := make([]int, 0, len(p.Stages))
	for _, s := range p.Stages {
		positions = append(positions, s.Position)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, positions)

	_, err := p.AddStage("Other", 1, StageCategoryActive, StageTrigger{})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = p.AddStage("draft", 9, StageCategoryActive, StageTrigger{})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = p.AddStage("Bad", 10, StageCategoryActive, StageTrigger{StockAction: "SHIP"})
	assert.Equal(t, "INVALID_STOCK_ACTION", shared.ErrorCode(err))

	s, err := p.AddStage("Defaulted", 11, StageCategoryActive, StageTrigger{})
	require.NoError(t, err)
	assert.Equal(t, StockActionNone, s.Trigger.StockAction)
}

func TestPipeline_EntryStage(t *testing.T) {
	t.Run("first draft by position", func(t *testing.T) {
		p := standardPipeline(t)
		entry, err := p.EntryStage()
		require.NoError(t, err)
		assert.Equal(t, "Draft", entry.Name)
	})

	t.Run("falls back to first stage", func(t *testing.T) {
		p, err := NewPipeline(uuid.New(), "Counter")
		require.NoError(t, err)
		_, err = p.AddStage("Paid", 5, StageCategoryDone, StageTrigger{})
		require.NoError(t, err)
		_, err = p.AddStage("Open", 1, StageCategoryActive, StageTrigger{})
		require.NoError(t, err)

		entry, err := p.EntryStage()
		require.NoError(t, err)
		assert.Equal(t, "Open", entry.Name)
	})

	t.Run("no stages", func(t *testing.T) {
		p, err := NewPipeline(uuid.New(), "Empty")
		require.NoError(t, err)
		_, err = p.EntryStage()
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func newTestOrder(t *testing.T, p *Pipeline) *Order {
	t.Helper()
	entry, err := p.EntryStage()
	require.NoError(t, err)
	o, err := NewOrder(p.TenantID, 1, p.ID, entry, uuid.New())
	require.NoError(t, err)
	return o
}

func TestOrder_Items(t *testing.T) {
	p := standardPipeline(t)
	draft := stageNamed(t, p, "Draft")

	t.Run("totals follow lines", func(t *testing.T) {
		o := newTestOrder(t, p)

		line, err := o.AddItem(draft, productSnapshot("10"), decimal.NewFromInt(3), nil, decimal.NewFromInt(5))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(10).Equal(line.UnitPrice))
		assert.True(t, decimal.RequireFromString("1.5").Equal(line.UnitCost))

		override := decimal.NewFromInt(2)
		_, err = o.AddItem(draft, productSnapshot("10"), decimal.NewFromInt(1), &override, decimal.Zero)
		require.NoError(t, err)

		assert.True(t, decimal.NewFromInt(27).Equal(o.TotalAmount), o.TotalAmount.String())
		assert.True(t, decimal.NewFromInt(5).Equal(o.TotalDiscount))

		_, err = o.UpdateItemQuantity(draft, line.ID, decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(7).Equal(o.TotalAmount))

		removed, err := o.RemoveItem(draft, line.ID)
		require.NoError(t, err)
		assert.Equal(t, line.ID, removed.ID)
		assert.True(t, decimal.NewFromInt(2).Equal(o.TotalAmount))
		assert.True(t, o.TotalDiscount.IsZero())
	})

	t.Run("discount cannot exceed line", func(t *testing.T) {
		o := newTestOrder(t, p)
		_, err := o.AddItem(draft, productSnapshot("1"), decimal.NewFromInt(1), nil, decimal.NewFromInt(2))
		assert.Equal(t, "INVALID_DISCOUNT", shared.ErrorCode(err))
		assert.Empty(t, o.Items)
	})

	t.Run("locked stage rejects edits", func(t *testing.T) {
		o := newTestOrder(t, p)
		line, err := o.AddItem(draft, productSnapshot("1"), decimal.NewFromInt(1), nil, decimal.Zero)
		require.NoError(t, err)
		before := o.TotalAmount

		locked := &Stage{PipelineID: p.ID, Name: "Packing", Category: StageCategoryActive, Trigger: StageTrigger{IsLocked: true}}

		_, err = o.AddItem(locked, productSnapshot("1"), decimal.NewFromInt(1), nil, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrStageLocked)
		_, err = o.UpdateItemQuantity(locked, line.ID, decimal.NewFromInt(4))
		assert.ErrorIs(t, err, shared.ErrStageLocked)
		_, err = o.RemoveItem(locked, line.ID)
		assert.ErrorIs(t, err, shared.ErrStageLocked)

		assert.Len(t, o.Items, 1)
		assert.True(t, before.Equal(o.TotalAmount))
	})

	t.Run("terminal stage rejects edits", func(t *testing.T) {
		o := newTestOrder(t, p)
		_, err := o.AddItem(stageNamed(t, p, "Cancelled"), productSnapshot("1"), decimal.NewFromInt(1), nil, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrTerminalStage)
	})

	t.Run("deducted lines are frozen", func(t *testing.T) {
		o := newTestOrder(t, p)
		line, err := o.AddItem(draft, productSnapshot("1"), decimal.NewFromInt(1), nil, decimal.Zero)
		require.NoError(t, err)
		line.MarkDeducted()

		_, err = o.UpdateItemQuantity(draft, line.ID, decimal.NewFromInt(2))
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		_, err = o.RemoveItem(draft, line.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestOrder_MoveTo(t *testing.T) {
	p := standardPipeline(t)
	draft := stageNamed(t, p, "Draft")
	confirmed := stageNamed(t, p, "Confirmed")
	delivered := stageNamed(t, p, "Delivered")
	cancelled := stageNamed(t, p, "Cancelled")

	o := newTestOrder(t, p)
	assert.Nil(t, o.ClosedAt)

	require.NoError(t, o.MoveTo(draft, confirmed, time.Now()))
	assert.Nil(t, o.ClosedAt)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, o.MoveTo(confirmed, delivered, at))
	require.NotNil(t, o.ClosedAt)
	assert.Equal(t, at, *o.ClosedAt)

	err := o.MoveTo(delivered, cancelled, time.Now())
	assert.ErrorIs(t, err, shared.ErrTerminalStage)
	assert.Equal(t, delivered.ID, o.StageID)

	foreign := &Stage{PipelineID: uuid.New(), Name: "Elsewhere", Category: StageCategoryActive}
	err = o.MoveTo(draft, foreign, time.Now())
	assert.Equal(t, "INVALID_STAGE", shared.ErrorCode(err))
}

func TestOrder_Reopen(t *testing.T) {
	p := standardPipeline(t)
	draft := stageNamed(t, p, "Draft")
	delivered := stageNamed(t, p, "Delivered")
	cancelled := stageNamed(t, p, "Cancelled")

	t.Run("reason required", func(t *testing.T) {
		o := newTestOrder(t, p)
		require.NoError(t, o.MoveTo(draft, delivered, time.Now()))

		err := o.Reopen(draft, " ", time.Now())
		assert.Equal(t, "REOPEN_REASON_REQUIRED", shared.ErrorCode(err))
	})

	t.Run("non terminal target clears closed_at", func(t *testing.T) {
		o := newTestOrder(t, p)
		require.NoError(t, o.MoveTo(draft, delivered, time.Now()))

		require.NoError(t, o.Reopen(draft, "customer changed address", time.Now()))
		assert.Nil(t, o.ClosedAt)
		assert.Equal(t, draft.ID, o.StageID)
	})

	t.Run("terminal target keeps closed_at", func(t *testing.T) {
		o := newTestOrder(t, p)
		at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, o.MoveTo(draft, delivered, at))

		require.NoError(t, o.Reopen(cancelled, "returned at door", time.Now()))
		assert.Equal(t, at, *o.ClosedAt)
		assert.Equal(t, cancelled.ID, o.StageID)
	})

	t.Run("open orders cannot be reopened", func(t *testing.T) {
		o := newTestOrder(t, p)
		err := o.Reopen(draft, "why", time.Now())
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}
