package pipeline_test

import (
	"context"
	"testing"

	apppipeline "github.com/erp/stockcore/internal/application/pipeline"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineService_Defaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sales, err := f.pipelines.ListPipelines(ctx, f.tenantID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.True(t, sales[0].IsDefault, "first pipeline becomes the default")

	wholesale, err := f.pipelines.CreatePipeline(ctx, f.tenantID, salesPipeline("Wholesale"))
	require.NoError(t, err)
	assert.False(t, wholesale.IsDefault)

	rental := salesPipeline("Rental")
	rental.IsDefault = true
	created, err := f.pipelines.CreatePipeline(ctx, f.tenantID, rental)
	require.NoError(t, err)
	assert.True(t, created.IsDefault)

	assertSingleDefault := func(t *testing.T, want uuid.UUID) {
		t.Helper()
		all, err := f.pipelines.ListPipelines(ctx, f.tenantID)
		require.NoError(t, err)
		var defaults []uuid.UUID
		for _, p := range all {
			if p.IsDefault {
				defaults = append(defaults, p.ID)
			}
		}
		assert.Equal(t, []uuid.UUID{want}, defaults)
	}
	assertSingleDefault(t, created.ID)

	_, err = f.pipelines.SetDefaultPipeline(ctx, f.tenantID, wholesale.ID)
	require.NoError(t, err)
	assertSingleDefault(t, wholesale.ID)

	order, err := f.orders.CreateOrder(ctx, f.tenantID, apppipeline.CreateOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, wholesale.ID, order.PipelineID)

	_, err = f.pipelines.SetDefaultPipeline(ctx, uuid.New(), wholesale.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "pipelines of another tenant are invisible")
}

func TestPipelineService_Stages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.pipelines.CreatePipeline(ctx, f.tenantID, apppipeline.CreatePipelineRequest{
		Name: "Service desk",
		Stages: []apppipeline.StageRequest{
			{Name: "Done", Position: 9, Category: "DONE"},
			{Name: "Open", Position: 1, Category: "ACTIVE"},
		},
	})
	require.NoError(t, err)

	t.Run("stages are ordered by position", func(t *testing.T) {
		got, err := f.pipelines.GetPipeline(ctx, f.tenantID, p.ID)
		require.NoError(t, err)
		require.Len(t, got.Stages, 2)
		assert.Equal(t, "Open", got.Stages[0].Name)
		assert.Equal(t, "NONE", got.Stages[0].StockAction)
	})

	t.Run("orders without a draft stage start in the first stage", func(t *testing.T) {
		order, err := f.orders.CreateOrder(ctx, f.tenantID, apppipeline.CreateOrderRequest{PipelineID: &p.ID})
		require.NoError(t, err)

		got, err := f.pipelines.GetPipeline(ctx, f.tenantID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, got.Stages[0].ID, order.StageID)
	})

	t.Run("add stage", func(t *testing.T) {
		stage, err := f.pipelines.AddStage(ctx, f.tenantID, p.ID, apppipeline.StageRequest{
			Name: "Billing", Position: 5, Category: "ACTIVE", GeneratesReceivable: true,
		})
		require.NoError(t, err)
		assert.True(t, stage.GeneratesReceivable)

		got, err := f.pipelines.GetPipeline(ctx, f.tenantID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Open", "Billing", "Done"}, []string{got.Stages[0].Name, got.Stages[1].Name, got.Stages[2].Name})
	})

	t.Run("position must be unique", func(t *testing.T) {
		_, err := f.pipelines.AddStage(ctx, f.tenantID, p.ID, apppipeline.StageRequest{
			Name: "Review", Position: 1, Category: "ACTIVE",
		})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("unknown stock action fails validation", func(t *testing.T) {
		_, err := f.pipelines.AddStage(ctx, f.tenantID, p.ID, apppipeline.StageRequest{
			Name: "Ship", Position: 6, Category: "ACTIVE", StockAction: "SHIP",
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}
