package pipeline

import (
	"context"
	"errors"
	"fmt"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/application/validation"
	"github.com/erp/stockcore/internal/domain/pipeline"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PipelineService configures the pipelines and stages orders move through
type PipelineService struct {
	uow    *appinv.UnitOfWork
	logger *zap.Logger
}

// NewPipelineService creates a new PipelineService
func NewPipelineService(uow *appinv.UnitOfWork, logger *zap.Logger) *PipelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineService{uow: uow, logger: logger}
}

// CreatePipeline creates a pipeline with its stages
func (s *PipelineService) CreatePipeline(ctx context.Context, tenantID uuid.UUID, req CreatePipelineRequest) (*PipelineResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var p *pipeline.Pipeline
	err := s.uow.Run(ctx, tenantID, "create_pipeline", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		var err error
		p, err = pipeline.NewPipeline(repos.TenantID(), req.Name)
		if err != nil {
			return err
		}
		for _, stage := range req.Stages {
			if _, err := p.AddStage(stage.Name, stage.Position, pipeline.StageCategory(stage.Category), stage.trigger()); err != nil {
				return err
			}
		}

		makeDefault := req.IsDefault
		if !makeDefault {
			_, err := repos.Pipelines().FindDefault(ctx)
			switch {
			case errors.Is(err, shared.ErrNotFound):
				makeDefault = true
			case err != nil:
				return err
			}
		}
		if makeDefault {
			// The previous default must lose its flag before the partial unique index sees the new one
			if err := repos.Pipelines().ClearDefault(ctx, p.ID); err != nil {
				return err
			}
			p.MarkDefault()
		}

		if err := repos.Pipelines().Save(ctx, p); err != nil {
			return fmt.Errorf("save pipeline: %w", err)
		}
		for i := range p.Stages {
			if err := repos.Pipelines().SaveStage(ctx, &p.Stages[i]); err != nil {
				return fmt.Errorf("save stage: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	logger.WithLogger(ctx, s.logger).Info("pipeline created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("pipeline_id", p.ID.String()),
		zap.Int("stages", len(p.Stages)),
		zap.Bool("is_default", p.IsDefault),
	)
	resp := ToPipelineResponse(p)
	return &resp, nil
}

// AddStage appends a stage to an existing pipeline
func (s *PipelineService) AddStage(ctx context.Context, tenantID, pipelineID uuid.UUID, req StageRequest) (*StageResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var stage *pipeline.Stage
	err := s.uow.Run(ctx, tenantID, "add_stage", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		p, err := repos.Pipelines().FindByID(ctx, pipelineID)
		if err != nil {
			return err
		}
		stage, err = p.AddStage(req.Name, req.Position, pipeline.StageCategory(req.Category), req.trigger())
		if err != nil {
			return err
		}
		if err := repos.Pipelines().SaveStage(ctx, stage); err != nil {
			return fmt.Errorf("save stage: %w", err)
		}
		return repos.Pipelines().Save(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("add stage: %w", err)
	}

	resp := ToStageResponse(stage)
	return &resp, nil
}

// SetDefaultPipeline makes the pipeline the tenant default and clears the previous one
func (s *PipelineService) SetDefaultPipeline(ctx context.Context, tenantID, pipelineID uuid.UUID) (*PipelineResponse, error) {
	var p *pipeline.Pipeline
	err := s.uow.Run(ctx, tenantID, "set_default_pipeline", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		var err error
		p, err = repos.Pipelines().FindByID(ctx, pipelineID)
		if err != nil {
			return err
		}
		if p.IsDefault {
			return nil
		}
		if err := repos.Pipelines().ClearDefault(ctx, p.ID); err != nil {
			return err
		}
		p.MarkDefault()
		return repos.Pipelines().Save(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("set default pipeline: %w", err)
	}

	logger.WithLogger(ctx, s.logger).Info("default pipeline changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("pipeline_id", p.ID.String()),
	)
	resp := ToPipelineResponse(p)
	return &resp, nil
}

// GetPipeline returns a pipeline with its stages ordered by position
func (s *PipelineService) GetPipeline(ctx context.Context, tenantID, pipelineID uuid.UUID) (*PipelineResponse, error) {
	var resp PipelineResponse
	err := s.uow.Run(ctx, tenantID, "get_pipeline", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		p, err := repos.Pipelines().FindByID(ctx, pipelineID)
		if err != nil {
			return err
		}
		resp = ToPipelineResponse(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPipelines returns every pipeline of the tenant
func (s *PipelineService) ListPipelines(ctx context.Context, tenantID uuid.UUID) ([]PipelineResponse, error) {
	var out []PipelineResponse
	err := s.uow.Run(ctx, tenantID, "list_pipelines", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		pipelines, err := repos.Pipelines().List(ctx)
		if err != nil {
			return err
		}
		out = make([]PipelineResponse, len(pipelines))
		for i := range pipelines {
			out[i] = ToPipelineResponse(&pipelines[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
