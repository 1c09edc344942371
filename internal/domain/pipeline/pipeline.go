package pipeline

import (
	"sort"
	"strings"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
)

// Pipeline is a tenant-configured workflow that orders move through.
// Exactly one pipeline per tenant is the default.
type Pipeline struct {
	shared.TenantAggregateRoot
	Name      string  `gorm:"type:varchar(100);not null"`
	IsDefault bool    `gorm:"not null;default:false"`
	Stages    []Stage `gorm:"foreignKey:PipelineID"`
}

// TableName returns the table name for GORM
func (Pipeline) TableName() string {
	return "pipelines"
}

// NewPipeline creates a pipeline without stages
func NewPipeline(tenantID uuid.UUID, name string) (*Pipeline, error) {
	if err := shared.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Pipeline name must be 1 to 100 characters")
	}

	return &Pipeline{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Stages:              make([]Stage, 0),
	}, nil
}

// AddStage appends a stage, rejecting duplicate positions and names
func (p *Pipeline) AddStage(name string, position int, category StageCategory, trigger StageTrigger) (*Stage, error) {
	for _, s := range p.Stages {
		if s.Position == position {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Stage position already used in this pipeline")
		}
		if strings.EqualFold(s.Name, strings.TrimSpace(name)) {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Stage name already used in this pipeline")
		}
	}

	stage, err := NewStage(p.TenantID, p.ID, name, position, category, trigger)
	if err != nil {
		return nil, err
	}
	p.Stages = append(p.Stages, *stage)
	p.sortStages()
	p.Touch()
	return stage, nil
}

// Stage returns the stage with the given id, or nil
func (p *Pipeline) Stage(stageID uuid.UUID) *Stage {
	for i := range p.Stages {
		if p.Stages[i].ID == stageID {
			return &p.Stages[i]
		}
	}
	return nil
}

// EntryStage returns the first DRAFT stage by position, falling back to the first stage
func (p *Pipeline) EntryStage() (*Stage, error) {
	if len(p.Stages) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Pipeline "+p.Name+" has no stages")
	}
	p.sortStages()
	for i := range p.Stages {
		if p.Stages[i].Category == StageCategoryDraft {
			return &p.Stages[i], nil
		}
	}
	return &p.Stages[0], nil
}

// MarkDefault flags the pipeline as the tenant default
func (p *Pipeline) MarkDefault() {
	p.IsDefault = true
	p.Touch()
}

func (p *Pipeline) sortStages() {
	sort.SliceStable(p.Stages, func(i, j int) bool {
		return p.Stages[i].Position < p.Stages[j].Position
	})
}
