package pipeline

import (
	"strings"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
)

// StageCategory groups stages by lifecycle meaning
type StageCategory string

const (
	StageCategoryDraft     StageCategory = "DRAFT"
	StageCategoryActive    StageCategory = "ACTIVE"
	StageCategoryDone      StageCategory = "DONE"
	StageCategoryCancelled StageCategory = "CANCELLED"
)

// IsValid returns true if the category is known
func (c StageCategory) IsValid() bool {
	switch c {
	case StageCategoryDraft, StageCategoryActive, StageCategoryDone, StageCategoryCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for DONE and CANCELLED
func (c StageCategory) IsTerminal() bool {
	return c == StageCategoryDone || c == StageCategoryCancelled
}

// StockAction is the ledger effect of entering a stage
type StockAction string

const (
	StockActionNone    StockAction = "NONE"
	StockActionReserve StockAction = "RESERVE"
	StockActionDeduct  StockAction = "DEDUCT"
)

// IsValid returns true if the action is known
func (a StockAction) IsValid() bool {
	switch a {
	case StockActionNone, StockActionReserve, StockActionDeduct:
		return true
	}
	return false
}

// StageTrigger is the automation attached to a stage
type StageTrigger struct {
	StockAction         StockAction `gorm:"type:varchar(20);not null;default:'NONE'"`
	GeneratesReceivable bool        `gorm:"not null;default:false"`
	IsLocked            bool        `gorm:"not null;default:false"`
}

// Stage is one ordered step of a pipeline
type Stage struct {
	shared.TenantAggregateRoot
	PipelineID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_stage_pipeline_position,priority:1"`
	Name       string        `gorm:"type:varchar(100);not null"`
	Position   int           `gorm:"not null;uniqueIndex:idx_stage_pipeline_position,priority:2"`
	Category   StageCategory `gorm:"type:varchar(20);not null"`
	Trigger    StageTrigger  `gorm:"embedded"`
}

// TableName returns the table name for GORM
func (Stage) TableName() string {
	return "pipeline_stages"
}

// NewStage creates a stage for a pipeline
func NewStage(tenantID, pipelineID uuid.UUID, name string, position int, category StageCategory, trigger StageTrigger) (*Stage, error) {
	if err := shared.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	if pipelineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PIPELINE", "Pipeline ID cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Stage name must be 1 to 100 characters")
	}
	if position < 0 {
		return nil, shared.NewDomainError("INVALID_POSITION", "Stage position cannot be negative")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Invalid stage category: "+string(category))
	}
	if trigger.StockAction == "" {
		trigger.StockAction = StockActionNone
	}
	if !trigger.StockAction.IsValid() {
		return nil, shared.NewDomainError("INVALID_STOCK_ACTION", "Invalid stock action: "+string(trigger.StockAction))
	}

	return &Stage{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PipelineID:          pipelineID,
		Name:                name,
		Position:            position,
		Category:            category,
		Trigger:             trigger,
	}, nil
}

// IsTerminal returns true if orders entering this stage are closed
func (s *Stage) IsTerminal() bool {
	return s.Category.IsTerminal()
}
