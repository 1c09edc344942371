package finance

import (
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TitleKind is the direction of a financial title
type TitleKind string

const (
	TitleKindReceivable TitleKind = "RECEIVABLE"
	TitleKindPayable    TitleKind = "PAYABLE"
)

// IsValid returns true if the kind is known
func (k TitleKind) IsValid() bool {
	return k == TitleKindReceivable || k == TitleKindPayable
}

// TitleStatus represents the settlement state of a title
type TitleStatus string

const (
	TitleStatusPending   TitleStatus = "PENDING"
	TitleStatusPaid      TitleStatus = "PAID"
	TitleStatusCancelled TitleStatus = "CANCELLED"
)

// Title is an account receivable or payable raised by an order
type Title struct {
	shared.TenantAggregateRoot
	Kind           TitleKind       `gorm:"type:varchar(20);not null"`
	Status         TitleStatus     `gorm:"type:varchar(20);not null;default:'PENDING'"`
	OrderID        *uuid.UUID      `gorm:"type:uuid;index"`
	Description    string          `gorm:"type:varchar(200);not null"`
	AmountOriginal decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountBalance  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DueDate        time.Time       `gorm:"not null"`
	CompetenceDate time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Title) TableName() string {
	return "financial_titles"
}

// NewOrderTitle creates a pending title for an order, due on the given date
func NewOrderTitle(tenantID uuid.UUID, kind TitleKind, orderID uuid.UUID, orderDisplayID int64, amount decimal.Decimal, at time.Time) (*Title, error) {
	if err := shared.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_TITLE_KIND", "Invalid title kind: "+string(kind))
	}
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Title amount cannot be negative")
	}

	day := at.UTC().Truncate(24 * time.Hour)
	return &Title{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Kind:                kind,
		Status:              TitleStatusPending,
		OrderID:             &orderID,
		Description:         fmt.Sprintf("Order #%d", orderDisplayID),
		AmountOriginal:      amount,
		AmountBalance:       amount,
		DueDate:             day,
		CompetenceDate:      day,
	}, nil
}

// TriggerRecord remembers that a stage already raised its title for an order.
// (tenant, order, stage) is unique.
type TriggerRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_trigger_record_key,priority:1"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_trigger_record_key,priority:2"`
	StageID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_trigger_record_key,priority:3"`
	TitleID   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TriggerRecord) TableName() string {
	return "financial_trigger_records"
}

// NewTriggerRecord creates a trigger record
func NewTriggerRecord(tenantID, orderID, stageID, titleID uuid.UUID) *TriggerRecord {
	return &TriggerRecord{
		ID:        uuid.New(),
		TenantID:  tenantID,
		OrderID:   orderID,
		StageID:   stageID,
		TitleID:   titleID,
		CreatedAt: time.Now().UTC(),
	}
}
