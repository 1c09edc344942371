package shared

import (
	"time"

	"github.com/google/uuid"
)

// TenantAggregateRoot carries the identity, tenant and optimistic-lock version of
// every tenant-owned row. Repositories update a row only when the stored version is
// the one that was read, and report TRANSACTION_CONFLICT otherwise.
type TenantAggregateRoot struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

// NewTenantAggregateRoot creates a root with a fresh id at version 1
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	now := time.Now().UTC()
	return TenantAggregateRoot{
		ID:        uuid.New(),
		TenantID:  tenantID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// GetTenantID returns the owning tenant
func (t *TenantAggregateRoot) GetTenantID() uuid.UUID {
	return t.TenantID
}

// Touch records a change: UpdatedAt moves to now and the version advances
func (t *TenantAggregateRoot) Touch() {
	t.UpdatedAt = time.Now().UTC()
	t.Version++
}

// RequireTenant rejects calls made without a tenant.
func RequireTenant(tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return ErrTenantRequired
	}
	return nil
}
