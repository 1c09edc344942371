package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/erp/stockcore/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tenantRepository is embedded by every repository. It holds the transaction and
// the tenant the repository was bound to.
type tenantRepository struct {
	db       *gorm.DB
	tenantID uuid.UUID
}

func newTenantRepository(db *gorm.DB, tenantID uuid.UUID) tenantRepository {
	return tenantRepository{db: db, tenantID: tenantID}
}

// scoped returns a statement filtered to the bound tenant
func (r tenantRepository) scoped(ctx context.Context) *gorm.DB {
	if logger.GetTenantID(ctx) == "" {
		ctx = tenant.WithTenant(ctx, r.tenantID)
	}
	return r.db.WithContext(ctx).Scopes(tenant.Scope(r.tenantID))
}

// locked is scoped with SELECT ... FOR UPDATE. sqlite drops the clause and relies
// on its single writer.
func (r tenantRepository) locked(ctx context.Context) *gorm.DB {
	return r.scoped(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

// owns rejects entities of another tenant before they reach the database
func (r tenantRepository) owns(tenantID uuid.UUID) error {
	if tenantID != r.tenantID {
		return shared.NewDomainError(shared.CodeInvariantViolation, "Entity belongs to another tenant")
	}
	return nil
}
