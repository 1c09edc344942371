// Package tenant provides multi-tenant database scoping for GORM.
//
// Repositories bind a tenant explicitly with Scope. A Guard installed on the
// connection adds the same filter from the request context to any statement that
// reaches the database without one, and refuses inserts whose tenant_id differs
// from the context tenant.
//
// Usage:
//
//	ctx = tenant.WithTenant(ctx, tenantID)
//	db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).Find(&levels)
package tenant

import (
	"context"
	"errors"

	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column is the tenant column carried by every tenant-owned table
const Column = "tenant_id"

// ErrTenantIDRequired is returned when tenant_id is required but not found
var ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")

// ErrInvalidTenantID is returned when tenant_id format is invalid
var ErrInvalidTenantID = errors.New("invalid tenant_id format")

// ErrCrossTenantWrite is returned when a row is written for a tenant other than the context tenant
var ErrCrossTenantWrite = errors.New("row tenant_id does not match the context tenant")

// Scope filters a statement to one tenant. It builds a clause.Eq so the
// guard recognises it and does not add a second condition.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: Column},
			Value:  tenantID,
		})
	}
}

// WithTenant stores the tenant in ctx, together with a logger that carries it
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), tenantID.String())
	return ctx
}

// FromContext returns the context tenant. ok is false when none is set.
func FromContext(ctx context.Context) (tenantID uuid.UUID, ok bool, err error) {
	raw := logger.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, ErrInvalidTenantID
	}
	return id, true, nil
}
