package tenant

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Guard adds the context tenant to statements on tenant tables and rejects inserts
// stamped with another tenant.
type Guard struct {
	column   string
	required bool
}

// GuardOption configures a Guard
type GuardOption func(*Guard)

// WithColumn overrides the tenant column name
func WithColumn(name string) GuardOption {
	return func(g *Guard) {
		if name != "" {
			g.column = name
		}
	}
}

// RequireTenant makes statements on tenant tables fail when the context has no tenant
func RequireTenant() GuardOption {
	return func(g *Guard) { g.required = true }
}

// NewGuard creates a guard on the default tenant column
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{column: Column}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Install registers the guard callbacks on db
func (g *Guard) Install(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Query().Before("gorm:query").Register("tenant:query", g.filter),
		cb.Row().Before("gorm:row").Register("tenant:row", g.filter),
		cb.Update().Before("gorm:update").Register("tenant:update", g.filter),
		cb.Delete().Before("gorm:delete").Register("tenant:delete", g.filter),
		cb.Create().Before("gorm:create").Register("tenant:create", g.verifyCreate),
	)
}

// Install registers a guard on db, see NewGuard for the options
func Install(db *gorm.DB, opts ...GuardOption) error {
	if err := NewGuard(opts...).Install(db); err != nil {
		return fmt.Errorf("install tenant guard: %w", err)
	}
	return nil
}

// contextTenant resolves the tenant of the statement. ok is false when the statement
// must proceed untouched; errors are already attached to db.
func (g *Guard) contextTenant(db *gorm.DB) (id uuid.UUID, ok bool) {
	id, found, err := FromContext(db.Statement.Context)
	switch {
	case err != nil:
		_ = db.AddError(err)
	case !found && g.required:
		_ = db.AddError(ErrTenantIDRequired)
	}
	return id, found && err == nil
}

func (g *Guard) filter(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Context == nil || stmt.Unscoped || stmt.Schema == nil {
		return
	}
	if stmt.Schema.LookUpField(g.column) == nil || g.alreadyScoped(stmt) {
		return
	}
	id, ok := g.contextTenant(db)
	if !ok {
		return
	}
	stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: g.column}, Value: id},
	}})
}

func (g *Guard) verifyCreate(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Context == nil || stmt.Schema == nil {
		return
	}
	field := stmt.Schema.LookUpField(g.column)
	if field == nil {
		return
	}
	id, ok := g.contextTenant(db)
	if !ok {
		return
	}

	foreign := func(row reflect.Value) bool {
		value, _ := field.ValueOf(stmt.Context, reflect.Indirect(row))
		rowTenant, isID := value.(uuid.UUID)
		return isID && rowTenant != id
	}
	rows := stmt.ReflectValue
	switch rows.Kind() {
	case reflect.Struct:
		if foreign(rows) {
			_ = db.AddError(ErrCrossTenantWrite)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rows.Len(); i++ {
			if foreign(rows.Index(i)) {
				_ = db.AddError(ErrCrossTenantWrite)
				return
			}
		}
	}
}

// alreadyScoped reports whether the statement filters on the tenant column itself,
// through Scope or a raw condition naming the column.
func (g *Guard) alreadyScoped(stmt *gorm.Statement) bool {
	if c, ok := stmt.Clauses["WHERE"]; ok {
		if where, ok := c.Expression.(clause.Where); ok && g.mentions(where.Exprs...) {
			return true
		}
	}
	return strings.Contains(stmt.SQL.String(), g.column)
}

func (g *Guard) mentions(exprs ...clause.Expression) bool {
	for _, expr := range exprs {
		var col any
		switch e := expr.(type) {
		case clause.Eq:
			col = e.Column
		case clause.IN:
			col = e.Column
		case clause.AndConditions:
			if g.mentions(e.Exprs...) {
				return true
			}
			continue
		case clause.Expr:
			if strings.Contains(e.SQL, g.column) {
				return true
			}
			continue
		}
		if c, ok := col.(clause.Column); ok && c.Name == g.column {
			return true
		}
	}
	return false
}
