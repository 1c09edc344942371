package persistence

import (
	"fmt"

	"github.com/erp/stockcore/internal/domain/catalog"
	"github.com/erp/stockcore/internal/domain/finance"
	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/pipeline"
	"gorm.io/gorm"
)

// Models returns every persisted entity in dependency order
func Models() []any {
	return []any{
		&catalog.Item{},
		&catalog.Composition{},
		&catalog.Location{},
		&inventory.InventoryLevel{},
		&inventory.InventoryBatch{},
		&inventory.StockMovement{},
		&inventory.Reservation{},
		&pipeline.Pipeline{},
		&pipeline.Stage{},
		&pipeline.Order{},
		&pipeline.OrderItem{},
		&finance.Title{},
		&finance.TriggerRecord{},
	}
}

// AutoMigrate creates or updates the schema from the entity definitions. It is meant
// for sqlite and tests; postgres gets row level security from the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
