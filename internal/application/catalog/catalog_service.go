package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/application/validation"
	"github.com/erp/stockcore/internal/domain/catalog"
	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService manages items, compositions and locations. Items created with
// initial stock get their INITIAL_STOCK movement in the same transaction.
type CatalogService struct {
	uow    *appinv.UnitOfWork
	ledger *appinv.Ledger
	logger *zap.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(uow *appinv.UnitOfWork, ledger *appinv.Ledger, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{uow: uow, ledger: ledger, logger: logger}
}

// CreateItem creates an item, optionally with initial stock at a location
func (s *CatalogService) CreateItem(ctx context.Context, tenantID uuid.UUID, req CreateItemRequest) (*ItemResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, tenantID, "catalog", "create_item")
	defer span.End()
	telemetry.SetAttribute(span, "sku", req.SKU)

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	kind := catalog.ItemKind(req.Kind)
	if kind == "" {
		kind = catalog.ItemKindProduct
	}
	if req.InitialStock != nil && !kind.TracksStock() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Only "+string(catalog.ItemKindProduct)+" items can carry initial stock")
	}

	var item *catalog.Item
	err := s.uow.Run(ctx, tenantID, "create_item", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		exists, err := repos.Items().ExistsBySKU(ctx, sku)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Item with SKU "+sku+" already exists")
		}

		item, err = catalog.NewItem(repos.TenantID(), sku, req.Name, kind, req.BaseUnit)
		if err != nil {
			return err
		}
		if req.CategoryID != nil {
			item.SetCategory(req.CategoryID)
		}
		if req.SalePrice != nil || req.CostPrice != nil {
			if err := item.SetPrices(req.SalePrice, req.CostPrice); err != nil {
				return err
			}
		}
		if req.LowStockThreshold != nil {
			if err := item.SetLowStockThreshold(*req.LowStockThreshold); err != nil {
				return err
			}
		}
		if err := repos.Items().Save(ctx, item); err != nil {
			return fmt.Errorf("save item: %w", err)
		}

		if req.InitialStock == nil {
			return nil
		}
		return s.recordInitialStock(ctx, repos, item, req.InitialStock)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("create item: %w", err)
	}

	logger.WithLogger(ctx, s.logger).Info("catalog item created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("item_id", item.ID.String()),
		zap.String("sku", item.SKU),
		zap.String("kind", string(item.Kind)),
	)
	resp := ToItemResponse(item)
	return &resp, nil
}

func (s *CatalogService) recordInitialStock(ctx context.Context, repos appinv.TransactionalRepositories, item *catalog.Item, stock *InitialStock) error {
	locationID, err := ResolveLocation(ctx, repos, stock.LocationID)
	if err != nil {
		return err
	}
	unitCost := stock.UnitCost
	_, err = s.ledger.Record(ctx, repos, appinv.MovementCommand{
		ItemID:          item.ID,
		LocationID:      locationID,
		QuantityChanged: stock.Quantity,
		Reason:          inventory.ReasonInitialStock,
		UnitCost:        &unitCost,
	})
	if err != nil {
		return fmt.Errorf("record initial stock: %w", err)
	}
	return nil
}

// ResolveLocation returns the explicit location after checking it exists, or the
// tenant's first warehouse
func ResolveLocation(ctx context.Context, repos appinv.TransactionalRepositories, locationID *uuid.UUID) (uuid.UUID, error) {
	if locationID != nil {
		location, err := repos.Locations().FindByID(ctx, *locationID)
		if err != nil {
			return uuid.Nil, err
		}
		return location.ID, nil
	}
	warehouse, err := repos.Locations().FirstWarehouse(ctx)
	if errors.Is(err, shared.ErrNotFound) {
		return uuid.Nil, shared.NewDomainError("LOCATION_REQUIRED", "No location given and the tenant has no warehouse")
	}
	if err != nil {
		return uuid.Nil, err
	}
	return warehouse.ID, nil
}

// CreateLocation creates a stock location. A location without a stock pool gets a pool of its own.
func (s *CatalogService) CreateLocation(ctx context.Context, tenantID uuid.UUID, req CreateLocationRequest) (*LocationResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var location *catalog.Location
	err := s.uow.Run(ctx, tenantID, "create_location", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		pool := uuid.New()
		if req.StockPoolID != nil {
			pool = *req.StockPoolID
		}
		var err error
		location, err = catalog.NewLocation(repos.TenantID(), req.Name, pool, req.IsWarehouse)
		if err != nil {
			return err
		}
		return repos.Locations().Save(ctx, location)
	})
	if err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}

	resp := ToLocationResponse(location)
	return &resp, nil
}

// AddComposition links a child item to a parent. Children consumed from stock must
// be stock-tracked items so a bundle never expands more than one level.
func (s *CatalogService) AddComposition(ctx context.Context, tenantID uuid.UUID, req AddCompositionRequest) (*CompositionResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	compType := catalog.CompositionType(req.Type)
	if compType == "" {
		compType = catalog.CompositionComponent
	}

	var composition *catalog.Composition
	err := s.uow.Run(ctx, tenantID, "add_composition", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		var err error
		composition, err = catalog.NewComposition(repos.TenantID(), req.ParentItemID, req.ChildItemID, req.Quantity, compType)
		if err != nil {
			return err
		}

		if _, err := repos.Items().FindByID(ctx, req.ParentItemID); err != nil {
			return fmt.Errorf("parent item: %w", err)
		}
		child, err := repos.Items().FindByID(ctx, req.ChildItemID)
		if err != nil {
			return fmt.Errorf("child item: %w", err)
		}
		if composition.ConsumesStock() && !child.Kind.TracksStock() {
			return shared.NewDomainError(shared.CodeInvalidInput,
				"Component "+child.SKU+" is a "+string(child.Kind)+" and does not carry stock")
		}
		return repos.Compositions().Save(ctx, composition)
	})
	if err != nil {
		return nil, fmt.Errorf("add composition: %w", err)
	}

	resp := ToCompositionResponse(composition)
	return &resp, nil
}

// RemoveComposition removes a parent/child link
func (s *CatalogService) RemoveComposition(ctx context.Context, tenantID, parentID, childID uuid.UUID) error {
	err := s.uow.Run(ctx, tenantID, "remove_composition", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		return repos.Compositions().Delete(ctx, parentID, childID)
	})
	if err != nil {
		return fmt.Errorf("remove composition: %w", err)
	}
	return nil
}

// UpdatePrice changes the catalog prices of an item. Existing order lines keep the
// prices they snapshotted.
func (s *CatalogService) UpdatePrice(ctx context.Context, tenantID, itemID uuid.UUID, req UpdatePriceRequest) (*ItemResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var item *catalog.Item
	err := s.uow.Run(ctx, tenantID, "update_price", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		var err error
		item, err = repos.Items().FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		if err := item.SetPrices(req.SalePrice, req.CostPrice); err != nil {
			return err
		}
		return repos.Items().Save(ctx, item)
	})
	if err != nil {
		return nil, fmt.Errorf("update price: %w", err)
	}

	resp := ToItemResponse(item)
	return &resp, nil
}

// GetItem returns an item with its compositions
func (s *CatalogService) GetItem(ctx context.Context, tenantID, itemID uuid.UUID) (*ItemResponse, error) {
	var resp ItemResponse
	err := s.uow.Run(ctx, tenantID, "get_item", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		item, err := repos.Items().FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		children, err := repos.Compositions().ListByParent(ctx, itemID)
		if err != nil {
			return err
		}

		resp = ToItemResponse(item)
		for i := range children {
			resp.Components = append(resp.Components, ToCompositionResponse(&children[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
