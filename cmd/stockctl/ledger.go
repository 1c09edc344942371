package main

import (
	"fmt"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Replay the ledger and compare it with levels and batches",
		Long: `Replays every movement of the tenant and checks, per item and location, that the
level quantity and the sum of batch quantities equal the ledger sum. Exits non-zero
when a discrepancy is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := c.tenantID()
			if err != nil {
				return err
			}
			return c.withRuntime(cmd.Context(), func(rt *runtime) error {
				report, err := rt.reconciler.Reconcile(cmd.Context(), tenantID)
				if err != nil {
					return err
				}
				if err := printJSON(cmd, report); err != nil {
					return err
				}
				if !report.Consistent() {
					return fmt.Errorf("ledger inconsistent: %d discrepancies", len(report.Discrepancies))
				}
				return nil
			})
		},
	}
}

func (c *cli) rebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rewrite a level quantity from its ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, itemID, locationID, err := c.levelKey(cmd)
			if err != nil {
				return err
			}
			return c.withRuntime(cmd.Context(), func(rt *runtime) error {
				level, err := rt.reconciler.RebuildLevel(cmd.Context(), tenantID, itemID, locationID)
				if err != nil {
					return err
				}
				c.log.Info("level rebuilt",
					zap.String("item_id", itemID.String()),
					zap.String("location_id", locationID.String()),
					zap.String("quantity", level.Quantity.String()),
				)
				return printJSON(cmd, level)
			})
		},
	}
	addLevelKeyFlags(cmd)
	return cmd
}

func (c *cli) levelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "level",
		Short: "Show the inventory level and batches of an item at a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, itemID, locationID, err := c.levelKey(cmd)
			if err != nil {
				return err
			}
			return c.withRuntime(cmd.Context(), func(rt *runtime) error {
				level, err := rt.inventory.GetLevel(cmd.Context(), tenantID, itemID, locationID)
				if err != nil {
					return err
				}
				batches, err := rt.inventory.ListBatches(cmd.Context(), tenantID, itemID, locationID)
				if err != nil {
					return err
				}
				return printJSON(cmd, struct {
					Level   *appinv.LevelResponse  `json:"level"`
					Batches []appinv.BatchResponse `json:"batches"`
				}{level, batches})
			})
		},
	}
	addLevelKeyFlags(cmd)
	return cmd
}

func (c *cli) movementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movements",
		Short: "List the ledger history of an item at a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, itemID, locationID, err := c.levelKey(cmd)
			if err != nil {
				return err
			}
			return c.withRuntime(cmd.Context(), func(rt *runtime) error {
				movements, err := rt.inventory.ListMovements(cmd.Context(), tenantID, itemID, locationID)
				if err != nil {
					return err
				}
				return printJSON(cmd, movements)
			})
		},
	}
	addLevelKeyFlags(cmd)
	return cmd
}

func addLevelKeyFlags(cmd *cobra.Command) {
	cmd.Flags().String("item", "", "item id")
	cmd.Flags().String("location", "", "location id")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("location")
}

func (c *cli) levelKey(cmd *cobra.Command) (tenantID, itemID, locationID uuid.UUID, err error) {
	if tenantID, err = c.tenantID(); err != nil {
		return
	}
	if itemID, err = parseUUIDFlag(cmd, "item"); err != nil {
		return
	}
	locationID, err = parseUUIDFlag(cmd, "location")
	return
}
