package main

import (
	apppipeline "github.com/erp/stockcore/internal/application/pipeline"
	"github.com/spf13/cobra"
)

func (c *cli) transitionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transition",
		Short: "Move an order to another stage of its pipeline",
		Long: `Moves an order to the target stage and runs the stage automation: stock
reservation or deduction and the receivable. A repeated --key returns the current
order without running anything again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := c.tenantID()
			if err != nil {
				return err
			}
			orderID, err := parseUUIDFlag(cmd, "order")
			if err != nil {
				return err
			}
			stageID, err := parseUUIDFlag(cmd, "stage")
			if err != nil {
				return err
			}
			key, _ := cmd.Flags().GetString("key")
			reason, _ := cmd.Flags().GetString("reopen-reason")

			return c.withRuntime(cmd.Context(), func(rt *runtime) error {
				var resp *apppipeline.TransitionResponse
				if reason != "" {
					resp, err = rt.orders.ReopenOrder(cmd.Context(), tenantID, orderID, apppipeline.ReopenRequest{
						TargetStageID: stageID,
						Reason:        reason,
					})
				} else {
					resp, err = rt.orders.TransitionOrder(cmd.Context(), tenantID, orderID, apppipeline.TransitionRequest{
						TargetStageID:  stageID,
						IdempotencyKey: key,
					})
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}
	cmd.Flags().String("order", "", "order id")
	cmd.Flags().String("stage", "", "target stage id")
	cmd.Flags().String("key", "", "idempotency key")
	cmd.Flags().String("reopen-reason", "", "reopen a closed order with this reason")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("stage")
	cmd.MarkFlagsMutuallyExclusive("key", "reopen-reason")
	return cmd
}
