package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"ppobmart/internal/app/app"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/service/lifecycle"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Inspect and move transactions",
	}

	cmd.AddCommand(txListCmd())
	cmd.AddCommand(txEventsCmd())
	cmd.AddCommand(txActionCmd("approve", "Approve a pending transaction and settle it", (*lifecycle.Service).Approve))
	cmd.AddCommand(txActionCmd("reject", "Reject a pending or processing transaction", (*lifecycle.Service).Reject))
	cmd.AddCommand(txActionCmd("reconcile", "Ask the gateway for the final outcome", (*lifecycle.Service).Reconcile))
	cmd.AddCommand(txActionCmd("retry", "Settle a failed transaction again", (*lifecycle.Service).Retry))

	return cmd
}

func txListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st model.Status
			if status != "" {
				var err error
				if st, err = model.ParseStatus(status); err != nil {
					return err
				}
			}

			return withApp(cmd.Context(), func(a *app.App) error {
				mm, err := a.Lifecycle().List(cmd.Context(), st)
				if err != nil {
					return fmt.Errorf("tx list: %w", err)
				}
				return printJSON(mm)
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "pending, processing, success, failed or rejected")

	return cmd
}

func txEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <code>",
		Short: "Show the status history of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				ee, err := a.Lifecycle().Events(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("tx events: %w", err)
				}
				return printJSON(ee)
			})
		},
	}
}

type txAction func(s *lifecycle.Service, ctx context.Context, code string, actor string) (*model.Transaction, error)

func txActionCmd(name, short string, action txAction) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   name + " <code>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				m, err := action(a.Lifecycle(), cmd.Context(), args[0], actor)
				if err != nil {
					return fmt.Errorf("tx %s: %w", name, err)
				}
				return printJSON(m)
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "operator:ppobctl", "name recorded in the event log")

	return cmd
}
