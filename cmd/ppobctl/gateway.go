package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"ppobmart/internal/app/app"
)

func gatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Provider diagnostics",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "balance",
		Short: "Show the provider deposit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				b, err := a.Gateway().CheckBalance(cmd.Context())
				if err != nil {
					return fmt.Errorf("gateway balance: %w", err)
				}
				return printJSON(b)
			})
		},
	})

	return cmd
}
