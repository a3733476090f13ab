package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"ppobmart/internal/app/app"
	"ppobmart/internal/app/model"
)

func operatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage back-office operators",
	}

	cmd.AddCommand(operatorAddCmd())

	return cmd
}

func operatorAddCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an operator",
		Long: `Create an operator allowed to log in to the admin API.

The password is taken from --password or, when empty, from PPOBCTL_PASSWORD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PPOBCTL_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("password is required")
			}

			return withApp(cmd.Context(), func(a *app.App) error {
				op, err := a.Operators().Create(cmd.Context(), &model.Operator{Name: args[0], Password: password})
				if err != nil {
					return fmt.Errorf("operator add: %w", err)
				}
				return printJSON(op)
			})
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "operator password")

	return cmd
}
