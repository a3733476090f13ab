package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"ppobmart/internal/app/app"
	"ppobmart/internal/app/config"
	"ppobmart/internal/app/logger"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:          "ppobctl",
		Short:        "Back-office tool for ppobmart",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(operatorCmd())
	rootCmd.AddCommand(txCmd())
	rootCmd.AddCommand(gatewayCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	c := config.New()
	if err := c.LoadEnv(); err != nil {
		return c, fmt.Errorf("config load: %w", err)
	}
	return c, nil
}

// withApp runs fn against a fully wired application without the sync worker.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(ctx, c, logger.New(verbose || c.LogVerbose, true))
	if err != nil {
		return fmt.Errorf("app init: %w", err)
	}
	defer a.Stop()

	return fn(a)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
