package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"admissions-crm/app"
	"admissions-crm/config"
	"admissions-crm/db"
	"admissions-crm/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "crmctl",
	Short:         "Operate the admissions CRM",
	Long:          `crmctl runs maintenance jobs against the admissions CRM database: migrations, inactivity sweeps, attendance reports and bulk lead imports.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the environment and applies the configured log level.
func loadConfig() config.Config {
	config.LoadConfig()
	logger.Default().SetLevel(logger.ParseLevel(config.AppConfig.LogLevel))
	return config.AppConfig
}

// openApp connects to the configured database, applies the schema and
// wires the services. The caller must Close the app.
func openApp(ctx context.Context) (*app.App, error) {
	cfg := loadConfig()
	database, err := db.Open(cfg.DBDriver, config.GetDSN())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return app.New(cfg, database), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
