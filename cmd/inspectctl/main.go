// Command inspectctl is the operator tool for facility-inspect: schema
// migration, user accounts, file-store exports and statistics.
package main

import (
	"fmt"
	"os"

	"facility-inspect/internal/config"
	"facility-inspect/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app is shared by every subcommand once the root PersistentPreRunE ran.
type app struct {
	configFile string
	cfg        *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "inspectctl",
		Short:         "Manage the facilities inspection store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load(a.configFile)
			logger.Init(config.LogConfig{Level: a.cfg.Log.Level, File: a.cfg.Log.File})
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file path (e.g. etc/config-dev.yaml)")

	root.AddCommand(
		a.migrateCmd(),
		a.userCmd(),
		a.exportCmd(),
		a.statsCmd(),
	)
	return root
}

// openDB fails when no database is configured; the CLI has no file fallback
// for relational operations.
func (a *app) openDB() (*gorm.DB, error) {
	if !a.cfg.Database.Enabled() {
		return nil, fmt.Errorf("database not configured")
	}
	return a.cfg.OpenGormDB()
}
