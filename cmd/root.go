// Package cmd wires the command-line interface for the guidance intake
// service.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/medregs/guidance-intake/internal/app"
	internalconfig "github.com/medregs/guidance-intake/internal/config"
	"github.com/medregs/guidance-intake/internal/intake"
	"github.com/medregs/guidance-intake/internal/logging"
	"github.com/medregs/guidance-intake/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface commands use. A mock app can be
// injected during tests.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetConfig() internalconfig.Config
	GetStore() intake.DocumentStore
	GetUploader() intake.Uploader
	GetPublisher() intake.Publisher
}

// newApp is the application factory. It's a variable so tests can replace it
// with a mock factory.
var newApp = func(ctx context.Context) (App, error) {
	cfg, err := internalconfig.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if cfg.Logging.Development {
		if _, err := logging.InitLogger(true); err != nil {
			return nil, err
		}
	}
	return app.NewApp(ctx, cfg, logging.L)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guidance-intake",
		Short: "Ingests regulatory guidance documents from international authorities.",
		Long: `guidance-intake discovers guidance documents published by configured
regulatory authorities, normalizes and deduplicates them, assigns docket
identifiers, and persists metadata and artifacts for downstream systems.`,

		// Runs after config is loaded but before the subcommand's RunE:
		// the place to build and inject the application.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.InitConfig()
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/guidance-intake, $HOME/.guidance-intake)")

	cmd.AddCommand(newIngestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if _, err := logging.InitLogger(false); err != nil {
		panic(err)
	}
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
