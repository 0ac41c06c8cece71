// Package config initializes the application's configuration. It uses the
// Viper library to read settings from a config file, environment variables,
// and command-line flags, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	internalconfig "github.com/medregs/guidance-intake/internal/config"
	"github.com/medregs/guidance-intake/internal/logging"
)

// InitConfig initializes the global Viper configuration. It sets up default
// values, defines configuration search paths, and enables reading from
// environment variables. Designed to be called once at application startup.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/guidance-intake/")
	viper.AddConfigPath("$HOME/.guidance-intake")

	internalconfig.SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("INTAKE") // e.g. INTAKE_DATABASE_DSN=postgres://...
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
