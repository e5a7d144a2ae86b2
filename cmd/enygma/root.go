package main

import (
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/Ramsey-B/enygma/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "enygma",
		Short: "Rotor machine and classical cipher chain",
		Long: `enygma runs text through an ordered chain of cipher modules: rotors,
plugboard, reflector, Caesar shifter, substitution, Vigenère and block
transposition.

  enygma encrypt --text "HELLO" --preset "Caesar Cipher"
  enygma encrypt --chain chain.yaml --file message.txt
  enygma presets --show Enigma
  enygma serve`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringSlice("env-file", nil, "Environment files to load before reading the environment (default .env)")
	root.PersistentFlags().String("log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(
		newEncryptCmd(),
		newPresetsCmd(),
		newServeCmd(),
		newMigrateCmd(),
	)
	return root
}

// loadConfig reads the configuration and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// newLogger builds a zap logger writing to stderr behind the ectologger
// interface. The returned func flushes buffered entries.
func newLogger(level string, pretty bool) (ectologger.Logger, func(), error) {
	parsed, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zapConfig := zap.NewProductionConfig()
	if pretty {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(parsed)
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, nil, err
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil), func() { _ = zapLogger.Sync() }, nil
}
