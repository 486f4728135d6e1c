package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/benvon/scanwise/internal/config"
	"github.com/benvon/scanwise/internal/storage"
	"go.uber.org/zap"
)

// Persistent root flags, bound in main
var (
	ConfigPath string
	Debug      bool
)

// openStorage loads configuration and opens the configured storage adapter.
// The returned cleanup closes the adapter when it holds a connection.
func openStorage() (*config.Config, storage.Adapter, func(), error) {
	cfg, err := config.LoadFile(ConfigPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	adapter, err := storage.Open(cfg.StorageDriver, storage.Options{
		SQLitePath:  cfg.SQLitePath,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	cleanup := func() {
		if closer, ok := adapter.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close storage: %v\n", err)
			}
		}
	}
	return cfg, adapter, cleanup, nil
}

// cliLogger builds a quiet logger for CLI runs; warnings and errors still
// reach stderr, and --debug opens the floodgates.
func cliLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if Debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
