// Package backends builds the storage driver, generator and activity
// publisher selected by the inkwell configuration.
package backends

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkwellhq/inkwell/cmd/inkwell/sqlitepath"
	"github.com/inkwellhq/inkwell/pkg/config"
	"github.com/inkwellhq/inkwell/pkg/credentials"
	"github.com/inkwellhq/inkwell/pkg/eventstream"
	"github.com/inkwellhq/inkwell/pkg/eventstream/kafka"
	"github.com/inkwellhq/inkwell/pkg/eventstream/nop"
	"github.com/inkwellhq/inkwell/pkg/generator"
	"github.com/inkwellhq/inkwell/pkg/storage"
	"github.com/inkwellhq/inkwell/pkg/storage/inmemory"
	"github.com/inkwellhq/inkwell/pkg/storage/mysql"
	"github.com/inkwellhq/inkwell/pkg/storage/postgres"
	"github.com/inkwellhq/inkwell/pkg/storage/sqlite"
)

// NewStorageDriver opens the driver named by cfg.Driver.
func NewStorageDriver(ctx context.Context, cfg config.StorageConfig, configDir string, log *slog.Logger) (storage.Driver, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case "sqlite":
		path, err := sqlitepath.ResolveSQLitePath(cfg.SQLitePath, configDir)
		if err != nil {
			return nil, err
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		log.Info("using SQLite storage", "path", path)
		return driver, nil

	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("storage driver postgres requires storage.dsn")
		}
		driver, err := postgres.NewDriver(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return driver, nil

	case "mysql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("storage driver mysql requires storage.dsn")
		}
		driver, err := mysql.NewDriver(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create MySQL driver: %w", err)
		}
		log.Info("using MySQL storage")
		return driver, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q (expected one of %s)",
			cfg.Driver, strings.Join(config.StorageDrivers(), ", "))
	}
}

// NewPublisher creates the activity event publisher named by cfg.Provider.
func NewPublisher(cfg config.EventStreamConfig, log *slog.Logger) (eventstream.Publisher, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "nop":
		return nop.NewPublisher(), nil

	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		log.Info("publishing activity to kafka", "topic", cfg.Topic, "brokers", strings.Join(cfg.Brokers, ","))
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %q", cfg.Provider)
	}
}

// NewGenerator builds the generation backend. Hosted providers read their
// API key from the environment or credentials.toml.
func NewGenerator(ctx context.Context, cfg config.GeneratorConfig, configDir string, log *slog.Logger) (generator.Generator, error) {
	provider := strings.ToLower(cfg.Provider)

	var apiKey string
	if credentials.IsSupportedProvider(provider) {
		mgr, err := credentials.NewManager(configDir)
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		apiKey, err = mgr.ResolveKey(provider)
		if err != nil {
			return nil, err
		}
	}

	gen, err := generator.New(ctx, generator.Config{
		Provider: provider,
		Model:    cfg.Model,
		Target:   cfg.Target,
		APIKey:   apiKey,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	log.Info("using generator", "provider", gen.Name(), "model", cfg.Model)
	return gen, nil
}
