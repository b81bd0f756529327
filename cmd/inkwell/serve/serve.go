// Package servecmder provides the serve command that runs the inkwell API
// server with its storage, generator and activity pipeline.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inkwellhq/inkwell/api"
	"github.com/inkwellhq/inkwell/cmd/inkwell/backends"
	"github.com/inkwellhq/inkwell/pkg/activity"
	"github.com/inkwellhq/inkwell/pkg/config"
	"github.com/inkwellhq/inkwell/pkg/eventstream"
	"github.com/inkwellhq/inkwell/pkg/logger"
	"github.com/inkwellhq/inkwell/pkg/utils"
)

type serveCommander struct {
	listen     string
	adminEmail string
	jsonLogs   bool
	logFile    string
	configDir  string
	debug      bool

	storageDriver string
	sqlitePath    string
	dsn           string

	generatorProvider string
	generatorModel    string
	generatorTarget   string

	eventStreamProvider string
	eventStreamTopic    string

	viper  *viper.Viper
	logger *slog.Logger
}

const serveLongDesc string = `Run the inkwell API server.

The server exposes the blueprint, project and admin REST API under /v1,
streams generations as newline-delimited JSON and serves MCP tools at /mcp.

Storage, generator and activity publishing come from config.toml, INKWELL_*
environment variables or the flags below. When the store has no users yet an
admin account is created and its token is printed once.

Examples:
  inkwell serve
  inkwell serve --storage-driver sqlite --generator-provider gemini
  inkwell serve --storage-driver postgres --dsn postgres://inkwell@db/inkwell`

const serveShortDesc string = "Run the inkwell API server"

var serveFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagDSN,
	config.FlagGeneratorProv,
	config.FlagGeneratorModel,
	config.FlagGeneratorTgt,
	config.FlagEventStreamProv,
	config.FlagEventStreamTpc,
}

// NewServeCmd returns "inkwell serve".
func NewServeCmd() *cobra.Command {
	return newServeCmd("serve", config.FlagAPIListen)
}

// NewAPICmd returns the root command of the standalone inkwellapi binary,
// which takes --listen instead of --api-listen.
func NewAPICmd() *cobra.Command {
	return newServeCmd("inkwellapi", config.FlagAPIListenStandalone)
}

func newServeCmd(use, listenFlag string) *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   use,
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Registry, append([]string{listenFlag}, serveFlags...))
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Registry, listenFlag, &cmder.listen)
	config.AddStringFlag(cmd, config.Registry, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.Registry, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Registry, config.FlagDSN, &cmder.dsn)
	config.AddStringFlag(cmd, config.Registry, config.FlagGeneratorProv, &cmder.generatorProvider)
	config.AddStringFlag(cmd, config.Registry, config.FlagGeneratorModel, &cmder.generatorModel)
	config.AddStringFlag(cmd, config.Registry, config.FlagGeneratorTgt, &cmder.generatorTarget)
	config.AddStringFlag(cmd, config.Registry, config.FlagEventStreamProv, &cmder.eventStreamProvider)
	config.AddStringFlag(cmd, config.Registry, config.FlagEventStreamTpc, &cmder.eventStreamTopic)
	cmd.Flags().StringVar(&cmder.adminEmail, "admin-email", "admin@localhost", "Email of the admin created on first start")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Write structured JSON logs instead of pretty output")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var closeLog func() error
	var err error
	c.logger, closeLog, err = c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := config.FromViper(c.viper)

	driver, err := backends.NewStorageDriver(ctx, cfg.Storage, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	gen, err := backends.NewGenerator(ctx, cfg.Generator, c.configDir, c.logger)
	if err != nil {
		return err
	}

	publisher, err := backends.NewPublisher(cfg.EventStream, c.logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	pool, err := activity.NewPool(&activity.Config{
		Store:      driver,
		Publisher:  publisher,
		Source:     eventstream.EventSource{Service: "inkwell-api", Version: utils.Version},
		NumWorkers: cfg.Activity.Workers,
		QueueSize:  cfg.Activity.QueueSize,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating activity pool: %w", err)
	}
	defer pool.Close()

	admin, err := api.Bootstrap(ctx, driver, c.adminEmail)
	if err != nil {
		return err
	}
	if admin != nil {
		c.logger.Warn("created initial admin; store this token, it is not shown again",
			"email", admin.Email,
			"token", admin.Token,
		)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		Version:    utils.Version,
	}, driver, gen, pool, c.logger)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("context canceled, shutting down")
	}

	if err := server.Shutdown(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// newLogger builds the terminal logger and, with --log-file, tees it into a
// JSON log appended to that file. The returned func closes the file.
func (c *serveCommander) newLogger() (*slog.Logger, func() error, error) {
	term := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(!c.jsonLogs),
		logger.WithJSON(c.jsonLogs),
	)
	if c.logFile == "" {
		return term, func() error { return nil }, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	file := logger.New(logger.WithDebug(c.debug), logger.WithJSON(true), logger.WithWriter(f))
	return logger.Tee(term, file), f.Close, nil
}
