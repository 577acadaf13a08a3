package container

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/dispatcher"
	"github.com/dmarkov/expensio/internal/application/service"
	"github.com/dmarkov/expensio/internal/config"
	"github.com/dmarkov/expensio/internal/infrastructure/worker"
	httpapi "github.com/dmarkov/expensio/internal/interfaces/http"
)

// Container wires the application together: storage, services, event
// subscribers, background workers and the HTTP server. It owns their
// lifecycles; main only builds one and runs it.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	ReceiptService service.ReceiptService
	ReportService  service.ReportService
	Events         dispatcher.Dispatcher
	Workers        *worker.Manager
	Server         *httpapi.Server

	sqlDB *sql.DB
}

// New builds the full dependency graph from configuration.
func New(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	logger, err := buildLogger(cfg)
	if err != nil {
		return nil, err
	}
	c.Logger = logger

	sqlDB, db, err := buildDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.sqlDB = sqlDB

	c.Events = dispatcher.New(logger)
	c.ReceiptService, c.ReportService = buildServices(db, c.Events, logger)
	c.Workers = buildWorkers(db, logger, cfg)

	subscribeArchiver(c.Events, c.ReportService, cfg, logger)

	c.Server = buildServer(cfg, c.ReceiptService, c.ReportService, logger)
	return c, nil
}

// Run starts the workers and serves HTTP until the context is canceled,
// then shuts everything down in reverse order.
func (c *Container) Run(ctx context.Context) error {
	if err := c.Workers.StartAll(ctx); err != nil {
		return err
	}

	serveErr := c.Server.Start(ctx)

	if err := c.Workers.StopAll(); err != nil {
		c.Logger.Error("worker shutdown failed", zap.Error(err))
	}
	if err := c.Events.Close(); err != nil {
		c.Logger.Error("dispatcher shutdown failed", zap.Error(err))
	}
	return serveErr
}

// Close releases held resources. Call after Run returns.
func (c *Container) Close() {
	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.Logger.Error("database close failed", zap.Error(err))
		}
	}
	_ = c.Logger.Sync()
}
