package container

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/dispatcher"
	"github.com/dmarkov/expensio/internal/application/service"
	"github.com/dmarkov/expensio/internal/config"
	"github.com/dmarkov/expensio/internal/domain/event"
	"github.com/dmarkov/expensio/internal/export"
	"github.com/dmarkov/expensio/internal/extract"
	"github.com/dmarkov/expensio/internal/infrastructure/external/rates"
	"github.com/dmarkov/expensio/internal/infrastructure/persistence/repository"
	"github.com/dmarkov/expensio/internal/infrastructure/persistence/sqlite"
	"github.com/dmarkov/expensio/internal/infrastructure/storage"
	"github.com/dmarkov/expensio/internal/infrastructure/worker"
	httpapi "github.com/dmarkov/expensio/internal/interfaces/http"
	"github.com/dmarkov/expensio/pkg/database"
	"github.com/dmarkov/expensio/pkg/utils"
)

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return logger, nil
}

func buildDatabase(cfg *config.Config, logger *zap.Logger) (*sql.DB, *sqlite.DB, error) {
	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.NewMigrator(sqlDB, logger).Run(); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, sqlite.NewDB(sqlDB, logger), nil
}

func buildServices(db *sqlite.DB, events dispatcher.Dispatcher, logger *zap.Logger) (service.ReceiptService, service.ReportService) {
	receiptRepo := repository.NewReceiptRepository(db, logger)
	reportRepo := repository.NewReportRepository(db, logger)
	extractor := extract.NewExtractor(logger)
	rateTable := rates.NewTable()

	// No OCR client wired yet: images are recognized on-device and reach the
	// API as text plus blocks.
	receipts := service.NewReceiptService(receiptRepo, reportRepo, nil, extractor, db, events, logger)
	reports := service.NewReportService(reportRepo, receiptRepo, rateTable, db, events, logger)
	return receipts, reports
}

func buildWorkers(db *sqlite.DB, logger *zap.Logger, cfg *config.Config) *worker.Manager {
	receiptRepo := repository.NewReceiptRepository(db, logger)
	extractor := extract.NewExtractor(logger)

	manager := worker.NewManager(logger)
	manager.Register(worker.NewRecoveryWorker(receiptRepo, nil, extractor, cfg.Worker.RecoveryInterval, logger))
	return manager
}

func subscribeArchiver(events dispatcher.Dispatcher, reports service.ReportService, cfg *config.Config, logger *zap.Logger) {
	store := storage.NewLocalArchive(cfg.Archive.Dir, logger)
	archiver := export.NewArchiver(reports, export.NewExcelExporter(logger), store, logger)
	events.SubscribeNamed(event.TypeReportSubmitted, "workbook-archiver", archiver.HandleReportSubmitted)
}

func buildServer(cfg *config.Config, receipts service.ReceiptService, reports service.ReportService, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, receipts, reports, export.NewExcelExporter(logger), logger)
}
