// Package http is the thin HTTP adapter over the application services. It
// translates requests to service calls and maps domain errors to status
// codes; no business rules live here.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/service"
	"github.com/dmarkov/expensio/internal/export"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter.
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// NewServer creates the server and mounts all routes.
func NewServer(
	config ServerConfig,
	receiptService service.ReceiptService,
	reportService service.ReportService,
	exporter *export.ExcelExporter,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	server := &Server{
		config: config,
		router: router,
		logger: logger,
	}

	router.Use(gin.Recovery())
	router.Use(server.loggingMiddleware())

	handlers := NewHandlers(receiptService, reportService, exporter, logger)
	server.mountRoutes(handlers)

	return server
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("http request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func (s *Server) mountRoutes(h *Handlers) {
	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/extract", h.Extract)

		api.POST("/receipts", h.CreateReceipt)
		api.GET("/receipts", h.ListReceipts)
		api.GET("/receipts/:id", h.GetReceipt)
		api.PATCH("/receipts/:id", h.UpdateReceipt)
		api.POST("/receipts/:id/confirm", h.ConfirmReceipt)
		api.DELETE("/receipts/:id", h.DeleteReceipt)

		api.POST("/reports", h.CreateReport)
		api.GET("/reports", h.ListReports)
		api.GET("/reports/:id", h.GetReport)
		api.GET("/reports/:id/receipts", h.ListReportReceipts)
		api.GET("/reports/:id/totals", h.ReportTotals)
		api.GET("/reports/:id/display-total", h.ReportDisplayTotal)
		api.GET("/reports/:id/export", h.ExportReport)
		api.POST("/reports/:id/submit", h.SubmitReport)
		api.POST("/reports/:id/receipts/:receiptID", h.LinkReceipt)
		api.DELETE("/reports/:id/receipts/:receiptID", h.UnlinkReceipt)
		api.DELETE("/reports/:id", h.DeleteReport)
	}
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting http server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("http server error", zap.Error(err))
		return err
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// Router returns the underlying gin router, for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
