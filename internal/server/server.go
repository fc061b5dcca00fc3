// =============================================================================
// QBO Invoice Converter - HTTP API
// =============================================================================
//
// The API backs the upload front-end:
//
//   GET  /healthz        liveness
//   POST /api/customers  upload a report, get the customer list to confirm
//   POST /api/invoices   upload a report with invoice parameters, get the
//                        QuickBooks import CSV (or a JSON review table)
//   POST /api/invoices/export
//                        send the reviewed (edited) table back, get the CSV
//
// Every request carries its own upload; nothing is kept between requests.
//
// =============================================================================

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/config"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/converter"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Server serves the conversion API.
type Server struct {
	cfg    *config.MainConfig
	conv   *converter.Converter
	logger *zap.Logger
	engine *gin.Engine
}

// New creates a Server and registers its routes.
func New(cfg *config.MainConfig, conv *converter.Converter, logger *zap.Logger) *Server {
	s := &Server{cfg: cfg, conv: conv, logger: logger}
	s.engine = s.newEngine()
	return s
}

func (s *Server) newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(LimitBody(s.cfg.Server.MaxUploadBytes))
	api.POST("/customers", s.ListCustomers)
	api.POST("/invoices", s.CreateInvoices)
	api.POST("/invoices/export", s.ExportInvoices)

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("api shutting down")
	return srv.Shutdown(shutdownCtx)
}
