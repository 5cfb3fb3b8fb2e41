// Package api exposes report ingestion over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zjy-dev/covingest/internal/config"
	"github.com/zjy-dev/covingest/internal/coverage"
	"github.com/zjy-dev/covingest/internal/logger"
	"github.com/zjy-dev/covingest/internal/store"
)

// ReportStore is the part of store.Store the API needs.
type ReportStore interface {
	Save(ctx context.Context, name string, format coverage.Format, report *coverage.Report) (string, error)
	Load(ctx context.Context, id string) (*store.Stored, error)
	List(ctx context.Context, name string, limit int) ([]store.Entry, error)
	Delete(ctx context.Context, id string) error
}

var _ ReportStore = (*store.Store)(nil)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidReport       = "invalid_report"
	CodeInvalidFormat       = "invalid_format"
	CodeInvalidQuery        = "invalid_query"
	CodeReportTooLarge      = "report_too_large"
	CodeNotFound            = "not_found"
	CodeMethodNotAllowed    = "method_not_allowed"
	CodeNotAcceptable       = "not_acceptable"
	CodeInternalServerError = "internal_server_error"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, handler http.Handler, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       30 * time.Second,
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown http server: %v", err)
		}
	}()

	logger.Info("starting http server on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewRouter builds the gin engine serving the v0 API.
func NewRouter(reports ReportStore, maxBodyBytes int64) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    logger.Writer(logger.INFO),
		SkipPaths: []string{"/v0/ping"},
		Formatter: func(p gin.LogFormatterParams) string {
			return p.Method + " " + p.Path + " " + http.StatusText(p.StatusCode) + " " + p.Latency.String()
		},
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		logger.Error("gin recovered from panic: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Code: CodeInternalServerError})
	}))
	router.Use(requireJSON())
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: CodeNotFound, Message: "route not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Code: CodeMethodNotAllowed, Message: "method not allowed"})
	})

	s := &server{reports: reports, maxBodyBytes: maxBodyBytes}
	v0 := router.Group("/v0")
	v0.GET("/ping", s.ping)
	v0.POST("/parse", s.parseReport)
	v0.POST("/reports", s.createReport)
	v0.GET("/reports", s.listReports)
	v0.GET("/reports/:id", s.getReport)
	v0.DELETE("/reports/:id", s.deleteReport)
	return router
}

type server struct {
	reports      ReportStore
	maxBodyBytes int64
}

func (s *server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().Format(time.RFC3339Nano),
	})
}
