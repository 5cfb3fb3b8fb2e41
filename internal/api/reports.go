package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zjy-dev/covingest/internal/coverage"
	"github.com/zjy-dev/covingest/internal/ingest"
	"github.com/zjy-dev/covingest/internal/logger"
	"github.com/zjy-dev/covingest/internal/store"
)

// CreatedResponse answers a stored upload.
type CreatedResponse struct {
	ID      string `json:"id"`
	Format  string `json:"format"`
	Regions int    `json:"regions"`
}

// ParsedResponse answers a parse-only upload.
type ParsedResponse struct {
	Format  string            `json:"format"`
	Regions []coverage.Region `json:"regions"`
}

// ReportResponse is a stored report with its regions.
type ReportResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Format    string            `json:"format"`
	CreatedAt time.Time         `json:"created_at"`
	Regions   []coverage.Region `json:"regions"`
}

// readReport parses the request body. It writes the error response itself
// and returns false when the request cannot go on.
func (s *server) readReport(c *gin.Context) (*ingest.Result, bool) {
	format := c.DefaultQuery("format", ingest.FormatAuto)
	if format != ingest.FormatAuto {
		if _, err := coverage.ParseFormat(format); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: CodeInvalidFormat, Message: err.Error()})
			return nil, false
		}
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Code:    CodeReportTooLarge,
				Message: "report exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
			})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: CodeInvalidReport, Message: "failed to read request body"})
		return nil, false
	}

	result, err := ingest.ParseNamed(format, body)
	if err != nil {
		var invalid *ingest.InvalidReportError
		if errors.As(err, &invalid) {
			logger.Debug("rejected report: %s", invalid.Detail())
		} else {
			logger.Debug("rejected report: %v", err)
		}
		if isClientError(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    CodeInvalidReport,
				Message: coverage.ErrInvalidReport.Error(),
			})
			return nil, false
		}
		logger.Error("failed to parse report: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: CodeInternalServerError})
		return nil, false
	}
	return result, true
}

func isClientError(err error) bool {
	return errors.Is(err, coverage.ErrInvalidReport) ||
		errors.Is(err, coverage.ErrLineNumberInvalid) ||
		errors.Is(err, coverage.ErrStatementsInvalid)
}

func (s *server) parseReport(c *gin.Context) {
	result, ok := s.readReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ParsedResponse{
		Format:  result.Format.String(),
		Regions: result.Report.Regions,
	})
}

func (s *server) createReport(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: CodeInvalidQuery, Message: "name is required"})
		return
	}

	result, ok := s.readReport(c)
	if !ok {
		return
	}

	id, err := s.reports.Save(c.Request.Context(), name, result.Format, result.Report)
	if err != nil {
		logger.Error("failed to save report %q: %v", name, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: CodeInternalServerError, Message: "failed to save report"})
		return
	}

	logger.Info("stored %s report %q as %s with %d regions", result.Format, name, id, len(result.Report.Regions))
	c.JSON(http.StatusCreated, CreatedResponse{
		ID:      id,
		Format:  result.Format.String(),
		Regions: len(result.Report.Regions),
	})
}

func (s *server) listReports(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: CodeInvalidQuery, Message: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := s.reports.List(c.Request.Context(), c.Query("name"), limit)
	if err != nil {
		logger.Error("failed to list reports: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: CodeInternalServerError})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": entries})
}

func (s *server) getReport(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: CodeNotFound, Message: "report not found"})
		return
	}

	stored, err := s.reports.Load(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: CodeNotFound, Message: "report not found"})
		return
	}
	if err != nil {
		logger.Error("failed to load report %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: CodeInternalServerError})
		return
	}

	c.JSON(http.StatusOK, ReportResponse{
		ID:        stored.ID,
		Name:      stored.Name,
		Format:    stored.Format.String(),
		CreatedAt: stored.CreatedAt,
		Regions:   stored.Report.Regions,
	})
}

func (s *server) deleteReport(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: CodeNotFound, Message: "report not found"})
		return
	}

	err := s.reports.Delete(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: CodeNotFound, Message: "report not found"})
		return
	}
	if err != nil {
		logger.Error("failed to delete report %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: CodeInternalServerError})
		return
	}
	c.Status(http.StatusNoContent)
}
