package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/domain/models"
)

// ReportArchive reads archived daily reports.
type ReportArchive interface {
	LatestDailyReport(ctx context.Context) (models.DailyReport, error)
}

// ReportBuilder assembles the report for a moment in time.
type ReportBuilder interface {
	BuildDailyReport(ctx context.Context, now time.Time) models.DailyReport
}

// ReportHandler serves daily report endpoints.
type ReportHandler struct {
	archive ReportArchive
	builder ReportBuilder
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportHandler constructs the report HTTP adapter.
func NewReportHandler(archive ReportArchive, builder ReportBuilder, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{archive: archive, builder: builder, logger: logger, now: time.Now}
}

// Latest returns the most recently archived daily report.
func (h *ReportHandler) Latest(c *gin.Context) {
	report, err := h.archive.LatestDailyReport(c.Request.Context())
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report archived yet"})
		return
	}
	if err != nil {
		h.logger.Error("failed to load latest report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to load report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Today builds the current day's report without archiving it.
func (h *ReportHandler) Today(c *gin.Context) {
	c.JSON(http.StatusOK, h.builder.BuildDailyReport(c.Request.Context(), h.now()))
}
