package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/service"
)

type ReportHandler struct {
	service *service.ReportService
}

func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) ReorderReport(c *gin.Context) {
	periods, ok := parsePeriods(c, defaultForecastPeriods)
	if !ok {
		return
	}

	departments := c.QueryArray("department")

	var riskFilter []domain.RiskLevel
	for _, raw := range c.QueryArray("risk_level") {
		level := domain.RiskLevel(strings.ToUpper(strings.TrimSpace(raw)))
		switch level {
		case domain.RiskCritical, domain.RiskHigh, domain.RiskMedium, domain.RiskLow:
			riskFilter = append(riskFilter, level)
		case "":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown risk_level %q", raw)})
			return
		}
	}

	report, err := h.service.ReorderReport(c.Request.Context(), departments, riskFilter, periods)
	if err != nil {
		respondError(c, err)
		return
	}

	if strings.EqualFold(c.DefaultQuery("format", "json"), "csv") {
		payload, err := report.EncodeCSV()
		if err != nil {
			respondError(c, err)
			return
		}

		if c.Query("archive") == "true" {
			if key, err := h.service.ArchiveCSV(c.Request.Context(), report); err != nil {
				log.Warn().Err(err).Msg("reorder report archive failed")
			} else {
				c.Header("X-Archive-Key", key)
			}
		}

		filename := fmt.Sprintf("reorder_report_%s.csv", report.GeneratedAt.Format("20060102"))
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, "text/csv", payload)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListArchives lists the archived report CSVs in object storage.
func (h *ReportHandler) ListArchives(c *gin.Context) {
	archives, err := h.service.ListArchives(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrArchiveDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archives": archives, "count": len(archives)})
}

// DownloadArchive streams one archived report CSV back as an
// attachment.
func (h *ReportHandler) DownloadArchive(c *gin.Context) {
	name := c.Param("name")

	dir, err := os.MkdirTemp("", "reorder-archive-")
	if err != nil {
		respondError(c, err)
		return
	}
	defer os.RemoveAll(dir)

	destPath := filepath.Join(dir, "report.csv")
	if err := h.service.FetchArchive(c.Request.Context(), name, destPath); err != nil {
		switch {
		case errors.Is(err, service.ErrArchiveDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidArchiveName):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("archive %q not found", name)})
		}
		return
	}

	c.FileAttachment(destPath, name)
}
