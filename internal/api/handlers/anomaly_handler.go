package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rxforecaster/backend-go/internal/service"
)

const maxDaysBack = 730

type AnomalyHandler struct {
	service *service.AnomalyService
}

func NewAnomalyHandler(service *service.AnomalyService) *AnomalyHandler {
	return &AnomalyHandler{service: service}
}

func parseDaysBack(c *gin.Context) (int, bool) {
	daysBack := 0 // engine falls back to the configured lookback
	if raw := c.Query("days_back"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxDaysBack {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "days_back must be an integer between 1 and " + strconv.Itoa(maxDaysBack),
			})
			return 0, false
		}
		daysBack = parsed
	}
	return daysBack, true
}

func (h *AnomalyHandler) DetectAnomalies(c *gin.Context) {
	daysBack, ok := parseDaysBack(c)
	if !ok {
		return
	}

	result, err := h.service.DetectAnomalies(c.Request.Context(), c.Param("name"), daysBack)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type bulkAnomalyRequest struct {
	DrugNames []string `json:"drug_names"`
	DaysBack  int      `json:"days_back"`
}

func (h *AnomalyHandler) BulkDetect(c *gin.Context) {
	var req bulkAnomalyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.DaysBack < 0 || req.DaysBack > maxDaysBack {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "days_back must be an integer between 1 and " + strconv.Itoa(maxDaysBack),
		})
		return
	}

	results, err := h.service.BulkDetect(c.Request.Context(), req.DrugNames, req.DaysBack)
	if err != nil {
		respondError(c, err)
		return
	}

	analyses := make(map[string]any, len(results))
	succeeded := 0
	for name, item := range results {
		if item.Err != nil {
			analyses[name] = gin.H{"error": item.Err.Error()}
			continue
		}
		analyses[name] = item.Result
		succeeded++
	}

	c.JSON(http.StatusOK, gin.H{
		"analyses":        analyses,
		"total_requested": len(results),
		"successful":      succeeded,
	})
}
