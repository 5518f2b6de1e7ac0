package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rxforecaster/backend-go/internal/service"
)

// Handler-level horizon defaults; the engines themselves take periods
// explicitly.
const (
	defaultForecastPeriods = 14
	defaultBulkPeriods     = 30
	maxForecastPeriods     = 90
)

type ForecastHandler struct {
	service *service.ForecastService
}

func NewForecastHandler(service *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

func parsePeriods(c *gin.Context, fallback int) (int, bool) {
	periods := fallback
	if raw := c.Query("periods"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxForecastPeriods {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "periods must be an integer between 1 and " + strconv.Itoa(maxForecastPeriods),
			})
			return 0, false
		}
		periods = parsed
	}
	return periods, true
}

func (h *ForecastHandler) ForecastDrug(c *gin.Context) {
	periods, ok := parsePeriods(c, defaultForecastPeriods)
	if !ok {
		return
	}

	result, err := h.service.ForecastItem(c.Request.Context(), c.Param("name"), periods)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type bulkForecastRequest struct {
	DrugNames []string `json:"drug_names"`
	Periods   int      `json:"periods"`
}

func (h *ForecastHandler) BulkForecast(c *gin.Context) {
	var req bulkForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Periods == 0 {
		req.Periods = defaultBulkPeriods
	}
	if req.Periods < 1 || req.Periods > maxForecastPeriods {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "periods must be an integer between 1 and " + strconv.Itoa(maxForecastPeriods),
		})
		return
	}

	results, err := h.service.BulkForecast(c.Request.Context(), req.DrugNames, req.Periods)
	if err != nil {
		respondError(c, err)
		return
	}

	forecasts := make(map[string]any, len(results))
	succeeded := 0
	for name, item := range results {
		if item.Err != nil {
			forecasts[name] = gin.H{"error": item.Err.Error()}
			continue
		}
		forecasts[name] = item.Result
		succeeded++
	}

	c.JSON(http.StatusOK, gin.H{
		"forecasts":       forecasts,
		"total_requested": len(results),
		"successful":      succeeded,
		"periods":         req.Periods,
	})
}
