package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rxforecaster/backend-go/internal/api/handlers"
	"github.com/rxforecaster/backend-go/internal/api/middleware"
	"github.com/rxforecaster/backend-go/internal/service"
)

type Services struct {
	Inventory *service.InventoryService
	Forecasts *service.ForecastService
	Anomalies *service.AnomalyService
	Reports   *service.ReportService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Archive-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalized, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalized) > 0 {
			corsConfig.AllowOrigins = normalized
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "rxforecaster"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Inventory != nil {
			inventoryHandler := handlers.NewInventoryHandler(services.Inventory)
			apiGroup.GET("/drugs", inventoryHandler.ListDrugs)
			apiGroup.GET("/drugs/:name", inventoryHandler.GetDrug)
			apiGroup.GET("/departments", inventoryHandler.Departments)
			apiGroup.GET("/low_stock", inventoryHandler.LowStock)
			apiGroup.POST("/update_stock", inventoryHandler.UpdateStock)
			apiGroup.POST("/sales", inventoryHandler.RecordSales)
		}

		if services.Forecasts != nil {
			forecastHandler := handlers.NewForecastHandler(services.Forecasts)
			apiGroup.GET("/forecast/:name", forecastHandler.ForecastDrug)
			apiGroup.POST("/bulk_forecast", forecastHandler.BulkForecast)
		}

		if services.Anomalies != nil {
			anomalyHandler := handlers.NewAnomalyHandler(services.Anomalies)
			apiGroup.GET("/anomalies/:name", anomalyHandler.DetectAnomalies)
			apiGroup.POST("/bulk_anomalies", anomalyHandler.BulkDetect)
		}

		if services.Reports != nil {
			reportHandler := handlers.NewReportHandler(services.Reports)
			apiGroup.GET("/reorder_report", reportHandler.ReorderReport)
			apiGroup.GET("/reorder_report/archives", reportHandler.ListArchives)
			apiGroup.GET("/reorder_report/archives/:name", reportHandler.DownloadArchive)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
