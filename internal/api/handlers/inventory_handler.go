package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/service"
)

type InventoryHandler struct {
	service *service.InventoryService
}

func NewInventoryHandler(service *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

func (h *InventoryHandler) ListDrugs(c *gin.Context) {
	department := strings.TrimSpace(c.Query("department"))

	drugs, err := h.service.ListDrugs(c.Request.Context(), department)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drugs": drugs, "count": len(drugs)})
}

func (h *InventoryHandler) GetDrug(c *gin.Context) {
	drug, err := h.service.GetDrug(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"drug":            drug,
		"weeks_remaining": drug.WeeksRemaining(),
	})
}

func (h *InventoryHandler) Departments(c *gin.Context) {
	departments, err := h.service.Departments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departments": departments})
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	weeks := 2.0
	if raw := c.Query("weeks"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "weeks must be a positive number"})
			return
		}
		weeks = parsed
	}

	rows, err := h.service.LowStock(c.Request.Context(), weeks)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"low_stock_drugs": rows, "count": len(rows), "weeks_threshold": weeks})
}

type updateStockRequest struct {
	DrugName string `json:"drug_name" binding:"required"`
	NewStock *int   `json:"new_stock" binding:"required"`
}

func (h *InventoryHandler) UpdateStock(c *gin.Context) {
	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "drug_name and new_stock are required"})
		return
	}
	if *req.NewStock < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new_stock must not be negative"})
		return
	}

	if err := h.service.UpdateStock(c.Request.Context(), req.DrugName, *req.NewStock); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "stock updated",
		"drug_name": req.DrugName,
		"new_stock": *req.NewStock,
	})
}

type recordSalesRequest struct {
	Sales []domain.SalesObservation `json:"sales" binding:"required"`
}

func (h *InventoryHandler) RecordSales(c *gin.Context) {
	var req recordSalesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sales is required"})
		return
	}
	if len(req.Sales) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sales must not be empty"})
		return
	}
	for i, obs := range req.Sales {
		if strings.TrimSpace(obs.Drug) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("sales[%d]: drug_name is required", i)})
			return
		}
		if obs.Date.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("sales[%d]: date is required", i)})
			return
		}
		if obs.Quantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("sales[%d]: sales_quantity must not be negative", i)})
			return
		}
	}

	if err := h.service.RecordSales(c.Request.Context(), req.Sales); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "sales recorded",
		"recorded": len(req.Sales),
	})
}
