package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rxforecaster/backend-go/internal/domain"
)

// respondError maps domain errors onto HTTP statuses: missing items are
// 404, series too short to analyze are 422, everything else is 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		status = http.StatusNotFound
	case domain.IsInsufficientData(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAllModelsFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
