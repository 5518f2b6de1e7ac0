// Package repository defines the persistence contract the engines depend
// on. The engines hold no cross-call state: every analysis re-reads from
// the store through this interface.
package repository

import (
	"context"

	"github.com/rxforecaster/backend-go/internal/domain"
)

// DrugCover pairs a drug with its weeks-of-stock cover, for the
// low-stock query.
type DrugCover struct {
	domain.Drug
	WeeksRemaining float64 `json:"weeks_remaining" db:"weeks_remaining"`
}

// Store is the persistence contract for the drug catalog, the sales time
// series, and the append-only forecast/anomaly logs. Writes to a single
// item are serialized; reads rely on the storage engine's own snapshot
// guarantees.
type Store interface {
	// GetItem returns a drug by name, or domain.ErrItemNotFound.
	GetItem(ctx context.Context, name string) (domain.Drug, error)

	// ListItems returns all drug names.
	ListItems(ctx context.Context) ([]string, error)

	// ListDrugs returns the full catalog, optionally filtered by department.
	ListDrugs(ctx context.Context, department string) ([]domain.Drug, error)

	// Departments lists the distinct departments in the catalog.
	Departments(ctx context.Context) ([]string, error)

	// GetSeries returns the item's daily sales over the trailing window,
	// ordered by date with same-date observations summed. It fails with
	// domain.ErrItemNotFound when the drug does not exist and returns an
	// empty slice when it has no observations.
	GetSeries(ctx context.Context, name string, windowDays int) ([]domain.SalesPoint, error)

	// LowStock returns drugs whose stock covers at most the given number
	// of weeks of average sales, most urgent first.
	LowStock(ctx context.Context, weeksThreshold float64) ([]DrugCover, error)

	// UpdateStock sets a drug's current stock (last-writer-wins).
	UpdateStock(ctx context.Context, name string, newStock int) error

	// UpsertDrug creates or replaces a catalog entry.
	UpsertDrug(ctx context.Context, drug domain.Drug) error

	// InsertSales appends raw sales observations.
	InsertSales(ctx context.Context, obs []domain.SalesObservation) error

	// RecordAnomaly appends one anomaly log row.
	RecordAnomaly(ctx context.Context, rec domain.AnomalyRecord) error

	// SaveForecast appends persisted forecast rows.
	SaveForecast(ctx context.Context, rows []domain.ForecastRow) error
}
