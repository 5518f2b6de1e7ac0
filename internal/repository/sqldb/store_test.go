package sqldb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxforecaster/backend-go/internal/config"
	"github.com/rxforecaster/backend-go/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open(config.DatabaseConfig{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "rxforecaster_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.InitSchema(context.Background()))
	return NewStore(db)
}

func testDrug(name, department string) domain.Drug {
	return domain.Drug{
		Name:             name,
		CurrentStock:     500,
		WeeklySales:      70,
		LeadTimeDays:     5,
		Department:       department,
		UnitCost:         0.10,
		TherapeuticClass: "Analgesic",
		MinStockLevel:    100,
		MaxStockLevel:    1000,
	}
}

func TestUpsertDrugRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertDrug(ctx, testDrug("Aspirin", "Pharmacy")))

	got, err := store.GetItem(ctx, "Aspirin")
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", got.Name)
	assert.Equal(t, 500, got.CurrentStock)
	assert.InDelta(t, 70, got.WeeklySales, 1e-9)
	assert.Equal(t, 5, got.LeadTimeDays)
	assert.Equal(t, "Pharmacy", got.Department)
	assert.InDelta(t, 0.10, got.UnitCost, 1e-9)
	assert.Equal(t, "Analgesic", got.TherapeuticClass)
}

func TestUpsertDrugUpdatesExistingRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertDrug(ctx, testDrug("Aspirin", "Pharmacy")))

	updated := testDrug("Aspirin", "ICU")
	updated.CurrentStock = 250
	require.NoError(t, store.UpsertDrug(ctx, updated))

	got, err := store.GetItem(ctx, "Aspirin")
	require.NoError(t, err)
	assert.Equal(t, 250, got.CurrentStock)
	assert.Equal(t, "ICU", got.Department)

	names, err := store.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aspirin"}, names)
}

func TestGetItemNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetItem(context.Background(), "Unobtainium")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestUpdateStock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertDrug(ctx, testDrug("Aspirin", "Pharmacy")))
	require.NoError(t, store.UpdateStock(ctx, "Aspirin", 42))

	got, err := store.GetItem(ctx, "Aspirin")
	require.NoError(t, err)
	assert.Equal(t, 42, got.CurrentStock)
}

func TestUpdateStockUnknownDrug(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateStock(context.Background(), "Unobtainium", 10)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestInsertSalesAndGetSeries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	today := domain.Today()

	require.NoError(t, store.UpsertDrug(ctx, testDrug("Aspirin", "Pharmacy")))
	require.NoError(t, store.InsertSales(ctx, []domain.SalesObservation{
		// Two observations on the same date are summed by GetSeries.
		{Drug: "Aspirin", Date: today.AddDays(-2), Quantity: 7, Department: "Pharmacy"},
		{Drug: "Aspirin", Date: today.AddDays(-2), Quantity: 3, Department: "ICU"},
		{Drug: "Aspirin", Date: today.AddDays(-1), Quantity: 5, Department: "Pharmacy"},
		// Outside a 90-day window.
		{Drug: "Aspirin", Date: today.AddDays(-200), Quantity: 99, Department: "Pharmacy"},
	}))

	points, err := store.GetSeries(ctx, "Aspirin", 90)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.True(t, points[0].Date.Equal(today.AddDays(-2)))
	assert.InDelta(t, 10, points[0].Quantity, 1e-9)
	assert.True(t, points[1].Date.Equal(today.AddDays(-1)))
	assert.InDelta(t, 5, points[1].Quantity, 1e-9)
}

func TestGetSeriesUnknownDrug(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSeries(context.Background(), "Unobtainium", 90)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestLowStockOrderingAndFloor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	critical := testDrug("Critical", "ICU")
	critical.CurrentStock = 35
	critical.WeeklySales = 70 // 0.5 weeks

	low := testDrug("Low", "Pharmacy")
	low.CurrentStock = 105
	low.WeeklySales = 70 // 1.5 weeks

	healthy := testDrug("Healthy", "Pharmacy")
	healthy.CurrentStock = 700
	healthy.WeeklySales = 70 // 10 weeks

	// Zero velocity floors at one unit per week, so cover equals stock.
	dormant := testDrug("Dormant", "Storage")
	dormant.CurrentStock = 1
	dormant.WeeklySales = 0

	for _, d := range []domain.Drug{critical, low, healthy, dormant} {
		require.NoError(t, store.UpsertDrug(ctx, d))
	}

	rows, err := store.LowStock(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Critical", rows[0].Name)
	assert.InDelta(t, 0.5, rows[0].WeeksRemaining, 1e-9)
	assert.Equal(t, "Dormant", rows[1].Name)
	assert.InDelta(t, 1.0, rows[1].WeeksRemaining, 1e-9)
	assert.Equal(t, "Low", rows[2].Name)
	assert.InDelta(t, 1.5, rows[2].WeeksRemaining, 1e-9)
}

func TestListDrugsByDepartment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertDrug(ctx, testDrug("Aspirin", "Pharmacy")))
	require.NoError(t, store.UpsertDrug(ctx, testDrug("Morphine", "ICU")))
	require.NoError(t, store.UpsertDrug(ctx, testDrug("Ibuprofen", "Pharmacy")))

	all, err := store.ListDrugs(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pharmacy, err := store.ListDrugs(ctx, "Pharmacy")
	require.NoError(t, err)
	require.Len(t, pharmacy, 2)
	assert.Equal(t, "Aspirin", pharmacy[0].Name)
	assert.Equal(t, "Ibuprofen", pharmacy[1].Name)
}

func TestDepartmentsDistinctSorted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertDrug(ctx, testDrug("Aspirin", "Pharmacy")))
	require.NoError(t, store.UpsertDrug(ctx, testDrug("Morphine", "ICU")))
	require.NoError(t, store.UpsertDrug(ctx, testDrug("Ibuprofen", "Pharmacy")))
	require.NoError(t, store.UpsertDrug(ctx, testDrug("Mystery", "")))

	departments, err := store.Departments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ICU", "Pharmacy"}, departments)
}

func TestSaveForecastPersistsRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	today := domain.Today()

	require.NoError(t, store.SaveForecast(ctx, []domain.ForecastRow{
		{Drug: "Aspirin", Date: today.AddDays(1), Predicted: 12.5, Model: "seasonal", CILower: 10, CIUpper: 15, RMSE: 1.2},
		{Drug: "Aspirin", Date: today.AddDays(2), Predicted: 13.0, Model: "seasonal", CILower: 10, CIUpper: 16, RMSE: 1.2},
	}))

	var count int
	err := store.db.GetContext(ctx, &count,
		store.db.Rebind(`SELECT COUNT(*) FROM forecasts WHERE drug_name = ?`), "Aspirin")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecordAnomalyPersistsRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordAnomaly(ctx, domain.AnomalyRecord{
		Drug:        "Aspirin",
		Date:        domain.Today(),
		Method:      "summary",
		Severity:    7,
		Description: "sustained demand spikes detected (1)",
	}))

	var count int
	err := store.db.GetContext(ctx, &count,
		store.db.Rebind(`SELECT COUNT(*) FROM anomalies WHERE drug_name = ?`), "Aspirin")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
