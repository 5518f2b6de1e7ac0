package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/repository"
	"github.com/rxforecaster/backend-go/internal/service"
)

type fakeStore struct {
	drugs map[string]domain.Drug
	sales []domain.SalesObservation
}

var _ repository.Store = (*fakeStore)(nil)

func (f *fakeStore) GetItem(_ context.Context, name string) (domain.Drug, error) {
	drug, ok := f.drugs[name]
	if !ok {
		return domain.Drug{}, domain.ErrItemNotFound
	}
	return drug, nil
}

func (f *fakeStore) ListItems(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(f.drugs))
	for name := range f.drugs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeStore) ListDrugs(_ context.Context, department string) ([]domain.Drug, error) {
	var drugs []domain.Drug
	for _, d := range f.drugs {
		if department == "" || d.Department == department {
			drugs = append(drugs, d)
		}
	}
	sort.Slice(drugs, func(i, j int) bool { return drugs[i].Name < drugs[j].Name })
	return drugs, nil
}

func (f *fakeStore) Departments(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	for _, d := range f.drugs {
		if d.Department != "" {
			seen[d.Department] = true
		}
	}
	departments := make([]string, 0, len(seen))
	for dep := range seen {
		departments = append(departments, dep)
	}
	sort.Strings(departments)
	return departments, nil
}

func (f *fakeStore) GetSeries(_ context.Context, name string, _ int) ([]domain.SalesPoint, error) {
	if _, ok := f.drugs[name]; !ok {
		return nil, domain.ErrItemNotFound
	}
	return nil, nil
}

func (f *fakeStore) LowStock(_ context.Context, weeksThreshold float64) ([]repository.DrugCover, error) {
	var rows []repository.DrugCover
	for _, d := range f.drugs {
		if cover := d.WeeksRemaining(); cover <= weeksThreshold {
			rows = append(rows, repository.DrugCover{Drug: d, WeeksRemaining: cover})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].WeeksRemaining < rows[j].WeeksRemaining })
	return rows, nil
}

func (f *fakeStore) UpdateStock(_ context.Context, name string, newStock int) error {
	drug, ok := f.drugs[name]
	if !ok {
		return domain.ErrItemNotFound
	}
	drug.CurrentStock = newStock
	f.drugs[name] = drug
	return nil
}

func (f *fakeStore) UpsertDrug(_ context.Context, drug domain.Drug) error {
	f.drugs[drug.Name] = drug
	return nil
}

func (f *fakeStore) InsertSales(_ context.Context, obs []domain.SalesObservation) error {
	f.sales = append(f.sales, obs...)
	return nil
}
func (f *fakeStore) RecordAnomaly(_ context.Context, _ domain.AnomalyRecord) error { return nil }
func (f *fakeStore) SaveForecast(_ context.Context, _ []domain.ForecastRow) error  { return nil }

func newTestRouter(store repository.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(&Services{Inventory: service.NewInventoryService(store, nil)}, nil)
}

func catalogStore() *fakeStore {
	return &fakeStore{drugs: map[string]domain.Drug{
		"Aspirin":  {Name: "Aspirin", Department: "Pharmacy", CurrentStock: 140, WeeklySales: 70},
		"Morphine": {Name: "Morphine", Department: "ICU", CurrentStock: 700, WeeklySales: 70},
	}}
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	w := doRequest(newTestRouter(catalogStore()), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestListDrugs(t *testing.T) {
	w := doRequest(newTestRouter(catalogStore()), http.MethodGet, "/api/v1/drugs", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Drugs []domain.Drug `json:"drugs"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "Aspirin", resp.Drugs[0].Name)
}

func TestListDrugsByDepartment(t *testing.T) {
	w := doRequest(newTestRouter(catalogStore()), http.MethodGet, "/api/v1/drugs?department=ICU", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Drugs []domain.Drug `json:"drugs"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Morphine", resp.Drugs[0].Name)
}

func TestGetDrugIncludesCover(t *testing.T) {
	w := doRequest(newTestRouter(catalogStore()), http.MethodGet, "/api/v1/drugs/Aspirin", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Drug           domain.Drug `json:"drug"`
		WeeksRemaining float64     `json:"weeks_remaining"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Aspirin", resp.Drug.Name)
	assert.InDelta(t, 2.0, resp.WeeksRemaining, 1e-9)
}

func TestGetDrugNotFound(t *testing.T) {
	w := doRequest(newTestRouter(catalogStore()), http.MethodGet, "/api/v1/drugs/Unobtainium", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLowStockWeeksParam(t *testing.T) {
	router := newTestRouter(catalogStore())

	w := doRequest(router, http.MethodGet, "/api/v1/low_stock?weeks=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		LowStock []repository.DrugCover `json:"low_stock_drugs"`
		Count    int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Aspirin", resp.LowStock[0].Name)

	w = doRequest(router, http.MethodGet, "/api/v1/low_stock?weeks=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStock(t *testing.T) {
	store := catalogStore()
	router := newTestRouter(store)

	w := doRequest(router, http.MethodPost, "/api/v1/update_stock",
		`{"drug_name": "Aspirin", "new_stock": 42}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 42, store.drugs["Aspirin"].CurrentStock)
}

func TestUpdateStockValidation(t *testing.T) {
	router := newTestRouter(catalogStore())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing drug name", `{"new_stock": 5}`, http.StatusBadRequest},
		{"missing stock", `{"drug_name": "Aspirin"}`, http.StatusBadRequest},
		{"negative stock", `{"drug_name": "Aspirin", "new_stock": -1}`, http.StatusBadRequest},
		{"unknown drug", `{"drug_name": "Unobtainium", "new_stock": 5}`, http.StatusNotFound},
		{"zero stock allowed", `{"drug_name": "Aspirin", "new_stock": 0}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/v1/update_stock", tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRecordSales(t *testing.T) {
	store := catalogStore()
	router := newTestRouter(store)

	w := doRequest(router, http.MethodPost, "/api/v1/sales",
		`{"sales": [
			{"drug_name": "Aspirin", "date": "2025-06-01", "sales_quantity": 12, "department": "Pharmacy"},
			{"drug_name": "Morphine", "date": "2025-06-01", "sales_quantity": 4, "department": "ICU"}
		]}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Recorded int `json:"recorded"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Recorded)

	require.Len(t, store.sales, 2)
	assert.Equal(t, "Aspirin", store.sales[0].Drug)
	assert.Equal(t, 12, store.sales[0].Quantity)
	assert.Equal(t, "2025-06-01", store.sales[0].Date.String())
}

func TestRecordSalesValidation(t *testing.T) {
	router := newTestRouter(catalogStore())

	tests := []struct {
		name string
		body string
	}{
		{"missing sales", `{}`},
		{"empty sales", `{"sales": []}`},
		{"missing drug name", `{"sales": [{"date": "2025-06-01", "sales_quantity": 3}]}`},
		{"missing date", `{"sales": [{"drug_name": "Aspirin", "sales_quantity": 3}]}`},
		{"negative quantity", `{"sales": [{"drug_name": "Aspirin", "date": "2025-06-01", "sales_quantity": -3}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/v1/sales", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestDepartments(t *testing.T) {
	w := doRequest(newTestRouter(catalogStore()), http.MethodGet, "/api/v1/departments", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Departments []string `json:"departments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"ICU", "Pharmacy"}, resp.Departments)
}
