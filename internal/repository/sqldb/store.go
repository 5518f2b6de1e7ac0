package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/repository"
)

// Store implements repository.Store on a DB handle.
type Store struct {
	db *DB
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

const drugColumns = `id, drug_name, current_stock, weekly_sales, lead_time_days,
	department, unit_cost, therapeutic_class, min_stock_level, max_stock_level,
	created_at, updated_at`

func (s *Store) GetItem(ctx context.Context, name string) (domain.Drug, error) {
	var drug domain.Drug
	query := s.db.Rebind(`SELECT ` + drugColumns + ` FROM drugs WHERE drug_name = ?`)
	err := s.db.GetContext(ctx, &drug, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Drug{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.Drug{}, domain.StoreError("get item", err)
	}
	return drug, nil
}

func (s *Store) ListItems(ctx context.Context) ([]string, error) {
	var names []string
	query := `SELECT drug_name FROM drugs ORDER BY drug_name`
	if err := s.db.SelectContext(ctx, &names, query); err != nil {
		return nil, domain.StoreError("list items", err)
	}
	return names, nil
}

func (s *Store) ListDrugs(ctx context.Context, department string) ([]domain.Drug, error) {
	var (
		drugs []domain.Drug
		err   error
	)
	if department != "" {
		query := s.db.Rebind(`SELECT ` + drugColumns + ` FROM drugs WHERE department = ? ORDER BY drug_name`)
		err = s.db.SelectContext(ctx, &drugs, query, department)
	} else {
		query := `SELECT ` + drugColumns + ` FROM drugs ORDER BY drug_name`
		err = s.db.SelectContext(ctx, &drugs, query)
	}
	if err != nil {
		return nil, domain.StoreError("list drugs", err)
	}
	return drugs, nil
}

func (s *Store) Departments(ctx context.Context) ([]string, error) {
	var departments []string
	query := `SELECT DISTINCT department FROM drugs WHERE department <> '' ORDER BY department`
	if err := s.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, domain.StoreError("departments", err)
	}
	return departments, nil
}

func (s *Store) GetSeries(ctx context.Context, name string, windowDays int) ([]domain.SalesPoint, error) {
	if _, err := s.GetItem(ctx, name); err != nil {
		return nil, err
	}

	cutoff := domain.Today().AddDays(-windowDays)
	query := s.db.Rebind(`
		SELECT date, SUM(sales_quantity) AS quantity
		FROM historical_sales
		WHERE drug_name = ? AND date >= ?
		GROUP BY date
		ORDER BY date`)

	var points []domain.SalesPoint
	if err := s.db.SelectContext(ctx, &points, query, name, cutoff); err != nil {
		return nil, domain.StoreError("get series", err)
	}
	return points, nil
}

func (s *Store) LowStock(ctx context.Context, weeksThreshold float64) ([]repository.DrugCover, error) {
	// weekly_sales floors at 1 so zero-velocity items report finite cover.
	query := s.db.Rebind(`
		SELECT * FROM (
			SELECT ` + drugColumns + `,
				current_stock * 1.0 / (CASE WHEN weekly_sales < 1 THEN 1 ELSE weekly_sales END) AS weeks_remaining
			FROM drugs
		) t
		WHERE weeks_remaining <= ?
		ORDER BY weeks_remaining`)

	var rows []repository.DrugCover
	if err := s.db.SelectContext(ctx, &rows, query, weeksThreshold); err != nil {
		return nil, domain.StoreError("low stock", err)
	}
	return rows, nil
}

func (s *Store) UpdateStock(ctx context.Context, name string, newStock int) error {
	query := s.db.Rebind(`UPDATE drugs SET current_stock = ?, updated_at = CURRENT_TIMESTAMP WHERE drug_name = ?`)
	res, err := s.db.ExecContext(ctx, query, newStock, name)
	if err != nil {
		return domain.StoreError("update stock", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.StoreError("update stock", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (s *Store) UpsertDrug(ctx context.Context, drug domain.Drug) error {
	query := s.db.Rebind(`
		INSERT INTO drugs (
			drug_name, current_stock, weekly_sales, lead_time_days,
			department, unit_cost, therapeutic_class, min_stock_level, max_stock_level
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (drug_name) DO UPDATE SET
			current_stock = EXCLUDED.current_stock,
			weekly_sales = EXCLUDED.weekly_sales,
			lead_time_days = EXCLUDED.lead_time_days,
			department = EXCLUDED.department,
			unit_cost = EXCLUDED.unit_cost,
			therapeutic_class = EXCLUDED.therapeutic_class,
			min_stock_level = EXCLUDED.min_stock_level,
			max_stock_level = EXCLUDED.max_stock_level,
			updated_at = CURRENT_TIMESTAMP`)

	_, err := s.db.ExecContext(ctx, query,
		drug.Name, drug.CurrentStock, drug.WeeklySales, drug.LeadTimeDays,
		drug.Department, drug.UnitCost, drug.TherapeuticClass,
		drug.MinStockLevel, drug.MaxStockLevel)
	if err != nil {
		return domain.StoreError("upsert drug", err)
	}
	return nil
}

func (s *Store) InsertSales(ctx context.Context, obs []domain.SalesObservation) error {
	if len(obs) == 0 {
		return nil
	}
	query := s.db.Rebind(`
		INSERT INTO historical_sales (drug_name, date, sales_quantity, department)
		VALUES (?, ?, ?, ?)`)

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, o := range obs {
			if _, err := tx.ExecContext(ctx, query, o.Drug, o.Date, o.Quantity, o.Department); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.StoreError("insert sales", err)
	}
	return nil
}

func (s *Store) RecordAnomaly(ctx context.Context, rec domain.AnomalyRecord) error {
	query := s.db.Rebind(`
		INSERT INTO anomalies (drug_name, detection_date, anomaly_type, severity, description)
		VALUES (?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, rec.Drug, rec.Date, rec.Method, rec.Severity, rec.Description)
	if err != nil {
		return domain.StoreError("record anomaly", err)
	}
	return nil
}

func (s *Store) SaveForecast(ctx context.Context, rows []domain.ForecastRow) error {
	if len(rows) == 0 {
		return nil
	}
	query := s.db.Rebind(`
		INSERT INTO forecasts (
			drug_name, forecast_date, predicted_demand, model_used,
			confidence_interval_lower, confidence_interval_upper, rmse
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, query,
				row.Drug, row.Date, row.Predicted, row.Model,
				row.CILower, row.CIUpper, row.RMSE); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.StoreError("save forecast", err)
	}
	return nil
}
