package sqldb

import (
	"context"
	"fmt"
	"strings"
)

// Table layouts. The serial placeholder is substituted per driver; the
// date columns bind as YYYY-MM-DD text, which both backends order
// correctly.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS drugs (
		id {{serial}},
		drug_name TEXT NOT NULL UNIQUE,
		current_stock INTEGER NOT NULL DEFAULT 0,
		weekly_sales REAL NOT NULL DEFAULT 0,
		lead_time_days INTEGER NOT NULL DEFAULT 7,
		department TEXT NOT NULL DEFAULT '',
		unit_cost REAL NOT NULL DEFAULT 0,
		therapeutic_class TEXT NOT NULL DEFAULT '',
		min_stock_level INTEGER NOT NULL DEFAULT 0,
		max_stock_level INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS historical_sales (
		id {{serial}},
		drug_name TEXT NOT NULL,
		date TEXT NOT NULL,
		sales_quantity INTEGER NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_drug_date ON historical_sales (drug_name, date)`,
	`CREATE TABLE IF NOT EXISTS forecasts (
		id {{serial}},
		drug_name TEXT NOT NULL,
		forecast_date TEXT NOT NULL,
		predicted_demand REAL NOT NULL,
		model_used TEXT NOT NULL,
		confidence_interval_lower REAL NOT NULL DEFAULT 0,
		confidence_interval_upper REAL NOT NULL DEFAULT 0,
		rmse REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS anomalies (
		id {{serial}},
		drug_name TEXT NOT NULL,
		detection_date TEXT NOT NULL,
		anomaly_type TEXT NOT NULL,
		severity REAL NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// SchemaDDL returns the schema statements rendered for the given driver.
// The seed CLI uses it against a plain database/sql handle.
func SchemaDDL(driver string) []string {
	serial := "BIGSERIAL PRIMARY KEY"
	if driver == "sqlite3" {
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	out := make([]string, 0, len(schemaStatements))
	for _, stmt := range schemaStatements {
		out = append(out, strings.ReplaceAll(stmt, "{{serial}}", serial))
	}
	return out
}

// InitSchema creates the tables when they do not exist yet. It is safe
// to call on every startup.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, ddl := range SchemaDDL(db.driver) {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("could not apply schema: %w", err)
		}
	}
	return nil
}
