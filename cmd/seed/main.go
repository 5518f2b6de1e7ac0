package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/rxforecaster/backend-go/internal/repository/sqldb"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func openDB(c *cli.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Initialize and seed the pharmacy database",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create the database schema",
				Flags: []cli.Flag{
					newDBURLFlag(),
				},
				Action: runInit,
			},
			{
				Name:  "load-drugs",
				Usage: "Load the drug catalog from a CSV file",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "file",
						Usage:   "Drug catalog CSV path",
						Value:   "./data/seeds/drugs.csv",
						EnvVars: []string{"DRUG_CATALOG_FILE"},
					},
				},
				Action: runLoadDrugs,
			},
			{
				Name:  "generate-history",
				Usage: "Generate synthetic historical sales for every drug in the catalog",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.IntFlag{
						Name:  "weeks",
						Usage: "Number of trailing weeks to generate",
						Value: 52,
					},
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "Random seed (same seed reproduces the same history)",
						Value: 42,
					},
				},
				Action: runGenerateHistory,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runInit(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	for _, ddl := range sqldb.SchemaDDL("postgres") {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	log.Println("Schema initialized")
	return nil
}

// catalogColumns is the expected CSV header for load-drugs.
var catalogColumns = []string{
	"drug_name", "current_stock", "weekly_sales", "lead_time_days",
	"department", "unit_cost", "therapeutic_class", "min_stock_level", "max_stock_level",
}

func runLoadDrugs(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read catalog header: %w", err)
	}
	if len(header) != len(catalogColumns) {
		return fmt.Errorf("unexpected catalog header: got %d columns, want %d", len(header), len(catalogColumns))
	}

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO drugs (
			drug_name, current_stock, weekly_sales, lead_time_days,
			department, unit_cost, therapeutic_class, min_stock_level, max_stock_level
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (drug_name) DO UPDATE SET
			current_stock = EXCLUDED.current_stock,
			weekly_sales = EXCLUDED.weekly_sales,
			lead_time_days = EXCLUDED.lead_time_days,
			department = EXCLUDED.department,
			unit_cost = EXCLUDED.unit_cost,
			therapeutic_class = EXCLUDED.therapeutic_class,
			min_stock_level = EXCLUDED.min_stock_level,
			max_stock_level = EXCLUDED.max_stock_level,
			updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	loaded := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read catalog row: %w", err)
		}

		currentStock, err := strconv.Atoi(record[1])
		if err != nil {
			return fmt.Errorf("invalid current_stock for %s: %w", record[0], err)
		}
		weeklySales, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return fmt.Errorf("invalid weekly_sales for %s: %w", record[0], err)
		}
		leadTime, err := strconv.Atoi(record[3])
		if err != nil {
			return fmt.Errorf("invalid lead_time_days for %s: %w", record[0], err)
		}
		unitCost, err := strconv.ParseFloat(record[5], 64)
		if err != nil {
			return fmt.Errorf("invalid unit_cost for %s: %w", record[0], err)
		}
		minStock, err := strconv.Atoi(record[7])
		if err != nil {
			return fmt.Errorf("invalid min_stock_level for %s: %w", record[0], err)
		}
		maxStock, err := strconv.Atoi(record[8])
		if err != nil {
			return fmt.Errorf("invalid max_stock_level for %s: %w", record[0], err)
		}

		if _, err := stmt.ExecContext(ctx,
			record[0], currentStock, weeklySales, leadTime,
			record[4], unitCost, record[6], minStock, maxStock); err != nil {
			return fmt.Errorf("failed to insert %s: %w", record[0], err)
		}
		loaded++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Loaded %d drugs", loaded)
	return nil
}

type catalogRow struct {
	name       string
	weekly     float64
	department string
}

func runGenerateHistory(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	rows, err := db.QueryContext(ctx, `SELECT drug_name, weekly_sales, department FROM drugs ORDER BY drug_name`)
	if err != nil {
		return fmt.Errorf("failed to list drugs: %w", err)
	}
	defer rows.Close()

	var drugs []catalogRow
	for rows.Next() {
		var d catalogRow
		if err := rows.Scan(&d.name, &d.weekly, &d.department); err != nil {
			return fmt.Errorf("failed to scan drug: %w", err)
		}
		drugs = append(drugs, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read drugs: %w", err)
	}

	weeks := c.Int("weeks")
	rng := rand.New(rand.NewSource(c.Int64("seed")))
	baseDate := time.Now().UTC().AddDate(0, 0, -weeks*7)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO historical_sales (drug_name, date, sales_quantity, department)
		VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, drug := range drugs {
		baseDaily := drug.weekly / 7
		for day := 0; day < weeks*7; day++ {
			week := float64(day) / 7

			// Annual and monthly sinusoidal seasonality on top of the
			// catalog's average weekly velocity.
			seasonal := 1 + 0.2*math.Sin(2*math.Pi*week/52)
			monthly := 1 + 0.1*math.Sin(2*math.Pi*week/4)
			noise := 1 + 0.2*rng.NormFloat64()

			// Department event windows produce the sustained spikes the
			// anomaly detectors should find.
			spike := 1.0
			if drug.department == "ICU" && week >= 20 && week <= 25 {
				spike = 1.5 + rng.Float64()
			} else if drug.department == "Oncology" && week >= 30 && week <= 35 {
				spike = 1.3 + 0.7*rng.Float64()
			}

			qty := int(baseDaily * seasonal * monthly * noise * spike)
			if qty < 0 {
				qty = 0
			}

			date := baseDate.AddDate(0, 0, day).Format("2006-01-02")
			if _, err := stmt.ExecContext(ctx, drug.name, date, qty, drug.department); err != nil {
				return fmt.Errorf("failed to insert history for %s: %w", drug.name, err)
			}
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Generated %d sales records for %d drugs", inserted, len(drugs))
	return nil
}
