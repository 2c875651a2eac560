package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ramonbnuezjr/stock-tracker-agent/internal/database"
	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

type Repository struct {
	db     *database.DB
	logger *logrus.Logger
}

func NewRepository(db *database.DB, logger *logrus.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// InitSchema creates the additive-only schema. Safe to run on every start.
func (r *Repository) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS price_history (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			price NUMERIC(20,8) NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USD',
			timestamp TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_symbol_timestamp
			ON price_history (symbol, timestamp DESC)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			change_percent NUMERIC(10,6) NOT NULL,
			change_amount NUMERIC(20,8) NOT NULL,
			previous_price NUMERIC(20,8) NOT NULL,
			current_price NUMERIC(20,8) NOT NULL,
			explanation TEXT,
			timestamp TIMESTAMPTZ NOT NULL,
			notified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS execution_log (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			symbols_checked TEXT,
			alerts_triggered INT NOT NULL DEFAULT 0,
			notifications_sent INT NOT NULL DEFAULT 0,
			success BOOLEAN NOT NULL DEFAULT TRUE,
			error_message TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	r.logger.Info("Storage schema initialized")
	return nil
}

// SavePrice appends a price observation and returns its generated id.
// History is append-only; prior rows are never updated.
func (r *Repository) SavePrice(ctx context.Context, point models.PricePoint) (int64, error) {
	query := `
        INSERT INTO price_history (symbol, price, currency, timestamp)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		point.Symbol,
		database.Decimal{Decimal: point.Price},
		point.Currency,
		point.Timestamp,
	).Scan(&id)
	if err != nil {
		r.logger.WithError(err).WithField("symbol", point.Symbol).Error("Failed to save price")
		return 0, fmt.Errorf("failed to save price for %s: %w", point.Symbol, err)
	}

	return id, nil
}

// LatestPrice returns the most recent observation for a symbol, or nil
// when no history exists.
func (r *Repository) LatestPrice(ctx context.Context, symbol string) (*models.PricePoint, error) {
	return r.priceAtOffset(ctx, symbol, 0)
}

// PreviousPrice returns the second most recent observation, or nil when
// fewer than two rows exist.
func (r *Repository) PreviousPrice(ctx context.Context, symbol string) (*models.PricePoint, error) {
	return r.priceAtOffset(ctx, symbol, 1)
}

func (r *Repository) priceAtOffset(ctx context.Context, symbol string, offset int) (*models.PricePoint, error) {
	query := `
        SELECT id, symbol, price, currency, timestamp, created_at
        FROM price_history
        WHERE symbol = $1
        ORDER BY timestamp DESC
        LIMIT 1 OFFSET $2
    `

	var (
		point models.PricePoint
		price database.Decimal
	)
	err := r.db.QueryRowContext(ctx, query, strings.ToUpper(symbol), offset).Scan(
		&point.ID, &point.Symbol, &price, &point.Currency, &point.Timestamp, &point.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get price for %s: %w", symbol, err)
	}

	point.Price = price.Decimal
	return &point, nil
}

// PriceHistory returns up to limit observations for a symbol, most
// recent first.
func (r *Repository) PriceHistory(ctx context.Context, symbol string, limit int) ([]models.PricePoint, error) {
	query := `
        SELECT id, symbol, price, currency, timestamp, created_at
        FROM price_history
        WHERE symbol = $1
        ORDER BY timestamp DESC
        LIMIT $2
    `

	rows, err := r.db.QueryContext(ctx, query, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history for %s: %w", symbol, err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var (
			point models.PricePoint
			price database.Decimal
		)
		if err := rows.Scan(&point.ID, &point.Symbol, &price, &point.Currency, &point.Timestamp, &point.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		point.Price = price.Decimal
		points = append(points, point)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price history for %s: %w", symbol, err)
	}

	return points, nil
}

// SaveAlert persists a delivered (or to-be-delivered) alert record.
func (r *Repository) SaveAlert(ctx context.Context, alert models.Alert, notified bool) (int64, error) {
	query := `
        INSERT INTO alerts (symbol, change_percent, change_amount, previous_price, current_price, explanation, timestamp, notified)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		alert.Symbol,
		database.Decimal{Decimal: alert.ChangePercent},
		database.Decimal{Decimal: alert.ChangeAmount},
		database.Decimal{Decimal: alert.PreviousPrice},
		database.Decimal{Decimal: alert.CurrentPrice},
		alert.Explanation,
		alert.Timestamp,
		notified,
	).Scan(&id)
	if err != nil {
		r.logger.WithError(err).WithField("symbol", alert.Symbol).Error("Failed to save alert")
		return 0, fmt.Errorf("failed to save alert for %s: %w", alert.Symbol, err)
	}

	return id, nil
}

// StartExecution records the beginning of a run and returns the row id.
func (r *Repository) StartExecution(ctx context.Context, runID string, symbols []string) (int64, error) {
	query := `
        INSERT INTO execution_log (run_id, started_at, symbols_checked)
        VALUES ($1, $2, $3)
        RETURNING id
    `

	var id int64
	err := r.db.QueryRowContext(ctx, query, runID, time.Now().UTC(), strings.Join(symbols, ",")).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to log execution start: %w", err)
	}

	return id, nil
}

// CompleteExecution closes out a run started with StartExecution.
func (r *Repository) CompleteExecution(ctx context.Context, id int64, alertsTriggered, notificationsSent int, success bool, errorMessage string) error {
	query := `
        UPDATE execution_log
        SET completed_at = $1,
            alerts_triggered = $2,
            notifications_sent = $3,
            success = $4,
            error_message = NULLIF($5, '')
        WHERE id = $6
    `

	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), alertsTriggered, notificationsSent, success, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to log execution completion: %w", err)
	}

	return nil
}
