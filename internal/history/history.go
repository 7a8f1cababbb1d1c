// Package history keeps a local SQLite copy of the user's booking
// history so past sessions stay visible offline and exports do not
// hammer the backend. The backend remains the source of truth; the
// cache is replaced wholesale on every successful sync.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gridee/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type Cache struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func Open(path string, logger *zerolog.Logger) (*Cache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to history cache: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("history cache opened")
	return &Cache{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            lot_id TEXT NOT NULL,
            spot_id TEXT,
            status TEXT NOT NULL,
            amount REAL NOT NULL DEFAULT 0,
            vehicle_number TEXT,
            check_in_time TEXT,
            check_out_time TEXT,
            created_at TEXT,
            synced_at DATETIME NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE TABLE IF NOT EXISTS transactions (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            status TEXT NOT NULL,
            description TEXT,
            amount REAL NOT NULL DEFAULT 0,
            timestamp TEXT,
            synced_at DATETIME NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Replace swaps the cached history for a user with a fresh snapshot.
// Runs in one transaction so readers never see a half-written sync.
func (c *Cache) Replace(ctx context.Context, userID string, bookings []models.Booking) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear stale history: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO bookings (
                id, user_id, lot_id, spot_id, status, amount,
                vehicle_number, check_in_time, check_out_time, created_at, synced_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, b := range bookings {
		if _, err := tx.ExecContext(ctx, query,
			b.ID, userID, b.LotID, b.SpotID, b.Status, b.Amount,
			b.VehicleNumber, b.CheckInTime, b.CheckOutTime, b.CreatedAt, now,
		); err != nil {
			return fmt.Errorf("failed to cache booking %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync: %w", err)
	}
	c.logger.Debug().Str("user_id", userID).Int("count", len(bookings)).Msg("history synced")
	return nil
}

// List returns the cached history for a user, newest first.
func (c *Cache) List(ctx context.Context, userID string) ([]models.Booking, error) {
	query := `SELECT id, lot_id, spot_id, status, amount,
                     vehicle_number, check_in_time, check_out_time, created_at
              FROM bookings WHERE user_id = ?
              ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached history: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b := models.Booking{UserID: userID}
		if err := rows.Scan(&b.ID, &b.LotID, &b.SpotID, &b.Status, &b.Amount,
			&b.VehicleNumber, &b.CheckInTime, &b.CheckOutTime, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ReplaceTransactions swaps the cached wallet ledger for a user.
func (c *Cache) ReplaceTransactions(ctx context.Context, userID string, txns []models.Transaction) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear stale ledger: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO transactions (id, user_id, status, description, amount, timestamp, synced_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, txn := range txns {
		if _, err := tx.ExecContext(ctx, query,
			txn.ID, userID, txn.Status, txn.Description, txn.Amount, txn.Timestamp, now,
		); err != nil {
			return fmt.Errorf("failed to cache transaction %s: %w", txn.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync: %w", err)
	}
	return nil
}

// Transactions returns the cached wallet ledger, newest first.
func (c *Cache) Transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	query := `SELECT id, status, description, amount, timestamp
              FROM transactions WHERE user_id = ?
              ORDER BY timestamp DESC`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached ledger: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		txn := models.Transaction{UserID: userID}
		if err := rows.Scan(&txn.ID, &txn.Status, &txn.Description, &txn.Amount, &txn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan cached transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// LastSyncedAt reports when the user's history was last refreshed,
// zero time when it never was.
func (c *Cache) LastSyncedAt(ctx context.Context, userID string) (time.Time, error) {
	var synced time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT synced_at FROM bookings WHERE user_id = ? ORDER BY synced_at DESC LIMIT 1`,
		userID).Scan(&synced)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync time: %w", err)
	}
	return synced, nil
}
