package predictions

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists transaction records in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed record store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the transactions table if it doesn't exist
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id                             BIGSERIAL PRIMARY KEY,
			distance_from_home             DOUBLE PRECISION NOT NULL,
			distance_from_last_transaction DOUBLE PRECISION NOT NULL,
			ratio_to_median_purchase_price DOUBLE PRECISION NOT NULL,
			repeat_retailer                BOOLEAN NOT NULL,
			used_chip                      BOOLEAN NOT NULL,
			used_pin_number                BOOLEAN NOT NULL,
			online_order                   BOOLEAN NOT NULL,
			is_fraud                       BOOLEAN NOT NULL,
			confidence_score               DOUBLE PRECISION NOT NULL,
			reasons                        TEXT NOT NULL DEFAULT '',
			created_at                     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			owner_id                       BIGINT NOT NULL REFERENCES users(id)
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_owner_id ON transactions(owner_id)
	`)
	return err
}

// Create inserts the record inside a request-scoped transaction. Reasons are
// stored as an ordered delimiter-joined string. On any failure the
// transaction is rolled back; no partial record is ever visible.
func (p *PostgresStore) Create(ctx context.Context, rec *TransactionRecord) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (
			distance_from_home, distance_from_last_transaction,
			ratio_to_median_purchase_price, repeat_retailer, used_chip,
			used_pin_number, online_order, is_fraud, confidence_score,
			reasons, created_at, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		rec.DistanceFromHome, rec.DistanceFromLastTransaction,
		rec.RatioToMedianPurchasePrice, rec.RepeatRetailer, rec.UsedChip,
		rec.UsedPinNumber, rec.OnlineOrder, rec.IsFraud, rec.ConfidenceScore,
		joinReasons(rec.Reasons), rec.CreatedAt, rec.OwnerID,
	).Scan(&rec.ID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (p *PostgresStore) ListByOwner(ctx context.Context, ownerID int64) ([]*TransactionRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, distance_from_home, distance_from_last_transaction,
			ratio_to_median_purchase_price, repeat_retailer, used_chip,
			used_pin_number, online_order, is_fraud, confidence_score,
			reasons, created_at, owner_id
		FROM transactions WHERE owner_id = $1 ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*TransactionRecord
	for rows.Next() {
		rec := &TransactionRecord{}
		var reasons string
		if err := rows.Scan(
			&rec.ID, &rec.DistanceFromHome, &rec.DistanceFromLastTransaction,
			&rec.RatioToMedianPurchasePrice, &rec.RepeatRetailer, &rec.UsedChip,
			&rec.UsedPinNumber, &rec.OnlineOrder, &rec.IsFraud, &rec.ConfidenceScore,
			&reasons, &rec.CreatedAt, &rec.OwnerID,
		); err != nil {
			return nil, err
		}
		rec.Reasons = splitReasons(reasons)
		out = append(out, rec)
	}
	return out, rows.Err()
}
