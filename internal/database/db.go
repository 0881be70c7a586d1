package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema holds the DDL for the ledger tables plus the transition audit
// log.  Two constraints carry invariants the services rely on:
//
//   - escrow_ledger.locked_booking_id is a stored generated column that
//     equals booking_id only while status='locked'; its unique index
//     guarantees at most one locked entry per booking even under
//     concurrent webhook deliveries.
//   - payment_transactions.idempotency_key is unique so replays of the
//     same logical payment attempt cannot create duplicate rows.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id CHAR(36) PRIMARY KEY,
		property_id CHAR(36) NOT NULL,
		guest_id CHAR(36) NOT NULL,
		host_id CHAR(36) NOT NULL,
		check_in_date DATETIME NOT NULL,
		check_out_date DATETIME NOT NULL,
		num_guests INT NOT NULL DEFAULT 1,
		total_price_cents BIGINT NOT NULL,
		currency VARCHAR(8) NOT NULL,
		status ENUM('PENDING','PAYMENT_LOCKED','CHECKED_IN','COMPLETED','SETTLED','CANCELLED') NOT NULL DEFAULT 'PENDING',
		checked_in_at DATETIME NULL,
		cancelled_at DATETIME NULL,
		cancellation_reason TEXT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		KEY idx_bookings_guest (guest_id),
		KEY idx_bookings_host (host_id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS booking_transitions (
		id CHAR(36) PRIMARY KEY,
		booking_id CHAR(36) NOT NULL,
		from_status VARCHAR(16) NOT NULL,
		to_status VARCHAR(16) NOT NULL,
		actor_id CHAR(36) NOT NULL,
		metadata JSON NULL,
		created_at DATETIME NOT NULL,
		KEY idx_transitions_booking (booking_id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS escrow_ledger (
		id CHAR(36) PRIMARY KEY,
		booking_id CHAR(36) NOT NULL,
		amount_cents BIGINT NOT NULL,
		currency VARCHAR(8) NOT NULL,
		asset_type ENUM('eth','dai','a7a5','fiat') NOT NULL,
		transaction_hash VARCHAR(66) NULL,
		status ENUM('pending','locked','released','refunded','frozen') NOT NULL DEFAULT 'pending',
		confirmations INT NOT NULL DEFAULT 0,
		required_confirmations INT NOT NULL DEFAULT 1,
		block_number BIGINT UNSIGNED NULL,
		wallet_from VARCHAR(42) NULL,
		locked_at DATETIME NOT NULL,
		released_at DATETIME NULL,
		released_to CHAR(36) NULL,
		release_reason TEXT NULL,
		locked_booking_id CHAR(36) GENERATED ALWAYS AS (IF(status = 'locked', booking_id, NULL)) STORED,
		UNIQUE KEY uq_escrow_one_locked (locked_booking_id),
		KEY idx_escrow_booking (booking_id),
		KEY idx_escrow_tx_hash (transaction_hash)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS payment_transactions (
		id CHAR(36) PRIMARY KEY,
		booking_id CHAR(36) NULL,
		user_id CHAR(36) NOT NULL,
		tx_type VARCHAR(24) NOT NULL,
		payment_method VARCHAR(16) NOT NULL,
		amount_cents BIGINT NOT NULL,
		currency VARCHAR(8) NOT NULL,
		fee_cents BIGINT NOT NULL DEFAULT 0,
		net_cents BIGINT NOT NULL,
		status ENUM('pending','processing','confirmed','failed','refunded') NOT NULL DEFAULT 'pending',
		transaction_hash VARCHAR(66) NULL,
		gateway_reference VARCHAR(128) NULL,
		idempotency_key VARCHAR(64) NOT NULL,
		retry_count INT NOT NULL DEFAULT 0,
		metadata JSON NULL,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_tx_idempotency (idempotency_key),
		KEY idx_tx_booking (booking_id),
		KEY idx_tx_user (user_id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS compliance_logs (
		id CHAR(36) PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		entity_type VARCHAR(32) NOT NULL,
		entity_id VARCHAR(64) NOT NULL,
		action VARCHAR(32) NOT NULL,
		status ENUM('pending','approved','rejected','flagged') NOT NULL,
		risk_score DOUBLE NOT NULL DEFAULT 0,
		metadata JSON NULL,
		created_at DATETIME NOT NULL,
		KEY idx_compliance_user (user_id)
	) ENGINE=InnoDB`,
}

// EnsureSchema creates the ledger tables when they do not exist yet.  It
// is safe to call on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
