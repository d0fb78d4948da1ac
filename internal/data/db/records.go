package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
)

const (
	// RecordsFileName is the structured record store database.
	RecordsFileName = "myCacheDatabase.db"
	// RecordsVersion is the schema version of the record store.
	RecordsVersion = 1
)

const recordsSchemaV1 = `
CREATE TABLE IF NOT EXISTS cache (
	url          TEXT PRIMARY KEY,
	response     BLOB NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	stored_at    INTEGER NOT NULL
)`

// OpenRecords opens the structured record store in dataDir. A database below
// RecordsVersion gets its schema created and its version bumped.
func OpenRecords(dataDir string, opts OpenOptions) (*DB, error) {
	db, err := open(filepath.Join(dataDir, RecordsFileName), opts)
	if err != nil {
		return nil, err
	}

	if err := upgradeRecords(context.Background(), db.conn); err != nil {
		_ = db.conn.Close()
		return nil, fmt.Errorf("failed to upgrade record store: %w", err)
	}

	return db, nil
}

// UserVersion reads PRAGMA user_version.
func UserVersion(ctx context.Context, conn *sql.DB) (int, error) {
	var v int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading user_version: %w", err)
	}
	return v, nil
}

func upgradeRecords(ctx context.Context, conn *sql.DB) error {
	current, err := UserVersion(ctx, conn)
	if err != nil {
		return err
	}
	if current >= RecordsVersion {
		return nil
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, recordsSchemaV1); err != nil {
		return fmt.Errorf("creating cache table: %w", err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", RecordsVersion)); err != nil {
		return fmt.Errorf("setting user_version: %w", err)
	}

	return tx.Commit()
}
