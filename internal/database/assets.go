package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spc-catalog/internal/metrics"
)

// UpsertAsset records an asset file within a batch transaction. updated_at
// always moves to now so DeleteMissingAssets can drop files the indexer no
// longer sees.
func (d *Database) UpsertAsset(tx *sql.Tx, a *Asset) error {
	// The transaction controls the operation's lifecycle.
	result, err := tx.ExecContext(context.Background(), `
		INSERT INTO assets (path, kind, size, mod_time, file_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(path) DO UPDATE SET
			kind = excluded.kind,
			size = excluded.size,
			mod_time = excluded.mod_time,
			file_hash = excluded.file_hash,
			updated_at = strftime('%s', 'now')
	`, a.Path, a.Kind, a.Size, a.ModTime.Unix(), a.FileHash)
	if err == nil {
		if rows, _ := result.RowsAffected(); rows > 0 {
			metrics.DBRowsAffected.WithLabelValues("upsert_asset").Observe(float64(rows))
		}
	}
	return err
}

// DeleteMissingAssets removes assets not seen since cutoff.
// Must be called within a transaction.
func (d *Database) DeleteMissingAssets(tx *sql.Tx, cutoff time.Time) (int64, error) {
	result, err := tx.ExecContext(context.Background(),
		"DELETE FROM assets WHERE updated_at < ?", cutoff.Unix())
	if err != nil {
		return 0, err
	}

	n, err := result.RowsAffected()
	if err == nil && n > 0 {
		metrics.DBRowsAffected.WithLabelValues("delete_assets").Observe(float64(n))
	}
	return n, err
}

// GetAsset returns an indexed asset by relative path or ErrNotFound.
func (d *Database) GetAsset(ctx context.Context, path string) (*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_asset", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a Asset
	var modTime int64
	err = d.db.QueryRowContext(ctx,
		"SELECT path, kind, size, mod_time, file_hash FROM assets WHERE path = ?", path,
	).Scan(&a.Path, &a.Kind, &a.Size, &modTime, &a.FileHash)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	a.ModTime = time.Unix(modTime, 0)
	return &a, nil
}

// AssetCount returns the number of indexed assets.
func (d *Database) AssetCount(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&n)
	return n, err
}
