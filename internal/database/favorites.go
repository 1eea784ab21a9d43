package database

import (
	"context"
	"fmt"
	"time"
)

// AddFavorite marks a product as a favorite of clientID. Adding twice is a
// no-op; an unknown product returns ErrNotFound.
func (d *Database) AddFavorite(ctx context.Context, clientID string, productID int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("add_favorite", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists bool
	if err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) > 0 FROM products WHERE id = ?", productID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		err = ErrNotFound
		return err
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO favorites (client_id, product_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(client_id, product_id) DO NOTHING
	`, clientID, productID, time.Now().Unix())
	return err
}

// RemoveFavorite removes a favorite. Removing a missing favorite is a no-op.
func (d *Database) RemoveFavorite(ctx context.Context, clientID string, productID int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("remove_favorite", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM favorites WHERE client_id = ? AND product_id = ?", clientID, productID)
	return err
}

// IsFavorite reports whether clientID has favorited productID.
func (d *Database) IsFavorite(ctx context.Context, clientID string, productID int64) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("is_favorite", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err = d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM favorites WHERE client_id = ? AND product_id = ?", clientID, productID,
	).Scan(&count)
	return count > 0, err
}

// ListFavorites returns the favorited products of clientID, most recent first.
func (d *Database) ListFavorites(ctx context.Context, clientID string) ([]Product, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_favorites", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT p.id, p.slug, p.name, p.collection, p.category, p.length_mm, p.width_mm,
			p.thickness_mm, p.color, p.price, p.image, p.gallery, p.created_at
		FROM favorites fav
		INNER JOIN products p ON fav.product_id = p.id
		WHERE fav.client_id = ?
		ORDER BY fav.created_at DESC, p.id DESC
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get favorites: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, scanErr := scanProduct(rows)
		if scanErr != nil {
			continue
		}
		out = append(out, p)
	}
	err = rows.Err()
	return out, err
}

// FavoriteCount returns the number of favorites held by clientID.
func (d *Database) FavoriteCount(ctx context.Context, clientID string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM favorites WHERE client_id = ?", clientID).Scan(&count)
	return count, err
}
