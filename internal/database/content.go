package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ListCertificates returns all certificates, newest issue first.
func (d *Database) ListCertificates(ctx context.Context) ([]Certificate, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_certificates", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, file_path, issued, size
		FROM certificates ORDER BY issued DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	defer rows.Close()

	var out []Certificate
	for rows.Next() {
		var c Certificate
		if err = rows.Scan(&c.ID, &c.Title, &c.FilePath, &c.Issued, &c.Size); err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		out = append(out, c)
	}
	err = rows.Err()
	return out, err
}

// GetCertificate returns a certificate by id or ErrNotFound.
func (d *Database) GetCertificate(ctx context.Context, id int64) (*Certificate, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_certificate", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c Certificate
	err = d.db.QueryRowContext(ctx,
		"SELECT id, title, file_path, issued, size FROM certificates WHERE id = ?", id,
	).Scan(&c.ID, &c.Title, &c.FilePath, &c.Issued, &c.Size)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return &c, nil
}

// ListVideos returns all instruction videos.
func (d *Database) ListVideos(ctx context.Context) ([]Video, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_videos", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT id, title, url, preview, duration FROM videos ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var out []Video
	for rows.Next() {
		var v Video
		if err = rows.Scan(&v.ID, &v.Title, &v.URL, &v.Preview, &v.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		out = append(out, v)
	}
	err = rows.Err()
	return out, err
}

// ListHeroImages returns hero banner images in display order.
func (d *Database) ListHeroImages(ctx context.Context) ([]HeroImage, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_hero_images", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT id, title, image, link, sort_order FROM hero_images ORDER BY sort_order, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list hero images: %w", err)
	}
	defer rows.Close()

	var out []HeroImage
	for rows.Next() {
		var h HeroImage
		if err = rows.Scan(&h.ID, &h.Title, &h.Image, &h.Link, &h.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan hero image: %w", err)
		}
		out = append(out, h)
	}
	err = rows.Err()
	return out, err
}

// ListProjects returns the project gallery.
func (d *Database) ListProjects(ctx context.Context) ([]Project, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_projects", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT id, title, location, images FROM projects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var images string
		if err = rows.Scan(&p.ID, &p.Title, &p.Location, &images); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.Images = decodeStrings(images)
		out = append(out, p)
	}
	err = rows.Err()
	return out, err
}

// Seed writes a full catalog snapshot in one transaction. Collections and
// products are upserted so existing favorites keep pointing at the same ids;
// content tables are replaced.
func (d *Database) Seed(ctx context.Context, data SeedData) (err error) {
	start := time.Now()
	defer func() { recordQuery("seed", start, err) }()

	tx, err := d.BeginBatch()
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() { err = d.EndBatch(tx, err) }()

	for _, c := range data.Collections {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO collections (slug, name, description, sort_order) VALUES (?, ?, ?, ?)
			ON CONFLICT(slug) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				sort_order = excluded.sort_order
		`, c.Slug, c.Name, c.Description, c.SortOrder); err != nil {
			return fmt.Errorf("failed to seed collection %q: %w", c.Slug, err)
		}
	}

	for i := range data.Products {
		if err = upsertProduct(ctx, tx, &data.Products[i]); err != nil {
			return err
		}
	}

	for _, table := range []string{"certificates", "videos", "hero_images", "projects"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, c := range data.Certificates {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO certificates (title, file_path, issued, size) VALUES (?, ?, ?, ?)",
			c.Title, c.FilePath, c.Issued, c.Size); err != nil {
			return fmt.Errorf("failed to seed certificate %q: %w", c.Title, err)
		}
	}
	for _, v := range data.Videos {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO videos (title, url, preview, duration) VALUES (?, ?, ?, ?)",
			v.Title, v.URL, v.Preview, v.Duration); err != nil {
			return fmt.Errorf("failed to seed video %q: %w", v.Title, err)
		}
	}
	for _, h := range data.HeroImages {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO hero_images (title, image, link, sort_order) VALUES (?, ?, ?, ?)",
			h.Title, h.Image, h.Link, h.SortOrder); err != nil {
			return fmt.Errorf("failed to seed hero image %q: %w", h.Image, err)
		}
	}
	for _, p := range data.Projects {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO projects (title, location, images) VALUES (?, ?, ?)",
			p.Title, p.Location, encodeStrings(p.Images)); err != nil {
			return fmt.Errorf("failed to seed project %q: %w", p.Title, err)
		}
	}

	return nil
}
