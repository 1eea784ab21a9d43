package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"spc-catalog/internal/logging"
)

const productColumns = `id, slug, name, collection, category, length_mm, width_mm, thickness_mm, color, price, image, gallery, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (Product, error) {
	var p Product
	var gallery string
	var created int64
	err := s.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Collection, &p.Category,
		&p.LengthMM, &p.WidthMM, &p.ThicknessMM, &p.Color, &p.Price,
		&p.Image, &gallery, &created,
	)
	if err != nil {
		return p, err
	}
	p.CreatedAt = time.Unix(created, 0)
	p.Gallery = decodeStrings(gallery)
	return p, nil
}

func encodeStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeStrings(s string) []string {
	var out []string
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		logging.Warn("Ignoring malformed string list %q: %v", s, err)
		return nil
	}
	return out
}

// UpsertCollection inserts or updates a collection by slug.
func (d *Database) UpsertCollection(ctx context.Context, c Collection) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_collection", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO collections (slug, name, description, sort_order) VALUES (?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			sort_order = excluded.sort_order
	`, c.Slug, c.Name, c.Description, c.SortOrder)
	return err
}

// ListCollections returns all collections in display order.
func (d *Database) ListCollections(ctx context.Context) ([]Collection, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_collections", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT slug, name, description, sort_order
		FROM collections ORDER BY sort_order, name COLLATE NOCASE
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		var c Collection
		if err = rows.Scan(&c.Slug, &c.Name, &c.Description, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		out = append(out, c)
	}
	err = rows.Err()
	return out, err
}

// UpsertProduct inserts or updates a product by slug and sets p.ID.
func (d *Database) UpsertProduct(ctx context.Context, p *Product) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_product", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = upsertProduct(ctx, d.db, p)
	return err
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func upsertProduct(ctx context.Context, q execQuerier, p *Product) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO products (slug, name, collection, category, length_mm, width_mm, thickness_mm, color, price, image, gallery, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			collection = excluded.collection,
			category = excluded.category,
			length_mm = excluded.length_mm,
			width_mm = excluded.width_mm,
			thickness_mm = excluded.thickness_mm,
			color = excluded.color,
			price = excluded.price,
			image = excluded.image,
			gallery = excluded.gallery
	`, p.Slug, p.Name, p.Collection, p.Category, p.LengthMM, p.WidthMM, p.ThicknessMM,
		p.Color, p.Price, p.Image, encodeStrings(p.Gallery), created.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert product %q: %w", p.Slug, err)
	}
	if err := q.QueryRowContext(ctx, "SELECT id FROM products WHERE slug = ?", p.Slug).Scan(&p.ID); err != nil {
		return fmt.Errorf("failed to read product id %q: %w", p.Slug, err)
	}
	return nil
}

// ListProducts returns one filtered, sorted page of products.
func (d *Database) ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_products", start, err) }()

	f := filter.Normalize()

	var where []string
	var args []any
	if f.Collection != "" {
		where = append(where, "collection = ?")
		args = append(args, f.Collection)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Color != "" {
		where = append(where, "color = ? COLLATE NOCASE")
		args = append(args, f.Color)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(name LIKE ? ESCAPE '\\' OR slug LIKE ? ESCAPE '\\')")
		like := "%" + escapeLike(q) + "%"
		args = append(args, like, like)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	sortColumn := "name COLLATE NOCASE"
	switch f.SortField {
	case SortByPrice:
		sortColumn = "price"
	case SortByCreated:
		sortColumn = "created_at"
	}
	sortDir := "ASC"
	if f.SortOrder == SortDesc {
		sortDir = "DESC"
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var total int
	if err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+whereClause, args...).Scan(&total); err != nil {
		logging.Error("ListProducts count query failed: %v", err)
		return nil, fmt.Errorf("count query failed: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(f.PageSize)))
	if totalPages < 1 {
		totalPages = 1
	}
	offset := (f.Page - 1) * f.PageSize

	selectQuery := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s %s, id ASC LIMIT ? OFFSET ?`,
		productColumns, whereClause, sortColumn, sortDir)
	selectArgs := append(append([]any{}, args...), f.PageSize, offset)

	rows, err := d.db.QueryContext(ctx, selectQuery, selectArgs...)
	if err != nil {
		logging.Error("ListProducts select query failed: %v", err)
		return nil, fmt.Errorf("select query failed: %w", err)
	}
	defer rows.Close()

	items := make([]Product, 0, f.PageSize)
	for rows.Next() {
		p, scanErr := scanProduct(rows)
		if scanErr != nil {
			logging.Warn("ListProducts: skipping unreadable row: %v", scanErr)
			continue
		}
		items = append(items, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	logging.Debug("ListProducts: %d of %d items (page %d/%d) in %v", len(items), total, f.Page, totalPages, time.Since(start))

	return &ProductPage{
		Items:      items,
		TotalItems: total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: totalPages,
	}, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// GetProduct returns a product by slug or ErrNotFound.
func (d *Database) GetProduct(ctx context.Context, slug string) (*Product, error) {
	return d.getProduct(ctx, "get_product", "slug = ?", slug)
}

// GetProductByID returns a product by id or ErrNotFound.
func (d *Database) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	return d.getProduct(ctx, "get_product_by_id", "id = ?", id)
}

func (d *Database) getProduct(ctx context.Context, op, cond string, arg any) (*Product, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(op, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE "+cond, arg)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// ProductImages returns every distinct image path referenced by products,
// main images first.
func (d *Database) ProductImages(ctx context.Context) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("product_images", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT image, gallery FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list product images: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var mains, rest []string
	for rows.Next() {
		var image, gallery string
		if err = rows.Scan(&image, &gallery); err != nil {
			return nil, err
		}
		if image != "" && !seen[image] {
			seen[image] = true
			mains = append(mains, image)
		}
		for _, g := range decodeStrings(gallery) {
			if g != "" && !seen[g] {
				seen[g] = true
				rest = append(rest, g)
			}
		}
	}
	err = rows.Err()
	return append(mains, rest...), err
}
