package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

const productColumns = `barcode, id, name, brand, categories, packaging, quantity, ingredients, labels, generic_name, image_url, updated_at`

// GetProduct loads a product by barcode.
func (s *Store) GetProduct(ctx context.Context, barcode string) (domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE barcode = $1`, productColumns, s.table("products"))
	var p domain.Product
	err := s.pool.QueryRow(ctx, query, barcode).Scan(productDest(&p)...)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", barcode, notFound(err))
	}
	return p, nil
}

// UpsertProduct inserts p or replaces the row with the same barcode.
func (s *Store) UpsertProduct(ctx context.Context, p domain.Product) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (barcode) DO UPDATE SET
	id = EXCLUDED.id,
	name = EXCLUDED.name,
	brand = EXCLUDED.brand,
	categories = EXCLUDED.categories,
	packaging = EXCLUDED.packaging,
	quantity = EXCLUDED.quantity,
	ingredients = EXCLUDED.ingredients,
	labels = EXCLUDED.labels,
	generic_name = EXCLUDED.generic_name,
	image_url = EXCLUDED.image_url,
	updated_at = EXCLUDED.updated_at`, s.table("products"), productColumns)
	_, err := s.pool.Exec(ctx, query,
		p.Barcode, p.ID, p.Name, p.Brand, nonNil(p.Categories), p.Packaging, p.Quantity,
		nonNil(p.Ingredients), p.Labels, p.GenericName, p.ImageURL, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.Barcode, err)
	}
	return nil
}

// SearchProducts matches query case-insensitively. An empty query matches nothing.
func (s *Store) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []domain.Product{}, nil
	}
	sql := fmt.Sprintf(`SELECT %s FROM %s
WHERE name ILIKE $1 OR brand ILIKE $1 OR generic_name ILIKE $1 OR barcode ILIKE $1
ORDER BY updated_at DESC, barcode
LIMIT $2`, productColumns, s.table("products"))
	rows, err := s.pool.Query(ctx, sql, "%"+escapeLike(q)+"%", limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return collectProducts(rows)
}

// ListProducts pages through products, most recently updated first.
func (s *Store) ListProducts(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	if offset < 0 {
		offset = 0
	}
	sql := fmt.Sprintf(`SELECT %s FROM %s ORDER BY updated_at DESC, barcode LIMIT $1 OFFSET $2`,
		productColumns, s.table("products"))
	rows, err := s.pool.Query(ctx, sql, limitArg(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
		var p domain.Product
		err := row.Scan(productDest(&p)...)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return out, nil
}

func productDest(p *domain.Product) []any {
	return []any{
		&p.Barcode, &p.ID, &p.Name, &p.Brand, &p.Categories, &p.Packaging, &p.Quantity,
		&p.Ingredients, &p.Labels, &p.GenericName, &p.ImageURL, &p.UpdatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
