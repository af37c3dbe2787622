package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

const categoryColumns = `id, name_de, name_en, description_de, description_en, icon_name, color_hex, sort_order`

// ListCategories returns the seeded categories by sort order.
func (s *Store) ListCategories(ctx context.Context) ([]domain.WasteCategory, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY sort_order`, categoryColumns, s.table("waste_categories"))
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.WasteCategory, error) {
		var c domain.WasteCategory
		err := row.Scan(categoryDest(&c)...)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return out, nil
}

// GetCategory loads one category.
func (s *Store) GetCategory(ctx context.Context, id string) (domain.WasteCategory, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, categoryColumns, s.table("waste_categories"))
	var c domain.WasteCategory
	if err := s.pool.QueryRow(ctx, query, id).Scan(categoryDest(&c)...); err != nil {
		return domain.WasteCategory{}, fmt.Errorf("get category %s: %w", id, notFound(err))
	}
	return c, nil
}

func categoryDest(c *domain.WasteCategory) []any {
	return []any{&c.ID, &c.NameDE, &c.NameEN, &c.DescriptionDE, &c.DescriptionEN, &c.IconName, &c.ColorHex, &c.SortOrder}
}
