package postgres

import (
	"context"
	"fmt"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

func (s *Store) schemaStatements() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	barcode      TEXT PRIMARY KEY,
	id           TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	brand        TEXT NOT NULL DEFAULT '',
	categories   TEXT[] NOT NULL DEFAULT '{}',
	packaging    TEXT NOT NULL DEFAULT '',
	quantity     TEXT NOT NULL DEFAULT '',
	ingredients  TEXT[] NOT NULL DEFAULT '{}',
	labels       TEXT NOT NULL DEFAULT '',
	generic_name TEXT NOT NULL DEFAULT '',
	image_url    TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL
)`, s.table("products")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id         TEXT PRIMARY KEY,
	barcode    TEXT NOT NULL,
	product_id TEXT NOT NULL DEFAULT '',
	scanned_at TIMESTAMPTZ NOT NULL,
	location   TEXT NOT NULL DEFAULT ''
)`, s.table("scans")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS scans_scanned_at_idx ON %s (scanned_at DESC)`, s.table("scans")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	product_id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL
)`, s.table("favorites")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id            SMALLINT PRIMARY KEY CHECK (id = 1),
	coins         BIGINT NOT NULL DEFAULT 0,
	xp            BIGINT NOT NULL DEFAULT 0,
	streak_days   INTEGER NOT NULL DEFAULT 0,
	last_scan_day TIMESTAMPTZ
)`, s.table("user_progress")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id             TEXT PRIMARY KEY,
	name_de        TEXT NOT NULL,
	name_en        TEXT NOT NULL,
	description_de TEXT NOT NULL,
	description_en TEXT NOT NULL,
	icon_name      TEXT NOT NULL,
	color_hex      TEXT NOT NULL,
	sort_order     INTEGER NOT NULL
)`, s.table("waste_categories")),
	}
}

// Migrate creates missing tables and upserts the built-in waste categories.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.schemaStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	seed := fmt.Sprintf(`INSERT INTO %s
	(id, name_de, name_en, description_de, description_en, icon_name, color_hex, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	name_de = EXCLUDED.name_de,
	name_en = EXCLUDED.name_en,
	description_de = EXCLUDED.description_de,
	description_en = EXCLUDED.description_en,
	icon_name = EXCLUDED.icon_name,
	color_hex = EXCLUDED.color_hex,
	sort_order = EXCLUDED.sort_order`, s.table("waste_categories"))
	for _, c := range domain.Categories() {
		if _, err := s.pool.Exec(ctx, seed,
			c.ID, c.NameDE, c.NameEN, c.DescriptionDE, c.DescriptionEN, c.IconName, c.ColorHex, c.SortOrder,
		); err != nil {
			return fmt.Errorf("seed category %s: %w", c.ID, err)
		}
	}
	return nil
}
