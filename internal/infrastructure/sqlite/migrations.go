package sqlite

import (
	"database/sql"
	"fmt"
)

// Cantidades como TEXT decimal exacto; instantes como INTEGER (unix nanos UTC) para ordenar sin ambigüedad.
const schema = `
CREATE TABLE IF NOT EXISTS products (
    id                TEXT PRIMARY KEY,
    name              TEXT    NOT NULL,
    total_capacity    TEXT    NOT NULL,
    initial_remaining TEXT    NOT NULL,
    remaining         TEXT    NOT NULL,
    category_id       TEXT,
    price_per_unit    TEXT,
    location          TEXT    NOT NULL DEFAULT '',
    photo_url         TEXT    NOT NULL DEFAULT '',
    created_by        TEXT,
    version           INTEGER NOT NULL DEFAULT 0,
    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL,
    CHECK (CAST(total_capacity AS REAL) > 0),
    CHECK (CAST(remaining AS REAL) >= 0 AND CAST(remaining AS REAL) <= CAST(total_capacity AS REAL)),
    CHECK (CAST(initial_remaining AS REAL) >= 0 AND CAST(initial_remaining AS REAL) <= CAST(total_capacity AS REAL)),
    CHECK (price_per_unit IS NULL OR CAST(price_per_unit AS REAL) >= 0)
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id          TEXT PRIMARY KEY,
    product_id  TEXT    NOT NULL REFERENCES products(id),
    old_value   TEXT    NOT NULL,
    new_value   TEXT    NOT NULL,
    delta       TEXT    NOT NULL,
    actor_id    TEXT,
    note        TEXT,
    recorded_at INTEGER NOT NULL,
    CHECK (CAST(old_value AS REAL) >= 0),
    CHECK (CAST(new_value AS REAL) >= 0),
    -- REAL no es exacto: la igualdad decimal la comprueba Validate al escribir y al leer.
    CHECK (ABS(CAST(delta AS REAL) - (CAST(new_value AS REAL) - CAST(old_value AS REAL))) < 1e-9)
);
`

// migrations se aplican en orden después del schema. Cada una debe ser idempotente.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_products_remaining ON products(CAST(remaining AS REAL), id)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_product ON ledger_entries(product_id, recorded_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_recent ON ledger_entries(recorded_at DESC, id DESC)`,
}

// Migrate crea el schema y aplica las migraciones.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("crear schema: %w", err)
	}
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migración %d: %w", i+1, err)
		}
	}
	return nil
}
