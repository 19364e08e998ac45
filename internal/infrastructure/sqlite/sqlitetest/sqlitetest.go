// Package sqlitetest bases SQLite en memoria para los tests de otros paquetes.
package sqlitetest

import (
	"database/sql"
	"testing"

	"github.com/jhoicas/bar-ledger/internal/infrastructure/sqlite"
)

// NewTestDB base en memoria con el schema aplicado; se cierra al terminar el test.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("abrir base de prueba: %v", err)
	}
	if err := sqlite.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("schema de prueba: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
