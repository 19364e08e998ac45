// Package database elige el adaptador de persistencia según DB_DRIVER.
package database

import (
	"context"
	"fmt"

	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/jhoicas/bar-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/bar-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/bar-ledger/pkg/config"
	"github.com/rs/zerolog"
)

// Store TxRunner listo para el servicio más la función que libera la conexión.
type Store struct {
	TxRunner ledger.TxRunner
	Driver   string
	close    func()
}

// Close libera el pool o el archivo SQLite.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open conecta con el motor configurado. Con migrate=true aplica el schema antes de devolver.
func Open(ctx context.Context, cfg *config.Config, migrate bool, log zerolog.Logger) (*Store, error) {
	switch cfg.DB.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrar PostgreSQL: %w", err)
			}
			log.Info().Msg("schema PostgreSQL aplicado")
		}
		return &Store{
			TxRunner: postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
			Driver:   cfg.DB.Driver,
			close:    pool.Close,
		}, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.DB.SQLitePath)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := sqlite.Migrate(db); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrar SQLite: %w", err)
			}
			log.Info().Str("path", cfg.DB.SQLitePath).Msg("schema SQLite aplicado")
		}
		return &Store{
			TxRunner: sqlite.NewTxRunner(db),
			Driver:   cfg.DB.Driver,
			close:    func() { _ = db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("DB_DRIVER %q no soportado", cfg.DB.Driver)
}
