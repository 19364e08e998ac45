package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/bar-ledger/internal/domain"
)

// Querier abstrae pgxpool.Pool y pgx.Tx para que los repositorios sirvan con pool o dentro de una tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxScanner abstrae pgx.Row y pgx.Rows para reutilizar los scan de cada entidad.
type pgxScanner interface {
	Scan(dest ...any) error
}

// Códigos SQLSTATE que el ledger trata como conflicto reintentable.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03" // lock_timeout o NOWAIT
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeInvalidText          = "22P02" // texto que no convierte al tipo de la columna
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// isConflict errores de concurrencia: serialización, deadlock o espera de bloqueo agotada.
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return true
		}
	}
	return false
}

// mapError traduce errores del driver a errores de dominio; op se usa como prefijo del mensaje.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConflict(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w: %v", op, domain.ErrNotFound, err)
		case codeInvalidText:
			return fmt.Errorf("%s: %w: %v", op, domain.ErrInvalidArgument, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
