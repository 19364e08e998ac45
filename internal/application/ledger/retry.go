package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/bar-ledger/internal/domain"
)

// RetryOnConflict reintenta fn mientras devuelva ErrConflict, hasta attempts intentos en total.
// Cualquier otro error (o el agotamiento de intentos) se devuelve tal cual.
func RetryOnConflict(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 5 * time.Millisecond):
		}
	}
	return err
}
