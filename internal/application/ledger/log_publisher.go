package ledger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher escribe cada evento confirmado como una línea de auditoría.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher construye el publicador.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "ledger_audit").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	ev := p.log.Info().Str("event", e.Type).Str("product_id", e.ProductID).Time("occurred_at", e.OccurredAt)
	if e.Entry != nil {
		ev = ev.Str("entry_id", e.Entry.ID).
			Str("old", e.Entry.OldValue.String()).
			Str("new", e.Entry.NewValue.String()).
			Str("delta", e.Entry.Delta.String()).
			Bool("consumption", e.Entry.IsConsumption())
		if e.Entry.Actor != nil {
			ev = ev.Str("actor", *e.Entry.Actor)
		}
	}
	ev.Msg("evento del ledger")
	return nil
}
