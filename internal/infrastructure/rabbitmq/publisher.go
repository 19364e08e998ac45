// Package rabbitmq publica los eventos confirmados del ledger en un exchange topic.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

var _ ledger.EventPublisher = (*Publisher)(nil)

// channel subconjunto de *amqp.Channel que usa el publicador.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher implementa ledger.EventPublisher. La routing key es el tipo de evento.
type Publisher struct {
	mu       sync.Mutex
	ch       channel
	exchange string
}

// NewPublisher construye el publicador sobre un canal ya abierto (SetupConn).
func NewPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Message cuerpo JSON publicado. Las cantidades viajan como texto decimal exacto ("-20").
type Message struct {
	Type       string          `json:"type"`
	ProductID  string          `json:"product_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Product    *ProductPayload `json:"product,omitempty"`
	Entry      *EntryPayload   `json:"entry,omitempty"`
}

// ProductPayload estado del producto después del evento.
type ProductPayload struct {
	Name          string          `json:"name"`
	TotalCapacity decimal.Decimal `json:"total_capacity"`
	Remaining     decimal.Decimal `json:"remaining"`
	Version       int64           `json:"version"`
}

// EntryPayload entrada registrada.
type EntryPayload struct {
	ID         string          `json:"id"`
	OldValue   decimal.Decimal `json:"old_value"`
	NewValue   decimal.Decimal `json:"new_value"`
	Delta      decimal.Decimal `json:"delta"`
	ActorID    *string         `json:"actor_id,omitempty"`
	Note       *string         `json:"note,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// NewMessage arma el cuerpo publicado para un evento.
func NewMessage(e ledger.Event) Message {
	msg := Message{Type: e.Type, ProductID: e.ProductID, OccurredAt: e.OccurredAt.UTC()}
	if e.Product != nil {
		msg.Product = &ProductPayload{
			Name:          e.Product.Name,
			TotalCapacity: e.Product.TotalCapacity.Decimal(),
			Remaining:     e.Product.Remaining.Decimal(),
			Version:       e.Product.Version,
		}
	}
	if e.Entry != nil {
		msg.Entry = &EntryPayload{
			ID:         e.Entry.ID,
			OldValue:   e.Entry.OldValue.Decimal(),
			NewValue:   e.Entry.NewValue.Decimal(),
			Delta:      e.Entry.Delta,
			ActorID:    e.Entry.Actor,
			Note:       e.Entry.Note,
			RecordedAt: e.Entry.RecordedAt.UTC(),
		}
	}
	return msg
}

// Publish serializa el evento y lo publica como persistente.
func (p *Publisher) Publish(ctx context.Context, e ledger.Event) error {
	body, err := json.Marshal(NewMessage(e))
	if err != nil {
		return fmt.Errorf("serializar evento %s: %w", e.Type, err)
	}
	messageID := e.ProductID
	if e.Entry != nil {
		messageID = e.Entry.ID
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		e.Type,     // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    e.OccurredAt,
			Type:         e.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publicar %s: %w", e.Type, err)
	}
	return nil
}
