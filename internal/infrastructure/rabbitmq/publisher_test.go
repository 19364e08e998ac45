package rabbitmq

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func sampleEvent(t *testing.T) ledger.Event {
	t.Helper()
	at := time.Date(2026, 3, 1, 23, 15, 0, 0, time.UTC)
	note := "poured"
	entry, err := entity.NewLedgerEntry("p-1", quantity.MustParse("70"), quantity.MustParse("50"), nil, &note, at)
	require.NoError(t, err)
	return ledger.Event{
		Type:      ledger.EventEntryRecorded,
		ProductID: "p-1",
		Product: &entity.Product{
			ID: "p-1", Name: "Ron", TotalCapacity: quantity.MustParse("70"),
			Remaining: quantity.MustParse("50"), Version: 1,
		},
		Entry:      entry,
		OccurredAt: at,
	}
}

func TestPublisher_RoutingKeyYCuerpo(t *testing.T) {
	ch := &fakeChannel{}
	pub := NewPublisher(ch, "ledger.events")
	e := sampleEvent(t)

	require.NoError(t, pub.Publish(context.Background(), e))
	assert.Equal(t, "ledger.events", ch.exchange)
	assert.Equal(t, ledger.EventEntryRecorded, ch.key)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, e.Entry.ID, ch.msg.MessageId)

	var body map[string]any
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	assert.Equal(t, "ledger.entry.recorded", body["type"])
	entry := body["entry"].(map[string]any)
	assert.Equal(t, "-20", entry["delta"])
	assert.Equal(t, "poured", entry["note"])
	assert.NotContains(t, entry, "actor_id")
}

func TestNewMessage_EventoDeBorradoSinProducto(t *testing.T) {
	msg := NewMessage(ledger.Event{Type: ledger.EventProductDeleted, ProductID: "p-9", OccurredAt: time.Now()})
	assert.Nil(t, msg.Product)
	assert.Nil(t, msg.Entry)
	assert.Equal(t, "p-9", msg.ProductID)
}

func TestPublisher_Integracion(t *testing.T) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		t.Skip("RABBITMQ_URL no definido; se omite el test de integración")
	}
	conn, ch, err := SetupConn(url, "ledger.events.test", 1, zerolog.Nop())
	if err != nil {
		t.Skip("RabbitMQ no disponible: ", err)
	}
	defer conn.Close()
	defer ch.Close()

	require.NoError(t, NewPublisher(ch, "ledger.events.test").Publish(context.Background(), sampleEvent(t)))
}
