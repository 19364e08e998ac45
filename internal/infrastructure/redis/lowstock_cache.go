// Package redis caché de lectura de stock bajo sobre Redis.
//
// Las claves llevan una generación: cualquier cambio confirmado del ledger la incrementa
// (Publish) y todas las entradas previas quedan inalcanzables hasta que expira su TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var (
	_ ledger.LowStockCache  = (*LowStockCache)(nil)
	_ ledger.EventPublisher = (*LowStockCache)(nil)
)

// Resultados reportados a CacheMetrics.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// CacheMetrics lo implementa metrics.Metrics.
type CacheMetrics interface {
	CacheResult(result string)
}

type nopMetrics struct{}

func (nopMetrics) CacheResult(string) {}

// LowStockCache cache-aside de LowStock. Un fallo de Redis nunca rompe la lectura: se consulta la BD.
type LowStockCache struct {
	client  *goredis.Client
	prefix  string
	ttl     time.Duration
	group   singleflight.Group
	metrics CacheMetrics
	log     zerolog.Logger
}

// NewLowStockCache construye la caché. metrics puede ser nil.
func NewLowStockCache(client *goredis.Client, prefix string, ttl time.Duration, metrics CacheMetrics, log zerolog.Logger) *LowStockCache {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &LowStockCache{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		metrics: metrics,
		log:     log.With().Str("component", "lowstock_cache").Logger(),
	}
}

func (c *LowStockCache) generationKey() string {
	return c.prefix + ":lowstock:gen"
}

func (c *LowStockCache) key(gen int64, threshold quantity.Quantity) string {
	return fmt.Sprintf("%s:lowstock:%d:%s", c.prefix, gen, threshold.String())
}

// LowStock devuelve la lista cacheada o la carga con load; las cargas concurrentes de la misma clave se colapsan en una.
func (c *LowStockCache) LowStock(ctx context.Context, threshold quantity.Quantity, load func(context.Context) ([]*entity.Product, error)) ([]*entity.Product, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.metrics.CacheResult(ResultError)
		c.log.Warn().Err(err).Msg("leer generación; se consulta la base")
		return load(ctx)
	}
	key := c.key(gen, threshold)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var list []*entity.Product
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			c.metrics.CacheResult(ResultHit)
			return list, nil
		}
		c.log.Warn().Str("key", key).Msg("valor cacheado corrupto; se recarga")
	case !errors.Is(err, goredis.Nil):
		c.metrics.CacheResult(ResultError)
		c.log.Warn().Err(err).Str("key", key).Msg("leer caché; se consulta la base")
		return load(ctx)
	}
	c.metrics.CacheResult(ResultMiss)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		list, err := load(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, string(payload), c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("guardar en caché")
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*entity.Product), nil
}

// Publish invalida la caché ante cualquier evento confirmado del ledger.
func (c *LowStockCache) Publish(ctx context.Context, _ ledger.Event) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("invalidar caché de stock bajo: %w", err)
	}
	return nil
}

func (c *LowStockCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

// NewClient abre el cliente y verifica la conexión.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}
