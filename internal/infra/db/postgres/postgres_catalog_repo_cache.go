package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/repository"
	"vpn-billing/internal/infra/metrics"
	red "vpn-billing/internal/infra/redis"
)

var (
	_ repository.TariffRepository = (*tariffRepoCacheDecorator)(nil)
	_ repository.OptionRepository = (*optionRepoCacheDecorator)(nil)
)

// tariffRepoCacheDecorator serves tariff reads from redis. Reads inside a
// transaction bypass the cache.
type tariffRepoCacheDecorator struct {
	inner repository.TariffRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewTariffRepoCacheDecorator(inner repository.TariffRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.TariffRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "tariff_cache").Logger()
	return &tariffRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func tariffKey(id string) string { return fmt.Sprintf("tariff:%s", id) }

func (d *tariffRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tariff, error) {
	if isTx(tx) {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := tariffKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var t model.Tariff
		if json.Unmarshal([]byte(val), &t) == nil {
			metrics.IncCacheRequest("tariff", "hit")
			return &t, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	metrics.IncCacheRequest("tariff", "miss")
	t, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(t); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return t, nil
}

func (d *tariffRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, t *model.Tariff) error {
	_ = d.cache.Del(ctx, tariffKey(t.ID))
	return d.inner.Save(ctx, tx, t)
}

type optionRepoCacheDecorator struct {
	inner repository.OptionRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewOptionRepoCacheDecorator(inner repository.OptionRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.OptionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "option_cache").Logger()
	return &optionRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func optionKey(id string) string { return fmt.Sprintf("option:%s", id) }

func (d *optionRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Option, error) {
	if isTx(tx) {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := optionKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var o model.Option
		if json.Unmarshal([]byte(val), &o) == nil {
			metrics.IncCacheRequest("option", "hit")
			return &o, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	metrics.IncCacheRequest("option", "miss")
	o, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(o); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return o, nil
}

func (d *optionRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, o *model.Option) error {
	_ = d.cache.Del(ctx, optionKey(o.ID))
	return d.inner.Save(ctx, tx, o)
}
