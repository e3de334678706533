package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Spok95/channel-pass-bot/internal/domain/tariffs"
)

type TariffSource interface {
	GetByID(ctx context.Context, id int64) (*tariffs.Tariff, error)
}

// TariffCache — сквозной кэш чтения тарифов. Определяющие поля
// тарифа после выпуска токенов неизменны, поэтому слегка устаревшее
// чтение безопасно. Ошибки Redis деградируют до похода в БД.
type TariffCache struct {
	rdb *redis.Client
	src TariffSource
	ttl time.Duration
	log *slog.Logger
}

func NewTariffCache(rdb *redis.Client, src TariffSource, ttl time.Duration, log *slog.Logger) *TariffCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TariffCache{rdb: rdb, src: src, ttl: ttl, log: log}
}

func key(id int64) string { return fmt.Sprintf("tariff:%d", id) }

func (c *TariffCache) GetByID(ctx context.Context, id int64) (*tariffs.Tariff, error) {
	raw, err := c.rdb.Get(ctx, key(id)).Bytes()
	if err == nil {
		var t tariffs.Tariff
		if err := json.Unmarshal(raw, &t); err == nil {
			return &t, nil
		}
		// битое значение — выкидываем и читаем заново
		c.rdb.Del(ctx, key(id))
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("tariff cache read failed", "tariff_id", id, "err", err)
	}

	t, err := c.src.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(t); err == nil {
		if err := c.rdb.Set(ctx, key(id), raw, c.ttl).Err(); err != nil {
			c.log.Warn("tariff cache write failed", "tariff_id", id, "err", err)
		}
	}
	return t, nil
}

// Invalidate вызывается после update/deactivate тарифа.
func (c *TariffCache) Invalidate(ctx context.Context, id int64) {
	if err := c.rdb.Del(ctx, key(id)).Err(); err != nil {
		c.log.Warn("tariff cache invalidate failed", "tariff_id", id, "err", err)
	}
}
