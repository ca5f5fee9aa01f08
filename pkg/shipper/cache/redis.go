package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// RedisClient is the subset of redis.Cmdable used by Redis.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Redis is a rate cache shared between instances.
type Redis struct {
	client  RedisClient
	ttl     time.Duration
	logger  *otelzap.Logger
	options options
}

// NewRedis creates a Redis-backed cache whose entries expire after ttl.
func NewRedis(client RedisClient, ttl time.Duration, logger *otelzap.Logger, opts ...Option) *Redis {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Redis{
		client:  client,
		ttl:     ttl,
		logger:  logger,
		options: buildOptions(opts),
	}
}

// NewRedisFromURL parses url, connects and pings the server.
func NewRedisFromURL(ctx context.Context, url string, ttl time.Duration, logger *otelzap.Logger, opts ...Option) (*Redis, *redis.Client, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return NewRedis(client, ttl, logger, opts...), client, nil
}

// Lookup returns the cached rates for carrier and req. Redis failures are
// logged and treated as misses.
func (r *Redis) Lookup(ctx context.Context, carrier string, req *shipper.RateRequest) ([]shipper.RateDetails, bool) {
	key, err := Key(carrier, req)
	if err != nil {
		return nil, false
	}

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Ctx(ctx).Warn("Rate cache lookup failed", zap.String("carrier", carrier), zap.Error(err))
		}
		r.options.record(carrier, false)
		return nil, false
	}

	var rates []shipper.RateDetails
	if err := json.Unmarshal(data, &rates); err != nil {
		r.logger.Ctx(ctx).Warn("Discarding unreadable cached rates", zap.String("carrier", carrier), zap.Error(err))
		r.options.record(carrier, false)
		return nil, false
	}
	r.options.record(carrier, true)
	return rates, true
}

// Store caches rates for carrier and req with the configured TTL.
func (r *Redis) Store(ctx context.Context, carrier string, req *shipper.RateRequest, rates []shipper.RateDetails) {
	key, err := Key(carrier, req)
	if err != nil {
		return
	}
	data, err := json.Marshal(rates)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Ctx(ctx).Warn("Rate cache store failed", zap.String("carrier", carrier), zap.Error(err))
	}
}

var _ shipper.RateCache = (*Redis)(nil)
