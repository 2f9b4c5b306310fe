package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/fosterlabs/blink-engine/shared/logging"
	"github.com/fosterlabs/blink-engine/shared/metrics"
	sharedredis "github.com/fosterlabs/blink-engine/shared/redis"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

const (
	// SlippageRate pads fiat-to-SOL conversions so small price moves
	// between quote and settlement do not underpay the split.
	SlippageRate = 0.02

	LamportsPerSOL = 1_000_000_000

	rateCacheKey = "rates:sol_usd"
	rateCacheTTL = 30 * time.Second
)

// SolToLamports truncates toward zero, matching on-chain integer math.
func SolToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(sol * LamportsPerSOL)
}

func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}

// USDToLamports converts minor fiat units to lamports at the given
// quote, buffered by the slippage rate. A non-positive rate yields
// zero; callers decide whether a zero-lamport split is acceptable.
func USDToLamports(usdMinor int64, usdPerSOL float64) uint64 {
	if usdPerSOL <= 0 || usdMinor <= 0 {
		return 0
	}
	effective := usdPerSOL / (1 + SlippageRate)
	sol := float64(usdMinor) / 100 / effective
	return SolToLamports(sol)
}

// Converter quotes the SOL/USD rate with a short-lived cache in front
// of the live source. Rate failures degrade to a zero quote instead of
// failing the request; the fallback is logged and counted so it cannot
// pass silently.
type Converter struct {
	source  domain.RateSource
	cache   *sharedredis.Redis
	logger  *logging.Logger
	metrics *metrics.Metrics
}

func NewConverter(source domain.RateSource, cache *sharedredis.Redis, logger *logging.Logger, m *metrics.Metrics) *Converter {
	return &Converter{source: source, cache: cache, logger: logger, metrics: m}
}

// Rate returns the current USD value of one SOL, or 0 when no quote is
// available.
func (c *Converter) Rate(ctx context.Context) float64 {
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, rateCacheKey); err == nil && cached != "" {
			if rate, err := strconv.ParseFloat(cached, 64); err == nil && rate > 0 {
				return rate
			}
		}
	}

	rate, err := c.source.USDPerSOL(ctx)
	if err != nil || rate <= 0 {
		c.fallback(ctx, err)
		return 0
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, rateCacheKey, strconv.FormatFloat(rate, 'f', -1, 64), rateCacheTTL); err != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("failed to cache sol rate")
		}
	}
	return rate
}

func (c *Converter) fallback(ctx context.Context, err error) {
	if c.metrics != nil {
		c.metrics.RateFallbacks.Inc()
	}
	c.logger.WithContext(ctx).WithError(err).Warn("sol rate unavailable, converting at zero")
}
