// Package provider contains the weather source clients. Each client fetches
// one provider's current conditions and normalizes them into the common
// observation schema; the reconciliation engine never sees provider-specific
// types.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avetisov/stratus/internal/cache"
	"github.com/avetisov/stratus/internal/model"
	"github.com/avetisov/stratus/internal/util"
	"github.com/avetisov/stratus/internal/worker"
)

// Provider abstracts one weather data source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, location string) (model.Observation, error)
}

// Sentinel errors used to classify failures for the source outcome record.
var (
	ErrNotConfigured = errors.New("provider not configured")
	ErrParse         = errors.New("parse provider response")
)

// ClassifyError maps a fetch error onto the failure taxonomy the engine
// understands. Provider-specific detail stays in the error message.
func ClassifyError(err error) model.FailureClass {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrNotConfigured):
		return model.FailureConfig
	case errors.Is(err, ErrParse):
		return model.FailureParse
	case errors.Is(err, context.DeadlineExceeded):
		return model.FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return model.FailureTimeout
	default:
		return model.FailureNetwork
	}
}

// deps bundles what every client shares: HTTP transport, response cache,
// and the per-host rate limiter.
type deps struct {
	http      *http.Client
	cache     cache.Cache
	cacheTTL  time.Duration
	limiter   *worker.Limiter
	userAgent string
	maxBytes  int64
}

// FromConfig builds one client per configured provider. Providers without an
// API key are still attempted so their absence shows up as a tagged config
// failure in the report rather than silently shrinking the source set.
func FromConfig(cfg *model.Config, store cache.Cache, limiter *worker.Limiter) ([]Provider, error) {
	d := deps{
		http: &http.Client{
			Timeout: cfg.HTTP.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
			},
		},
		limiter:   limiter,
		userAgent: cfg.HTTP.UserAgent,
		maxBytes:  cfg.HTTP.MaxBodyBytes,
	}
	if cfg.Cache.Enabled && store != nil {
		d.cache = store
		d.cacheTTL = cfg.Cache.TTL
	}

	var providers []Provider
	for _, pc := range cfg.Providers {
		switch pc.Name {
		case "openweathermap":
			providers = append(providers, newOpenWeather(pc, d))
		case "weatherapi":
			providers = append(providers, newWeatherAPI(pc, d))
		case "visualcrossing":
			providers = append(providers, newVisualCrossing(pc, d))
		default:
			return nil, fmt.Errorf("%w: unknown provider %q", model.ErrConfig, pc.Name)
		}
	}
	return providers, nil
}

// fetchBody performs the rate-limited, breaker-guarded, cached GET every
// client funnels through.
func fetchBody(ctx context.Context, d deps, r *resilientCaller, cacheKey, rawURL string) ([]byte, error) {
	if d.cache != nil {
		if body, ok := d.cache.Get(cacheKey); ok {
			return body, nil
		}
	}

	if err := d.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	resp, err := r.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", d.userAgent)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if d.cache != nil {
		_ = d.cache.Set(cacheKey, body, d.cacheTTL)
	}
	return body, nil
}

// normalizeCondition folds the providers' free-form condition strings into
// the shared categorical vocabulary.
func normalizeCondition(raw string) model.Condition {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "thunder") || strings.Contains(s, "storm") || strings.Contains(s, "tornado") || strings.Contains(s, "hurricane"):
		return model.ConditionStorm
	case strings.Contains(s, "drizzle"):
		return model.ConditionDrizzle
	case strings.Contains(s, "rain") || strings.Contains(s, "shower"):
		return model.ConditionRain
	case strings.Contains(s, "snow") || strings.Contains(s, "sleet") || strings.Contains(s, "blizzard") || strings.Contains(s, "ice"):
		return model.ConditionSnow
	case strings.Contains(s, "fog"):
		return model.ConditionFog
	case strings.Contains(s, "mist") || strings.Contains(s, "haze"):
		return model.ConditionMist
	case strings.Contains(s, "cloud") || strings.Contains(s, "overcast"):
		return model.ConditionCloudy
	case strings.Contains(s, "clear") || strings.Contains(s, "sun"):
		return model.ConditionClear
	default:
		return model.ConditionUnknown
	}
}

// kphToMS converts km/h wind speeds to m/s for providers that cannot report
// metric wind directly.
func kphToMS(v float64) float64 {
	return v / 3.6
}
