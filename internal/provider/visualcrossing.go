package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/avetisov/stratus/internal/cache"
	"github.com/avetisov/stratus/internal/model"
)

const visualCrossingBaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

// VisualCrossing is the Visual Crossing timeline-API client, queried for
// current conditions only. The metric unit group reports wind in km/h, which
// is converted to m/s during normalization.
type VisualCrossing struct {
	cfg     model.ProviderConfig
	deps    deps
	caller  *resilientCaller
	baseURL string
}

func newVisualCrossing(pc model.ProviderConfig, d deps) *VisualCrossing {
	base := pc.BaseURL
	if base == "" {
		base = visualCrossingBaseURL
	}
	return &VisualCrossing{
		cfg:     pc,
		deps:    d,
		caller:  newResilientCaller(pc.Name, d.http),
		baseURL: base,
	}
}

// Name returns the provider identifier used throughout the engine.
func (p *VisualCrossing) Name() string {
	return p.cfg.Name
}

type visualCrossingResponse struct {
	CurrentConditions *struct {
		Temp       *float64 `json:"temp"`
		FeelsLike  *float64 `json:"feelslike"`
		Humidity   *float64 `json:"humidity"`
		Pressure   *float64 `json:"pressure"`
		WindSpeed  *float64 `json:"windspeed"`
		WindDir    *float64 `json:"winddir"`
		Conditions string   `json:"conditions"`
	} `json:"currentConditions"`
}

// Fetch retrieves and normalizes the current reading for a location.
func (p *VisualCrossing) Fetch(ctx context.Context, location string) (model.Observation, error) {
	if p.cfg.APIKey == "" {
		return model.Observation{}, fmt.Errorf("%w: visualcrossing api key missing", ErrNotConfigured)
	}

	values := url.Values{}
	values.Set("key", p.cfg.APIKey)
	values.Set("unitGroup", "metric")
	values.Set("include", "current")
	values.Set("contentType", "json")
	rawURL := p.baseURL + "/" + url.PathEscape(location) + "?" + values.Encode()

	body, err := fetchBody(ctx, p.deps, p.caller, cache.Key(p.cfg.Name, location), rawURL)
	if err != nil {
		return model.Observation{}, fmt.Errorf("visualcrossing: %w", err)
	}

	var resp visualCrossingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Observation{}, fmt.Errorf("%w: visualcrossing: %v", ErrParse, err)
	}
	if resp.CurrentConditions == nil {
		return model.Observation{}, fmt.Errorf("%w: visualcrossing: response missing currentConditions block", ErrParse)
	}

	cc := resp.CurrentConditions
	obs := model.Observation{
		Provider:      p.cfg.Name,
		Timestamp:     time.Now().UTC(),
		Temperature:   cc.Temp,
		FeelsLike:     cc.FeelsLike,
		Humidity:      cc.Humidity,
		Pressure:      cc.Pressure,
		WindDirection: cc.WindDir,
		Condition:     normalizeCondition(cc.Conditions),
	}
	if cc.WindSpeed != nil {
		obs.WindSpeed = model.Float(kphToMS(*cc.WindSpeed))
	}
	return obs, nil
}
