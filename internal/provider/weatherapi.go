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

const weatherAPIBaseURL = "https://api.weatherapi.com/v1/current.json"

// WeatherAPI is the weatherapi.com current-weather client. Wind arrives in
// km/h and is converted to m/s during normalization.
type WeatherAPI struct {
	cfg     model.ProviderConfig
	deps    deps
	caller  *resilientCaller
	baseURL string
}

func newWeatherAPI(pc model.ProviderConfig, d deps) *WeatherAPI {
	base := pc.BaseURL
	if base == "" {
		base = weatherAPIBaseURL
	}
	return &WeatherAPI{
		cfg:     pc,
		deps:    d,
		caller:  newResilientCaller(pc.Name, d.http),
		baseURL: base,
	}
}

// Name returns the provider identifier used throughout the engine.
func (p *WeatherAPI) Name() string {
	return p.cfg.Name
}

type weatherAPIResponse struct {
	Current *struct {
		TempC      *float64 `json:"temp_c"`
		FeelsLikeC *float64 `json:"feelslike_c"`
		Humidity   *float64 `json:"humidity"`
		PressureMB *float64 `json:"pressure_mb"`
		WindKPH    *float64 `json:"wind_kph"`
		WindDegree *float64 `json:"wind_degree"`
		Condition  struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

// Fetch retrieves and normalizes the current reading for a location.
func (p *WeatherAPI) Fetch(ctx context.Context, location string) (model.Observation, error) {
	if p.cfg.APIKey == "" {
		return model.Observation{}, fmt.Errorf("%w: weatherapi key missing", ErrNotConfigured)
	}

	values := url.Values{}
	values.Set("key", p.cfg.APIKey)
	values.Set("q", location)
	rawURL := p.baseURL + "?" + values.Encode()

	body, err := fetchBody(ctx, p.deps, p.caller, cache.Key(p.cfg.Name, location), rawURL)
	if err != nil {
		return model.Observation{}, fmt.Errorf("weatherapi: %w", err)
	}

	var resp weatherAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Observation{}, fmt.Errorf("%w: weatherapi: %v", ErrParse, err)
	}
	if resp.Current == nil {
		return model.Observation{}, fmt.Errorf("%w: weatherapi: response missing current block", ErrParse)
	}

	obs := model.Observation{
		Provider:      p.cfg.Name,
		Timestamp:     time.Now().UTC(),
		Temperature:   resp.Current.TempC,
		FeelsLike:     resp.Current.FeelsLikeC,
		Humidity:      resp.Current.Humidity,
		Pressure:      resp.Current.PressureMB,
		WindDirection: resp.Current.WindDegree,
		Condition:     normalizeCondition(resp.Current.Condition.Text),
	}
	if resp.Current.WindKPH != nil {
		obs.WindSpeed = model.Float(kphToMS(*resp.Current.WindKPH))
	}
	return obs, nil
}
