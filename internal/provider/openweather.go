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

const openWeatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeather is the OpenWeatherMap current-weather client. Metric units are
// requested, so no conversions apply.
type OpenWeather struct {
	cfg     model.ProviderConfig
	deps    deps
	caller  *resilientCaller
	baseURL string
}

func newOpenWeather(pc model.ProviderConfig, d deps) *OpenWeather {
	base := pc.BaseURL
	if base == "" {
		base = openWeatherBaseURL
	}
	return &OpenWeather{
		cfg:     pc,
		deps:    d,
		caller:  newResilientCaller(pc.Name, d.http),
		baseURL: base,
	}
}

// Name returns the provider identifier used throughout the engine.
func (p *OpenWeather) Name() string {
	return p.cfg.Name
}

type openWeatherResponse struct {
	Main *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  *float64 `json:"humidity"`
		Pressure  *float64 `json:"pressure"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

// Fetch retrieves and normalizes the current reading for a location.
func (p *OpenWeather) Fetch(ctx context.Context, location string) (model.Observation, error) {
	if p.cfg.APIKey == "" {
		return model.Observation{}, fmt.Errorf("%w: openweathermap api key missing", ErrNotConfigured)
	}

	values := url.Values{}
	values.Set("q", location)
	values.Set("appid", p.cfg.APIKey)
	values.Set("units", "metric")
	rawURL := p.baseURL + "?" + values.Encode()

	body, err := fetchBody(ctx, p.deps, p.caller, cache.Key(p.cfg.Name, location), rawURL)
	if err != nil {
		return model.Observation{}, fmt.Errorf("openweathermap: %w", err)
	}

	var resp openWeatherResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Observation{}, fmt.Errorf("%w: openweathermap: %v", ErrParse, err)
	}
	if resp.Main == nil {
		return model.Observation{}, fmt.Errorf("%w: openweathermap: response missing main block", ErrParse)
	}

	obs := model.Observation{
		Provider:    p.cfg.Name,
		Timestamp:   time.Now().UTC(),
		Temperature: resp.Main.Temp,
		FeelsLike:   resp.Main.FeelsLike,
		Humidity:    resp.Main.Humidity,
		Pressure:    resp.Main.Pressure,
	}
	if resp.Wind != nil {
		obs.WindSpeed = resp.Wind.Speed
		obs.WindDirection = resp.Wind.Deg
	}
	if len(resp.Weather) > 0 {
		obs.Condition = normalizeCondition(resp.Weather[0].Main)
	}
	return obs, nil
}
