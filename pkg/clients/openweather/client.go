// Package openweather fetches current conditions and forecasts from the
// OpenWeather API. Without an API key the client serves generated mock data
// so the rest of the application keeps working in development.
package openweather

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const baseURL = "https://api.openweathermap.org/data/2.5"

// forecastsPerDay is the number of 3-hour slots OpenWeather returns per day.
const forecastsPerDay = 8

// Observation is a normalized weather reading: metric units, wind in km/h.
type Observation struct {
	Temperature float64
	Humidity    float64
	Rainfall    float64
	WindSpeed   float64
	Condition   string
	Location    string
}

// Client exposes the weather lookups used by the capture job and the HTTP
// facade.
type Client interface {
	Current(ctx context.Context, lat, lon float64) (*Observation, error)
	Forecast(ctx context.Context, lat, lon float64, days int) ([]Observation, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	apiKey     string
}

// NewClient builds an OpenWeather client. An empty apiKey enables the mock
// fallback.
func NewClient(apiKey string) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second)

	return &APIClient{httpClient: restyClient, apiKey: apiKey}
}

type currentResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

type forecastResponse struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	List []struct {
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Rain struct {
			ThreeHours float64 `json:"3h"`
		} `json:"rain"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
	} `json:"list"`
}

// Current returns the present conditions at the coordinates.
func (c *APIClient) Current(ctx context.Context, lat, lon float64) (*Observation, error) {
	if c.apiKey == "" {
		obs := mockObservation()
		return &obs, nil
	}

	result := new(currentResponse)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   fmt.Sprintf("%f", lat),
			"lon":   fmt.Sprintf("%f", lon),
			"appid": c.apiKey,
			"units": "metric",
		}).
		SetResult(result).
		Get("/weather")
	if err != nil {
		return nil, fmt.Errorf("fetch current weather: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("weather api error: status=%d", resp.StatusCode())
	}

	condition := ""
	if len(result.Weather) > 0 {
		condition = result.Weather[0].Main
	}

	return &Observation{
		Temperature: math.Round(result.Main.Temp),
		Humidity:    result.Main.Humidity,
		Rainfall:    result.Rain.OneHour,
		WindSpeed:   kmh(result.Wind.Speed),
		Condition:   condition,
		Location:    result.Name,
	}, nil
}

// Forecast returns one midday observation per day for the requested number
// of days.
func (c *APIClient) Forecast(ctx context.Context, lat, lon float64, days int) ([]Observation, error) {
	if days <= 0 {
		days = 5
	}
	if c.apiKey == "" {
		out := make([]Observation, days)
		for i := range out {
			out[i] = mockObservation()
		}
		return out, nil
	}

	result := new(forecastResponse)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   fmt.Sprintf("%f", lat),
			"lon":   fmt.Sprintf("%f", lon),
			"appid": c.apiKey,
			"units": "metric",
			"cnt":   fmt.Sprintf("%d", days*forecastsPerDay),
		}).
		SetResult(result).
		Get("/forecast")
	if err != nil {
		return nil, fmt.Errorf("fetch weather forecast: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("weather forecast api error: status=%d", resp.StatusCode())
	}

	out := make([]Observation, 0, days)
	for day := 0; day < days; day++ {
		// Midday slot of each day.
		idx := day*forecastsPerDay + forecastsPerDay/2
		if idx >= len(result.List) {
			break
		}
		slot := result.List[idx]

		condition := ""
		if len(slot.Weather) > 0 {
			condition = slot.Weather[0].Main
		}

		out = append(out, Observation{
			Temperature: math.Round(slot.Main.Temp),
			Humidity:    slot.Main.Humidity,
			Rainfall:    slot.Rain.ThreeHours,
			WindSpeed:   kmh(slot.Wind.Speed),
			Condition:   condition,
			Location:    result.City.Name,
		})
	}

	return out, nil
}

// kmh converts a wind speed from m/s to km/h, rounded.
func kmh(metersPerSecond float64) float64 {
	return math.Round(metersPerSecond * 3.6)
}

func mockObservation() Observation {
	conditions := []string{"Clear", "Clouds", "Rain", "Sunny"}
	condition := conditions[rand.Intn(len(conditions))]

	rainfall := 0.0
	if condition == "Rain" {
		rainfall = math.Round(rand.Float64() * 10)
	}

	return Observation{
		Temperature: math.Round(rand.Float64()*15 + 20),
		Humidity:    math.Round(rand.Float64()*40 + 40),
		Rainfall:    rainfall,
		WindSpeed:   math.Round(rand.Float64()*20 + 5),
		Condition:   condition,
		Location:    "Current Location",
	}
}
