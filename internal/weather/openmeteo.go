package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"
)

const (
	defaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	defaultArchiveURL  = "https://archive-api.open-meteo.com/v1/archive"
)

// Client talks to the Open-Meteo daily endpoints. The forecast and
// archive APIs share one response shape, so a single client serves both;
// Forecast and Archive return Source views bound to the right endpoint.
type Client struct {
	httpClient  *http.Client
	forecastURL string
	archiveURL  string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithEndpoints overrides the forecast and archive base URLs.
func WithEndpoints(forecastURL, archiveURL string) ClientOption {
	return func(c *Client) {
		if forecastURL != "" {
			c.forecastURL = forecastURL
		}
		if archiveURL != "" {
			c.archiveURL = archiveURL
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultFetchTimeout},
		forecastURL: defaultForecastURL,
		archiveURL:  defaultArchiveURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Forecast returns the near-future daily source.
func (c *Client) Forecast() Source {
	return SourceFunc(func(ctx context.Context, coords Coordinates, r core.DateRange) ([]Day, error) {
		return c.fetchDaily(ctx, c.forecastURL, coords, r)
	})
}

// Archive returns the past-dates daily source.
func (c *Client) Archive() Source {
	return SourceFunc(func(ctx context.Context, coords Coordinates, r core.DateRange) ([]Day, error) {
		return c.fetchDaily(ctx, c.archiveURL, coords, r)
	})
}

// dailyResponse mirrors the Open-Meteo daily payload: parallel arrays
// indexed by day.
type dailyResponse struct {
	Daily struct {
		Time             []string  `json:"time"`
		WeatherCode      []int     `json:"weathercode"`
		Temperature2mMax []float64 `json:"temperature_2m_max"`
		Temperature2mMin []float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

func (c *Client) fetchDaily(ctx context.Context, baseURL string, coords Coordinates, r core.DateRange) ([]Day, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', 4, 64))
	q.Set("start_date", r.Start.ISO())
	q.Set("end_date", r.End.ISO())
	q.Set("daily", "weathercode,temperature_2m_max,temperature_2m_min")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch daily weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daily weather endpoint returned %d", resp.StatusCode)
	}

	var payload dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode daily weather: %w", err)
	}

	days := make([]Day, 0, len(payload.Daily.Time))
	for i, iso := range payload.Daily.Time {
		date, err := core.ParseDate(iso)
		if err != nil {
			return nil, fmt.Errorf("malformed date %q in response: %w", iso, err)
		}
		d := Day{Date: date}
		if i < len(payload.Daily.WeatherCode) {
			d.Code = payload.Daily.WeatherCode[i]
		}
		if i < len(payload.Daily.Temperature2mMax) {
			d.TempMax = payload.Daily.Temperature2mMax[i]
		}
		if i < len(payload.Daily.Temperature2mMin) {
			d.TempMin = payload.Daily.Temperature2mMin[i]
		}
		days = append(days, d)
	}
	return days, nil
}
