package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultGeocodeURL = "https://geocoding-api.open-meteo.com/v1/search"

// ErrNoResults means the geocoding endpoint matched nothing, even after
// the retry without a language hint.
var ErrNoResults = errors.New("geocoding returned no results")

// cityAliases maps destination names the form accepts in local script to
// the query text the geocoding endpoint resolves best.
var cityAliases = map[string]string{
	"台北": "Taipei",
	"臺北": "Taipei",
	"高雄": "Kaohsiung",
	"台中": "Taichung",
	"台南": "Tainan",
	"東京": "Tokyo",
	"大阪": "Osaka",
	"京都": "Kyoto",
	"首爾": "Seoul",
	"曼谷": "Bangkok",
}

// Location is a geocoding match.
type Location struct {
	Coordinates
	Name    string
	Country string
}

// Geocoder resolves free-text place names to coordinates.
type Geocoder struct {
	httpClient *http.Client
	baseURL    string
}

// GeocoderOption customizes a Geocoder.
type GeocoderOption func(*Geocoder)

// WithGeocodeEndpoint overrides the search base URL.
func WithGeocodeEndpoint(baseURL string) GeocoderOption {
	return func(g *Geocoder) {
		if baseURL != "" {
			g.baseURL = baseURL
		}
	}
}

// WithGeocodeHTTPClient overrides the underlying HTTP client.
func WithGeocodeHTTPClient(hc *http.Client) GeocoderOption {
	return func(g *Geocoder) { g.httpClient = hc }
}

func NewGeocoder(opts ...GeocoderOption) *Geocoder {
	g := &Geocoder{
		httpClient: &http.Client{Timeout: DefaultFetchTimeout},
		baseURL:    defaultGeocodeURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode returns the best match for place. The alias table is consulted
// first so known city names in local script resolve deterministically.
// If the language-hinted search matches nothing, it is retried once
// without the hint.
func (g *Geocoder) Geocode(ctx context.Context, place, lang string) (Location, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return Location{}, errors.New("empty place name")
	}
	if alias, ok := cityAliases[place]; ok {
		place = alias
	}

	loc, err := g.search(ctx, place, lang)
	if err == nil || !errors.Is(err, ErrNoResults) || lang == "" {
		return loc, err
	}
	return g.search(ctx, place, "")
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
	} `json:"results"`
}

func (g *Geocoder) search(ctx context.Context, place, lang string) (Location, error) {
	q := url.Values{}
	q.Set("name", place)
	q.Set("count", "1")
	if lang != "" {
		q.Set("language", lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Location{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("search place: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geocoding endpoint returned %d", resp.StatusCode)
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Location{}, fmt.Errorf("decode geocoding response: %w", err)
	}
	if len(payload.Results) == 0 {
		return Location{}, ErrNoResults
	}

	best := payload.Results[0]
	return Location{
		Coordinates: Coordinates{Lat: best.Latitude, Lon: best.Longitude},
		Name:        best.Name,
		Country:     best.Country,
	}, nil
}
