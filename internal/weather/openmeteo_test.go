package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"
)

func TestClientFetchDaily(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"latitude":   q.Get("latitude"),
			"start_date": q.Get("start_date"),
			"end_date":   q.Get("end_date"),
			"daily":      q.Get("daily"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"daily":{
			"time":["2026-03-01","2026-03-02"],
			"weathercode":[0,61],
			"temperature_2m_max":[21.5,18.0],
			"temperature_2m_min":[12.1,11.4]}}`))
	}))
	defer srv.Close()

	c := NewClient(WithEndpoints(srv.URL, srv.URL))
	r := core.DateRange{Start: core.NewDate(2026, 3, 1), End: core.NewDate(2026, 3, 2)}
	days, err := c.Forecast().Fetch(context.Background(), Coordinates{Lat: 25.03, Lon: 121.56}, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery["latitude"] != "25.0300" {
		t.Fatalf("latitude = %q", gotQuery["latitude"])
	}
	if gotQuery["start_date"] != "2026-03-01" || gotQuery["end_date"] != "2026-03-02" {
		t.Fatalf("date params = %q..%q", gotQuery["start_date"], gotQuery["end_date"])
	}
	if gotQuery["daily"] != "weathercode,temperature_2m_max,temperature_2m_min" {
		t.Fatalf("daily param = %q", gotQuery["daily"])
	}

	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}
	if days[0].Code != 0 || days[0].TempMax != 21.5 || days[0].TempMin != 12.1 {
		t.Fatalf("days[0] = %+v", days[0])
	}
	if days[1].Date.ISO() != "2026-03-02" || days[1].Code != 61 {
		t.Fatalf("days[1] = %+v", days[1])
	}
}

func TestClientFetchDailyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(WithEndpoints(srv.URL, srv.URL))
	r := core.DateRange{Start: core.NewDate(2026, 3, 1), End: core.NewDate(2026, 3, 2)}
	if _, err := c.Archive().Fetch(context.Background(), Coordinates{Lat: 1, Lon: 1}, r); err == nil {
		t.Fatal("expected error on 502 response")
	}
}

func TestClientFetchDailyMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"daily":`))
	}))
	defer srv.Close()

	c := NewClient(WithEndpoints(srv.URL, srv.URL))
	r := core.DateRange{Start: core.NewDate(2026, 3, 1), End: core.NewDate(2026, 3, 2)}
	if _, err := c.Forecast().Fetch(context.Background(), Coordinates{Lat: 1, Lon: 1}, r); err == nil {
		t.Fatal("expected error on truncated body")
	}
}
