package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeocodeResolvesAlias(t *testing.T) {
	var gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName = r.URL.Query().Get("name")
		_, _ = w.Write([]byte(`{"results":[{"name":"Taipei","latitude":25.03,"longitude":121.56,"country":"Taiwan"}]}`))
	}))
	defer srv.Close()

	g := NewGeocoder(WithGeocodeEndpoint(srv.URL))
	loc, err := g.Geocode(context.Background(), "台北", "zh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotName != "Taipei" {
		t.Fatalf("queried name = %q, want alias-resolved %q", gotName, "Taipei")
	}
	if loc.Lat != 25.03 || loc.Lon != 121.56 || loc.Name != "Taipei" {
		t.Fatalf("loc = %+v", loc)
	}
}

func TestGeocodeRetriesWithoutLanguage(t *testing.T) {
	var langs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("language")
		langs = append(langs, lang)
		if lang != "" {
			_, _ = w.Write([]byte(`{"results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"name":"Hualien City","latitude":23.97,"longitude":121.60,"country":"Taiwan"}]}`))
	}))
	defer srv.Close()

	g := NewGeocoder(WithGeocodeEndpoint(srv.URL))
	loc, err := g.Geocode(context.Background(), "Hualien", "zh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(langs) != 2 || langs[0] != "zh" || langs[1] != "" {
		t.Fatalf("language attempts = %v, want hinted then bare", langs)
	}
	if loc.Name != "Hualien City" {
		t.Fatalf("loc = %+v", loc)
	}
}

func TestGeocodeNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	g := NewGeocoder(WithGeocodeEndpoint(srv.URL))
	_, err := g.Geocode(context.Background(), "nowhere-at-all", "")
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}

func TestGeocodeEmptyPlace(t *testing.T) {
	g := NewGeocoder()
	if _, err := g.Geocode(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for empty place")
	}
}
