package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestNewBraveSearch(t *testing.T) {
	t.Setenv("BRAVE_API_KEY", "")

	if _, err := NewBraveSearch(); err == nil {
		t.Error("Expected error without API key")
	}

	client, err := NewBraveSearch(WithBraveAPIKey("test-key"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if client.count != 10 {
		t.Errorf("Expected default count 10, got %d", client.count)
	}
}

func TestBraveCountClamping(t *testing.T) {
	client, err := NewBraveSearch(WithBraveAPIKey("k"), WithBraveCount(100))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if client.count != 20 {
		t.Errorf("Expected count clamped to 20, got %d", client.count)
	}

	client, err = NewBraveSearch(WithBraveAPIKey("k"), WithBraveCount(-5))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if client.count != 1 {
		t.Errorf("Expected count clamped to 1, got %d", client.count)
	}
}

func TestBraveSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "test-key" {
			t.Errorf("Missing subscription token header")
		}
		q := r.URL.Query()
		if q.Get("q") != "offshore wind" {
			t.Errorf("Unexpected query: %s", q.Get("q"))
		}
		if q.Get("count") != "2" {
			t.Errorf("Unexpected count: %s", q.Get("count"))
		}
		if q.Get("country") != "DE" {
			t.Errorf("Unexpected country: %s", q.Get("country"))
		}
		if q.Get("search_lang") != "de" {
			t.Errorf("Unexpected lang: %s", q.Get("search_lang"))
		}

		w.Write([]byte(`{"web":{"results":[
			{"title":"Wind Europe","url":"https://wind.example","description":"Auction results."}
		]}}`))
	}))
	defer server.Close()

	client, err := NewBraveSearch(
		WithBraveAPIKey("test-key"),
		WithBraveBaseURL(server.URL),
		WithBraveCount(2),
		WithBraveCountry("DE"),
		WithBraveLang("de"),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	results, err := client.Search(context.Background(), "offshore wind")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Title != "Wind Europe" {
		t.Errorf("Unexpected title: %s", results[0].Title)
	}
	if results[0].Snippet != "Auction results." {
		t.Errorf("Unexpected snippet: %s", results[0].Snippet)
	}
}

func TestBraveSearchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewBraveSearch(WithBraveAPIKey("bad-key"), WithBraveBaseURL(server.URL))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = client.Search(context.Background(), "query")
	if err == nil {
		t.Fatal("Expected error on 401")
	}
}

// TestBraveSearch_RealAPI runs against the live API.
// Skipped if BRAVE_API_KEY is not set.
func TestBraveSearch_RealAPI(t *testing.T) {
	if os.Getenv("BRAVE_API_KEY") == "" {
		t.Skip("BRAVE_API_KEY not set")
	}

	client, err := NewBraveSearch()
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	results, err := client.Search(context.Background(), "golang generics")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected results from live API")
	}
	t.Logf("Got %d results, first: %s", len(results), results[0].URL)
}
