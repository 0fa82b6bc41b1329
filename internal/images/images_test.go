package images

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, "key-1", 5*time.Second)
	client.pick = func(n int) int { return 0 }
	return client
}

func TestSearchReturnsPhotoWithCredit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Client-ID key-1" {
			t.Errorf("auth header = %q", got)
		}
		if got := r.URL.Query().Get("query"); got != "cloud security" {
			t.Errorf("query = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"urls": map[string]any{"regular": "https://img.example/1.jpg"},
					"user": map[string]any{"name": "Ada Photographer"},
				},
			},
		})
	})

	photo, err := client.Search(context.Background(), "cloud security")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if photo == nil || photo.URL != "https://img.example/1.jpg" || photo.Credit != "Ada Photographer" {
		t.Fatalf("photo = %+v", photo)
	}
}

func TestSearchNoHitsIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	photo, err := client.Search(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if photo != nil {
		t.Fatalf("photo = %+v, want nil", photo)
	}
}

func TestSearchErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})
	if _, err := client.Search(context.Background(), "anything"); err == nil {
		t.Fatal("http error status must surface")
	}

	unconfigured := NewClient("http://example.invalid", "", time.Second)
	if _, err := unconfigured.Search(context.Background(), "anything"); err == nil {
		t.Fatal("missing api key must fail")
	}
}
