// Package images finds illustration photos through an Unsplash-style search
// API. Posts work without an image, so callers treat an empty result as a
// normal outcome.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"beacon/internal/services"
)

// Photo is a search hit: a hotlinkable image URL plus author credit.
type Photo struct {
	URL    string
	Credit string
}

// Client queries the photo search API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pick       func(n int) int
}

// NewClient builds a photo search client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		pick:       rand.IntN,
	}
}

// Search returns a random photo among the top hits for the query. A query
// with no hits returns (nil, nil).
func (c *Client) Search(ctx context.Context, query string) (*Photo, error) {
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "images", "search", "api key not configured", nil)
	}

	endpoint := fmt.Sprintf("%s/search/photos?query=%s&per_page=5", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "images", "search", "build request", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "images", "search", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrExternalService, "images", "search",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	var decoded struct {
		Results []struct {
			URLs struct {
				Regular string `json:"regular"`
				Small   string `json:"small"`
			} `json:"urls"`
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "images", "search", "decode response", err)
	}
	if len(decoded.Results) == 0 {
		return nil, nil
	}

	hit := decoded.Results[c.pick(len(decoded.Results))]
	photoURL := hit.URLs.Regular
	if photoURL == "" {
		photoURL = hit.URLs.Small
	}
	if photoURL == "" {
		return nil, nil
	}
	credit := hit.User.Name
	if credit == "" {
		credit = "Unsplash"
	}
	return &Photo{URL: photoURL, Credit: credit}, nil
}
