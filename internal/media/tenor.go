package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTenorBaseURL = "https://tenor.googleapis.com/v2"
	defaultTenorLimit   = 10
)

// TenorSearcher resolves keywords through the Tenor search API.
type TenorSearcher struct {
	apiKey    string
	clientKey string
	limit     int
	baseURL   string
	client    *http.Client
	pick      func(n int) int
}

// NewTenorSearcher creates a searcher. Empty baseURL and non-positive
// limit select the public endpoint and 10 results.
func NewTenorSearcher(apiKey, clientKey, baseURL string, limit int) *TenorSearcher {
	if baseURL == "" {
		baseURL = defaultTenorBaseURL
	}
	if limit <= 0 {
		limit = defaultTenorLimit
	}
	return &TenorSearcher{
		apiKey:    apiKey,
		clientKey: clientKey,
		limit:     limit,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
		pick:      rand.IntN,
	}
}

// Name returns "tenor".
func (s *TenorSearcher) Name() string { return "tenor" }

type tenorResponse struct {
	Results []struct {
		MediaFormats struct {
			Gif struct {
				URL string `json:"url"`
			} `json:"gif"`
		} `json:"media_formats"`
	} `json:"results"`
}

// Resolve searches for keyword and returns the GIF URL of a random result.
func (s *TenorSearcher) Resolve(ctx context.Context, keyword string) (string, error) {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("key", s.apiKey)
	if s.clientKey != "" {
		q.Set("client_key", s.clientKey)
	}
	q.Set("limit", strconv.Itoa(s.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tenor search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tenor search: status %d", resp.StatusCode)
	}

	var result tenorResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode tenor response: %w", err)
	}
	if len(result.Results) == 0 {
		return "", nil
	}
	return result.Results[s.pick(len(result.Results))].MediaFormats.Gif.URL, nil
}
