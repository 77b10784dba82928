// Package metadata looks up public information about Dailymotion videos for
// moderators. It is independent of queue state.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fields requested from the provider.
const Fields = "id,title,channel,owner,filmstrip_60_url,embed_url"

// ErrUpstream is returned for any failed provider call.
var ErrUpstream = errors.New("metadata provider request failed")

// Metadata is the subset of provider fields shown to moderators.
type Metadata struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Channel      string `json:"channel"`
	Owner        string `json:"owner"`
	FilmstripURL string `json:"filmstrip_60_url"`
	EmbedURL     string `json:"embed_url"`
}

// Fetcher retrieves metadata for one video.
type Fetcher interface {
	FetchMetadata(ctx context.Context, videoID string) (*Metadata, error)
}

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("metadata provider returned %d", e.StatusCode)
	}
	return fmt.Sprintf("metadata provider returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrUpstream
}

// Client calls the Dailymotion video API.
type Client struct {
	http    HTTPClient
	baseURL string
}

// NewClient creates a Client. baseURL is the video endpoint prefix, e.g.
// https://api.dailymotion.com/video/.
func NewClient(httpClient HTTPClient, baseURL string, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
	}
}

// FetchMetadata requests the video's public fields.
func (c *Client) FetchMetadata(ctx context.Context, videoID string) (*Metadata, error) {
	endpoint := c.baseURL + url.PathEscape(videoID) + "?" + url.Values{"fields": {Fields}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var md Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, fmt.Errorf("%w: decode body: %w", ErrUpstream, err)
	}

	return &md, nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Type = payload.Error.Type
		apiErr.Message = payload.Error.Message
	}

	return apiErr
}
