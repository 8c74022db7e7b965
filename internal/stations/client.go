// Package stations is the client for the WindMobile station API.
//
// The API serves the list of weather stations and, per station, the last
// measurement message:
//
//	GET /stations        → []Station
//	GET /stations/{id}   → Station (with LastMessage)
//
// ListTask and StationTask adapt the client into worker tasks so the station
// list and the selected station can each be held by a holder.Holder.
package stations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Error sources reported with job failures.
const (
	SourceStationList = "stationlist"
	SourceStationInfo = "stationinfo"
)

var (
	// ErrUnexpectedStatus indicates the API answered with a non-2xx status
	ErrUnexpectedStatus = errors.New("unexpected status from station API")

	// ErrEmptyStationID indicates a station lookup without an id
	ErrEmptyStationID = errors.New("station id is required")
)

// Client fetches stations from the WindMobile API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// ClientConfig holds configuration for the station client.
type ClientConfig struct {
	// BaseURL is the API base URL (e.g., "https://api.windmobile.ch")
	BaseURL string

	// Timeout is the HTTP request timeout (default: 10s)
	Timeout time.Duration

	// UserAgent is sent with every request (optional)
	UserAgent string
}

// NewClient creates a new station client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "windmobile-cli"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
	}
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// List returns all stations.
func (c *Client) List(ctx context.Context) ([]Station, error) {
	var list []Station
	if err := c.get(ctx, "/stations", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns a single station with its last message.
func (c *Client) Get(ctx context.Context, id string) (*Station, error) {
	if id == "" {
		return nil, ErrEmptyStationID
	}
	var st Station
	if err := c.get(ctx, "/stations/"+url.PathEscape(id), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
