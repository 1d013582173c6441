// Package photoprism talks to a PhotoPrism-compatible photo service to find
// low-quality photos and turn them into a batch manifest.
package photoprism

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"photo-cleaner/internal/logger"
)

const (
	DefaultBatchSize = 100

	// DefaultQuality is assumed for photos the service has not rated.
	DefaultQuality = 5

	maxErrorBody = 4096
)

var ErrNotAuthenticated = errors.New("photoprism: not logged in")

// Photo is the subset of the service's photo record the cleaner uses.
type Photo struct {
	UID      string `json:"UID,omitempty"`
	FileName string `json:"FileName"`
	Type     string `json:"Type,omitempty"`
	Quality  *int   `json:"Quality,omitempty"`
}

// EffectiveQuality returns the rated quality, or DefaultQuality when unrated.
func (p Photo) EffectiveQuality() int {
	if p.Quality == nil {
		return DefaultQuality
	}
	return *p.Quality
}

type Client struct {
	HTTPClient *http.Client
	BaseURL    string

	username string
	password string
	token    string
	logger   logger.Logger
}

func NewClient(httpClient *http.Client, baseURL, username, password string, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		HTTPClient: httpClient,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		logger:     log,
	}
}

// Login opens a session and keeps its id as the bearer token.
func (c *Client) Login(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{"username": c.username, "password": c.password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/session", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("login", resp)
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return fmt.Errorf("failed to decode session: %w", err)
	}
	if session.ID == "" {
		return fmt.Errorf("login response carried no session id")
	}

	c.token = session.ID
	c.logger.Info("PhotoPrism", "session opened", map[string]interface{}{"url": c.BaseURL})
	return nil
}

// ListPhotos pages through every photo, batchSize at a time, until the
// service returns an empty or short page.
func (c *Client) ListPhotos(ctx context.Context, batchSize int) ([]Photo, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var all []Photo
	offset := 0
	for {
		page, err := c.fetchPage(ctx, batchSize, offset)
		if err != nil {
			return nil, err
		}

		c.logger.Debug("PhotoPrism", "page fetched", map[string]interface{}{
			"offset": offset,
			"count":  len(page),
		})

		all = append(all, page...)
		offset += len(page)
		if len(page) < batchSize {
			return all, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, count, offset int) ([]Photo, error) {
	query := url.Values{}
	query.Set("count", strconv.Itoa(count))
	query.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/photos?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("photo listing failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("photo listing", resp)
	}

	var page []Photo
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode photo page at offset %d: %w", offset, err)
	}
	return page, nil
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%s: status %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(body)))
}
