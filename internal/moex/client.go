// Package moex is a quote service backed by the Moscow Exchange ISS API.
package moex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/camuig/rus-portfolio/internal/logger"
)

const (
	DefaultBaseURL = "https://iss.moex.com"
	DefaultBoard   = "TQBR"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	board      string
	logger     *logger.Logger
	now        func() time.Time
}

// NewClient creates an ISS client. Empty baseURL and board fall back to the
// public endpoint and the main share board.
func NewClient(baseURL, board string, timeout time.Duration, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if board == "" {
		board = DefaultBoard
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		board:      board,
		logger:     log,
		now:        time.Now,
	}
}

// getJSON fetches an ISS document and decodes it into out. Numbers are kept
// as json.Number so prices can be parsed exactly.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("MOEX ISS returned status %d for %s", resp.StatusCode, path)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse ISS response: %w", err)
	}
	return nil
}
