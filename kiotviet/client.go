package kiotviet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gaolamthuy/glt-backend/config"
	"github.com/gaolamthuy/glt-backend/utils"
	"github.com/sirupsen/logrus"
)

const bodyExcerptLimit = 200

// Client issues authenticated requests against the KiotViet public API.
// It is safe for use across concurrent runs; the politeness delay between
// list requests is enforced per client.
type Client struct {
	cfg    config.KiotvietConfig
	http   *http.Client
	tokens *TokenProvider
	logger *logrus.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

func NewClient(cfg config.KiotvietConfig, store CredentialStore, logger *logrus.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: NewTokenProvider(cfg, store, logger),
		logger: logger,
	}
}

func (c *Client) Tokens() *TokenProvider {
	return c.tokens
}

// getList performs one GET against a list endpoint. Non-2xx responses come
// back as *statusError so the fetcher can decide whether to refresh the
// bearer or back off; 2xx bodies that violate the list contract come back
// as *ContractError.
func (c *Client) getList(ctx context.Context, collection string, params url.Values) (*ListResponse, error) {
	if err := c.politeWait(ctx); err != nil {
		return nil, err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.cfg.PublicAPIURL + "/" + strings.TrimLeft(collection, "/")
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Retailer", c.cfg.Retailer)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{
			Status:  resp.StatusCode,
			Excerpt: utils.Truncate(strings.TrimSpace(string(body)), bodyExcerptLimit),
		}
	}

	var parsed ListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ContractError{
			Reason:  fmt.Sprintf("invalid json: %v", err),
			Excerpt: utils.Truncate(string(body), bodyExcerptLimit),
		}
	}
	if parsed.Total == nil {
		return nil, &ContractError{
			Reason:  "missing total",
			Excerpt: utils.Truncate(string(body), bodyExcerptLimit),
		}
	}
	if parsed.Data == nil {
		return nil, &ContractError{
			Reason:  "missing data",
			Excerpt: utils.Truncate(string(body), bodyExcerptLimit),
		}
	}
	return &parsed, nil
}

// politeWait spaces list requests out to stay under the upstream rate limit.
func (c *Client) politeWait(ctx context.Context) error {
	c.mu.Lock()
	wait := c.cfg.RequestDelay - time.Since(c.lastRequest)
	c.lastRequest = time.Now().Add(max(wait, 0))
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
