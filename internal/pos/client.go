package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"qrmenu/internal/config"

	"go.uber.org/zap"
)

var ErrUnauthorized = errors.New("pos: unauthorized")

// StatusError is returned for any other non-2xx POS response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pos: status %d: %s", e.StatusCode, e.Body)
}

// TokenSource supplies and refreshes the bearer credential. Implemented
// by auth.TokenManager.
type TokenSource interface {
	Token() (string, bool)
	IsValid() bool
	RefreshInFlight() bool
	RefreshToken(ctx context.Context) error
}

// Client talks to the remote point-of-sale API. Every call carries the
// static API key; authenticated calls add the bearer token.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tokens     TokenSource
	logger     *zap.Logger
}

func NewClient(cfg config.POSConfig, tokens TokenSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		logger:     logger,
	}
}

// Authenticated runs fn with a guaranteed credential: a valid token is
// used directly; otherwise the call joins or triggers a refresh first.
// If fn still comes back unauthorized and no refresh is in flight, exactly
// one forced refresh and one retry happen; a second unauthorized failure
// propagates unchanged.
func (c *Client) Authenticated(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	if !c.tokens.IsValid() {
		// Joins an in-flight refresh when one is running, so a burst of
		// callers discovering an expired token issues a single login.
		if err := c.tokens.RefreshToken(ctx); err != nil {
			return err
		}
	}

	token, ok := c.tokens.Token()
	if !ok {
		return ErrUnauthorized
	}

	err := fn(ctx, token)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}
	if c.tokens.RefreshInFlight() {
		return err
	}

	c.logger.Info("Request unauthorized, forcing one token refresh")
	if refreshErr := c.tokens.RefreshToken(ctx); refreshErr != nil {
		return refreshErr
	}
	token, ok = c.tokens.Token()
	if !ok {
		return ErrUnauthorized
	}
	return fn(ctx, token)
}

// FindCategories fetches the raw product-category listing.
func (c *Client) FindCategories(ctx context.Context) (interface{}, error) {
	var response interface{}
	err := c.Authenticated(ctx, func(ctx context.Context, token string) error {
		return c.getJSON(ctx, "/ProductCategory/FindMany", nil, token, &response)
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// FindProducts fetches the full raw product listing.
func (c *Client) FindProducts(ctx context.Context) (interface{}, error) {
	var response interface{}
	err := c.Authenticated(ctx, func(ctx context.Context, token string) error {
		return c.getJSON(ctx, "/Product/FindMany", nil, token, &response)
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// FindSellingProducts fetches the raw selling-product listing, optionally
// scoped to one category.
func (c *Client) FindSellingProducts(ctx context.Context, categoryUID string) (interface{}, error) {
	query := url.Values{}
	if categoryUID != "" {
		query.Set("productcategoryUid", categoryUID)
	}

	var response interface{}
	err := c.Authenticated(ctx, func(ctx context.Context, token string) error {
		return c.getJSON(ctx, "/Product/FindSellingProducts", query, token, &response)
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// InsertOrder submits the POS order payload and returns the raw response.
func (c *Client) InsertOrder(ctx context.Context, payload map[string]interface{}) (interface{}, error) {
	var response interface{}
	err := c.Authenticated(ctx, func(ctx context.Context, token string) error {
		return c.postJSON(ctx, "/ClientOrder/Insert", payload, token, &response)
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// ImageURL builds the locator for a content-addressed image identifier.
func (c *Client) ImageURL(imageUID string) string {
	return fmt.Sprintf("%s/file/getImage?imageUid=%s", c.baseURL, url.QueryEscape(imageUID))
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, token string, out *interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, token)

	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, token string, out *interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, token)

	return c.do(req, out)
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) do(req *http.Request, out *interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("POS request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
