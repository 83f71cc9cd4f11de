// Package client talks to the public pricing API and falls back to the local
// evaluator when the API cannot answer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
	"github.com/google/uuid"
)

const (
	defaultTimeout             = 5 * time.Second
	calculatePath              = "/api/public/v1/pricing/calculate"
	productPathPrefix          = "/api/public/v1/products/"
	responseBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("pricing api base url is required")

// Client calls the pricing endpoints of the public API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBearerToken attaches an Authorization header to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithTimeout replaces the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("parse pricing api base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Product is the public catalog view of a product.
type Product struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	ImageURL    string         `json:"image_url"`
	Stock       int            `json:"stock"`
	IsActive    bool           `json:"is_active"`
	Pricing     pricing.Record `json:"pricing"`
}

type calculateRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// Calculate asks the server to price quantity units of productID. Transport
// failures and non-2xx answers are returned as dependency errors.
func (c *Client) Calculate(ctx context.Context, productID uuid.UUID, quantity int) (pricing.Result, error) {
	if c == nil {
		return pricing.Result{}, pkgerrors.New(pkgerrors.CodeDependency, "pricing client not configured")
	}
	payload, err := json.Marshal(calculateRequest{ProductID: productID, Quantity: quantity})
	if err != nil {
		return pricing.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal pricing request")
	}

	var out envelope[pricing.Result]
	if err := c.do(ctx, http.MethodPost, calculatePath, bytes.NewReader(payload), &out); err != nil {
		return pricing.Result{}, err
	}
	return out.Data, nil
}

// Product fetches the public record of one product.
func (c *Client) Product(ctx context.Context, productID uuid.UUID) (Product, error) {
	if c == nil {
		return Product{}, pkgerrors.New(pkgerrors.CodeDependency, "pricing client not configured")
	}
	var out envelope[Product]
	if err := c.do(ctx, http.MethodGet, productPathPrefix+url.PathEscape(productID.String()), nil, &out); err != nil {
		return Product{}, err
	}
	return out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build pricing request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute pricing request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"pricing request failed",
		).WithDetails(map[string]any{"status": resp.StatusCode, "path": path})
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode pricing response")
	}
	return nil
}
