// Package upbit implements the live exchange gateway against the Upbit REST
// API.
package upbit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"upbot/internal/pkg/circuit"
)

const defaultBaseURL = "https://api.upbit.com"

// Client wraps the subset of the Upbit REST API the agent needs. All calls
// pass through a circuit breaker; an open breaker fails fast and the tick
// supervisor handles recovery.
type Client struct {
	baseURL    string
	httpClient *http.Client
	accessKey  string
	secretKey  string
	breaker    *circuit.CircuitBreaker
}

func NewClient(baseURL, accessKey, secretKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		accessKey:  accessKey,
		secretKey:  secretKey,
		breaker:    circuit.NewCircuitBreaker("upbit", 5, 30*time.Second),
	}
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) get(ctx context.Context, path string, query url.Values, authed bool) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, authed)
}

func (c *Client) post(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, query, true)
}

func (c *Client) delete(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, path, query, true)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, authed bool) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("upbit: circuit open, request to %s rejected", path)
	}
	encoded := query.Encode()
	endpoint := c.baseURL + path
	var body io.Reader
	switch method {
	case http.MethodPost:
		body = strings.NewReader(encoded)
	default:
		if encoded != "" {
			endpoint += "?" + encoded
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if authed {
		token, err := c.authToken(encoded)
		if err != nil {
			return nil, fmt.Errorf("upbit: build auth token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("upbit: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("upbit: read %s response: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		// 4xx is a request problem, not exchange unavailability
		if resp.StatusCode >= 500 {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		return payload, &APIError{Status: resp.StatusCode, Body: string(payload)}
	}
	c.breaker.RecordSuccess()
	return payload, nil
}

// APIError is a non-2xx response from Upbit.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upbit: status=%d body=%s", e.Status, e.Body)
}

// authToken builds the JWT bearer token Upbit expects: HS256 over
// {access_key, nonce, query_hash} where query_hash is the SHA512 hex digest
// of the encoded query string.
func (c *Client) authToken(encodedQuery string) (string, error) {
	if c.accessKey == "" || c.secretKey == "" {
		return "", fmt.Errorf("api keys not configured")
	}
	claims := map[string]any{
		"access_key": c.accessKey,
		"nonce":      uuid.NewString(),
	}
	if encodedQuery != "" {
		digest := sha512.Sum512([]byte(encodedQuery))
		claims["query_hash"] = hex.EncodeToString(digest[:])
		claims["query_hash_alg"] = "SHA512"
	}
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	enc := base64.RawURLEncoding
	signingInput := enc.EncodeToString(headerJSON) + "." + enc.EncodeToString(claimsJSON)
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(signingInput))
	return signingInput + "." + enc.EncodeToString(mac.Sum(nil)), nil
}
