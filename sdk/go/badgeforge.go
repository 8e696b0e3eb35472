package badgeforge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the configuration for the BadgeForge client.
type Config struct {
	// BaseURL is the root URL of the BadgeForge server.
	// Examples: "https://badges.example.com" or "https://badges.example.com/api/v1"
	// The "/api/v1" suffix is appended automatically if missing.
	BaseURL string

	// HTTPClient is an optional custom HTTP client.
	// If nil, a default client with 10s timeout is used.
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if !strings.HasSuffix(c.BaseURL, "/api/v1") {
		c.BaseURL = c.BaseURL + "/api/v1"
	}
}

// Client is the BadgeForge SDK client.
type Client struct {
	cfg Config
}

// NewClient creates a new BadgeForge client with the given configuration.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg}
}

// CreateIssuer registers a badge-issuing organization.
func (c *Client) CreateIssuer(ctx context.Context, req CreateIssuerRequest) (*Issuer, error) {
	body, err := c.post(ctx, "/issuers", req)
	if err != nil {
		return nil, err
	}

	var issuer Issuer
	if err := json.Unmarshal(body, &issuer); err != nil {
		return nil, fmt.Errorf("badgeforge: failed to parse issuer response: %w", err)
	}
	return &issuer, nil
}

// GetIssuer retrieves a registered issuer by id.
func (c *Client) GetIssuer(ctx context.Context, id string) (*Issuer, error) {
	body, err := c.get(ctx, "/issuers/"+id)
	if err != nil {
		return nil, err
	}

	var issuer Issuer
	if err := json.Unmarshal(body, &issuer); err != nil {
		return nil, fmt.Errorf("badgeforge: failed to parse issuer response: %w", err)
	}
	return &issuer, nil
}

// GetIssuerKey retrieves the active verification key for an issuer.
func (c *Client) GetIssuerKey(ctx context.Context, issuerID string) (*IssuerKey, error) {
	body, err := c.get(ctx, "/issuers/"+issuerID+"/key")
	if err != nil {
		return nil, err
	}

	var key IssuerKey
	if err := json.Unmarshal(body, &key); err != nil {
		return nil, fmt.Errorf("badgeforge: failed to parse key response: %w", err)
	}
	return &key, nil
}

// CreateBadgeClass defines a new achievement under an issuer.
func (c *Client) CreateBadgeClass(ctx context.Context, req CreateBadgeClassRequest) (*BadgeClass, error) {
	body, err := c.post(ctx, "/badges", req)
	if err != nil {
		return nil, err
	}

	var badge BadgeClass
	if err := json.Unmarshal(body, &badge); err != nil {
		return nil, fmt.Errorf("badgeforge: failed to parse badge response: %w", err)
	}
	return &badge, nil
}

// IssueAssertion awards a badge to a recipient. The response carries the
// stored assertion with its signed credential document, and the compact
// token when mode is "compact".
func (c *Client) IssueAssertion(ctx context.Context, req IssueAssertionRequest) (*IssueAssertionResponse, error) {
	body, err := c.post(ctx, "/assertions", req)
	if err != nil {
		return nil, err
	}

	var resp IssueAssertionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("badgeforge: failed to parse assertion response: %w", err)
	}
	return &resp, nil
}

// GetAssertion retrieves a stored assertion by id.
func (c *Client) GetAssertion(ctx context.Context, id string) (*Assertion, error) {
	body, err := c.get(ctx, "/assertions/"+id)
	if err != nil {
		return nil, err
	}

	var assertion Assertion
	if err := json.Unmarshal(body, &assertion); err != nil {
		return nil, fmt.Errorf("badgeforge: failed to parse assertion response: %w", err)
	}
	return &assertion, nil
}

// RevokeAssertion marks an issued badge as revoked.
func (c *Client) RevokeAssertion(ctx context.Context, id, reason string) error {
	_, err := c.post(ctx, "/assertions/"+id+"/revoke", map[string]string{
		"reason": reason,
	})
	return err
}

// VerifyAssertion runs the hosted verification pipeline against a stored
// assertion.
func (c *Client) VerifyAssertion(ctx context.Context, id string) (*VerificationResult, error) {
	body, err := c.get(ctx, "/assertions/"+id+"/verify")
	if err != nil {
		return nil, err
	}

	var result VerificationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("badgeforge: failed to parse verification response: %w", err)
	}
	return &result, nil
}

// VerifyDocument verifies a credential document held by the caller.
func (c *Client) VerifyDocument(ctx context.Context, document map[string]interface{}) (*VerificationResult, error) {
	body, err := c.post(ctx, "/verify", map[string]interface{}{
		"document": document,
	})
	if err != nil {
		return nil, err
	}

	var result VerificationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("badgeforge: failed to parse verification response: %w", err)
	}
	return &result, nil
}

// get sends a GET request to the BadgeForge API.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("badgeforge: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// post sends a POST request to the BadgeForge API.
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("badgeforge: failed to marshal request: %w", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("badgeforge: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("badgeforge: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("badgeforge: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	return body, nil
}
