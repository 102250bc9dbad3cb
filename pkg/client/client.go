package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/open-procurement/ecatalog/internal/models"
)

// Client is a Go SDK for the catalog API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new catalog client
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-2xx response. The body carries the field-scoped error
// structure for validation failures and {"detail": ...} otherwise.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// CriteriaListOptions contains filters for listing criteria
type CriteriaListOptions struct {
	Name                       string
	ClassificationID           string
	AdditionalClassificationID string
	UnitCode                   string
	Status                     string
	Ordering                   string
	OptFields                  string
	Limit                      int
	Offset                     int
}

// ProfileListOptions contains filters for listing profiles
type ProfileListOptions struct {
	ClassificationID          string
	ClassificationDescription string
	Author                    string
	Status                    string
	RelatedCriteriaID         string
	Ordering                  string
	Limit                     int
	Offset                    int
}

// ProfileAccess is the one-time create envelope carrying the owner token.
type ProfileAccess struct {
	Access models.AccessData `json:"access"`
	Data   *models.Profile   `json:"data"`
}

// ProfileList is the paginated profiles listing.
type ProfileList struct {
	Results []*models.Profile `json:"results"`
	Total   int               `json:"total"`
}

// CreateCriterion creates a new catalog criterion (admin only)
func (c *Client) CreateCriterion(ctx context.Context, req models.CriterionCreate) (*models.Criterion, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/0/criteria/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var criterion models.Criterion
	if err := json.Unmarshal(resp, &criterion); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &criterion, nil
}

// GetCriterion retrieves a criterion by ID
func (c *Client) GetCriterion(ctx context.Context, id string) (*models.Criterion, error) {
	resp, err := c.doRequest(ctx, "GET", fmt.Sprintf("/api/0/criteria/%s/", id), nil)
	if err != nil {
		return nil, err
	}

	var criterion models.Criterion
	if err := json.Unmarshal(resp, &criterion); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &criterion, nil
}

// ListCriteria retrieves criteria matching the filters. Fields outside the
// default projection come back only when named in OptFields.
func (c *Client) ListCriteria(ctx context.Context, opts CriteriaListOptions) ([]*models.Criterion, error) {
	query := url.Values{}
	setIf(query, "name", opts.Name)
	setIf(query, "classification_id", opts.ClassificationID)
	setIf(query, "additional_classification_id", opts.AdditionalClassificationID)
	setIf(query, "unit_code", opts.UnitCode)
	setIf(query, "status", opts.Status)
	setIf(query, "ordering", opts.Ordering)
	setIf(query, "opt_fields", opts.OptFields)
	setPage(query, opts.Limit, opts.Offset)

	resp, err := c.doRequest(ctx, "GET", "/api/0/criteria/?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var criteria []*models.Criterion
	if err := json.Unmarshal(resp, &criteria); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return criteria, nil
}

// PatchCriterion applies a partial update to a criterion (admin only)
func (c *Client) PatchCriterion(ctx context.Context, id string, patch map[string]any) (*models.Criterion, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "PATCH", fmt.Sprintf("/api/0/criteria/%s/", id), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var criterion models.Criterion
	if err := json.Unmarshal(resp, &criterion); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &criterion, nil
}

// RetireCriterion soft-deletes a criterion (admin only)
func (c *Client) RetireCriterion(ctx context.Context, id string) (*models.Criterion, error) {
	resp, err := c.doRequest(ctx, "DELETE", fmt.Sprintf("/api/0/criteria/%s/", id), nil)
	if err != nil {
		return nil, err
	}

	var criterion models.Criterion
	if err := json.Unmarshal(resp, &criterion); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &criterion, nil
}

// CreateProfile creates a new profile. The returned envelope is the only
// place the owner token is ever displayed.
func (c *Client) CreateProfile(ctx context.Context, req models.ProfileCreate) (*ProfileAccess, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/0/profiles/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var envelope ProfileAccess
	if err := json.Unmarshal(resp, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &envelope, nil
}

// GetProfile retrieves a profile by ID
func (c *Client) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	resp, err := c.doRequest(ctx, "GET", fmt.Sprintf("/api/0/profiles/%s/", id), nil)
	if err != nil {
		return nil, err
	}

	var p models.Profile
	if err := json.Unmarshal(resp, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &p, nil
}

// ListProfiles retrieves profiles matching the filters
func (c *Client) ListProfiles(ctx context.Context, opts ProfileListOptions) (*ProfileList, error) {
	query := url.Values{}
	setIf(query, "classification_id", opts.ClassificationID)
	setIf(query, "classification_description", opts.ClassificationDescription)
	setIf(query, "author", opts.Author)
	setIf(query, "status", opts.Status)
	setIf(query, "criteria_requirementGroups_requirements_relatedCriteria_id", opts.RelatedCriteriaID)
	setIf(query, "ordering", opts.Ordering)
	setPage(query, opts.Limit, opts.Offset)

	resp, err := c.doRequest(ctx, "GET", "/api/0/profiles/?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var list ProfileList
	if err := json.Unmarshal(resp, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &list, nil
}

// PatchProfile applies a token-gated merge patch to a profile
func (c *Client) PatchProfile(ctx context.Context, id string, access models.AccessData, data map[string]any) (*models.Profile, error) {
	body, err := json.Marshal(map[string]any{
		"access": access,
		"data":   data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "PATCH", fmt.Sprintf("/api/0/profiles/%s/", id), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var p models.Profile
	if err := json.Unmarshal(resp, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &p, nil
}

// DestroyProfile hides a profile. The row survives with status hidden.
func (c *Client) DestroyProfile(ctx context.Context, id string, access models.AccessData) (*models.Profile, error) {
	body, err := json.Marshal(map[string]any{"access": access})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "DELETE", fmt.Sprintf("/api/0/profiles/%s/", id), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var p models.Profile
	if err := json.Unmarshal(resp, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &p, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

func setIf(query url.Values, key, value string) {
	if value != "" {
		query.Set(key, value)
	}
}

func setPage(query url.Values, limit, offset int) {
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
