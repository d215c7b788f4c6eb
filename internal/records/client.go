// Package records is the operator console's view of payment identity risk
// records: a client for the record API, the bundled fallback dataset, the
// stateful Store that reconciles the two, and the search/filter rules.
package records

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

	"github.com/upiguard/upiguard/internal/models"
)

// DefaultBaseURL is used when no API base URL is configured
const DefaultBaseURL = "http://localhost:8080/api/v1"

// ErrInvalidResponse means the API answered, but not with a well-formed
// success envelope
var ErrInvalidResponse = errors.New("invalid API response format")

// APIError is a non-2xx answer from the record API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("record API returned %d", e.StatusCode)
	}
	return fmt.Sprintf("record API returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the record API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a record API client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// WithToken returns a copy of c that sends token as a bearer credential.
// The API rejects anonymous writes with 401.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Success *bool           `json:"success"`
	Message string          `json:"message"`
}

type recordBody struct {
	Name   string              `json:"name"`
	UPIID  string              `json:"upiId"`
	Score  int                 `json:"score"`
	Status models.RecordStatus `json:"status"`
}

// List fetches every record. The envelope's data must be a JSON array.
func (c *Client) List(ctx context.Context) ([]models.UPIRecord, error) {
	env, err := c.do(ctx, http.MethodGet, "/upi-records", nil)
	if err != nil {
		return nil, err
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: data is not a list", ErrInvalidResponse)
	}
	var recs []models.UPIRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return recs, nil
}

// Get fetches one record
func (c *Client) Get(ctx context.Context, id string) (*models.UPIRecord, error) {
	env, err := c.do(ctx, http.MethodGet, "/upi-records/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(env)
}

// Create asks the API to store a new record; any id on rec is ignored
func (c *Client) Create(ctx context.Context, rec models.UPIRecord) (*models.UPIRecord, error) {
	env, err := c.do(ctx, http.MethodPost, "/upi-records", recordBody{
		Name:   rec.Name,
		UPIID:  rec.UPIID,
		Score:  rec.Score,
		Status: rec.Status,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(env)
}

// Update sends a partial update and returns the stored record
func (c *Client) Update(ctx context.Context, id string, patch models.UPIRecordPatch) (*models.UPIRecord, error) {
	env, err := c.do(ctx, http.MethodPut, "/upi-records/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, err
	}
	return decodeRecord(env)
}

// Delete removes a record
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/upi-records/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = env.Message
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, decodeErr)
	}
	if env.Success == nil || !*env.Success {
		if env.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, env.Message)
		}
		return nil, ErrInvalidResponse
	}
	return &env, nil
}

func decodeRecord(env *envelope) (*models.UPIRecord, error) {
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: data is not a record", ErrInvalidResponse)
	}
	var rec models.UPIRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("%w: record has no id", ErrInvalidResponse)
	}
	return &rec, nil
}
