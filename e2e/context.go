package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// TestContext carries shared state across steps of one scenario: the target
// service, the acting identity, and the last HTTP exchange.
type TestContext struct {
	BaseURL string
	Client  *http.Client

	UserID   string
	TenantID string

	LastStatus int
	LastBody   map[string]interface{}

	// Saved values carried between steps, e.g. a minted image token or an
	// issued connector credential.
	Saved map[string]string
}

// NewTestContext builds a context targeting SEALPROOF_E2E_BASE_URL.
func NewTestContext() *TestContext {
	base := os.Getenv("SEALPROOF_E2E_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &TestContext{
		BaseURL: base,
		Client:  &http.Client{Timeout: 10 * time.Second},
		Saved:   make(map[string]string),
	}
}

// Reset clears per-scenario state while keeping the target service.
func (tc *TestContext) Reset() {
	tc.UserID = ""
	tc.TenantID = ""
	tc.LastStatus = 0
	tc.LastBody = nil
	tc.Saved = make(map[string]string)
}

// SetIdentity sets the acting reviewer and tenant for subsequent requests.
func (tc *TestContext) SetIdentity(userID, tenantID string) {
	tc.UserID = userID
	tc.TenantID = tenantID
}

// LastStatusCode returns the status of the last exchange.
func (tc *TestContext) LastStatusCode() int { return tc.LastStatus }

// POST sends a JSON request with the current identity headers attached.
func (tc *TestContext) POST(path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, tc.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.send(req)
}

// GET sends a request with the current identity headers attached.
func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequest(http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return tc.send(req)
}

func (tc *TestContext) send(req *http.Request) error {
	if tc.UserID != "" {
		req.Header.Set("X-User-ID", tc.UserID)
	}
	if tc.TenantID != "" {
		req.Header.Set("X-Tenant-ID", tc.TenantID)
	}

	res, err := tc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	tc.LastStatus = res.StatusCode
	tc.LastBody = nil

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(raw) > 0 {
		var parsed map[string]interface{}
		if err := json.Unmarshal(raw, &parsed); err == nil {
			tc.LastBody = parsed
		}
	}
	return nil
}

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	if tc.LastBody == nil {
		return nil, fmt.Errorf("no JSON response recorded")
	}
	value, ok := tc.LastBody[field]
	if !ok {
		return nil, fmt.Errorf("field %q not present in response", field)
	}
	return value, nil
}

// ResponseContains reports whether the last JSON response has the field.
func (tc *TestContext) ResponseContains(field string) bool {
	_, ok := tc.LastBody[field]
	return ok
}

// Save stores a value for later steps; SavedValue retrieves it.
func (tc *TestContext) Save(key, value string) { tc.Saved[key] = value }

func (tc *TestContext) SavedValue(key string) (string, error) {
	value, ok := tc.Saved[key]
	if !ok {
		return "", fmt.Errorf("nothing saved under %q", key)
	}
	return value, nil
}
