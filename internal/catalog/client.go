package catalog

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
)

// ErrNotFound is returned when a single-row read matches nothing.
var ErrNotFound = errors.New("catalog: not found")

// APIError is an error response from PostgREST.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("catalog API error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("catalog API error %d: %s", e.Status, e.Message)
}

// Client is a Supabase PostgREST client scoped by table name.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*Client)

// WithAPIKey sets the Supabase anon/service key sent as apikey and bearer token.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Catalog Store client. baseURL is the project URL,
// e.g. https://xyz.supabase.co.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query describes a read against one table.
type Query struct {
	// Equality filters, column -> value.
	Filters map[string]string
	// ActiveOnly restricts to rows with active = true.
	ActiveOnly bool
	// Search is matched case-insensitively against SearchColumn.
	Search       string
	SearchColumn string
	// Order is a PostgREST order clause, e.g. "created_at.desc".
	Order  string
	Limit  int
	Offset int
	// Count asks the server for the total number of matching rows.
	Count bool
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("select", "*")
	for col, val := range q.Filters {
		v.Set(col, "eq."+val)
	}
	if q.ActiveOnly {
		v.Set("active", "eq.true")
	}
	if q.Search != "" && q.SearchColumn != "" {
		v.Set(q.SearchColumn, "ilike.*"+q.Search+"*")
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	return v
}

// ============================================
// Generic table operations
// ============================================

// Select reads rows of table into out (a pointer to a slice). When q.Count
// is set the total number of matching rows is returned, otherwise -1.
func (c *Client) Select(ctx context.Context, table string, q Query, out any) (int, error) {
	headers := map[string]string{}
	if q.Limit > 0 {
		headers["Range-Unit"] = "items"
		headers["Range"] = fmt.Sprintf("%d-%d", q.Offset, q.Offset+q.Limit-1)
	}
	if q.Count {
		headers["Prefer"] = "count=exact"
	}

	respHeaders, err := c.doRequest(ctx, http.MethodGet, table, q.values(), nil, headers, out)
	if err != nil {
		return 0, fmt.Errorf("selecting %s: %w", table, err)
	}
	if !q.Count {
		return -1, nil
	}
	return parseContentRange(respHeaders.Get("Content-Range")), nil
}

// Get reads the row of table with the given id into out (a pointer to a struct).
func (c *Client) Get(ctx context.Context, table, id string, out any) error {
	var rows []json.RawMessage
	q := Query{Filters: map[string]string{"id": id}, Limit: 1}
	if _, err := c.Select(ctx, table, q, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	if err := json.Unmarshal(rows[0], out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", table, id, err)
	}
	return nil
}

// Insert creates a row. The created representation is decoded into out when non-nil.
func (c *Client) Insert(ctx context.Context, table string, payload, out any) error {
	headers := map[string]string{"Prefer": "return=representation"}
	if err := c.writeOne(ctx, http.MethodPost, table, url.Values{}, payload, headers, out); err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

// Update patches the row with the given id.
func (c *Client) Update(ctx context.Context, table, id string, payload, out any) error {
	query := url.Values{}
	query.Set("id", "eq."+id)
	headers := map[string]string{"Prefer": "return=representation"}
	if err := c.writeOne(ctx, http.MethodPatch, table, query, payload, headers, out); err != nil {
		return fmt.Errorf("updating %s %s: %w", table, id, err)
	}
	return nil
}

// Upsert inserts payload or merges it into the row that conflicts on onConflict.
func (c *Client) Upsert(ctx context.Context, table, onConflict string, payload, out any) error {
	query := url.Values{}
	query.Set("on_conflict", onConflict)
	headers := map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"}
	if err := c.writeOne(ctx, http.MethodPost, table, query, payload, headers, out); err != nil {
		return fmt.Errorf("upserting into %s: %w", table, err)
	}
	return nil
}

// Delete removes the row with the given id.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	query := url.Values{}
	query.Set("id", "eq."+id)
	if _, err := c.doRequest(ctx, http.MethodDelete, table, query, nil, nil, nil); err != nil {
		return fmt.Errorf("deleting %s %s: %w", table, id, err)
	}
	return nil
}

// writeOne performs a write returning representation and decodes the first row.
func (c *Client) writeOne(ctx context.Context, method, table string, query url.Values, payload any, headers map[string]string, out any) error {
	var rows []json.RawMessage
	if _, err := c.doRequest(ctx, method, table, query, payload, headers, &rows); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(rows[0], out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// ============================================
// Internal HTTP Methods
// ============================================

// doRequest performs an HTTP request against /rest/v1/<table>.
func (c *Client) doRequest(ctx context.Context, method, table string, query url.Values, body any, headers map[string]string, result any) (http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	reqURL := c.baseURL + "/rest/v1/" + url.PathEscape(table)
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := APIError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, &apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
	}

	return resp.Header, nil
}

// parseContentRange extracts the total from a header like "0-9/42" or "*/0".
func parseContentRange(header string) int {
	i := strings.LastIndex(header, "/")
	if i < 0 {
		return -1
	}
	total, err := strconv.Atoi(header[i+1:])
	if err != nil {
		return -1
	}
	return total
}
