package vt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the VirusTotal v3 API root.
const DefaultBaseURL = "https://www.virustotal.com/api/v3"

// Transport fetches objects from the API.
type Transport interface {
	// GetObject fetches the object at path (e.g. "/files/<hash>"). The path
	// may carry a query string.
	GetObject(ctx context.Context, path string) (*Object, error)
	// Iterate pages through the collection at path, pageSize objects per
	// request, and returns at most limit objects.
	Iterate(ctx context.Context, path string, pageSize, limit int) ([]*Object, error)
	// Close releases idle connections. The transport stays usable.
	Close() error
}

// HTTPTransport talks to the API over HTTPS, authenticating with an API key.
type HTTPTransport struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) TransportOption {
	return func(t *HTTPTransport) {
		t.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		t.httpClient = c
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		t.httpClient.Timeout = d
	}
}

// NewHTTPTransport creates a transport for the given API key.
func NewHTTPTransport(apiKey string, opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		userAgent:  "vtlookup",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// GetObject implements Transport.
func (t *HTTPTransport) GetObject(ctx context.Context, path string) (*Object, error) {
	var resp objectResponse
	if err := t.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("malformed response for %s: missing data", path)
	}
	return resp.Data, nil
}

// Iterate implements Transport using the API's cursor pagination.
func (t *HTTPTransport) Iterate(ctx context.Context, path string, pageSize, limit int) ([]*Object, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	objects := make([]*Object, 0, min(limit, pageSize))
	cursor := ""
	for len(objects) < limit {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(min(pageSize, limit-len(objects))))
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page collectionResponse
		if err := t.get(ctx, path, params, &page); err != nil {
			return nil, err
		}
		for _, obj := range page.Data {
			if len(objects) == limit {
				break
			}
			objects = append(objects, obj)
		}
		if page.Meta.Cursor == "" || len(page.Data) == 0 {
			break
		}
		cursor = page.Meta.Cursor
	}
	return objects, nil
}

// Close implements Transport.
func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

// Post sends body as JSON to path and decodes the response into out.
func (t *HTTPTransport) Post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req, out)
}

func (t *HTTPTransport) get(ctx context.Context, path string, params url.Values, out any) error {
	u, err := url.Parse(t.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return t.do(req, out)
}

func (t *HTTPTransport) do(req *http.Request, out any) error {
	req.Header.Set("x-apikey", t.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
