package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds a single upstream call when no HTTP client is supplied.
const DefaultTimeout = 10 * time.Second

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("catalog API returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("catalog API returned %d", e.StatusCode)
}

// Client calls the upstream catalog API.
type Client struct {
	server     *url.URL
	httpClient *http.Client
}

// NewClient instantiates the catalog client. A nil httpClient gets a traced client with DefaultTimeout.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base URL is required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	server, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse catalog base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}
	return &Client{server: server, httpClient: httpClient}, nil
}

// NewHTTPClient returns an HTTP client whose transport propagates and records trace spans.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// ListItems fetches one page of raw catalog items.
func (c *Client) ListItems(ctx context.Context, params ListItemsParams) (*ItemsPage, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("catalog client not configured")
	}
	req, err := c.newListItemsRequest(ctx, params)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call catalog API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	var page ItemsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return &page, nil
}

func (c *Client) newListItemsRequest(ctx context.Context, params ListItemsParams) (*http.Request, error) {
	queryURL, err := c.server.Parse("v1/items")
	if err != nil {
		return nil, err
	}
	queryValues := queryURL.Query()
	add := func(name string, value interface{}) error {
		frag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
		if err != nil {
			return err
		}
		parsed, err := url.ParseQuery(frag)
		if err != nil {
			return err
		}
		for k, v := range parsed {
			for _, v2 := range v {
				queryValues.Add(k, v2)
			}
		}
		return nil
	}
	if err := add("page", params.Page); err != nil {
		return nil, err
	}
	if err := add("pageSize", params.PageSize); err != nil {
		return nil, err
	}
	if params.AvailableFrom != nil {
		if err := add("availableFrom", params.AvailableFrom.UTC()); err != nil {
			return nil, err
		}
	}
	if params.AvailableTo != nil {
		if err := add("availableTo", params.AvailableTo.UTC()); err != nil {
			return nil, err
		}
	}
	if params.Brand != nil && *params.Brand != "" {
		if err := add("brand", *params.Brand); err != nil {
			return nil, err
		}
	}
	queryURL.RawQuery = queryValues.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func errorMessage(body []byte) string {
	var problem Error
	if err := json.Unmarshal(body, &problem); err != nil || problem.Message == nil {
		return ""
	}
	return strings.TrimSpace(*problem.Message)
}
