package box

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

const (
	// BaseURL is the Box v2 API endpoint.
	BaseURL = "https://api.box.com/2.0"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// PageSize is the number of entries requested per listing page.
	PageSize = 1000

	// RequestsPerSecond throttles outgoing API calls.
	RequestsPerSecond = 8
)

// APIError represents a Box API error response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("box: API error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsNotFound checks if the error indicates a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// Entry is a single file or folder in a listing.
type Entry struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	SHA1       string `json:"sha1"`
	ModifiedAt string `json:"modified_at"`
}

// listing is one page of folder items.
type listing struct {
	TotalCount int     `json:"total_count"`
	Entries    []Entry `json:"entries"`
	Offset     int     `json:"offset"`
	Limit      int     `json:"limit"`
}

// user is the minimal users/me payload.
type user struct {
	ID    string `json:"id"`
	Login string `json:"login"`
}

// Client is a minimal Box v2 API client.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokenProvider driven.TokenProvider
	limiter       *rate.Limiter
}

// NewClient creates a new Box API client with a token provider.
func NewClient(tokenProvider driven.TokenProvider) *Client {
	return &Client{
		baseURL:       BaseURL,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		tokenProvider: tokenProvider,
		limiter:       rate.NewLimiter(rate.Limit(RequestsPerSecond), 1),
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint.
// Useful for testing against httptest servers.
func NewClientWithBaseURL(tokenProvider driven.TokenProvider, baseURL string) *Client {
	c := NewClient(tokenProvider)
	c.baseURL = baseURL
	return c
}

// CurrentUser fetches the authenticated user. Used for validation.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var u user
	if err := c.get(ctx, "/users/me", nil, &u); err != nil {
		return "", err
	}
	return u.Login, nil
}

// ListFolderItems returns one page of a folder's entries.
// Fields controls which entry attributes Box includes; pruning passes a
// smaller set than syncing.
func (c *Client) ListFolderItems(ctx context.Context, folderID string, offset int, fields string) (*listing, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(PageSize))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("fields", fields)

	var page listing
	if err := c.get(ctx, "/folders/"+folderID+"/items", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// get performs an authenticated GET and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	token, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("box request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.errorFromResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// errorFromResponse builds an APIError from a non-200 response.
func (c *Client) errorFromResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
