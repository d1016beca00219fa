package shopping

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
	"unicode/utf8"
)

const (
	DefaultEndpoint = "https://openapi.naver.com/v1/search/shop.json"
	defaultDisplay  = 10
	defaultTimeout  = 15 * time.Second
	maxBodyBytes    = 5 << 20
)

// ErrStatus matches any *StatusError via errors.Is.
var ErrStatus = errors.New("shopping: unexpected status")

// StatusError is returned when the search API answers with a non-2xx code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shopping: search API returned %d: %s", e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// Item mirrors one entry of the search API "items" array. Titles arrive with
// <b> highlighting around the matched terms.
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Image       string `json:"image"`
	LPrice      string `json:"lprice"`
	HPrice      string `json:"hprice"`
	MallName    string `json:"mallName"`
	ProductID   string `json:"productId"`
	ProductType string `json:"productType"`
	Brand       string `json:"brand"`
	Maker       string `json:"maker"`
	Category1   string `json:"category1"`
	Category2   string `json:"category2"`
	Category3   string `json:"category3"`
	Category4   string `json:"category4"`
}

type searchResponse struct {
	Total int    `json:"total"`
	Items []Item `json:"items"`
}

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Display      int
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Client queries the shopping search API.
type Client struct {
	endpoint     string
	clientID     string
	clientSecret string
	display      int
	http         *http.Client
}

// NewClient constructs a Client with a shared HTTP client.
func NewClient(opts Options) *Client {
	c := &Client{
		endpoint:     opts.Endpoint,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		display:      opts.Display,
		http:         opts.HTTPClient,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.display <= 0 {
		c.display = defaultDisplay
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	return c
}

// Search fetches the first page of results for query. Failures are returned
// as-is; the caller decides how to surface them. There is no retry.
func (c *Client) Search(ctx context.Context, query string) ([]Item, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(c.display))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("shopping: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopping: http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("shopping: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("shopping: json unmarshal: %w", err)
	}
	if out.Items == nil {
		out.Items = []Item{}
	}
	return out.Items, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
