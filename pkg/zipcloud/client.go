// Package zipcloud resolves Japanese postal codes with the zipcloud API.
package zipcloud

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/width"
	"golang.org/x/time/rate"

	"github.com/sells-group/panels/internal/remote"
)

// DefaultBaseURL is the public API.
const DefaultBaseURL = "https://zipcloud.ibsnet.co.jp"

const serviceName = "zipcloud"

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit sets the requests-per-second rate limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// Client looks up postal codes. It implements remote.PostalLookup.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchResponse mirrors /api/search. Status repeats the HTTP status;
// Results is null when nothing matches.
type searchResponse struct {
	Message *string `json:"message"`
	Status  int     `json:"status"`
	Results []struct {
		Address1 string `json:"address1"`
		Address2 string `json:"address2"`
		Address3 string `json:"address3"`
		Prefcode string `json:"prefcode"`
		Zipcode  string `json:"zipcode"`
	} `json:"results"`
}

// Lookup implements remote.PostalLookup. Hyphens and full-width digits are
// accepted.
func (c *Client) Lookup(ctx context.Context, zipcode string) ([]remote.PostalMatch, error) {
	code := digits(zipcode)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "zipcloud: rate limit")
		}
	}

	params := url.Values{"zipcode": {code}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "zipcloud: build request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &remote.Error{Service: serviceName, Msg: err.Error(), Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zipcloud: read body")
	}

	var sr searchResponse
	parseErr := json.Unmarshal(body, &sr)

	status := resp.StatusCode
	if parseErr == nil && sr.Status != 0 {
		status = sr.Status
	}
	if status != http.StatusOK {
		rerr := &remote.Error{Service: serviceName, StatusCode: status, Msg: http.StatusText(status)}
		if parseErr == nil && sr.Message != nil && *sr.Message != "" {
			rerr.Body = &remote.ErrorBody{Message: *sr.Message}
		}
		return nil, rerr
	}
	if parseErr != nil {
		return nil, eris.Wrap(parseErr, "zipcloud: parse response")
	}

	out := make([]remote.PostalMatch, 0, len(sr.Results))
	for _, r := range sr.Results {
		out = append(out, remote.PostalMatch{
			Prefecture: r.Address1,
			City:       r.Address2,
			Town:       r.Address3,
			Full:       r.Address1 + r.Address2 + r.Address3,
			Zipcode:    r.Zipcode,
		})
	}
	return out, nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range width.Fold.String(s) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
