// Package opencorporates provides company search against the OpenCorporates
// REST API.
package opencorporates

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/panels/internal/remote"
)

// DefaultBaseURL is the public v0.4 API.
const DefaultBaseURL = "https://api.opencorporates.com/v0.4"

const (
	serviceName = "opencorporates"
	source      = "OpenCorporates"
	maxPerPage  = 100
)

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

// WithAPIToken sets the api_token query parameter.
func WithAPIToken(token string) Option {
	return func(c *Client) {
		c.token = token
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

// Client searches companies. It implements remote.CompanySearcher.
type Client struct {
	baseURL    string
	token      string
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

type searchResponse struct {
	Results struct {
		Companies []struct {
			Company company `json:"company"`
		} `json:"companies"`
	} `json:"results"`
}

type company struct {
	Name                    string  `json:"name"`
	CompanyNumber           string  `json:"company_number"`
	JurisdictionCode        string  `json:"jurisdiction_code"`
	CurrentStatus           *string `json:"current_status"`
	RegisteredAddressInFull string  `json:"registered_address_in_full"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SearchCompanies implements remote.CompanySearcher.
func (c *Client) SearchCompanies(ctx context.Context, req remote.SearchRequest) ([]remote.Candidate, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "opencorporates: rate limit")
		}
	}

	params := url.Values{"q": {strings.TrimSpace(req.Query)}}
	if req.Limit > 0 {
		params.Set("per_page", strconv.Itoa(min(req.Limit, maxPerPage)))
	}
	if req.Jurisdiction != nil && *req.Jurisdiction != "" {
		params.Set("jurisdiction_code", strings.ToLower(*req.Jurisdiction))
	}
	if c.token != "" {
		params.Set("api_token", c.token)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/companies/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "opencorporates: build request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &remote.Error{Service: serviceName, Msg: err.Error(), Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "opencorporates: read body")
	}

	if resp.StatusCode != http.StatusOK {
		rerr := &remote.Error{Service: serviceName, StatusCode: resp.StatusCode, Msg: http.StatusText(resp.StatusCode)}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Error.Message != "" {
			rerr.Body = &remote.ErrorBody{Message: er.Error.Message}
		}
		return nil, rerr
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "opencorporates: parse response")
	}

	out := make([]remote.Candidate, 0, len(sr.Results.Companies))
	for _, item := range sr.Results.Companies {
		co := item.Company
		out = append(out, remote.Candidate{
			Name:             co.Name,
			JurisdictionCode: co.JurisdictionCode,
			CompanyNumber:    co.CompanyNumber,
			Status:           co.CurrentStatus,
			RawAddress:       co.RegisteredAddressInFull,
			Source:           source,
		})
	}
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}
