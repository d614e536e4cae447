// Package frankfurter fetches reference FX rates from the Frankfurter API
// (ECB data).
package frankfurter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/sells-group/panels/internal/remote"
)

// DefaultBaseURL is the public API.
const DefaultBaseURL = "https://api.frankfurter.app"

const serviceName = "frankfurter"

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

// Client fetches latest rates. It implements remote.RateFetcher.
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

type latestResponse struct {
	Amount decimal.Decimal            `json:"amount"`
	Base   string                     `json:"base"`
	Date   string                     `json:"date"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// LatestRate implements remote.RateFetcher. The conversion is computed
// locally from the unit rate.
func (c *Client) LatestRate(ctx context.Context, req remote.RateRequest) (*remote.Rate, error) {
	base := strings.ToUpper(req.Base)
	quote := strings.ToUpper(req.Quote)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "frankfurter: rate limit")
		}
	}

	params := url.Values{"from": {base}, "to": {quote}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "frankfurter: build request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &remote.Error{Service: serviceName, Msg: err.Error(), Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "frankfurter: read body")
	}

	if resp.StatusCode != http.StatusOK {
		rerr := &remote.Error{Service: serviceName, StatusCode: resp.StatusCode, Msg: http.StatusText(resp.StatusCode)}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Message != "" {
			rerr.Body = &remote.ErrorBody{Message: er.Message}
		}
		return nil, rerr
	}

	var lr latestResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, eris.Wrap(err, "frankfurter: parse response")
	}

	r, ok := lr.Rates[quote]
	if !ok {
		return nil, &remote.Error{Service: serviceName, Msg: "no rate for " + base + "/" + quote}
	}
	// Rates are quoted per lr.Amount units of the base currency.
	if !lr.Amount.IsZero() && !lr.Amount.Equal(decimal.NewFromInt(1)) {
		r = r.Div(lr.Amount)
	}

	out := &remote.Rate{
		Base:     base,
		Quote:    quote,
		Rate:     r,
		RateDate: lr.Date,
	}
	if req.Amount != nil {
		conv := req.Amount.Mul(r)
		out.ConvertedAmount = &conv
	}
	return out, nil
}
