// Package salesforce provides JWT-authenticated REST API access to
// Salesforce: SOQL queries and invocable Apex actions.
package salesforce

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the Salesforce API operations used by the panels.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
	InvokeAction(ctx context.Context, action string, inputs []any) ([]ActionResult, error)
}

// ActionError is one error reported by an invocable action.
type ActionError struct {
	StatusCode string   `json:"statusCode"`
	Message    string   `json:"message"`
	Fields     []string `json:"fields"`
}

// ActionResult is the outcome of one input of an invocable action call.
type ActionResult struct {
	ActionName   string          `json:"actionName"`
	Errors       []ActionError   `json:"errors"`
	IsSuccess    bool            `json:"isSuccess"`
	OutputValues json.RawMessage `json:"outputValues"`
}

// ClientOption configures the Salesforce client.
type ClientOption func(*sfClient)

// WithRateLimit sets a per-second rate limit for SF API calls.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfClient wraps the go-salesforce/v3 Salesforce struct.
//
// NOTE: The underlying go-salesforce/v3 library does not accept context.Context,
// so all methods discard the ctx parameter for the SF call itself. However, the
// ctx is used for rate limiter waiting, so callers can still cancel that wait.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewClient creates a new Salesforce Client wrapping the given go-salesforce instance.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{sf: sf}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Creds are the JWT bearer flow settings.
type Creds struct {
	LoginURL   string
	Username   string
	ClientID   string
	PrivateKey string
}

// Connect authenticates with the JWT bearer flow and returns a Client.
func Connect(creds Creds, opts ...ClientOption) (Client, error) {
	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         creds.LoginURL,
		Username:       creds.Username,
		ConsumerKey:    creds.ClientID,
		ConsumerRSAPem: creds.PrivateKey,
	})
	if err != nil {
		return nil, eris.Wrap(err, "sf: init")
	}
	return NewClient(sf, opts...), nil
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *sfClient) Query(ctx context.Context, soql string, out any) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "sf: rate limit")
	}
	if err := c.sf.Query(soql, out); err != nil {
		return eris.Wrap(err, "sf: query")
	}
	return nil
}

func (c *sfClient) InvokeAction(ctx context.Context, action string, inputs []any) ([]ActionResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "sf: rate limit")
	}

	body, err := json.Marshal(map[string]any{"inputs": inputs})
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: encode %s inputs", action))
	}

	resp, err := c.sf.DoRequest("POST", "/actions/custom/apex/"+action, body)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: invoke %s", action))
	}
	defer resp.Body.Close() //nolint:errcheck

	var results []ActionResult
	if err := decodeJSON(resp.Body, &results); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: decode %s", action))
	}
	return results, nil
}
