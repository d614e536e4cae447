package salesforce

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/panels/internal/remote"
)

const serviceName = "salesforce"

// Actions names the invocable Apex classes behind each service.
type Actions struct {
	Company string
	FX      string
	Zipcode string
}

// DefaultActions are the class names deployed with the components.
var DefaultActions = Actions{
	Company: "CompanySuggestService",
	FX:      "FxRateService",
	Zipcode: "ZipcodeLookupService",
}

// Services implements the remote service interfaces on top of invocable
// Apex actions. Each call sends a single input and reads outputValues of
// the single result.
type Services struct {
	client  Client
	actions Actions
}

var (
	_ remote.CompanySearcher = (*Services)(nil)
	_ remote.RateFetcher     = (*Services)(nil)
	_ remote.PostalLookup    = (*Services)(nil)
)

// NewServices creates Services. Empty action names fall back to
// DefaultActions.
func NewServices(c Client, a Actions) *Services {
	if a.Company == "" {
		a.Company = DefaultActions.Company
	}
	if a.FX == "" {
		a.FX = DefaultActions.FX
	}
	if a.Zipcode == "" {
		a.Zipcode = DefaultActions.Zipcode
	}
	return &Services{client: c, actions: a}
}

// listOutput is the outputValues shape of list-returning actions.
type listOutput[T any] struct {
	Results []T `json:"results"`
}

// SearchCompanies implements remote.CompanySearcher.
func (s *Services) SearchCompanies(ctx context.Context, req remote.SearchRequest) ([]remote.Candidate, error) {
	var out listOutput[remote.Candidate]
	if _, err := s.invoke(ctx, s.actions.Company, req, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// LatestRate implements remote.RateFetcher.
func (s *Services) LatestRate(ctx context.Context, req remote.RateRequest) (*remote.Rate, error) {
	var out remote.Rate
	ok, err := s.invoke(ctx, s.actions.FX, req, &out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &remote.Error{Service: serviceName, Msg: "empty response from " + s.actions.FX}
	}
	return &out, nil
}

type zipcodeInput struct {
	Zipcode string `json:"zipcode"`
}

// Lookup implements remote.PostalLookup.
func (s *Services) Lookup(ctx context.Context, zipcode string) ([]remote.PostalMatch, error) {
	var out listOutput[remote.PostalMatch]
	if _, err := s.invoke(ctx, s.actions.Zipcode, zipcodeInput{Zipcode: zipcode}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// invoke calls action with a single input and decodes its outputValues
// into out. It reports false when the action succeeded without output.
func (s *Services) invoke(ctx context.Context, action string, input any, out any) (bool, error) {
	results, err := s.client.InvokeAction(ctx, action, []any{input})
	if err != nil {
		return false, &remote.Error{Service: serviceName, Msg: err.Error(), Err: err}
	}
	if len(results) == 0 {
		return false, &remote.Error{Service: serviceName, Msg: "empty response from " + action}
	}

	r := results[0]
	if !r.IsSuccess {
		return false, actionError(action, r.Errors)
	}
	if len(r.OutputValues) == 0 || string(r.OutputValues) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(r.OutputValues, out); err != nil {
		return false, eris.Wrapf(err, "sf: decode %s output", action)
	}
	return true, nil
}

func actionError(action string, errs []ActionError) error {
	if len(errs) == 0 {
		return &remote.Error{Service: serviceName, Msg: action + " failed"}
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return &remote.Error{
		Service: serviceName,
		Body: &remote.ErrorBody{
			Message:   strings.Join(msgs, "; "),
			ErrorCode: errs[0].StatusCode,
		},
	}
}
