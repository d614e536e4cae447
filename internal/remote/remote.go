// Package remote defines the three services the panels call and the values
// they exchange. Implementations live in pkg/salesforce (invocable Apex
// actions) and in the direct API clients under pkg/.
package remote

import (
	"context"

	"github.com/shopspring/decimal"
)

// Candidate is one company suggested by the search service.
type Candidate struct {
	Name             string  `json:"name"`
	JurisdictionCode string  `json:"jurisdictionCode"`
	CompanyNumber    string  `json:"companyNumber"`
	Status           *string `json:"status"`
	RawAddress       string  `json:"rawAddress"`
	Source           string  `json:"source"`
}

// SearchRequest is the company search input. Jurisdiction is accepted by the
// services but the suggest panel always sends nil.
type SearchRequest struct {
	Query        string  `json:"query"`
	Jurisdiction *string `json:"jurisdictionOpt"`
	Limit        int     `json:"limitOpt"`
}

// RateRequest asks for the latest base/quote rate and, optionally, the
// conversion of Amount.
type RateRequest struct {
	Base   string           `json:"baseCcy"`
	Quote  string           `json:"quoteCcy"`
	Amount *decimal.Decimal `json:"amountOpt"`
}

// Rate is the FX service response.
type Rate struct {
	Base            string           `json:"baseCcy"`
	Quote           string           `json:"quoteCcy"`
	Rate            decimal.Decimal  `json:"rate"`
	RateDate        string           `json:"rateDate"`
	ConvertedAmount *decimal.Decimal `json:"convertedAmount"`
}

// PostalMatch is one address returned for a postal code.
type PostalMatch struct {
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
	Town       string `json:"town"`
	Full       string `json:"full"`
	Zipcode    string `json:"zipcode"`
}

// CompanySearcher looks up company candidates.
type CompanySearcher interface {
	SearchCompanies(ctx context.Context, req SearchRequest) ([]Candidate, error)
}

// RateFetcher returns the latest FX rate.
type RateFetcher interface {
	LatestRate(ctx context.Context, req RateRequest) (*Rate, error)
}

// PostalLookup resolves a postal code to zero or more addresses.
type PostalLookup interface {
	Lookup(ctx context.Context, zipcode string) ([]PostalMatch, error)
}

// Services bundles one implementation of each service.
type Services struct {
	Companies CompanySearcher
	Rates     RateFetcher
	Postal    PostalLookup
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}
