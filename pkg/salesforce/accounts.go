package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/panels/internal/remote"
)

// Account represents a Salesforce Account record.
type Account struct {
	ID                string `json:"Id" salesforce:"Id"`
	Name              string `json:"Name" salesforce:"Name"`
	Type              string `json:"Type" salesforce:"Type"`
	BillingStreet     string `json:"BillingStreet" salesforce:"BillingStreet"`
	BillingCity       string `json:"BillingCity" salesforce:"BillingCity"`
	BillingState      string `json:"BillingState" salesforce:"BillingState"`
	BillingPostalCode string `json:"BillingPostalCode" salesforce:"BillingPostalCode"`
	BillingCountry    string `json:"BillingCountry" salesforce:"BillingCountry"`
}

// accountFields are the SOQL fields selected for Account queries.
var accountFields = []string{
	"Id", "Name", "Type",
	"BillingStreet", "BillingCity", "BillingState", "BillingPostalCode", "BillingCountry",
}

// AccountSearcher suggests companies from the org's own Account records.
// It implements remote.CompanySearcher.
type AccountSearcher struct {
	client Client
}

// NewAccountSearcher creates an AccountSearcher.
func NewAccountSearcher(c Client) *AccountSearcher {
	return &AccountSearcher{client: c}
}

// SearchCompanies runs a name prefix-or-contains match ordered by name.
func (s *AccountSearcher) SearchCompanies(ctx context.Context, req remote.SearchRequest) ([]remote.Candidate, error) {
	q := strings.TrimSpace(req.Query)
	where := fmt.Sprintf("Name LIKE '%%%s%%'", escapeLike(q))
	if req.Jurisdiction != nil && *req.Jurisdiction != "" {
		where += fmt.Sprintf(" AND BillingCountryCode = '%s'", escapeSoql(strings.ToUpper(*req.Jurisdiction)))
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE %s ORDER BY Name LIMIT %d",
		strings.Join(accountFields, ", "),
		where,
		limit,
	)

	var accounts []Account
	if err := s.client.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: search accounts %q", q))
	}

	out := make([]remote.Candidate, len(accounts))
	for i, a := range accounts {
		out[i] = a.Candidate()
	}
	return out, nil
}

// Candidate maps the account to a company candidate.
func (a Account) Candidate() remote.Candidate {
	c := remote.Candidate{
		Name:             a.Name,
		JurisdictionCode: strings.ToLower(a.BillingCountry),
		CompanyNumber:    a.ID,
		RawAddress:       joinNonEmpty(", ", a.BillingStreet, a.BillingCity, a.BillingState, a.BillingPostalCode, a.BillingCountry),
		Source:           "Salesforce",
	}
	if a.Type != "" {
		c.Status = remote.StrPtr(a.Type)
	}
	return c
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}

// escapeLike additionally escapes the LIKE wildcards.
func escapeLike(s string) string {
	s = escapeSoql(s)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
