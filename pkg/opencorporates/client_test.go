package opencorporates

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/panels/internal/remote"
)

func TestSearchCompanies_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies/search", r.URL.Path)
		assert.Equal(t, "acme", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))
		assert.Equal(t, "secret", r.URL.Query().Get("api_token"))
		assert.Empty(t, r.URL.Query().Get("jurisdiction_code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"api_version": "0.4",
			"results": {
				"companies": [
					{"company": {"name": "ACME KK", "company_number": "0100-01-000001", "jurisdiction_code": "jp", "current_status": "Active", "registered_address_in_full": "Chiyoda, Tokyo"}},
					{"company": {"name": "ACME INC", "company_number": "123456", "jurisdiction_code": "us_de", "current_status": null, "registered_address_in_full": ""}}
				]
			}
		}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL+"/"), WithAPIToken("secret"), WithHTTPClient(srv.Client()))
	got, err := c.SearchCompanies(context.Background(), remote.SearchRequest{Query: " acme ", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, remote.Candidate{
		Name:             "ACME KK",
		JurisdictionCode: "jp",
		CompanyNumber:    "0100-01-000001",
		Status:           remote.StrPtr("Active"),
		RawAddress:       "Chiyoda, Tokyo",
		Source:           "OpenCorporates",
	}, got[0])
	assert.Nil(t, got[1].Status)
}

func TestSearchCompanies_JurisdictionAndLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gb", r.URL.Query().Get("jurisdiction_code"))
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		_, _ = io.WriteString(w, `{"results":{"companies":[
			{"company":{"name":"A"}},
			{"company":{"name":"B"}}
		]}}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	got, err := c.SearchCompanies(context.Background(), remote.SearchRequest{
		Query: "a", Jurisdiction: remote.StrPtr("GB"), Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)
}

func TestSearchCompanies_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid Api Token"}}`)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).SearchCompanies(context.Background(), remote.SearchRequest{Query: "acme"})
	require.Error(t, err)

	var re *remote.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnauthorized, re.StatusCode)
	assert.Equal(t, "Invalid Api Token", remote.Message(err))
}

func TestSearchCompanies_ErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).SearchCompanies(context.Background(), remote.SearchRequest{Query: "acme"})
	require.Error(t, err)
	assert.Equal(t, "Service Unavailable", remote.Message(err))
}

func TestSearchCompanies_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"results":`)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).SearchCompanies(context.Background(), remote.SearchRequest{Query: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestSearchCompanies_RateLimitCancelled(t *testing.T) {
	c := NewClient(WithRateLimit(0.001))
	c.limiter.Allow() // drain the single burst token

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SearchCompanies(ctx, remote.SearchRequest{Query: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
