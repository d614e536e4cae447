package frankfurter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/panels/internal/remote"
)

func TestLatestRate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		assert.Equal(t, "JPY", r.URL.Query().Get("to"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"amount":1.0,"base":"USD","date":"2026-10-16","rates":{"JPY":150.12}}`)
	}))
	defer srv.Close()

	amt := decimal.NewFromInt(1000)
	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	got, err := c.LatestRate(context.Background(), remote.RateRequest{Base: "usd", Quote: "jpy", Amount: &amt})
	require.NoError(t, err)

	assert.Equal(t, "USD", got.Base)
	assert.Equal(t, "JPY", got.Quote)
	assert.Equal(t, "2026-10-16", got.RateDate)
	assert.True(t, got.Rate.Equal(decimal.RequireFromString("150.12")))
	require.NotNil(t, got.ConvertedAmount)
	assert.True(t, got.ConvertedAmount.Equal(decimal.NewFromInt(150120)))
}

func TestLatestRate_NoAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"amount":1.0,"base":"EUR","date":"2026-10-16","rates":{"GBP":0.8612}}`)
	}))
	defer srv.Close()

	got, err := NewClient(WithBaseURL(srv.URL)).LatestRate(context.Background(), remote.RateRequest{Base: "EUR", Quote: "GBP"})
	require.NoError(t, err)
	assert.Nil(t, got.ConvertedAmount)
	assert.Equal(t, "0.8612", got.Rate.String())
}

func TestLatestRate_ScaledAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"amount":10,"base":"USD","date":"2026-10-16","rates":{"JPY":1501.2}}`)
	}))
	defer srv.Close()

	got, err := NewClient(WithBaseURL(srv.URL)).LatestRate(context.Background(), remote.RateRequest{Base: "USD", Quote: "JPY"})
	require.NoError(t, err)
	assert.True(t, got.Rate.Equal(decimal.RequireFromString("150.12")))
}

func TestLatestRate_MissingQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"amount":1.0,"base":"USD","date":"2026-10-16","rates":{}}`)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).LatestRate(context.Background(), remote.RateRequest{Base: "USD", Quote: "XXX"})
	require.Error(t, err)
	assert.Equal(t, "no rate for USD/XXX", remote.Message(err))
}

func TestLatestRate_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).LatestRate(context.Background(), remote.RateRequest{Base: "USD", Quote: "ZZZ"})
	require.Error(t, err)

	var re *remote.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusNotFound, re.StatusCode)
	assert.Equal(t, "not found", remote.Message(err))
}

func TestLatestRate_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).LatestRate(context.Background(), remote.RateRequest{Base: "USD", Quote: "JPY"})
	require.Error(t, err)
	var re *remote.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "frankfurter", re.Service)
}
