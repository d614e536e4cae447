package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/panels/internal/remote"
	"github.com/sells-group/panels/internal/resilience"
)

func serveRequest(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	withConfig(t, testConfig())
	h := newRouter(newTestEnv(t, &stubServices{}))

	rr := serveRequest(t, h, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	body := decodeBody(t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "circuits")
}

func TestHealthEndpoint_Circuits(t *testing.T) {
	withConfig(t, testConfig())
	env := newTestEnv(t, &stubServices{})
	_, env.Breakers = resilience.Guard(remote.Services{}, resilience.Config{})
	h := newRouter(env)

	body := decodeBody(t, serveRequest(t, h, "/health"))
	assert.Equal(t, map[string]any{"company": "closed", "fx": "closed", "zipcode": "closed"}, body["circuits"])
}

func TestCompaniesEndpoint(t *testing.T) {
	withConfig(t, testConfig())
	stub := &stubServices{candidates: []remote.Candidate{
		{Name: "Acme KK", JurisdictionCode: "jp", Status: remote.StrPtr("Active")},
	}}
	h := newRouter(newTestEnv(t, stub))

	rr := serveRequest(t, h, "/api/companies?q=acme&limit=5")
	require.Equal(t, http.StatusOK, rr.Code)
	results := decodeBody(t, rr)["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "Acme KK", first["name"])
	assert.Equal(t, " • Active", first["statusLabel"])

	// Served from cache the second time.
	rr = serveRequest(t, h, "/api/companies?q=acme&limit=5")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestCompaniesEndpoint_Validation(t *testing.T) {
	withConfig(t, testConfig())
	stub := &stubServices{}
	h := newRouter(newTestEnv(t, stub))

	rr := serveRequest(t, h, "/api/companies?q=a")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["message"], "at least 2")

	rr = serveRequest(t, h, "/api/companies?q=acme&limit=zero")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, int32(0), stub.calls.Load())
}

func TestCompaniesEndpoint_LimitIsCapped(t *testing.T) {
	withConfig(t, testConfig())
	stub := &stubServices{}
	h := newRouter(newTestEnv(t, stub))

	rr := serveRequest(t, h, "/api/companies?q=acme&limit=1000000")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int32(100), stub.lastLimit.Load())

	rr = serveRequest(t, h, "/api/companies?q=acme")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int32(10), stub.lastLimit.Load())
}

func TestCompaniesEndpoint_RemoteError(t *testing.T) {
	withConfig(t, testConfig())
	stub := &stubServices{err: &remote.Error{
		Service: "salesforce",
		Body:    &remote.ErrorBody{Message: "Search unavailable", ErrorCode: "APEX_ERROR"},
	}}
	h := newRouter(newTestEnv(t, stub))

	rr := serveRequest(t, h, "/api/companies?q=acme")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Search unavailable", body["message"])
	assert.Equal(t, "APEX_ERROR", body["errorCode"])
}

func TestFXEndpoint(t *testing.T) {
	withConfig(t, testConfig())
	h := newRouter(newTestEnv(t, &stubServices{}))

	rr := serveRequest(t, h, "/api/fx?base=usd&quote=jpy&amount=1000")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "1 USD = 150.12 JPY", body["display"])
	assert.Equal(t, "1,000.00 USD = 150,123.4 JPY", body["convertedDisplay"])
	assert.Equal(t, "2026-10-16", body["rateDate"])
}

func TestFXEndpoint_Defaults(t *testing.T) {
	withConfig(t, testConfig())
	h := newRouter(newTestEnv(t, &stubServices{}))

	rr := serveRequest(t, h, "/api/fx")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "USD", body["baseCcy"])
	assert.Equal(t, "JPY", body["quoteCcy"])
	_, hasConverted := body["convertedDisplay"]
	assert.False(t, hasConverted)
}

func TestFXEndpoint_Validation(t *testing.T) {
	withConfig(t, testConfig())
	stub := &stubServices{}
	h := newRouter(newTestEnv(t, stub))

	for _, target := range []string{
		"/api/fx?base=USD&quote=usd",
		"/api/fx?amount=-5",
		"/api/fx?amount=abc",
	} {
		rr := serveRequest(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
	assert.Equal(t, int32(0), stub.calls.Load())
}

func TestZipcodeEndpoint(t *testing.T) {
	withConfig(t, testConfig())
	stub := &stubServices{matches: []remote.PostalMatch{
		{Prefecture: "東京都", City: "千代田区", Town: "丸の内", Full: "東京都千代田区丸の内", Zipcode: "1000005"},
	}}
	h := newRouter(newTestEnv(t, stub))

	rr := serveRequest(t, h, "/api/zipcode/100-0005")
	require.Equal(t, http.StatusOK, rr.Code)
	results := decodeBody(t, rr)["results"].([]any)
	require.Len(t, results, 1)
	opt := results[0].(map[string]any)
	assert.Equal(t, "0", opt["key"])
	assert.Equal(t, "東京都千代田区丸の内（1000005）", opt["label"])

	rr = serveRequest(t, h, "/api/zipcode/12345")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	withConfig(t, testConfig())
	h := newRouter(newTestEnv(t, &stubServices{}))

	serveRequest(t, h, "/api/fx?base=EUR&quote=JPY")
	serveRequest(t, h, "/api/fx?base=EUR&quote=JPY")

	rr := serveRequest(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	text := rr.Body.String()
	assert.Contains(t, text, `panels_service_calls_total{outcome="ok",service="fx"} 1`)
	assert.Contains(t, text, `panels_cache_lookups_total{result="hit",service="fx"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	withConfig(t, testConfig())
	h := newRouter(newTestEnv(t, &stubServices{}))

	req := httptest.NewRequest(http.MethodOptions, "/api/fx", nil)
	req.Header.Set("Origin", "https://example.my.salesforce.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.True(t, strings.HasPrefix(rr.Header().Get("Access-Control-Allow-Origin"), "https://"))
}
