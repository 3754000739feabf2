package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange-rate-facade/internal/domain/model"
	"exchange-rate-facade/internal/metrics"
	"exchange-rate-facade/pkg/logger"
)

type MockExchangeService struct {
	ResolvePairFunc      func(ctx context.Context, from, to model.Currency) (float64, error)
	ResolveAllFunc       func(ctx context.Context) (map[model.Currency]float64, error)
	RegisterOverrideFunc func(ctx context.Context, from, to model.Currency, rate float64) error
	FlushCacheFunc       func(ctx context.Context) error
}

func (m *MockExchangeService) ResolvePair(ctx context.Context, from, to model.Currency) (float64, error) {
	return m.ResolvePairFunc(ctx, from, to)
}

func (m *MockExchangeService) ResolveAll(ctx context.Context) (map[model.Currency]float64, error) {
	return m.ResolveAllFunc(ctx)
}

func (m *MockExchangeService) RegisterOverride(ctx context.Context, from, to model.Currency, rate float64) error {
	return m.RegisterOverrideFunc(ctx, from, to, rate)
}

func (m *MockExchangeService) FlushCache(ctx context.Context) error {
	return m.FlushCacheFunc(ctx)
}

func newTestRoutes(svc *MockExchangeService, limiter *IPRateLimiter) http.Handler {
	log := logger.Discard()
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
	h := NewHandler(svc, model.NewAllowlist(model.DefaultCurrencies), log, m)
	return NewRouter(h, limiter, CORSConfig{}, log, m).SetupRoutes()
}

func doRequest(t *testing.T, routes http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Message
}

func TestHandler_GetExchangeRate(t *testing.T) {
	testCases := []struct {
		name           string
		query          string
		resolveErr     error
		expectedStatus int
		expectedMsg    string
	}{
		{name: "Success", query: "?from=USD&to=EUR", expectedStatus: http.StatusOK},
		{name: "Missing to", query: "?from=USD", expectedStatus: http.StatusBadRequest, expectedMsg: `Both "from" and "to" query parameters are required`},
		{name: "Unsupported code", query: "?from=USD&to=XYZ", expectedStatus: http.StatusBadRequest, expectedMsg: "Invalid currency code provided"},
		{name: "Rate unavailable", query: "?from=USD&to=EUR", resolveErr: model.ErrRateUnavailable, expectedStatus: http.StatusNotFound},
		{name: "Upstream unavailable", query: "?from=USD&to=EUR", resolveErr: model.ErrUpstreamUnavailable, expectedStatus: http.StatusServiceUnavailable},
		{name: "Upstream malformed", query: "?from=USD&to=EUR", resolveErr: model.ErrUpstreamMalformed, expectedStatus: http.StatusBadGateway},
		{name: "Unknown error", query: "?from=USD&to=EUR", resolveErr: errors.New("boom"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &MockExchangeService{
				ResolvePairFunc: func(ctx context.Context, from, to model.Currency) (float64, error) {
					if tc.resolveErr != nil {
						return 0, tc.resolveErr
					}
					return 0.85, nil
				},
			}

			rec := doRequest(t, newTestRoutes(svc, nil), http.MethodGet, "/api/exchange"+tc.query, "")
			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

			if tc.expectedStatus == http.StatusOK {
				var resp PairRateResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, PairRateResponse{From: model.USD, To: model.EUR, Rate: 0.85}, resp)
				return
			}
			if tc.expectedMsg != "" {
				assert.Equal(t, tc.expectedMsg, decodeMessage(t, rec))
			}
		})
	}
}

func TestHandler_GetAllExchangeRates(t *testing.T) {
	svc := &MockExchangeService{
		ResolveAllFunc: func(ctx context.Context) (map[model.Currency]float64, error) {
			return map[model.Currency]float64{model.USD: 1, model.CAD: 1.25, model.AUD: 1.35}, nil
		},
	}

	rec := doRequest(t, newTestRoutes(svc, nil), http.MethodGet, "/api/exchange-rates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rates":{"USD":1,"CAD":1.25,"AUD":1.35}}`, rec.Body.String())
}

func TestHandler_AddExchangeRate(t *testing.T) {
	testCases := []struct {
		name           string
		body           string
		registerErr    error
		expectedStatus int
		expectedMsg    string
		expectCall     bool
	}{
		{
			name:           "Success",
			body:           `{"from":"USD","to":"AUD","rate":1.35}`,
			expectedStatus: http.StatusCreated,
			expectedMsg:    "Exchange rate added for USD to AUD",
			expectCall:     true,
		},
		{
			name:           "Missing rate",
			body:           `{"from":"USD","to":"AUD"}`,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    `All fields ("from", "to", "rate") are required`,
		},
		{
			name:           "Null rate",
			body:           `{"from":"USD","to":"AUD","rate":null}`,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    `All fields ("from", "to", "rate") are required`,
		},
		{
			name:           "Rate is a string",
			body:           `{"from":"USD","to":"AUD","rate":"1.35"}`,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Rate must be a positive number",
		},
		{
			name:           "Negative rate rejected by core",
			body:           `{"from":"USD","to":"AUD","rate":-5}`,
			registerErr:    model.ErrInvalidRate,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Rate must be a positive number",
			expectCall:     true,
		},
		{
			name:           "Unsupported currency",
			body:           `{"from":"USD","to":"XYZ","rate":1}`,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid currency code provided",
		},
		{
			name:           "Not JSON",
			body:           `from=USD`,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Request body must be a JSON object",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			svc := &MockExchangeService{
				RegisterOverrideFunc: func(ctx context.Context, from, to model.Currency, rate float64) error {
					called = true
					assert.Equal(t, model.USD, from)
					assert.Equal(t, model.AUD, to)
					return tc.registerErr
				},
			}

			rec := doRequest(t, newTestRoutes(svc, nil), http.MethodPost, "/api/exchange-rates", tc.body)
			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Equal(t, tc.expectedMsg, decodeMessage(t, rec))
			assert.Equal(t, tc.expectCall, called)
		})
	}
}

func TestHandler_AddExchangeRateBodyTooLarge(t *testing.T) {
	called := false
	svc := &MockExchangeService{
		RegisterOverrideFunc: func(ctx context.Context, from, to model.Currency, rate float64) error {
			called = true
			return nil
		},
	}

	body := `{"from":"USD","to":"AUD","rate":1.35,"note":"` + strings.Repeat("x", maxRequestBodyBytes) + `"}`
	rec := doRequest(t, newTestRoutes(svc, nil), http.MethodPost, "/api/exchange-rates", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large", decodeMessage(t, rec))
	assert.False(t, called)
}

func TestHandler_FlushCache(t *testing.T) {
	flushed := false
	svc := &MockExchangeService{
		FlushCacheFunc: func(ctx context.Context) error {
			flushed = true
			return nil
		},
	}

	rec := doRequest(t, newTestRoutes(svc, nil), http.MethodDelete, "/api/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, flushed)
}

func TestRouter_RateLimit(t *testing.T) {
	svc := &MockExchangeService{
		ResolveAllFunc: func(ctx context.Context) (map[model.Currency]float64, error) {
			return map[model.Currency]float64{model.USD: 1}, nil
		},
	}
	routes := newTestRoutes(svc, NewIPRateLimiter(2, 15*time.Minute, false))

	assert.Equal(t, http.StatusOK, doRequest(t, routes, http.MethodGet, "/api/exchange-rates", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(t, routes, http.MethodGet, "/api/exchange-rates", "").Code)

	rec := doRequest(t, routes, http.MethodGet, "/api/exchange-rates", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, rateLimitedMessage, decodeMessage(t, rec))

	// health and docs are outside the limited prefix
	assert.Equal(t, http.StatusOK, doRequest(t, routes, http.MethodGet, "/health", "").Code)
}

func TestRouter_Docs(t *testing.T) {
	rec := doRequest(t, newTestRoutes(&MockExchangeService{}, nil), http.MethodGet, "/api-docs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.0", doc["openapi"])
	assert.Contains(t, doc["paths"], "/api/exchange")
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	routes := newTestRoutes(&MockExchangeService{}, nil)

	rec := doRequest(t, routes, http.MethodPut, "/api/exchange-rates", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", decodeMessage(t, rec))

	rec = doRequest(t, routes, http.MethodGet, "/api/cache", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(t, routes, http.MethodPost, "/api-docs", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(t, routes, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
