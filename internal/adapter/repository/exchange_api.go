package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"exchange-rate-facade/internal/domain/model"
	"exchange-rate-facade/pkg/logger"
	"exchange-rate-facade/pkg/utils"
)

// ExchangeAPI fetches rate tables from an ExchangeRate-API compatible endpoint.
type ExchangeAPI struct {
	baseURL      string
	apiKey       string
	baseCurrency model.Currency
	httpClient   *http.Client
	log          *logger.Logger
}

type exchangerateAPIResponse struct {
	Result          string             `json:"result,omitempty"`
	BaseCode        string             `json:"base_code,omitempty"`
	TimeLastUpdate  int64              `json:"time_last_update_unix,omitempty"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func NewExchangeAPI(baseURL, apiKey string, baseCurrency model.Currency, timeout time.Duration, log *logger.Logger) *ExchangeAPI {
	return &ExchangeAPI{
		baseURL:      baseURL,
		apiKey:       apiKey,
		baseCurrency: baseCurrency,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (e *ExchangeAPI) requestURL() (string, error) {
	u, err := url.Parse(e.baseURL)
	if err != nil {
		return "", err
	}

	if strings.HasSuffix(u.Path, "/latest") && e.baseCurrency != "" {
		u.Path += "/" + string(e.baseCurrency)
	}

	if e.apiKey != "" {
		q := u.Query()
		q.Set("apikey", e.apiKey)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// FetchRateTable performs exactly one request. It does not retry or cache.
func (e *ExchangeAPI) FetchRateTable(ctx context.Context) (model.RateTable, error) {
	reqURL, err := e.requestURL()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid provider url: %v", model.ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", model.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %v", model.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: API returned non-OK status: %d", model.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var apiResp exchangerateAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", model.ErrUpstreamMalformed, err)
	}

	if apiResp.ConversionRates == nil {
		return nil, fmt.Errorf("%w: conversion_rates missing", model.ErrUpstreamMalformed)
	}

	table := make(model.RateTable, len(apiResp.ConversionRates))
	for code, value := range apiResp.ConversionRates {
		if !utils.IsValidRate(value) {
			e.log.Warn("Dropping unusable provider rate", "currency", code, "value", value)
			continue
		}
		table[model.Currency(code)] = value
	}

	e.log.Debug("Fetched rate table", "base", apiResp.BaseCode, "count", len(table))
	return table, nil
}
