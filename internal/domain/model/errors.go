package model

import "errors"

var (
	ErrInvalidRate         = errors.New("rate must be a positive number")
	ErrRateUnavailable     = errors.New("exchange rate not available")
	ErrUpstreamUnavailable = errors.New("rate provider unavailable")
	ErrUpstreamMalformed   = errors.New("invalid response from API")
)
