package model

import (
	"fmt"
	"time"
)

// RateTable maps each currency to its value relative to the provider's canonical base.
// A table is produced wholesale by one provider fetch and never modified afterwards.
type RateTable map[Currency]float64

// Copy returns an independent copy of the table.
func (t RateTable) Copy() map[Currency]float64 {
	out := make(map[Currency]float64, len(t))
	for c, v := range t {
		out[c] = v
	}
	return out
}

type CurrencyPair struct {
	BaseCurrency   Currency `json:"base_currency"`
	TargetCurrency Currency `json:"target_currency"`
}

func NewPair(from, to Currency) CurrencyPair {
	return CurrencyPair{BaseCurrency: from, TargetCurrency: to}
}

func (p CurrencyPair) String() string {
	return fmt.Sprintf("%s-%s", p.BaseCurrency, p.TargetCurrency)
}

// Override is a caller-registered pair rate that wins over provider data.
type Override struct {
	From Currency `json:"from"`
	To   Currency `json:"to"`
	Rate float64  `json:"rate"`
}

// OverrideRegistered is emitted after an override has been stored.
type OverrideRegistered struct {
	From         Currency  `json:"from"`
	To           Currency  `json:"to"`
	Rate         float64   `json:"rate"`
	RegisteredAt time.Time `json:"registered_at"`
}
