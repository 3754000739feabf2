package model

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	INR Currency = "INR"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
	CHF Currency = "CHF"
	CNY Currency = "CNY"
)

// DefaultCurrencies is the allow-list used when no currencies file is configured.
var DefaultCurrencies = []Currency{
	USD, EUR, GBP, JPY, INR, CAD, AUD, CHF, CNY,
	"AED", "ARS", "BRL", "CZK", "DKK", "HKD", "HUF", "IDR", "ILS", "KRW", "MXN",
	"MYR", "NOK", "NZD", "PHP", "PLN", "RON", "RUB", "SAR", "SEK", "SGD", "THB",
	"TRY", "TWD", "UAH", "ZAR",
}

func (c Currency) String() string {
	return string(c)
}

// Allowlist is the set of currency codes the HTTP layer accepts.
type Allowlist struct {
	codes map[Currency]struct{}
}

func NewAllowlist(codes []Currency) *Allowlist {
	a := &Allowlist{codes: make(map[Currency]struct{}, len(codes))}
	for _, c := range codes {
		a.codes[c] = struct{}{}
	}
	return a
}

type allowlistFile struct {
	Currencies []Currency `yaml:"currencies"`
}

// LoadAllowlist reads a YAML document of the form `currencies: [USD, EUR]`.
// An empty path yields DefaultCurrencies.
func LoadAllowlist(path string) (*Allowlist, error) {
	if path == "" {
		return NewAllowlist(DefaultCurrencies), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading currencies file")
	}

	var f allowlistFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, "parsing currencies file")
	}
	if len(f.Currencies) == 0 {
		return nil, errors.Errorf("currencies file %s lists no currencies", path)
	}

	return NewAllowlist(f.Currencies), nil
}

func (a *Allowlist) IsSupported(c Currency) bool {
	_, ok := a.codes[c]
	return ok
}

func (a *Allowlist) Codes() []Currency {
	out := make([]Currency, 0, len(a.codes))
	for c := range a.codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
