package store

import (
	"fmt"
	"sort"
	"sync"

	"exchange-rate-facade/internal/domain/model"
	"exchange-rate-facade/pkg/logger"
	"exchange-rate-facade/pkg/utils"
)

// OverrideStore keeps caller-registered pair rates in memory for the life of the process.
type OverrideStore struct {
	mutex     sync.RWMutex
	overrides map[model.Currency]map[model.Currency]float64
	log       *logger.Logger
}

func NewOverrideStore(log *logger.Logger) *OverrideStore {
	return &OverrideStore{
		overrides: make(map[model.Currency]map[model.Currency]float64),
		log:       log,
	}
}

// Set inserts or replaces the override for (from, to). The store is left
// untouched when rate is not a positive finite number.
func (s *OverrideStore) Set(from, to model.Currency, rate float64) error {
	if !utils.IsValidRate(rate) {
		return fmt.Errorf("%w: got %v", model.ErrInvalidRate, rate)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	targets, ok := s.overrides[from]
	if !ok {
		targets = make(map[model.Currency]float64)
		s.overrides[from] = targets
	}
	targets[to] = rate
	s.log.Debug("Override set", "from", from, "to", to, "rate", rate)

	return nil
}

func (s *OverrideStore) Get(from, to model.Currency) (float64, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rate, ok := s.overrides[from][to]
	return rate, ok
}

// All returns a snapshot of every override ordered by (from, to).
func (s *OverrideStore) All() []model.Override {
	s.mutex.RLock()
	out := make([]model.Override, 0, len(s.overrides))
	for from, targets := range s.overrides {
		for to, rate := range targets {
			out = append(out, model.Override{From: from, To: to, Rate: rate})
		}
	}
	s.mutex.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})

	return out
}
