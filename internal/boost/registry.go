package boost

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/betfeed/oddsrouter/internal/domain"
)

// Strategy rewrites the odds of a built market in place. Percent is the
// boost magnitude from the catalog; rounding, caps and negative handling
// are strategy internal.
type Strategy interface {
	Name() string
	Apply(m *BuiltMarket, percent decimal.Decimal)
}

// Registry manages the named collection of boost strategies the applicator
// looks up at runtime. It is safe for concurrent use.
type Registry struct {
	strategies map[string]Strategy
	mu         sync.RWMutex
}

// NewRegistry returns a Registry preloaded with the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	r.Register(AdditivePercent{})
	r.Register(MultiplicativePercent{})
	return r
}

// Register adds a strategy under its own name. A strategy registered under
// an existing name replaces the previous one.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by catalog name.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: %w", name, domain.ErrUnknownStrategy)
	}
	return s, nil
}

// List returns the names of all registered strategies in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
