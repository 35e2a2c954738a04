package boost

import (
	"github.com/shopspring/decimal"

	"github.com/betfeed/oddsrouter/internal/domain"
)

// BuiltMarket is the working form a strategy operates on: a market line with
// its outcome odds lifted into decimals.
type BuiltMarket struct {
	ID         int
	Specifiers string
	Outcomes   []BuiltOutcome
}

// BuiltOutcome is one priced selection in decimal form.
type BuiltOutcome struct {
	ID   string
	Odds decimal.Decimal
}

// Build lifts a market line into its working form.
func Build(mk domain.OddsChangeMarket) BuiltMarket {
	built := BuiltMarket{
		ID:         mk.ID,
		Specifiers: mk.Specifiers,
		Outcomes:   make([]BuiltOutcome, len(mk.Outcomes)),
	}
	for i, o := range mk.Outcomes {
		built.Outcomes[i] = BuiltOutcome{ID: o.ID, Odds: decimal.NewFromFloat(o.Odds)}
	}
	return built
}

// Merge writes the built odds back onto a copy of the original market line,
// matched by outcome id. Every non-odds field (status, specifiers, outcome
// ids, active flags, probabilities) is carried over unchanged.
func Merge(orig domain.OddsChangeMarket, built BuiltMarket) domain.OddsChangeMarket {
	out := orig.Clone()
	for i := range out.Outcomes {
		for _, b := range built.Outcomes {
			if b.ID == out.Outcomes[i].ID {
				out.Outcomes[i].Odds = b.Odds.InexactFloat64()
				break
			}
		}
	}
	return out
}
