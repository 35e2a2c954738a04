package boost

import "github.com/shopspring/decimal"

// Catalog strategy names.
const (
	StrategyAdditivePercent       = "ADDITIVE_PERCENT"
	StrategyMultiplicativePercent = "MULTIPLICATIVE_PERCENT"
)

var (
	oddsFloor = decimal.RequireFromString("1.01")
	one       = decimal.NewFromInt(1)
	hundred   = decimal.NewFromInt(100)
)

// AdditivePercent boosts the net-winnings component of each price: for
// decimal odds o, o' = o + (o-1)*p/100. A 10% boost turns 2.50 into 2.65.
type AdditivePercent struct{}

func (AdditivePercent) Name() string { return StrategyAdditivePercent }

func (AdditivePercent) Apply(m *BuiltMarket, percent decimal.Decimal) {
	factor := percent.Div(hundred)
	for i := range m.Outcomes {
		o := m.Outcomes[i].Odds
		if o.LessThanOrEqual(decimal.Zero) {
			continue
		}
		m.Outcomes[i].Odds = clampOdds(o.Add(o.Sub(one).Mul(factor)))
	}
}

// MultiplicativePercent scales the gross price: o' = o*(1+p/100). A 10%
// boost turns 2.50 into 2.75.
type MultiplicativePercent struct{}

func (MultiplicativePercent) Name() string { return StrategyMultiplicativePercent }

func (MultiplicativePercent) Apply(m *BuiltMarket, percent decimal.Decimal) {
	factor := one.Add(percent.Div(hundred))
	for i := range m.Outcomes {
		o := m.Outcomes[i].Odds
		if o.LessThanOrEqual(decimal.Zero) {
			continue
		}
		m.Outcomes[i].Odds = clampOdds(o.Mul(factor))
	}
}

// clampOdds rounds to two decimal places and enforces the 1.01 price floor.
func clampOdds(o decimal.Decimal) decimal.Decimal {
	o = o.Round(2)
	if o.LessThan(oddsFloor) {
		return oddsFloor
	}
	return o
}
