package domain

import (
	"encoding/xml"
	"sort"
	"strconv"
	"strings"
)

// Product identifies the upstream producer line a message originates from.
type Product string

const (
	ProductPrematch Product = "PREMATCH"
	ProductLive     Product = "LIVE"
)

// OddsChange is a single odds update for one fixture as delivered by the
// upstream provider. EventID is the fixture URN, e.g. "sr:match:12345".
type OddsChange struct {
	XMLName   xml.Name `xml:"odds_change"`
	EventID   string   `xml:"event_id,attr"`
	Product   Product  `xml:"product,attr"`
	Timestamp int64    `xml:"timestamp,attr"`
	Odds      *Odds    `xml:"odds"`
}

// Odds groups the market lines carried by an odds change.
type Odds struct {
	BettingStatus *int               `xml:"betting_status,attr,omitempty"`
	Markets       []OddsChangeMarket `xml:"market"`
}

// OddsChangeMarket is one market line inside an odds change. Specifiers is
// the raw "k=v|k=v" string from the wire.
type OddsChangeMarket struct {
	ID         int       `xml:"id,attr"`
	Specifiers string    `xml:"specifiers,attr,omitempty"`
	Status     int       `xml:"status,attr,omitempty"`
	Outcomes   []Outcome `xml:"outcome"`
}

// Outcome is a single priced selection within a market.
type Outcome struct {
	ID            string   `xml:"id,attr"`
	Odds          float64  `xml:"odds,attr,omitempty"`
	Probabilities *float64 `xml:"probabilities,attr,omitempty"`
	Active        *bool    `xml:"active,attr,omitempty"`
}

// Markets returns the market slice, tolerating a nil odds block.
func (m *OddsChange) Markets() []OddsChangeMarket {
	if m == nil || m.Odds == nil {
		return nil
	}
	return m.Odds.Markets
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (m *OddsChange) Clone() *OddsChange {
	if m == nil {
		return nil
	}
	out := *m
	if m.Odds != nil {
		odds := Odds{}
		if m.Odds.BettingStatus != nil {
			v := *m.Odds.BettingStatus
			odds.BettingStatus = &v
		}
		if m.Odds.Markets != nil {
			odds.Markets = make([]OddsChangeMarket, len(m.Odds.Markets))
			for i := range m.Odds.Markets {
				odds.Markets[i] = m.Odds.Markets[i].Clone()
			}
		}
		out.Odds = &odds
	}
	return &out
}

// Clone returns a deep copy of the market line.
func (mk OddsChangeMarket) Clone() OddsChangeMarket {
	out := mk
	if mk.Outcomes != nil {
		out.Outcomes = make([]Outcome, len(mk.Outcomes))
		for i, o := range mk.Outcomes {
			if o.Probabilities != nil {
				v := *o.Probabilities
				o.Probabilities = &v
			}
			if o.Active != nil {
				v := *o.Active
				o.Active = &v
			}
			out.Outcomes[i] = o
		}
	}
	return out
}

// Key identifies the market for boost matching: "{id}|{specifiers}" with
// the specifier pairs in canonical order.
func (mk OddsChangeMarket) Key() string {
	return MarketKey(mk.ID, mk.Specifiers)
}

// MarketKey builds the boost join key for a market id and raw specifiers.
func MarketKey(id int, specifiers string) string {
	return strconv.Itoa(id) + "|" + CanonicalSpecifiers(specifiers)
}

// CanonicalSpecifiers rewrites a "k=v|k=v" specifiers string with the pairs
// sorted by key, so equal specifier sets always yield equal keys. Empty and
// single-pair inputs pass through unchanged.
func CanonicalSpecifiers(s string) string {
	if !strings.Contains(s, "|") {
		return s
	}
	pairs := strings.Split(s, "|")
	sort.Strings(pairs)
	return strings.Join(pairs, "|")
}
