// Package models defines the core data structures shared by the market-data
// layer, the watchlist store, the API and the CLI.
package models

import "strings"

// StockSearchResult is one row of a ticker search. The market-data layer
// always leaves IsInWatchlist false; callers reconcile it against the store.
type StockSearchResult struct {
	Symbol        string `json:"symbol"`   // uppercased ticker
	Name          string `json:"name"`     // company name, falls back to the ticker
	Exchange      string `json:"exchange"` // primary exchange MIC, "US" when unknown
	Type          string `json:"type"`     // security type, "Stock" when unknown
	IsInWatchlist bool   `json:"isInWatchlist"`
}

// PriceSnapshot is the latest price for one ticker.
type PriceSnapshot struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// OHLCBar is a single aggregate bar. Timestamp is unix milliseconds at the
// start of the bar.
type OHLCBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// CompanyDetails is the reference profile of a listed company.
type CompanyDetails struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Homepage    string  `json:"homepage,omitempty"`
	MarketCap   float64 `json:"marketCap,omitempty"`
	Employees   int64   `json:"employees,omitempty"`
	ListDate    string  `json:"listDate,omitempty"`
	Logo        string  `json:"logo,omitempty"`
}

// Timespan is the bar width for aggregate queries.
type Timespan string

const (
	TimespanMinute Timespan = "minute"
	TimespanHour   Timespan = "hour"
	TimespanDay    Timespan = "day"
	TimespanWeek   Timespan = "week"
	TimespanMonth  Timespan = "month"
)

// Valid reports whether ts is one of the supported bar widths.
func (ts Timespan) Valid() bool {
	switch ts {
	case TimespanMinute, TimespanHour, TimespanDay, TimespanWeek, TimespanMonth:
		return true
	}
	return false
}

// ParseTimespan normalizes s, returning TimespanDay for empty or unknown input.
func ParseTimespan(s string) Timespan {
	ts := Timespan(strings.ToLower(strings.TrimSpace(s)))
	if ts.Valid() {
		return ts
	}
	return TimespanDay
}

// DateRange is an inclusive calendar range in YYYY-MM-DD form.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}
