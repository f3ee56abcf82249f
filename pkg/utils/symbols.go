package utils

import (
	"regexp"
	"strings"
)

// PopularSymbols is the fixed list shown when a search has no query.
var PopularSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
	"META", "TSLA", "BRK.B", "JPM", "V",
	"NFLX", "AMD", "ORCL", "CRM", "INTC",
	"DIS", "KO", "PEP", "WMT", "COST",
}

// symbolPattern matches US equity tickers, including share-class suffixes
// such as BRK.B and BF-A.
var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,9}([.\-][A-Z0-9]{1,3})?$`)

// NormalizeSymbol trims and uppercases a user-supplied ticker. A leading "$"
// (common in chat) is dropped.
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return strings.TrimSpace(strings.TrimPrefix(symbol, "$"))
}

// CleanSymbols normalizes every entry and drops the ones that end up empty.
// Order is preserved and duplicates are kept.
func CleanSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = NormalizeSymbol(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitSymbols parses a comma-separated list such as "aapl, msft".
func SplitSymbols(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return CleanSymbols(strings.Split(csv, ","))
}

// IsValidSymbol reports whether symbol looks like a US equity ticker once
// normalized.
func IsValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(NormalizeSymbol(symbol))
}
