package models

// NewsArticle is a validated, display-ready news item.
type NewsArticle struct {
	ID       int    `json:"id"`       // provider id when numeric, else position in the list
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`   // publisher name
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"` // unix seconds, 0 when the provider time is unparseable
	Category string `json:"category"` // first related ticker or "general"
	Related  string `json:"related"`  // comma-joined tickers
	Image    string `json:"image,omitempty"`
}

// CategoryGeneral marks articles not tied to any ticker.
const CategoryGeneral = "general"
