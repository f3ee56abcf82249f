package models

// AddedAtLayout is the ISO-8601 form used for WatchlistItem.AddedAt.
const AddedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// WatchlistItem is one saved symbol. Symbols are stored uppercased and are
// unique within a watchlist.
type WatchlistItem struct {
	Symbol  string `json:"symbol"`
	Company string `json:"company"`
	AddedAt string `json:"addedAt"`
}

// WatchlistEvent is pushed to live subscribers when the watchlist changes.
type WatchlistEvent struct {
	Type   string         `json:"type"` // "added" or "removed"
	Symbol string         `json:"symbol"`
	Item   *WatchlistItem `json:"item,omitempty"`
}

const (
	WatchlistEventAdded   = "added"
	WatchlistEventRemoved = "removed"
)
