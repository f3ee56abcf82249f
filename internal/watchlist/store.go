// Package watchlist persists the user's saved symbols.
//
// Two backends implement Store: FileStore keeps a JSON array in a single file
// and SQLiteStore keeps one row per symbol in an embedded database. Symbols
// are uppercased on the way in and compared case-insensitively.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/signalist/signalist/internal/config"
	"github.com/signalist/signalist/pkg/models"
	"github.com/signalist/signalist/pkg/utils"
)

// ErrEmptySymbol is returned by Add when the symbol is blank.
var ErrEmptySymbol = errors.New("watchlist: symbol is empty")

// Store is the watchlist persistence contract.
type Store interface {
	// List returns all items in insertion order.
	List(ctx context.Context) ([]models.WatchlistItem, error)
	// Add appends symbol unless it is already present. It reports whether
	// the item was added.
	Add(ctx context.Context, symbol, company string) (bool, error)
	// Remove deletes symbol. It reports whether an item was removed.
	Remove(ctx context.Context, symbol string) (bool, error)
	// Contains reports whether symbol is saved.
	Contains(ctx context.Context, symbol string) (bool, error)
	// Symbols returns the saved symbols in insertion order.
	Symbols(ctx context.Context) ([]string, error)
	Close() error
}

// Open builds the backend selected by cfg.Driver ("file" or "sqlite").
func Open(cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	dir := cfg.DataDir
	if dir == "" {
		dir = ".data"
	}
	switch strings.ToLower(cfg.Driver) {
	case "", "file":
		return NewFileStore(filepath.Join(dir, "watchlist.json"), logger), nil
	case "sqlite":
		return NewSQLiteStore(filepath.Join(dir, "watchlist.db"))
	default:
		return nil, fmt.Errorf("watchlist: unknown storage driver %q", cfg.Driver)
	}
}

// clock is swapped in tests.
var clock = time.Now

func newItem(symbol, company string) models.WatchlistItem {
	return models.WatchlistItem{
		Symbol:  symbol,
		Company: company,
		AddedAt: clock().UTC().Format(models.AddedAtLayout),
	}
}

func normalize(symbol string) string {
	return utils.NormalizeSymbol(symbol)
}

// --- Change notifications ---

// Observed wraps a Store and calls notify after every add or remove that
// changed the watchlist.
func Observed(s Store, notify func(models.WatchlistEvent)) Store {
	return &observedStore{Store: s, notify: notify}
}

type observedStore struct {
	Store
	notify func(models.WatchlistEvent)
}

func (o *observedStore) Add(ctx context.Context, symbol, company string) (bool, error) {
	added, err := o.Store.Add(ctx, symbol, company)
	if err != nil || !added {
		return added, err
	}
	ev := models.WatchlistEvent{Type: models.WatchlistEventAdded, Symbol: normalize(symbol)}
	if items, err := o.Store.List(ctx); err == nil {
		for i := range items {
			if items[i].Symbol == ev.Symbol {
				ev.Item = &items[i]
				break
			}
		}
	}
	o.notify(ev)
	return true, nil
}

func (o *observedStore) Remove(ctx context.Context, symbol string) (bool, error) {
	removed, err := o.Store.Remove(ctx, symbol)
	if err != nil || !removed {
		return removed, err
	}
	o.notify(models.WatchlistEvent{Type: models.WatchlistEventRemoved, Symbol: normalize(symbol)})
	return true, nil
}
