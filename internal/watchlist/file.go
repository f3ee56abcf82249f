package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/signalist/signalist/internal/logging"
	"github.com/signalist/signalist/pkg/models"
)

// FileStore keeps the watchlist as an indented JSON array in one file. The
// file is read in full on every call, so edits made while the process runs
// are picked up. Mutations hold a mutex across read-modify-write and replace
// the file atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by path. The directory is created on
// first use.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, log: logging.OrNop(logger)}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) List(_ context.Context) ([]models.WatchlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) Add(_ context.Context, symbol, company string) (bool, error) {
	sym := normalize(symbol)
	if sym == "" {
		return false, ErrEmptySymbol
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return false, err
	}
	if indexOf(items, sym) >= 0 {
		return false, nil
	}

	items = append(items, newItem(sym, company))
	if err := s.write(items); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) Remove(_ context.Context, symbol string) (bool, error) {
	sym := normalize(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return false, err
	}

	kept := make([]models.WatchlistItem, 0, len(items))
	for _, it := range items {
		if normalize(it.Symbol) != sym {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		return false, nil
	}
	if err := s.write(kept); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) Contains(ctx context.Context, symbol string) (bool, error) {
	items, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	return indexOf(items, normalize(symbol)) >= 0, nil
}

func (s *FileStore) Symbols(ctx context.Context) ([]string, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	syms := make([]string, len(items))
	for i, it := range items {
		syms[i] = it.Symbol
	}
	return syms, nil
}

// Close is a no-op; FileStore holds no open handles.
func (s *FileStore) Close() error { return nil }

// read loads the file. A missing file is an empty list. An unreadable or
// corrupt file is logged and also treated as empty. Must be called with mu held.
func (s *FileStore) read() ([]models.WatchlistItem, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("reading watchlist file", zap.String("path", s.path), zap.Error(err))
		}
		return []models.WatchlistItem{}, nil
	}

	var items []models.WatchlistItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("watchlist file is corrupt, treating as empty", zap.String("path", s.path), zap.Error(err))
		return []models.WatchlistItem{}, nil
	}
	if items == nil {
		items = []models.WatchlistItem{}
	}
	return items, nil
}

// write replaces the file with items via a temp file and rename.
// Must be called with mu held.
func (s *FileStore) write(items []models.WatchlistItem) error {
	if err := s.ensureDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal watchlist: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".watchlist-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write watchlist: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync watchlist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close watchlist: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace watchlist: %w", err)
	}
	return nil
}

func (s *FileStore) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func indexOf(items []models.WatchlistItem, sym string) int {
	for i, it := range items {
		if normalize(it.Symbol) == sym {
			return i
		}
	}
	return -1
}
