package polygon

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/signalist/signalist/pkg/models"
)

// ErrNewsUnavailable is the only error News returns. The cause is logged.
var ErrNewsUnavailable = errors.New("failed to fetch news")

// failureMode is what a capability does with an error from its fetch.
type failureMode int

const (
	// failRaise logs the cause and returns the capability's generic error.
	failRaise failureMode = iota
	// failDegrade logs the cause and returns the capability's fallback value.
	failDegrade
)

// capability declares, in one place, how long a query's responses are
// cached and what callers see when it fails.
type capability[T any] struct {
	name       string
	revalidate time.Duration
	onFailure  failureMode
	err        error // returned under failRaise
	fallback   func() T
}

var (
	newsCap = capability[[]models.NewsArticle]{
		name:       "news",
		revalidate: 300 * time.Second,
		onFailure:  failRaise,
		err:        ErrNewsUnavailable,
	}
	searchCap = capability[[]models.StockSearchResult]{
		name:       "search",
		revalidate: 1800 * time.Second,
		onFailure:  failDegrade,
		fallback:   func() []models.StockSearchResult { return []models.StockSearchResult{} },
	}
	snapshotCap = capability[*models.PriceSnapshot]{
		name:       "snapshot",
		revalidate: 60 * time.Second,
		onFailure:  failDegrade,
		fallback:   func() *models.PriceSnapshot { return nil },
	}
	aggregatesCap = capability[[]models.OHLCBar]{
		name:       "aggregates",
		revalidate: 300 * time.Second,
		onFailure:  failDegrade,
		fallback:   func() []models.OHLCBar { return []models.OHLCBar{} },
	}
	detailsCap = capability[*models.CompanyDetails]{
		name:       "details",
		revalidate: 3600 * time.Second,
		onFailure:  failDegrade,
		fallback:   func() *models.CompanyDetails { return nil },
	}
)

// run executes fn and applies the capability's failure policy.
func (cp capability[T]) run(ctx context.Context, logger *zap.Logger, fn func(context.Context) (T, error), fields ...zap.Field) (T, error) {
	v, err := fn(ctx)
	if err == nil {
		return v, nil
	}

	logger.Warn("polygon "+cp.name+" failed", append(fields, zap.Error(err))...)

	if cp.onFailure == failRaise {
		var zero T
		return zero, cp.err
	}
	return cp.fallback(), nil
}
