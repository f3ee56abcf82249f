// Package digest implements the daily news digest: watchlist symbols are
// turned into a news selection, summarized by an LLM and logged.
package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/signalist/signalist/internal/llm"
	"github.com/signalist/signalist/pkg/models"
	"github.com/signalist/signalist/pkg/utils"
)

// Result messages.
const (
	MsgNoArticles = "No news articles found"
	MsgSuccess    = "Daily news summary generated successfully"
	NoMarketNews  = "No market news."
)

// MaxArticles caps how many articles go into the prompt.
const MaxArticles = 6

// ErrNoProvider is returned when the job has no LLM to summarize with.
var ErrNoProvider = errors.New("digest: llm provider not configured")

// SymbolSource yields the watchlist symbols.
type SymbolSource interface {
	Symbols(ctx context.Context) ([]string, error)
}

// NewsSource fetches news for symbols; nil symbols means general news.
type NewsSource interface {
	News(ctx context.Context, symbols []string) ([]models.NewsArticle, error)
}

// Job runs one digest at a time.
type Job struct {
	symbols  SymbolSource
	news     NewsSource
	provider llm.Provider
	logger   *zap.Logger

	prompt      string
	maxAttempts int
	chatOpts    *llm.ChatOptions
	newBackOff  func() backoff.BackOff
	now         func() time.Time

	mu      sync.Mutex // serializes runs
	running atomic.Bool

	lastMu sync.RWMutex
	last   *models.DigestResult
}

// Option configures a Job.
type Option func(*Job)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(j *Job) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithPrompt replaces the prompt template. It should contain {{newsData}}.
func WithPrompt(p string) Option {
	return func(j *Job) { j.prompt = p }
}

// WithMaxAttempts bounds LLM calls per run. Values below 1 mean 1.
func WithMaxAttempts(n int) Option {
	return func(j *Job) { j.maxAttempts = max(n, 1) }
}

// WithChatOptions sets model parameters passed to the provider.
func WithChatOptions(opts *llm.ChatOptions) Option {
	return func(j *Job) { j.chatOpts = opts }
}

// WithBackOff sets the retry schedule factory.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(j *Job) { j.newBackOff = f }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(j *Job) { j.now = now }
}

// NewJob creates a digest job. provider may be nil, in which case runs that
// reach the summarize step fail with ErrNoProvider.
func NewJob(symbols SymbolSource, news NewsSource, provider llm.Provider, opts ...Option) *Job {
	j := &Job{
		symbols:     symbols,
		news:        news,
		provider:    provider,
		logger:      zap.NewNop(),
		prompt:      DefaultPrompt,
		maxAttempts: 3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			return b
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Running reports whether a run is in progress.
func (j *Job) Running() bool { return j.running.Load() }

// Last returns the result of the most recent completed run.
func (j *Job) Last() (models.DigestResult, bool) {
	j.lastMu.RLock()
	defer j.lastMu.RUnlock()
	if j.last == nil {
		return models.DigestResult{}, false
	}
	return *j.last, true
}

// Run executes the digest. A run with no articles is not an error; it
// returns Success=false with MsgNoArticles.
func (j *Job) Run(ctx context.Context) (models.DigestResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.running.Store(true)
	return j.execute(ctx)
}

// Start launches a run in the background and reports true, or reports false
// without doing anything when a run is already in progress.
func (j *Job) Start(ctx context.Context) bool {
	if !j.mu.TryLock() {
		return false
	}
	j.running.Store(true)
	go func() {
		defer j.mu.Unlock()
		_, _ = j.execute(ctx)
	}()
	return true
}

// execute runs the digest. The caller holds j.mu and has set running.
func (j *Job) execute(ctx context.Context) (models.DigestResult, error) {
	defer j.running.Store(false)

	start := j.now()
	res, err := j.run(ctx)
	res.GeneratedAt = start.UTC().Format(time.RFC3339)

	if err != nil {
		j.logger.Error("daily news digest failed", zap.Error(err))
	} else {
		j.logger.Info("daily news digest finished",
			zap.Bool("success", res.Success),
			zap.Int("articles", res.Articles),
			zap.Strings("symbols", res.Symbols),
			zap.Duration("took", j.now().Sub(start)),
		)
	}

	j.lastMu.Lock()
	j.last = &res
	j.lastMu.Unlock()
	return res, err
}

func (j *Job) run(ctx context.Context) (models.DigestResult, error) {
	symbols, err := j.symbols.Symbols(ctx)
	if err != nil {
		// An unreadable watchlist still gets general news.
		j.logger.Warn("reading watchlist symbols", zap.Error(err))
		symbols = nil
	}
	res := models.DigestResult{Symbols: symbols}

	articles, err := j.fetchNews(ctx, symbols)
	if err != nil {
		res.Message = err.Error()
		return res, err
	}
	res.Articles = len(articles)
	if len(articles) == 0 {
		res.Message = MsgNoArticles
		return res, nil
	}

	prompt, err := j.buildPrompt(articles)
	if err != nil {
		res.Message = err.Error()
		return res, err
	}

	summary, err := j.summarize(ctx, prompt)
	if err != nil {
		res.Message = err.Error()
		return res, err
	}

	j.logger.Info("news summary generated",
		zap.String("date", utils.FormattedDate(j.now())),
		zap.String("summary", summary),
	)

	res.Success = true
	res.Message = MsgSuccess
	res.Summary = summary
	return res, nil
}

// fetchNews asks for watchlist news and falls back to general news once.
func (j *Job) fetchNews(ctx context.Context, symbols []string) ([]models.NewsArticle, error) {
	var articles []models.NewsArticle
	if len(symbols) > 0 {
		var err error
		articles, err = j.news.News(ctx, symbols)
		if err != nil {
			return nil, err
		}
		articles = capArticles(articles)
	}
	if len(articles) > 0 {
		return articles, nil
	}

	articles, err := j.news.News(ctx, nil)
	if err != nil {
		return nil, err
	}
	return capArticles(articles), nil
}

func (j *Job) buildPrompt(articles []models.NewsArticle) (string, error) {
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("digest: encode articles: %w", err)
	}
	return strings.Replace(j.prompt, newsDataPlaceholder, string(data), 1), nil
}

// summarize calls the provider with exponential backoff. Errors that cannot
// succeed on retry stop the loop early.
func (j *Job) summarize(ctx context.Context, prompt string) (string, error) {
	if j.provider == nil {
		return "", ErrNoProvider
	}

	var content string
	attempt := 0
	op := func() error {
		attempt++
		resp, err := j.provider.Chat(ctx, []llm.Message{llm.UserMessage(prompt)}, j.chatOpts)
		if errors.Is(err, llm.ErrEmptyResponse) {
			content = ""
			return nil
		}
		if err != nil {
			if !llm.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		j.logger.Debug("llm reply", zap.Stringer("response", resp))
		content = strings.TrimSpace(resp.Content)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		j.logger.Warn("llm call failed, retrying",
			zap.String("provider", j.provider.Name()),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(j.newBackOff(), uint64(j.maxAttempts-1)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return "", fmt.Errorf("digest: summarize news: %w", err)
	}

	if content == "" {
		content = NoMarketNews
	}
	return content, nil
}

func capArticles(a []models.NewsArticle) []models.NewsArticle {
	if len(a) > MaxArticles {
		return a[:MaxArticles]
	}
	return a
}
