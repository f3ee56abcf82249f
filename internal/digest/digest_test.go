package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalist/signalist/internal/llm"
	"github.com/signalist/signalist/pkg/models"
)

// ── fakes ──

type staticSymbols struct {
	symbols []string
	err     error
}

func (s staticSymbols) Symbols(context.Context) ([]string, error) { return s.symbols, s.err }

type fakeNews struct {
	mu       sync.Mutex
	bySymbol []models.NewsArticle
	general  []models.NewsArticle
	err      error
	calls    [][]string
}

func (f *fakeNews) News(_ context.Context, symbols []string) ([]models.NewsArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbols)
	if f.err != nil {
		return nil, f.err
	}
	if len(symbols) == 0 {
		return f.general, nil
	}
	return f.bySymbol, nil
}

type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
	calls   atomic.Int32
	block   chan struct{}
}

func (f *fakeLLM) Name() string { return "fake" }
func (f *fakeLLM) Ping(context.Context) error { return nil }
func (f *fakeLLM) Chat(_ context.Context, msgs []llm.Message, _ *llm.ChatOptions) (*llm.Response, error) {
	n := int(f.calls.Add(1)) - 1
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, msgs[len(msgs)-1].Content)
	if n < len(f.errs) && f.errs[n] != nil {
		return nil, f.errs[n]
	}
	reply := ""
	if n < len(f.replies) {
		reply = f.replies[n]
	}
	return &llm.Response{Content: reply, Provider: "fake"}, nil
}

func articles(n int, prefix string) []models.NewsArticle {
	out := make([]models.NewsArticle, n)
	for i := range out {
		out[i] = models.NewsArticle{
			ID:       i + 1,
			Headline: fmt.Sprintf("%s headline %d", prefix, i+1),
			Source:   "Reuters",
			URL:      fmt.Sprintf("https://example.com/%s/%d", prefix, i+1),
			Category: models.CategoryGeneral,
		}
	}
	return out
}

func newJob(sym SymbolSource, news NewsSource, p llm.Provider, opts ...Option) *Job {
	fixed := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		WithClock(func() time.Time { return fixed }),
	}, opts...)
	return NewJob(sym, news, p, opts...)
}

// ── Run ──

func TestRunSummarizesWatchlistNews(t *testing.T) {
	news := &fakeNews{bySymbol: articles(8, "aapl")}
	model := &fakeLLM{replies: []string{"  Apple led gains.  "}}
	job := newJob(staticSymbols{symbols: []string{"AAPL", "MSFT"}}, news, model)

	res, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, MsgSuccess, res.Message)
	assert.Equal(t, "Apple led gains.", res.Summary)
	assert.Equal(t, MaxArticles, res.Articles)
	assert.Equal(t, []string{"AAPL", "MSFT"}, res.Symbols)
	assert.Equal(t, "2026-03-02T12:00:00Z", res.GeneratedAt)

	require.Len(t, news.calls, 1)
	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	assert.NotContains(t, prompt, newsDataPlaceholder)
	assert.Contains(t, prompt, `"headline": "aapl headline 6"`)
	assert.NotContains(t, prompt, "aapl headline 7")
}

func TestRunFallsBackToGeneralNews(t *testing.T) {
	news := &fakeNews{general: articles(3, "general")}
	model := &fakeLLM{replies: []string{"Quiet day."}}
	job := newJob(staticSymbols{symbols: []string{"ZZZZ"}}, news, model)

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Articles)

	require.Len(t, news.calls, 2)
	assert.Equal(t, []string{"ZZZZ"}, news.calls[0])
	assert.Nil(t, news.calls[1])
	assert.Contains(t, model.prompts[0], "general headline 1")
}

func TestRunEmptyWatchlistUsesGeneralNewsOnce(t *testing.T) {
	news := &fakeNews{general: articles(2, "general")}
	job := newJob(staticSymbols{}, news, &fakeLLM{replies: []string{"ok"}})

	_, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, news.calls, 1)
}

func TestRunWatchlistErrorStillFetchesGeneralNews(t *testing.T) {
	news := &fakeNews{general: articles(1, "general")}
	job := newJob(staticSymbols{err: errors.New("disk gone")}, news, &fakeLLM{replies: []string{"ok"}})

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, res.Symbols)
}

func TestRunNoArticles(t *testing.T) {
	model := &fakeLLM{}
	job := newJob(staticSymbols{symbols: []string{"AAPL"}}, &fakeNews{}, model)

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, MsgNoArticles, res.Message)
	assert.Zero(t, model.calls.Load(), "llm must not be called without articles")
}

func TestRunNewsFailure(t *testing.T) {
	boom := errors.New("failed to fetch news")
	job := newJob(staticSymbols{symbols: []string{"AAPL"}}, &fakeNews{err: boom}, &fakeLLM{})

	res, err := job.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Success)
}

func TestRunEmptyModelReply(t *testing.T) {
	job := newJob(staticSymbols{}, &fakeNews{general: articles(1, "g")}, &fakeLLM{replies: []string{"   "}})

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NoMarketNews, res.Summary)
}

func TestRunEmptyResponseErrorIsNotRetried(t *testing.T) {
	model := &fakeLLM{errs: []error{fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)}}
	job := newJob(staticSymbols{}, &fakeNews{general: articles(1, "g")}, model)

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, NoMarketNews, res.Summary)
	assert.EqualValues(t, 1, model.calls.Load())
}

func TestRunRetriesTransientErrors(t *testing.T) {
	model := &fakeLLM{
		errs:    []error{llm.ErrProviderDown, llm.ErrRateLimit},
		replies: []string{"", "", "Third time lucky."},
	}
	job := newJob(staticSymbols{}, &fakeNews{general: articles(1, "g")}, model, WithMaxAttempts(3))

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Third time lucky.", res.Summary)
	assert.EqualValues(t, 3, model.calls.Load())
}

func TestRunGivesUpAfterMaxAttempts(t *testing.T) {
	model := &fakeLLM{errs: []error{llm.ErrProviderDown, llm.ErrProviderDown, llm.ErrProviderDown}}
	job := newJob(staticSymbols{}, &fakeNews{general: articles(1, "g")}, model, WithMaxAttempts(2))

	res, err := job.Run(context.Background())
	assert.ErrorIs(t, err, llm.ErrProviderDown)
	assert.False(t, res.Success)
	assert.EqualValues(t, 2, model.calls.Load())
}

func TestRunDoesNotRetryPermanentErrors(t *testing.T) {
	model := &fakeLLM{errs: []error{llm.ErrNoAPIKey}}
	job := newJob(staticSymbols{}, &fakeNews{general: articles(1, "g")}, model)

	_, err := job.Run(context.Background())
	assert.ErrorIs(t, err, llm.ErrNoAPIKey)
	assert.EqualValues(t, 1, model.calls.Load())
}

func TestRunWithoutProvider(t *testing.T) {
	job := newJob(staticSymbols{}, &fakeNews{general: articles(1, "g")}, nil)

	_, err := job.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestRunCustomPrompt(t *testing.T) {
	model := &fakeLLM{replies: []string{"ok"}}
	job := newJob(staticSymbols{}, &fakeNews{general: articles(1, "g")}, model,
		WithPrompt("NEWS>{{newsData}}<END"))

	_, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(model.prompts[0], "NEWS>["))
	assert.True(t, strings.HasSuffix(model.prompts[0], "]<END"))
}

func TestRunsAreSerialized(t *testing.T) {
	model := &fakeLLM{replies: []string{"one", "two"}, block: make(chan struct{})}
	job := newJob(staticSymbols{}, &fakeNews{general: articles(1, "g")}, model)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = job.Run(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return model.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, job.Running())
	// The second run waits on the job lock, not inside Chat.
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, model.calls.Load())

	close(model.block)
	wg.Wait()
	assert.EqualValues(t, 2, model.calls.Load())
	assert.False(t, job.Running())
}

func TestStartRejectsConcurrentRun(t *testing.T) {
	model := &fakeLLM{replies: []string{"one"}, block: make(chan struct{})}
	job := newJob(staticSymbols{}, &fakeNews{general: articles(1, "g")}, model)

	require.True(t, job.Start(context.Background()))
	assert.True(t, job.Running())
	// Claimed before Start returns, so the second call loses without a gap.
	assert.False(t, job.Start(context.Background()))

	close(model.block)
	require.Eventually(t, func() bool {
		_, ok := job.Last()
		return ok && !job.Running()
	}, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, model.calls.Load())

	// The lock is released once the first run is fully done.
	require.Eventually(t, func() bool { return job.Start(context.Background()) }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return model.calls.Load() == 2 && !job.Running() }, time.Second, 5*time.Millisecond)
}

func TestLast(t *testing.T) {
	job := newJob(staticSymbols{}, &fakeNews{general: articles(1, "g")}, &fakeLLM{replies: []string{"ok"}})

	_, ok := job.Last()
	assert.False(t, ok)

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	last, ok := job.Last()
	require.True(t, ok)
	assert.Equal(t, MsgSuccess, last.Message)
}

// ── Scheduler ──

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(DefaultSchedule))
	assert.NoError(t, ValidateSchedule("30 8 * * 1-5"))
	assert.Error(t, ValidateSchedule("every noon"))
	assert.Error(t, ValidateSchedule("0 12 * *"))
}

func TestNewSchedulerNextRun(t *testing.T) {
	job := newJob(staticSymbols{}, &fakeNews{}, nil)

	s, err := NewScheduler(job, "", nil)
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero(), "no next run before Start")

	s.Start()
	defer s.Stop()

	next := s.Next()
	require.False(t, next.IsZero())
	assert.Equal(t, 12, next.UTC().Hour())
	assert.Equal(t, 0, next.UTC().Minute())
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(newJob(staticSymbols{}, &fakeNews{}, nil), "bogus", nil)
	assert.Error(t, err)
}
