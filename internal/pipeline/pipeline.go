// Package pipeline runs one word-count pass over the messages matching a
// query: list, fetch, extract, tokenize and count.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bscott/mailcloud/internal/cache"
	"github.com/bscott/mailcloud/internal/extract"
	"github.com/bscott/mailcloud/internal/frequency"
	"github.com/bscott/mailcloud/internal/logging"
	"github.com/bscott/mailcloud/internal/mailbox"
	"github.com/bscott/mailcloud/internal/metrics"
	"github.com/bscott/mailcloud/internal/tokenize"
)

type Stats struct {
	// Total is the number of refs the listing returned.
	Total int `json:"total"`
	// Processed counts messages whose text was tokenized, including empty
	// and cached ones.
	Processed    int `json:"processed"`
	Empty        int `json:"empty"`
	FetchFailed  int `json:"fetch_failed"`
	CacheHits    int `json:"cache_hits"`
	PartsSkipped int `json:"parts_skipped"`
	Tokens       int `json:"tokens"`
	ListErrors   int `json:"list_errors"`
}

type Result struct {
	RunID string
	Table *frequency.Table
	Stats Stats
	// ListErr is set when listing stopped early. The run still counted the
	// refs gathered before the failure.
	ListErr error
}

type Pipeline struct {
	src      mailbox.Source
	tok      *tokenize.Tokenizer
	cache    *cache.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
	observer Observer
	workers  int
}

type Option func(*Pipeline)

func WithCache(c *cache.Store) Option {
	return func(p *Pipeline) { p.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithWorkers sets how many messages are fetched concurrently. Values below
// one mean one.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

func New(src mailbox.Source, tok *tokenize.Tokenizer, opts ...Option) *Pipeline {
	p := &Pipeline{src: src, tok: tok, workers: 1}
	for _, opt := range opts {
		opt(p)
	}
	if p.tok == nil {
		p.tok = tokenize.New(tokenize.DefaultStopwords())
	}
	if p.workers < 1 {
		p.workers = 1
	}
	p.logger = logging.OrDiscard(p.logger)
	return p
}

// Run processes every message matching query. Listing and fetch failures are
// counted in the returned Stats and never abort the run; only cancellation
// of ctx does.
func (p *Pipeline) Run(ctx context.Context, query string) (*Result, error) {
	res := &Result{
		RunID: uuid.NewString(),
		Table: frequency.New(),
	}
	log := p.logger.With("run_id", res.RunID)

	start := time.Now()
	refs, err := mailbox.ListMatching(ctx, p.src, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		res.ListErr = err
		res.Stats.ListErrors++
		p.metrics.RecordListError()
		log.Warn("listing ended early", "error", err, "refs", len(refs))
	}
	res.Stats.Total = len(refs)
	log.Debug("listed messages", "query", query, "count", len(refs), "elapsed", time.Since(start))

	em := &emitter{observer: p.observer, total: len(refs)}
	em.emit(Event{Kind: EventListed})

	if len(refs) == 0 {
		p.metrics.MarkRunFinished(time.Now())
		return res, nil
	}

	tables, stats, err := p.process(ctx, res.RunID, refs, em, log)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		res.Table.Merge(t)
	}
	for _, s := range stats {
		res.Stats.Processed += s.Processed
		res.Stats.Empty += s.Empty
		res.Stats.FetchFailed += s.FetchFailed
		res.Stats.CacheHits += s.CacheHits
		res.Stats.PartsSkipped += s.PartsSkipped
		res.Stats.Tokens += s.Tokens
	}

	p.metrics.MarkRunFinished(time.Now())
	log.Info("run finished",
		"total", res.Stats.Total,
		"processed", res.Stats.Processed,
		"empty", res.Stats.Empty,
		"fetch_failed", res.Stats.FetchFailed,
		"cache_hits", res.Stats.CacheHits,
		"tokens", res.Stats.Tokens,
		"distinct", res.Table.Len(),
		"elapsed", time.Since(start),
	)
	return res, nil
}

// process fans refs out to the worker pool. Each worker owns a table and a
// stats value, merged by the caller once all workers return.
func (p *Pipeline) process(ctx context.Context, runID string, refs []mailbox.MessageRef, em *emitter, log *slog.Logger) ([]*frequency.Table, []Stats, error) {
	workers := min(p.workers, len(refs))
	tables := make([]*frequency.Table, workers)
	stats := make([]Stats, workers)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan mailbox.MessageRef)

	g.Go(func() error {
		defer close(jobs)
		for _, ref := range refs {
			select {
			case jobs <- ref:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		tables[w] = frequency.New()
		table, st := tables[w], &stats[w]
		g.Go(func() error {
			for ref := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				p.handle(gctx, runID, ref, table, st, em, log)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("run canceled: %w", err)
	}
	return tables, stats, nil
}

func (p *Pipeline) handle(ctx context.Context, runID string, ref mailbox.MessageRef, table *frequency.Table, st *Stats, em *emitter, log *slog.Logger) {
	log = log.With("message_id", string(ref))

	text, skipped, cached, err := p.text(ctx, runID, ref, log)
	if err != nil {
		st.FetchFailed++
		p.metrics.RecordMessage(metrics.ResultFailed)
		log.Warn("failed to fetch message", "error", err)
		em.emit(Event{Kind: EventFetchFailed, Ref: ref, Err: err})
		return
	}

	tokens := p.tok.Tokenize(text)
	table.Add(tokens...)

	st.Processed++
	st.Tokens += len(tokens)
	st.PartsSkipped += skipped
	p.metrics.RecordTokens(len(tokens))
	p.metrics.RecordPartsSkipped(skipped)

	kind := EventProcessed
	switch {
	case cached:
		st.CacheHits++
		kind = EventCached
		p.metrics.RecordMessage(metrics.ResultCached)
	case text == "":
		kind = EventEmpty
		p.metrics.RecordMessage(metrics.ResultEmpty)
	default:
		p.metrics.RecordMessage(metrics.ResultProcessed)
	}
	if text == "" {
		st.Empty++
	}

	em.emit(Event{Kind: kind, Ref: ref, Tokens: len(tokens), PartsSkipped: skipped})
}

// text returns the message's text blob from the cache or the source.
func (p *Pipeline) text(ctx context.Context, runID string, ref mailbox.MessageRef, log *slog.Logger) (text string, skipped int, cached bool, err error) {
	if p.cache != nil {
		entry, ok, err := p.cache.Get(ctx, ref)
		if err != nil {
			log.Warn("cache read failed", "error", err)
		} else if ok {
			return entry.Text, entry.PartsSkipped, true, nil
		}
	}

	start := time.Now()
	msg, err := p.src.Fetch(ctx, ref)
	p.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return "", 0, false, err
	}

	ex := extract.Text(msg)
	for _, de := range ex.Skipped {
		log.Warn("skipped undecodable part", "part", de.Index, "mime_type", de.MimeType, "error", de.Err)
	}

	// Messages with undecodable parts are fetched again next run.
	if p.cache != nil && len(ex.Skipped) == 0 {
		entry := cache.Entry{Ref: ref, Text: ex.Text, PartsSkipped: len(ex.Skipped), RunID: runID}
		if err := p.cache.Put(ctx, entry); err != nil {
			log.Warn("cache write failed", "error", err)
		}
	}
	return ex.Text, len(ex.Skipped), false, nil
}
