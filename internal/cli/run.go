package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/bscott/mailcloud/internal/config"
	"github.com/bscott/mailcloud/internal/mailbox"
	"github.com/bscott/mailcloud/internal/metrics"
	"github.com/bscott/mailcloud/internal/output"
	"github.com/bscott/mailcloud/internal/pipeline"
	"github.com/bscott/mailcloud/internal/render"
	"github.com/bscott/mailcloud/internal/tokenize"
)

func (c *RunCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
		ctx.Config = cfg
	}
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := openSession(runCtx, cfg, ctx.Logger)
	if err != nil {
		return err
	}
	defer src.Close()

	summary, err := c.execute(runCtx, ctx, src, c.query(cfg))
	if err != nil {
		return err
	}
	return ctx.Formatter.PrintRunSummary(summary)
}

// apply lets flags override the loaded configuration for this run.
func (c *RunCmd) apply(cfg *config.Config) {
	if c.Provider != "" {
		cfg.Provider = c.Provider
	}
	if len(c.Labels) > 0 {
		cfg.Labels = c.Labels
	}
	if c.Report != "" {
		cfg.Output.ReportPath = c.Report
	}
	if c.Image != "" {
		cfg.Output.ImagePath = c.Image
	}
	if c.NoImage {
		cfg.Output.ImagePath = ""
	}
	if c.Width > 0 {
		cfg.Image.Width = c.Width
	}
	if c.Height > 0 {
		cfg.Image.Height = c.Height
	}
	if c.Workers > 0 {
		cfg.Workers = c.Workers
	}
	if len(c.Stopword) > 0 {
		cfg.Stopwords.Extra = append(cfg.Stopwords.Extra, c.Stopword...)
	}
	if c.NoDefaultStopwords {
		cfg.Stopwords.NoDefaults = true
	}
	if c.Cache {
		cfg.Cache.Enabled = true
	}
	if c.NoCache {
		cfg.Cache.Enabled = false
	}
	if c.MetricsFile != "" {
		cfg.Metrics.Textfile = c.MetricsFile
	}
}

func (c *RunCmd) query(cfg *config.Config) string {
	if c.Query != "" {
		return c.Query
	}
	return mailbox.BuildLabelQuery(cfg.Labels)
}

func buildStopwords(cfg config.StopwordsConfig) tokenize.Stopwords {
	sw := tokenize.NewStopwords()
	if !cfg.NoDefaults {
		sw = tokenize.DefaultStopwords()
	}
	sw.AddCleaned(cfg.Extra...)
	return sw
}

// execute runs the pipeline over src and writes the report, the image and
// the metrics textfile.
func (c *RunCmd) execute(ctx context.Context, cctx *Context, src mailbox.Source, query string) (output.RunSummary, error) {
	cfg := cctx.Config
	logger := cctx.Logger
	stopwords := buildStopwords(cfg.Stopwords)
	m := metrics.New()

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithMetrics(m),
	}

	if cfg.Cache.Enabled {
		store, _, err := openCache(cfg)
		if err != nil {
			return output.RunSummary{}, err
		}
		defer store.Close()
		opts = append(opts, pipeline.WithCache(store))
	}

	f := cctx.Formatter
	var progress *output.Progress
	if !f.Quiet && !f.JSON && output.IsTerminal(f.ErrWriter) {
		progress = output.NewProgress(f.ErrWriter, f)
		opts = append(opts, pipeline.WithObserver(progress.Observe))
	}

	f.Verbosef("Query: %s", query)
	res, err := pipeline.New(src, tokenize.New(stopwords), opts...).Run(ctx, query)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return output.RunSummary{}, err
	}

	summary := output.RunSummary{
		RunID:      res.RunID,
		Query:      query,
		Stats:      res.Stats,
		Distinct:   res.Table.Len(),
		ReportPath: cfg.Output.ReportPath,
	}
	if res.ListErr != nil {
		summary.ListError = res.ListErr.Error()
	}

	if err := res.Table.WriteReportFile(cfg.Output.ReportPath); err != nil {
		return summary, err
	}

	if cfg.Output.ImagePath != "" {
		r, err := render.New(render.Options{
			Width:     cfg.Image.Width,
			Height:    cfg.Image.Height,
			Stopwords: stopwords,
			Seed:      c.Seed,
		})
		if err != nil {
			return summary, err
		}
		err = r.SavePNG(cfg.Output.ImagePath, res.Table.Map())
		switch {
		case errors.Is(err, render.ErrEmpty):
			summary.ImageSkipped = true
			logger.Info("no words to draw, image skipped", "path", cfg.Output.ImagePath)
		case err != nil:
			return summary, err
		default:
			summary.ImagePath = cfg.Output.ImagePath
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return summary, err
		}
	}

	if c.Top > 0 {
		summary.Top = res.Table.Top(c.Top)
	}
	return summary, nil
}
