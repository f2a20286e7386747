package cli

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"go-reviewlens/config"
	"go-reviewlens/failure"
	"go-reviewlens/logging"
	"go-reviewlens/metrics"
	"go-reviewlens/nlp"
	"go-reviewlens/processor"
)

func (a *app) analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Analyze every review in the folder once (default)",
		Args:  cobra.NoArgs,
		RunE:  a.runAnalyze,
	}
}

func (a *app) runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	env, err := a.setup(ctx, cmd)
	if err != nil {
		a.report(err)
		return nil
	}
	defer env.close()

	a.report(env.runOnce(ctx, a))
	return nil
}

// runEnv is everything a batch run needs, built once per command.
type runEnv struct {
	cfg      config.Config
	logger   *logrus.Logger
	analyzer nlp.Analyzer
	metrics  *metrics.Recorder
}

func (a *app) setup(ctx context.Context, cmd *cobra.Command) (*runEnv, error) {
	cfg, err := config.Load(a.flags.envFile, a.overrides(cmd))
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: a.stderr})
	if err != nil {
		return nil, failure.Config("configure logging", err)
	}

	analyzer, err := nlp.New(ctx, cfg, nlp.Options{Logger: logger, Prompt: a.stderr})
	if err != nil {
		return nil, err
	}

	rec := metrics.New()
	var mws []nlp.Middleware
	if cfg.RateLimit > 0 {
		mws = append(mws, nlp.RateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)))
	}
	mws = append(mws, nlp.Metrics(rec, analyzer.Name()))
	if cfg.Timeout > 0 {
		mws = append(mws, nlp.Timeout(cfg.Timeout))
	}

	logger.WithFields(logrus.Fields{
		"provider": analyzer.Name(),
		"folder":   cfg.Folder,
	}).Debug("analyzer ready")

	return &runEnv{
		cfg:      cfg,
		logger:   logger,
		analyzer: nlp.Wrap(analyzer, mws...),
		metrics:  rec,
	}, nil
}

// runOnce processes the folder and writes the metrics textfile if configured.
func (e *runEnv) runOnce(ctx context.Context, a *app) error {
	p := processor.New(e.analyzer, a.stdout,
		processor.WithLogger(e.logger),
		processor.WithMetrics(e.metrics),
		processor.WithSkipHidden(e.cfg.SkipHidden),
	)
	summary, err := p.Run(ctx, e.cfg.Folder)
	e.logger.WithFields(logrus.Fields{
		"run_id":   summary.RunID,
		"files":    summary.Files,
		"calls":    summary.Calls,
		"duration": summary.Duration,
	}).Debug("run summary")

	if e.cfg.MetricsFile != "" {
		if werr := e.metrics.WriteTextfile(e.cfg.MetricsFile); werr != nil {
			e.logger.WithError(werr).WithField("path", e.cfg.MetricsFile).Warn("failed to write metrics textfile")
		}
	}
	return err
}

func (e *runEnv) close() {
	if err := nlp.Close(e.analyzer); err != nil {
		e.logger.WithError(err).Warn("failed to close analyzer")
	}
}
