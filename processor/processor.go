// Package processor runs the batch review analysis: every file in a folder is
// read, sent through the five remote analyses one call at a time, and printed.
//
// The first error stops the run. Whatever was printed before it stays printed.
package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-reviewlens/failure"
	"go-reviewlens/logging"
	"go-reviewlens/metrics"
	"go-reviewlens/nlp"
	"go-reviewlens/types"
)

// Processor owns one analyzer and one output stream.
type Processor struct {
	analyzer   nlp.Analyzer
	out        io.Writer
	logger     *logrus.Logger
	metrics    *metrics.Recorder
	skipHidden bool
}

type Option func(*Processor)

func WithLogger(l *logrus.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Processor) { p.metrics = r }
}

// WithSkipHidden controls whether dot files such as .DS_Store are ignored.
func WithSkipHidden(skip bool) Option {
	return func(p *Processor) { p.skipHidden = skip }
}

// New creates a Processor printing to out.
func New(analyzer nlp.Analyzer, out io.Writer, opts ...Option) *Processor {
	p := &Processor{
		analyzer:   analyzer,
		out:        out,
		logger:     logging.Discard(),
		skipHidden: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Summary describes a finished (or aborted) run. It is never printed to the
// report output.
type Summary struct {
	RunID    string
	Files    int
	Calls    int
	Duration time.Duration
}

// Run processes every regular file in folder in file-name order.
func (p *Processor) Run(ctx context.Context, folder string) (summary Summary, err error) {
	summary.RunID = uuid.NewString()
	log := p.logger.WithFields(logrus.Fields{"run_id": summary.RunID, "folder": folder, "provider": p.analyzer.Name()})
	start := time.Now()
	defer func() {
		summary.Duration = time.Since(start)
		if p.metrics != nil {
			p.metrics.RunFinished(time.Now())
		}
	}()

	names, err := p.listReviews(folder, log)
	if err != nil {
		return summary, err
	}
	log.WithField("files", len(names)).Info("starting review batch")

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		fileLog := log.WithField("file", name)
		fileLog.Debug("analyzing review")

		calls, err := p.processFile(ctx, folder, name)
		summary.Calls += calls
		if p.metrics != nil {
			p.metrics.FileDone(err)
		}
		if err != nil {
			fileLog.WithError(err).WithField("kind", failure.KindOf(err)).Error("review batch aborted")
			return summary, fmt.Errorf("%s: %w", name, err)
		}
		summary.Files++
	}

	log.WithFields(logrus.Fields{"files": summary.Files, "calls": summary.Calls}).Info("review batch finished")
	return summary, nil
}

func (p *Processor) listReviews(folder string, log *logrus.Entry) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, failure.IO("list reviews", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
			log.WithField("file", name).Debug("skipping directory")
		case p.skipHidden && strings.HasPrefix(name, "."):
			log.WithField("file", name).Debug("skipping hidden file")
		default:
			names = append(names, name)
		}
	}
	return names, nil
}

// processFile prints one review section as each remote call returns and
// reports how many calls were made.
func (p *Processor) processFile(ctx context.Context, folder, name string) (int, error) {
	pr := &printer{w: p.out, log: p.logger.WithField("file", name)}
	calls := 0

	pr.header(name)
	doc, err := readReview(folder, name)
	if err != nil {
		return calls, err
	}
	pr.text(doc.Text)

	calls++
	lang, err := p.analyzer.DetectLanguage(ctx, doc.Text)
	if err != nil {
		return calls, err
	}
	pr.language(lang)

	calls++
	sentiment, err := p.analyzer.AnalyzeSentiment(ctx, doc.Text, lang.ISO6391)
	if err != nil {
		return calls, err
	}
	pr.sentiment(sentiment)

	calls++
	phrases, err := p.analyzer.ExtractKeyPhrases(ctx, doc.Text, lang.ISO6391)
	if err != nil {
		return calls, err
	}
	pr.keyPhrases(phrases)

	calls++
	entities, err := p.analyzer.RecognizeEntities(ctx, doc.Text, lang.ISO6391)
	if err != nil {
		return calls, err
	}
	pr.entities(entities)

	calls++
	linked, err := p.analyzer.RecognizeLinkedEntities(ctx, doc.Text, lang.ISO6391)
	if err != nil {
		return calls, err
	}
	pr.linkedEntities(linked)

	return calls, pr.err
}

func readReview(folder, name string) (types.ReviewDocument, error) {
	data, err := os.ReadFile(filepath.Join(folder, name))
	if err != nil {
		return types.ReviewDocument{}, failure.IO("read review", err)
	}
	if !utf8.Valid(data) {
		return types.ReviewDocument{}, failure.IO("read review", fmt.Errorf("%s is not valid UTF-8", name))
	}
	return types.ReviewDocument{Name: name, Text: string(data)}, nil
}
