package nlp

import (
	"context"
	"io"
	"time"

	"golang.org/x/time/rate"

	"go-reviewlens/failure"
	"go-reviewlens/metrics"
	"go-reviewlens/types"
)

// Middleware runs around every remote call. call performs the call with the
// context it is given.
type Middleware func(ctx context.Context, op Operation, call func(context.Context) error) error

// Wrap decorates a with mws; the first middleware is the outermost.
func Wrap(a Analyzer, mws ...Middleware) Analyzer {
	if len(mws) == 0 {
		return a
	}
	return &wrapped{next: a, mws: mws}
}

// RateLimit waits on l before each call.
func RateLimit(l *rate.Limiter) Middleware {
	return func(ctx context.Context, op Operation, call func(context.Context) error) error {
		if err := l.Wait(ctx); err != nil {
			return failure.Remote(op.Describe(), 0, err)
		}
		return call(ctx)
	}
}

// Timeout bounds each call by d.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ Operation, call func(context.Context) error) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return call(ctx)
	}
}

// Metrics records outcome and latency of each call.
func Metrics(r *metrics.Recorder, provider string) Middleware {
	return func(ctx context.Context, op Operation, call func(context.Context) error) error {
		start := time.Now()
		err := call(ctx)
		r.ObserveCall(provider, string(op), time.Since(start), err)
		return err
	}
}

type wrapped struct {
	next Analyzer
	mws  []Middleware
}

func (w *wrapped) run(ctx context.Context, op Operation, call func(context.Context) error) error {
	for i := len(w.mws) - 1; i >= 0; i-- {
		mw, inner := w.mws[i], call
		call = func(ctx context.Context) error { return mw(ctx, op, inner) }
	}
	return call(ctx)
}

func (w *wrapped) Name() string { return w.next.Name() }

func (w *wrapped) Close() error {
	if c, ok := w.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (w *wrapped) DetectLanguage(ctx context.Context, text string) (res types.LanguageResult, err error) {
	err = w.run(ctx, OpDetectLanguage, func(ctx context.Context) error {
		var callErr error
		res, callErr = w.next.DetectLanguage(ctx, text)
		return callErr
	})
	return res, err
}

func (w *wrapped) AnalyzeSentiment(ctx context.Context, text, lang string) (res types.SentimentResult, err error) {
	err = w.run(ctx, OpSentiment, func(ctx context.Context) error {
		var callErr error
		res, callErr = w.next.AnalyzeSentiment(ctx, text, lang)
		return callErr
	})
	return res, err
}

func (w *wrapped) ExtractKeyPhrases(ctx context.Context, text, lang string) (res types.KeyPhraseSet, err error) {
	err = w.run(ctx, OpKeyPhrases, func(ctx context.Context) error {
		var callErr error
		res, callErr = w.next.ExtractKeyPhrases(ctx, text, lang)
		return callErr
	})
	return res, err
}

func (w *wrapped) RecognizeEntities(ctx context.Context, text, lang string) (res types.EntitySet, err error) {
	err = w.run(ctx, OpEntities, func(ctx context.Context) error {
		var callErr error
		res, callErr = w.next.RecognizeEntities(ctx, text, lang)
		return callErr
	})
	return res, err
}

func (w *wrapped) RecognizeLinkedEntities(ctx context.Context, text, lang string) (res types.LinkedEntitySet, err error) {
	err = w.run(ctx, OpLinkedEntities, func(ctx context.Context) error {
		var callErr error
		res, callErr = w.next.RecognizeLinkedEntities(ctx, text, lang)
		return callErr
	})
	return res, err
}
