// Package translator turns masked span text into target-locale text. It
// checks the cache first, then drives the external service through a bounded
// retry loop with exponential backoff and jitter, degrading to the original
// text when every attempt fails.
package translator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Service is the external translation endpoint. Errors must be classifiable
// as transient (worth retrying) or permanent.
type Service interface {
	Request(ctx context.Context, text, source, target string) (string, error)
}

// Cache is the get/put contract of the translation cache; the backing store
// is opaque here.
type Cache interface {
	Get(ctx context.Context, source, locale string) (string, bool)
	Set(ctx context.Context, source, locale, translated string) error
}

// ErrExhausted tags a degraded result: every attempt failed and the original
// text was returned. Callers skip the span rather than failing the file.
var ErrExhausted = errors.New("translation attempts exhausted")

// Result is one span's translation outcome.
type Result struct {
	Text       string
	Confidence float64
	UsedCache  bool
	// Degraded marks the fallback-to-original case.
	Degraded bool
}

// Options bound the retry loop. Every attempt has its own timeout and the
// whole operation has a wall-clock ceiling; a Translate call never blocks
// indefinitely.
type Options struct {
	SourceLocale   string
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
	OverallTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SourceLocale == "" {
		o.SourceLocale = "en"
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 2 * time.Second
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 30 * time.Second
	}
	if o.OverallTimeout <= 0 {
		o.OverallTimeout = 3 * time.Minute
	}
	return o
}

// Translator coordinates cache and service. Safe for concurrent use when the
// cache and service are.
type Translator struct {
	svc   Service
	cache Cache
	opts  Options
}

func New(svc Service, cache Cache, opts Options) *Translator {
	return &Translator{svc: svc, cache: cache, opts: opts.withDefaults()}
}

// Translate resolves text for targetLocale. Cache hits bypass the network
// entirely; fresh results are written through before returning.
func (t *Translator) Translate(ctx context.Context, text, targetLocale string) (Result, error) {
	if t.cache != nil {
		if v, ok := t.cache.Get(ctx, text, targetLocale); ok {
			return Result{Text: v, Confidence: 1.0, UsedCache: true}, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, t.opts.OverallTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < t.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := t.opts.BaseDelay << (attempt - 1)
			backoff += time.Duration(rand.Int63n(int64(backoff)/2 + 1))
			log.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying translation")
			select {
			case <-ctx.Done():
				return Result{Text: text, Degraded: true}, fmt.Errorf("%w: %v", ErrExhausted, ctx.Err())
			case <-time.After(backoff):
			}
		}

		attemptCtx, attemptCancel := context.WithTimeout(ctx, t.opts.AttemptTimeout)
		out, err := t.svc.Request(attemptCtx, text, t.opts.SourceLocale, targetLocale)
		attemptCancel()

		if err == nil {
			if t.cache != nil {
				if cerr := t.cache.Set(ctx, text, targetLocale, out); cerr != nil {
					log.Warn().Err(cerr).Msg("Failed to cache translation")
				}
			}
			return Result{Text: out, Confidence: 0.9}, nil
		}

		lastErr = err
		if ctx.Err() != nil || !IsTransient(err) {
			break
		}
	}

	log.Error().Err(lastErr).Msg("Translation failed, keeping original text")
	return Result{Text: text, Degraded: true}, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}
