package translator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeService scripts the per-attempt outcomes.
type fakeService struct {
	mu       sync.Mutex
	calls    int
	respond  func(call int) (string, error)
	lastText string
}

func (f *fakeService) Request(ctx context.Context, text, source, target string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastText = text
	return f.respond(f.calls)
}

// mapCache is an in-memory Cache for tests.
type mapCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newMapCache() *mapCache { return &mapCache{m: make(map[string]string)} }

func (c *mapCache) Get(ctx context.Context, source, locale string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[source+"/"+locale]
	return v, ok
}

func (c *mapCache) Set(ctx context.Context, source, locale, translated string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[source+"/"+locale] = translated
	return nil
}

func fastOptions() Options {
	return Options{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		AttemptTimeout: time.Second,
		OverallTimeout: 5 * time.Second,
	}
}

func TestTranslateSuccess(t *testing.T) {
	t.Parallel()

	svc := &fakeService{respond: func(int) (string, error) { return "Bonjour", nil }}
	cache := newMapCache()
	tr := New(svc, cache, fastOptions())

	res, err := tr.Translate(context.Background(), "Hello", "fr")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Text != "Bonjour" || res.UsedCache || res.Degraded {
		t.Fatalf("res = %+v", res)
	}
	if res.Confidence != 0.9 {
		t.Fatalf("Confidence = %v, want 0.9", res.Confidence)
	}

	// Fresh result written through to the cache.
	if v, ok := cache.Get(context.Background(), "Hello", "fr"); !ok || v != "Bonjour" {
		t.Fatalf("cache = %q, %v", v, ok)
	}
}

func TestTranslateCacheHitBypassesService(t *testing.T) {
	t.Parallel()

	svc := &fakeService{respond: func(int) (string, error) {
		return "", errors.New("service must not be called")
	}}
	cache := newMapCache()
	_ = cache.Set(context.Background(), "Hello", "fr", "Bonjour")

	tr := New(svc, cache, fastOptions())
	res, err := tr.Translate(context.Background(), "Hello", "fr")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !res.UsedCache || res.Text != "Bonjour" {
		t.Fatalf("res = %+v", res)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("Confidence = %v, want 1.0", res.Confidence)
	}
	if svc.calls != 0 {
		t.Fatalf("service called %d times on a cache hit", svc.calls)
	}
}

func TestTranslateRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	svc := &fakeService{respond: func(call int) (string, error) {
		if call < 3 {
			return "", &ServiceError{Status: 429, Message: "rate limited", Transient: true}
		}
		return "Bonjour", nil
	}}
	tr := New(svc, newMapCache(), fastOptions())

	res, err := tr.Translate(context.Background(), "Hello", "fr")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Text != "Bonjour" {
		t.Fatalf("res = %+v", res)
	}
	if svc.calls != 3 {
		t.Fatalf("calls = %d, want 3", svc.calls)
	}
}

func TestTranslateExhaustionDegrades(t *testing.T) {
	t.Parallel()

	svc := &fakeService{respond: func(int) (string, error) {
		return "", &ServiceError{Status: 503, Message: "down", Transient: true}
	}}
	tr := New(svc, newMapCache(), fastOptions())

	res, err := tr.Translate(context.Background(), "Hello", "fr")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if !res.Degraded || res.Text != "Hello" {
		t.Fatalf("res = %+v, want degraded original text", res)
	}
	if svc.calls != 3 {
		t.Fatalf("calls = %d, want all attempts used", svc.calls)
	}
}

func TestTranslatePermanentErrorStopsEarly(t *testing.T) {
	t.Parallel()

	svc := &fakeService{respond: func(int) (string, error) {
		return "", &ServiceError{Status: 400, Message: "bad request"}
	}}
	tr := New(svc, newMapCache(), fastOptions())

	res, err := tr.Translate(context.Background(), "Hello", "fr")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if !res.Degraded {
		t.Fatalf("res = %+v", res)
	}
	if svc.calls != 1 {
		t.Fatalf("calls = %d, permanent errors must not retry", svc.calls)
	}
}

func TestTranslateHonorsCancellation(t *testing.T) {
	t.Parallel()

	svc := &fakeService{respond: func(int) (string, error) {
		return "", &ServiceError{Status: 500, Message: "boom", Transient: true}
	}}
	opts := fastOptions()
	opts.BaseDelay = time.Minute // retry sleep must be interrupted
	tr := New(svc, newMapCache(), opts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res, err := tr.Translate(ctx, "Hello", "fr")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v", err)
	}
	if !res.Degraded {
		t.Fatalf("res = %+v", res)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("cancellation did not interrupt the backoff sleep")
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient service error", &ServiceError{Status: 429, Transient: true}, true},
		{"permanent service error", &ServiceError{Status: 400}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain error", errors.New("nope"), false},
	}

	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
