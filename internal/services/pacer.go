package services

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Pacer defaults
const (
	DefaultRequestInterval = 300 * time.Millisecond
	DefaultRequestTimeout  = 12 * time.Second
	DefaultRateLimitWait   = 1 * time.Second
)

// Pacer spaces outbound calls, bounds each one with a timeout and answers a
// single HTTP 429 with one wait and one retry. It is shared by every external
// client of a run.
type Pacer struct {
	limiter       *rate.Limiter
	timeout       time.Duration
	rateLimitWait time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer. Zero values select the defaults.
func NewPacer(interval, timeout, rateLimitWait time.Duration) *Pacer {
	if interval <= 0 {
		interval = DefaultRequestInterval
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if rateLimitWait <= 0 {
		rateLimitWait = DefaultRateLimitWait
	}

	return &Pacer{
		limiter:       rate.NewLimiter(rate.Every(interval), 1),
		timeout:       timeout,
		rateLimitWait: rateLimitWait,
		sleep:         sleepContext,
	}
}

// Timeout returns the per-call timeout
func (p *Pacer) Timeout() time.Duration {
	return p.timeout
}

// Do runs call under the pacing rules. The response of the retry is returned
// as is, even when it is another 429.
func (p *Pacer) Do(ctx context.Context, call func(ctx context.Context) (*resty.Response, error)) (*resty.Response, error) {
	resp, err := p.once(ctx, call)
	if err != nil || resp.StatusCode() != http.StatusTooManyRequests {
		return resp, err
	}

	wait := p.retryAfter(resp) + time.Second
	slog.Warn("Rate limited, retrying once",
		"url", resp.Request.URL,
		"wait", wait)

	if err := p.sleep(ctx, wait); err != nil {
		return nil, err
	}

	return p.once(ctx, call)
}

func (p *Pacer) once(ctx context.Context, call func(ctx context.Context) (*resty.Response, error)) (*resty.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return call(callCtx)
}

func (p *Pacer) retryAfter(resp *resty.Response) time.Duration {
	header := strings.TrimSpace(resp.Header().Get("Retry-After"))
	if header == "" {
		return p.rateLimitWait
	}

	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return p.rateLimitWait
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
