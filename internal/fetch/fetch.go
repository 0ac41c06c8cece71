// Package fetch provides the HTTP client used to retrieve listing pages and
// document artifacts from source authorities.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config tunes the shared collector.
type Config struct {
	UserAgent          string
	RequestTimeout     time.Duration
	MaxAttempts        int
	Concurrency        int
	RateLimitPerDomain int
}

// Defaults fills zero fields with working values.
func (c Config) Defaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = "guidance-intake/1.0"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	if c.RateLimitPerDomain <= 0 {
		c.RateLimitPerDomain = 1
	}
	return c
}

// Response is one completed HTTP exchange.
type Response struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// StatusError reports a non-2xx terminal response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Client retrieves URLs through a shared Colly collector with per-domain rate
// limiting and retry on transient failures.
type Client struct {
	baseCollector *colly.Collector
	policy        RetryPolicy
	logger        *zap.Logger
}

// NewClient constructs a configured client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.Defaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		MaxConnsPerHost:       cfg.Concurrency * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	delay := time.Second / time.Duration(maxInt(1, cfg.RateLimitPerDomain))
	if err := base.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Concurrency,
		Delay:       delay,
	}); err != nil {
		return nil, err
	}

	return &Client{
		baseCollector: base,
		policy:        NewExponentialRetryPolicy(cfg.MaxAttempts),
		logger:        logger,
	}, nil
}

// Get retrieves rawURL, retrying transient failures per the retry policy. It
// returns a StatusError for terminal non-2xx responses.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := c.fetchOnce(ctx, rawURL)
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		if err == nil && status >= 200 && status < 300 {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = &StatusError{URL: rawURL, StatusCode: status}
		}
		if !c.policy.ShouldRetry(status, err, attempt+1) {
			return nil, lastErr
		}

		wait := c.policy.Backoff(attempt)
		c.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Int("status", status),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (*Response, error) {
	collector := c.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		contentType := ""
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
		send(fetchResult{resp: &Response{
			URL:         rawURL,
			FinalURL:    r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: contentType,
			Body:        append([]byte{}, r.Body...),
		}})
	})

	collector.OnError(func(r *colly.Response, err error) {
		// Colly surfaces non-2xx as errors; keep the status so the retry
		// policy can tell 4xx from 5xx.
		if r != nil && r.StatusCode != 0 {
			send(fetchResult{resp: &Response{
				URL:        rawURL,
				StatusCode: r.StatusCode,
				Body:       append([]byte{}, r.Body...),
			}})
			return
		}
		if err == nil {
			err = errors.New("unknown collector error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return res.resp, res.err
	default:
		return nil, errors.New("fetch produced no result")
	}
}

type fetchResult struct {
	resp *Response
	err  error
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
