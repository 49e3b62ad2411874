package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	DefaultBaseURL = "https://fakestoreapi.com"

	maxBodySize = 4 << 20
)

var ErrBreakerOpen = errors.New("catalog circuit open")

type Config struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// HTTPClient reads product pages from a fakestoreapi compatible catalog.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]domain.Product]
	group   singleflight.Group
	log     *zap.Logger
}

func NewHTTPClient(cfg Config, log *zap.Logger) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("catalog")

	breaker := gobreaker.NewCircuitBreaker[[]domain.Product](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// a caller giving up says nothing about the upstream
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
		log:     log,
	}
}

// FetchPage requests one page. Concurrent requests for the same page share a
// single upstream call, which runs detached from any one caller and is bounded
// by the client timeout. A caller whose ctx ends stops waiting without
// affecting the others or the breaker.
func (c *HTTPClient) FetchPage(ctx context.Context, page, limit int) ([]domain.Product, error) {
	key := strconv.Itoa(page) + "/" + strconv.Itoa(limit)
	flightCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.breaker.Execute(func() ([]domain.Product, error) {
			return c.fetch(flightCtx, page, limit)
		})
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	if errors.Is(res.Err, gobreaker.ErrOpenState) || errors.Is(res.Err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrBreakerOpen, res.Err)
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return slices.Clone(res.Val.([]domain.Product)), nil
}

func (c *HTTPClient) fetch(ctx context.Context, page, limit int) ([]domain.Product, error) {
	q := url.Values{}
	q.Set("_page", strconv.Itoa(page))
	q.Set("_limit", strconv.Itoa(limit))
	endpoint := c.baseURL + "/products?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get products page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, fmt.Errorf("get products page %d: unexpected status %s", page, resp.Status)
	}

	products := []domain.Product{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode products page %d: %w", page, err)
	}

	c.log.Debug("fetched products page",
		zap.Int("page", page),
		zap.Int("count", len(products)),
		zap.Duration("took", time.Since(start)))

	return products, nil
}
