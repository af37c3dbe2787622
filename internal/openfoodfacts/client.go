// Package openfoodfacts fetches product data from the OpenFoodFacts catalog
// using a colly collector per request.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/metrics"
	"github.com/JakeFAU/binbuddy/internal/telemetry"
)

// Endpoint names used for rate limiting and metrics.
const (
	EndpointProduct = "product"
	EndpointSearch  = "search"
)

const (
	// DefaultBaseURL is the public world catalog.
	DefaultBaseURL  = "https://world.openfoodfacts.org/"
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 20
)

// Waiter paces outbound requests per endpoint.
type Waiter interface {
	Wait(ctx context.Context, endpoint string) error
}

// Config controls collector behavior.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Transport replaces the pooled default transport, mainly for tests.
	Transport http.RoundTripper
	Limiter   Waiter
	Logger    *zap.Logger
	Now       func() time.Time
}

// Client talks to the OpenFoodFacts JSON API.
type Client struct {
	cfg           Config
	baseURL       *url.URL
	baseCollector *colly.Collector
	tracer        trace.Tracer
	logger        *zap.Logger
}

// ProductPayload is a fetched product plus the raw response body.
type ProductPayload struct {
	Product domain.Product
	Raw     []byte
}

// SearchQuery parameterizes Search.
type SearchQuery struct {
	Terms       string
	GermanyOnly bool
	Page        int
	PageSize    int
}

// SearchPage is one page of search results.
type SearchPage struct {
	Products []domain.Product
	Count    int
	Page     int
	PageSize int
	Raw      []byte
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = newHTTPTransport()
	}

	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(transport)

	return &Client{
		cfg:           cfg,
		baseURL:       base,
		baseCollector: c,
		tracer:        telemetry.Tracer("openfoodfacts"),
		logger:        logger.Named("openfoodfacts"),
	}, nil
}

// Product fetches a single product by barcode. Unknown barcodes yield an
// apperr NotFound error.
func (c *Client) Product(ctx context.Context, barcode string) (ProductPayload, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return ProductPayload{}, apperr.InvalidInput("Please enter a barcode.")
	}
	target := c.baseURL.ResolveReference(&url.URL{Path: "api/v0/product/" + url.PathEscape(barcode) + ".json"})

	body, err := c.get(ctx, EndpointProduct, target.String())
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindNotFound {
			return ProductPayload{}, apperr.NotFound(barcode)
		}
		return ProductPayload{}, err
	}

	var resp productResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ProductPayload{}, apperr.Parse(fmt.Errorf("decode product %s: %w", barcode, err))
	}
	if resp.Status != 1 || resp.Product == nil {
		notFound := apperr.NotFound(barcode)
		if resp.StatusVerbose != "" {
			notFound.Technical = resp.StatusVerbose
		}
		return ProductPayload{}, notFound
	}
	return ProductPayload{
		Product: resp.Product.toDomain(barcode, c.cfg.Now()),
		Raw:     body,
	}, nil
}

// Search runs a full-text product search.
func (c *Client) Search(ctx context.Context, q SearchQuery) (SearchPage, error) {
	terms := strings.TrimSpace(q.Terms)
	if terms == "" {
		return SearchPage{}, apperr.InvalidInput("Please enter a search term.")
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	params := url.Values{}
	params.Set("search_terms", terms)
	if q.GermanyOnly {
		params.Set("countries", "Germany")
	}
	params.Set("page_size", strconv.Itoa(q.PageSize))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("action", "process")
	params.Set("json", "1")
	target := c.baseURL.ResolveReference(&url.URL{Path: "cgi/search.pl", RawQuery: params.Encode()})

	body, err := c.get(ctx, EndpointSearch, target.String())
	if err != nil {
		return SearchPage{}, err
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return SearchPage{}, apperr.Parse(fmt.Errorf("decode search %q: %w", terms, err))
	}
	now := c.cfg.Now()
	page := SearchPage{
		Products: make([]domain.Product, 0, len(resp.Products)),
		Count:    int(resp.Count),
		Page:     int(resp.Page),
		PageSize: int(resp.PageSize),
		Raw:      body,
	}
	for _, dto := range resp.Products {
		p := dto.toDomain("", now)
		if p.Barcode == "" {
			continue
		}
		page.Products = append(page.Products, p)
	}
	return page, nil
}

// get performs a GET and classifies failures into apperr kinds.
func (c *Client) get(ctx context.Context, endpoint, target string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "openfoodfacts."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", target)),
	)
	defer span.End()

	if c.cfg.Limiter != nil {
		if err := c.cfg.Limiter.Wait(ctx, endpoint); err != nil {
			return nil, c.classify(endpoint, 0, err)
		}
	}

	start := time.Now()
	var (
		status int
		body   []byte
		runErr error
	)
	collector := c.buildCollector(ctx)
	c.configureCollectorHooks(collector, &status, &body, &runErr)
	err := c.runCollector(ctx, collector, target, &runErr)

	outcome := "ok"
	if err != nil {
		appErr := c.classify(endpoint, status, err)
		outcome = string(appErr.Kind)
		span.RecordError(appErr)
		span.SetStatus(codes.Error, appErr.Technical)
		metrics.ObserveCatalogRequest(endpoint, outcome, time.Since(start))
		c.logger.Debug("catalog request failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", status),
			zap.String("kind", outcome),
			zap.Error(err),
		)
		return nil, appErr
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	metrics.ObserveCatalogRequest(endpoint, outcome, time.Since(start))
	return body, nil
}

func (c *Client) buildCollector(ctx context.Context) *colly.Collector {
	collector := c.baseCollector.Clone()
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.Context = ctx
	collector.SetRequestTimeout(c.cfg.Timeout)
	return collector
}

func (c *Client) configureCollectorHooks(hooks collectorHooks, status *int, body *[]byte, runErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*status = r.StatusCode
		*body = append([]byte(nil), r.Body...)
	})
	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			*status = r.StatusCode
		}
		*runErr = err
	})
}

func (c *Client) runCollector(ctx context.Context, collector *colly.Collector, target string, runErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("catalog request canceled: %w", ctx.Err())
	case err := <-done:
		if *runErr != nil {
			return fmt.Errorf("catalog response failed: %w", *runErr)
		}
		if err != nil {
			return fmt.Errorf("catalog visit failed: %w", err)
		}
		return nil
	}
}

func (c *Client) classify(endpoint string, status int, err error) *apperr.Error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case status == http.StatusNotFound:
		return apperr.NotFound("")
	case status >= http.StatusInternalServerError:
		return apperr.Server(status, endpoint)
	case status > 0:
		return apperr.Network(fmt.Errorf("%s: unexpected status %d: %w", endpoint, status, err))
	case isTimeout(err):
		return apperr.Timeout(err)
	default:
		return apperr.Network(err)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
}
