package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
)

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "whyml-go (+https://github.com/quantmind-br/whyml-go)"

// DefaultMaxBodySize bounds a fetched manifest body
const DefaultMaxBodySize int64 = 10 << 20

const acceptHeader = "application/yaml, application/x-yaml, text/yaml;q=0.9, application/json;q=0.9, text/plain;q=0.5, */*;q=0.1"

// FetchObserver receives the outcome of every HTTP attempt; the metrics
// package implements it
type FetchObserver interface {
	ObserveFetch(statusCode int, elapsed time.Duration)
}

// Ensure HTTPSource implements domain.Source
var _ domain.Source = (*HTTPSource)(nil)

// HTTPSource fetches manifests over http(s) with bounded retry and an optional
// persistent body cache
type HTTPSource struct {
	client      *http.Client
	userAgent   string
	retrier     *Retrier
	cache       domain.Cache
	cacheTTL    time.Duration
	maxBodySize int64
	observer    FetchObserver
	logger      *utils.Logger
}

// ClientOptions contains options for creating an HTTPSource
type ClientOptions struct {
	Timeout     time.Duration
	Retry       RetrierOptions
	UserAgent   string
	MaxBodySize int64
	// Cache, when set, stores raw bodies across runs
	Cache    domain.Cache
	CacheTTL time.Duration
	// Transport overrides the HTTP transport, mainly for tests
	Transport http.RoundTripper
	Observer  FetchObserver
	Logger    *utils.Logger
}

// DefaultClientOptions returns default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:     30 * time.Second,
		Retry:       DefaultRetrierOptions(),
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		CacheTTL:    24 * time.Hour,
	}
}

// NewHTTPSource creates a new HTTP manifest source
func NewHTTPSource(opts ClientOptions) *HTTPSource {
	defaults := DefaultClientOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaults.MaxBodySize
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	return &HTTPSource{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		userAgent:   opts.UserAgent,
		retrier:     NewRetrier(opts.Retry),
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		maxBodySize: opts.MaxBodySize,
		observer:    opts.Observer,
		logger:      opts.Logger.WithComponent("http_source"),
	}
}

// Name returns the source name
func (s *HTTPSource) Name() string {
	return "http"
}

// CanHandle returns true for http and https URLs
func (s *HTTPSource) CanHandle(sourceID string) bool {
	return utils.IsHTTPURL(sourceID)
}

// Fetch retrieves a manifest body, consulting the persistent cache first
// unless opts.NoCache is set
func (s *HTTPSource) Fetch(ctx context.Context, sourceID string, opts domain.FetchOptions) (*domain.Content, error) {
	if s.cache != nil && !opts.NoCache {
		if data, err := s.cache.Get(ctx, sourceID); err == nil {
			s.logger.Debug().Str("source", sourceID).Msg("persistent cache hit")
			return &domain.Content{SourceID: sourceID, Data: data, FromCache: true}, nil
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("source", sourceID).Msg("persistent cache read failed")
		}
	}

	content, err := RetryWithValue(ctx, s.retrier, func() (*domain.Content, error) {
		return s.doRequest(ctx, sourceID)
	})
	if err != nil {
		return nil, unwrapRetryable(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, sourceID, content.Data, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("source", sourceID).Msg("persistent cache write failed")
		}
	}

	return content, nil
}

// doRequest performs a single GET
func (s *HTTPSource) doRequest(ctx context.Context, sourceID string) (*domain.Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSource, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", acceptHeader)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.observe(0, start)
		if ctx.Err() != nil {
			// caller gave up; retrying cannot help
			return nil, domain.NewNetworkError(sourceID, 0, fmt.Errorf("%w: %v", domain.ErrTimeout, ctx.Err()))
		}
		return nil, domain.NewNetworkError(sourceID, 0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()
	s.observe(resp.StatusCode, start)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, domain.NewNotFoundError(sourceID, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		netErr := domain.NewNetworkError(sourceID, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode))
		if ShouldRetryStatus(resp.StatusCode) {
			return nil, &domain.RetryableError{
				Err:        netErr,
				RetryAfter: int(ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()).Seconds()),
			}
		}
		return nil, netErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize+1))
	if err != nil {
		return nil, domain.NewNetworkError(sourceID, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}
	if int64(len(body)) > s.maxBodySize {
		return nil, domain.NewNetworkError(sourceID, resp.StatusCode,
			fmt.Errorf("response body exceeds %s bytes", strconv.FormatInt(s.maxBodySize, 10)))
	}

	contentType := resp.Header.Get("Content-Type")
	decoded, err := ConvertToUTF8(body, contentType)
	if err != nil {
		return nil, &domain.ParseError{Source: sourceID, Msg: err.Error(), Err: err}
	}

	return &domain.Content{
		SourceID:    sourceID,
		Data:        decoded,
		ContentType: contentType,
	}, nil
}

func (s *HTTPSource) observe(status int, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveFetch(status, time.Since(start))
	}
}

// unwrapRetryable strips the retry marker so callers see the typed error
func unwrapRetryable(err error) error {
	var retryable *domain.RetryableError
	if errors.As(err, &retryable) && retryable.Err != nil {
		return retryable.Err
	}
	return err
}
