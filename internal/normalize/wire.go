package normalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/maltedev/feed-normalizer/internal/config"
	"github.com/maltedev/feed-normalizer/internal/fetch"
	"github.com/maltedev/feed-normalizer/internal/models"
	"github.com/maltedev/feed-normalizer/internal/parser"
	"github.com/maltedev/feed-normalizer/internal/ratelimit"
)

// Service is a Normalizer wired from configuration together with the fetcher
// it resolves remote variants and pages through.
type Service struct {
	*Normalizer
	fetcher fetch.Fetcher
	pages   fetch.Fetcher
	closers []io.Closer
	logger  *slog.Logger
}

// NewFromConfig builds the miner and classifier from the vendor profile and
// the fetch stack (rate limiter, HTTP fetcher, optional redis cache) from the
// fetch and cache sections.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	miner, err := NewMiner(cfg.Normalize)
	if err != nil {
		return nil, err
	}

	classifier := parser.NewClassifier(miner, parser.ClassifierOptions{
		Denylist:       cfg.Normalize.Denylist,
		MineAttributes: cfg.Normalize.MineAttributes,
		Logger:         logger,
	})

	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
		fetch.WithLogger(logger),
	}
	if limiter := NewRateLimiter(cfg.Fetch); limiter != nil {
		opts = append(opts, fetch.WithRateLimiter(limiter))
	}

	s := &Service{logger: logger.With("component", "service", "vendor", cfg.Normalize.Vendor)}
	httpFetcher := fetch.NewHTTPFetcher(opts...)
	s.fetcher, s.pages = httpFetcher, httpFetcher

	if cfg.Cache.Enabled {
		client, err := fetch.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return nil, err
		}
		// variant data must decode; pages only need to be non-empty
		s.fetcher = fetch.NewCachingFetcher(httpFetcher, client, cfg.Cache.TTL, logger, fetch.CacheOnly(fetch.ValidJSON))
		s.pages = fetch.NewCachingFetcher(httpFetcher, client, cfg.Cache.TTL, logger, fetch.WithPrefix("page:"))
		s.closers = append(s.closers, client)
	}

	orchestrator := fetch.NewOrchestrator(s.fetcher, fetch.Options{
		Concurrency: cfg.Fetch.Concurrency,
		Logger:      logger,
	})

	s.Normalizer = NewNormalizer(classifier, miner, orchestrator, logger)

	s.logger.Info("normalizer configured",
		"limiter", cfg.Fetch.Limiter,
		"cache", cfg.Cache.Enabled,
		"dimension_patterns", miner.DimensionPatterns().IDs(),
		"weight_patterns", miner.WeightPatterns().IDs(),
		"strategy", cfg.Normalize.Strategy,
	)

	return s, nil
}

// NewMiner builds a miner from the profile's pattern family ids, using the
// default families for an empty list.
func NewMiner(profile config.Profile) (*parser.Miner, error) {
	strategy, err := parser.ParseStrategy(profile.Strategy)
	if err != nil {
		return nil, err
	}

	dimIDs := profile.DimensionPatterns
	if len(dimIDs) == 0 {
		dimIDs = parser.DefaultDimensionFamilies
	}
	weightIDs := profile.WeightPatterns
	if len(weightIDs) == 0 {
		weightIDs = parser.DefaultWeightFamilies
	}

	dims, err := parser.Families(strategy, dimIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to build dimension patterns: %w", err)
	}
	weight, err := parser.Families(strategy, weightIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to build weight patterns: %w", err)
	}

	return parser.NewMiner(dims, weight), nil
}

// NewRateLimiter returns the limiter named by cfg.Limiter, or nil for none.
func NewRateLimiter(cfg config.FetchConfig) ratelimit.RateLimiter {
	switch cfg.Limiter {
	case config.LimiterSimple:
		return ratelimit.NewSimpleRateLimiter(cfg.RateLimitMin, cfg.RateLimitMax)
	case config.LimiterToken:
		return ratelimit.NewTokenBucketRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
	case config.LimiterNone:
		return nil
	default:
		return ratelimit.NewAdaptiveRateLimiter(cfg.RateLimitMin, cfg.RateLimitMax)
	}
}

// Fetcher returns the configured fetch stack for building remote strategies.
func (s *Service) Fetcher() fetch.Fetcher {
	return s.fetcher
}

// NormalizeURL downloads a product page and normalizes it with adapter.
func (s *Service) NormalizeURL(ctx context.Context, adapter Adapter, pageURL string) (models.ProductDraft, error) {
	body, err := s.pages.Get(ctx, pageURL, nil)
	if err != nil {
		return models.ProductDraft{}, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	doc, err := parser.NewHTMLDocument(string(body))
	if err != nil {
		return models.ProductDraft{}, err
	}

	product, err := s.NormalizeDocument(ctx, adapter, doc)
	if err != nil {
		return models.ProductDraft{}, err
	}
	if product.URL == "" {
		product.URL = pageURL
	}
	return product, nil
}

func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
