// Package observatory implements an industry evidence pipeline: ingestion of
// news-like items from configured sources and planned web searches into a
// per-run candidate evidence set, and normalization of that evidence into
// durable cross-run signals.
//
// The service is stateless per run; all continuity lives in the persisted
// signal and occurrence records.
package observatory

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/stefanhermes-code/Observatory/idgen"
	"github.com/stefanhermes-code/Observatory/observatory/internal/connector"
	"github.com/stefanhermes-code/Observatory/observatory/internal/store"
	"github.com/stefanhermes-code/Observatory/observatory/internal/websearch"
	"github.com/stefanhermes-code/Observatory/urlkit"
)

// Service is the evidence pipeline orchestrator.
type Service struct {
	store     *store.Store
	fetcher   *connector.Fetcher
	validator *urlkit.Validator
	provider  websearch.Provider // nil disables web search
	taxonomy  *Taxonomy
	config    *Config
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithProvider sets the search provider. Without one (and without a
// configured provider) runs ingest from sources only.
func WithProvider(p websearch.Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithTaxonomy replaces the default industry taxonomy.
func WithTaxonomy(t *Taxonomy) Option {
	return func(s *Service) { s.taxonomy = t }
}

// WithURLGuard replaces the SSRF guard on both the fetcher and the
// validator. Tests use it to reach loopback servers.
func WithURLGuard(guard func(string) error) Option {
	return func(s *Service) {
		s.config.Fetch.Guard = guard
		s.validator = urlkit.NewValidator(urlkit.ValidatorConfig{
			Timeout: s.config.Engine.ValidateTimeout,
			Guard:   guard,
		})
		s.fetcher = connector.NewFetcher(s.config.Fetch, s.logger)
	}
}

// WithIDGenerator replaces the record id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service on an opened database, applying the schema.
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	if err := store.ApplySchema(db); err != nil {
		return nil, fmt.Errorf("observatory: apply schema: %w", err)
	}

	svc := &Service{
		store:   store.NewStore(db),
		fetcher: connector.NewFetcher(cfg.Fetch, logger),
		validator: urlkit.NewValidator(urlkit.ValidatorConfig{
			Timeout:   cfg.Engine.ValidateTimeout,
			UserAgent: cfg.Fetch.UserAgent,
		}),
		taxonomy: DefaultTaxonomy(),
		config:   cfg,
		logger:   logger,
		newID:    idgen.New,
		now:      time.Now,
	}

	if svc.provider == nil {
		switch cfg.Search.Provider {
		case "openai":
			svc.provider = websearch.NewOpenAIProvider(cfg.Search.OpenAI)
		case "api":
			svc.provider = websearch.NewAPIProvider(cfg.Search.API, nil)
		case "":
			// Web search disabled; sources only.
		default:
			return nil, fmt.Errorf("observatory: unknown search provider %q", cfg.Search.Provider)
		}
	}

	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Taxonomy returns the active industry taxonomy.
func (s *Service) Taxonomy() *Taxonomy { return s.taxonomy }
