package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"PolicyDigest/internal/config"
	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/logging"
	"PolicyDigest/internal/ports"
	"PolicyDigest/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   orDiscard(log).With("component", "strategy_source"),
		now:      time.Now,
	}
}

// FetchDaily runs every enabled site one after another. A site that fails,
// or whose scanner panics, contributes nothing and is reported in its crawl log.
func (s *StrategySource) FetchDaily(ctx context.Context, day time.Time) ([]domain.Article, []domain.CrawlLog) {
	runID := uuid.NewString()
	s.logger.Debug("fetch daily", "run_id", runID, "sites", len(s.sites), "day", domain.FormatDate(day))

	var (
		aggregated []domain.Article
		logs       = make([]domain.CrawlLog, 0, len(s.sites))
	)
	for _, site := range s.sites {
		if site.Disabled {
			s.logger.Debug("site disabled", "site", site.Name)
			continue
		}

		started := s.now()
		results, err := s.scanSite(ctx, site, day)
		entry := domain.CrawlLog{
			RunID:         runID,
			Source:        site.Name,
			Status:        domain.CrawlSuccess,
			ArticlesFound: len(results),
			Duration:      s.now().Sub(started),
			StartedAt:     started,
		}
		if err != nil {
			entry.Status = domain.CrawlError
			entry.ErrorMessage = err.Error()
			s.logger.Warn("site scan failed", "site", site.Name, "scanner", site.Scanner, "error", err)
		}
		logs = append(logs, entry)

		s.logger.Info("site produced articles", "site", site.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.logger.Debug("strategy source done", "run_id", runID, "total_articles", len(aggregated))
	return aggregated, logs
}

func (s *StrategySource) scanSite(ctx context.Context, site config.SiteConfig, day time.Time) (results []domain.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = fmt.Errorf("scanner %s panicked: %v", site.Scanner, r)
		}
	}()

	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	strategy, err := s.registry.Resolve(site.Scanner)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	req := scanner.Request{
		Day:      day,
		SiteName: site.Name,
		URL:      site.URL,
		Options:  site.Options,
	}

	results, err = strategy.Scan(ctx, req)
	kept := make([]domain.Article, 0, len(results))
	for _, article := range results {
		if article.URL == "" {
			continue
		}
		if article.Source == "" {
			article.Source = site.Name
		}
		kept = append(kept, article)
	}
	return kept, err
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return logging.Discard()
	}
	return logger
}
