package ports

import (
	"context"
	"time"

	"PolicyDigest/internal/domain"
)

// ArticleSource pulls fresh articles from every configured upstream site.
// Per-site failures are contained and reported through the crawl logs.
type ArticleSource interface {
	FetchDaily(ctx context.Context, day time.Time) ([]domain.Article, []domain.CrawlLog)
}

// HistoryStore persists URLs delivered in earlier runs.
// Concurrent runs against the same store are unsafe: the last writer wins.
type HistoryStore interface {
	Load(ctx context.Context) (domain.History, error)
	Save(ctx context.Context, history domain.History) error
}

// ArticleArchive keeps a queryable record of processed articles and crawl runs.
type ArticleArchive interface {
	SaveArticles(ctx context.Context, articles []domain.Article) error
	MarkNotified(ctx context.Context, urls []string) error
	InsertCrawlLogs(ctx context.Context, logs []domain.CrawlLog) error
}

// Notifier delivers a digest to Slack, Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest domain.Digest) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
