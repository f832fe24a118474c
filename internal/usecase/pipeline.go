package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/logging"
	"PolicyDigest/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source    ports.ArticleSource
	History   ports.HistoryStore
	Archive   ports.ArticleArchive
	Notifier  ports.Notifier
	Processor *Processor
	Logger    *slog.Logger
}

// Pipeline implements the collect, process and deliver workflow.
type Pipeline struct {
	source    ports.ArticleSource
	history   ports.HistoryStore
	archive   ports.ArticleArchive
	notifier  ports.Notifier
	processor *Processor
	logger    *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	processor := deps.Processor
	if processor == nil {
		processor = NewProcessor(Policy{})
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		source:    deps.Source,
		history:   deps.History,
		archive:   deps.Archive,
		notifier:  deps.Notifier,
		processor: processor,
		logger:    logger.With("component", "pipeline"),
	}
}

// ProcessDay collects from every source, filters against history and hands the
// digest to the notifier. Only a delivery failure is returned; collection and
// persistence problems are logged so a partial digest still goes out.
func (p *Pipeline) ProcessDay(ctx context.Context, now time.Time) error {
	if p.source == nil {
		return nil
	}

	articles, logs := p.source.FetchDaily(ctx, now)
	p.logger.Info("collection finished", "articles", len(articles), "sources", len(logs))
	if len(articles) == 0 {
		p.recordCrawl(ctx, logs)
		p.logger.Info("nothing collected")
		return nil
	}

	history := p.loadHistory(ctx)
	result := p.processor.Process(now, articles, history)
	countNew(logs, result.Categories)

	if p.archive != nil && result.Categories.Total() > 0 {
		if err := p.archive.SaveArticles(ctx, flatten(result.Categories)); err != nil {
			p.logger.Warn("archive articles failed", "error", err)
		}
	}

	if len(result.NewURLs) > 0 && p.history != nil {
		if err := p.history.Save(ctx, history.Union(result.NewURLs)); err != nil {
			p.logger.Error("save history failed", "error", err)
		}
	}
	p.recordCrawl(ctx, logs)

	if result.Categories.Total() == 0 {
		p.logger.Info("no new articles")
		return nil
	}

	for _, group := range result.Categories.Groups() {
		p.logger.Info("category ready", "category", string(group.Category), "count", len(group.Articles))
	}

	if p.notifier == nil {
		p.logger.Warn("no notifier configured, digest not delivered")
		return nil
	}

	digest := domain.Digest{GeneratedAt: now, Categories: result.Categories}
	if err := p.notifier.PublishDigest(ctx, digest); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}

	if p.archive != nil {
		if err := p.archive.MarkNotified(ctx, result.Categories.URLs()); err != nil {
			p.logger.Warn("mark notified failed", "error", err)
		}
	}
	return nil
}

// loadHistory treats an unreadable store as empty; at worst items are re-sent.
func (p *Pipeline) loadHistory(ctx context.Context) domain.History {
	if p.history == nil {
		return domain.NewHistory()
	}
	history, err := p.history.Load(ctx)
	if err != nil {
		p.logger.Warn("load history failed, starting empty", "error", err)
		return domain.NewHistory()
	}
	if history == nil {
		return domain.NewHistory()
	}
	return history
}

func (p *Pipeline) recordCrawl(ctx context.Context, logs []domain.CrawlLog) {
	if p.archive == nil || len(logs) == 0 {
		return
	}
	if err := p.archive.InsertCrawlLogs(ctx, logs); err != nil {
		p.logger.Warn("insert crawl logs failed", "error", err)
	}
}

func countNew(logs []domain.CrawlLog, categories domain.Categorized) {
	perSource := map[string]int{}
	for _, items := range categories {
		for _, article := range items {
			perSource[article.Source]++
		}
	}
	for i := range logs {
		logs[i].ArticlesNew = perSource[logs[i].Source]
	}
}

func flatten(categories domain.Categorized) []domain.Article {
	out := make([]domain.Article, 0, categories.Total())
	for _, group := range categories.Groups() {
		out = append(out, group.Articles...)
	}
	return out
}
