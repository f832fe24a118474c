package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"PolicyDigest/internal/config"
	"PolicyDigest/internal/digest"
	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/infrastructure/fetch"
	"PolicyDigest/internal/infrastructure/history"
	"PolicyDigest/internal/infrastructure/notify"
	"PolicyDigest/internal/infrastructure/parser"
	"PolicyDigest/internal/infrastructure/scheduler"
	"PolicyDigest/internal/infrastructure/slack"
	"PolicyDigest/internal/infrastructure/storage"
	"PolicyDigest/internal/infrastructure/telegram"
	"PolicyDigest/internal/infrastructure/webhook"
	"PolicyDigest/internal/logging"
	"PolicyDigest/internal/ports"
	"PolicyDigest/internal/scanner"
	"PolicyDigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	db       *sql.DB
}

// New builds the application. A database is opened only when a DSN is configured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := NewRegistry(cfg, baseLogger)
	source := parser.NewStrategySource(registry, cfg.Sites, baseLogger)

	app := &Application{cfg: cfg, logger: baseLogger}

	var (
		archive ports.ArticleArchive
		store   ports.HistoryStore
	)
	if cfg.Database.DSN != "" {
		db, err := storage.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repo := storage.NewPostgresRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.db = db
		archive = repo
		if cfg.History.Backend == config.HistoryPostgres {
			store = repo
		}
	}
	if store == nil {
		store = history.NewFileStore(cfg.History.Path, cfg.History.Limit, baseLogger)
	}

	notifier := NewNotifier(cfg.Notifications, baseLogger)
	if notifier.Len() == 0 {
		baseLogger.Warn("no notification channel configured; delivery will fail when there is news")
	}

	app.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		History:  store,
		Archive:  archive,
		Notifier: notifier,
		Processor: usecase.NewProcessor(usecase.Policy{
			LookbackDays: cfg.Filter.LookbackDays,
			UrgentDays:   cfg.Filter.UrgentDays,
			NewsSources:  cfg.Filter.NewsSources,
		}),
		Logger: baseLogger,
	})
	return app, nil
}

// NewRegistry registers every scanner, each with its own paced client.
func NewRegistry(cfg config.Config, logger *slog.Logger) *scanner.Registry {
	client := func(name string) *fetch.Client {
		return fetch.New(fetch.Config{
			Timeout:   cfg.Crawl.Timeout,
			Delay:     cfg.Crawl.Delay,
			UserAgent: cfg.Crawl.UserAgent,
		}, nil, logger.With("component", "fetch", "scanner", name))
	}
	scoped := func(name string) *slog.Logger {
		return logger.With("component", "scanner."+name)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewKStartupScanner(client("kstartup"), scoped("kstartup")))
	registry.Register(parser.NewMSSScanner(client("mss"), scoped("mss")))
	registry.Register(parser.NewKISEDScanner(client("kised"), scoped("kised")))
	registry.Register(parser.NewBizinfoScanner(client("bizinfo"), scoped("bizinfo")))
	registry.Register(parser.NewNaverNewsScanner(client("navernews"), parser.NaverConfig{
		ClientID:     cfg.Naver.ClientID,
		ClientSecret: cfg.Naver.ClientSecret,
		Keywords:     cfg.Naver.Keywords,
		Display:      cfg.Naver.Display,
	}, scoped("navernews")))
	return registry
}

// NewNotifier fans out to every channel with credentials.
func NewNotifier(cfg config.NotificationConfig, logger *slog.Logger) *notify.Multi {
	limits := Limits(cfg.Limits)

	var channels []notify.Channel
	if n := slack.NewNotifier(slack.Config{
		BotToken:   cfg.Slack.BotToken,
		ChannelID:  cfg.Slack.ChannelID,
		WebhookURL: cfg.Slack.WebhookURL,
	}, limits, cfg.TitleWidth, logger); n.Configured() {
		channels = append(channels, notify.Channel{Name: "slack", Notifier: n})
	}
	if n := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "", limits, cfg.TitleWidth, logger); n.Configured() {
		channels = append(channels, notify.Channel{Name: "telegram", Notifier: n})
	}
	if n := webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.APIKey); n.Configured() {
		channels = append(channels, notify.Channel{Name: "webhook", Notifier: n})
	}
	return notify.NewMulti(channels...)
}

// Limits maps config keys (urgent, new, news) onto digest categories.
func Limits(raw map[string]int) digest.Limits {
	limits := digest.DefaultLimits()
	keys := map[string]domain.Category{
		"urgent": domain.CategoryUrgent,
		"new":    domain.CategoryNew,
		"news":   domain.CategoryNews,
	}
	for key, value := range raw {
		if category, ok := keys[key]; ok {
			limits[category] = value
		}
	}
	return limits
}

// Run performs a single pipeline execution for the current day.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.pipeline.ProcessDay(ctx, now)
}

// RunDaemon runs the pipeline on the configured cron schedule until ctx is done.
func (a *Application) RunDaemon(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, scheduler.Options{
		Location:   a.cfg.Scheduler.Location(),
		RunOnStart: a.cfg.Scheduler.RunOnStart,
		Logger:     a.logger,
	})
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases the database connection, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
