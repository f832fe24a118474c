package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/ports"
)

const (
	historyTable  = "sent_history"
	articlesTable = "articles"
	crawlTable    = "crawl_logs"

	insertBatch = 500
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Schema creates the tables used by PostgresRepository.
const Schema = `
CREATE TABLE IF NOT EXISTS sent_history (
    url     TEXT PRIMARY KEY,
    sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS articles (
    url         TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    source      TEXT NOT NULL,
    date        TEXT NOT NULL DEFAULT '',
    deadline    TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL DEFAULT '',
    extra       JSONB NOT NULL DEFAULT '{}'::jsonb,
    notified    BOOLEAN NOT NULL DEFAULT FALSE,
    notified_at TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS crawl_logs (
    id             BIGSERIAL PRIMARY KEY,
    run_id         TEXT NOT NULL,
    source         TEXT NOT NULL,
    status         TEXT NOT NULL,
    articles_found INTEGER NOT NULL DEFAULT 0,
    articles_new   INTEGER NOT NULL DEFAULT 0,
    error_message  TEXT NOT NULL DEFAULT '',
    duration_ms    BIGINT NOT NULL DEFAULT 0,
    started_at     TIMESTAMPTZ NOT NULL
);`

// PostgresRepository stores delivery history, processed articles and crawl runs.
type PostgresRepository struct {
	db *sql.DB

	mu     sync.Mutex
	loaded domain.History
}

var (
	_ ports.HistoryStore   = (*PostgresRepository)(nil)
	_ ports.ArticleArchive = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Open connects through lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates missing tables.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Load reads every delivered URL. The table is never truncated.
func (r *PostgresRepository) Load(ctx context.Context) (domain.History, error) {
	query, args, err := psql.Select("url").From(historyTable).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := domain.NewHistory()
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		history[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	r.mu.Lock()
	r.loaded = history
	r.mu.Unlock()
	return history, nil
}

// Save inserts the URLs that were not present at the last Load.
func (r *PostgresRepository) Save(ctx context.Context, history domain.History) error {
	r.mu.Lock()
	loaded := r.loaded
	r.mu.Unlock()

	var fresh []string
	for _, url := range history.Sorted() {
		if !loaded.Has(url) {
			fresh = append(fresh, url)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(fresh); start += insertBatch {
			end := min(start+insertBatch, len(fresh))
			insert := psql.Insert(historyTable).Columns("url").Suffix("ON CONFLICT (url) DO NOTHING")
			for _, url := range fresh[start:end] {
				insert = insert.Values(url)
			}
			if err := execBuilder(ctx, tx, insert); err != nil {
				return fmt.Errorf("insert history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.loaded = loaded.Union(fresh)
	r.mu.Unlock()
	return nil
}

// SaveArticles records processed articles; existing URLs keep their first snapshot.
func (r *PostgresRepository) SaveArticles(ctx context.Context, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(articles); start += insertBatch {
			end := min(start+insertBatch, len(articles))
			insert := psql.Insert(articlesTable).
				Columns("url", "title", "source", "date", "deadline", "category", "extra").
				Suffix("ON CONFLICT (url) DO NOTHING")
			for _, a := range articles[start:end] {
				extra, err := encodeExtra(a.Extra)
				if err != nil {
					return fmt.Errorf("encode extra for %s: %w", a.URL, err)
				}
				insert = insert.Values(a.URL, a.Title, a.Source, a.Date, a.Deadline, string(a.Category), extra)
			}
			if err := execBuilder(ctx, tx, insert); err != nil {
				return fmt.Errorf("insert articles: %w", err)
			}
		}
		return nil
	})
}

// MarkNotified flags delivered articles.
func (r *PostgresRepository) MarkNotified(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	update := psql.Update(articlesTable).
		Set("notified", true).
		Set("notified_at", sq.Expr("NOW()")).
		Where("url = ANY(?)", pq.Array(urls))
	if err := execBuilder(ctx, r.db, update); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// InsertCrawlLogs stores one row per scanned source.
func (r *PostgresRepository) InsertCrawlLogs(ctx context.Context, logs []domain.CrawlLog) error {
	if len(logs) == 0 {
		return nil
	}

	insert := psql.Insert(crawlTable).
		Columns("run_id", "source", "status", "articles_found", "articles_new", "error_message", "duration_ms", "started_at")
	for _, l := range logs {
		insert = insert.Values(l.RunID, l.Source, string(l.Status), l.ArticlesFound, l.ArticlesNew,
			l.ErrorMessage, l.Duration.Milliseconds(), l.StartedAt)
	}
	if err := execBuilder(ctx, r.db, insert); err != nil {
		return fmt.Errorf("insert crawl logs: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execBuilder(ctx context.Context, db execer, builder sq.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func encodeExtra(extra map[string]string) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(extra)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
