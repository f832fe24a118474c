package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PolicyDigest/internal/domain"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestLoadAndSaveInsertsOnlyNewURLs(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT url FROM sent_history")).
		WillReturnRows(sqlmock.NewRows([]string{"url"}).AddRow("https://x/old"))

	history, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, history.Has("https://x/old"))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sent_history (url) VALUES ($1),($2) ON CONFLICT (url) DO NOTHING")).
		WithArgs("https://x/a", "https://x/b").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(ctx, history.Union([]string{"https://x/b", "https://x/a"})))

	// A second save of the same set has nothing left to insert.
	require.NoError(t, repo.Save(ctx, history.Union([]string{"https://x/b", "https://x/a"})))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sent_history").WillReturnError(errors.New("db error"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), domain.NewHistory("https://x/a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert history")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveArticlesEncodesExtra(t *testing.T) {
	repo, mock := newMockRepo(t)

	article := domain.Article{
		Title:    "예비창업패키지",
		URL:      "https://x/1",
		Source:   domain.SourceKStartup,
		Date:     "2026-10-01",
		Deadline: "2026-10-20",
		Category: domain.CategoryUrgent,
		Extra:    map[string]string{"pbancSn": "1"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles (url,title,source,date,deadline,category,extra) VALUES")).
		WithArgs(article.URL, article.Title, article.Source, article.Date, article.Deadline, string(article.Category), `{"pbancSn":"1"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveArticles(context.Background(), []domain.Article{article}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkNotified(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE articles SET notified = $1, notified_at = NOW() WHERE url = ANY($2)")).
		WithArgs(true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.MarkNotified(context.Background(), []string{"https://x/1", "https://x/2"}))
	require.NoError(t, repo.MarkNotified(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCrawlLogs(t *testing.T) {
	repo, mock := newMockRepo(t)
	started := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crawl_logs")).
		WithArgs("run-1", domain.SourceMSS, "error", 0, 0, "timeout", int64(1500), started).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.InsertCrawlLogs(context.Background(), []domain.CrawlLog{{
		RunID:        "run-1",
		Source:       domain.SourceMSS,
		Status:       domain.CrawlError,
		ErrorMessage: "timeout",
		Duration:     1500 * time.Millisecond,
		StartedAt:    started,
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
