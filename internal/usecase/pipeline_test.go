package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PolicyDigest/internal/domain"
)

type fakeSource struct {
	articles []domain.Article
	logs     []domain.CrawlLog
}

func (f *fakeSource) FetchDaily(context.Context, time.Time) ([]domain.Article, []domain.CrawlLog) {
	return f.articles, f.logs
}

type fakeHistory struct {
	loaded  domain.History
	loadErr error
	saved   []domain.History
	saveErr error
}

func (f *fakeHistory) Load(context.Context) (domain.History, error) {
	return f.loaded, f.loadErr
}

func (f *fakeHistory) Save(_ context.Context, h domain.History) error {
	f.saved = append(f.saved, h)
	return f.saveErr
}

type fakeArchive struct {
	articles []domain.Article
	notified []string
	logs     []domain.CrawlLog
}

func (f *fakeArchive) SaveArticles(_ context.Context, articles []domain.Article) error {
	f.articles = append(f.articles, articles...)
	return nil
}

func (f *fakeArchive) MarkNotified(_ context.Context, urls []string) error {
	f.notified = append(f.notified, urls...)
	return nil
}

func (f *fakeArchive) InsertCrawlLogs(_ context.Context, logs []domain.CrawlLog) error {
	f.logs = append(f.logs, logs...)
	return nil
}

type fakeNotifier struct {
	digests []domain.Digest
	err     error
}

func (f *fakeNotifier) PublishDigest(_ context.Context, d domain.Digest) error {
	f.digests = append(f.digests, d)
	return f.err
}

func TestProcessDayWithNothingCollected(t *testing.T) {
	history := &fakeHistory{loaded: domain.NewHistory("https://x/old")}
	notifier := &fakeNotifier{}

	p := NewPipeline(PipelineDeps{Source: &fakeSource{}, History: history, Notifier: notifier})

	require.NoError(t, p.ProcessDay(context.Background(), now))
	assert.Empty(t, history.saved, "history must stay untouched")
	assert.Empty(t, notifier.digests)
}

func TestProcessDayDeliversCategorizedDigest(t *testing.T) {
	source := &fakeSource{
		articles: []domain.Article{
			news("https://x/news", day(-1)),
			announcement("https://x/urgent", day(-1), day(3)),
			announcement("https://x/seen", day(-1), ""),
		},
		logs: []domain.CrawlLog{
			{Source: domain.SourceKStartup, Status: domain.CrawlSuccess, ArticlesFound: 2},
			{Source: domain.SourceNaver, Status: domain.CrawlSuccess, ArticlesFound: 1},
		},
	}
	history := &fakeHistory{loaded: domain.NewHistory("https://x/seen")}
	archive := &fakeArchive{}
	notifier := &fakeNotifier{}

	p := NewPipeline(PipelineDeps{Source: source, History: history, Archive: archive, Notifier: notifier})
	require.NoError(t, p.ProcessDay(context.Background(), now))

	require.Len(t, notifier.digests, 1)
	groups := notifier.digests[0].Categories.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, domain.CategoryUrgent, groups[0].Category)
	assert.Equal(t, domain.CategoryNews, groups[1].Category)
	assert.Equal(t, now, notifier.digests[0].GeneratedAt)

	require.Len(t, history.saved, 1)
	assert.Equal(t, []string{"https://x/news", "https://x/seen", "https://x/urgent"}, history.saved[0].Sorted())
	assert.Len(t, history.loaded, 1, "loaded history must not be mutated")

	assert.ElementsMatch(t, []string{"https://x/urgent", "https://x/news"}, archive.notified)
	assert.Len(t, archive.articles, 2)
	require.Len(t, archive.logs, 2)
	assert.Equal(t, 1, archive.logs[0].ArticlesNew)
	assert.Equal(t, 1, archive.logs[1].ArticlesNew)
}

func TestProcessDaySkipsSaveWhenNothingNew(t *testing.T) {
	source := &fakeSource{articles: []domain.Article{announcement("https://x/seen", day(0), "")}}
	history := &fakeHistory{loaded: domain.NewHistory("https://x/seen")}
	notifier := &fakeNotifier{}

	p := NewPipeline(PipelineDeps{Source: source, History: history, Notifier: notifier})
	require.NoError(t, p.ProcessDay(context.Background(), now))

	assert.Empty(t, history.saved)
	assert.Empty(t, notifier.digests)
}

func TestProcessDayToleratesBrokenHistory(t *testing.T) {
	source := &fakeSource{articles: []domain.Article{announcement("https://x/a", day(0), "")}}
	history := &fakeHistory{loadErr: errors.New("corrupt"), saveErr: errors.New("disk full")}
	notifier := &fakeNotifier{}

	p := NewPipeline(PipelineDeps{Source: source, History: history, Notifier: notifier})
	require.NoError(t, p.ProcessDay(context.Background(), now))

	require.Len(t, notifier.digests, 1)
	assert.Equal(t, 1, notifier.digests[0].Categories.Total())
}

func TestProcessDaySurfacesDeliveryFailure(t *testing.T) {
	source := &fakeSource{articles: []domain.Article{announcement("https://x/a", day(0), "")}}
	archive := &fakeArchive{}
	notifier := &fakeNotifier{err: errors.New("slack down")}

	p := NewPipeline(PipelineDeps{Source: source, History: &fakeHistory{}, Archive: archive, Notifier: notifier})
	err := p.ProcessDay(context.Background(), now)

	require.Error(t, err)
	assert.ErrorIs(t, err, notifier.err)
	assert.Empty(t, archive.notified)
}
