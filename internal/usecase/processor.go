package usecase

import (
	"sort"
	"time"

	"PolicyDigest/internal/domain"
)

const (
	DefaultLookbackDays = 7
	DefaultUrgentDays   = 7
)

// Policy holds the filtering and classification knobs.
type Policy struct {
	// LookbackDays bounds how old a news article may be.
	LookbackDays int
	// UrgentDays is the inclusive upper bound of the closing-soon window.
	UrgentDays  int
	NewsSources []string
}

// Result is the categorized output of one pass plus the URLs to add to history.
type Result struct {
	Categories domain.Categorized
	NewURLs    []string
}

// Processor filters, deduplicates, classifies and orders collected articles.
// It never mutates the history it is given.
type Processor struct {
	lookbackDays int
	urgentDays   int
	news         map[string]struct{}
}

// NewProcessor applies defaults for zero-valued policy fields.
func NewProcessor(policy Policy) *Processor {
	if policy.LookbackDays <= 0 {
		policy.LookbackDays = DefaultLookbackDays
	}
	if policy.UrgentDays <= 0 {
		policy.UrgentDays = DefaultUrgentDays
	}
	if policy.NewsSources == nil {
		policy.NewsSources = domain.DefaultNewsSources
	}

	news := make(map[string]struct{}, len(policy.NewsSources))
	for _, src := range policy.NewsSources {
		news[src] = struct{}{}
	}
	return &Processor{
		lookbackDays: policy.LookbackDays,
		urgentDays:   policy.UrgentDays,
		news:         news,
	}
}

// Process runs the recency, expiry and history filters, then classifies and
// orders the survivors. Categories with no members are absent from the result.
func (p *Processor) Process(now time.Time, articles []domain.Article, history domain.History) Result {
	cutoff := domain.Midnight(now).AddDate(0, 0, -p.lookbackDays)
	seen := make(map[string]struct{}, len(articles))

	result := Result{Categories: domain.Categorized{}}
	for _, article := range articles {
		if article.URL == "" {
			continue
		}
		if p.isNews(article) && p.tooOld(article, now, cutoff) {
			continue
		}
		if dday, ok := article.DDay(now); ok && dday < 0 {
			continue
		}
		if history.Has(article.URL) {
			continue
		}
		if _, dup := seen[article.URL]; dup {
			continue
		}
		seen[article.URL] = struct{}{}

		article.Category = p.Classify(article, now)
		result.Categories[article.Category] = append(result.Categories[article.Category], article)
		result.NewURLs = append(result.NewURLs, article.URL)
	}

	for category, items := range result.Categories {
		p.order(category, items, now)
	}
	return result
}

// Classify assigns exactly one category. News origins win over deadline proximity.
func (p *Processor) Classify(article domain.Article, now time.Time) domain.Category {
	if p.isNews(article) {
		return domain.CategoryNews
	}
	if dday, ok := article.DDay(now); ok && dday >= 0 && dday <= p.urgentDays {
		return domain.CategoryUrgent
	}
	return domain.CategoryNew
}

func (p *Processor) isNews(article domain.Article) bool {
	_, ok := p.news[article.Source]
	return ok
}

// tooOld fails open: an unparseable date keeps the article.
func (p *Processor) tooOld(article domain.Article, now, cutoff time.Time) bool {
	published, ok := article.DateTime(now.Location())
	if !ok {
		return false
	}
	return published.Before(cutoff)
}

func (p *Processor) order(category domain.Category, items []domain.Article, now time.Time) {
	switch category {
	case domain.CategoryUrgent:
		sort.SliceStable(items, func(i, j int) bool {
			di, _ := items[i].DDay(now)
			dj, _ := items[j].DDay(now)
			return di < dj
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Date > items[j].Date
		})
	}
}
