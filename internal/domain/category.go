package domain

import "time"

// Category is the behaviour-based bucket an article is delivered under.
type Category string

const (
	CategoryUrgent Category = "🔥 마감 임박"
	CategoryNew    Category = "📋 신규 공고"
	CategoryNews   Category = "📰 정책 동향"
)

// CategoryOrder is the fixed display order of digest sections.
var CategoryOrder = []Category{CategoryUrgent, CategoryNew, CategoryNews}

// Fixed source labels stamped by the scanners.
const (
	SourceKStartup = "K-Startup"
	SourceMSS      = "중소벤처기업부"
	SourceKISED    = "창업진흥원"
	SourceBizinfo  = "기업마당"
	SourceNaver    = "네이버뉴스"
)

// DefaultNewsSources lists origins whose content is informational and carries no deadline.
var DefaultNewsSources = []string{SourceNaver, SourceMSS}

// Categorized maps each non-empty category to its ordered articles.
type Categorized map[Category][]Article

// Group is one digest section.
type Group struct {
	Category Category
	Articles []Article
}

// Groups returns the non-empty categories in display order.
func (c Categorized) Groups() []Group {
	groups := make([]Group, 0, len(c))
	for _, cat := range CategoryOrder {
		if items := c[cat]; len(items) > 0 {
			groups = append(groups, Group{Category: cat, Articles: items})
		}
	}
	return groups
}

// Total counts articles across all categories.
func (c Categorized) Total() int {
	total := 0
	for _, items := range c {
		total += len(items)
	}
	return total
}

// URLs returns every article URL in display order.
func (c Categorized) URLs() []string {
	urls := make([]string, 0, c.Total())
	for _, group := range c.Groups() {
		for _, article := range group.Articles {
			urls = append(urls, article.URL)
		}
	}
	return urls
}

// Digest is the processed, categorized output handed to notifiers.
type Digest struct {
	GeneratedAt time.Time
	Categories  Categorized
}
