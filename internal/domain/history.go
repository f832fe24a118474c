package domain

import (
	"sort"
	"time"
)

// History is the set of URLs already delivered in earlier runs.
type History map[string]struct{}

// NewHistory builds a history set from urls.
func NewHistory(urls ...string) History {
	h := make(History, len(urls))
	for _, u := range urls {
		h[u] = struct{}{}
	}
	return h
}

// Has reports whether url was delivered before.
func (h History) Has(url string) bool {
	_, ok := h[url]
	return ok
}

// Union returns a new set containing h and urls; h is left untouched.
func (h History) Union(urls []string) History {
	out := make(History, len(h)+len(urls))
	for u := range h {
		out[u] = struct{}{}
	}
	for _, u := range urls {
		out[u] = struct{}{}
	}
	return out
}

// Sorted returns the URLs in lexicographic order.
func (h History) Sorted() []string {
	urls := make([]string, 0, len(h))
	for u := range h {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// CrawlStatus reports the outcome of one source during a run.
type CrawlStatus string

const (
	CrawlSuccess CrawlStatus = "success"
	CrawlError   CrawlStatus = "error"
)

// CrawlLog captures per-source collection statistics for a run.
type CrawlLog struct {
	RunID         string
	Source        string
	Status        CrawlStatus
	ArticlesFound int
	ArticlesNew   int
	ErrorMessage  string
	Duration      time.Duration
	StartedAt     time.Time
}
