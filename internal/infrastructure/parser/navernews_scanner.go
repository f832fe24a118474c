package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/infrastructure/fetch"
	"PolicyDigest/internal/scanner"
)

const (
	naverNewsURL       = "https://openapi.naver.com/v1/search/news.json"
	defaultNaverResult = 10
)

// NaverConfig carries the search API credentials and keywords.
type NaverConfig struct {
	ClientID     string
	ClientSecret string
	Keywords     []string
	Display      int
}

type naverResponse struct {
	Items []naverItem `json:"items"`
}

type naverItem struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
}

// NaverNewsScanner queries the Naver news search API once per keyword.
type NaverNewsScanner struct {
	client *fetch.Client
	cfg    NaverConfig
	logger *slog.Logger
}

var _ scanner.Scanner = (*NaverNewsScanner)(nil)

// NewNaverNewsScanner wires the API client.
func NewNaverNewsScanner(client *fetch.Client, cfg NaverConfig, logger *slog.Logger) *NaverNewsScanner {
	if cfg.Display <= 0 {
		cfg.Display = defaultNaverResult
	}
	return &NaverNewsScanner{client: client, cfg: cfg, logger: orDiscard(logger)}
}

// Name identifies the strategy inside the registry.
func (n *NaverNewsScanner) Name() string {
	return "navernews"
}

// Scan searches every keyword, newest first, and drops repeated URLs. A failed
// keyword is logged and skipped so the remaining keywords still contribute.
func (n *NaverNewsScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if n.cfg.ClientID == "" || n.cfg.ClientSecret == "" {
		n.logger.Warn("naver credentials missing, skipping news search")
		return nil, nil
	}

	apiURL := endpoint(req.URL, naverNewsURL)
	header := http.Header{}
	header.Set("X-Naver-Client-Id", n.cfg.ClientID)
	header.Set("X-Naver-Client-Secret", n.cfg.ClientSecret)

	seen := map[string]struct{}{}
	var (
		articles []domain.Article
		failed   int
		lastErr  error
	)
	for _, keyword := range n.cfg.Keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}

		query := url.Values{
			"query":   {keyword},
			"display": {strconv.Itoa(n.cfg.Display)},
			"start":   {"1"},
			"sort":    {"date"},
		}
		var resp naverResponse
		if err := n.client.JSON(ctx, apiURL, query, header, &resp); err != nil {
			failed++
			lastErr = err
			n.logger.Warn("naver search failed", "keyword", keyword, "error", err)
			continue
		}

		for _, item := range resp.Items {
			article, ok := naverArticle(item, keyword)
			if !ok {
				continue
			}
			if _, dup := seen[article.URL]; dup {
				continue
			}
			seen[article.URL] = struct{}{}
			articles = append(articles, article)
		}
	}

	if failed > 0 && failed == countKeywords(n.cfg.Keywords) {
		return articles, fmt.Errorf("naver search: every keyword failed: %w", lastErr)
	}
	return articles, nil
}

func naverArticle(item naverItem, keyword string) (domain.Article, bool) {
	link := strings.TrimSpace(item.OriginalLink)
	if link == "" {
		link = strings.TrimSpace(item.Link)
	}
	title := CleanText(StripHTML(item.Title))
	if link == "" || title == "" {
		return domain.Article{}, false
	}

	return domain.Article{
		Title:  title,
		URL:    link,
		Source: domain.SourceNaver,
		Date:   naverDate(item.PubDate),
		Extra:  map[string]string{"keyword": keyword},
	}, true
}

// naverDate converts "Mon, 02 Jan 2006 15:04:05 -0700" into the calendar date
// of that offset; anything else yields "".
func naverDate(value string) string {
	t, err := time.Parse(time.RFC1123Z, strings.TrimSpace(value))
	if err != nil {
		return ""
	}
	return domain.FormatDate(t)
}

func countKeywords(keywords []string) int {
	var n int
	for _, kw := range keywords {
		if strings.TrimSpace(kw) != "" {
			n++
		}
	}
	return n
}
