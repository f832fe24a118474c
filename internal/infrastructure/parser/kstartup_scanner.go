package parser

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/infrastructure/fetch"
	"PolicyDigest/internal/scanner"
)

const kstartupListURL = "https://www.k-startup.go.kr/web/contents/bizpbanc-ongoing.do"

var goViewExpr = regexp.MustCompile(`go_view\((\d+)\)`)

var kstartupItemStrategies = Selectors(
	"#bizPbancList > ul > li",
	"#bizPbancList ul li",
	"div.board_list ul > li",
)

var kstartupTitleStrategies = Selectors("p.tit", ".tit_wrap .tit", ".tit")

// KStartupScanner reads the ongoing announcement cards of k-startup.go.kr.
type KStartupScanner struct {
	client *fetch.Client
	logger *slog.Logger
}

var _ scanner.Scanner = (*KStartupScanner)(nil)

// NewKStartupScanner wires a paced fetch client.
func NewKStartupScanner(client *fetch.Client, logger *slog.Logger) *KStartupScanner {
	return &KStartupScanner{client: client, logger: orDiscard(logger)}
}

// Name identifies the strategy inside the registry.
func (k *KStartupScanner) Name() string {
	return "kstartup"
}

// Scan extracts every announcement card from the listing page.
func (k *KStartupScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	listURL := endpoint(req.URL, kstartupListURL)

	doc, err := k.client.Document(ctx, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("kstartup listing: %w", err)
	}

	items, strategy := FirstMatch(doc.Selection, kstartupItemStrategies...)
	if strategy < 0 {
		return nil, fmt.Errorf("kstartup listing %s: %w", listURL, ErrNoItems)
	}
	k.logger.Debug("kstartup items located", "strategy", strategy, "items", items.Length())

	today := collectionDay(req.Day)
	articles := make([]domain.Article, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		if article, ok := parseKStartupItem(item, listURL, today); ok {
			articles = append(articles, article)
		}
	})

	return articles, nil
}

func parseKStartupItem(item *goquery.Selection, listURL, today string) (domain.Article, bool) {
	titleSel, _ := FirstMatch(item, kstartupTitleStrategies...)
	title := Text(titleSel)
	if title == "" {
		return domain.Article{}, false
	}

	detailBase := withoutQuery(listURL)
	var id string
	link, _ := FirstMatch(item, Selectors("div.middle a", "a")...)
	articleURL := ResolveLink(link.First(), originOf(listURL), listURL, func(script string) (string, bool) {
		m := goViewExpr.FindStringSubmatch(script)
		if m == nil {
			return "", false
		}
		id = m[1]
		return detailBase + "?schM=view&pbancSn=" + id, true
	})

	date, deadline := kstartupDates(item)
	if date == "" {
		date = today
	}

	article := domain.Article{
		Title:    title,
		URL:      articleURL,
		Source:   domain.SourceKStartup,
		Date:     date,
		Deadline: deadline,
	}
	if id != "" {
		article.Extra = map[string]string{"pbancSn": id}
	}
	return article, true
}

// kstartupDates reads the labelled "등록일자"/"마감일자" spans. When neither
// label is present the first date anywhere in the card is the registration date.
func kstartupDates(item *goquery.Selection) (date, deadline string) {
	item.Find("div.bottom span.list").Each(func(_ int, span *goquery.Selection) {
		text := CleanText(span.Text())
		found, ok := FindDate(text)
		if !ok {
			return
		}
		switch {
		case strings.Contains(text, "등록일자") && date == "":
			date = found
		case strings.Contains(text, "마감일자") && deadline == "":
			deadline = found
		}
	})

	if date == "" && deadline == "" {
		date, _ = FindDate(item.Text())
	}
	return date, deadline
}
