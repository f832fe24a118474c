package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/infrastructure/fetch"
	"PolicyDigest/internal/scanner"
)

const kisedListURL = "https://www.kised.or.kr/menu.es?mid=a10302000000"

// kisedRegistrationLabels mark the dt whose dd is the registration date.
var kisedRegistrationLabels = []string{"등록", "공고일", "게시"}

var kisedItemStrategies = Selectors(
	"ul.lstyle_list > li",
	"ul.lstyle_list li",
	"div.board_list ul > li",
)

// KISEDScanner reads the business announcements of the Korea Institute of Startup & Entrepreneurship Development.
type KISEDScanner struct {
	client *fetch.Client
	logger *slog.Logger
}

var _ scanner.Scanner = (*KISEDScanner)(nil)

// NewKISEDScanner wires a paced fetch client.
func NewKISEDScanner(client *fetch.Client, logger *slog.Logger) *KISEDScanner {
	return &KISEDScanner{client: client, logger: orDiscard(logger)}
}

// Name identifies the strategy inside the registry.
func (k *KISEDScanner) Name() string {
	return "kised"
}

// Scan extracts announcement list items; details usually link out to k-startup.go.kr.
func (k *KISEDScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	listURL := endpoint(req.URL, kisedListURL)

	doc, err := k.client.Document(ctx, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("kised listing: %w", err)
	}

	items, strategy := FirstMatch(doc.Selection, kisedItemStrategies...)
	if strategy < 0 {
		return nil, fmt.Errorf("kised listing %s: %w", listURL, ErrNoItems)
	}
	k.logger.Debug("kised items located", "strategy", strategy, "items", items.Length())

	origin := originOf(listURL)
	today := collectionDay(req.Day)
	articles := make([]domain.Article, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		titleSel, _ := FirstMatch(item, Selectors("b.ls_tit", ".ls_tit")...)
		title := Text(titleSel)
		if title == "" {
			return
		}

		articleURL := listURL
		if link := item.Find("a[href]").First(); link.Length() > 0 {
			articleURL = ResolveLink(link, origin, listURL)
		}

		labels, values := item.Find("dl dt"), item.Find("dl dd")
		date, ok := LabeledDate(labels, values, kisedRegistrationLabels...)
		if !ok {
			date = today
		}

		article := domain.Article{
			Title:    title,
			URL:      articleURL,
			Source:   domain.SourceKISED,
			Date:     date,
			Deadline: kisedDeadline(labels, values),
		}
		if state := Text(item.Find("span.state")); state != "" {
			article.Extra = map[string]string{"state": state}
		}
		articles = append(articles, article)
	})

	return articles, nil
}

// kisedDeadline prefers the value labelled "마감"; otherwise the first dd with
// a date counts, taking the end of a period. Registration values never count.
func kisedDeadline(labels, values *goquery.Selection) string {
	if date, ok := LabeledDate(labels, values, "마감"); ok {
		return date
	}

	var deadline string
	values.EachWithBreak(func(i int, dd *goquery.Selection) bool {
		if i < labels.Length() && containsAny(labels.Eq(i).Text(), kisedRegistrationLabels) {
			return true
		}
		if found, ok := LastDate(dd.Text()); ok {
			deadline = found
			return false
		}
		return true
	})
	return deadline
}
