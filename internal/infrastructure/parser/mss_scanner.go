package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/infrastructure/fetch"
	"PolicyDigest/internal/scanner"
)

const (
	mssListURL  = "https://www.mss.go.kr/site/smba/ex/bbs/List.do"
	mssViewPath = "/site/smba/ex/bbs/View.do"
	// mssPressBoard is the cbIdx of the press release board.
	mssPressBoard = "86"
)

var (
	mssPairExpr = regexp.MustCompile(`'(\d+)'\s*,\s*'(\d+)'`)
	mssIDExpr   = regexp.MustCompile(`(\d{4,})`)
)

var mssRowStrategies = Selectors(
	"table.boardList tbody tr",
	"table.bbs_list tbody tr",
	"div.board_list table tbody tr",
	"table.tbl_type tbody tr",
	"table tbody tr",
)

// MSSScanner reads the press release board of the Ministry of SMEs and Startups.
type MSSScanner struct {
	client *fetch.Client
	logger *slog.Logger
}

var _ scanner.Scanner = (*MSSScanner)(nil)

// NewMSSScanner wires a paced fetch client.
func NewMSSScanner(client *fetch.Client, logger *slog.Logger) *MSSScanner {
	return &MSSScanner{client: client, logger: orDiscard(logger)}
}

// Name identifies the strategy inside the registry.
func (m *MSSScanner) Name() string {
	return "mss"
}

// Scan reads the first page of the press board. The "board" option overrides cbIdx.
func (m *MSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	listURL := endpoint(req.URL, mssListURL)
	board := req.Option("board", mssPressBoard)

	doc, err := m.client.Document(ctx, listURL, url.Values{"cbIdx": {board}, "pageIndex": {"1"}})
	if err != nil {
		return nil, fmt.Errorf("mss listing: %w", err)
	}

	rows, strategy := FirstMatch(doc.Selection, mssRowStrategies...)
	if strategy < 0 {
		return nil, fmt.Errorf("mss listing %s: %w", listURL, ErrNoItems)
	}
	m.logger.Debug("mss rows located", "strategy", strategy, "rows", rows.Length())

	origin := originOf(listURL)
	fallback := listURL + "?cbIdx=" + board
	handlers := []ScriptHandler{
		func(script string) (string, bool) {
			match := mssPairExpr.FindStringSubmatch(script)
			if match == nil {
				return "", false
			}
			return mssViewURL(origin, match[1], match[2]), true
		},
		func(script string) (string, bool) {
			match := mssIDExpr.FindStringSubmatch(script)
			if match == nil {
				return "", false
			}
			return mssViewURL(origin, board, match[1]), true
		},
	}

	today := collectionDay(req.Day)
	articles := make([]domain.Article, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() < 3 {
			return
		}
		link := row.Find("a").First()
		if link.Length() == 0 {
			return
		}
		title := CleanText(link.Text())
		if title == "" {
			return
		}

		articles = append(articles, domain.Article{
			Title:  title,
			URL:    ResolveLink(link, origin, fallback, handlers...),
			Source: domain.SourceMSS,
			Date:   mssColumnDate(cols, today),
		})
	})

	return articles, nil
}

func mssViewURL(origin, board, id string) string {
	return fmt.Sprintf("%s%s?cbIdx=%s&bcIdx=%s", origin, mssViewPath, board, id)
}

// mssColumnDate returns the first cell that holds nothing but a date.
func mssColumnDate(cols *goquery.Selection, today string) string {
	date := today
	cols.EachWithBreak(func(_ int, col *goquery.Selection) bool {
		if found, ok := ExactDate(col.Text()); ok {
			date = found
			return false
		}
		return true
	})
	return date
}
