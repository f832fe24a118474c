package parser

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/infrastructure/fetch"
	"PolicyDigest/internal/scanner"
)

const (
	bizinfoListURL  = "https://www.bizinfo.go.kr/web/lay1/bbs/S1T122C128/AS/74/list.do"
	bizinfoViewPath = "/web/lay1/bbs/S1T122C128/AS/74/view.do"
)

var (
	bizinfoIDExpr   = regexp.MustCompile(`PBLN_\w+`)
	bizinfoPathExpr = regexp.MustCompile(`'(/[^']+)'`)
)

var bizinfoRowStrategies = Selectors(
	"table.tbl_type1 tbody tr",
	"table.boardList tbody tr",
	"table.bbs_list tbody tr",
	"div.board_list table tbody tr",
	"div.tbl_wrap table tbody tr",
	"table tbody tr",
)

// BizinfoScanner reads the support programme board of bizinfo.go.kr.
type BizinfoScanner struct {
	client *fetch.Client
	logger *slog.Logger
}

var _ scanner.Scanner = (*BizinfoScanner)(nil)

// NewBizinfoScanner wires a paced fetch client.
func NewBizinfoScanner(client *fetch.Client, logger *slog.Logger) *BizinfoScanner {
	return &BizinfoScanner{client: client, logger: orDiscard(logger)}
}

// Name identifies the strategy inside the registry.
func (b *BizinfoScanner) Name() string {
	return "bizinfo"
}

// Scan reads the board rows. Rows carry a registration date only.
func (b *BizinfoScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	listURL := endpoint(req.URL, bizinfoListURL)

	doc, err := b.client.Document(ctx, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("bizinfo listing: %w", err)
	}

	rows, strategy := FirstMatch(doc.Selection, bizinfoRowStrategies...)
	if strategy < 0 {
		return nil, fmt.Errorf("bizinfo listing %s: %w", listURL, ErrNoItems)
	}
	b.logger.Debug("bizinfo rows located", "strategy", strategy, "rows", rows.Length())

	origin := originOf(listURL)
	handlers := []ScriptHandler{
		func(script string) (string, bool) {
			id := bizinfoIDExpr.FindString(script)
			if id == "" {
				return "", false
			}
			return origin + bizinfoViewPath + "?pblancId=" + id, true
		},
		func(script string) (string, bool) {
			match := bizinfoPathExpr.FindStringSubmatch(script)
			if match == nil {
				return "", false
			}
			return origin + match[1], true
		},
	}

	today := collectionDay(req.Day)
	articles := make([]domain.Article, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		if row.Find("td").Length() < 2 {
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

		date, ok := FindDate(row.Text())
		if !ok {
			date = today
		}

		article := domain.Article{
			Title:  title,
			URL:    ResolveLink(link, origin, listURL, handlers...),
			Source: domain.SourceBizinfo,
			Date:   date,
		}
		if id := bizinfoIDExpr.FindString(link.AttrOr("href", "") + " " + link.AttrOr("onclick", "")); id != "" {
			article.Extra = map[string]string{"pblancId": id}
		}
		articles = append(articles, article)
	})

	return articles, nil
}
