// Package digest renders categorized articles into chat messages.
package digest

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"PolicyDigest/internal/domain"
)

const (
	headline     = "창업 정책 위클리 다이제스트"
	signature    = "자동 수집 by Startup Policy Digest"
	threadPrompt = "💬 스레드에서 전체 목록을 확인하세요"
	rule         = "━━━━━━━━━━━━━━━━━━━━━━━"
)

// cells measures display width independent of the terminal locale.
var cells = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

// Style selects the markup dialect of the rendered text.
type Style int

const (
	// Slack renders mrkdwn: *bold*, _italic_, <url|title>.
	Slack Style = iota
	// TelegramHTML renders the HTML subset accepted by the Bot API.
	TelegramHTML
)

func (s Style) bold(text string) string {
	if s == TelegramHTML {
		return "<b>" + text + "</b>"
	}
	return "*" + text + "*"
}

func (s Style) italic(text string) string {
	if s == TelegramHTML {
		return "<i>" + text + "</i>"
	}
	return "_" + text + "_"
}

func (s Style) escape(text string) string {
	if s == TelegramHTML {
		return html.EscapeString(text)
	}
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(text)
}

func (s Style) link(url, title string) string {
	if s == TelegramHTML {
		return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), s.escape(title))
	}
	return fmt.Sprintf("<%s|%s>", url, s.escape(title))
}

// Limits caps how many articles of a category the main message shows.
// A missing or negative entry means no cap.
type Limits map[domain.Category]int

// DefaultLimits shows every urgent item, ten new announcements and five news items.
func DefaultLimits() Limits {
	return Limits{domain.CategoryNew: 10, domain.CategoryNews: 5}
}

func (l Limits) cap(category domain.Category, n int) int {
	limit, ok := l[category]
	if !ok || limit < 0 || limit >= n {
		return n
	}
	return limit
}

// Formatter renders digests in one style.
type Formatter struct {
	Style  Style
	Limits Limits
	// TitleWidth truncates titles to this many terminal cells; zero disables truncation.
	TitleWidth int
}

// Main renders the summary message with per-category caps.
func (f Formatter) Main(d domain.Digest) string {
	groups := d.Categories.Groups()
	lines := []string{
		fmt.Sprintf("📮 %s %s", f.Style.bold("["+headline+"]"), d.GeneratedAt.Format("2006.01.02")),
		"",
		rule,
		"",
	}

	shown := 0
	for _, group := range groups {
		display := f.Limits.cap(group.Category, len(group.Articles))
		shown += display

		lines = append(lines, f.sectionTitle(group))
		for _, article := range group.Articles[:display] {
			lines = append(lines, f.article(article, group.Category, d.GeneratedAt)...)
		}
		if overflow := len(group.Articles) - display; overflow > 0 {
			lines = append(lines, "  "+f.Style.italic(fmt.Sprintf("…외 %d건 (스레드에서 전체 확인)", overflow)))
		}
		lines = append(lines, "")
	}

	lines = append(lines,
		rule,
		fmt.Sprintf("총 %s 표시 (전체 %d건)", f.Style.bold(fmt.Sprintf("%d건", shown)), d.Categories.Total()),
	)
	if shown < d.Categories.Total() {
		lines = append(lines, f.Style.italic(threadPrompt))
	}
	return strings.Join(lines, "\n")
}

// Full renders every article, intended as a thread reply.
func (f Formatter) Full(d domain.Digest) string {
	lines := []string{
		fmt.Sprintf("📎 %s (%d건)", f.Style.bold("전체 목록"), d.Categories.Total()),
		"",
	}
	for _, group := range d.Categories.Groups() {
		lines = append(lines, f.sectionTitle(group))
		for _, article := range group.Articles {
			lines = append(lines, f.article(article, group.Category, d.GeneratedAt)...)
		}
		lines = append(lines, "")
	}
	lines = append(lines, f.Style.italic(signature))
	return strings.Join(lines, "\n")
}

func (f Formatter) sectionTitle(group domain.Group) string {
	return fmt.Sprintf("%s (%d건)", f.Style.bold(string(group.Category)), len(group.Articles))
}

func (f Formatter) article(a domain.Article, category domain.Category, now time.Time) []string {
	title := a.Title
	if f.TitleWidth > 0 {
		title = cells.Truncate(title, f.TitleWidth, "…")
	}

	info := []string{a.Source}
	switch {
	case category == domain.CategoryUrgent:
		if dday, ok := a.DDay(now); ok {
			info = append(info, fmt.Sprintf("마감 %s (D-%d)", shortDate(a.Deadline), dday))
		}
	case a.Deadline != "":
		info = append(info, "마감 "+shortDate(a.Deadline))
		if a.Date != "" {
			info = append(info, "등록 "+shortDate(a.Date))
		}
	case a.Date != "":
		info = append(info, shortDate(a.Date))
	}

	return []string{
		"• " + f.Style.link(a.URL, title),
		"  └ " + f.Style.escape(strings.Join(info, " | ")),
	}
}

// shortDate turns YYYY-MM-DD into MM.DD; other values pass through.
func shortDate(value string) string {
	t, ok := domain.ParseDate(value, time.UTC)
	if !ok {
		return value
	}
	return t.Format("01.02")
}

// Split breaks text into chunks of at most limit runes, cutting on line
// boundaries when possible.
func Split(text string, limit int) []string {
	if limit <= 0 || runeLen(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		size   int
	)
	flush := func() {
		if chunk := strings.TrimRight(cur.String(), "\n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		cur.Reset()
		size = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := runeLen(line)
		if size+n > limit {
			flush()
		}
		for n > limit {
			head, tail := splitRunes(line, limit)
			chunks = append(chunks, head)
			line, n = tail, runeLen(tail)
		}
		cur.WriteString(line)
		size += n
	}
	flush()
	return chunks
}

func runeLen(s string) int {
	return len([]rune(s))
}

func splitRunes(s string, n int) (string, string) {
	r := []rune(s)
	return string(r[:n]), string(r[n:])
}
