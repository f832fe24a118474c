package parser

import (
	"errors"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"PolicyDigest/internal/domain"
)

var (
	datePattern      = regexp.MustCompile(`(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})`)
	exactDatePattern = regexp.MustCompile(`^(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})$`)
	tagPattern       = regexp.MustCompile(`<[^>]+>`)
)

// Strategy locates candidate elements beneath root.
type Strategy func(root *goquery.Selection) *goquery.Selection

// CSS builds a strategy from a CSS selector.
func CSS(selector string) Strategy {
	return func(root *goquery.Selection) *goquery.Selection {
		return root.Find(selector)
	}
}

// Selectors turns an ordered selector list into strategies.
func Selectors(selectors ...string) []Strategy {
	out := make([]Strategy, 0, len(selectors))
	for _, sel := range selectors {
		out = append(out, CSS(sel))
	}
	return out
}

// FirstMatch tries strategies in order and returns the first non-empty result
// together with its index. It returns an empty selection and -1 when none match.
func FirstMatch(root *goquery.Selection, strategies ...Strategy) (*goquery.Selection, int) {
	for i, strategy := range strategies {
		if sel := strategy(root); sel != nil && sel.Length() > 0 {
			return sel, i
		}
	}
	return root.Slice(0, 0), -1
}

// FindDate returns the first real calendar date in text as YYYY-MM-DD.
func FindDate(text string) (string, bool) {
	for _, m := range datePattern.FindAllStringSubmatch(text, -1) {
		if date, ok := calendarDate(m[1], m[2], m[3]); ok {
			return date, true
		}
	}
	return "", false
}

// LastDate returns the last real calendar date in text, which is the closing
// day of a "from ~ to" period.
func LastDate(text string) (string, bool) {
	matches := datePattern.FindAllStringSubmatch(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if date, ok := calendarDate(m[1], m[2], m[3]); ok {
			return date, true
		}
	}
	return "", false
}

// ExactDate accepts text only when, once trimmed, it is nothing but a date.
func ExactDate(text string) (string, bool) {
	m := exactDatePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	return calendarDate(m[1], m[2], m[3])
}

func calendarDate(ys, ms, ds string) (string, bool) {
	y, err := strconv.Atoi(ys)
	if err != nil {
		return "", false
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return "", false
	}
	d, err := strconv.Atoi(ds)
	if err != nil {
		return "", false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return domain.FormatDate(t), true
}

// LabeledDate scans label/value pairs and returns the date of the first value
// whose label contains one of keywords.
func LabeledDate(labels, values *goquery.Selection, keywords ...string) (string, bool) {
	n := labels.Length()
	if values.Length() < n {
		n = values.Length()
	}
	for i := 0; i < n; i++ {
		label := labels.Eq(i).Text()
		if !containsAny(label, keywords) {
			continue
		}
		if date, ok := FindDate(values.Eq(i).Text()); ok {
			return date, true
		}
	}
	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ScriptHandler reconstructs a detail URL from an inline handler such as
// onclick="fn_view('86','1234')" or href="javascript:go_view(1234)".
type ScriptHandler func(script string) (string, bool)

// ResolveLink resolves a listing anchor to an absolute URL: absolute href,
// then protocol-relative or root-relative href against base, then script handlers over href and
// onclick, then fallback.
func ResolveLink(link *goquery.Selection, base, fallback string, handlers ...ScriptHandler) string {
	href := strings.TrimSpace(link.AttrOr("href", ""))
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		if resolved, ok := resolveAgainst(base, href); ok {
			return resolved
		}
	} else if strings.HasPrefix(href, "/") {
		return strings.TrimSuffix(base, "/") + href
	}

	onclick := strings.TrimSpace(link.AttrOr("onclick", ""))
	for _, script := range []string{href, onclick} {
		if script == "" {
			continue
		}
		for _, handler := range handlers {
			if resolved, ok := handler(script); ok {
				return resolved
			}
		}
	}

	return fallback
}

// resolveAgainst resolves a protocol-relative ref with base's scheme.
func resolveAgainst(base, ref string) (string, bool) {
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" {
		return "", false
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return b.ResolveReference(r).String(), true
}

// StripHTML unescapes entities first and then drops tags, so escaped markup
// is removed as well.
func StripHTML(text string) string {
	text = html.UnescapeString(text)
	return strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
}

// CleanText collapses whitespace and normalizes to NFC.
func CleanText(text string) string {
	return norm.NFC.String(strings.Join(strings.Fields(text), " "))
}

// Text extracts cleaned text of the first element in sel.
func Text(sel *goquery.Selection) string {
	return CleanText(sel.First().Text())
}

func collectionDay(day time.Time) string {
	if day.IsZero() {
		day = time.Now()
	}
	return domain.FormatDate(day)
}

// ErrNoItems reports that none of a scanner's listing strategies matched.
var ErrNoItems = errors.New("no listing items matched")

func endpoint(override, fallback string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return fallback
}

// originOf returns scheme://host of rawURL, or rawURL itself when unparseable.
func originOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return rawURL
	}
	return parsed.Scheme + "://" + parsed.Host
}

func withoutQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
