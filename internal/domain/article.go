package domain

import "time"

// DateLayout is the canonical on-wire date format of Article.Date and Article.Deadline.
const DateLayout = "2006-01-02"

// Article is the normalized record produced by every source scanner.
type Article struct {
	Title    string
	URL      string
	Source   string
	Date     string
	Deadline string
	Category Category
	Extra    map[string]string
}

// Record is the stable plain serialization handed to transports.
type Record struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Source   string `json:"source"`
	Date     string `json:"date"`
	Deadline string `json:"deadline"`
	Category string `json:"category"`
}

// Record converts the article into its transport representation.
func (a Article) Record() Record {
	return Record{
		Title:    a.Title,
		URL:      a.URL,
		Source:   a.Source,
		Date:     a.Date,
		Deadline: a.Deadline,
		Category: string(a.Category),
	}
}

// DateTime parses Date in loc; ok is false when Date is empty or malformed.
func (a Article) DateTime(loc *time.Location) (time.Time, bool) {
	return ParseDate(a.Date, loc)
}

// DeadlineTime parses Deadline in loc; ok is false when there is no usable deadline.
func (a Article) DeadlineTime(loc *time.Location) (time.Time, bool) {
	return ParseDate(a.Deadline, loc)
}

// DDay returns the signed number of days from now's calendar day to the deadline.
// Negative values mean the deadline has passed.
func (a Article) DDay(now time.Time) (int, bool) {
	deadline, ok := a.DeadlineTime(now.Location())
	if !ok {
		return 0, false
	}
	return DaysBetween(now, deadline), true
}

// ParseDate parses a YYYY-MM-DD string at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from from to to, ignoring wall-clock time and DST shifts.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
