package saramin

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/scrape/util"
)

var (
	postedDateRe = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{2})`)

	// Matches both "09/05(금)" and "~09/05(금)".
	deadlineRe = regexp.MustCompile(`(\d{2})/(\d{2})`)
)

const (
	markerUntilFilled = "채용시"
	markerAlwaysOpen  = "상시"
	markerClosesToday = "오늘마감"
)

// ParsePostedDate finds a YY/MM/DD fragment in text and returns that day
// (year 2000+YY) at midnight UTC.
func ParsePostedDate(text string) (time.Time, bool) {
	m := postedDateRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	yy, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	dd, _ := strconv.Atoi(m[3])
	return makeDate(2000+yy, mm, dd)
}

// ParseDeadline turns the raw closing-date label of a listing card into
// YYYY-MM-DD or one of the domain deadline sentinels. A bare MM/DD is placed
// in now's year, or the following year when its month has already passed.
func ParseDeadline(raw string, now time.Time) string {
	raw = util.CleanText(raw)
	switch {
	case raw == "":
		return domain.DeadlineAlwaysOpen
	case strings.Contains(raw, markerUntilFilled):
		return domain.DeadlineUntilFilled
	case strings.Contains(raw, markerAlwaysOpen):
		return domain.DeadlineAlwaysOpen
	}

	if m := deadlineRe.FindStringSubmatch(raw); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := now.Year()
		if month < int(now.Month()) {
			year++
		}
		if d, ok := makeDate(year, month, day); ok {
			return d.Format(domain.DateLayout)
		}
	}

	if strings.Contains(raw, markerClosesToday) {
		return now.Format(domain.DateLayout)
	}
	return domain.DeadlineAlwaysOpen
}

// makeDate rejects values time.Date would silently normalize (02/30 etc).
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// dayOf truncates t to its calendar day, expressed at midnight UTC so it
// compares directly with ParsePostedDate results.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
