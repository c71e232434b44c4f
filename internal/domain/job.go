package domain

import (
	"regexp"
	"time"
)

const (
	PlatformSaramin = "saramin"

	// Deadline sentinels used when the listing has no resolvable closing date.
	DeadlineAlwaysOpen  = "always open"
	DeadlineUntilFilled = "hiring until filled"

	// DateLayout is the normalized form of PostedDate and dated DeadlineDate values.
	DateLayout = "2006-01-02"
)

// JobPosting is one discovered listing. It is created when a listing card is
// parsed and only Description is attached afterwards.
type JobPosting struct {
	ExternalID     string    `json:"external_id"`
	Platform       string    `json:"platform"`
	Keyword        string    `json:"keyword,omitempty"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Location       string    `json:"location"`
	Experience     string    `json:"experience"`
	EmploymentType string    `json:"employment_type"`
	PostedDate     string    `json:"posted_date"`   // YYYY-MM-DD
	DeadlineDate   string    `json:"deadline_date"` // YYYY-MM-DD or a Deadline* sentinel
	DetailLink     string    `json:"detail_link"`
	CrawledAt      time.Time `json:"crawled_at"`
	Description    string    `json:"description"`
}

// HasDatedDeadline reports whether DeadlineDate is a calendar date rather than a sentinel.
func (j JobPosting) HasDatedDeadline() bool {
	_, err := time.Parse(DateLayout, j.DeadlineDate)
	return err == nil
}

var recIdxRe = regexp.MustCompile(`rec_idx=(\d+)`)

// ExternalIDFromLink extracts the site posting id from a listing or detail link.
func ExternalIDFromLink(link string) string {
	m := recIdxRe.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}
