// Package samgov imports opportunities from SAM.gov links. It extracts the
// notice id, looks the notice up once and falls back to an editable
// placeholder when no details are available.
package samgov

import (
	"fmt"
	"regexp"
)

// SearchURL is the public SAM.gov opportunity search page.
const SearchURL = "https://sam.gov/content/opportunities"

var noticePattern = regexp.MustCompile(`(?i)sam\.gov/opp/([a-f0-9-]+)/view`)

// ExtractNoticeID returns the notice id of a sam.gov/opp/<id>/view link.
func ExtractNoticeID(url string) (string, bool) {
	m := noticePattern.FindStringSubmatch(url)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// ValidURL reports whether url is a recognised SAM.gov opportunity link.
func ValidURL(url string) bool {
	return noticePattern.MatchString(url)
}

// OpportunityURL returns the public page of a notice.
func OpportunityURL(noticeID string) string {
	return fmt.Sprintf("https://sam.gov/opp/%s/view", noticeID)
}
