package entity

import (
	"regexp"

	"auditchat/pkg/domain"
)

// Compound date expressions the primary pass does not cover. Evaluated only
// when no time_period or time_range was already found, and they contribute
// at most one of the two.
var compoundRangePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsince last (monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
	regexp.MustCompile(`(?i)\b(?:first|second) half of (?:the )?(?:year|month|q[1-4]|january|february|march|april|may|june|july|august|september|october|november|december)\b`),
	regexp.MustCompile(`(?i)\bq[1-4]\b`),
	regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december) \d{1,2}(?:st|nd|rd|th)?\b`),
}

var compoundPeriodPatterns = []struct {
	re     *regexp.Regexp
	period string
}{
	{regexp.MustCompile(`(?i)\b(?:past|last) (?:couple|few) (?:of )?(?:hours|days|weeks)\b`), "recent"},
	{regexp.MustCompile(`(?i)\bso far this week\b`), "this week"},
	{regexp.MustCompile(`(?i)\bso far this month\b`), "this month"},
}

func (e *Extractor) extractCompoundDates(text string, out *domain.Entities) {
	for _, p := range compoundPeriodPatterns {
		if p.re.MatchString(text) {
			out.TimePeriod = p.period
			return
		}
	}
	for _, re := range compoundRangePatterns {
		if m := re.FindString(text); m != "" {
			out.TimeRange = m
			return
		}
	}
}
