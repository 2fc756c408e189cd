// Package entity pulls structured values out of free text via ordered
// pattern matching. Extraction is pure and deterministic: for each entity
// kind the first matching pattern wins, and kinds with no match are simply
// absent from the result.
package entity

import (
	"regexp"
	"strconv"
	"strings"

	"auditchat/pkg/domain"
)

// userIDPatterns capture a user reference. The last capture group of the
// winning match is the value; patterns keep the name as written so the
// activity analyzer can resolve it against the roster case-insensitively.
var userIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`@([A-Za-z0-9_.-]+)`),
	regexp.MustCompile(`(?i)\buser ([A-Za-z0-9_.-]+)`),
	regexp.MustCompile(`(?i)\b([A-Za-z0-9_.-]+)'s (?:activity|actions|events|changes)`),
	regexp.MustCompile(`(?i)\bactivity (?:by|for|of) ([A-Za-z0-9_.-]+)`),
	regexp.MustCompile(`(?i)\bactions? (?:by|from) ([A-Za-z0-9_.-]+)`),
	regexp.MustCompile(`(?i)\bwhat (?:has|did) ([A-Za-z0-9_.-]+)(?: been)? (?:doing|done|do|did|up to)`),
	regexp.MustCompile(`(?i)\bwhat ([A-Za-z0-9_.-]+) (?:has done|did|changed)`),
}

// timePeriodPatterns normalize relative windows to a canonical form:
// "<count> <unit>", "last <unit>", "this <unit>", "yesterday", "today" or
// "recent".
var timePeriodPatterns = []struct {
	re        *regexp.Regexp
	normalize func(groups []string) string
}{
	{regexp.MustCompile(`(?i)\b(?:last|past) (\d+) (hours?|days?|weeks?|months?)\b`), joinCountUnit},
	{regexp.MustCompile(`(?i)\b(\d+) (hours?|days?|weeks?|months?) ago\b`), joinCountUnit},
	{regexp.MustCompile(`(?i)\blast (hour|day|week|month|year)\b`), prefixUnit("last")},
	{regexp.MustCompile(`(?i)\bthis (hour|day|week|month|year)\b`), prefixUnit("this")},
	{regexp.MustCompile(`(?i)\b(yesterday|today)\b`), func(g []string) string { return strings.ToLower(g[1]) }},
	{regexp.MustCompile(`(?i)\brecent(?:ly)?\b`), func([]string) string { return "recent" }},
}

// timeRangePatterns recognize coarse named windows. The raw matched substring
// is kept; the router re-parses it into clock bounds.
var timeRangePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\blast night\b`),
	regexp.MustCompile(`(?i)\bovernight\b`),
	regexp.MustCompile(`(?i)\b(?:over the |this past )?weekend\b`),
	regexp.MustCompile(`(?i)\bafter[- ]?hours\b`),
	regexp.MustCompile(`(?i)\bbetween .+ and .+`),
	regexp.MustCompile(`(?i)\bfrom .+ to .+`),
	regexp.MustCompile(`(?i)\bduring the (?:morning|afternoon|evening|night)\b`),
}

// eventTypePatterns recognize "<domain> changes" phrases and
// "<verb> <object>" phrasings; the captured topic normalizes to a lowercase
// singular form.
var eventTypePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(policy|policies|integrations?|webhooks?|workflows?|roles?|permissions?|settings|security|sso|teammates?|users?) changes\b`),
	regexp.MustCompile(`(?i)\b(?:modified|changed|updated|edited|deleted|removed|created) (?:the )?(integrations?|policies|policy|webhooks?|workflows?|roles?|permissions?|settings|teammates?|users?)\b`),
}

// countLimitPatterns extract a result bound. "last N" needs a results noun so
// it cannot shadow "last N weeks" time periods.
var countLimitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:top|first) (\d+)\b`),
	regexp.MustCompile(`(?i)\blast (\d+) (?:results|events|actions|entries)\b`),
	regexp.MustCompile(`(?i)\b(\d+) most\b`),
	regexp.MustCompile(`(?i)\blimit (\d+)\b`),
	regexp.MustCompile(`(?i)\b(\d+) results\b`),
}

// userIDStopwords are filler words the looser user patterns can capture by
// accident; a match on one of them falls through to the next pattern.
var userIDStopwords = map[string]bool{
	"activity":  true,
	"actions":   true,
	"events":    true,
	"changes":   true,
	"the":       true,
	"a":         true,
	"me":        true,
	"all":       true,
	"you":       true,
	"everyone":  true,
	"someone":   true,
	"anyone":    true,
	"today":     true,
	"yesterday": true,
	// Pronouns show up in follow-up questions ("what did she do yesterday");
	// the previous turn's context supplies the actual user.
	"she":  true,
	"he":   true,
	"they": true,
	"it":   true,
	"we":   true,
	"i":    true,
}

// Extractor extracts entities from messages. Stateless and safe for
// concurrent use.
type Extractor struct{}

// New constructs an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract pulls all recognizable entities out of text. A secondary pass
// covers compound date expressions, but only when the first pass found no
// time constraint.
func (e *Extractor) Extract(text string) domain.Entities {
	var out domain.Entities

	for _, re := range userIDPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		// A pattern like "user NAME" can capture filler words out of phrases
		// like "user activity"; those are not user references.
		if v := lastGroup(m); v != "" && !userIDStopwords[strings.ToLower(v)] {
			out.UserID = v
			break
		}
	}

	for _, p := range timePeriodPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			out.TimePeriod = p.normalize(m)
			break
		}
	}

	for _, re := range timeRangePatterns {
		if m := re.FindString(text); m != "" {
			out.TimeRange = m
			break
		}
	}

	for _, re := range eventTypePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			out.EventType = normalizeTopic(lastGroup(m))
			break
		}
	}

	for _, re := range countLimitPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				out.CountLimit = n
			}
			break
		}
	}

	if !out.HasWindow() {
		e.extractCompoundDates(text, &out)
	}

	return out
}

func lastGroup(matches []string) string {
	for i := len(matches) - 1; i > 0; i-- {
		if matches[i] != "" {
			return matches[i]
		}
	}
	return ""
}

func joinCountUnit(groups []string) string {
	return strings.ToLower(groups[1] + " " + groups[2])
}

func prefixUnit(prefix string) func([]string) string {
	return func(groups []string) string {
		return prefix + " " + strings.ToLower(groups[1])
	}
}

// normalizeTopic lowercases a topic word and reduces common plurals so
// "policies" and "policy changes" resolve to the same keyword.
func normalizeTopic(topic string) string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	switch {
	case topic == "policies":
		return "policy"
	case topic == "settings" || topic == "sso" || topic == "security":
		return topic
	case strings.HasSuffix(topic, "s"):
		return strings.TrimSuffix(topic, "s")
	default:
		return topic
	}
}
