package bot

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"auditchat/pkg/domain"
)

// window is a concrete half-open [From, To) query interval. Days is the
// interval length rounded to whole days, floor one, for message rendering.
type window struct {
	From time.Time
	To   time.Time
	Days int
}

func newWindow(from, to time.Time) window {
	days := int(to.Sub(from).Hours()/24 + 0.5)
	if days < 1 {
		days = 1
	}
	return window{From: from, To: to, Days: days}
}

// resolveWindow turns extracted time entities into a concrete interval ending
// at or before now. Named ranges win over relative periods because they are
// the more specific phrasing; with neither present the workflow fallback
// applies.
func (s *Service) resolveWindow(now time.Time, e domain.Entities, fallback time.Duration) window {
	now = now.In(s.loc)
	if e.TimeRange != "" {
		if w, ok := s.namedRange(now, e.TimeRange); ok {
			if w.To.After(now) {
				w = newWindow(w.From, now)
			}
			return w
		}
	}
	if e.TimePeriod != "" {
		if w, ok := s.periodWindow(now, e.TimePeriod); ok {
			return w
		}
	}
	return newWindow(now.Add(-fallback), now)
}

// countUnitRe matches the extractor's canonical "<count> <unit>" periods.
var countUnitRe = regexp.MustCompile(`^(\d+) (hour|day|week|month)s?$`)

func (s *Service) periodWindow(now time.Time, period string) (window, bool) {
	if m := countUnitRe.FindStringSubmatch(period); m != nil {
		n, _ := strconv.Atoi(m[1])
		return newWindow(now.Add(-time.Duration(n)*unitDuration(m[2])), now), true
	}

	switch {
	case period == "yesterday":
		start := startOfDay(now).AddDate(0, 0, -1)
		return newWindow(start, start.AddDate(0, 0, 1)), true
	case period == "today":
		return newWindow(startOfDay(now), now), true
	case period == "recent":
		return newWindow(now.Add(-24*time.Hour), now), true
	case strings.HasPrefix(period, "last "):
		return newWindow(now.Add(-unitDuration(strings.TrimPrefix(period, "last "))), now), true
	case strings.HasPrefix(period, "this "):
		return newWindow(startOfUnit(now, strings.TrimPrefix(period, "this ")), now), true
	}
	return window{}, false
}

var weekdaysByName = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var monthsByName = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

var (
	quarterRe  = regexp.MustCompile(`^q([1-4])$`)
	halfOfRe   = regexp.MustCompile(`^(first|second) half of (?:the )?(year|month|q[1-4]|[a-z]+)$`)
	monthDayRe = regexp.MustCompile(`^([a-z]+) (\d{1,2})(?:st|nd|rd|th)?$`)
)

// namedRange resolves a raw named-window phrase to clock bounds. Unparseable
// phrases report false so the workflow fallback applies.
func (s *Service) namedRange(now time.Time, raw string) (window, bool) {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	today := startOfDay(now)

	switch {
	case strings.Contains(lowered, "last night"), strings.Contains(lowered, "overnight"):
		return newWindow(today.AddDate(0, 0, -1).Add(20*time.Hour), today.Add(6*time.Hour)), true

	case strings.Contains(lowered, "weekend"):
		// Most recent Saturday through Monday morning.
		daysBack := (int(now.Weekday()) - int(time.Saturday) + 7) % 7
		saturday := today.AddDate(0, 0, -daysBack)
		return newWindow(saturday, saturday.AddDate(0, 0, 2)), true

	case strings.Contains(lowered, "after hours"), strings.Contains(lowered, "after-hours"), strings.Contains(lowered, "afterhours"):
		// The previous evening through this morning's business start.
		return newWindow(today.AddDate(0, 0, -1).Add(time.Duration(s.businessEndHour)*time.Hour),
			today.Add(time.Duration(s.businessStartHour)*time.Hour)), true

	case strings.HasPrefix(lowered, "since last "):
		day, ok := weekdaysByName[strings.TrimPrefix(lowered, "since last ")]
		if !ok {
			return window{}, false
		}
		daysBack := (int(now.Weekday()) - int(day) + 7) % 7
		if daysBack == 0 {
			daysBack = 7
		}
		return newWindow(today.AddDate(0, 0, -daysBack), now), true

	case strings.HasPrefix(lowered, "during the "):
		return s.daypart(now, strings.TrimPrefix(lowered, "during the "))
	}

	if m := quarterRe.FindStringSubmatch(lowered); m != nil {
		q, _ := strconv.Atoi(m[1])
		return s.quarter(now, q), true
	}
	if m := halfOfRe.FindStringSubmatch(lowered); m != nil {
		return s.halfOf(now, m[1], m[2])
	}
	if m := monthDayRe.FindStringSubmatch(lowered); m != nil {
		month, ok := monthsByName[m[1]]
		if !ok {
			return window{}, false
		}
		day, _ := strconv.Atoi(m[2])
		start := time.Date(now.Year(), month, day, 0, 0, 0, 0, s.loc)
		if start.After(now) {
			start = start.AddDate(-1, 0, 0)
		}
		return newWindow(start, start.AddDate(0, 0, 1)), true
	}

	if from, to, ok := s.clockSpan(now, lowered); ok {
		return newWindow(from, to), true
	}
	return window{}, false
}

// daypart resolves "during the morning" style phrases to the most recent
// completed or in-progress slot.
func (s *Service) daypart(now time.Time, part string) (window, bool) {
	var startHour, endHour int
	switch part {
	case "morning":
		startHour, endHour = 6, 12
	case "afternoon":
		startHour, endHour = 12, 18
	case "evening":
		startHour, endHour = 18, 24
	case "night":
		startHour, endHour = 0, 6
	default:
		return window{}, false
	}

	day := startOfDay(now)
	from := day.Add(time.Duration(startHour) * time.Hour)
	if from.After(now) {
		from = from.AddDate(0, 0, -1)
	}
	return newWindow(from, from.Add(time.Duration(endHour-startHour)*time.Hour)), true
}

// quarter resolves "q3" to the most recent occurrence of that quarter.
func (s *Service) quarter(now time.Time, q int) window {
	start := time.Date(now.Year(), time.Month((q-1)*3+1), 1, 0, 0, 0, 0, s.loc)
	if start.After(now) {
		start = start.AddDate(-1, 0, 0)
	}
	return newWindow(start, start.AddDate(0, 3, 0))
}

// halfOf resolves "first half of march", "second half of the year" and the
// like by halving the base range.
func (s *Service) halfOf(now time.Time, which, base string) (window, bool) {
	var from, to time.Time
	switch {
	case base == "year":
		from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, s.loc)
		to = from.AddDate(1, 0, 0)
	case base == "month":
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
		to = from.AddDate(0, 1, 0)
	case quarterRe.MatchString(base):
		q, _ := strconv.Atoi(strings.TrimPrefix(base, "q"))
		w := s.quarter(now, q)
		from, to = w.From, w.To
	default:
		month, ok := monthsByName[base]
		if !ok {
			return window{}, false
		}
		from = time.Date(now.Year(), month, 1, 0, 0, 0, 0, s.loc)
		if from.After(now) {
			from = from.AddDate(-1, 0, 0)
		}
		to = from.AddDate(0, 1, 0)
	}

	mid := from.Add(to.Sub(from) / 2)
	if which == "first" {
		return newWindow(from, mid), true
	}
	return newWindow(mid, to), true
}

// clockSpan parses "between 3pm and 6pm" or "from 9 to 17:30" against
// today's clock, shifting to yesterday when the span has not started yet.
func (s *Service) clockSpan(now time.Time, lowered string) (from, to time.Time, ok bool) {
	var parts []string
	switch {
	case strings.HasPrefix(lowered, "between "):
		parts = strings.SplitN(strings.TrimPrefix(lowered, "between "), " and ", 2)
	case strings.HasPrefix(lowered, "from "):
		parts = strings.SplitN(strings.TrimPrefix(lowered, "from "), " to ", 2)
	default:
		return time.Time{}, time.Time{}, false
	}
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, false
	}

	startH, startM, ok1 := parseClock(parts[0])
	endH, endM, ok2 := parseClock(parts[1])
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, false
	}

	day := startOfDay(now)
	from = day.Add(time.Duration(startH)*time.Hour + time.Duration(startM)*time.Minute)
	to = day.Add(time.Duration(endH)*time.Hour + time.Duration(endM)*time.Minute)
	if !to.After(from) {
		return time.Time{}, time.Time{}, false
	}
	if from.After(now) {
		from = from.AddDate(0, 0, -1)
		to = to.AddDate(0, 0, -1)
	}
	return from, to, true
}

var clockRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

func parseClock(s string) (hour, minute int, ok bool) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func unitDuration(unit string) time.Duration {
	switch strings.TrimSuffix(unit, "s") {
	case "hour":
		return time.Hour
	case "day":
		return 24 * time.Hour
	case "week":
		return 7 * 24 * time.Hour
	case "month":
		return 30 * 24 * time.Hour
	case "year":
		return 365 * 24 * time.Hour
	}
	return 24 * time.Hour
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfUnit floors now to the start of the named calendar unit. Weeks start
// Monday.
func startOfUnit(now time.Time, unit string) time.Time {
	y, m, d := now.Date()
	loc := now.Location()
	switch unit {
	case "hour":
		return time.Date(y, m, d, now.Hour(), 0, 0, 0, loc)
	case "week":
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return day.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))
	case "month":
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case "year":
		return time.Date(y, 1, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}
