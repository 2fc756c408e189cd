package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"auditchat/pkg/domain"
	"auditchat/pkg/requestcontext"
)

// maxListedEvents caps the per-reply event listing when the message names no
// count limit of its own.
const maxListedEvents = 5

// eventsByTopic answers "who changed the policies" style questions: fetch the
// window, narrow it to the topic's event-type prefix and report the distinct
// actors behind the matching events.
func (s *Service) eventsByTopic(ctx context.Context, result domain.IntentResult, e domain.Entities) domain.Response {
	w := s.resolveWindow(requestcontext.Now(ctx), e, defaultLookback)
	events, err := s.events.FetchEvents(ctx, w.From, w.To)
	if err != nil {
		return s.failure(ctx, "fetch audit events", err)
	}

	// The extractor may have missed the topic; the raw message is the backup
	// source for a keyword.
	prefix := s.tables.PrefixFor(e.EventType)
	if prefix == "" {
		prefix = s.tables.PrefixFor(result.Message)
	}

	matched := events
	if prefix != "" {
		matched = make([]domain.AuditEvent, 0, len(events))
		for _, event := range events {
			if strings.HasPrefix(event.EventType, prefix) {
				matched = append(matched, event)
			}
		}
	}

	topic := "matching"
	if e.EventType != "" {
		topic = e.EventType
	} else if prefix != "" {
		topic = prefix
	}

	if len(matched) == 0 {
		return domain.NewResponse(
			fmt.Sprintf("No %s events in the last %s.", topic, dayPhrase(w.Days)),
			map[string]any{"total": 0, "prefix": prefix})
	}

	actors := distinctActors(ctx, matched, s.users)

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s events in the last %s.\n", len(matched), topic, dayPhrase(w.Days))
	if len(actors) > 0 {
		b.WriteString("Changed by: " + strings.Join(actors, ", ") + "\n")
	}
	for _, event := range recentFirst(matched, listLimit(e)) {
		fmt.Fprintf(&b, "• %s  %s by %s\n",
			event.CreatedAt.In(s.loc).Format("Jan 2 15:04"),
			event.EventType, s.actorName(ctx, event))
	}

	return response(&b, map[string]any{
		"total":       len(matched),
		"prefix":      prefix,
		"actors":      actors,
		"event_types": countByType(matched, maxListedEvents),
	})
}

// securitySummary answers "show me recent security events": tiered
// categorization plus the rendered summary.
func (s *Service) securitySummary(ctx context.Context, e domain.Entities) domain.Response {
	w := s.resolveWindow(requestcontext.Now(ctx), e, defaultLookback)
	events, err := s.events.FetchEvents(ctx, w.From, w.To)
	if err != nil {
		return s.failure(ctx, "fetch audit events", err)
	}

	cat := s.security.Categorize(events)
	msg := s.security.Summarize(ctx, cat, w.Days, s.users)
	return domain.NewResponse(msg, map[string]any{
		"total":  len(cat.All),
		"high":   len(cat.HighPriority),
		"medium": len(cat.MediumPriority),
		"low":    len(cat.LowPriority),
	})
}

// userActivity answers "what has Alice been doing": the activity analyzer
// owns the name-resolution ladder, so even its failures come back as a
// summary this workflow can render.
func (s *Service) userActivity(ctx context.Context, e domain.Entities) domain.Response {
	w := s.resolveWindow(requestcontext.Now(ctx), e, defaultLookback)
	events, err := s.events.FetchEvents(ctx, w.From, w.To)
	if err != nil {
		return s.failure(ctx, "fetch audit events", err)
	}

	summary := s.activity.Analyze(ctx, events, e.UserID)
	resp := domain.NewResponse(s.activity.Render(summary, w.Days), summary)
	if summary.FailureKind != "" {
		resp.Success = false
	}
	return resp
}

// suspiciousActivity answers "anything unusual lately": anomaly rules over
// the window.
func (s *Service) suspiciousActivity(ctx context.Context, e domain.Entities) domain.Response {
	w := s.resolveWindow(requestcontext.Now(ctx), e, defaultLookback)
	events, err := s.events.FetchEvents(ctx, w.From, w.To)
	if err != nil {
		return s.failure(ctx, "fetch audit events", err)
	}

	records := s.anomaly.Detect(events)
	return domain.NewResponse(s.anomaly.Summarize(records, w.Days), map[string]any{
		"anomalies":      records,
		"events_scanned": len(events),
	})
}

// timeDigest answers "what happened last night": totals, the dominant event
// types and a security highlight for an explicit window.
func (s *Service) timeDigest(ctx context.Context, e domain.Entities) domain.Response {
	w := s.resolveWindow(requestcontext.Now(ctx), e, timeBasedLookback)
	events, err := s.events.FetchEvents(ctx, w.From, w.To)
	if err != nil {
		return s.failure(ctx, "fetch audit events", err)
	}

	span := fmt.Sprintf("%s and %s",
		w.From.In(s.loc).Format("Jan 2 15:04"), w.To.In(s.loc).Format("Jan 2 15:04"))
	if len(events) == 0 {
		return domain.NewResponse(
			fmt.Sprintf("No audit events between %s. All quiet.", span),
			map[string]any{"total": 0})
	}

	actors := distinctActors(ctx, events, s.users)
	cat := s.security.Categorize(events)

	var b strings.Builder
	fmt.Fprintf(&b, "Between %s: %d events from %d users.\n", span, len(events), len(actors))
	b.WriteString("Top event types:\n")
	for _, line := range countByType(events, maxListedEvents) {
		b.WriteString("• " + line + "\n")
	}
	if n := len(cat.HighPriority); n > 0 {
		fmt.Fprintf(&b, "🔴 %d high-priority security %s in this window.\n", n, plural(n, "event", "events"))
	}

	return response(&b, map[string]any{
		"total":         len(events),
		"users":         actors,
		"high_priority": len(cat.HighPriority),
		"event_types":   countByType(events, maxListedEvents),
	})
}

func (s *Service) actorName(ctx context.Context, event domain.AuditEvent) string {
	if !event.HasActor() {
		return "unknown"
	}
	return s.users.DisplayName(ctx, event.UserID)
}

func response(b *strings.Builder, data map[string]any) domain.Response {
	return domain.NewResponse(strings.TrimRight(b.String(), "\n"), data)
}

func recentFirst(events []domain.AuditEvent, limit int) []domain.AuditEvent {
	sorted := make([]domain.AuditEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func listLimit(e domain.Entities) int {
	if e.CountLimit > 0 {
		return e.CountLimit
	}
	return maxListedEvents
}

func dayPhrase(days int) string {
	if days == 1 {
		return "day"
	}
	return fmt.Sprintf("%d days", days)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
