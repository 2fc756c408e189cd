// Package security partitions audit events into priority tiers and renders
// the tiered summary. Categorization is a pure function over the injected
// event-type tables; rendering resolves actor names through the users
// service.
package security

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"auditchat/internal/eventtypes"
	"auditchat/pkg/domain"
)

// settingsEditEvent gets a dedicated rendering branch: its content carries
// before/after sub-objects worth diffing.
const settingsEditEvent = "org.settings.security.edit"

// maxEventsPerTier caps how many events each tier lists in a summary.
const maxEventsPerTier = 5

// NameResolver resolves actor IDs to display names. Declared here,
// consumer-side; the users service satisfies it.
type NameResolver interface {
	DisplayName(ctx context.Context, id string) string
}

// Categorized is the result of partitioning one event window by priority.
// All preserves the input order; the tiers partition it completely.
type Categorized struct {
	HighPriority   []domain.AuditEvent
	MediumPriority []domain.AuditEvent
	LowPriority    []domain.AuditEvent
	All            []domain.AuditEvent
}

// Analyzer categorizes and summarizes security-relevant audit events.
type Analyzer struct {
	tables *eventtypes.Tables
}

// New constructs a security event analyzer.
func New(tables *eventtypes.Tables) (*Analyzer, error) {
	if tables == nil {
		return nil, fmt.Errorf("event type tables are required")
	}
	return &Analyzer{tables: tables}, nil
}

// Categorize partitions events by static membership in the priority tables.
// Anything in neither list is low priority. Pure: repeated calls over the
// same input yield identical partitions.
func (a *Analyzer) Categorize(events []domain.AuditEvent) Categorized {
	cat := Categorized{All: events}
	for _, event := range events {
		switch {
		case a.tables.IsHighPriority(event.EventType):
			cat.HighPriority = append(cat.HighPriority, event)
		case a.tables.IsMediumPriority(event.EventType):
			cat.MediumPriority = append(cat.MediumPriority, event)
		default:
			cat.LowPriority = append(cat.LowPriority, event)
		}
	}
	return cat
}

// Summarize renders the tiered bullet summary, resolving every actor to a
// display name first.
func (a *Analyzer) Summarize(ctx context.Context, cat Categorized, days int, resolver NameResolver) string {
	if len(cat.All) == 0 {
		return fmt.Sprintf("No security events in the last %s. All quiet. ✅", dayPhrase(days))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Security summary for the last %s: %d events (%d high, %d medium, %d low priority).\n",
		dayPhrase(days), len(cat.All), len(cat.HighPriority), len(cat.MediumPriority), len(cat.LowPriority))

	a.writeTier(ctx, &b, "🔴 High priority", cat.HighPriority, resolver)
	a.writeTier(ctx, &b, "🟠 Medium priority", cat.MediumPriority, resolver)
	a.writeTier(ctx, &b, "🟢 Low priority", cat.LowPriority, resolver)

	return strings.TrimRight(b.String(), "\n")
}

func (a *Analyzer) writeTier(ctx context.Context, b *strings.Builder, header string, events []domain.AuditEvent, resolver NameResolver) {
	if len(events) == 0 {
		return
	}

	fmt.Fprintf(b, "\n%s (%d):\n", header, len(events))
	shown := events
	if len(shown) > maxEventsPerTier {
		shown = shown[:maxEventsPerTier]
	}
	for _, event := range shown {
		name := "unknown"
		if event.HasActor() && resolver != nil {
			name = resolver.DisplayName(ctx, event.UserID)
		}
		line := fmt.Sprintf("• %s  %s by %s", event.CreatedAt.UTC().Format("Jan 2 15:04"), event.EventType, name)
		if event.EventType == settingsEditEvent {
			if detail := describeSettingsChange(event); detail != "" {
				line += " (" + detail + ")"
			}
		}
		b.WriteString(line + "\n")
	}
	if rest := len(events) - len(shown); rest > 0 {
		fmt.Fprintf(b, "…and %d more\n", rest)
	}
}

// describeSettingsChange diffs the before/after sub-objects of a security
// settings edit and reports what changed: toggles as enabled/disabled,
// everything else as old → new.
func describeSettingsChange(event domain.AuditEvent) string {
	before := event.ContentMap("before")
	after := event.ContentMap("after")
	if before == nil && after == nil {
		return ""
	}

	keys := map[string]bool{}
	for k := range before {
		keys[k] = true
	}
	for k := range after {
		keys[k] = true
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var changes []string
	for _, key := range sorted {
		oldVal, newVal := before[key], after[key]
		if fmt.Sprint(oldVal) == fmt.Sprint(newVal) {
			continue
		}
		if enabled, ok := newVal.(bool); ok {
			if enabled {
				changes = append(changes, key+" enabled")
			} else {
				changes = append(changes, key+" disabled")
			}
			continue
		}
		changes = append(changes, fmt.Sprintf("%s: %v → %v", key, oldVal, newVal))
	}
	return strings.Join(changes, ", ")
}

func dayPhrase(days int) string {
	if days == 1 {
		return "day"
	}
	return fmt.Sprintf("%d days", days)
}
