// Package activity summarizes who did what: a per-user roster view when no
// user is named, a detailed single-user view when one is, and an explicit
// unknown-user result with roster suggestions when the name cannot be
// resolved.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"auditchat/pkg/domain"
	"auditchat/pkg/platform/sentinel"
)

const (
	maxTopEventTypes = 5
	maxRecentActions = 5
	maxSuggestions   = 10
)

// Resolver is the identity capability this analyzer consumes; the users
// service satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, id string) domain.UserInfo
	FindByName(ctx context.Context, name string) (domain.UserInfo, bool, error)
	Roster(ctx context.Context) ([]domain.UserInfo, error)
}

// TypeCount is one event type with its frequency.
type TypeCount struct {
	EventType string
	Count     int
}

// Action is one rendered recent action in a single-user view.
type Action struct {
	When      time.Time
	EventType string
	Detail    string
}

// UserActivity is one row of the roster view.
type UserActivity struct {
	User          domain.UserInfo
	Count         int
	LastActive    time.Time
	TopEventTypes []TypeCount
}

// Summary is the analyzer's result. Exactly one of three shapes is
// populated: the roster view (Users), the single-user view (KnownUser true),
// or the miss view (KnownUser false with Suggestions). FailureKind is set
// instead when the roster lookup itself failed; it classifies the failure so
// the rendered message can give actionable guidance rather than a generic
// error.
type Summary struct {
	Users []UserActivity

	KnownUser     bool
	User          domain.UserInfo
	Requested     string
	TotalActions  int
	TopEventTypes []TypeCount
	RecentActions []Action

	Suggestions []string
	FailureKind string
}

// Analyzer builds activity summaries from normalized event lists.
type Analyzer struct {
	resolver Resolver
	logger   *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger.With("component", "activity")
	}
}

// New constructs a user activity analyzer.
func New(resolver Resolver, opts ...Option) (*Analyzer, error) {
	if resolver == nil {
		return nil, fmt.Errorf("user resolver is required")
	}
	a := &Analyzer{resolver: resolver, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analyze summarizes the event window. userKey may be empty (roster view), a
// raw actor ID present in the events, or a free-text name to resolve against
// the organization roster.
func (a *Analyzer) Analyze(ctx context.Context, events []domain.AuditEvent, userKey string) *Summary {
	grouped := groupByActor(events)

	if userKey == "" {
		return a.rosterView(ctx, grouped)
	}

	// Direct grouping-key match first: the cheapest path and the only one
	// that works for actors no longer in the org.
	if _, ok := grouped[userKey]; ok {
		return a.userView(a.resolver.Resolve(ctx, userKey), userKey, grouped[userKey])
	}

	info, found, err := a.resolver.FindByName(ctx, userKey)
	if err != nil {
		a.logger.WarnContext(ctx, "roster lookup failed", "user", userKey, "error", err)
		return &Summary{Requested: userKey, FailureKind: classifyFailure(err)}
	}
	if found {
		// Known user, possibly with zero activity in the window; distinct
		// from an unknown name.
		return a.userView(info, userKey, grouped[info.ID])
	}

	return a.unknownUser(ctx, userKey)
}

func (a *Analyzer) rosterView(ctx context.Context, grouped map[string][]domain.AuditEvent) *Summary {
	summary := &Summary{}
	for actor, actorEvents := range grouped {
		row := UserActivity{
			User:          a.resolver.Resolve(ctx, actor),
			Count:         len(actorEvents),
			LastActive:    lastActive(actorEvents),
			TopEventTypes: topEventTypes(actorEvents, 3),
		}
		summary.Users = append(summary.Users, row)
	}

	sort.Slice(summary.Users, func(i, j int) bool {
		if summary.Users[i].Count != summary.Users[j].Count {
			return summary.Users[i].Count > summary.Users[j].Count
		}
		return summary.Users[i].User.ID < summary.Users[j].User.ID
	})
	return summary
}

func (a *Analyzer) userView(info domain.UserInfo, requested string, events []domain.AuditEvent) *Summary {
	summary := &Summary{
		KnownUser:     true,
		User:          info,
		Requested:     requested,
		TotalActions:  len(events),
		TopEventTypes: topEventTypes(events, maxTopEventTypes),
	}

	recent := make([]domain.AuditEvent, len(events))
	copy(recent, events)
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > maxRecentActions {
		recent = recent[:maxRecentActions]
	}
	for _, event := range recent {
		summary.RecentActions = append(summary.RecentActions, Action{
			When:      event.CreatedAt,
			EventType: event.EventType,
			Detail:    actionDetail(event),
		})
	}
	return summary
}

func (a *Analyzer) unknownUser(ctx context.Context, requested string) *Summary {
	summary := &Summary{Requested: requested}

	roster, err := a.resolver.Roster(ctx)
	if err != nil {
		// The not-found answer stands; we just cannot offer suggestions.
		a.logger.WarnContext(ctx, "roster unavailable for suggestions", "error", err)
		return summary
	}
	for _, info := range roster {
		if name := info.DisplayName(); name != "" {
			summary.Suggestions = append(summary.Suggestions, name)
		}
		if len(summary.Suggestions) == maxSuggestions {
			break
		}
	}
	return summary
}

// Render turns a summary into the user-facing message.
func (a *Analyzer) Render(summary *Summary, days int) string {
	switch {
	case summary.FailureKind != "":
		return failureMessage(summary)
	case summary.Users != nil || (!summary.KnownUser && summary.Requested == ""):
		return renderRoster(summary, days)
	case summary.KnownUser:
		return renderUser(summary, days)
	default:
		return renderUnknown(summary)
	}
}

func renderRoster(summary *Summary, days int) string {
	if len(summary.Users) == 0 {
		return fmt.Sprintf("No user activity recorded in the last %d days.", days)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Activity for the last %d days across %d users:\n", days, len(summary.Users))
	for _, row := range summary.Users {
		fmt.Fprintf(&b, "• %s: %d actions, last active %s",
			row.User.DisplayName(), row.Count, row.LastActive.UTC().Format("Jan 2 15:04"))
		if len(row.TopEventTypes) > 0 {
			b.WriteString(" (mostly " + row.TopEventTypes[0].EventType + ")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderUser(summary *Summary, days int) string {
	name := summary.User.DisplayName()
	if summary.TotalActions == 0 {
		return fmt.Sprintf("%s had no recorded activity in the last %d days.", name, days)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d actions in the last %d days.\n", name, summary.TotalActions, days)
	if len(summary.TopEventTypes) > 0 {
		b.WriteString("Top event types:\n")
		for _, tc := range summary.TopEventTypes {
			fmt.Fprintf(&b, "• %s (%d)\n", tc.EventType, tc.Count)
		}
	}
	if len(summary.RecentActions) > 0 {
		b.WriteString("Most recent:\n")
		for _, action := range summary.RecentActions {
			line := fmt.Sprintf("• %s  %s", action.When.UTC().Format("Jan 2 15:04"), action.EventType)
			if action.Detail != "" {
				line += " (" + action.Detail + ")"
			}
			b.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderUnknown(summary *Summary) string {
	msg := fmt.Sprintf("I couldn't find a user matching %q.", summary.Requested)
	if len(summary.Suggestions) > 0 {
		msg += " Did you mean one of: " + strings.Join(summary.Suggestions, ", ") + "?"
	}
	return msg
}

func failureMessage(summary *Summary) string {
	switch summary.FailureKind {
	case "authentication":
		return "I couldn't query the user directory: the API credentials were rejected. Check the configured API token."
	case "permission":
		return "I couldn't query the user directory: the API token lacks permission to list organization members."
	case "not_found":
		return "The organization's user directory was not found. Check the configured organization ID."
	case "network":
		return "The user directory is currently unreachable. Please try again shortly."
	default:
		return fmt.Sprintf("Looking up %q failed unexpectedly.", summary.Requested)
	}
}

func classifyFailure(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrUnauthorized):
		return "authentication"
	case errors.Is(err, sentinel.ErrForbidden):
		return "permission"
	case errors.Is(err, sentinel.ErrNotFound):
		return "not_found"
	case errors.Is(err, sentinel.ErrUnavailable), errors.Is(err, sentinel.ErrRateLimited):
		return "network"
	default:
		return "unknown"
	}
}

func groupByActor(events []domain.AuditEvent) map[string][]domain.AuditEvent {
	grouped := make(map[string][]domain.AuditEvent)
	for _, event := range events {
		actor := event.UserID
		if actor == "" {
			actor = "unknown"
		}
		grouped[actor] = append(grouped[actor], event)
	}
	return grouped
}

func lastActive(events []domain.AuditEvent) time.Time {
	var latest time.Time
	for _, event := range events {
		if event.CreatedAt.After(latest) {
			latest = event.CreatedAt
		}
	}
	return latest
}

func topEventTypes(events []domain.AuditEvent, limit int) []TypeCount {
	counts := make(map[string]int)
	for _, event := range events {
		counts[event.EventType]++
	}

	out := make([]TypeCount, 0, len(counts))
	for eventType, count := range counts {
		out = append(out, TypeCount{EventType: eventType, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].EventType < out[j].EventType
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// actionDetail renders per-type extra detail for the action listing.
// Role edits and invites carry the most useful content fields.
func actionDetail(event domain.AuditEvent) string {
	switch event.EventType {
	case "admin.role.edit":
		before, after := event.ContentString("role_before"), event.ContentString("role_after")
		if before != "" && after != "" {
			return fmt.Sprintf("role %s → %s", before, after)
		}
		if role := event.ContentString("role"); role != "" {
			return "role " + role
		}
	case "org.teammate.invite":
		if email := event.ContentString("invitee_email"); email != "" {
			return "invited " + email
		}
	}
	return ""
}
