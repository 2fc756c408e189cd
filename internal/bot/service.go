// Package bot is the request router: it turns one natural-language message
// into one channel-neutral response. Recognition and extraction run
// concurrently, the recognized intent selects a workflow, and every workflow
// failure is converted into an actionable user-facing message. ProcessMessage
// never panics outward.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"auditchat/internal/analyzer/activity"
	"auditchat/internal/analyzer/anomaly"
	"auditchat/internal/analyzer/security"
	"auditchat/internal/eventtypes"
	"auditchat/internal/nlp/intent"
	"auditchat/internal/platform/metrics"
	"auditchat/pkg/domain"
	"auditchat/pkg/platform/sentinel"
	"auditchat/pkg/requestcontext"
)

// defaultLookback is the query window when the message names no time
// constraint. Time-based digests use a tighter one.
const (
	defaultLookback   = 7 * 24 * time.Hour
	timeBasedLookback = 24 * time.Hour
)

// EventSource provides the audit event window. The audit API client
// satisfies it.
type EventSource interface {
	FetchEvents(ctx context.Context, from, to time.Time) ([]domain.AuditEvent, error)
}

// IntentRecognizer classifies a message.
type IntentRecognizer interface {
	Recognize(text string) domain.IntentResult
}

// EntityExtractor pulls structured values out of a message.
type EntityExtractor interface {
	Extract(text string) domain.Entities
}

// UserResolver is the identity capability the workflows consume. The users
// service satisfies it.
type UserResolver interface {
	Resolve(ctx context.Context, id string) domain.UserInfo
	DisplayName(ctx context.Context, id string) string
}

// Service routes messages to intent workflows.
type Service struct {
	events     EventSource
	recognizer IntentRecognizer
	extractor  EntityExtractor
	users      UserResolver
	security   *security.Analyzer
	activity   *activity.Analyzer
	anomaly    *anomaly.Detector
	tables     *eventtypes.Tables
	contexts   *ContextStore

	loc               *time.Location
	businessStartHour int
	businessEndHour   int

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.With("component", "bot")
	}
}

// WithMetrics injects application metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLocation sets the timezone used to resolve named windows like
// "yesterday" and "last night".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithBusinessHours sets the [start, end) window backing "after hours"
// phrases.
func WithBusinessHours(startHour, endHour int) Option {
	return func(s *Service) {
		s.businessStartHour = startHour
		s.businessEndHour = endHour
	}
}

// New constructs the router. All positional dependencies are required.
func New(
	events EventSource,
	recognizer IntentRecognizer,
	extractor EntityExtractor,
	users UserResolver,
	securityAnalyzer *security.Analyzer,
	activityAnalyzer *activity.Analyzer,
	detector *anomaly.Detector,
	tables *eventtypes.Tables,
	opts ...Option,
) (*Service, error) {
	if events == nil {
		return nil, fmt.Errorf("event source is required")
	}
	if recognizer == nil || extractor == nil {
		return nil, fmt.Errorf("intent recognizer and entity extractor are required")
	}
	if users == nil {
		return nil, fmt.Errorf("user resolver is required")
	}
	if securityAnalyzer == nil || activityAnalyzer == nil || detector == nil {
		return nil, fmt.Errorf("all three analyzers are required")
	}
	if tables == nil {
		return nil, fmt.Errorf("event type tables are required")
	}

	s := &Service{
		events:            events,
		recognizer:        recognizer,
		extractor:         extractor,
		users:             users,
		security:          securityAnalyzer,
		activity:          activityAnalyzer,
		anomaly:           detector,
		tables:            tables,
		contexts:          NewContextStore(),
		loc:               time.UTC,
		businessStartHour: 8,
		businessEndHour:   18,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ProcessMessage handles one message end to end. conv may be nil for
// channel-less callers; with a channel ID present the previous turn can fill
// a missing user reference and this turn is stored for the next one.
func (s *Service) ProcessMessage(ctx context.Context, text string, conv *domain.ConversationContext) (resp domain.Response) {
	started := time.Now()
	result := domain.IntentResult{Intent: domain.IntentHelp, Confidence: 1}

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic while processing message",
				"panic", r, "request_id", requestcontext.RequestID(ctx))
			resp = domain.ErrorResponse("Something went wrong while answering that. Please try again.")
		}
		s.metrics.ObserveMessage(result.Intent.String(), time.Since(started).Seconds(), resp.Fallback)
	}()

	var entities domain.Entities
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		result = s.recognizer.Recognize(text)
		return nil
	})
	g.Go(func() error {
		entities = s.extractor.Extract(text)
		return nil
	})
	_ = g.Wait()

	now := requestcontext.Now(ctx)
	channelID := requestcontext.ChannelID(ctx)
	if conv != nil && conv.ChannelID != "" {
		channelID = conv.ChannelID
	}

	// Follow-ups like "and what did she do yesterday?" inherit the user
	// reference from the previous turn in the same channel.
	if channelID != "" && entities.UserID == "" && result.Intent == domain.IntentUserActivity {
		if prev, ok := s.contexts.Get(channelID, now); ok {
			entities.UserID = prev.LastEntities.UserID
		}
	}

	s.logger.InfoContext(ctx, "message routed",
		"intent", result.Intent.String(),
		"confidence", result.Confidence,
		"request_id", requestcontext.RequestID(ctx))

	resp = s.dispatch(ctx, result, entities)

	if result.Confidence >= intent.LowConfidenceCutoff && result.Confidence < intent.ClarificationCutoff {
		resp.Clarification = true
	}

	if channelID != "" {
		s.contexts.Put(channelID, domain.ConversationContext{
			PlatformUserID: platformUser(conv),
			ChannelID:      channelID,
			LastIntent:     result.Intent,
			LastEntities:   entities,
			UpdatedAt:      now,
		})
	}
	return resp
}

func platformUser(conv *domain.ConversationContext) string {
	if conv == nil {
		return ""
	}
	return conv.PlatformUserID
}

func (s *Service) dispatch(ctx context.Context, result domain.IntentResult, entities domain.Entities) domain.Response {
	switch result.Intent {
	case domain.IntentEventByUser:
		return s.eventsByTopic(ctx, result, entities)
	case domain.IntentSecurityEvents:
		return s.securitySummary(ctx, entities)
	case domain.IntentUserActivity:
		return s.userActivity(ctx, entities)
	case domain.IntentSuspiciousActivity:
		return s.suspiciousActivity(ctx, entities)
	case domain.IntentTimeBased:
		return s.timeDigest(ctx, entities)
	default:
		return s.help(result)
	}
}

// failure logs the underlying error and maps it to guidance the user can act
// on. The raw error never reaches the channel.
func (s *Service) failure(ctx context.Context, op string, err error) domain.Response {
	s.logger.ErrorContext(ctx, op+" failed", "error", err, "request_id", requestcontext.RequestID(ctx))

	var msg string
	switch {
	case errors.Is(err, sentinel.ErrUnauthorized):
		msg = "The audit API rejected our credentials. Check the configured API token."
	case errors.Is(err, sentinel.ErrForbidden):
		msg = "The API token lacks permission to read the audit log."
	case errors.Is(err, sentinel.ErrNotFound):
		msg = "The audit log was not found. Check the configured organization ID."
	case errors.Is(err, sentinel.ErrRateLimited):
		msg = "The audit API is rate limiting us right now. Try again in a minute."
	case errors.Is(err, sentinel.ErrUnavailable):
		msg = "The audit API is currently unavailable. Please try again shortly."
	default:
		msg = "I hit an unexpected error answering that. Please try again."
	}
	return domain.ErrorResponse(msg)
}

const helpMessage = `Here's what you can ask me:
• "Who changed the security settings recently?"
• "Show me security events from last week"
• "What has Alice been doing?"
• "Any suspicious activity this month?"
• "What happened last night?"
Add a time range ("last 3 days", "this week") to narrow any question.`

// help answers both explicit help requests and unrecognized messages. A help
// verdict at full confidence means the recognizer defaulted here rather than
// matched a help phrasing; that reply is the canned fallback.
func (s *Service) help(result domain.IntentResult) domain.Response {
	if result.Confidence >= 1 && strings.TrimSpace(result.Message) != "" {
		resp := domain.NewResponse("I'm not sure I understood that.\n\n"+helpMessage, nil)
		resp.Fallback = true
		return resp
	}
	return domain.NewResponse(helpMessage, nil)
}

func distinctActors(ctx context.Context, events []domain.AuditEvent, users UserResolver) []string {
	seen := make(map[string]bool)
	var names []string
	for _, event := range events {
		if !event.HasActor() || seen[event.UserID] {
			continue
		}
		seen[event.UserID] = true
		names = append(names, users.DisplayName(ctx, event.UserID))
	}
	sort.Strings(names)
	return names
}

func countByType(events []domain.AuditEvent, limit int) []string {
	counts := make(map[string]int)
	for _, event := range events {
		counts[event.EventType]++
	}

	type typeCount struct {
		eventType string
		count     int
	}
	sorted := make([]typeCount, 0, len(counts))
	for eventType, count := range counts {
		sorted = append(sorted, typeCount{eventType, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].eventType < sorted[j].eventType
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]string, 0, len(sorted))
	for _, tc := range sorted {
		out = append(out, fmt.Sprintf("%s (%d)", tc.eventType, tc.count))
	}
	return out
}
