package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"auditchat/internal/analyzer/activity"
	"auditchat/internal/analyzer/anomaly"
	"auditchat/internal/analyzer/security"
	"auditchat/internal/eventtypes"
	"auditchat/internal/nlp/entity"
	"auditchat/internal/nlp/intent"
	"auditchat/pkg/domain"
	"auditchat/pkg/platform/sentinel"
	"auditchat/pkg/requestcontext"
)

// =============================================================================
// Bot Service Test Suite
// =============================================================================
// Justification for service-level tests: the router is where recognition,
// extraction, window resolution and the analyzers meet. These tests run the
// real NLP components and analyzers against a fake event source, so they
// cover the full message-to-response path without the remote API.

type BotServiceSuite struct {
	suite.Suite
	source *fakeEvents
	users  *fakeUsers
	svc    *Service
	ctx    context.Context
}

func TestBotServiceSuite(t *testing.T) {
	suite.Run(t, new(BotServiceSuite))
}

func (s *BotServiceSuite) SetupTest() {
	s.source = &fakeEvents{}
	s.users = &fakeUsers{
		roster: []domain.UserInfo{
			{ID: "u1", Name: "Alice Moran"},
			{ID: "u2", Name: "Bela Toth"},
		},
	}
	s.svc = s.newService(s.source)
	s.ctx = requestcontext.WithTime(context.Background(), wed)
}

func (s *BotServiceSuite) newService(source EventSource) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tables := eventtypes.Default()

	securityAnalyzer, err := security.New(tables)
	s.Require().NoError(err)
	activityAnalyzer, err := activity.New(s.users, activity.WithLogger(logger))
	s.Require().NoError(err)
	detector, err := anomaly.New(tables, anomaly.DefaultConfig())
	s.Require().NoError(err)

	svc, err := New(source, intent.New(), entity.New(), s.users,
		securityAnalyzer, activityAnalyzer, detector, tables,
		WithLogger(logger))
	s.Require().NoError(err)
	return svc
}

// =============================================================================
// Fakes
// =============================================================================

type fakeEvents struct {
	events   []domain.AuditEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	calls    int
}

func (f *fakeEvents) FetchEvents(_ context.Context, from, to time.Time) ([]domain.AuditEvent, error) {
	f.calls++
	f.lastFrom, f.lastTo = from, to
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type panicEvents struct{}

func (panicEvents) FetchEvents(context.Context, time.Time, time.Time) ([]domain.AuditEvent, error) {
	panic("unexpected page shape")
}

type fakeUsers struct {
	roster    []domain.UserInfo
	rosterErr error
}

func (f *fakeUsers) Resolve(_ context.Context, id string) domain.UserInfo {
	for _, info := range f.roster {
		if info.ID == id {
			return info
		}
	}
	return domain.UserInfo{ID: id}
}

func (f *fakeUsers) DisplayName(ctx context.Context, id string) string {
	return f.Resolve(ctx, id).DisplayName()
}

func (f *fakeUsers) FindByName(_ context.Context, name string) (domain.UserInfo, bool, error) {
	if f.rosterErr != nil {
		return domain.UserInfo{}, false, f.rosterErr
	}
	for _, info := range f.roster {
		first, _, _ := strings.Cut(info.Name, " ")
		if strings.EqualFold(info.Name, name) || strings.EqualFold(first, name) {
			return info, true, nil
		}
	}
	return domain.UserInfo{}, false, nil
}

func (f *fakeUsers) Roster(_ context.Context) ([]domain.UserInfo, error) {
	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	return f.roster, nil
}

func event(d, hour int, eventType, actor string) domain.AuditEvent {
	return domain.AuditEvent{
		CreatedAt: time.Date(2026, 3, d, hour, 0, 0, 0, time.UTC),
		EventType: eventType,
		UserID:    actor,
	}
}

// =============================================================================
// Workflows
// =============================================================================

func (s *BotServiceSuite) TestSecuritySummary() {
	s.source.events = []domain.AuditEvent{
		event(3, 10, "org.sso.edit", "u1"),
		event(3, 11, "org.policy.edit", "u2"),
		event(3, 12, "conversation.note.create", "u1"),
	}

	resp := s.svc.ProcessMessage(s.ctx, "show me security events from last week", nil)

	s.True(resp.Success)
	s.False(resp.Clarification)
	s.Contains(resp.Message, "Security summary")
	s.Contains(resp.Message, "🔴 High priority (1)")
	s.Contains(resp.Message, "Alice Moran")
	s.True(s.source.lastFrom.Equal(wed.Add(-7*24*time.Hour)), "explicit last week window")

	data := resp.Data.(map[string]any)
	s.Equal(1, data["high"])
	s.Equal(1, data["medium"])
}

func (s *BotServiceSuite) TestEventsByTopic() {
	s.source.events = []domain.AuditEvent{
		event(3, 10, "org.policy.edit", "u1"),
		event(3, 11, "app.webhook.create", "u2"),
	}

	resp := s.svc.ProcessMessage(s.ctx, "who changed the policies?", nil)

	s.True(resp.Success)
	s.Contains(resp.Message, "Found 1 policy events")
	s.Contains(resp.Message, "Changed by: Alice Moran")
	s.NotContains(resp.Message, "Bela Toth", "webhook events do not match the policy prefix")

	data := resp.Data.(map[string]any)
	s.Equal(1, data["total"])
	s.Equal("org.policy", data["prefix"])
}

func (s *BotServiceSuite) TestEventsByTopic_NoMatches() {
	s.source.events = []domain.AuditEvent{event(3, 11, "app.webhook.create", "u2")}

	resp := s.svc.ProcessMessage(s.ctx, "who changed the policies?", nil)

	s.True(resp.Success)
	s.Contains(resp.Message, "No policy events")
}

func (s *BotServiceSuite) TestUserActivity() {
	s.source.events = []domain.AuditEvent{
		event(3, 10, "org.policy.edit", "u1"),
		event(3, 11, "org.sso.edit", "u1"),
	}

	resp := s.svc.ProcessMessage(s.ctx, "What has Alice been doing?", nil)

	s.True(resp.Success)
	s.Contains(resp.Message, "Alice Moran: 2 actions in the last 7 days.")
}

func (s *BotServiceSuite) TestUserActivity_RosterFailureTurnsUnsuccessful() {
	s.users.rosterErr = fmt.Errorf("status 403: %w", sentinel.ErrForbidden)

	resp := s.svc.ProcessMessage(s.ctx, "What has Zelda been doing?", nil)

	s.False(resp.Success)
	s.Contains(resp.Message, "permission")
}

func (s *BotServiceSuite) TestSuspiciousActivity() {
	base := event(3, 3, "org.policy.edit", "sync-service")
	for i := 0; i < 6; i++ {
		s.source.events = append(s.source.events, base)
	}

	resp := s.svc.ProcessMessage(s.ctx, "any suspicious activity this week?", nil)

	s.True(resp.Success)
	s.Contains(resp.Message, "suspicious patterns")
	s.Contains(resp.Message, "service account")

	data := resp.Data.(map[string]any)
	s.Equal(6, data["events_scanned"])
}

func (s *BotServiceSuite) TestTimeDigest() {
	s.source.events = []domain.AuditEvent{
		event(3, 21, "org.sso.edit", "u1"),
		event(3, 23, "app.webhook.create", "u2"),
	}

	resp := s.svc.ProcessMessage(s.ctx, "what happened last night?", nil)

	s.True(resp.Success)
	s.True(s.source.lastFrom.Equal(time.Date(2026, 3, 3, 20, 0, 0, 0, time.UTC)))
	s.True(s.source.lastTo.Equal(time.Date(2026, 3, 4, 6, 0, 0, 0, time.UTC)))
	s.Contains(resp.Message, "Between Mar 3 20:00 and Mar 4 06:00: 2 events from 2 users.")
	s.Contains(resp.Message, "🔴 1 high-priority security event in this window.")
}

func (s *BotServiceSuite) TestTimeDigest_EmptyWindow() {
	resp := s.svc.ProcessMessage(s.ctx, "what happened last night?", nil)

	s.True(resp.Success)
	s.Contains(resp.Message, "All quiet")
}

// =============================================================================
// Conversation Context
// =============================================================================

func (s *BotServiceSuite) TestFollowUpInheritsUser() {
	s.source.events = []domain.AuditEvent{event(3, 10, "org.policy.edit", "u1")}
	conv := &domain.ConversationContext{PlatformUserID: "U9", ChannelID: "C1"}

	first := s.svc.ProcessMessage(s.ctx, "What has Alice been doing?", conv)
	s.Contains(first.Message, "Alice Moran")

	second := s.svc.ProcessMessage(s.ctx, "what did she do yesterday?", conv)
	s.Contains(second.Message, "Alice Moran", "pronoun resolves to the previous turn's user")
	s.True(s.source.lastFrom.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)), "yesterday window")
}

// =============================================================================
// Failures, Fallback & Clarification
// =============================================================================

func (s *BotServiceSuite) TestRemoteFailureBecomesGuidance() {
	s.source.err = fmt.Errorf("status 401: %w", sentinel.ErrUnauthorized)

	resp := s.svc.ProcessMessage(s.ctx, "show me security events", nil)

	s.False(resp.Success)
	s.Contains(resp.Message, "API token")
	s.NotEmpty(resp.Timestamp)
}

func (s *BotServiceSuite) TestPanicIsRecovered() {
	svc := s.newService(panicEvents{})

	resp := svc.ProcessMessage(s.ctx, "show me security events", nil)

	s.False(resp.Success)
	s.Contains(resp.Message, "Something went wrong")
}

func (s *BotServiceSuite) TestExplicitHelpIsNotFallback() {
	resp := s.svc.ProcessMessage(s.ctx, "help", nil)

	s.True(resp.Success)
	s.False(resp.Fallback)
	s.Contains(resp.Message, "you can ask")
}

func (s *BotServiceSuite) TestUnrecognizedMessageIsFallback() {
	resp := s.svc.ProcessMessage(s.ctx, "blorp zarg nix", nil)

	s.True(resp.Success)
	s.True(resp.Fallback)
	s.Contains(resp.Message, "not sure I understood")
}

func (s *BotServiceSuite) TestBlankMessageIsPlainHelp() {
	resp := s.svc.ProcessMessage(s.ctx, "   ", nil)

	s.True(resp.Success)
	s.False(resp.Fallback)
	s.Contains(resp.Message, "you can ask")
}

func (s *BotServiceSuite) TestLowConfidenceGuessIsMarkedForClarification() {
	// No pattern matches; a single keyword hit lands between the cutoffs.
	resp := s.svc.ProcessMessage(s.ctx, "anything odd today", nil)

	s.True(resp.Clarification)
}
