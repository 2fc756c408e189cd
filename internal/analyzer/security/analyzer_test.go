package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditchat/internal/eventtypes"
	"auditchat/pkg/domain"
)

type staticResolver map[string]string

func (r staticResolver) DisplayName(_ context.Context, id string) string {
	if name, ok := r[id]; ok {
		return name
	}
	return "user " + id
}

func event(eventType, actor string, hour int) domain.AuditEvent {
	return domain.AuditEvent{
		CreatedAt: time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC),
		EventType: eventType,
		UserID:    actor,
	}
}

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := New(eventtypes.Default())
	require.NoError(t, err)
	return a
}

func TestCategorize_Partitions(t *testing.T) {
	a := newAnalyzer(t)
	events := []domain.AuditEvent{
		event("org.sso.edit", "u1", 10),          // high
		event("org.policy.edit", "u2", 11),       // medium
		event("conversation.note.create", "u3", 12), // low (unlisted)
	}

	cat := a.Categorize(events)
	assert.Len(t, cat.HighPriority, 1)
	assert.Len(t, cat.MediumPriority, 1)
	assert.Len(t, cat.LowPriority, 1)
	assert.Len(t, cat.All, 3)
}

func TestCategorize_Idempotent(t *testing.T) {
	a := newAnalyzer(t)
	events := []domain.AuditEvent{
		event("org.sso.edit", "u1", 10),
		event("org.policy.edit", "u2", 11),
		event("x.y.z", "u3", 12),
	}

	first := a.Categorize(events)
	second := a.Categorize(events)
	assert.Equal(t, first, second, "categorization must be a pure function")
}

func TestSummarize_Empty(t *testing.T) {
	a := newAnalyzer(t)
	msg := a.Summarize(context.Background(), a.Categorize(nil), 7, nil)
	assert.Contains(t, msg, "No security events")
	assert.Contains(t, msg, "7 days")
}

func TestSummarize_TiersAndCap(t *testing.T) {
	a := newAnalyzer(t)

	var events []domain.AuditEvent
	for i := 0; i < 8; i++ {
		events = append(events, event("org.sso.edit", "u1", 9))
	}
	events = append(events, event("org.policy.edit", "u2", 10))

	cat := a.Categorize(events)
	msg := a.Summarize(context.Background(), cat, 7, staticResolver{"u1": "Alice", "u2": "Bela"})

	assert.Contains(t, msg, "🔴 High priority (8):")
	assert.Contains(t, msg, "🟠 Medium priority (1):")
	assert.NotContains(t, msg, "🟢", "no low tier header without low events")
	assert.Contains(t, msg, "…and 3 more", "high tier must cap at 5 shown events")
	assert.Contains(t, msg, "by Alice")
	assert.Contains(t, msg, "by Bela")
}

func TestSummarize_SettingsDiffBranch(t *testing.T) {
	a := newAnalyzer(t)

	e := event("org.settings.security.edit", "u1", 9)
	e.Content = map[string]any{
		"before": map[string]any{"two_factor": false, "session_timeout": float64(30)},
		"after":  map[string]any{"two_factor": true, "session_timeout": float64(15)},
	}

	msg := a.Summarize(context.Background(), a.Categorize([]domain.AuditEvent{e}), 1, staticResolver{})
	assert.Contains(t, msg, "two_factor enabled")
	assert.Contains(t, msg, "session_timeout: 30 → 15")
}

func TestDescribeSettingsChange_Disabled(t *testing.T) {
	e := event("org.settings.security.edit", "u1", 9)
	e.Content = map[string]any{
		"before": map[string]any{"sso_required": true},
		"after":  map[string]any{"sso_required": false},
	}
	assert.Equal(t, "sso_required disabled", describeSettingsChange(e))
}
