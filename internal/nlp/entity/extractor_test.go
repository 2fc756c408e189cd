package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"auditchat/pkg/domain"
)

func TestExtract_UserID(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"What has Alice been doing?", "Alice"},
		{"show me bob's activity", "bob"},
		{"activity by carol", "carol"},
		{"actions from dave.jones", "dave.jones"},
		{"@erin changed something", "erin"},
		{"what did frank do yesterday", "frank"},
		{"user grace made changes", "grace"},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.text).UserID)
		})
	}
}

func TestExtract_UserIDStopwords(t *testing.T) {
	e := New()
	// "user activity" is a topic, not a user named "activity".
	assert.Empty(t, e.Extract("show me user activity").UserID)
	// Pronouns are resolved from conversation context, not extracted.
	assert.Empty(t, e.Extract("what did she do yesterday").UserID)
}

func TestExtract_TimePeriod(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"last 3 weeks", "3 weeks"},
		{"past 24 hours", "24 hours"},
		{"2 days ago", "2 days"},
		{"last week", "last week"},
		{"this month", "this month"},
		{"what happened yesterday", "yesterday"},
		{"today's events", "today"},
		{"recently", "recent"},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.text).TimePeriod)
		})
	}
}

func TestExtract_TimeRange(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"what happened last night", "last night"},
		{"events over the weekend", "over the weekend"},
		{"anything after hours?", "after hours"},
		{"between 2pm and 6pm", "between 2pm and 6pm"},
		{"from monday to wednesday", "from monday to wednesday"},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.text).TimeRange)
		})
	}
}

func TestExtract_EventType(t *testing.T) {
	e := New()

	assert.Equal(t, "policy", e.Extract("policy changes yesterday").EventType)
	assert.Equal(t, "integration", e.Extract("who modified the integrations").EventType)
	assert.Equal(t, "role", e.Extract("edited roles last week").EventType)
}

func TestExtract_CountLimit(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"top 5 results", 5},
		{"first 10", 10},
		{"3 most active users", 3},
		{"limit 20", 20},
		{"show 7 results", 7},
		// "last 3 weeks" is a time period, not a count limit.
		{"last 3 weeks", 0},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.text).CountLimit)
		})
	}
}

func TestExtract_CompoundDates(t *testing.T) {
	e := New()

	assert.Equal(t, "since last friday", e.Extract("changes since last friday").TimeRange)
	assert.Equal(t, "Q3", e.Extract("what happened in Q3").TimeRange)
	assert.Equal(t, "second half of march", e.Extract("events in the second half of march").TimeRange)
	assert.Equal(t, "recent", e.Extract("the past few days have been busy").TimePeriod)

	// The compound pass never overrides a primary-pass window.
	got := e.Extract("last 2 weeks since last friday")
	assert.Equal(t, "2 weeks", got.TimePeriod)
	assert.Empty(t, got.TimeRange)
}

func TestExtract_AbsentKindsStayZero(t *testing.T) {
	e := New()
	got := e.Extract("hello there")
	assert.Equal(t, domain.Entities{}, got)
	assert.True(t, got.IsEmpty())
}
