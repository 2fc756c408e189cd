package auditapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(next string, items ...PageItem) *SearchPage {
	return &SearchPage{Items: items, NextLink: next}
}

func item(event, actor string) PageItem {
	return PageItem{
		ItemFields: ItemFields{
			CreatedAt: Timestamp{Time: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
			Event:     event,
			ActorID:   actor,
		},
	}
}

func TestFetchAll_WalksCursorChain(t *testing.T) {
	calls := 0
	var cursors []string

	search := func(_ context.Context, resourceID string, params SearchParams) (*SearchPage, error) {
		calls++
		cursors = append(cursors, params.Cursor)
		require.Equal(t, "org-1", resourceID)

		switch calls {
		case 1:
			return page("https://api.example.com/v2/audit_events?starting_after=c1", item("org.policy.edit", "u1")), nil
		case 2:
			return page("https://api.example.com/v2/audit_events?starting_after=c2", item("org.policy.edit", "u2")), nil
		case 3:
			return page("https://api.example.com/v2/audit_events?starting_after=c3", item("org.sso.edit", "u3")), nil
		default:
			return page("", item("admin.role.edit", "u4")), nil
		}
	}

	events, err := FetchAll(context.Background(), search, "org-1", SearchParams{})
	require.NoError(t, err)

	// Three pages with a cursor chain plus the terminal page: four calls.
	assert.Equal(t, 4, calls)
	assert.Equal(t, []string{"", "c1", "c2", "c3"}, cursors)
	require.Len(t, events, 4)
	assert.Equal(t, "org.policy.edit", events[0].EventType)
	assert.Equal(t, "u4", events[3].UserID)
}

func TestFetchAll_SafetyCap(t *testing.T) {
	calls := 0
	search := func(_ context.Context, _ string, _ SearchParams) (*SearchPage, error) {
		calls++
		return page(fmt.Sprintf("https://api.example.com?starting_after=c%d", calls), item("org.policy.edit", "u1")), nil
	}

	events, err := FetchAll(context.Background(), search, "org-1", SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, 100, calls, "always-truthy next link must stop at the page cap")
	assert.Len(t, events, 100)
}

func TestFetchAll_FailsWholeCall(t *testing.T) {
	calls := 0
	search := func(_ context.Context, _ string, _ SearchParams) (*SearchPage, error) {
		calls++
		if calls == 3 {
			return nil, errors.New("boom")
		}
		return page("https://api.example.com?starting_after=next", item("org.policy.edit", "u1")), nil
	}

	events, err := FetchAll(context.Background(), search, "org-1", SearchParams{})
	require.Error(t, err)
	assert.Nil(t, events, "a mid-pagination failure must not surface partial results")
}

func TestFetchAll_CursorlessNextLinkEndsWalk(t *testing.T) {
	calls := 0
	search := func(_ context.Context, _ string, _ SearchParams) (*SearchPage, error) {
		calls++
		return page("https://api.example.com/audit_events", item("org.policy.edit", "u1")), nil
	}

	events, err := FetchAll(context.Background(), search, "org-1", SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, events, 1)
}

func TestPageItem_NormalizesBothShapes(t *testing.T) {
	enveloped := []byte(`{
		"id": "evt_1",
		"attributes": {
			"created_at": "2026-03-01T09:30:00Z",
			"event": "org.policy.edit",
			"actor_id": "u1",
			"content": {"before": {"enabled": true}, "after": {"enabled": false}}
		}
	}`)
	flat := []byte(`{
		"id": "evt_2",
		"created_at": 1772357400,
		"event": "org.policy.edit",
		"actor_id": "u1"
	}`)

	var a, b PageItem
	require.NoError(t, json.Unmarshal(enveloped, &a))
	require.NoError(t, json.Unmarshal(flat, &b))

	ea, eb := a.Normalize(), b.Normalize()
	assert.Equal(t, "org.policy.edit", ea.EventType)
	assert.Equal(t, "org.policy.edit", eb.EventType)
	assert.Equal(t, "u1", ea.UserID)
	assert.Equal(t, "u1", eb.UserID)
	assert.Equal(t, 2026, ea.CreatedAt.Year())
	assert.False(t, eb.CreatedAt.IsZero())
	assert.NotNil(t, ea.ContentMap("before"))
}
