// Package auditapi talks to the remote audit-log search API and user
// directory. It owns wire-shape normalization, bounded retries and cursor
// pagination; everything it returns is already in domain form.
package auditapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"auditchat/pkg/domain"
)

// SearchParams are the query parameters of one audit-event search call.
type SearchParams struct {
	From       time.Time
	To         time.Time
	EventTypes []string
	UserIDs    []string
	Cursor     string
	Limit      int
}

// SearchPage is one page of raw audit records plus the link to the next page,
// if any.
type SearchPage struct {
	Items    []PageItem
	NextLink string
}

// SearchFunc is the remote search operation the pagination engine walks.
// Declared as a function type so tests can paginate against fakes without an
// HTTP server.
type SearchFunc func(ctx context.Context, resourceID string, params SearchParams) (*SearchPage, error)

// ItemFields are the audit-record fields the core consumes. The remote API
// serves them either wrapped in an "attributes" envelope or flat on the item;
// both shapes normalize to the same domain.AuditEvent.
type ItemFields struct {
	CreatedAt Timestamp      `json:"created_at"`
	Event     string         `json:"event"`
	ActorID   string         `json:"actor_id"`
	Content   map[string]any `json:"content"`
}

// PageItem is one raw item from a search page, accepting both wire shapes.
type PageItem struct {
	ID         string      `json:"id"`
	Attributes *ItemFields `json:"attributes"`
	ItemFields
}

// Normalize maps a raw item to the canonical event record. The enveloped
// shape wins when both are present.
func (p PageItem) Normalize() domain.AuditEvent {
	fields := p.ItemFields
	if p.Attributes != nil {
		fields = *p.Attributes
	}
	return domain.AuditEvent{
		CreatedAt: fields.CreatedAt.Time,
		EventType: fields.Event,
		UserID:    fields.ActorID,
		Content:   fields.Content,
	}
}

// Timestamp unmarshals either an RFC3339 string or a unix-seconds number;
// the remote API has served both over its lifetime.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	secs, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("parse timestamp %s: %w", b, err)
	}
	t.Time = time.Unix(int64(secs), 0).UTC()
	return nil
}

// UserAttributes is the wire shape of a directory identity, again accepting
// enveloped and flat forms.
type UserAttributes struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type userItem struct {
	ID         string          `json:"id"`
	Attributes *UserAttributes `json:"attributes"`
	UserAttributes
}

func (u userItem) normalize() domain.UserInfo {
	fields := u.UserAttributes
	if u.Attributes != nil {
		fields = *u.Attributes
	}
	return domain.UserInfo{
		ID:       u.ID,
		Name:     fields.Name,
		Username: fields.Username,
		Email:    fields.Email,
	}
}
