package auditapi

import (
	"context"
	"fmt"
	"net/url"

	"auditchat/pkg/domain"
)

// maxPages caps a single pagination walk. A misbehaving or always-truthy
// next link must never turn into an unbounded crawl.
const maxPages = 100

// cursorParam is the querystring parameter carrying the continuation token
// in next-page links.
const cursorParam = "starting_after"

// FetchAll walks a cursor-paginated search into a flat normalized event list.
//
// It calls search repeatedly, appending each page's normalized items, and
// stops when a page carries no next link, when the next link carries no
// cursor token, or after maxPages calls.
//
// Failure policy: fail the whole call. If any page fetch fails, FetchAll
// returns (nil, err) and discards everything accumulated so far — callers
// never see partial windows presented as complete ones.
func FetchAll(ctx context.Context, search SearchFunc, resourceID string, params SearchParams) ([]domain.AuditEvent, error) {
	var events []domain.AuditEvent

	cursor := params.Cursor
	for page := 0; page < maxPages; page++ {
		pageParams := params
		pageParams.Cursor = cursor

		result, err := search(ctx, resourceID, pageParams)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page+1, err)
		}

		for _, item := range result.Items {
			events = append(events, item.Normalize())
		}

		if result.NextLink == "" {
			return events, nil
		}
		cursor = nextCursor(result.NextLink)
		if cursor == "" {
			return events, nil
		}
	}

	return events, nil
}

// nextCursor extracts the continuation token from a next-page link.
// Unparseable links end the walk rather than failing it: the accumulated
// events are still a valid (if truncated) answer to the query.
func nextCursor(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return parsed.Query().Get(cursorParam)
}
