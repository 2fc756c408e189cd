// Package users resolves actor identifiers to display names through the
// remote user directory, with a bounded in-memory cache in front of it.
package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"auditchat/internal/platform/metrics"
	"auditchat/pkg/domain"
	"auditchat/pkg/requestcontext"
)

// Directory is the remote user-directory capability this service consumes.
type Directory interface {
	GetUser(ctx context.Context, id string) (domain.UserInfo, error)
	ListOrgUsers(ctx context.Context, orgID string) ([]domain.UserInfo, error)
}

const (
	defaultCacheSize = 512
	defaultCacheTTL  = time.Hour
)

type cacheEntry struct {
	info      domain.UserInfo
	fetchedAt time.Time
}

// Service looks up identities lazily and caches them. The cache is a bounded
// LRU with a TTL check on read: organization membership changes, so entries
// must not live forever. Safe for concurrent use.
type Service struct {
	dir     Directory
	orgID   string
	cache   *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.With("component", "users")
	}
}

// WithMetrics injects the shared metrics handle.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCache overrides cache capacity and entry TTL.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		if size > 0 {
			cache, _ := lru.New[string, cacheEntry](size)
			s.cache = cache
		}
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New constructs a user resolution service for one organization.
func New(dir Directory, orgID string, opts ...Option) (*Service, error) {
	if dir == nil {
		return nil, fmt.Errorf("user directory is required")
	}

	cache, _ := lru.New[string, cacheEntry](defaultCacheSize)
	s := &Service{
		dir:    dir,
		orgID:  orgID,
		cache:  cache,
		ttl:    defaultCacheTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Resolve returns the identity for an actor ID, consulting the cache first.
// Lookup failures degrade to a bare identity carrying only the ID so callers
// can always render something; failures are never fatal to a summary.
func (s *Service) Resolve(ctx context.Context, id string) domain.UserInfo {
	if id == "" {
		return domain.UserInfo{}
	}

	now := requestcontext.Now(ctx)
	if entry, ok := s.cache.Get(id); ok && now.Sub(entry.fetchedAt) < s.ttl {
		s.metrics.ObserveUserCache(true)
		return entry.info
	}
	s.metrics.ObserveUserCache(false)

	info, err := s.dir.GetUser(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "user lookup failed", "user_id", id, "error", err)
		return domain.UserInfo{ID: id}
	}

	s.cache.Add(id, cacheEntry{info: info, fetchedAt: now})
	return info
}

// DisplayName resolves an actor ID straight to its rendered label.
// Empty IDs render as "unknown".
func (s *Service) DisplayName(ctx context.Context, id string) string {
	if id == "" {
		return "unknown"
	}
	return s.Resolve(ctx, id).DisplayName()
}

// Roster fetches the full organization member list. Results are fed into the
// cache so subsequent Resolve calls for listed members stay local.
func (s *Service) Roster(ctx context.Context) ([]domain.UserInfo, error) {
	roster, err := s.dir.ListOrgUsers(ctx, s.orgID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	for _, info := range roster {
		if info.ID != "" {
			s.cache.Add(info.ID, cacheEntry{info: info, fetchedAt: now})
		}
	}
	return roster, nil
}

// FindByName resolves a free-text name against the roster. Match strategies,
// in order: exact name, exact username, email local part, first name. The
// bool result distinguishes "unknown user" from a roster failure.
func (s *Service) FindByName(ctx context.Context, name string) (domain.UserInfo, bool, error) {
	roster, err := s.Roster(ctx)
	if err != nil {
		return domain.UserInfo{}, false, err
	}

	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return domain.UserInfo{}, false, nil
	}

	match := func(candidate func(domain.UserInfo) string) (domain.UserInfo, bool) {
		for _, info := range roster {
			if strings.ToLower(candidate(info)) == needle {
				return info, true
			}
		}
		return domain.UserInfo{}, false
	}

	if info, ok := match(func(u domain.UserInfo) string { return u.Name }); ok {
		return info, true, nil
	}
	if info, ok := match(func(u domain.UserInfo) string { return u.Username }); ok {
		return info, true, nil
	}
	if info, ok := match(emailLocalPart); ok {
		return info, true, nil
	}
	if info, ok := match(firstName); ok {
		return info, true, nil
	}

	return domain.UserInfo{}, false, nil
}

func emailLocalPart(u domain.UserInfo) string {
	local, _, found := strings.Cut(u.Email, "@")
	if !found {
		return ""
	}
	return local
}

func firstName(u domain.UserInfo) string {
	first, _, _ := strings.Cut(u.Name, " ")
	return first
}
