package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"auditchat/pkg/domain"
	"auditchat/pkg/requestcontext"
)

// =============================================================================
// Users Service Test Suite
// =============================================================================
// Justification for unit tests: cache TTL behavior and the name-matching
// strategy ladder are invisible from the outside of a full query run and need
// direct exercise.

type UsersServiceSuite struct {
	suite.Suite
	dir     *fakeDirectory
	service *Service
}

func TestUsersServiceSuite(t *testing.T) {
	suite.Run(t, new(UsersServiceSuite))
}

func (s *UsersServiceSuite) SetupTest() {
	s.dir = &fakeDirectory{
		users: map[string]domain.UserInfo{
			"u1": {ID: "u1", Name: "Alice Moran", Username: "amoran", Email: "alice@example.com"},
			"u2": {ID: "u2", Name: "Bela Toth", Username: "btoth", Email: "bela.toth@example.com"},
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var err error
	s.service, err = New(s.dir, "org-1", WithLogger(logger))
	s.Require().NoError(err)
}

// =============================================================================
// Fake Directory
// =============================================================================

type fakeDirectory struct {
	users       map[string]domain.UserInfo
	getCalls    int
	listCalls   int
	getErr      error
	listErr     error
}

func (f *fakeDirectory) GetUser(_ context.Context, id string) (domain.UserInfo, error) {
	f.getCalls++
	if f.getErr != nil {
		return domain.UserInfo{}, f.getErr
	}
	info, ok := f.users[id]
	if !ok {
		return domain.UserInfo{}, errors.New("no such user")
	}
	return info, nil
}

func (f *fakeDirectory) ListOrgUsers(_ context.Context, _ string) ([]domain.UserInfo, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.UserInfo, 0, len(f.users))
	for _, info := range f.users {
		out = append(out, info)
	}
	return out, nil
}

// =============================================================================
// Resolve & Cache
// =============================================================================

func (s *UsersServiceSuite) TestResolveCachesLookups() {
	ctx := context.Background()

	first := s.service.Resolve(ctx, "u1")
	second := s.service.Resolve(ctx, "u1")

	s.Equal("Alice Moran (alice@example.com)", first.DisplayName())
	s.Equal(first, second)
	s.Equal(1, s.dir.getCalls, "second resolve must be served from cache")
}

func (s *UsersServiceSuite) TestResolveRefetchesAfterTTL() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), base)

	s.service.Resolve(ctx, "u1")
	s.Equal(1, s.dir.getCalls)

	stale := requestcontext.WithTime(context.Background(), base.Add(2*time.Hour))
	s.service.Resolve(stale, "u1")
	s.Equal(2, s.dir.getCalls, "expired entry must trigger a directory call")
}

func (s *UsersServiceSuite) TestResolveDegradesOnFailure() {
	s.dir.getErr = errors.New("directory down")

	info := s.service.Resolve(context.Background(), "u9")
	s.Equal("u9", info.ID)
	s.Equal("user u9", info.DisplayName())
}

func (s *UsersServiceSuite) TestDisplayNameUnknownActor() {
	s.Equal("unknown", s.service.DisplayName(context.Background(), ""))
}

// =============================================================================
// Roster & FindByName
// =============================================================================

func (s *UsersServiceSuite) TestRosterWarmsCache() {
	ctx := context.Background()

	_, err := s.service.Roster(ctx)
	s.Require().NoError(err)

	s.service.Resolve(ctx, "u2")
	s.Equal(0, s.dir.getCalls, "roster members must be resolvable without directory calls")
}

func (s *UsersServiceSuite) TestFindByNameStrategies() {
	ctx := context.Background()

	for _, needle := range []string{"Alice Moran", "amoran", "alice", "ALICE"} {
		info, found, err := s.service.FindByName(ctx, needle)
		s.Require().NoError(err)
		s.True(found, "needle %q", needle)
		s.Equal("u1", info.ID)
	}

	// Email local part with a dot.
	info, found, err := s.service.FindByName(ctx, "bela.toth")
	s.Require().NoError(err)
	s.True(found)
	s.Equal("u2", info.ID)
}

func (s *UsersServiceSuite) TestFindByNameUnknownUser() {
	_, found, err := s.service.FindByName(context.Background(), "nobody")
	s.Require().NoError(err)
	s.False(found)
}

func (s *UsersServiceSuite) TestFindByNameSurfacesRosterFailure() {
	s.dir.listErr = errors.New("forbidden")

	_, _, err := s.service.FindByName(context.Background(), "alice")
	s.Error(err)
}
