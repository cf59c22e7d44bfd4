package recipients

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/HamedShams/groona-pulse/internal/domain"
)

type fakeStore struct {
	roleUsers map[int64][]domain.User
	byEmail   map[string]domain.User
	byID      map[int64]domain.User
	admins    map[int64][]domain.User
	roleErr   error
}

func (f *fakeStore) ProjectRoleUsers(_ context.Context, projectID int64, _ []string) ([]domain.User, error) {
	if f.roleErr != nil { return nil, f.roleErr }
	return f.roleUsers[projectID], nil
}

func (f *fakeStore) UserByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := f.byEmail[strings.ToLower(email)]; ok { return &u, nil }
	return nil, nil
}

func (f *fakeStore) UserByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := f.byID[id]; ok { return &u, nil }
	return nil, nil
}

func (f *fakeStore) TenantAdmins(_ context.Context, tenantID int64) ([]domain.User, error) {
	return f.admins[tenantID], nil
}

func newTestResolver(f *fakeStore) *Resolver { return New(f, zerolog.Nop()) }

func TestManagers_ExplicitRoleWins(t *testing.T) {
	f := &fakeStore{
		roleUsers: map[int64][]domain.User{7: {{ID: 1, Email: "pm@example.com"}}},
	}
	project := domain.Project{
		ID:          7,
		Owner:       "owner@example.com",
		TeamMembers: []domain.TeamMember{{Email: "member@example.com", Role: "project_manager"}},
	}
	got := newTestResolver(f).Managers(context.Background(), project)
	if len(got) != 1 || got[0].Email != "pm@example.com" {
		t.Fatalf("expected explicit PM, got %#v", got)
	}
}

func TestManagers_TeamMembershipBeforeOwner(t *testing.T) {
	f := &fakeStore{
		byEmail: map[string]domain.User{"member@example.com": {ID: 2, Email: "member@example.com"}},
	}
	project := domain.Project{
		ID:    7,
		Owner: "owner@example.com",
		TeamMembers: []domain.TeamMember{
			{Email: "member@example.com", Role: "Project_Manager"},
			{Email: "dev@example.com", Role: "viewer"},
		},
	}
	got := newTestResolver(f).Managers(context.Background(), project)
	if len(got) != 1 || got[0].Email != "member@example.com" {
		t.Fatalf("expected team-membership PM before owner, got %#v", got)
	}
}

func TestManagers_OwnerFallback(t *testing.T) {
	f := &fakeStore{}
	project := domain.Project{ID: 7, Owner: "Owner@Example.COM"}
	got := newTestResolver(f).Managers(context.Background(), project)
	if len(got) != 1 || got[0].Email != "owner@example.com" {
		t.Fatalf("expected owner placeholder with normalized email, got %#v", got)
	}
}

func TestManagers_OwnerByUserID(t *testing.T) {
	f := &fakeStore{byID: map[int64]domain.User{42: {ID: 42, Email: "boss@example.com"}}}
	project := domain.Project{ID: 7, Owner: "42"}
	got := newTestResolver(f).Managers(context.Background(), project)
	if len(got) != 1 || got[0].Email != "boss@example.com" {
		t.Fatalf("expected owner resolved by id, got %#v", got)
	}
}

func TestManagers_EmptyWhenNothingResolves(t *testing.T) {
	f := &fakeStore{roleErr: errors.New("store down")}
	got := newTestResolver(f).Managers(context.Background(), domain.Project{ID: 7})
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %#v", got)
	}
}

func TestManagers_DedupesByEmail(t *testing.T) {
	f := &fakeStore{
		roleUsers: map[int64][]domain.User{7: {
			{ID: 1, Email: "PM@example.com"},
			{ID: 1, Email: "pm@example.com"},
			{ID: 3, Email: ""},
		}},
	}
	got := newTestResolver(f).Managers(context.Background(), domain.Project{ID: 7})
	if len(got) != 1 || got[0].Email != "pm@example.com" {
		t.Fatalf("expected one deduplicated recipient, got %#v", got)
	}
}

func TestTenantAdmins(t *testing.T) {
	f := &fakeStore{admins: map[int64][]domain.User{5: {{ID: 9, Email: "admin@example.com"}}}}
	got := newTestResolver(f).TenantAdmins(context.Background(), 5)
	if len(got) != 1 || got[0].Email != "admin@example.com" {
		t.Fatalf("expected tenant admin, got %#v", got)
	}
	if got := newTestResolver(&fakeStore{}).TenantAdmins(context.Background(), 5); len(got) != 0 {
		t.Fatalf("expected empty admin set, got %#v", got)
	}
}
