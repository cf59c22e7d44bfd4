package rules

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/HamedShams/groona-pulse/internal/domain"
	"github.com/HamedShams/groona-pulse/internal/metrics"
)

// fakeStore backs the rule-job tests with in-memory slices. It implements
// the rules, recipients, and alerts store surfaces so one instance can feed
// the whole wired engine.
type fakeStore struct {
	tenants       []domain.Tenant
	users         []domain.User
	projects      map[int64]domain.Project
	projectRoles  map[int64][]domain.User
	tasks         []domain.Task
	sprints       []domain.Sprint
	stories       []domain.Story
	timesheets    []domain.Timesheet
	notifications []domain.Notification
	summaries     map[int64]string
	nextID        int64
}

func pts(v float64) *float64 { return &v }

func newFakeStore() *fakeStore {
	return &fakeStore{projects: map[int64]domain.Project{}, projectRoles: map[int64][]domain.User{}, summaries: map[int64]string{}}
}

func (f *fakeStore) ListTrialTenants(context.Context) ([]domain.Tenant, error) {
	var out []domain.Tenant
	for _, t := range f.tenants {
		if t.Status == "trial" { out = append(out, t) }
	}
	return out, nil
}

func (f *fakeStore) ListActiveUsers(context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.users {
		if u.Status == "active" { out = append(out, u) }
	}
	return out, nil
}

func (f *fakeStore) UserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) { u := u; return &u, nil }
	}
	return nil, nil
}

func (f *fakeStore) UserByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range f.users {
		if u.ID == id { u := u; return &u, nil }
	}
	return nil, nil
}

func (f *fakeStore) TenantAdmins(_ context.Context, tenantID int64) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.users {
		if u.TenantID == tenantID && u.Role == "admin" && u.Status == "active" { out = append(out, u) }
	}
	return out, nil
}

func (f *fakeStore) ProjectRoleUsers(_ context.Context, projectID int64, _ []string) ([]domain.User, error) {
	return f.projectRoles[projectID], nil
}

func (f *fakeStore) ProjectByID(_ context.Context, id int64) (*domain.Project, error) {
	if p, ok := f.projects[id]; ok { return &p, nil }
	return nil, nil
}

func (f *fakeStore) ListOpenDueTasks(context.Context) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range f.tasks {
		if t.DueAt != nil && !metrics.IsTerminal(t.Status) { out = append(out, t) }
	}
	return out, nil
}

func (f *fakeStore) TaskByID(_ context.Context, id int64) (*domain.Task, error) {
	for _, t := range f.tasks {
		if t.ID == id { t := t; return &t, nil }
	}
	return nil, nil
}

func (f *fakeStore) ListTasksBySprint(_ context.Context, sprintID int64) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range f.tasks {
		if t.SprintID != nil && *t.SprintID == sprintID { out = append(out, t) }
	}
	return out, nil
}

func (f *fakeStore) ListTasksByStories(_ context.Context, storyIDs []int64) ([]domain.Task, error) {
	ids := map[int64]struct{}{}
	for _, id := range storyIDs { ids[id] = struct{}{} }
	var out []domain.Task
	for _, t := range f.tasks {
		if t.StoryID == nil { continue }
		if _, ok := ids[*t.StoryID]; ok { out = append(out, t) }
	}
	return out, nil
}

func (f *fakeStore) ListTasksDueBetween(_ context.Context, from, to time.Time) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range f.tasks {
		if t.DueAt == nil || t.DueAt.Before(from) || !t.DueAt.Before(to) { continue }
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) ListActiveSprints(context.Context) ([]domain.Sprint, error) {
	var out []domain.Sprint
	for _, s := range f.sprints {
		if s.Status == "active" { out = append(out, s) }
	}
	return out, nil
}

func (f *fakeStore) ListStoriesBySprint(_ context.Context, sprintID int64) ([]domain.Story, error) {
	var out []domain.Story
	for _, s := range f.stories {
		if s.SprintID != nil && *s.SprintID == sprintID { out = append(out, s) }
	}
	return out, nil
}

func (f *fakeStore) ListAssignedStories(context.Context) ([]domain.Story, error) {
	var out []domain.Story
	for _, s := range f.stories {
		if len(s.Assignees) > 0 { out = append(out, s) }
	}
	return out, nil
}

func (f *fakeStore) TimesheetsSince(_ context.Context, since time.Time) ([]domain.Timesheet, error) {
	var out []domain.Timesheet
	for _, ts := range f.timesheets {
		if !ts.WorkDate.Before(since) { out = append(out, ts) }
	}
	return out, nil
}

func (f *fakeStore) TimesheetsByStatusBefore(_ context.Context, status string, before time.Time) ([]domain.Timesheet, error) {
	var out []domain.Timesheet
	for _, ts := range f.timesheets {
		if ts.Status == status && ts.CreatedAt.Before(before) { out = append(out, ts) }
	}
	return out, nil
}

func (f *fakeStore) TimesheetsByStatus(_ context.Context, status string) ([]domain.Timesheet, error) {
	var out []domain.Timesheet
	for _, ts := range f.timesheets {
		if ts.Status == status { out = append(out, ts) }
	}
	return out, nil
}

func (f *fakeStore) SuspendTenant(_ context.Context, id int64) error {
	for i := range f.tenants {
		if f.tenants[i].ID == id {
			f.tenants[i].Status = "suspended"
			f.tenants[i].SubscriptionStatus = "past_due"
		}
	}
	return nil
}

func (f *fakeStore) UpsertSubscriptionSummary(_ context.Context, tenantID int64, status string) error {
	f.summaries[tenantID] = status
	return nil
}

func (f *fakeStore) UpsertOpenNotification(_ context.Context, n domain.Notification) (bool, error) {
	for i := range f.notifications {
		r := &f.notifications[i]
		if r.Status == domain.NotificationOpen && r.Recipient == n.Recipient && r.Tag == n.Tag && r.SubjectID == n.SubjectID {
			r.Title, r.Message, r.Read = n.Title, n.Message, false
			r.CreatedAt, r.UpdatedAt = n.CreatedAt, n.UpdatedAt
			return false, nil
		}
	}
	f.nextID++
	n.ID = f.nextID
	f.notifications = append(f.notifications, n)
	return true, nil
}

func (f *fakeStore) InsertNotification(_ context.Context, n domain.Notification) error {
	// enforce the partial unique index notifications_open_dedup
	if n.Status == domain.NotificationOpen && n.Tag.Meta().OpenDedup {
		for _, r := range f.notifications {
			if r.Status == domain.NotificationOpen && r.Recipient == n.Recipient && r.Tag == n.Tag && r.SubjectID == n.SubjectID {
				return errors.New("duplicate key value violates unique constraint \"notifications_open_dedup\" (SQLSTATE 23505)")
			}
		}
	}
	f.nextID++
	n.ID = f.nextID
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeStore) CountNotificationsSince(_ context.Context, recipient string, tags []domain.RuleTag, since time.Time) (int, error) {
	count := 0
	for _, r := range f.notifications {
		if r.Recipient != recipient || r.CreatedAt.Before(since) { continue }
		for _, tag := range tags {
			if r.Tag == tag { count++; break }
		}
	}
	return count, nil
}

func (f *fakeStore) OpenNotifications(_ context.Context, recipient string, tag domain.RuleTag, subjectID int64) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, r := range f.notifications {
		if r.Status == domain.NotificationOpen && r.Recipient == recipient && r.Tag == tag && r.SubjectID == subjectID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) OpenNotificationsByTag(_ context.Context, tag domain.RuleTag) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, r := range f.notifications {
		if r.Status == domain.NotificationOpen && r.Tag == tag { out = append(out, r) }
	}
	return out, nil
}

func (f *fakeStore) ResolveNotification(_ context.Context, id int64) error {
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].Status = domain.NotificationResolved
			return nil
		}
	}
	return nil
}

func (f *fakeStore) NotificationCountsSince(_ context.Context, since time.Time) (map[int64]map[domain.RuleTag]int, error) {
	out := map[int64]map[domain.RuleTag]int{}
	for _, r := range f.notifications {
		if r.CreatedAt.Before(since) { continue }
		if out[r.TenantID] == nil { out[r.TenantID] = map[domain.RuleTag]int{} }
		out[r.TenantID][r.Tag]++
	}
	return out, nil
}

// openFor filters OPEN notifications by recipient and tag.
func (f *fakeStore) openFor(recipient string, tag domain.RuleTag) []domain.Notification {
	var out []domain.Notification
	for _, r := range f.notifications {
		if r.Status == domain.NotificationOpen && r.Recipient == recipient && r.Tag == tag {
			out = append(out, r)
		}
	}
	return out
}
