package rules

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/HamedShams/groona-pulse/internal/domain"
)

func TestRunPendingTimesheets_GroupsAndOncePerDay(t *testing.T) {
	start := time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)
	f := newFakeStore()
	old := start.AddDate(0, 0, -10)
	fresh := start.AddDate(0, 0, -2)
	f.timesheets = []domain.Timesheet{
		{TenantID: 1, UserEmail: "dana@example.com", WorkDate: old, Status: "pending", CreatedAt: old},
		{TenantID: 1, UserEmail: "dana@example.com", WorkDate: old.AddDate(0, 0, 1), Status: "pending", CreatedAt: old.AddDate(0, 0, 1)},
		{TenantID: 1, UserEmail: "kim@example.com", WorkDate: fresh, Status: "pending", CreatedAt: fresh},
	}

	e, now := testEngine(f, start)
	st, err := e.RunPendingTimesheets(context.Background())
	if err != nil { t.Fatalf("run failed: %v", err) }
	if st.Created != 1 { t.Fatalf("expected one grouped alert, got %+v", st) }

	open := f.openFor("dana@example.com", domain.TagPendingTimesheet)
	if len(open) != 1 {
		t.Fatalf("expected one alert for dana, got %#v", open)
	}
	if !strings.Contains(open[0].Message, "2 timesheet entries") || !strings.Contains(open[0].Message, old.Format("2006-01-02")) {
		t.Fatalf("message should carry count and oldest date: %q", open[0].Message)
	}
	if got := f.openFor("kim@example.com", domain.TagPendingTimesheet); len(got) != 0 {
		t.Fatalf("entries inside the grace period must not alert, got %#v", got)
	}

	// same day: suppressed; next day: alerted again
	*now = start.Add(2 * time.Hour)
	if st, _ := e.RunPendingTimesheets(context.Background()); st.Created != 0 || st.Suppressed != 1 {
		t.Fatalf("second run the same day must suppress: %+v", st)
	}
	*now = start.AddDate(0, 0, 1)
	if st, _ := e.RunPendingTimesheets(context.Background()); st.Created != 1 {
		t.Fatalf("next day must alert again: %+v", st)
	}
}

func TestRunOverallocation_Threshold(t *testing.T) {
	now := time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.users = []domain.User{
		{ID: 1, TenantID: 1, Email: "busy@example.com", Status: "active"},
		{ID: 2, TenantID: 1, Email: "fine@example.com", Status: "active"},
	}
	// 25 points at 2h/point is 125% of a 40h week; 20 points is exactly 100%
	f.stories = []domain.Story{
		{ID: 1, TenantID: 1, Points: pts(25), Assignees: []string{"busy@example.com"}},
		{ID: 2, TenantID: 1, Points: pts(20), Assignees: []string{"fine@example.com"}},
	}

	e, _ := testEngine(f, now)
	st, err := e.RunOverallocation(context.Background())
	if err != nil { t.Fatalf("run failed: %v", err) }
	if st.Created != 1 { t.Fatalf("expected one alert, got %+v", st) }
	if got := f.openFor("busy@example.com", domain.TagOverallocation); len(got) != 1 || got[0].SubjectID != 1 {
		t.Fatalf("expected structured-key alert for the overloaded user, got %#v", got)
	}
	if got := f.openFor("fine@example.com", domain.TagOverallocation); len(got) != 0 {
		t.Fatalf("at-capacity user must not alert, got %#v", got)
	}
}

func TestRunApprovalBacklog_GroupsAcrossProjects(t *testing.T) {
	start := time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.projects[10] = domain.Project{ID: 10, TenantID: 1}
	f.projects[20] = domain.Project{ID: 20, TenantID: 1}
	f.projects[30] = domain.Project{ID: 30, TenantID: 1}
	pm := domain.User{ID: 5, TenantID: 1, Email: "pm@example.com", Status: "active"}
	other := domain.User{ID: 6, TenantID: 1, Email: "lead@example.com", Status: "active"}
	f.projectRoles[10] = []domain.User{pm}
	f.projectRoles[20] = []domain.User{pm}
	f.projectRoles[30] = []domain.User{other}
	f.timesheets = []domain.Timesheet{
		{TenantID: 1, UserEmail: "a@example.com", ProjectID: 10, Status: "pending_pm"},
		{TenantID: 1, UserEmail: "b@example.com", ProjectID: 10, Status: "pending_pm"},
		{TenantID: 1, UserEmail: "c@example.com", ProjectID: 20, Status: "pending_pm"},
		{TenantID: 1, UserEmail: "d@example.com", ProjectID: 30, Status: "pending_pm"},
		{TenantID: 1, UserEmail: "e@example.com", ProjectID: 10, Status: "approved"},
	}

	e, now := testEngine(f, start)
	st, err := e.RunApprovalBacklog(context.Background())
	if err != nil { t.Fatalf("run failed: %v", err) }
	if st.Scanned != 2 || st.Created != 2 {
		t.Fatalf("expected one scanned+created entry per PM, got %+v", st)
	}

	open := f.openFor("pm@example.com", domain.TagApprovalBacklog)
	if len(open) != 1 {
		t.Fatalf("expected one grouped alert for the PM, got %#v", open)
	}
	if !strings.Contains(open[0].Message, "3 timesheet entries") {
		t.Fatalf("backlog must aggregate across the PM's projects: %q", open[0].Message)
	}
	if got := f.openFor("lead@example.com", domain.TagApprovalBacklog); len(got) != 1 || !strings.Contains(got[0].Message, "1 timesheet") {
		t.Fatalf("expected the other PM's own count, got %#v", got)
	}

	// same day: suppressed; next day: fresh alert
	*now = start.Add(3 * time.Hour)
	if st, _ := e.RunApprovalBacklog(context.Background()); st.Created != 0 || st.Suppressed != 2 {
		t.Fatalf("second run the same day must suppress: %+v", st)
	}
	*now = start.AddDate(0, 0, 1)
	if st, err := e.RunApprovalBacklog(context.Background()); err != nil || st.Created != 2 {
		t.Fatalf("next day must alert again: %+v err=%v", st, err)
	}
}

func TestRunContextSwitch_RepeatThreshold(t *testing.T) {
	now := time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.users = []domain.User{{ID: 1, TenantID: 1, Email: "dana@example.com", Status: "active"}}
	day := func(offset int) time.Time { return time.Date(2026, 8, 20+offset, 0, 0, 0, 0, time.UTC) }
	for p := int64(1); p <= 6; p++ {
		f.timesheets = append(f.timesheets,
			domain.Timesheet{TenantID: 1, UserEmail: "dana@example.com", ProjectID: p, WorkDate: day(0), Minutes: 30},
			domain.Timesheet{TenantID: 1, UserEmail: "dana@example.com", ProjectID: p, WorkDate: day(-3), Minutes: 30},
		)
	}

	e, _ := testEngine(f, now)
	st, err := e.RunContextSwitch(context.Background())
	if err != nil { t.Fatalf("run failed: %v", err) }
	if st.Created != 1 { t.Fatalf("expected one alert for 2 high-switch days, got %+v", st) }

	// one high-switch day is below the repeat threshold
	f2 := newFakeStore()
	f2.users = f.users
	for p := int64(1); p <= 6; p++ {
		f2.timesheets = append(f2.timesheets,
			domain.Timesheet{TenantID: 1, UserEmail: "dana@example.com", ProjectID: p, WorkDate: day(0), Minutes: 30})
	}
	e2, _ := testEngine(f2, now)
	if st, _ := e2.RunContextSwitch(context.Background()); st.Created != 0 {
		t.Fatalf("one high-switch day must not alert: %+v", st)
	}
}
