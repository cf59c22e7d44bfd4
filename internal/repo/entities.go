package repo

import (
	"context"
	"strings"
	"time"

	"github.com/HamedShams/groona-pulse/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Read paths over the entities owned by the CRUD layer. The engine never
// mutates task/sprint/story/user business fields; the single exception is
// the tenant trial-expiry transition at the bottom of this file.

func (r *Repository) ListTrialTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, COALESCE(name,''), COALESCE(status,''), COALESCE(subscription_status,''), trial_ends_at
		FROM tenants WHERE status='trial'`)
	if err != nil { return nil, err }
	defer rows.Close()
	var out []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.SubscriptionStatus, &t.TrialEndsAt); err != nil { return nil, err }
		out = append(out, t)
	}
	return out, nil
}

const userCols = `id, tenant_id, lower(COALESCE(email,'')), COALESCE(role,''), COALESCE(custom_role,''), COALESCE(status,''),
	COALESCE(working_hours_per_day, 8), COALESCE(week_off,'')`

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	defer rows.Close()
	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.Role, &u.CustomRole, &u.Status, &u.WorkingHoursPerDay, &u.WeekOff); err != nil { return nil, err }
		out = append(out, u)
	}
	return out, nil
}

func (r *Repository) ListActiveUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+userCols+` FROM users WHERE status='active'`)
	if err != nil { return nil, err }
	return scanUsers(rows)
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+userCols+` FROM users WHERE lower(email)=lower($1) LIMIT 1`, strings.TrimSpace(email))
	if err != nil { return nil, err }
	users, err := scanUsers(rows)
	if err != nil { return nil, err }
	if len(users) == 0 { return nil, nil }
	return &users[0], nil
}

func (r *Repository) UserByID(ctx context.Context, id int64) (*domain.User, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id)
	if err != nil { return nil, err }
	users, err := scanUsers(rows)
	if err != nil { return nil, err }
	if len(users) == 0 { return nil, nil }
	return &users[0], nil
}

func (r *Repository) TenantAdmins(ctx context.Context, tenantID int64) ([]domain.User, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+userCols+` FROM users WHERE tenant_id=$1 AND role='admin' AND status='active'`, tenantID)
	if err != nil { return nil, err }
	return scanUsers(rows)
}

func (r *Repository) ProjectRoleUsers(ctx context.Context, projectID int64, roles []string) ([]domain.User, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+userCols+` FROM users u
		JOIN project_roles pr ON pr.user_id = u.id
		WHERE pr.project_id=$1 AND pr.role = ANY($2) AND u.status='active'`, projectID, roles)
	if err != nil { return nil, err }
	return scanUsers(rows)
}

func (r *Repository) ProjectByID(ctx context.Context, id int64) (*domain.Project, error) {
	const q = `SELECT id, tenant_id, COALESCE(name,''), COALESCE(owner,''), COALESCE(team_members,'[]'::jsonb) FROM projects WHERE id=$1`
	var p domain.Project
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.TenantID, &p.Name, &p.Owner, &p.TeamMembers); err != nil {
		if err == pgx.ErrNoRows { return nil, nil }
		return nil, err
	}
	return &p, nil
}

const taskCols = `id, project_id, tenant_id, sprint_id, story_id, COALESCE(title,''), COALESCE(assignees,'{}'),
	COALESCE(status,''), due_at, COALESCE(estimated_hours,0)`

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	defer rows.Close()
	var out []domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.TenantID, &t.SprintID, &t.StoryID, &t.Title, &t.Assignees, &t.Status, &t.DueAt, &t.EstimatedHours); err != nil { return nil, err }
		out = append(out, t)
	}
	return out, nil
}

// ListOpenDueTasks returns tasks with a due date that are not in a terminal
// status; overdue filtering happens in metrics.
func (r *Repository) ListOpenDueTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+taskCols+` FROM tasks
		WHERE due_at IS NOT NULL AND lower(status) NOT IN ('completed','done','closed','resolved','verified')`)
	if err != nil { return nil, err }
	return scanTasks(rows)
}

func (r *Repository) TaskByID(ctx context.Context, id int64) (*domain.Task, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=$1`, id)
	if err != nil { return nil, err }
	tasks, err := scanTasks(rows)
	if err != nil { return nil, err }
	if len(tasks) == 0 { return nil, nil }
	return &tasks[0], nil
}

func (r *Repository) ListTasksBySprint(ctx context.Context, sprintID int64) ([]domain.Task, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+taskCols+` FROM tasks WHERE sprint_id=$1`, sprintID)
	if err != nil { return nil, err }
	return scanTasks(rows)
}

func (r *Repository) ListTasksByStories(ctx context.Context, storyIDs []int64) ([]domain.Task, error) {
	if len(storyIDs) == 0 { return nil, nil }
	rows, err := r.db.Pool.Query(ctx, `SELECT `+taskCols+` FROM tasks WHERE story_id = ANY($1)`, storyIDs)
	if err != nil { return nil, err }
	return scanTasks(rows)
}

func (r *Repository) ListTasksDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+taskCols+` FROM tasks
		WHERE due_at >= $1 AND due_at < $2 AND lower(status) NOT IN ('completed','done','closed','resolved','verified')`, from, to)
	if err != nil { return nil, err }
	return scanTasks(rows)
}

const sprintCols = `id, project_id, tenant_id, COALESCE(name,''), COALESCE(status,''), start_at, end_at,
	committed_override, locked_at, COALESCE(impediments,'{}')`

func (r *Repository) ListActiveSprints(ctx context.Context) ([]domain.Sprint, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+sprintCols+` FROM sprints WHERE status='active'`)
	if err != nil { return nil, err }
	defer rows.Close()
	var out []domain.Sprint
	for rows.Next() {
		var s domain.Sprint
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.TenantID, &s.Name, &s.Status, &s.StartAt, &s.EndAt, &s.CommittedOverride, &s.LockedAt, &s.Impediments); err != nil { return nil, err }
		out = append(out, s)
	}
	return out, nil
}

const storyCols = `id, sprint_id, project_id, tenant_id, COALESCE(status,''), points, COALESCE(assignees,'{}')`

func scanStories(rows pgx.Rows) ([]domain.Story, error) {
	defer rows.Close()
	var out []domain.Story
	for rows.Next() {
		var s domain.Story
		if err := rows.Scan(&s.ID, &s.SprintID, &s.ProjectID, &s.TenantID, &s.Status, &s.Points, &s.Assignees); err != nil { return nil, err }
		out = append(out, s)
	}
	return out, nil
}

func (r *Repository) ListStoriesBySprint(ctx context.Context, sprintID int64) ([]domain.Story, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+storyCols+` FROM stories WHERE sprint_id=$1`, sprintID)
	if err != nil { return nil, err }
	return scanStories(rows)
}

// ListAssignedStories returns every story carrying at least one assignee,
// across all sprints and statuses; overload detection wants the full book
// of work, not just the active sprint.
func (r *Repository) ListAssignedStories(ctx context.Context) ([]domain.Story, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+storyCols+` FROM stories WHERE COALESCE(array_length(assignees,1),0) > 0`)
	if err != nil { return nil, err }
	return scanStories(rows)
}

const timesheetCols = `id, tenant_id, lower(COALESCE(user_email,'')), project_id, work_date,
	COALESCE(minutes,0), COALESCE(rework_minutes,0), COALESCE(status,''), created_at`

func scanTimesheets(rows pgx.Rows) ([]domain.Timesheet, error) {
	defer rows.Close()
	var out []domain.Timesheet
	for rows.Next() {
		var ts domain.Timesheet
		if err := rows.Scan(&ts.ID, &ts.TenantID, &ts.UserEmail, &ts.ProjectID, &ts.WorkDate, &ts.Minutes, &ts.ReworkMinutes, &ts.Status, &ts.CreatedAt); err != nil { return nil, err }
		out = append(out, ts)
	}
	return out, nil
}

func (r *Repository) TimesheetsSince(ctx context.Context, since time.Time) ([]domain.Timesheet, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+timesheetCols+` FROM timesheets WHERE work_date >= $1`, since)
	if err != nil { return nil, err }
	return scanTimesheets(rows)
}

func (r *Repository) TimesheetsByStatusBefore(ctx context.Context, status string, before time.Time) ([]domain.Timesheet, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+timesheetCols+` FROM timesheets WHERE status=$1 AND created_at < $2`, status, before)
	if err != nil { return nil, err }
	return scanTimesheets(rows)
}

func (r *Repository) TimesheetsByStatus(ctx context.Context, status string) ([]domain.Timesheet, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+timesheetCols+` FROM timesheets WHERE status=$1`, status)
	if err != nil { return nil, err }
	return scanTimesheets(rows)
}

// Tenant trial-expiry transition, the one sanctioned business mutation.

func (r *Repository) SuspendTenant(ctx context.Context, id int64) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE tenants SET status='suspended', subscription_status='past_due', updated_at=now() WHERE id=$1`, id)
	return err
}

func (r *Repository) UpsertSubscriptionSummary(ctx context.Context, tenantID int64, status string) error {
	const q = `INSERT INTO subscription_summaries(tenant_id, status, updated_at) VALUES($1,$2,now())
		ON CONFLICT (tenant_id) DO UPDATE SET status=EXCLUDED.status, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, tenantID, status)
	return err
}
