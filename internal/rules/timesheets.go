/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/HamedShams/groona-pulse/internal/alerts"
	"github.com/HamedShams/groona-pulse/internal/domain"
	"github.com/HamedShams/groona-pulse/internal/metrics"
)

// RunPendingTimesheets nudges users who have submitted entries sitting in
// pending state for longer than the grace period. One grouped alert per user
// per day.
func (e *Engine) RunPendingTimesheets(ctx context.Context) (Stats, error) {
	var st Stats
	now := e.Now()
	cutoff := now.AddDate(0, 0, -e.cfg.PendingTimesheetDays)
	entries, err := e.store.TimesheetsByStatusBefore(ctx, "pending", cutoff)
	if err != nil { return st, fmt.Errorf("pending-timesheets: list entries: %w", err) }

	type group struct {
		tenantID int64
		count    int
		oldest   domain.Timesheet
	}
	byUser := map[string]*group{}
	var order []string
	for _, ts := range entries {
		email := strings.ToLower(strings.TrimSpace(ts.UserEmail))
		if email == "" { continue }
		g := byUser[email]
		if g == nil {
			g = &group{tenantID: ts.TenantID, oldest: ts}
			byUser[email] = g
			order = append(order, email)
		}
		g.count++
		if ts.WorkDate.Before(g.oldest.WorkDate) { g.oldest = ts }
	}

	for _, email := range order {
		st.Scanned++
		g := byUser[email]
		e.send(ctx, alerts.Candidate{
			TenantID:    g.tenantID,
			Recipient:   email,
			Tag:         domain.TagPendingTimesheet,
			SubjectType: "user",
			Title:       domain.TagPendingTimesheet.Meta().Title,
			Message:     fmt.Sprintf("%d timesheet entries have been pending since %s.", g.count, g.oldest.WorkDate.Format("2006-01-02")),
			Dedup:       alerts.DedupWindow,
			Since:       metrics.DayStart(now),
			EmailData:   map[string]any{"count": g.count, "oldest": g.oldest.WorkDate.Format("2006-01-02")},
		}, &st)
	}
	return st, nil
}

// RunApprovalBacklog tells each project manager how many entries are waiting
// on them, aggregated across their projects. One alert per PM per day.
func (e *Engine) RunApprovalBacklog(ctx context.Context) (Stats, error) {
	var st Stats
	now := e.Now()
	entries, err := e.store.TimesheetsByStatus(ctx, "pending_pm")
	if err != nil { return st, fmt.Errorf("approval-backlog: list entries: %w", err) }

	countByProject := map[int64]int{}
	var projectOrder []int64
	for _, ts := range entries {
		if _, ok := countByProject[ts.ProjectID]; !ok { projectOrder = append(projectOrder, ts.ProjectID) }
		countByProject[ts.ProjectID]++
	}

	type pmTotal struct {
		user  domain.User
		count int
	}
	byPM := map[string]*pmTotal{}
	var pmOrder []string
	for _, projectID := range projectOrder {
		project, err := e.store.ProjectByID(ctx, projectID)
		if err != nil || project == nil {
			e.log.Warn().Err(err).Int64("project", projectID).Msg("approval-backlog: project lookup failed")
			continue
		}
		managers := e.resolver.Managers(ctx, *project)
		if len(managers) == 0 {
			e.log.Info().Int64("project", projectID).Msg("approval-backlog: no recipients")
			continue
		}
		for _, m := range managers {
			t := byPM[m.Email]
			if t == nil {
				t = &pmTotal{user: m}
				byPM[m.Email] = t
				pmOrder = append(pmOrder, m.Email)
			}
			t.count += countByProject[projectID]
		}
	}

	for _, email := range pmOrder {
		st.Scanned++
		t := byPM[email]
		e.send(ctx, alerts.Candidate{
			TenantID:    t.user.TenantID,
			Recipient:   email,
			Tag:         domain.TagApprovalBacklog,
			SubjectType: "user",
			SubjectID:   t.user.ID,
			Title:       domain.TagApprovalBacklog.Meta().Title,
			Message:     fmt.Sprintf("%d timesheet entries are waiting for your approval.", t.count),
			Dedup:       alerts.DedupWindow,
			Since:       metrics.DayStart(now),
			EmailData:   map[string]any{"count": t.count},
		}, &st)
	}
	return st, nil
}

// RunContextSwitch flags users who bounce across too many projects on too
// many days of the trailing week. Once per day.
func (e *Engine) RunContextSwitch(ctx context.Context) (Stats, error) {
	var st Stats
	now := e.Now()
	users, err := e.store.ListActiveUsers(ctx)
	if err != nil { return st, fmt.Errorf("context-switch: list users: %w", err) }
	entries, err := e.store.TimesheetsSince(ctx, metrics.DayStart(now).AddDate(0, 0, -6))
	if err != nil { return st, fmt.Errorf("context-switch: list entries: %w", err) }

	byUser := map[string][]domain.Timesheet{}
	for _, ts := range entries {
		email := strings.ToLower(ts.UserEmail)
		byUser[email] = append(byUser[email], ts)
	}

	for _, u := range users {
		st.Scanned++
		days := metrics.HighSwitchDays(byUser[strings.ToLower(u.Email)], now, e.cfg.SwitchProjectsPerDay)
		if days < e.cfg.SwitchDaysPerWeek { continue }
		e.send(ctx, alerts.Candidate{
			TenantID:    u.TenantID,
			Recipient:   u.Email,
			Tag:         domain.TagContextSwitch,
			SubjectType: "user",
			SubjectID:   u.ID,
			Title:       domain.TagContextSwitch.Meta().Title,
			Message:     fmt.Sprintf("You worked across more than %d projects on %d of the last 7 days.", e.cfg.SwitchProjectsPerDay, days),
			Dedup:       alerts.DedupWindow,
			Since:       metrics.DayStart(now),
		}, &st)
	}
	return st, nil
}
