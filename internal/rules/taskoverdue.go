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

// RunTaskOverdue fires the per-assignee overdue alert and the manager
// escalation. The two carry separate tags so both can be open for the same
// task at the same time, each with its own OPEN-dedup track. Alerts whose
// task has been completed or rescheduled are resolved at the end of the pass.
func (e *Engine) RunTaskOverdue(ctx context.Context) (Stats, error) {
	var st Stats
	now := e.Now()
	tasks, err := e.store.ListOpenDueTasks(ctx)
	if err != nil { return st, fmt.Errorf("task-overdue: list tasks: %w", err) }

	for _, t := range tasks {
		st.Scanned++
		if !metrics.IsOverdue(t, now) { continue }
		days := metrics.DaysOverdue(t, now)
		if days < e.cfg.OverdueAlertDays { continue }

		for _, assignee := range t.Assignees {
			email := strings.ToLower(strings.TrimSpace(assignee))
			if email == "" { continue }
			u, err := e.store.UserByEmail(ctx, email)
			if err != nil {
				e.log.Warn().Err(err).Int64("task", t.ID).Str("assignee", email).Msg("task-overdue: assignee lookup failed")
				continue
			}
			if u == nil || !strings.EqualFold(u.CustomRole, "viewer") { continue }
			e.send(ctx, alerts.Candidate{
				TenantID:    t.TenantID,
				Recipient:   email,
				Tag:         domain.TagTaskOverdue,
				SubjectType: "task",
				SubjectID:   t.ID,
				Title:       domain.TagTaskOverdue.Meta().Title,
				Message:     fmt.Sprintf("%q is %d days overdue.", t.Title, days),
				Dedup:       alerts.DedupOpen,
			}, &st)
		}

		if days >= e.cfg.OverdueEscalationDays {
			project, err := e.store.ProjectByID(ctx, t.ProjectID)
			if err != nil || project == nil {
				e.log.Warn().Err(err).Int64("task", t.ID).Int64("project", t.ProjectID).Msg("task-overdue: project lookup failed")
				continue
			}
			managers := e.resolver.Managers(ctx, *project)
			if len(managers) == 0 {
				e.log.Info().Int64("task", t.ID).Int64("project", project.ID).Msg("task-overdue: no recipients for escalation")
				continue
			}
			for _, m := range managers {
				e.send(ctx, alerts.Candidate{
					TenantID:    t.TenantID,
					Recipient:   m.Email,
					Tag:         domain.TagTaskEscalation,
					SubjectType: "task",
					SubjectID:   t.ID,
					Title:       domain.TagTaskEscalation.Meta().Title,
					Message:     fmt.Sprintf("%q in %s has been overdue for %d days.", t.Title, project.Name, days),
					Dedup:       alerts.DedupOpen,
					EmailData:   map[string]any{"task": t.Title, "project": project.Name, "days_overdue": days},
				}, &st)
			}
		}
	}

	e.resolveClearedOverdue(ctx, domain.TagTaskOverdue, e.cfg.OverdueAlertDays)
	e.resolveClearedOverdue(ctx, domain.TagTaskEscalation, e.cfg.OverdueEscalationDays)
	return st, nil
}

// resolveClearedOverdue sweeps OPEN rows for one overdue tag and resolves
// those whose task no longer crosses the tier threshold.
func (e *Engine) resolveClearedOverdue(ctx context.Context, tag domain.RuleTag, thresholdDays int) {
	now := e.Now()
	open, err := e.store.OpenNotificationsByTag(ctx, tag)
	if err != nil {
		e.log.Error().Err(err).Str("tag", string(tag)).Msg("task-overdue: open sweep failed")
		return
	}
	for _, n := range open {
		t, err := e.store.TaskByID(ctx, n.SubjectID)
		if err != nil {
			e.log.Warn().Err(err).Int64("task", n.SubjectID).Msg("task-overdue: sweep lookup failed")
			continue
		}
		cleared := t == nil || !metrics.IsOverdue(*t, now) || metrics.DaysOverdue(*t, now) < thresholdDays
		if !cleared { continue }
		if err := e.dispatch.ResolveCleared(ctx, n.Recipient, tag, n.SubjectID); err != nil {
			e.log.Error().Err(err).Int64("notification", n.ID).Msg("task-overdue: resolve failed")
		}
	}
}
