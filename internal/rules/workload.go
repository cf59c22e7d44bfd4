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

// RunLowWorkload alerts users whose planned hours for the current ISO week
// fall under the capacity threshold, and copies the managers of the projects
// those plans belong to. Cleared users have their OPEN alerts resolved.
func (e *Engine) RunLowWorkload(ctx context.Context) (Stats, error) {
	var st Stats
	now := e.Now()
	users, err := e.store.ListActiveUsers(ctx)
	if err != nil { return st, fmt.Errorf("low-workload: list users: %w", err) }
	weekStart := metrics.WeekStart(now)
	tasks, err := e.store.ListTasksDueBetween(ctx, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil { return st, fmt.Errorf("low-workload: list week tasks: %w", err) }

	under := map[int64]bool{}
	for _, u := range users {
		st.Scanned++
		planned := metrics.WeekEstimatedHours(tasks, u.Email, now)
		pct := metrics.UnderloadPercent(planned, workingHours(u))
		if pct >= e.cfg.UnderloadPercent { continue }
		under[u.ID] = true

		msg := fmt.Sprintf("Planned work covers %.0f%% of weekly capacity (%.1fh planned).", pct, planned)
		e.send(ctx, alerts.Candidate{
			TenantID:    u.TenantID,
			Recipient:   u.Email,
			Tag:         domain.TagLowWorkload,
			SubjectType: "user",
			SubjectID:   u.ID,
			Title:       domain.TagLowWorkload.Meta().Title,
			Message:     msg,
			Dedup:       alerts.DedupOpen,
		}, &st)

		for _, m := range e.weekTaskManagers(ctx, tasks, u.Email) {
			if m.Email == u.Email { continue }
			e.send(ctx, alerts.Candidate{
				TenantID:    u.TenantID,
				Recipient:   m.Email,
				Tag:         domain.TagLowWorkload,
				SubjectType: "user",
				SubjectID:   u.ID,
				Title:       domain.TagLowWorkload.Meta().Title,
				Message:     fmt.Sprintf("%s: planned work covers %.0f%% of weekly capacity.", u.Email, pct),
				Dedup:       alerts.DedupOpen,
			}, &st)
		}
	}

	open, err := e.store.OpenNotificationsByTag(ctx, domain.TagLowWorkload)
	if err != nil {
		e.log.Error().Err(err).Msg("low-workload: open sweep failed")
		return st, nil
	}
	for _, n := range open {
		if under[n.SubjectID] { continue }
		if err := e.dispatch.ResolveCleared(ctx, n.Recipient, domain.TagLowWorkload, n.SubjectID); err != nil {
			e.log.Error().Err(err).Int64("notification", n.ID).Msg("low-workload: resolve failed")
		}
	}
	return st, nil
}

// weekTaskManagers resolves managers for every project the user has a task
// due this week in, deduplicated by email.
func (e *Engine) weekTaskManagers(ctx context.Context, tasks []domain.Task, email string) []domain.User {
	seen := map[int64]struct{}{}
	byEmail := map[string]domain.User{}
	var order []string
	for _, t := range tasks {
		assigned := false
		for _, a := range t.Assignees {
			if strings.EqualFold(a, email) { assigned = true; break }
		}
		if !assigned { continue }
		if _, ok := seen[t.ProjectID]; ok { continue }
		seen[t.ProjectID] = struct{}{}
		project, err := e.store.ProjectByID(ctx, t.ProjectID)
		if err != nil || project == nil { continue }
		for _, m := range e.resolver.Managers(ctx, *project) {
			if _, ok := byEmail[m.Email]; ok { continue }
			byEmail[m.Email] = m
			order = append(order, m.Email)
		}
	}
	out := make([]domain.User, 0, len(order))
	for _, em := range order { out = append(out, byEmail[em]) }
	return out
}

// RunOverallocation flags users whose assigned story points convert to more
// than the overload share of weekly capacity. Suppression is same-day per
// (recipient, tag); the subject key is the user id.
func (e *Engine) RunOverallocation(ctx context.Context) (Stats, error) {
	var st Stats
	now := e.Now()
	users, err := e.store.ListActiveUsers(ctx)
	if err != nil { return st, fmt.Errorf("overallocation: list users: %w", err) }
	stories, err := e.store.ListAssignedStories(ctx)
	if err != nil { return st, fmt.Errorf("overallocation: list stories: %w", err) }

	for _, u := range users {
		st.Scanned++
		points := metrics.AssignedStoryPoints(stories, u.Email)
		if points == 0 { continue }
		pct := metrics.OverloadPercent(points, e.cfg.HoursPerPoint, e.cfg.WeeklyCapacityHours)
		if pct <= e.cfg.OverloadPercent { continue }
		e.send(ctx, alerts.Candidate{
			TenantID:    u.TenantID,
			Recipient:   u.Email,
			Tag:         domain.TagOverallocation,
			SubjectType: "user",
			SubjectID:   u.ID,
			Title:       domain.TagOverallocation.Meta().Title,
			Message:     fmt.Sprintf("Assigned stories add up to %.0f%% of weekly capacity (%.0f points).", pct, points),
			Dedup:       alerts.DedupWindow,
			Since:       metrics.DayStart(now),
		}, &st)
	}
	return st, nil
}
