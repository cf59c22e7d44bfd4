/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/HamedShams/groona-pulse/internal/alerts"
	"github.com/HamedShams/groona-pulse/internal/domain"
	"github.com/HamedShams/groona-pulse/internal/metrics"
)

// RunSprintHealth flags active sprints whose overdue-task ratio crosses the
// threshold, with the current velocity folded into the message. One alert
// per manager per 24h unless forced.
func (e *Engine) RunSprintHealth(ctx context.Context, force bool) (Stats, error) {
	var st Stats
	now := e.Now()
	sprints, err := e.store.ListActiveSprints(ctx)
	if err != nil { return st, fmt.Errorf("sprint-health: list sprints: %w", err) }

	for _, sp := range sprints {
		st.Scanned++
		tasks, err := e.store.ListTasksBySprint(ctx, sp.ID)
		if err != nil {
			e.log.Warn().Err(err).Int64("sprint", sp.ID).Msg("sprint-health: task fetch failed")
			continue
		}
		if len(tasks) == 0 { continue }
		overdue := 0
		for _, t := range tasks {
			if metrics.IsOverdue(t, now) { overdue++ }
		}
		ratio := float64(overdue) / float64(len(tasks))
		if ratio <= e.cfg.SprintOverdueRatio { continue }

		velocity := e.sprintVelocity(ctx, sp)
		project, err := e.store.ProjectByID(ctx, sp.ProjectID)
		if err != nil || project == nil {
			e.log.Warn().Err(err).Int64("sprint", sp.ID).Int64("project", sp.ProjectID).Msg("sprint-health: project lookup failed")
			continue
		}
		managers := e.resolver.Managers(ctx, *project)
		if len(managers) == 0 {
			e.log.Info().Int64("sprint", sp.ID).Msg("sprint-health: no recipients")
			continue
		}
		dedup, since := alerts.DedupWindow, now.Add(-24*time.Hour)
		if force { dedup = alerts.DedupNone }
		msg := fmt.Sprintf("Sprint %q: %d of %d tasks overdue (%.0f%%), velocity at %.0f%%.",
			sp.Name, overdue, len(tasks), ratio*100, velocity)
		for _, m := range managers {
			e.send(ctx, alerts.Candidate{
				TenantID:    sp.TenantID,
				Recipient:   m.Email,
				Tag:         domain.TagSprintOverdue,
				SubjectType: "sprint",
				SubjectID:   sp.ID,
				Title:       domain.TagSprintOverdue.Meta().Title,
				Message:     msg,
				Dedup:       dedup,
				Since:       since,
			}, &st)
		}
	}
	return st, nil
}

// sprintVelocity computes partial-credit velocity for the message; failures
// degrade to 0 rather than skipping the alert.
func (e *Engine) sprintVelocity(ctx context.Context, sp domain.Sprint) float64 {
	stories, err := e.store.ListStoriesBySprint(ctx, sp.ID)
	if err != nil {
		e.log.Warn().Err(err).Int64("sprint", sp.ID).Msg("sprint-health: story fetch failed")
		return 0
	}
	ids := make([]int64, 0, len(stories))
	for _, s := range stories { ids = append(ids, s.ID) }
	tasks, err := e.store.ListTasksByStories(ctx, ids)
	if err != nil {
		e.log.Warn().Err(err).Int64("sprint", sp.ID).Msg("sprint-health: story task fetch failed")
		return 0
	}
	byStory := map[int64][]domain.Task{}
	for _, t := range tasks {
		if t.StoryID != nil { byStory[*t.StoryID] = append(byStory[*t.StoryID], t) }
	}
	committed := metrics.SprintCommitment(sp, stories)
	completed := metrics.SprintCompleted(stories, byStory)
	return metrics.VelocityPercent(completed, committed)
}
