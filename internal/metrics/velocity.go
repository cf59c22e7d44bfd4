/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package metrics holds the derived-metric computations. Every function here
// is pure and total over in-memory snapshots: no store access, no clocks
// except the caller-supplied "now", and no error returns for degenerate
// inputs (an empty sprint yields 0, not a failure).
package metrics

import (
	"strings"

	"github.com/HamedShams/groona-pulse/internal/domain"
)

func storyDone(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	return s == "done" || s == "completed"
}

// StoryCompletion returns the completion fraction of a story in [0,1].
// A done/completed story is 1. Otherwise the fraction is completed child
// tasks over total child tasks; a story with no tasks is 0.
func StoryCompletion(story domain.Story, tasks []domain.Task) float64 {
	if storyDone(story.Status) { return 1 }
	if len(tasks) == 0 { return 0 }
	done := 0
	for _, t := range tasks {
		if strings.EqualFold(strings.TrimSpace(t.Status), "completed") { done++ }
	}
	return float64(done) / float64(len(tasks))
}

// SprintCommitment is the sprint's override value when set, else the sum of
// story points across its stories.
func SprintCommitment(sprint domain.Sprint, stories []domain.Story) float64 {
	if sprint.CommittedOverride != nil { return *sprint.CommittedOverride }
	sum := 0.0
	for _, st := range stories {
		if st.Points != nil { sum += *st.Points }
	}
	return sum
}

// SprintCompleted sums partial-credit completed points: each story
// contributes points × completion fraction.
func SprintCompleted(stories []domain.Story, tasksByStory map[int64][]domain.Task) float64 {
	sum := 0.0
	for _, st := range stories {
		if st.Points == nil || *st.Points <= 0 { continue }
		sum += *st.Points * StoryCompletion(st, tasksByStory[st.ID])
	}
	return sum
}

// VelocityPercent is completed/committed × 100, with 0 for an empty
// commitment. Never NaN, Inf, or negative.
func VelocityPercent(completed, committed float64) float64 {
	if committed <= 0 { return 0 }
	if completed < 0 { completed = 0 }
	return completed / committed * 100
}
