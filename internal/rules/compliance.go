/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HamedShams/groona-pulse/internal/alerts"
	"github.com/HamedShams/groona-pulse/internal/domain"
	"github.com/HamedShams/groona-pulse/internal/metrics"
)

// RunComplianceGap walks each active non-admin user's month backward and
// alerts on the first day missing the logging quota. The alert stays OPEN
// and is resolved automatically once the user backfills the day.
func (e *Engine) RunComplianceGap(ctx context.Context) (Stats, error) {
	var st Stats
	now := e.Now()
	users, err := e.store.ListActiveUsers(ctx)
	if err != nil { return st, fmt.Errorf("compliance-gap: list users: %w", err) }
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	entries, err := e.store.TimesheetsSince(ctx, monthStart)
	if err != nil { return st, fmt.Errorf("compliance-gap: list entries: %w", err) }

	byUser := map[string][]domain.Timesheet{}
	for _, ts := range entries {
		email := strings.ToLower(ts.UserEmail)
		byUser[email] = append(byUser[email], ts)
	}

	for _, u := range users {
		if strings.EqualFold(u.Role, "admin") { continue }
		st.Scanned++
		email := strings.ToLower(u.Email)
		gap, found := metrics.FirstComplianceGap(byUser[email], now, metrics.RestDay(u.WeekOff), e.cfg.DailyQuotaMinutes)
		if !found {
			if err := e.dispatch.ResolveCleared(ctx, email, domain.TagComplianceGap, u.ID); err != nil {
				e.log.Error().Err(err).Str("user", email).Msg("compliance-gap: resolve failed")
			}
			continue
		}
		e.send(ctx, alerts.Candidate{
			TenantID:    u.TenantID,
			Recipient:   email,
			Tag:         domain.TagComplianceGap,
			SubjectType: "user",
			SubjectID:   u.ID,
			Title:       domain.TagComplianceGap.Meta().Title,
			Message:     fmt.Sprintf("No full timesheet logged for %s.", gap.Format("2006-01-02")),
			Dedup:       alerts.DedupOpen,
		}, &st)
	}
	return st, nil
}

// RunComplianceReward sends the positive-reinforcement note to users with a
// clean violation record. Suppressed when any violation-tag notification
// exists in the lookback, or when a reward already went out within its own
// window; otherwise inserted once.
func (e *Engine) RunComplianceReward(ctx context.Context) (Stats, error) {
	var st Stats
	now := e.Now()
	users, err := e.store.ListActiveUsers(ctx)
	if err != nil { return st, fmt.Errorf("compliance-reward: list users: %w", err) }
	violationTags := domain.ViolationTags()

	for _, u := range users {
		if strings.EqualFold(u.Role, "admin") { continue }
		st.Scanned++
		email := strings.ToLower(u.Email)

		violations, err := e.store.CountNotificationsSince(ctx, email, violationTags, now.AddDate(0, 0, -e.cfg.ViolationLookbackDays))
		if err != nil {
			e.log.Warn().Err(err).Str("user", email).Msg("compliance-reward: violation lookup failed")
			continue
		}
		if violations > 0 { st.Suppressed++; continue }
		rewards, err := e.store.CountNotificationsSince(ctx, email, []domain.RuleTag{domain.TagComplianceReward}, now.AddDate(0, 0, -e.cfg.RewardLookbackDays))
		if err != nil {
			e.log.Warn().Err(err).Str("user", email).Msg("compliance-reward: reward lookup failed")
			continue
		}
		if rewards > 0 { st.Suppressed++; continue }

		e.send(ctx, alerts.Candidate{
			TenantID:    u.TenantID,
			Recipient:   email,
			Tag:         domain.TagComplianceReward,
			SubjectType: "user",
			SubjectID:   u.ID,
			Title:       domain.TagComplianceReward.Meta().Title,
			Message:     fmt.Sprintf("No alerts in the last %d days. Keep it up!", e.cfg.ViolationLookbackDays),
			Dedup:       alerts.DedupNone,
		}, &st)
	}
	return st, nil
}
