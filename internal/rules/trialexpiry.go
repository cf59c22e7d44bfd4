/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package rules

import (
	"context"
	"fmt"

	"github.com/HamedShams/groona-pulse/internal/alerts"
	"github.com/HamedShams/groona-pulse/internal/domain"
)

// RunTrialExpiry suspends tenants whose trial has lapsed. This is the one
// rule with a durable side effect beyond notifications: the tenant status
// flips to suspended, the denormalized subscription summary is upserted to
// past_due, and the tenant admins are told. The suspension happens before
// the notification so a crash in between never leaves an alerted-but-active
// tenant.
func (e *Engine) RunTrialExpiry(ctx context.Context) (Stats, error) {
	var st Stats
	now := e.Now()
	tenants, err := e.store.ListTrialTenants(ctx)
	if err != nil { return st, fmt.Errorf("trial-expiry: list tenants: %w", err) }

	for _, t := range tenants {
		st.Scanned++
		if t.TrialEndsAt == nil || !t.TrialEndsAt.Before(now) { continue }

		if err := e.store.SuspendTenant(ctx, t.ID); err != nil {
			e.log.Error().Err(err).Int64("tenant", t.ID).Msg("trial-expiry: suspend failed")
			continue
		}
		if err := e.store.UpsertSubscriptionSummary(ctx, t.ID, "past_due"); err != nil {
			e.log.Error().Err(err).Int64("tenant", t.ID).Msg("trial-expiry: summary upsert failed")
		}
		e.log.Info().Int64("tenant", t.ID).Str("name", t.Name).Msg("trial-expiry: tenant suspended")

		admins := e.resolver.TenantAdmins(ctx, t.ID)
		if len(admins) == 0 {
			e.log.Info().Int64("tenant", t.ID).Msg("trial-expiry: no recipients")
			continue
		}
		for _, a := range admins {
			e.send(ctx, alerts.Candidate{
				TenantID:    t.ID,
				Recipient:   a.Email,
				Tag:         domain.TagTrialExpiry,
				SubjectType: "tenant",
				SubjectID:   t.ID,
				Title:       domain.TagTrialExpiry.Meta().Title,
				Message:     fmt.Sprintf("The trial for %s ended on %s and the workspace is now suspended.", t.Name, t.TrialEndsAt.Format("2006-01-02")),
				Dedup:       alerts.DedupOpen,
				EmailData:   map[string]any{"tenant": t.Name, "ended": t.TrialEndsAt.Format("2006-01-02")},
			}, &st)
		}
	}
	return st, nil
}
