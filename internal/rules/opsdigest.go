/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package rules

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/HamedShams/groona-pulse/internal/alerts"
	"github.com/HamedShams/groona-pulse/internal/domain"
)

// RunOpsDigest mails each tenant's admins a weekly rollup of alert volume by
// rule. When an LLM key is configured the rollup is narrated; otherwise the
// plain table goes out as-is. One digest per admin per week.
func (e *Engine) RunOpsDigest(ctx context.Context) (Stats, error) {
	var st Stats
	now := e.Now()
	since := now.AddDate(0, 0, -7)
	counts, err := e.store.NotificationCountsSince(ctx, since)
	if err != nil { return st, fmt.Errorf("ops-digest: count notifications: %w", err) }

	summary := e.narrate(ctx, counts)

	tenantIDs := make([]int64, 0, len(counts))
	for id := range counts { tenantIDs = append(tenantIDs, id) }
	sort.Slice(tenantIDs, func(i, j int) bool { return tenantIDs[i] < tenantIDs[j] })

	for _, tenantID := range tenantIDs {
		st.Scanned++
		admins := e.resolver.TenantAdmins(ctx, tenantID)
		if len(admins) == 0 {
			e.log.Info().Int64("tenant", tenantID).Msg("ops-digest: no recipients")
			continue
		}
		body := digestTable(counts[tenantID])
		if summary != "" { body = summary + "\n\n" + body }
		for _, a := range admins {
			e.send(ctx, alerts.Candidate{
				TenantID:    tenantID,
				Recipient:   a.Email,
				Tag:         domain.TagOpsDigest,
				SubjectType: "tenant",
				SubjectID:   tenantID,
				Title:       domain.TagOpsDigest.Meta().Title,
				Message:     body,
				Dedup:       alerts.DedupWindow,
				Since:       now.Add(-6 * 24 * time.Hour),
				EmailData:   map[string]any{"since": since.Format("2006-01-02")},
			}, &st)
		}
	}
	return st, nil
}

// narrate asks the LLM for a cross-tenant summary. Any failure, including a
// missing key, degrades to the plain table.
func (e *Engine) narrate(ctx context.Context, counts map[int64]map[domain.RuleTag]int) string {
	if e.llm == nil || !e.llm.Enabled() || len(counts) == 0 { return "" }
	payload := map[string]map[string]int64{}
	for tenantID, byTag := range counts {
		row := map[string]int64{}
		for tag, n := range byTag { row[string(tag)] = int64(n) }
		payload[strconv.FormatInt(tenantID, 10)] = row
	}
	out, err := e.llm.Summarize(ctx, payload)
	if err != nil {
		e.log.Warn().Err(err).Msg("ops-digest: llm summary failed, using plain table")
		return ""
	}
	return strings.TrimSpace(out)
}

func digestTable(byTag map[domain.RuleTag]int) string {
	tags := make([]string, 0, len(byTag))
	for tag := range byTag { tags = append(tags, string(tag)) }
	sort.Strings(tags)
	var b strings.Builder
	b.WriteString("Alerts in the last 7 days:")
	for _, tag := range tags {
		fmt.Fprintf(&b, "\n  %-32s %d", tag, byTag[domain.RuleTag(tag)])
	}
	return b.String()
}
