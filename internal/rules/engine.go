/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package rules contains the rule jobs. Every job follows the same shape:
// fetch scope, compute the metric per item, branch on the threshold, resolve
// recipients, dispatch. Per-item failures are logged and skipped; only a
// scope-level fetch failure fails the run.
package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/HamedShams/groona-pulse/internal/alerts"
	"github.com/HamedShams/groona-pulse/internal/config"
	"github.com/HamedShams/groona-pulse/internal/domain"
	"github.com/HamedShams/groona-pulse/internal/recipients"
)

// Store is the read/write surface the rule jobs need from the repository.
type Store interface {
	ListTrialTenants(ctx context.Context) ([]domain.Tenant, error)
	ListActiveUsers(ctx context.Context) ([]domain.User, error)
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	ProjectByID(ctx context.Context, id int64) (*domain.Project, error)
	ListOpenDueTasks(ctx context.Context) ([]domain.Task, error)
	TaskByID(ctx context.Context, id int64) (*domain.Task, error)
	ListTasksBySprint(ctx context.Context, sprintID int64) ([]domain.Task, error)
	ListTasksByStories(ctx context.Context, storyIDs []int64) ([]domain.Task, error)
	ListTasksDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error)
	ListActiveSprints(ctx context.Context) ([]domain.Sprint, error)
	ListStoriesBySprint(ctx context.Context, sprintID int64) ([]domain.Story, error)
	ListAssignedStories(ctx context.Context) ([]domain.Story, error)
	TimesheetsSince(ctx context.Context, since time.Time) ([]domain.Timesheet, error)
	TimesheetsByStatusBefore(ctx context.Context, status string, before time.Time) ([]domain.Timesheet, error)
	TimesheetsByStatus(ctx context.Context, status string) ([]domain.Timesheet, error)
	SuspendTenant(ctx context.Context, id int64) error
	UpsertSubscriptionSummary(ctx context.Context, tenantID int64, status string) error
	CountNotificationsSince(ctx context.Context, recipient string, tags []domain.RuleTag, since time.Time) (int, error)
	OpenNotificationsByTag(ctx context.Context, tag domain.RuleTag) ([]domain.Notification, error)
	NotificationCountsSince(ctx context.Context, since time.Time) (map[int64]map[domain.RuleTag]int, error)
}

// Summarizer is the optional LLM hook used by the weekly ops digest.
type Summarizer interface {
	Enabled() bool
	Summarize(ctx context.Context, counts map[string]map[string]int64) (string, error)
}

// Stats is the per-run counter set persisted into rule_runs.
type Stats struct {
	Scanned    int
	Created    int
	Updated    int
	Suppressed int
}

type Engine struct {
	cfg      config.Config
	store    Store
	resolver *recipients.Resolver
	dispatch *alerts.Dispatcher
	llm      Summarizer
	log      zerolog.Logger
	Now      func() time.Time
}

func NewEngine(cfg config.Config, store Store, resolver *recipients.Resolver, dispatch *alerts.Dispatcher, llm Summarizer, log zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, store: store, resolver: resolver, dispatch: dispatch, llm: llm, log: log, Now: time.Now}
}

// RunRule dispatches by job name; used by the HTTP trigger and the scheduler.
func (e *Engine) RunRule(ctx context.Context, name string, force bool) (Stats, error) {
	switch name {
	case "task-overdue":
		return e.RunTaskOverdue(ctx)
	case "sprint-health":
		return e.RunSprintHealth(ctx, force)
	case "low-workload":
		return e.RunLowWorkload(ctx)
	case "overallocation":
		return e.RunOverallocation(ctx)
	case "pending-timesheets":
		return e.RunPendingTimesheets(ctx)
	case "approval-backlog":
		return e.RunApprovalBacklog(ctx)
	case "context-switch":
		return e.RunContextSwitch(ctx)
	case "compliance-gap":
		return e.RunComplianceGap(ctx)
	case "trial-expiry":
		return e.RunTrialExpiry(ctx)
	case "compliance-reward":
		return e.RunComplianceReward(ctx)
	case "ops-digest":
		return e.RunOpsDigest(ctx)
	}
	return Stats{}, fmt.Errorf("rules: unknown rule %q", name)
}

// RuleNames lists every runnable job, in scheduling order.
func RuleNames() []string {
	return []string{
		"task-overdue", "sprint-health", "low-workload", "overallocation",
		"pending-timesheets", "approval-backlog", "context-switch",
		"compliance-gap", "trial-expiry", "compliance-reward", "ops-digest",
	}
}

// send dispatches one candidate and folds the outcome into the stats.
// Dispatch errors are per-item: logged and counted as suppressed.
func (e *Engine) send(ctx context.Context, c alerts.Candidate, st *Stats) {
	out, err := e.dispatch.Dispatch(ctx, c)
	if err != nil {
		e.log.Error().Err(err).Str("tag", string(c.Tag)).Str("recipient", c.Recipient).Msg("rules: dispatch failed")
		st.Suppressed++
		return
	}
	switch out {
	case alerts.Created:
		st.Created++
	case alerts.Updated:
		st.Updated++
	default:
		st.Suppressed++
	}
}

func workingHours(u domain.User) float64 {
	if u.WorkingHoursPerDay > 0 { return u.WorkingHoursPerDay }
	return 8
}
