package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/HamedShams/groona-pulse/internal/config"
	"github.com/HamedShams/groona-pulse/internal/repo"
	"github.com/HamedShams/groona-pulse/internal/rules"
)

type Cron struct {
	cfg    config.Config
	log    zerolog.Logger
	repo   *repo.Repository
	engine *rules.Engine
	c      *cron.Cron
}

// NewCron registers every rule job on its configured schedule. The same
// Execute path the standalone binaries use runs underneath, so overlapping a
// scheduler with ad-hoc manual runs stays safe.
func NewCron(cfg config.Config, log zerolog.Logger, r *repo.Repository, engine *rules.Engine) *Cron {
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		// config.Load already pinned time.Local from APP_TZ when it could.
		log.Warn().Err(err).Str("tz", cfg.TZ).Msg("cron: unknown timezone, using local")
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	cr := &Cron{cfg: cfg, log: log, repo: r, engine: engine, c: c}

	specs := map[string]string{
		"task-overdue":       cfg.CronTaskOverdue,
		"sprint-health":      cfg.CronSprintHealth,
		"low-workload":       cfg.CronLowWorkload,
		"overallocation":     cfg.CronOverallocation,
		"pending-timesheets": cfg.CronPendingTimesheets,
		"approval-backlog":   cfg.CronApprovalBacklog,
		"context-switch":     cfg.CronContextSwitch,
		"compliance-gap":     cfg.CronComplianceGap,
		"trial-expiry":       cfg.CronTrialExpiry,
		"compliance-reward":  cfg.CronComplianceReward,
		"ops-digest":         cfg.CronOpsDigest,
	}
	for _, name := range rules.RuleNames() {
		rule := name
		if _, err := c.AddFunc(specs[rule], func() { cr.run(rule) }); err != nil {
			log.Error().Err(err).Str("rule", rule).Str("spec", specs[rule]).Msg("cron: bad schedule")
		}
	}
	return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

func (cr *Cron) run(rule string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	Execute(ctx, cr.log, cr.repo, cr.engine, rule, false)
}
