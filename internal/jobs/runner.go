/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HamedShams/groona-pulse/internal/repo"
	"github.com/HamedShams/groona-pulse/internal/rules"
)

// lockKey derives a stable advisory-lock key for a rule name.
func lockKey(rule string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("groona-pulse/" + rule))
	return int64(h.Sum64())
}

// Execute runs one rule under its advisory lock with rule_runs bookkeeping
// and returns the process exit code: 0 on success or when another instance
// holds the lock, 1 on a scope-level failure.
func Execute(ctx context.Context, log zerolog.Logger, r *repo.Repository, engine *rules.Engine, rule string, force bool) int {
	runID := uuid.NewString()
	rlog := log.With().Str("rule", rule).Str("run_id", runID).Logger()

	key := lockKey(rule)
	ok, err := r.TryAdvisoryLock(ctx, key)
	if err != nil { rlog.Error().Err(err).Msg("job: lock error"); return 1 }
	if !ok { rlog.Info().Msg("job: already running elsewhere"); return 0 }
	defer func() { _ = r.AdvisoryUnlock(context.Background(), key) }()

	id, err := r.StartRuleRun(ctx, rule)
	if err != nil { rlog.Error().Err(err).Msg("job: start bookkeeping failed"); return 1 }

	started := time.Now()
	st, runErr := engine.RunRule(ctx, rule, force)
	errStr := ""
	if runErr != nil { errStr = runErr.Error() }
	if err := r.FinishRuleRun(ctx, id, st.Scanned, st.Created, st.Updated, st.Suppressed, runErr == nil, errStr); err != nil {
		rlog.Error().Err(err).Msg("job: finish bookkeeping failed")
	}

	ev := rlog.Info()
	if runErr != nil { ev = rlog.Error().Err(runErr) }
	ev.Int("scanned", st.Scanned).Int("created", st.Created).Int("updated", st.Updated).
		Int("suppressed", st.Suppressed).Dur("took", time.Since(started)).Msg("job: finished")
	if runErr != nil { return 1 }
	return 0
}
