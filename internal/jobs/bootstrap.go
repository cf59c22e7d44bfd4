/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"time"

	"github.com/HamedShams/groona-pulse/internal/adapters/mailer"
	"github.com/HamedShams/groona-pulse/internal/adapters/openai"
	"github.com/HamedShams/groona-pulse/internal/alerts"
	"github.com/HamedShams/groona-pulse/internal/config"
	"github.com/HamedShams/groona-pulse/internal/logger"
	"github.com/HamedShams/groona-pulse/internal/recipients"
	"github.com/HamedShams/groona-pulse/internal/repo"
	"github.com/HamedShams/groona-pulse/internal/rules"
)

// Main is the shared entrypoint for the standalone rule binaries: wire the
// full stack, run one rule, and return the process exit code.
func Main(rule string, force bool) int {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	db := repo.MustOpen(ctx, cfg, log)
	defer db.Close()

	repository := repo.NewRepository(db, log)
	mail := mailer.NewClient(cfg, log)
	llm := openai.NewClient(cfg, log)
	resolver := recipients.New(repository, log)
	dispatch := alerts.NewDispatcher(repository, mail, log)
	engine := rules.NewEngine(cfg, repository, resolver, dispatch, llm, log)

	return Execute(ctx, log, repository, engine, rule, force)
}
