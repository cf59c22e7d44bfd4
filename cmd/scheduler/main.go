/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HamedShams/groona-pulse/internal/adapters/mailer"
	"github.com/HamedShams/groona-pulse/internal/adapters/openai"
	"github.com/HamedShams/groona-pulse/internal/alerts"
	"github.com/HamedShams/groona-pulse/internal/config"
	httpapi "github.com/HamedShams/groona-pulse/internal/http"
	"github.com/HamedShams/groona-pulse/internal/jobs"
	"github.com/HamedShams/groona-pulse/internal/logger"
	"github.com/HamedShams/groona-pulse/internal/recipients"
	"github.com/HamedShams/groona-pulse/internal/repo"
	"github.com/HamedShams/groona-pulse/internal/rules"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := repo.MustOpen(ctx, cfg, log)
	defer db.Close()

	repository := repo.NewRepository(db, log)
	mail := mailer.NewClient(cfg, log)
	llm := openai.NewClient(cfg, log)
	resolver := recipients.New(repository, log)
	dispatch := alerts.NewDispatcher(repository, mail, log)
	engine := rules.NewEngine(cfg, repository, resolver, dispatch, llm, log)

	cron := jobs.NewCron(cfg, log, repository, engine)
	cron.Start()
	defer cron.Stop()

	router := httpapi.NewRouter(cfg, log, repository, engine)
	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(cfg.HTTPAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil { log.Error().Err(err).Msg("http server error") }
	}

	time.Sleep(500 * time.Millisecond)
}
