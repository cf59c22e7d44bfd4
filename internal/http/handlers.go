/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/HamedShams/groona-pulse/internal/config"
	"github.com/HamedShams/groona-pulse/internal/jobs"
	"github.com/HamedShams/groona-pulse/internal/repo"
	"github.com/HamedShams/groona-pulse/internal/rules"
)

type Handlers struct {
	cfg    config.Config
	log    zerolog.Logger
	repo   *repo.Repository
	engine *rules.Engine
}

func NewHandlers(cfg config.Config, log zerolog.Logger, r *repo.Repository, engine *rules.Engine) *Handlers {
	return &Handlers{cfg: cfg, log: log, repo: r, engine: engine}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) LastRuns(c *gin.Context) {
	runs, err := h.repo.LastRuleRuns(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// RunNow triggers one rule in the background, detached from the request
// context so a closed connection cannot cancel the pass mid-flight.
func (h *Handlers) RunNow(c *gin.Context) {
	rule := c.Param("rule")
	known := false
	for _, name := range rules.RuleNames() {
		if name == rule { known = true; break }
	}
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown rule"})
		return
	}
	force := c.Query("force") == "1" || c.Query("force") == "true"
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		jobs.Execute(ctx, h.log, h.repo, h.engine, rule, force)
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "rule": rule, "force": force})
}
