/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/HamedShams/groona-pulse/internal/config"
	"github.com/HamedShams/groona-pulse/internal/repo"
	"github.com/HamedShams/groona-pulse/internal/rules"
)

func NewRouter(cfg config.Config, log zerolog.Logger, r *repo.Repository, engine *rules.Engine) *gin.Engine {
	if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
	})

	h := NewHandlers(cfg, log, r, engine)

	router.GET("/healthz", h.Healthz)
	router.GET("/admin/runs", h.LastRuns)
	router.POST("/admin/run/:rule", h.RunNow)

	return router
}
