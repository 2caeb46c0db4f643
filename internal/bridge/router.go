/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package bridge

import (
    "github.com/gin-gonic/gin"
    "github.com/geekbank/jira-cloud-for-sketch/internal/config"
    "github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, h *Handlers) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        c.Next()
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("bridge")
    })

    r.GET("/healthz", h.Healthz)
    r.GET("/events", h.Events)

    r.GET("/filters", h.LoadFilters)
    r.GET("/filters/:id/issues", h.LoadIssuesForFilter)
    r.GET("/profile", h.LoadProfile)
    r.GET("/users/picker", h.FindUsersForPicker)

    r.GET("/dropped-files", h.GetDroppedFiles)
    r.POST("/issues/:key/attachments", h.UploadAttachment)
    r.POST("/issues/:key/reload", h.TouchIssueAndReloadAttachments)
    r.DELETE("/issues/:key/attachments/:id", h.DeleteAttachment)
    r.POST("/issues/:key/comment", h.AddComment)
    r.GET("/thumbnail", h.GetThumbnail)
    r.POST("/attachments/open", h.OpenAttachment)

    r.POST("/export", h.ExportSelection)
    r.GET("/export/last-issue", h.LastExportedIssue)
    r.PUT("/document", h.SetDocument)
    r.POST("/document/last-viewed", h.SetLastViewedIssue)
    r.GET("/document/last-viewed", h.LastViewedIssue)

    r.POST("/panel/settings", h.ViewSettings)
    r.POST("/panel/reauthorize", h.Reauthorize)
    r.POST("/panel/resize/issue-list", h.ResizeForIssueList)
    r.POST("/panel/resize/issue-view", h.ResizeForIssueView)

    return r
}
