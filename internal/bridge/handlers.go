/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package bridge

import (
    "context"
    "errors"
    "io"
    "net/http"
    "strings"
    gosync "sync"

    "github.com/gin-gonic/gin"
    "github.com/geekbank/jira-cloud-for-sketch/internal/adapters/jira"
    "github.com/geekbank/jira-cloud-for-sketch/internal/config"
    "github.com/geekbank/jira-cloud-for-sketch/internal/domain"
    "github.com/geekbank/jira-cloud-for-sketch/internal/export"
    "github.com/geekbank/jira-cloud-for-sketch/internal/host"
    "github.com/geekbank/jira-cloud-for-sketch/internal/sync"
    "github.com/geekbank/jira-cloud-for-sketch/internal/view"
    "github.com/rs/zerolog"
)

// Panel dimensions, grid-derived like the web UI lays itself out.
const (
    gridUnit       = 8
    titlebarHeight = 24
)

var (
    issueListDimensions = [2]int{gridUnit * 64, gridUnit*45 + titlebarHeight}
    issueViewDimensions = [2]int{gridUnit * 64, gridUnit * 50}
)

// Progress events bridging per-transfer callbacks to the panel.
const (
    EventUploadProgress   = "jira.upload.progress"
    EventDownloadProgress = "jira.download.progress"
)

type remote interface {
    LoadFilters(ctx context.Context) ([]domain.Filter, error)
    RunFilter(ctx context.Context, filterID string) ([]domain.Issue, error)
    GetProfile(ctx context.Context) (*domain.Profile, error)
    FindUsersForPicker(ctx context.Context, query string) ([]domain.User, error)
    AddComment(ctx context.Context, key, text string) (string, error)
}

type analyticsSink interface {
    Post(ctx context.Context, name string, props map[string]any)
}

// documentSetter is implemented by hosts that accept pushed document
// snapshots (the FSHost does).
type documentSetter interface {
    SetDocument(doc *host.Document)
}

type Handlers struct {
    cfg         config.Config
    log         zerolog.Logger
    jira        remote
    export      *export.Engine
    attachments *sync.Attachments
    uploads     *sync.Uploads
    analytics   analyticsSink
    bus         *Bus
    docs        documentSetter

    mu    gosync.Mutex
    views map[string]*view.Issue
    mk    func(key string) *view.Issue
}

func NewHandlers(cfg config.Config, log zerolog.Logger, jc remote, ex *export.Engine, atts *sync.Attachments, ups *sync.Uploads, an analyticsSink, bus *Bus, docs documentSetter, mk func(key string) *view.Issue) *Handlers {
    return &Handlers{
        cfg:         cfg,
        log:         log,
        jira:        jc,
        export:      ex,
        attachments: atts,
        uploads:     ups,
        analytics:   an,
        bus:         bus,
        docs:        docs,
        views:       make(map[string]*view.Issue),
        mk:          mk,
    }
}

func (h *Handlers) viewFor(key string) *view.Issue {
    h.mu.Lock()
    defer h.mu.Unlock()
    if v, ok := h.views[key]; ok { return v }
    v := h.mk(key)
    h.views[key] = v
    return v
}

// statusFor maps the remote error taxonomy onto HTTP statuses for the
// panel.
func statusFor(err error) int {
    switch {
    case jira.IsKind(err, jira.KindUnauthorized):
        return http.StatusUnauthorized
    case jira.IsKind(err, jira.KindNotFound):
        return http.StatusNotFound
    case jira.IsKind(err, jira.KindCancelled):
        return http.StatusRequestTimeout
    case jira.IsKind(err, jira.KindServer), jira.IsKind(err, jira.KindNetwork):
        return http.StatusBadGateway
    default:
        return http.StatusInternalServerError
    }
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) LoadFilters(c *gin.Context) {
    filters, err := h.jira.LoadFilters(c.Request.Context())
    if err != nil {
        c.JSON(statusFor(err), gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, filters)
}

func (h *Handlers) LoadProfile(c *gin.Context) {
    profile, err := h.jira.GetProfile(c.Request.Context())
    if err != nil {
        c.JSON(statusFor(err), gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, profile)
}

func (h *Handlers) LoadIssuesForFilter(c *gin.Context) {
    issues, err := h.jira.RunFilter(c.Request.Context(), c.Param("id"))
    if err != nil {
        c.JSON(statusFor(err), gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, issues)
}

func (h *Handlers) GetDroppedFiles(c *gin.Context) {
    files, err := h.uploads.DroppedFiles(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, files)
}

func (h *Handlers) UploadAttachment(c *gin.Context) {
    key := c.Param("key")
    var req struct {
        Path string `json:"path" binding:"required"`
    }
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    vm := h.viewFor(key)
    att, err := vm.UploadFile(c.Request.Context(), req.Path, func(f float64) {
        h.bus.Dispatch(EventUploadProgress, gin.H{"issueKey": key, "path": req.Path, "progress": f})
    })
    if err != nil {
        c.JSON(statusFor(err), gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, att)
}

func (h *Handlers) TouchIssueAndReloadAttachments(c *gin.Context) {
    key := c.Param("key")
    vm := h.viewFor(key)
    if err := vm.OnSelected(c.Request.Context()); err != nil {
        c.JSON(statusFor(err), gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{
        "key":         key,
        "browseUrl":   vm.BrowseURL(),
        "attachments": vm.Attachments(),
    })
}

func (h *Handlers) GetThumbnail(c *gin.Context) {
    url := c.Query("url")
    mimeType := c.Query("mimeType")
    if url == "" || mimeType == "" {
        c.JSON(http.StatusBadRequest, gin.H{"error": "url and mimeType are required"})
        return
    }
    dataURI, err := h.attachments.GetThumbnail(c.Request.Context(), url, mimeType)
    if err != nil {
        c.JSON(statusFor(err), gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"dataUri": dataURI})
}

func (h *Handlers) OpenAttachment(c *gin.Context) {
    var req struct {
        URL      string `json:"url" binding:"required"`
        Filename string `json:"filename" binding:"required"`
    }
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    path, err := h.attachments.OpenAttachment(c.Request.Context(), req.URL, req.Filename, func(f float64) {
        h.bus.Dispatch(EventDownloadProgress, gin.H{"url": req.URL, "progress": f})
    })
    if err != nil {
        c.JSON(statusFor(err), gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"path": path})
}

func (h *Handlers) DeleteAttachment(c *gin.Context) {
    key := c.Param("key")
    id := c.Param("id")
    isReplace := c.Query("replace") == "true"
    if err := h.attachments.DeleteAttachment(c.Request.Context(), key, id, isReplace); err != nil {
        c.JSON(statusFor(err), gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) AddComment(c *gin.Context) {
    key := c.Param("key")
    var req struct {
        Body string `json:"body"`
    }
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    h.analytics.Post(c.Request.Context(), "viewIssueCommentAdd", map[string]any{
        "length": len(req.Body),
        "lines":  strings.Count(req.Body, "\n") + 1,
    })
    vm := h.viewFor(key)
    vm.SetCommentText(req.Body)
    err := vm.PostComment(c.Request.Context())
    switch {
    case errors.Is(err, view.ErrEmptyComment):
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    case errors.Is(err, view.ErrPostInFlight):
        c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
    case err != nil:
        c.JSON(statusFor(err), gin.H{"error": err.Error()})
    default:
        c.JSON(http.StatusOK, gin.H{"href": vm.PostedCommentHref()})
    }
}

func (h *Handlers) FindUsersForPicker(c *gin.Context) {
    users, err := h.jira.FindUsersForPicker(c.Request.Context(), c.Query("query"))
    if err != nil {
        c.JSON(statusFor(err), gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, users)
}

// ViewSettings and Reauthorize tell the shell to swap to the connect
// surface; the auth flow itself lives outside the pipeline.
func (h *Handlers) ViewSettings(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"action": "connect"})
}

func (h *Handlers) Reauthorize(c *gin.Context) {
    h.log.Info().Msg("bridge: reauthorize requested")
    c.JSON(http.StatusOK, gin.H{"action": "connect"})
}

func (h *Handlers) ResizeForIssueList(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"width": issueListDimensions[0], "height": issueListDimensions[1]})
}

func (h *Handlers) ResizeForIssueView(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"width": issueViewDimensions[0], "height": issueViewDimensions[1]})
}

func (h *Handlers) ExportSelection(c *gin.Context) {
    var req struct {
        IssueKey string `json:"issueKey" binding:"required"`
    }
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    paths := h.export.ExportSelection(c.Request.Context(), req.IssueKey)
    c.JSON(http.StatusOK, gin.H{"paths": paths})
}

func (h *Handlers) LastExportedIssue(c *gin.Context) {
    key := h.export.LastExportedIssueForSelection(c.Request.Context())
    c.JSON(http.StatusOK, gin.H{"issueKey": key})
}

func (h *Handlers) SetDocument(c *gin.Context) {
    if h.docs == nil {
        c.JSON(http.StatusNotImplemented, gin.H{"error": "host does not accept document snapshots"})
        return
    }
    var doc host.Document
    if err := c.ShouldBindJSON(&doc); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    h.docs.SetDocument(&doc)
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) SetLastViewedIssue(c *gin.Context) {
    var req struct {
        IssueKey string `json:"issueKey" binding:"required"`
    }
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    h.export.SetLastViewedIssueForDocument(c.Request.Context(), req.IssueKey)
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) LastViewedIssue(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"issueKey": h.export.LastViewedIssueForDocument(c.Request.Context())})
}

// Events streams the fire-and-forget event channel to the panel over SSE.
// A slow consumer drops events rather than blocking dispatch.
func (h *Handlers) Events(c *gin.Context) {
    ch := make(chan Envelope, 64)
    off := h.bus.Tap(func(e Envelope) {
        select {
        case ch <- e:
        default:
        }
    })
    defer off()
    c.Writer.Header().Set("Content-Type", "text/event-stream")
    c.Writer.Header().Set("Cache-Control", "no-cache")
    c.Stream(func(w io.Writer) bool {
        select {
        case e := <-ch:
            c.SSEvent(e.Name, e.Payload)
            return true
        case <-c.Request.Context().Done():
            return false
        }
    })
}
