/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */

// Package sync orchestrates attachment reloads, thumbnail fan-out, uploads
// and deletions between the remote tracker and the panel UI.
package sync

import (
    "context"
    "sync"

    "github.com/dustin/go-humanize"
    "github.com/geekbank/jira-cloud-for-sketch/internal/adapters/analytics"
    "github.com/geekbank/jira-cloud-for-sketch/internal/adapters/jira"
    "github.com/geekbank/jira-cloud-for-sketch/internal/config"
    "github.com/geekbank/jira-cloud-for-sketch/internal/domain"
    "github.com/geekbank/jira-cloud-for-sketch/internal/host"
    "github.com/rs/zerolog"
)

// UI-bound fire-and-forget events.
const (
    EventAttachmentsLoaded = "jira.attachments.loaded"
    EventThumbnailLoaded   = "jira.thumbnail.loaded"
    EventDeleteComplete    = "jira.delete.complete"
    EventCommentAdded      = "jira.comment.added"
)

type AttachmentsLoadedPayload struct {
    IssueKey    string              `json:"issueKey"`
    Attachments []domain.Attachment `json:"attachments"`
}

type ThumbnailLoadedPayload struct {
    IssueKey string `json:"issueKey"`
    ID       string `json:"id"`
    DataURI  string `json:"dataUri"`
}

type DeleteCompletePayload struct {
    IssueKey     string `json:"issueKey"`
    AttachmentID string `json:"attachmentId"`
}

type CommentAddedPayload struct {
    IssueKey string `json:"issueKey"`
    Href     string `json:"href"`
}

// EventSink carries one-way events to the panel UI.
type EventSink interface {
    Dispatch(name string, payload any)
}

type JiraClient interface {
    GetIssue(ctx context.Context, key string, opts jira.GetIssueOptions) (*domain.Issue, error)
    DeleteAttachment(ctx context.Context, attachmentID string) error
    DownloadAttachment(ctx context.Context, url, filename string, onProgress jira.ProgressFunc) (string, error)
    GetImageAsDataURI(ctx context.Context, url, mimeType string) (string, error)
    UploadAttachment(ctx context.Context, issueKey, path string, onProgress jira.ProgressFunc) (*domain.Attachment, error)
}

type Analytics interface {
    Post(ctx context.Context, name string, props map[string]any)
    PostMultiple(ctx context.Context, events []analytics.Event)
}

// Attachments reloads an issue's attachment list and fans out thumbnail
// fetches with bounded concurrency.
type Attachments struct {
    jira        JiraClient
    events      EventSink
    analytics   Analytics
    host        host.Host
    concurrency int
    log         zerolog.Logger

    // OnThumbnailError overrides the per-thumbnail failure policy. The
    // default logs and skips so one bad thumbnail never blocks siblings.
    OnThumbnailError func(issueKey string, att domain.Attachment, err error)

    fanOuts sync.WaitGroup
}

func NewAttachments(cfg config.Config, jc JiraClient, events EventSink, an Analytics, h host.Host, log zerolog.Logger) *Attachments {
    concurrency := cfg.ThumbnailConcurrency
    if concurrency <= 0 { concurrency = 4 }
    return &Attachments{
        jira:        jc,
        events:      events,
        analytics:   an,
        host:        h,
        concurrency: concurrency,
        log:         log,
    }
}

// TouchIssueAndReloadAttachments re-fetches the issue restricted to its
// attachment field, marking it recently viewed server-side. The refreshed
// list is published to the UI before the thumbnail fan-out starts; each
// thumbnail is then announced individually as it resolves. The fan-out
// outlives this call and is never cancelled by a superseding reload; stale
// thumbnail events are keyed by attachment id and idempotent to apply.
func (a *Attachments) TouchIssueAndReloadAttachments(ctx context.Context, issueKey string) (*domain.Issue, error) {
    issue, err := a.jira.GetIssue(ctx, issueKey, jira.GetIssueOptions{
        Fields:        []string{"attachment"},
        UpdateHistory: true,
    })
    if err != nil { return nil, err }
    a.events.Dispatch(EventAttachmentsLoaded, AttachmentsLoadedPayload{
        IssueKey:    issueKey,
        Attachments: issue.Attachments,
    })
    a.postLoadAnalytics(ctx, issue.Attachments)

    a.fanOuts.Add(1)
    go func(atts []domain.Attachment) {
        defer a.fanOuts.Done()
        a.loadThumbnails(context.WithoutCancel(ctx), issueKey, atts)
    }(issue.Attachments)
    return issue, nil
}

// Wait blocks until all in-flight thumbnail fan-outs have drained.
func (a *Attachments) Wait() { a.fanOuts.Wait() }

func (a *Attachments) postLoadAnalytics(ctx context.Context, atts []domain.Attachment) {
    events := make([]analytics.Event, 0, len(atts)+1)
    for _, att := range atts {
        events = append(events, analytics.Event{Name: "viewIssueAttachmentLoaded", Props: map[string]any{
            "mimeType":  att.MimeType,
            "thumbnail": att.Thumbnail != "",
            "size":      att.Size,
            "sizeHuman": humanize.Bytes(uint64(att.Size)),
        }})
    }
    events = append(events, analytics.Event{Name: "viewIssueAttachmentsLoaded", Props: map[string]any{"count": len(atts)}})
    a.analytics.PostMultiple(ctx, events)
}

// loadThumbnails fetches eligible thumbnails through a bounded worker pool.
// Completion order across thumbnails is unspecified.
func (a *Attachments) loadThumbnails(ctx context.Context, issueKey string, atts []domain.Attachment) {
    eligible := make([]domain.Attachment, 0, len(atts))
    for _, att := range atts {
        if att.Thumbnail != "" && att.MimeType != "" {
            eligible = append(eligible, att)
        }
    }
    if len(eligible) == 0 { return }
    workers := a.concurrency
    if workers > len(eligible) { workers = len(eligible) }
    jobs := make(chan domain.Attachment)
    var wg sync.WaitGroup
    for w := 0; w < workers; w++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for att := range jobs {
                a.loadThumbnail(ctx, issueKey, att)
            }
        }()
    }
    for _, att := range eligible { jobs <- att }
    close(jobs)
    wg.Wait()
}

func (a *Attachments) loadThumbnail(ctx context.Context, issueKey string, att domain.Attachment) {
    dataURI, err := a.jira.GetImageAsDataURI(ctx, att.Thumbnail, att.MimeType)
    if err != nil {
        if a.OnThumbnailError != nil {
            a.OnThumbnailError(issueKey, att, err)
            return
        }
        a.log.Warn().Err(err).Str("issue", issueKey).Str("attachment", att.ID).Msg("sync: thumbnail fetch failed, skipping")
        return
    }
    a.events.Dispatch(EventThumbnailLoaded, ThumbnailLoadedPayload{
        IssueKey: issueKey,
        ID:       att.ID,
        DataURI:  dataURI,
    })
}

// GetThumbnail fetches one thumbnail as a data URI on demand.
func (a *Attachments) GetThumbnail(ctx context.Context, url, mimeType string) (string, error) {
    return a.jira.GetImageAsDataURI(ctx, url, mimeType)
}

// DeleteAttachment removes an attachment server-side. When the delete is
// one half of a replace-with-new-upload sequence the completion event is
// suppressed so the UI doesn't flash an intermediate removed state.
func (a *Attachments) DeleteAttachment(ctx context.Context, issueKey, attachmentID string, isReplace bool) error {
    if err := a.jira.DeleteAttachment(ctx, attachmentID); err != nil { return err }
    if !isReplace {
        a.events.Dispatch(EventDeleteComplete, DeleteCompletePayload{
            IssueKey:     issueKey,
            AttachmentID: attachmentID,
        })
    }
    return nil
}

// OpenAttachment downloads the attachment with progress and hands the file
// to the OS default viewer. Failures propagate to the caller.
func (a *Attachments) OpenAttachment(ctx context.Context, url, filename string, onProgress jira.ProgressFunc) (string, error) {
    path, err := a.jira.DownloadAttachment(ctx, url, filename, onProgress)
    if err != nil { return "", err }
    if err := a.host.OpenInDefaultApp(path); err != nil { return "", err }
    a.analytics.Post(ctx, "viewIssueAttachmentOpen", nil)
    return path, nil
}
