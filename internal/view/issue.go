/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */

// Package view holds the per-issue client-side state: the attachment
// aggregate and the comment box. The view-model is the single writer of
// the attachment list; controllers only ever hand results back to it.
package view

import (
    "context"
    "errors"
    "strings"
    sy "sync"

    "github.com/geekbank/jira-cloud-for-sketch/internal/adapters/jira"
    "github.com/geekbank/jira-cloud-for-sketch/internal/domain"
    "github.com/geekbank/jira-cloud-for-sketch/internal/sync"
    "github.com/rs/zerolog"
)

var (
    ErrPostInFlight = errors.New("view: a comment post is already in flight")
    ErrEmptyComment = errors.New("view: comment text is empty")
)

type CommentPoster interface {
    AddComment(ctx context.Context, key, text string) (string, error)
}

// Bus is the subscription side of the panel event channel. Subscribe
// returns the function that removes the handler again.
type Bus interface {
    Subscribe(name string, fn func(payload any)) func()
}

type Analytics interface {
    Post(ctx context.Context, name string, props map[string]any)
}

type Issue struct {
    mu sy.Mutex

    issue       domain.Issue
    attachments []domain.Attachment

    commentText       string
    postingComment    bool
    postedCommentHref string

    sync      *sync.Attachments
    uploads   *sync.Uploads
    comments  CommentPoster
    events    sync.EventSink
    analytics Analytics
    log       zerolog.Logger
}

// NewIssue builds the view-model for one issue, merging the server fields
// with the initial attachment list.
func NewIssue(issue domain.Issue, attachments []domain.Attachment, atts *sync.Attachments, uploads *sync.Uploads, comments CommentPoster, events sync.EventSink, an Analytics, log zerolog.Logger) *Issue {
    v := &Issue{
        issue:     issue,
        sync:      atts,
        uploads:   uploads,
        comments:  comments,
        events:    events,
        analytics: an,
        log:       log,
    }
    v.attachments = append(v.attachments, attachments...)
    return v
}

func (v *Issue) Key() string { return v.issue.Key }

func (v *Issue) BrowseURL() string {
    v.mu.Lock()
    defer v.mu.Unlock()
    return v.issue.BrowseURL()
}

// Attachments returns a snapshot of the aggregate in order.
func (v *Issue) Attachments() []domain.Attachment {
    v.mu.Lock()
    defer v.mu.Unlock()
    out := make([]domain.Attachment, len(v.attachments))
    copy(out, v.attachments)
    return out
}

// OnSelected reloads the issue's attachments and merges the fresh server
// list into the aggregate, keeping in-flight uploads visible.
func (v *Issue) OnSelected(ctx context.Context) error {
    issue, err := v.sync.TouchIssueAndReloadAttachments(ctx, v.issue.Key)
    if err != nil { return err }
    v.mu.Lock()
    v.issue.Self = issue.Self
    if issue.Summary != "" { v.issue.Summary = issue.Summary }
    if issue.Status != "" { v.issue.Status = issue.Status }
    v.mu.Unlock()
    v.MergeReload(issue.Attachments)
    v.analytics.Post(ctx, "viewIssue", nil)
    return nil
}

// MergeReload replaces the aggregate with the server list while retaining
// every entry still uploading, uploading-first. An upload in progress must
// never visually disappear just because a concurrent reload fetched a list
// that doesn't contain it yet. Server entries are deduplicated by id.
func (v *Issue) MergeReload(server []domain.Attachment) {
    v.mu.Lock()
    defer v.mu.Unlock()
    merged := make([]domain.Attachment, 0, len(v.attachments)+len(server))
    for _, att := range v.attachments {
        if att.Uploading { merged = append(merged, att) }
    }
    seen := make(map[string]bool, len(server))
    for _, att := range server {
        if att.ID != "" && seen[att.ID] { continue }
        seen[att.ID] = true
        merged = append(merged, att)
    }
    v.attachments = merged
}

// Prepend puts an attachment at the front of the aggregate.
func (v *Issue) Prepend(att domain.Attachment) {
    v.mu.Lock()
    v.attachments = append([]domain.Attachment{att}, v.attachments...)
    v.mu.Unlock()
}

// IndexOf returns the position of the attachment with the given server id,
// or -1 when absent.
func (v *Issue) IndexOf(attachmentID string) int {
    v.mu.Lock()
    defer v.mu.Unlock()
    for i, att := range v.attachments {
        if att.ID == attachmentID { return i }
    }
    return -1
}

// RemoveByID splices out the attachment with the given server id.
func (v *Issue) RemoveByID(attachmentID string) bool {
    v.mu.Lock()
    defer v.mu.Unlock()
    for i, att := range v.attachments {
        if att.ID == attachmentID {
            v.attachments = append(v.attachments[:i], v.attachments[i+1:]...)
            return true
        }
    }
    return false
}

// ReplaceByID swaps the attachment with the given server id in place.
func (v *Issue) ReplaceByID(attachmentID string, att domain.Attachment) bool {
    v.mu.Lock()
    defer v.mu.Unlock()
    for i, a := range v.attachments {
        if a.ID == attachmentID {
            v.attachments[i] = att
            return true
        }
    }
    return false
}

// UploadDroppedFiles prepends a placeholder for every dropped file and
// starts the uploads concurrently. Each upload's lifecycle updates its own
// placeholder in place and survives the caller's request context.
func (v *Issue) UploadDroppedFiles(ctx context.Context) error {
    placeholders, err := v.uploads.DroppedFiles(ctx)
    if err != nil { return err }
    bg := context.WithoutCancel(ctx)
    for _, placeholder := range placeholders {
        v.Prepend(placeholder)
        go v.runUpload(bg, placeholder)
    }
    return nil
}

func (v *Issue) runUpload(ctx context.Context, placeholder domain.Attachment) {
    _, _ = v.runUploadWithProgress(ctx, placeholder, nil)
}

// UploadFile prepends a placeholder for the file at path and runs its
// upload to completion, returning the server-confirmed attachment.
func (v *Issue) UploadFile(ctx context.Context, path string, onProgress jira.ProgressFunc) (*domain.Attachment, error) {
    placeholder := v.uploads.Placeholder(path)
    v.Prepend(placeholder)
    return v.runUploadWithProgress(ctx, placeholder, onProgress)
}

func (v *Issue) runUploadWithProgress(ctx context.Context, placeholder domain.Attachment, onProgress jira.ProgressFunc) (*domain.Attachment, error) {
    att, err := v.uploads.UploadAttachment(ctx, v.issue.Key, placeholder.LocalPath, func(f float64) {
        v.updatePlaceholder(placeholder.LocalPath, func(a *domain.Attachment) {
            if f > a.Progress { a.Progress = f }
        })
        if onProgress != nil { onProgress(f) }
    })
    if err != nil {
        // leave the placeholder in a failed state for the UI to represent
        v.updatePlaceholder(placeholder.LocalPath, func(a *domain.Attachment) {
            a.Uploading = false
            a.Failed = true
        })
        return nil, err
    }
    v.resolvePlaceholder(placeholder.LocalPath, *att)
    return att, nil
}

// updatePlaceholder mutates the uploading entry identified by its local
// path. Placeholders have no server id until their upload resolves.
func (v *Issue) updatePlaceholder(localPath string, fn func(*domain.Attachment)) {
    v.mu.Lock()
    defer v.mu.Unlock()
    for i := range v.attachments {
        if v.attachments[i].LocalPath == localPath && v.attachments[i].ID == "" {
            fn(&v.attachments[i])
            return
        }
    }
}

// resolvePlaceholder transfers ownership of the confirmed attachment into
// the aggregate: the placeholder takes the server record's identity, and
// any duplicate of that id from a racing reload is removed.
func (v *Issue) resolvePlaceholder(localPath string, att domain.Attachment) {
    v.mu.Lock()
    defer v.mu.Unlock()
    for i := len(v.attachments) - 1; i >= 0; i-- {
        if v.attachments[i].ID == att.ID {
            v.attachments = append(v.attachments[:i], v.attachments[i+1:]...)
        }
    }
    for i := range v.attachments {
        if v.attachments[i].LocalPath == localPath && v.attachments[i].ID == "" {
            v.attachments[i] = att
            return
        }
    }
    // the placeholder is gone (user removed it); keep the confirmed record
    v.attachments = append([]domain.Attachment{att}, v.attachments...)
}

func (v *Issue) SetCommentText(text string) {
    v.mu.Lock()
    v.commentText = text
    v.mu.Unlock()
}

func (v *Issue) CommentText() string {
    v.mu.Lock()
    defer v.mu.Unlock()
    return v.commentText
}

func (v *Issue) PostedCommentHref() string {
    v.mu.Lock()
    defer v.mu.Unlock()
    return v.postedCommentHref
}

// PostComment submits the comment box. A second submission is refused
// while one is in flight, and whitespace-only text is refused before any
// call is made. On success the text is cleared and the posted comment's
// href recorded; the href is cleared whenever a new post begins.
func (v *Issue) PostComment(ctx context.Context) error {
    v.mu.Lock()
    if v.postingComment {
        v.mu.Unlock()
        return ErrPostInFlight
    }
    text := v.commentText
    if strings.TrimSpace(text) == "" {
        v.mu.Unlock()
        return ErrEmptyComment
    }
    v.postingComment = true
    v.postedCommentHref = ""
    v.mu.Unlock()

    href, err := v.comments.AddComment(ctx, v.issue.Key, text)
    if err != nil {
        v.mu.Lock()
        v.postingComment = false
        v.mu.Unlock()
        return err
    }
    v.OnCommentAdded(href)
    v.events.Dispatch(sync.EventCommentAdded, sync.CommentAddedPayload{IssueKey: v.issue.Key, Href: href})
    return nil
}

// OnCommentAdded applies a completed comment post to the comment box.
func (v *Issue) OnCommentAdded(href string) {
    v.mu.Lock()
    v.commentText = ""
    v.postingComment = false
    v.postedCommentHref = href
    v.mu.Unlock()
}

// OnDeleteComplete splices out the deleted attachment.
func (v *Issue) OnDeleteComplete(attachmentID string) {
    v.RemoveByID(attachmentID)
}

// Bind subscribes the view-model to the panel event channel for the
// lifetime of the view. The returned disposer removes every handler; call
// it on deactivation.
func (v *Issue) Bind(bus Bus) func() {
    offComment := bus.Subscribe(sync.EventCommentAdded, func(payload any) {
        if p, ok := payload.(sync.CommentAddedPayload); ok && p.IssueKey == v.issue.Key {
            v.OnCommentAdded(p.Href)
        }
    })
    offDelete := bus.Subscribe(sync.EventDeleteComplete, func(payload any) {
        if p, ok := payload.(sync.DeleteCompletePayload); ok && p.IssueKey == v.issue.Key {
            v.OnDeleteComplete(p.AttachmentID)
        }
    })
    return func() {
        offComment()
        offDelete()
    }
}
