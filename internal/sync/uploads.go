/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package sync

import (
    "context"
    "mime"
    "os"
    "path/filepath"
    "sync"

    "github.com/geekbank/jira-cloud-for-sketch/internal/adapters/jira"
    "github.com/geekbank/jira-cloud-for-sketch/internal/domain"
    "github.com/geekbank/jira-cloud-for-sketch/internal/host"
    "github.com/google/uuid"
    "github.com/rs/zerolog"
)

// Uploads streams files to issue attachment endpoints and tracks one job
// per transfer. It never mutates any shared attachment list: results are
// returned to the caller (the view-model) which owns that state.
type Uploads struct {
    jira      JiraClient
    host      host.Host
    analytics Analytics
    log       zerolog.Logger

    mu   sync.Mutex
    jobs map[string]*domain.UploadJob
}

func NewUploads(jc JiraClient, h host.Host, an Analytics, log zerolog.Logger) *Uploads {
    return &Uploads{jira: jc, host: h, analytics: an, log: log, jobs: make(map[string]*domain.UploadJob)}
}

// UploadAttachment streams the file at path to the issue and returns the
// server-confirmed attachment. Progress callbacks are monotonic for this
// job and unordered relative to other jobs. On failure the job ends in the
// failed state and the error propagates; the caller decides what happens
// to its placeholder.
func (u *Uploads) UploadAttachment(ctx context.Context, issueKey, path string, onProgress jira.ProgressFunc) (*domain.Attachment, error) {
    job := &domain.UploadJob{
        ID:       uuid.NewString(),
        IssueKey: issueKey,
        Path:     path,
        Filename: filepath.Base(path),
        State:    domain.UploadPending,
    }
    u.mu.Lock()
    u.jobs[job.ID] = job
    u.mu.Unlock()

    u.setState(job, domain.UploadRunning)
    att, err := u.jira.UploadAttachment(ctx, issueKey, path, func(f float64) {
        u.mu.Lock()
        if f > job.Progress { job.Progress = f }
        u.mu.Unlock()
        if onProgress != nil { onProgress(f) }
    })
    if err != nil {
        u.mu.Lock()
        job.State = domain.UploadFailed
        job.Err = err
        u.mu.Unlock()
        u.log.Error().Err(err).Str("issue", issueKey).Str("file", job.Filename).Msg("sync: upload failed")
        return nil, err
    }
    u.mu.Lock()
    job.State = domain.UploadSucceeded
    job.Progress = 1
    job.Result = att
    u.mu.Unlock()
    u.analytics.Post(ctx, "viewIssueAttachmentUpload", map[string]any{"mimeType": att.MimeType, "size": att.Size})
    return att, nil
}

func (u *Uploads) setState(job *domain.UploadJob, s domain.UploadState) {
    u.mu.Lock()
    job.State = s
    u.mu.Unlock()
}

// Job returns a snapshot of one upload job, or nil when unknown.
func (u *Uploads) Job(id string) *domain.UploadJob {
    u.mu.Lock()
    defer u.mu.Unlock()
    job, ok := u.jobs[id]
    if !ok { return nil }
    snapshot := *job
    return &snapshot
}

// DroppedFiles wraps the host's current drag-and-drop files as uploading
// placeholders so the view layer can render them immediately and start
// each upload independently.
func (u *Uploads) DroppedFiles(ctx context.Context) ([]domain.Attachment, error) {
    files, err := u.host.DroppedFiles(ctx)
    if err != nil { return nil, err }
    placeholders := make([]domain.Attachment, 0, len(files))
    for _, path := range files {
        placeholders = append(placeholders, u.Placeholder(path))
    }
    return placeholders, nil
}

// Placeholder wraps one local file as a not-yet-confirmed attachment.
func (u *Uploads) Placeholder(path string) domain.Attachment {
    att := domain.Attachment{
        Filename:  filepath.Base(path),
        MimeType:  mime.TypeByExtension(filepath.Ext(path)),
        Uploading: true,
        LocalPath: path,
    }
    if st, err := os.Stat(path); err == nil { att.Size = st.Size() }
    return att
}
