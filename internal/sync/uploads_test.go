package sync

import (
    "context"
    "errors"
    "os"
    "path/filepath"
    "testing"

    "github.com/geekbank/jira-cloud-for-sketch/internal/adapters/jira"
    "github.com/geekbank/jira-cloud-for-sketch/internal/domain"
    "github.com/geekbank/jira-cloud-for-sketch/internal/mock"
    "github.com/rs/zerolog"
)

func TestUploadAttachmentLifecycle(t *testing.T) {
    jc := &mock.JiraClient{
        UploadAttachmentFunc: func(ctx context.Context, issueKey, path string, onProgress jira.ProgressFunc) (*domain.Attachment, error) {
            onProgress(0.25)
            onProgress(0.75)
            return &domain.Attachment{ID: "200", Filename: filepath.Base(path), MimeType: "image/png", Size: 42}, nil
        },
    }
    an := &mock.AnalyticsRecorder{}
    u := NewUploads(jc, &mock.Host{}, an, zerolog.Nop())

    var fractions []float64
    att, err := u.UploadAttachment(context.Background(), "PROJ-1", "/tmp/shot.png", func(f float64) {
        fractions = append(fractions, f)
    })
    if err != nil {
        t.Fatalf("UploadAttachment: %v", err)
    }
    if att.ID != "200" {
        t.Fatalf("expected server-confirmed attachment, got %+v", att)
    }
    if len(fractions) != 2 || fractions[0] != 0.25 || fractions[1] != 0.75 {
        t.Fatalf("unexpected progress callbacks: %v", fractions)
    }

    names := an.Names()
    if len(names) != 1 || names[0] != "viewIssueAttachmentUpload" {
        t.Fatalf("expected upload analytics event, got %v", names)
    }
}

func TestUploadAttachmentJobSnapshot(t *testing.T) {
    var jobID string
    u := NewUploads(&mock.JiraClient{
        UploadAttachmentFunc: func(ctx context.Context, issueKey, path string, onProgress jira.ProgressFunc) (*domain.Attachment, error) {
            return &domain.Attachment{ID: "1"}, nil
        },
    }, &mock.Host{}, &mock.AnalyticsRecorder{}, zerolog.Nop())
    if _, err := u.UploadAttachment(context.Background(), "PROJ-1", "/tmp/a.png", func(float64) {}); err != nil {
        t.Fatalf("UploadAttachment: %v", err)
    }
    for id := range u.jobs {
        jobID = id
    }
    job := u.Job(jobID)
    if job == nil {
        t.Fatal("expected job snapshot")
    }
    if job.State != domain.UploadSucceeded || job.Progress != 1 {
        t.Fatalf("unexpected terminal job: %+v", job)
    }
    if u.Job("unknown") != nil {
        t.Fatal("unknown job id must return nil")
    }
}

func TestUploadAttachmentFailureEndsJobFailed(t *testing.T) {
    want := errors.New("413 too large")
    u := NewUploads(&mock.JiraClient{
        UploadAttachmentFunc: func(ctx context.Context, issueKey, path string, onProgress jira.ProgressFunc) (*domain.Attachment, error) {
            return nil, want
        },
    }, &mock.Host{}, &mock.AnalyticsRecorder{}, zerolog.Nop())
    if _, err := u.UploadAttachment(context.Background(), "PROJ-1", "/tmp/a.png", nil); !errors.Is(err, want) {
        t.Fatalf("expected error to propagate, got %v", err)
    }
    for _, job := range u.jobs {
        if job.State != domain.UploadFailed || !errors.Is(job.Err, want) {
            t.Fatalf("unexpected failed job: %+v", job)
        }
    }
}

func TestUploadProgressMonotonicPerJob(t *testing.T) {
    var jobID string
    u := NewUploads(&mock.JiraClient{
        UploadAttachmentFunc: func(ctx context.Context, issueKey, path string, onProgress jira.ProgressFunc) (*domain.Attachment, error) {
            onProgress(0.6)
            onProgress(0.4) // out-of-order chunk ack, must not regress
            return nil, errors.New("interrupted")
        },
    }, &mock.Host{}, &mock.AnalyticsRecorder{}, zerolog.Nop())
    _, _ = u.UploadAttachment(context.Background(), "PROJ-1", "/tmp/a.png", nil)
    for id := range u.jobs {
        jobID = id
    }
    job := u.Job(jobID)
    if job.Progress != 0.6 {
        t.Fatalf("job progress regressed: %v", job.Progress)
    }
}

func TestDroppedFilesBecomePlaceholders(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "mock.png")
    if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
        t.Fatalf("write: %v", err)
    }
    h := &mock.Host{
        DroppedFilesFunc: func(ctx context.Context) ([]string, error) {
            return []string{path}, nil
        },
    }
    u := NewUploads(&mock.JiraClient{}, h, &mock.AnalyticsRecorder{}, zerolog.Nop())
    placeholders, err := u.DroppedFiles(context.Background())
    if err != nil {
        t.Fatalf("DroppedFiles: %v", err)
    }
    if len(placeholders) != 1 {
        t.Fatalf("expected 1 placeholder, got %d", len(placeholders))
    }
    p := placeholders[0]
    if !p.Uploading || p.ID != "" {
        t.Fatalf("placeholder must be uploading with no server id: %+v", p)
    }
    if p.Filename != "mock.png" || p.MimeType != "image/png" || p.Size != 5 {
        t.Fatalf("unexpected placeholder fields: %+v", p)
    }
    if p.LocalPath != path {
        t.Fatalf("expected local path retained, got %q", p.LocalPath)
    }
}
