package jira

import (
    "context"
    "encoding/base64"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/geekbank/jira-cloud-for-sketch/internal/config"
    "github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
    t.Helper()
    srv := httptest.NewServer(handler)
    t.Cleanup(srv.Close)
    cfg := config.Config{
        JiraBaseURL:     srv.URL,
        JiraPAT:         "test-token",
        HTTPTimeout:     5 * time.Second,
        DownloadTimeout: 5 * time.Second,
        DownloadDir:     t.TempDir(),
    }
    return NewClient(cfg, zerolog.Nop()), srv
}

func TestGetIssueMapsWireFields(t *testing.T) {
    c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/rest/api/2/issue/PROJ-1" {
            t.Errorf("unexpected path %s", r.URL.Path)
        }
        if got := r.URL.Query().Get("fields"); got != "attachment" {
            t.Errorf("fields = %q", got)
        }
        if got := r.URL.Query().Get("updateHistory"); got != "true" {
            t.Errorf("updateHistory = %q", got)
        }
        if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
            t.Errorf("Authorization = %q", got)
        }
        io.WriteString(w, `{
            "key": "PROJ-1",
            "self": "https://jira.example.com/rest/api/2/issue/10001",
            "fields": {
                "summary": "Export button misaligned",
                "status": {"name": "In Progress"},
                "attachment": [
                    {"id": "1", "filename": "shot.png", "mimeType": "image/png", "size": 2048,
                     "content": "/secure/attachment/1/shot.png", "thumbnail": "/secure/thumbnail/1"}
                ]
            }
        }`)
    }))
    issue, err := c.GetIssue(context.Background(), "PROJ-1", GetIssueOptions{Fields: []string{"attachment"}, UpdateHistory: true})
    if err != nil {
        t.Fatalf("GetIssue: %v", err)
    }
    if issue.Key != "PROJ-1" || issue.Summary != "Export button misaligned" || issue.Status != "In Progress" {
        t.Fatalf("unexpected issue: %+v", issue)
    }
    if len(issue.Attachments) != 1 {
        t.Fatalf("expected 1 attachment, got %d", len(issue.Attachments))
    }
    att := issue.Attachments[0]
    if att.ID != "1" || att.MimeType != "image/png" || att.Size != 2048 || att.Thumbnail != "/secure/thumbnail/1" {
        t.Fatalf("unexpected attachment: %+v", att)
    }
    if got := issue.BrowseURL(); got != "https://jira.example.com/browse/PROJ-1" {
        t.Fatalf("BrowseURL = %q", got)
    }
}

func TestGetIssueEmptyKey(t *testing.T) {
    c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        t.Error("no request expected")
    }))
    if _, err := c.GetIssue(context.Background(), "", GetIssueOptions{}); !IsKind(err, KindNotFound) {
        t.Fatalf("expected NotFound, got %v", err)
    }
}

func TestErrorKinds(t *testing.T) {
    tests := []struct {
        status int
        kind   Kind
    }{
        {http.StatusUnauthorized, KindUnauthorized},
        {http.StatusForbidden, KindUnauthorized},
        {http.StatusNotFound, KindNotFound},
    }
    for _, tt := range tests {
        c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            http.Error(w, "nope", tt.status)
        }))
        _, err := c.GetIssue(context.Background(), "PROJ-1", GetIssueOptions{})
        if !IsKind(err, tt.kind) {
            t.Errorf("status %d: expected kind %v, got %v", tt.status, tt.kind, err)
        }
        var je *Error
        if !errors.As(err, &je) || je.Status != tt.status {
            t.Errorf("status %d: expected status carried, got %v", tt.status, err)
        }
    }
}

func TestRetryOnServerError(t *testing.T) {
    attempts := 0
    c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        attempts++
        if attempts == 1 {
            http.Error(w, "flaky", http.StatusInternalServerError)
            return
        }
        io.WriteString(w, `{"key": "PROJ-1", "fields": {}}`)
    }))
    issue, err := c.GetIssue(context.Background(), "PROJ-1", GetIssueOptions{})
    if err != nil {
        t.Fatalf("GetIssue after retry: %v", err)
    }
    if attempts != 2 {
        t.Fatalf("expected 2 attempts, got %d", attempts)
    }
    if issue.Key != "PROJ-1" {
        t.Fatalf("unexpected issue: %+v", issue)
    }
}

func TestAddComment(t *testing.T) {
    c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodPost || r.URL.Path != "/rest/api/2/issue/PROJ-1/comment" {
            t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
        }
        var body map[string]string
        if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["body"] != "ship it" {
            t.Errorf("unexpected body %v (%v)", body, err)
        }
        io.WriteString(w, `{"self": "https://jira.example.com/rest/api/2/issue/10001/comment/7"}`)
    }))
    href, err := c.AddComment(context.Background(), "PROJ-1", "ship it")
    if err != nil {
        t.Fatalf("AddComment: %v", err)
    }
    if href != "https://jira.example.com/rest/api/2/issue/10001/comment/7" {
        t.Fatalf("href = %q", href)
    }
}

func TestLoadFiltersBareArray(t *testing.T) {
    c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/rest/api/2/filter/favourite" {
            t.Errorf("unexpected path %s", r.URL.Path)
        }
        io.WriteString(w, `[{"id": "10", "name": "My Open Issues", "jql": "assignee=currentUser()"}]`)
    }))
    filters, err := c.LoadFilters(context.Background())
    if err != nil {
        t.Fatalf("LoadFilters: %v", err)
    }
    if len(filters) != 1 || filters[0].ID != "10" || filters[0].Name != "My Open Issues" {
        t.Fatalf("unexpected filters: %+v", filters)
    }
}

func TestRunFilter(t *testing.T) {
    c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if got := r.URL.Query().Get("jql"); got != "filter=10" {
            t.Errorf("jql = %q", got)
        }
        io.WriteString(w, `{"issues": [{"key": "PROJ-1", "fields": {"summary": "one"}}, {"key": "PROJ-2", "fields": {"summary": "two"}}]}`)
    }))
    issues, err := c.RunFilter(context.Background(), "10")
    if err != nil {
        t.Fatalf("RunFilter: %v", err)
    }
    if len(issues) != 2 || issues[0].Key != "PROJ-1" || issues[1].Summary != "two" {
        t.Fatalf("unexpected issues: %+v", issues)
    }
}

func TestUploadAttachment(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "shot.png")
    if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
        t.Fatalf("write: %v", err)
    }

    c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/rest/api/2/issue/PROJ-1/attachments" {
            t.Errorf("unexpected path %s", r.URL.Path)
        }
        if got := r.Header.Get("X-Atlassian-Token"); got != "no-check" {
            t.Errorf("X-Atlassian-Token = %q", got)
        }
        if err := r.ParseMultipartForm(1 << 20); err != nil {
            t.Errorf("parse multipart: %v", err)
        }
        f, hdr, err := r.FormFile("file")
        if err != nil {
            t.Errorf("form file: %v", err)
        } else {
            defer f.Close()
            if hdr.Filename != "shot.png" {
                t.Errorf("filename = %q", hdr.Filename)
            }
            b, _ := io.ReadAll(f)
            if string(b) != "png-bytes" {
                t.Errorf("file body = %q", b)
            }
        }
        io.WriteString(w, `[{"id": "300", "filename": "shot.png", "mimeType": "image/png", "size": 9}]`)
    }))

    var fractions []float64
    att, err := c.UploadAttachment(context.Background(), "PROJ-1", path, func(f float64) {
        fractions = append(fractions, f)
    })
    if err != nil {
        t.Fatalf("UploadAttachment: %v", err)
    }
    if att.ID != "300" || att.Size != 9 {
        t.Fatalf("unexpected attachment: %+v", att)
    }
    if len(fractions) == 0 || fractions[len(fractions)-1] != 1.0 {
        t.Fatalf("expected progress ending at 1.0, got %v", fractions)
    }
    for i := 1; i < len(fractions); i++ {
        if fractions[i] < fractions[i-1] {
            t.Fatalf("progress regressed: %v", fractions)
        }
    }
}

func TestDeleteAttachment(t *testing.T) {
    deleted := false
    c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodDelete || r.URL.Path != "/rest/api/2/attachment/42" {
            t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
        }
        deleted = true
        w.WriteHeader(http.StatusNoContent)
    }))
    if err := c.DeleteAttachment(context.Background(), "42"); err != nil {
        t.Fatalf("DeleteAttachment: %v", err)
    }
    if !deleted {
        t.Fatal("expected delete request")
    }
}

func TestDownloadAttachment(t *testing.T) {
    body := "attachment-bytes"
    c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        io.WriteString(w, body)
    }))

    var fractions []float64
    path, err := c.DownloadAttachment(context.Background(), "/secure/attachment/1/a.png", "../evil/shot.png", func(f float64) {
        fractions = append(fractions, f)
    })
    if err != nil {
        t.Fatalf("DownloadAttachment: %v", err)
    }
    if filepath.Base(path) != "shot.png" {
        t.Fatalf("expected sanitized filename, got %q", path)
    }
    b, err := os.ReadFile(path)
    if err != nil || string(b) != body {
        t.Fatalf("unexpected file contents %q (%v)", b, err)
    }
    if len(fractions) == 0 || fractions[len(fractions)-1] != 1.0 {
        t.Fatalf("expected progress ending at 1.0, got %v", fractions)
    }
}

func TestGetImageAsDataURI(t *testing.T) {
    raw := []byte{0x89, 0x50, 0x4e, 0x47}
    c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Write(raw)
    }))
    uri, err := c.GetImageAsDataURI(context.Background(), "/secure/thumbnail/1", "image/png")
    if err != nil {
        t.Fatalf("GetImageAsDataURI: %v", err)
    }
    want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
    if uri != want {
        t.Fatalf("uri = %q, want %q", uri, want)
    }
}

func TestProgressReaderUnknownTotal(t *testing.T) {
    calls := 0
    r := newProgressReader(io.LimitReader(neverEnding{}, 64), -1, func(float64) { calls++ })
    if _, err := io.Copy(io.Discard, r); err != nil {
        t.Fatalf("copy: %v", err)
    }
    if calls != 0 {
        t.Fatalf("unknown totals must stay silent, got %d calls", calls)
    }
}

type neverEnding struct{}

func (neverEnding) Read(b []byte) (int, error) {
    for i := range b {
        b[i] = 'x'
    }
    return len(b), nil
}
