/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "bytes"
    "context"
    "encoding/base64"
    "encoding/json"
    "fmt"
    "io"
    "mime/multipart"
    "net/http"
    "net/url"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/geekbank/jira-cloud-for-sketch/internal/config"
    "github.com/geekbank/jira-cloud-for-sketch/internal/domain"
    "github.com/rs/zerolog"
)

// ProgressFunc receives a transfer fraction in [0,1]. Calls are monotonically
// non-decreasing for one transfer and end with 1.0 on success.
type ProgressFunc func(fraction float64)

type Client struct {
    baseURL     string
    token       string
    user        string
    pass        string
    http        *http.Client
    download    *http.Client
    downloadDir string
    log         zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        baseURL:     strings.TrimRight(cfg.JiraBaseURL, "/"),
        token:       cfg.JiraPAT,
        user:        cfg.JiraUsername,
        pass:        cfg.JiraPassword,
        http:        &http.Client{Timeout: cfg.HTTPTimeout},
        download:    &http.Client{Timeout: cfg.DownloadTimeout},
        downloadDir: cfg.DownloadDir,
        log:         log,
    }
}

func (c *Client) apiURL(path string, q url.Values) string {
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := c.baseURL + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) authorize(req *http.Request) {
    if c.token != "" {
        req.Header.Set("Authorization", "Bearer "+c.token)
    } else if c.user != "" && c.pass != "" {
        req.SetBasicAuth(c.user, c.pass)
    }
}

// doJSON performs a JSON request with retry and backoff on 429/5xx. A nil
// out discards the response body.
func (c *Client) doJSON(ctx context.Context, op, method, u string, body any, out any) error {
    var payload []byte
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return fmt.Errorf("jira %s: encoding body: %w", op, err) }
        payload = b
    }
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        var r io.Reader
        if payload != nil { r = bytes.NewReader(payload) }
        req, err := http.NewRequestWithContext(ctx, method, u, r)
        if err != nil { return fmt.Errorf("jira %s: %w", op, err) }
        if payload != nil { req.Header.Set("Content-Type", "application/json") }
        c.authorize(req)
        resp, err := c.http.Do(req)
        if err != nil {
            lastErr = transportError(ctx, op, err)
            if IsKind(lastErr, KindCancelled) { return lastErr }
        } else {
            err := c.consume(resp, op, out)
            var je *Error
            retry := false
            if err != nil {
                if e, ok := err.(*Error); ok && (e.Status == 429 || e.Status >= 500) { je, retry = e, true }
            }
            if !retry { return err }
            lastErr = je
        }
        // backoff before the next attempt
        select {
        case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
        case <-ctx.Done():
            return &Error{Kind: KindCancelled, Op: op, Err: ctx.Err()}
        }
    }
    return lastErr
}

func (c *Client) consume(resp *http.Response, op string, out any) error {
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        kind := kindFromStatus(resp.StatusCode)
        if kind == KindUnknown && resp.StatusCode == 429 { kind = KindServer }
        return &Error{Kind: kind, Status: resp.StatusCode, Op: op, Body: strings.TrimSpace(string(b))}
    }
    if out == nil {
        _, _ = io.Copy(io.Discard, resp.Body)
        return nil
    }
    if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
        return fmt.Errorf("jira %s: decoding response: %w", op, err)
    }
    return nil
}

// wire shapes

type wireIssue struct {
    Key    string `json:"key"`
    Self   string `json:"self"`
    Fields struct {
        Summary string `json:"summary"`
        Status  *struct {
            Name string `json:"name"`
        } `json:"status"`
        Attachment []wireAttachment `json:"attachment"`
    } `json:"fields"`
}

type wireAttachment struct {
    ID        string `json:"id"`
    Filename  string `json:"filename"`
    MimeType  string `json:"mimeType"`
    Size      int64  `json:"size"`
    Content   string `json:"content"`
    Thumbnail string `json:"thumbnail"`
}

func (w wireIssue) toDomain() *domain.Issue {
    issue := &domain.Issue{
        Key:     w.Key,
        Self:    w.Self,
        Summary: w.Fields.Summary,
    }
    if w.Fields.Status != nil { issue.Status = w.Fields.Status.Name }
    issue.Attachments = make([]domain.Attachment, 0, len(w.Fields.Attachment))
    for _, a := range w.Fields.Attachment {
        issue.Attachments = append(issue.Attachments, a.toDomain())
    }
    return issue
}

func (w wireAttachment) toDomain() domain.Attachment {
    return domain.Attachment{
        ID:        w.ID,
        Filename:  w.Filename,
        MimeType:  w.MimeType,
        Size:      w.Size,
        Thumbnail: w.Thumbnail,
    }
}

type GetIssueOptions struct {
    Fields        []string
    UpdateHistory bool
}

// GetIssue fetches one issue. UpdateHistory marks it recently viewed on the
// server as a side effect.
func (c *Client) GetIssue(ctx context.Context, key string, opts GetIssueOptions) (*domain.Issue, error) {
    if key == "" { return nil, &Error{Kind: KindNotFound, Op: "getIssue", Err: fmt.Errorf("empty issue key")} }
    q := url.Values{}
    if len(opts.Fields) > 0 { q.Set("fields", strings.Join(opts.Fields, ",")) }
    if opts.UpdateHistory { q.Set("updateHistory", "true") }
    u := c.apiURL("/rest/api/2/issue/"+url.PathEscape(key), q)
    var w wireIssue
    if err := c.doJSON(ctx, "getIssue", http.MethodGet, u, nil, &w); err != nil { return nil, err }
    return w.toDomain(), nil
}

// AddComment posts a comment and returns the new comment's href.
func (c *Client) AddComment(ctx context.Context, key, text string) (string, error) {
    u := c.apiURL("/rest/api/2/issue/"+url.PathEscape(key)+"/comment", nil)
    var out struct {
        Self string `json:"self"`
    }
    if err := c.doJSON(ctx, "addComment", http.MethodPost, u, map[string]any{"body": text}, &out); err != nil {
        return "", err
    }
    return out.Self, nil
}

func (c *Client) FindUsersForPicker(ctx context.Context, query string) ([]domain.User, error) {
    q := url.Values{}
    q.Set("query", query)
    q.Set("maxResults", "10")
    u := c.apiURL("/rest/api/2/user/picker", q)
    var out struct {
        Users []struct {
            AccountID   string `json:"accountId"`
            Name        string `json:"name"`
            DisplayName string `json:"displayName"`
            AvatarURL   string `json:"avatarUrl"`
        } `json:"users"`
    }
    if err := c.doJSON(ctx, "findUsersForPicker", http.MethodGet, u, nil, &out); err != nil { return nil, err }
    users := make([]domain.User, 0, len(out.Users))
    for _, u := range out.Users {
        id := u.AccountID
        if id == "" { id = u.Name }
        users = append(users, domain.User{AccountID: id, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL})
    }
    return users, nil
}

func (c *Client) GetProfile(ctx context.Context) (*domain.Profile, error) {
    u := c.apiURL("/rest/api/2/myself", nil)
    var out struct {
        AccountID   string            `json:"accountId"`
        Name        string            `json:"name"`
        DisplayName string            `json:"displayName"`
        Email       string            `json:"emailAddress"`
        AvatarURLs  map[string]string `json:"avatarUrls"`
    }
    if err := c.doJSON(ctx, "getProfile", http.MethodGet, u, nil, &out); err != nil { return nil, err }
    id := out.AccountID
    if id == "" { id = out.Name }
    return &domain.Profile{
        AccountID:   id,
        DisplayName: out.DisplayName,
        Email:       out.Email,
        AvatarURL:   out.AvatarURLs["48x48"],
    }, nil
}

func (c *Client) LoadFilters(ctx context.Context) ([]domain.Filter, error) {
    u := c.apiURL("/rest/api/2/filter/favourite", nil)
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
    if err != nil { return nil, fmt.Errorf("jira loadFilters: %w", err) }
    c.authorize(req)
    resp, err := c.http.Do(req)
    if err != nil { return nil, transportError(ctx, "loadFilters", err) }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        return nil, &Error{Kind: kindFromStatus(resp.StatusCode), Status: resp.StatusCode, Op: "loadFilters", Body: strings.TrimSpace(string(b))}
    }
    // this endpoint returns a bare array
    var out []struct {
        ID   string `json:"id"`
        Name string `json:"name"`
        JQL  string `json:"jql"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
        return nil, fmt.Errorf("jira loadFilters: decoding response: %w", err)
    }
    filters := make([]domain.Filter, 0, len(out))
    for _, f := range out {
        filters = append(filters, domain.Filter{ID: f.ID, Name: f.Name, JQL: f.JQL})
    }
    return filters, nil
}

// RunFilter executes a saved filter and returns issue summaries.
func (c *Client) RunFilter(ctx context.Context, filterID string) ([]domain.Issue, error) {
    q := url.Values{}
    q.Set("jql", "filter="+filterID)
    q.Set("fields", "summary,status")
    q.Set("maxResults", "50")
    u := c.apiURL("/rest/api/2/search", q)
    var out struct {
        Issues []wireIssue `json:"issues"`
    }
    if err := c.doJSON(ctx, "runFilter", http.MethodGet, u, nil, &out); err != nil { return nil, err }
    issues := make([]domain.Issue, 0, len(out.Issues))
    for _, w := range out.Issues {
        issues = append(issues, *w.toDomain())
    }
    return issues, nil
}

// UploadAttachment streams the file at path to the issue's attachment
// endpoint. onProgress tracks bytes read from the file, not the multipart
// envelope, so 1.0 means the whole file went out.
func (c *Client) UploadAttachment(ctx context.Context, issueKey, path string, onProgress ProgressFunc) (*domain.Attachment, error) {
    f, err := os.Open(path)
    if err != nil { return nil, &Error{Kind: KindNetwork, Op: "uploadAttachment", Err: err} }
    defer f.Close()
    st, err := f.Stat()
    if err != nil { return nil, &Error{Kind: KindNetwork, Op: "uploadAttachment", Err: err} }

    pr, pw := io.Pipe()
    mw := multipart.NewWriter(pw)
    go func() {
        part, err := mw.CreateFormFile("file", filepath.Base(path))
        if err != nil {
            pw.CloseWithError(err)
            return
        }
        _, err = io.Copy(part, newProgressReader(f, st.Size(), onProgress))
        if err != nil {
            pw.CloseWithError(err)
            return
        }
        pw.CloseWithError(mw.Close())
    }()

    u := c.apiURL("/rest/api/2/issue/"+url.PathEscape(issueKey)+"/attachments", nil)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, pr)
    if err != nil { return nil, fmt.Errorf("jira uploadAttachment: %w", err) }
    req.Header.Set("Content-Type", mw.FormDataContentType())
    req.Header.Set("X-Atlassian-Token", "no-check")
    c.authorize(req)
    resp, err := c.download.Do(req)
    if err != nil { return nil, transportError(ctx, "uploadAttachment", err) }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        return nil, &Error{Kind: kindFromStatus(resp.StatusCode), Status: resp.StatusCode, Op: "uploadAttachment", Body: strings.TrimSpace(string(b))}
    }
    // the endpoint returns an array with one element per uploaded file
    var out []wireAttachment
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
        return nil, fmt.Errorf("jira uploadAttachment: decoding response: %w", err)
    }
    if len(out) == 0 { return nil, &Error{Kind: KindServer, Op: "uploadAttachment", Err: fmt.Errorf("empty attachment response")} }
    att := out[0].toDomain()
    if onProgress != nil { onProgress(1.0) }
    return &att, nil
}

func (c *Client) DeleteAttachment(ctx context.Context, attachmentID string) error {
    u := c.apiURL("/rest/api/2/attachment/"+url.PathEscape(attachmentID), nil)
    return c.doJSON(ctx, "deleteAttachment", http.MethodDelete, u, nil, nil)
}

// DownloadAttachment streams the attachment at rawURL to a local file and
// returns its path. rawURL may be absolute (the server hands those out) or
// relative to the configured base URL.
func (c *Client) DownloadAttachment(ctx context.Context, rawURL, filename string, onProgress ProgressFunc) (string, error) {
    u := rawURL
    if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
        u = c.apiURL(u, nil)
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
    if err != nil { return "", fmt.Errorf("jira downloadAttachment: %w", err) }
    c.authorize(req)
    resp, err := c.download.Do(req)
    if err != nil { return "", transportError(ctx, "downloadAttachment", err) }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        return "", &Error{Kind: kindFromStatus(resp.StatusCode), Status: resp.StatusCode, Op: "downloadAttachment", Body: strings.TrimSpace(string(b))}
    }
    if err := os.MkdirAll(c.downloadDir, 0o755); err != nil {
        return "", fmt.Errorf("jira downloadAttachment: %w", err)
    }
    path := filepath.Join(c.downloadDir, sanitizeFilename(filename))
    out, err := os.Create(path)
    if err != nil { return "", fmt.Errorf("jira downloadAttachment: %w", err) }
    _, err = io.Copy(out, newProgressReader(resp.Body, resp.ContentLength, onProgress))
    if cerr := out.Close(); err == nil { err = cerr }
    if err != nil {
        os.Remove(path)
        return "", transportError(ctx, "downloadAttachment", err)
    }
    if onProgress != nil { onProgress(1.0) }
    return path, nil
}

// GetImageAsDataURI fetches thumbnail bytes and returns them as an
// embeddable data URI.
func (c *Client) GetImageAsDataURI(ctx context.Context, rawURL, mimeType string) (string, error) {
    u := rawURL
    if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
        u = c.apiURL(u, nil)
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
    if err != nil { return "", fmt.Errorf("jira getImageAsDataUri: %w", err) }
    c.authorize(req)
    resp, err := c.http.Do(req)
    if err != nil { return "", transportError(ctx, "getImageAsDataUri", err) }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        return "", &Error{Kind: kindFromStatus(resp.StatusCode), Status: resp.StatusCode, Op: "getImageAsDataUri", Body: strings.TrimSpace(string(b))}
    }
    data, err := io.ReadAll(resp.Body)
    if err != nil { return "", transportError(ctx, "getImageAsDataUri", err) }
    return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func sanitizeFilename(name string) string {
    name = filepath.Base(name)
    return strings.ReplaceAll(name, "/", "_")
}

// progressReader reports a monotonically non-decreasing fraction of bytes
// read against an expected total. Unknown totals (<= 0) report no progress
// until the caller's final 1.0.
type progressReader struct {
    r        io.Reader
    total    int64
    read     int64
    last     float64
    progress ProgressFunc
}

func newProgressReader(r io.Reader, total int64, progress ProgressFunc) *progressReader {
    return &progressReader{r: r, total: total, progress: progress}
}

func (p *progressReader) Read(b []byte) (int, error) {
    n, err := p.r.Read(b)
    if n > 0 && p.progress != nil && p.total > 0 {
        p.read += int64(n)
        f := float64(p.read) / float64(p.total)
        if f > 1 { f = 1 }
        if f > p.last {
            p.last = f
            p.progress(f)
        }
    }
    return n, err
}
