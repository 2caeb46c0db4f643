// Package mock provides hand-rolled test doubles for the pipeline's
// collaborator interfaces.
package mock

import (
    "context"
    "sync"

    "github.com/geekbank/jira-cloud-for-sketch/internal/adapters/analytics"
    "github.com/geekbank/jira-cloud-for-sketch/internal/adapters/jira"
    "github.com/geekbank/jira-cloud-for-sketch/internal/domain"
    "github.com/geekbank/jira-cloud-for-sketch/internal/host"
)

// JiraClient is a function-field mock of the remote issue client.
type JiraClient struct {
    GetIssueFunc           func(ctx context.Context, key string, opts jira.GetIssueOptions) (*domain.Issue, error)
    AddCommentFunc         func(ctx context.Context, key, text string) (string, error)
    FindUsersForPickerFunc func(ctx context.Context, query string) ([]domain.User, error)
    GetProfileFunc         func(ctx context.Context) (*domain.Profile, error)
    LoadFiltersFunc        func(ctx context.Context) ([]domain.Filter, error)
    RunFilterFunc          func(ctx context.Context, filterID string) ([]domain.Issue, error)
    UploadAttachmentFunc   func(ctx context.Context, issueKey, path string, onProgress jira.ProgressFunc) (*domain.Attachment, error)
    DeleteAttachmentFunc   func(ctx context.Context, attachmentID string) error
    DownloadAttachmentFunc func(ctx context.Context, url, filename string, onProgress jira.ProgressFunc) (string, error)
    GetImageAsDataURIFunc  func(ctx context.Context, url, mimeType string) (string, error)
}

func (m *JiraClient) GetIssue(ctx context.Context, key string, opts jira.GetIssueOptions) (*domain.Issue, error) {
    if m.GetIssueFunc != nil { return m.GetIssueFunc(ctx, key, opts) }
    return &domain.Issue{Key: key}, nil
}

func (m *JiraClient) AddComment(ctx context.Context, key, text string) (string, error) {
    if m.AddCommentFunc != nil { return m.AddCommentFunc(ctx, key, text) }
    return "", nil
}

func (m *JiraClient) FindUsersForPicker(ctx context.Context, query string) ([]domain.User, error) {
    if m.FindUsersForPickerFunc != nil { return m.FindUsersForPickerFunc(ctx, query) }
    return nil, nil
}

func (m *JiraClient) GetProfile(ctx context.Context) (*domain.Profile, error) {
    if m.GetProfileFunc != nil { return m.GetProfileFunc(ctx) }
    return &domain.Profile{}, nil
}

func (m *JiraClient) LoadFilters(ctx context.Context) ([]domain.Filter, error) {
    if m.LoadFiltersFunc != nil { return m.LoadFiltersFunc(ctx) }
    return nil, nil
}

func (m *JiraClient) RunFilter(ctx context.Context, filterID string) ([]domain.Issue, error) {
    if m.RunFilterFunc != nil { return m.RunFilterFunc(ctx, filterID) }
    return nil, nil
}

func (m *JiraClient) UploadAttachment(ctx context.Context, issueKey, path string, onProgress jira.ProgressFunc) (*domain.Attachment, error) {
    if m.UploadAttachmentFunc != nil { return m.UploadAttachmentFunc(ctx, issueKey, path, onProgress) }
    return &domain.Attachment{}, nil
}

func (m *JiraClient) DeleteAttachment(ctx context.Context, attachmentID string) error {
    if m.DeleteAttachmentFunc != nil { return m.DeleteAttachmentFunc(ctx, attachmentID) }
    return nil
}

func (m *JiraClient) DownloadAttachment(ctx context.Context, url, filename string, onProgress jira.ProgressFunc) (string, error) {
    if m.DownloadAttachmentFunc != nil { return m.DownloadAttachmentFunc(ctx, url, filename, onProgress) }
    return "", nil
}

func (m *JiraClient) GetImageAsDataURI(ctx context.Context, url, mimeType string) (string, error) {
    if m.GetImageAsDataURIFunc != nil { return m.GetImageAsDataURIFunc(ctx, url, mimeType) }
    return "", nil
}

// Host is a function-field mock of the design tool host.
type Host struct {
    DocumentFunc         func(ctx context.Context) (*host.Document, error)
    RenderSliceFunc      func(ctx context.Context, layerID string, slice host.Slice, path string) error
    DroppedFilesFunc     func(ctx context.Context) ([]string, error)
    OpenInDefaultAppFunc func(path string) error
}

func (m *Host) Document(ctx context.Context) (*host.Document, error) {
    if m.DocumentFunc != nil { return m.DocumentFunc(ctx) }
    return nil, host.ErrNoDocument
}

func (m *Host) RenderSlice(ctx context.Context, layerID string, slice host.Slice, path string) error {
    if m.RenderSliceFunc != nil { return m.RenderSliceFunc(ctx, layerID, slice, path) }
    return nil
}

func (m *Host) DroppedFiles(ctx context.Context) ([]string, error) {
    if m.DroppedFilesFunc != nil { return m.DroppedFilesFunc(ctx) }
    return nil, nil
}

func (m *Host) OpenInDefaultApp(path string) error {
    if m.OpenInDefaultAppFunc != nil { return m.OpenInDefaultAppFunc(path) }
    return nil
}

// Properties is an in-memory host tag store.
type Properties struct {
    mu     sync.Mutex
    layers map[string]map[string]string
    docs   map[string]map[string]string

    SetLayerValueErr error
}

func NewProperties() *Properties {
    return &Properties{
        layers: make(map[string]map[string]string),
        docs:   make(map[string]map[string]string),
    }
}

func (p *Properties) SetLayerValue(ctx context.Context, layerID, key, value string) error {
    if p.SetLayerValueErr != nil { return p.SetLayerValueErr }
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.layers[layerID] == nil { p.layers[layerID] = make(map[string]string) }
    p.layers[layerID][key] = value
    return nil
}

func (p *Properties) LayerValue(ctx context.Context, layerID, key string) (string, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    return p.layers[layerID][key], nil
}

func (p *Properties) SetDocumentValue(ctx context.Context, documentID, key, value string) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.docs[documentID] == nil { p.docs[documentID] = make(map[string]string) }
    p.docs[documentID][key] = value
    return nil
}

func (p *Properties) DocumentValue(ctx context.Context, documentID, key string) (string, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    return p.docs[documentID][key], nil
}

// EventRecorder captures dispatched UI events in order.
type EventRecorder struct {
    mu     sync.Mutex
    Events []RecordedEvent
}

type RecordedEvent struct {
    Name    string
    Payload any
}

func (r *EventRecorder) Dispatch(name string, payload any) {
    r.mu.Lock()
    r.Events = append(r.Events, RecordedEvent{Name: name, Payload: payload})
    r.mu.Unlock()
}

// Named returns the recorded events with the given name, in order.
func (r *EventRecorder) Named(name string) []RecordedEvent {
    r.mu.Lock()
    defer r.mu.Unlock()
    var out []RecordedEvent
    for _, e := range r.Events {
        if e.Name == name { out = append(out, e) }
    }
    return out
}

// AnalyticsRecorder captures fire-and-forget usage events.
type AnalyticsRecorder struct {
    mu     sync.Mutex
    Events []analytics.Event
}

func (r *AnalyticsRecorder) Post(ctx context.Context, name string, props map[string]any) {
    r.PostMultiple(ctx, []analytics.Event{{Name: name, Props: props}})
}

func (r *AnalyticsRecorder) PostMultiple(ctx context.Context, events []analytics.Event) {
    r.mu.Lock()
    r.Events = append(r.Events, events...)
    r.mu.Unlock()
}

// Names returns the recorded event names in order.
func (r *AnalyticsRecorder) Names() []string {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := make([]string, 0, len(r.Events))
    for _, e := range r.Events {
        out = append(out, e.Name)
    }
    return out
}
