package host

import (
    "context"
    "path/filepath"
    "testing"
)

func newTestStore(t *testing.T) *PropertyStore {
    t.Helper()
    s, err := OpenPropertyStore(filepath.Join(t.TempDir(), "props.db"))
    if err != nil {
        t.Fatalf("OpenPropertyStore: %v", err)
    }
    t.Cleanup(func() { s.Close() })
    return s
}

func TestPropertyStoreRoundTrip(t *testing.T) {
    s := newTestStore(t)
    ctx := context.Background()

    if err := s.SetLayerValue(ctx, "layer-1", PropLayerLastExportedIssue, "PROJ-1"); err != nil {
        t.Fatalf("SetLayerValue: %v", err)
    }
    got, err := s.LayerValue(ctx, "layer-1", PropLayerLastExportedIssue)
    if err != nil {
        t.Fatalf("LayerValue: %v", err)
    }
    if got != "PROJ-1" {
        t.Fatalf("LayerValue = %q, want PROJ-1", got)
    }

    if err := s.SetDocumentValue(ctx, "doc-1", PropDocumentLastViewedIssue, "PROJ-2"); err != nil {
        t.Fatalf("SetDocumentValue: %v", err)
    }
    got, err = s.DocumentValue(ctx, "doc-1", PropDocumentLastViewedIssue)
    if err != nil {
        t.Fatalf("DocumentValue: %v", err)
    }
    if got != "PROJ-2" {
        t.Fatalf("DocumentValue = %q, want PROJ-2", got)
    }
}

func TestPropertyStoreOverwrite(t *testing.T) {
    s := newTestStore(t)
    ctx := context.Background()

    for _, v := range []string{"PROJ-1", "PROJ-9"} {
        if err := s.SetLayerValue(ctx, "layer-1", PropLayerLastExportedIssue, v); err != nil {
            t.Fatalf("SetLayerValue(%q): %v", v, err)
        }
    }
    got, err := s.LayerValue(ctx, "layer-1", PropLayerLastExportedIssue)
    if err != nil {
        t.Fatalf("LayerValue: %v", err)
    }
    if got != "PROJ-9" {
        t.Fatalf("expected last write to win, got %q", got)
    }
}

func TestPropertyStoreAbsentKey(t *testing.T) {
    s := newTestStore(t)
    got, err := s.LayerValue(context.Background(), "untagged", PropLayerLastExportedIssue)
    if err != nil {
        t.Fatalf("LayerValue: %v", err)
    }
    if got != "" {
        t.Fatalf("absent tag must read as empty, got %q", got)
    }
}

func TestPropertyStoreScopesAreIndependent(t *testing.T) {
    s := newTestStore(t)
    ctx := context.Background()

    if err := s.SetLayerValue(ctx, "same-id", "k", "layer-value"); err != nil {
        t.Fatalf("SetLayerValue: %v", err)
    }
    if err := s.SetDocumentValue(ctx, "same-id", "k", "doc-value"); err != nil {
        t.Fatalf("SetDocumentValue: %v", err)
    }
    lv, _ := s.LayerValue(ctx, "same-id", "k")
    dv, _ := s.DocumentValue(ctx, "same-id", "k")
    if lv != "layer-value" || dv != "doc-value" {
        t.Fatalf("scopes bled into each other: layer=%q doc=%q", lv, dv)
    }
}
