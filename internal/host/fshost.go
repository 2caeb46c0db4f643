/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package host

import (
    "context"
    "fmt"
    "io"
    "os"
    "os/exec"
    "path/filepath"
    "runtime"
    "sort"
    "sync"
)

// FSHost is a filesystem-backed Host for tools that integrate over the
// bridge daemon: the tool pushes its document snapshot (selection plus
// pre-rendered slice files) before asking for an export, and drops files
// into a well-known directory for drag-and-drop uploads.
type FSHost struct {
    dropDir string

    mu  sync.RWMutex
    doc *Document
}

func NewFSHost(dropDir string) *FSHost {
    return &FSHost{dropDir: dropDir}
}

// SetDocument replaces the active document snapshot. A nil document means
// the tool has no document open.
func (h *FSHost) SetDocument(doc *Document) {
    h.mu.Lock()
    h.doc = doc
    h.mu.Unlock()
}

func (h *FSHost) Document(ctx context.Context) (*Document, error) {
    h.mu.RLock()
    defer h.mu.RUnlock()
    if h.doc == nil { return nil, ErrNoDocument }
    snapshot := *h.doc
    return &snapshot, nil
}

// RenderSlice copies the slice rendering the tool staged at SourcePath.
func (h *FSHost) RenderSlice(ctx context.Context, layerID string, slice Slice, path string) error {
    if slice.SourcePath == "" {
        return fmt.Errorf("host: slice %q of layer %s has no staged rendering", slice.Name, layerID)
    }
    src, err := os.Open(slice.SourcePath)
    if err != nil { return fmt.Errorf("host: opening staged slice: %w", err) }
    defer src.Close()
    dst, err := os.Create(path)
    if err != nil { return fmt.Errorf("host: writing slice: %w", err) }
    _, err = io.Copy(dst, src)
    if cerr := dst.Close(); err == nil { err = cerr }
    if err != nil { return fmt.Errorf("host: writing slice: %w", err) }
    return nil
}

// DroppedFiles lists the regular files currently in the drop directory,
// ordered by name for stable placeholder ordering.
func (h *FSHost) DroppedFiles(ctx context.Context) ([]string, error) {
    entries, err := os.ReadDir(h.dropDir)
    if os.IsNotExist(err) { return nil, nil }
    if err != nil { return nil, fmt.Errorf("host: reading drop dir: %w", err) }
    var files []string
    for _, e := range entries {
        if e.Type().IsRegular() {
            files = append(files, filepath.Join(h.dropDir, e.Name()))
        }
    }
    sort.Strings(files)
    return files, nil
}

func (h *FSHost) OpenInDefaultApp(path string) error {
    var cmd *exec.Cmd
    switch runtime.GOOS {
    case "darwin":
        cmd = exec.Command("open", path)
    case "windows":
        cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
    default:
        cmd = exec.Command("xdg-open", path)
    }
    if err := cmd.Start(); err != nil {
        return fmt.Errorf("host: opening %s: %w", path, err)
    }
    return nil
}
