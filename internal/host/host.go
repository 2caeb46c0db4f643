/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */

// Package host abstracts the design tool side of the bridge: the active
// document and layer selection, slice rendering, drag-and-drop files, and
// the per-layer / per-document key-value tags the tool persists.
package host

import (
    "context"
    "errors"
)

// ErrNoDocument is returned when no document can be resolved from the
// current tool context.
var ErrNoDocument = errors.New("host: no document in context")

// Property names under which issue tags are stored on host objects.
const (
    PropLayerLastExportedIssue  = "jira.issue.lastExported"
    PropDocumentLastViewedIssue = "jira.issue.lastViewed"
)

// Slice is one exportable rendering of a layer per its export
// configuration. SourcePath points at the rendering the tool produced.
type Slice struct {
    Name       string `json:"name"`
    Format     string `json:"format"`
    SourcePath string `json:"sourcePath,omitempty"`
}

type Layer struct {
    ID     string  `json:"id"`
    Name   string  `json:"name"`
    Slices []Slice `json:"slices,omitempty"`
}

// Document is a snapshot of the active document and its layer selection,
// in selection order.
type Document struct {
    ID        string  `json:"id"`
    Selection []Layer `json:"selection"`
}

type Host interface {
    // Document resolves the active document; ErrNoDocument when none.
    Document(ctx context.Context) (*Document, error)
    // RenderSlice writes a layer's rendered slice to path.
    RenderSlice(ctx context.Context, layerID string, slice Slice, path string) error
    // DroppedFiles returns the files of the current drag gesture.
    DroppedFiles(ctx context.Context) ([]string, error)
    // OpenInDefaultApp hands a local file to the OS default viewer.
    OpenInDefaultApp(path string) error
}

// Properties is the key-value tag storage the tool keeps on layers and
// documents. Absent keys yield empty strings, not errors.
type Properties interface {
    SetLayerValue(ctx context.Context, layerID, key, value string) error
    LayerValue(ctx context.Context, layerID, key string) (string, error)
    SetDocumentValue(ctx context.Context, documentID, key, value string) error
    DocumentValue(ctx context.Context, documentID, key string) (string, error)
}
