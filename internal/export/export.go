/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */

// Package export turns the tool's layer selection into files on disk, using
// each layer's configured export slices, and tags exported layers with the
// issue they were exported for.
package export

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/geekbank/jira-cloud-for-sketch/internal/config"
    "github.com/geekbank/jira-cloud-for-sketch/internal/host"
    "github.com/rs/zerolog"
)

type Analytics interface {
    Post(ctx context.Context, name string, props map[string]any)
}

type Engine struct {
    host      host.Host
    props     host.Properties
    tmpRoot   string
    analytics Analytics
    log       zerolog.Logger
}

func NewEngine(cfg config.Config, h host.Host, props host.Properties, an Analytics, log zerolog.Logger) *Engine {
    return &Engine{host: h, props: props, tmpRoot: cfg.ExportTmpRoot, analytics: an, log: log}
}

// ExportSelection exports every slice of every selected layer to a fresh
// timestamped directory and tags each layer with issueKey. Layers are
// processed sequentially in selection order. The whole operation is best
// effort: an unresolvable document yields an empty result, and a failing
// tag write never aborts the remaining layers.
func (e *Engine) ExportSelection(ctx context.Context, issueKey string) []string {
    doc, err := e.host.Document(ctx)
    if err != nil {
        e.log.Error().Err(err).Msg("export: couldn't resolve document from context")
        return nil
    }
    dir := filepath.Join(e.tmpRoot, fmt.Sprintf("export-%d", time.Now().UnixMilli()))
    if err := os.MkdirAll(dir, 0o755); err != nil {
        e.log.Error().Err(err).Str("dir", dir).Msg("export: creating export dir")
        return nil
    }
    var exported []string
    layerCount := 0
    for _, layer := range doc.Selection {
        exported = append(exported, e.exportLayer(ctx, layer, dir)...)
        if err := e.props.SetLayerValue(ctx, layer.ID, host.PropLayerLastExportedIssue, issueKey); err != nil {
            e.log.Error().Err(err).Str("layer", layer.ID).Msg("export: tagging layer failed")
        }
        layerCount++
    }
    e.log.Debug().Int("assets", len(exported)).Str("dir", dir).Msg("export: exported selection")
    if layerCount > 1 {
        e.analytics.Post(ctx, "exportSelectedLayers", map[string]any{"count": layerCount})
    } else {
        e.analytics.Post(ctx, "exportSelectedLayer", nil)
    }
    return exported
}

func (e *Engine) exportLayer(ctx context.Context, layer host.Layer, dir string) []string {
    var paths []string
    for _, slice := range layer.Slices {
        path := filepath.Join(dir, filenameForSlice(slice))
        if err := e.host.RenderSlice(ctx, layer.ID, slice, path); err != nil {
            e.log.Error().Err(err).Str("layer", layer.ID).Str("slice", slice.Name).Msg("export: rendering slice failed")
            continue
        }
        paths = append(paths, path)
    }
    if len(paths) > 1 {
        e.analytics.Post(ctx, "exportMultipleFormats", map[string]any{"count": len(paths)})
    } else {
        e.analytics.Post(ctx, "exportSingleFormat", nil)
    }
    return paths
}

// filenameForSlice derives a filesystem-safe name: path separators in the
// configured slice name become underscores, the format becomes the
// extension. Collisions between identical slice names are not resolved.
func filenameForSlice(slice host.Slice) string {
    return strings.ReplaceAll(slice.Name, "/", "_") + "." + slice.Format
}

// LastExportedIssueForSelection returns the issue tag of the first selected
// layer carrying one, or "" when no layer is tagged or nothing is selected.
func (e *Engine) LastExportedIssueForSelection(ctx context.Context) string {
    doc, err := e.host.Document(ctx)
    if err != nil {
        e.log.Error().Err(err).Msg("export: couldn't resolve document from context")
        return ""
    }
    for _, layer := range doc.Selection {
        key, err := e.props.LayerValue(ctx, layer.ID, host.PropLayerLastExportedIssue)
        if err != nil {
            e.log.Error().Err(err).Str("layer", layer.ID).Msg("export: reading layer tag")
            continue
        }
        if key != "" { return key }
    }
    return ""
}

// SetLastViewedIssueForDocument records issueKey on the active document.
func (e *Engine) SetLastViewedIssueForDocument(ctx context.Context, issueKey string) {
    doc, err := e.host.Document(ctx)
    if err != nil {
        e.log.Error().Err(err).Msg("export: couldn't resolve document from context")
        return
    }
    if err := e.props.SetDocumentValue(ctx, doc.ID, host.PropDocumentLastViewedIssue, issueKey); err != nil {
        e.log.Error().Err(err).Str("document", doc.ID).Msg("export: tagging document failed")
    }
}

// LastViewedIssueForDocument returns the active document's last viewed
// issue, or "" when none is recorded.
func (e *Engine) LastViewedIssueForDocument(ctx context.Context) string {
    doc, err := e.host.Document(ctx)
    if err != nil {
        e.log.Error().Err(err).Msg("export: couldn't resolve document from context")
        return ""
    }
    key, err := e.props.DocumentValue(ctx, doc.ID, host.PropDocumentLastViewedIssue)
    if err != nil {
        e.log.Error().Err(err).Str("document", doc.ID).Msg("export: reading document tag")
        return ""
    }
    return key
}

// AreLayersSelected reports whether the selection is non-empty.
func (e *Engine) AreLayersSelected(ctx context.Context) bool {
    doc, err := e.host.Document(ctx)
    if err != nil { return false }
    return len(doc.Selection) > 0
}
