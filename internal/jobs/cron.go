/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
    "os"
    "path/filepath"
    "time"

    "github.com/geekbank/jira-cloud-for-sketch/internal/config"
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"
)

// Cron periodically sweeps stale export directories. Exports are
// one-shot temp artifacts; anything older than the TTL is safe to drop.
type Cron struct {
    cfg config.Config
    log zerolog.Logger
    c   *cron.Cron
}

func NewCron(cfg config.Config, log zerolog.Logger) *Cron {
    c := cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)))
    cr := &Cron{cfg: cfg, log: log, c: c}
    _, _ = c.AddFunc(cfg.CleanupCron, cr.sweep)
    return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

func (cr *Cron) sweep() {
    cutoff := time.Now().Add(-cr.cfg.ExportTTL)
    n, err := SweepExportDirs(cr.cfg.ExportTmpRoot, cutoff)
    if err != nil {
        cr.log.Error().Err(err).Msg("cron: export sweep failed")
        return
    }
    if n > 0 { cr.log.Info().Int("removed", n).Msg("cron: swept stale export dirs") }
}

// SweepExportDirs removes export directories modified before cutoff and
// returns how many were removed.
func SweepExportDirs(root string, cutoff time.Time) (int, error) {
    entries, err := os.ReadDir(root)
    if os.IsNotExist(err) { return 0, nil }
    if err != nil { return 0, err }
    removed := 0
    for _, e := range entries {
        if !e.IsDir() { continue }
        info, err := e.Info()
        if err != nil { continue }
        if info.ModTime().Before(cutoff) {
            if err := os.RemoveAll(filepath.Join(root, e.Name())); err == nil { removed++ }
        }
    }
    return removed, nil
}
