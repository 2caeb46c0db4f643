/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "os"
    "os/signal"
    "path/filepath"
    "syscall"

    "github.com/geekbank/jira-cloud-for-sketch/internal/adapters/analytics"
    "github.com/geekbank/jira-cloud-for-sketch/internal/adapters/jira"
    "github.com/geekbank/jira-cloud-for-sketch/internal/bridge"
    "github.com/geekbank/jira-cloud-for-sketch/internal/config"
    "github.com/geekbank/jira-cloud-for-sketch/internal/domain"
    "github.com/geekbank/jira-cloud-for-sketch/internal/export"
    "github.com/geekbank/jira-cloud-for-sketch/internal/host"
    "github.com/geekbank/jira-cloud-for-sketch/internal/jobs"
    "github.com/geekbank/jira-cloud-for-sketch/internal/logger"
    "github.com/geekbank/jira-cloud-for-sketch/internal/sync"
    "github.com/geekbank/jira-cloud-for-sketch/internal/view"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)

    if err := os.MkdirAll(filepath.Dir(cfg.HostStorePath), 0o755); err != nil {
        log.Fatal().Err(err).Msg("creating state dir")
    }
    store, err := host.OpenPropertyStore(cfg.HostStorePath)
    if err != nil { log.Fatal().Err(err).Msg("opening property store") }
    defer store.Close()

    // Adapters
    fsHost := host.NewFSHost(cfg.DropDir)
    jc := jira.NewClient(cfg, logger.Component(log, "jira"))
    an := analytics.NewClient(cfg, logger.Component(log, "analytics"))

    // Pipeline
    bus := bridge.NewBus()
    ex := export.NewEngine(cfg, fsHost, store, an, logger.Component(log, "export"))
    atts := sync.NewAttachments(cfg, jc, bus, an, fsHost, logger.Component(log, "sync"))
    ups := sync.NewUploads(jc, fsHost, an, logger.Component(log, "sync"))

    mk := func(key string) *view.Issue {
        return view.NewIssue(domain.Issue{Key: key}, nil, atts, ups, jc, bus, an, log)
    }
    h := bridge.NewHandlers(cfg, log, jc, ex, atts, ups, an, bus, fsHost, mk)
    router := bridge.NewRouter(cfg, log, h)

    cr := jobs.NewCron(cfg, log)
    cr.Start()
    defer cr.Stop()

    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("bridge server error") }
    }

    // let in-flight thumbnail fan-outs drain
    atts.Wait()
}
