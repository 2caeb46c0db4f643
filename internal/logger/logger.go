/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package logger

import (
    "os"
    "time"

    "github.com/geekbank/jira-cloud-for-sketch/internal/config"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
)

// New builds the daemon's root logger. Output goes to stderr so the bridge
// can be launched by the design tool without polluting its stdout pipe.
func New(cfg config.Config) zerolog.Logger {
    var logger zerolog.Logger
    if cfg.AppEnv == "dev" {
        output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
        logger = zerolog.New(output).With().Timestamp().Logger()
    } else {
        zerolog.TimeFieldFormat = time.RFC3339
        logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
    }
    log.Logger = logger
    return logger
}

// Component derives a sub-logger tagged with the pipeline component name.
func Component(parent zerolog.Logger, name string) zerolog.Logger {
    return parent.With().Str("component", name).Logger()
}
