/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
    "os"
    "path/filepath"
    "strconv"
    "time"
)

type Config struct {
    AppEnv   string
    HTTPAddr string

    JiraBaseURL  string
    JiraPAT      string
    JiraUsername string
    JiraPassword string

    HTTPTimeout     time.Duration
    DownloadTimeout time.Duration

    ThumbnailConcurrency int

    ExportTmpRoot string
    ExportTTL     time.Duration
    CleanupCron   string

    AnalyticsURL string

    HostStorePath string
    DropDir       string
    DownloadDir   string
}

func getenv(key, def string) string {
    v := os.Getenv(key)
    if v == "" { return def }
    return v
}

func atoi(key string, def int) int {
    v := os.Getenv(key)
    if v == "" { return def }
    i, err := strconv.Atoi(v)
    if err != nil { return def }
    return i
}

func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" { return def }
    d, err := time.ParseDuration(v)
    if err != nil { return def }
    return d
}

func Load() Config {
    stateDir := getenv("SKETCH_JIRA_STATE_DIR", filepath.Join(os.TempDir(), "jira-sketch"))
    return Config{
        AppEnv:   getenv("APP_ENV", "dev"),
        HTTPAddr: getenv("HTTP_ADDR", "127.0.0.1:41745"),

        JiraBaseURL:  getenv("JIRA_BASE_URL", ""),
        JiraPAT:      getenv("JIRA_PAT", ""),
        JiraUsername: getenv("JIRA_USERNAME", ""),
        JiraPassword: getenv("JIRA_PASSWORD", ""),

        HTTPTimeout:     dur("HTTP_TIMEOUT", 15*time.Second),
        DownloadTimeout: dur("DOWNLOAD_TIMEOUT", 5*time.Minute),

        ThumbnailConcurrency: atoi("THUMBNAIL_CONCURRENCY", 4),

        ExportTmpRoot: getenv("EXPORT_TMP_ROOT", filepath.Join(stateDir, "exports")),
        ExportTTL:     dur("EXPORT_TTL", 24*time.Hour),
        CleanupCron:   getenv("CLEANUP_CRON", "0 * * * *"),

        AnalyticsURL: getenv("ANALYTICS_URL", ""),

        HostStorePath: getenv("HOST_STORE_PATH", filepath.Join(stateDir, "host.db")),
        DropDir:       getenv("DROP_DIR", filepath.Join(stateDir, "drops")),
        DownloadDir:   getenv("DOWNLOAD_DIR", filepath.Join(stateDir, "downloads")),
    }
}
