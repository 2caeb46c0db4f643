/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "bytes"
    "context"
    "encoding/json"
    "net/http"
    "time"

    "github.com/geekbank/jira-cloud-for-sketch/internal/config"
    "github.com/rs/zerolog"
)

type Event struct {
    Name  string         `json:"event"`
    Props map[string]any `json:"properties,omitempty"`
}

// Client posts usage events to the analytics endpoint. Every call is fire
// and forget: failures are logged, never returned. A client with no URL
// configured drops everything.
type Client struct {
    url  string
    http *http.Client
    log  zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{url: cfg.AnalyticsURL, http: &http.Client{Timeout: 10 * time.Second}, log: log}
}

func (c *Client) Post(ctx context.Context, name string, props map[string]any) {
    c.PostMultiple(ctx, []Event{{Name: name, Props: props}})
}

func (c *Client) PostMultiple(ctx context.Context, events []Event) {
    if c.url == "" || len(events) == 0 { return }
    b, err := json.Marshal(map[string]any{"events": events})
    if err != nil {
        c.log.Error().Err(err).Msg("analytics: encoding events")
        return
    }
    req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(b))
    if err != nil {
        c.log.Error().Err(err).Msg("analytics: building request")
        return
    }
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(req)
    if err != nil {
        c.log.Warn().Err(err).Msg("analytics: post failed")
        return
    }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        c.log.Warn().Int("status", resp.StatusCode).Msg("analytics: post rejected")
    }
}
