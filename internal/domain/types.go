/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import "strings"

type Issue struct {
    Key         string       `json:"key"`
    Self        string       `json:"self"`
    Summary     string       `json:"summary,omitempty"`
    Status      string       `json:"status,omitempty"`
    Attachments []Attachment `json:"attachments"`
}

// BrowseURL derives the human-facing issue URL from the API self link by
// truncating at the REST path marker. Empty when Self has no such marker.
func (i *Issue) BrowseURL() string {
    idx := strings.Index(i.Self, "/rest/")
    if idx < 0 { return "" }
    return i.Self[:idx] + "/browse/" + i.Key
}

type Attachment struct {
    ID        string  `json:"id,omitempty"`
    Filename  string  `json:"filename"`
    MimeType  string  `json:"mimeType,omitempty"`
    Size      int64   `json:"size"`
    Thumbnail string  `json:"thumbnail,omitempty"`
    DataURI   string  `json:"dataUri,omitempty"`
    Uploading bool    `json:"uploading,omitempty"`
    Failed    bool    `json:"failed,omitempty"`
    Progress  float64 `json:"progress,omitempty"`

    // LocalPath is set on placeholders created from dropped or exported
    // files; it never round-trips to the server.
    LocalPath string `json:"-"`
}

type UploadState int

const (
    UploadPending UploadState = iota
    UploadRunning
    UploadSucceeded
    UploadFailed
)

func (s UploadState) String() string {
    switch s {
    case UploadPending:
        return "pending"
    case UploadRunning:
        return "uploading"
    case UploadSucceeded:
        return "succeeded"
    case UploadFailed:
        return "failed"
    default:
        return "unknown"
    }
}

type UploadJob struct {
    ID       string
    IssueKey string
    Path     string
    Filename string
    State    UploadState
    Progress float64
    Result   *Attachment
    Err      error
}

type User struct {
    AccountID   string `json:"accountId"`
    DisplayName string `json:"displayName"`
    AvatarURL   string `json:"avatarUrl,omitempty"`
}

type Profile struct {
    AccountID   string `json:"accountId"`
    DisplayName string `json:"displayName"`
    Email       string `json:"emailAddress,omitempty"`
    AvatarURL   string `json:"avatarUrl,omitempty"`
}

type Filter struct {
    ID   string `json:"id"`
    Name string `json:"name"`
    JQL  string `json:"jql,omitempty"`
}
