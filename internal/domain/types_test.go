package domain

import "testing"

func TestBrowseURL(t *testing.T) {
    tests := []struct {
        name string
        self string
        key  string
        want string
    }{
        {
            name: "standard self link",
            self: "https://jira.example.com/rest/api/2/issue/10001",
            key:  "PROJ-1",
            want: "https://jira.example.com/browse/PROJ-1",
        },
        {
            name: "context path before the marker",
            self: "https://example.com/jira/rest/api/2/issue/7",
            key:  "OPS-7",
            want: "https://example.com/jira/browse/OPS-7",
        },
        {
            name: "no marker",
            self: "https://example.com/issue/7",
            key:  "OPS-7",
            want: "",
        },
        {
            name: "empty self",
            key:  "OPS-7",
            want: "",
        },
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            i := Issue{Key: tt.key, Self: tt.self}
            if got := i.BrowseURL(); got != tt.want {
                t.Fatalf("BrowseURL() = %q, want %q", got, tt.want)
            }
        })
    }
}

func TestUploadStateString(t *testing.T) {
    states := map[UploadState]string{
        UploadPending:   "pending",
        UploadRunning:   "uploading",
        UploadSucceeded: "succeeded",
        UploadFailed:    "failed",
        UploadState(99): "unknown",
    }
    for s, want := range states {
        if got := s.String(); got != want {
            t.Errorf("%d.String() = %q, want %q", s, got, want)
        }
    }
}
