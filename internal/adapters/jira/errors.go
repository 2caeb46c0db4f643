/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "context"
    "errors"
    "fmt"
)

type Kind int

const (
    KindUnknown Kind = iota
    KindUnauthorized
    KindNotFound
    KindNetwork
    KindServer
    KindCancelled
)

func (k Kind) String() string {
    switch k {
    case KindUnauthorized:
        return "unauthorized"
    case KindNotFound:
        return "not_found"
    case KindNetwork:
        return "network"
    case KindServer:
        return "server"
    case KindCancelled:
        return "cancelled"
    default:
        return "unknown"
    }
}

// Error carries the failure taxonomy for every remote call. Status is zero
// when the failure happened before a response arrived.
type Error struct {
    Kind   Kind
    Status int
    Op     string
    Body   string
    Err    error
}

func (e *Error) Error() string {
    if e.Status > 0 {
        return fmt.Sprintf("jira %s: %s status=%d body=%s", e.Op, e.Kind, e.Status, e.Body)
    }
    if e.Err != nil { return fmt.Sprintf("jira %s: %s: %v", e.Op, e.Kind, e.Err) }
    return fmt.Sprintf("jira %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a jira error of the given kind.
func IsKind(err error, k Kind) bool {
    var je *Error
    if errors.As(err, &je) { return je.Kind == k }
    return false
}

func kindFromStatus(status int) Kind {
    switch {
    case status == 401 || status == 403:
        return KindUnauthorized
    case status == 404:
        return KindNotFound
    case status >= 500:
        return KindServer
    default:
        return KindUnknown
    }
}

func transportError(ctx context.Context, op string, err error) *Error {
    kind := KindNetwork
    if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
        kind = KindCancelled
    }
    return &Error{Kind: kind, Op: op, Err: err}
}
