package jira

import (
    "context"
    "errors"
    "fmt"
    "testing"
)

func TestIsKindUnwrapsWrappedErrors(t *testing.T) {
    base := &Error{Kind: KindUnauthorized, Status: 401, Op: "getIssue"}
    wrapped := fmt.Errorf("reloading issue: %w", base)
    if !IsKind(wrapped, KindUnauthorized) {
        t.Fatal("IsKind must see through wrapping")
    }
    if IsKind(wrapped, KindNotFound) {
        t.Fatal("wrong kind matched")
    }
    if IsKind(errors.New("plain"), KindUnauthorized) {
        t.Fatal("plain errors have no kind")
    }
}

func TestTransportErrorCancelled(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    err := transportError(ctx, "getIssue", ctx.Err())
    if !IsKind(err, KindCancelled) {
        t.Fatalf("expected cancelled, got %v", err)
    }

    err = transportError(context.Background(), "getIssue", errors.New("connection refused"))
    if !IsKind(err, KindNetwork) {
        t.Fatalf("expected network, got %v", err)
    }
}

func TestErrorUnwrap(t *testing.T) {
    inner := errors.New("dial tcp: refused")
    err := &Error{Kind: KindNetwork, Op: "getIssue", Err: inner}
    if !errors.Is(err, inner) {
        t.Fatal("Unwrap must expose the cause")
    }
}
