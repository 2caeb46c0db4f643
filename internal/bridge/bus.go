/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */

// Package bridge is the transport between the panel UI and the pipeline:
// request/response routes plus a one-way event channel streamed over SSE.
package bridge

import "sync"

// Envelope is one UI-bound event on the wire.
type Envelope struct {
    Name    string `json:"name"`
    Payload any    `json:"payload"`
}

// Bus fans UI-bound events out to subscribers. Dispatch is synchronous so
// event order is preserved end to end (the attachment list event must reach
// the panel before any thumbnail event from the same reload).
type Bus struct {
    mu     sync.Mutex
    nextID int
    subs   map[string]map[int]func(payload any)
    taps   map[int]func(Envelope)
}

func NewBus() *Bus {
    return &Bus{
        subs: make(map[string]map[int]func(payload any)),
        taps: make(map[int]func(Envelope)),
    }
}

// Subscribe registers a handler for one event name and returns its
// disposer.
func (b *Bus) Subscribe(name string, fn func(payload any)) func() {
    b.mu.Lock()
    defer b.mu.Unlock()
    b.nextID++
    id := b.nextID
    if b.subs[name] == nil { b.subs[name] = make(map[int]func(payload any)) }
    b.subs[name][id] = fn
    return func() {
        b.mu.Lock()
        defer b.mu.Unlock()
        delete(b.subs[name], id)
    }
}

// Tap registers a handler for every event, used by the SSE stream.
func (b *Bus) Tap(fn func(Envelope)) func() {
    b.mu.Lock()
    defer b.mu.Unlock()
    b.nextID++
    id := b.nextID
    b.taps[id] = fn
    return func() {
        b.mu.Lock()
        defer b.mu.Unlock()
        delete(b.taps, id)
    }
}

// Dispatch delivers one event to every matching subscriber and every tap.
func (b *Bus) Dispatch(name string, payload any) {
    b.mu.Lock()
    handlers := make([]func(payload any), 0, len(b.subs[name]))
    for _, fn := range b.subs[name] { handlers = append(handlers, fn) }
    taps := make([]func(Envelope), 0, len(b.taps))
    for _, fn := range b.taps { taps = append(taps, fn) }
    b.mu.Unlock()
    for _, fn := range handlers { fn(payload) }
    for _, fn := range taps { fn(Envelope{Name: name, Payload: payload}) }
}
