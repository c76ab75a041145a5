// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package client

import (
	"fmt"
	"sync"

	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/metrics"
	"github.com/tomtom215/stockroom/internal/models"
)

// Handler receives dispatched events. A returned error is logged.
type Handler func(Event) error

type subscription struct {
	id      uint64
	handler Handler
}

// Dispatcher routes events to handlers registered per kind.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventKind][]subscription
	nextID   uint64
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventKind][]subscription)}
}

// On registers h for kind and returns a function that removes it.
// Handlers of one kind run in registration order.
func (d *Dispatcher) On(kind EventKind, h Handler) (unsubscribe func()) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers[kind] = append(d.handlers[kind], subscription{id: id, handler: h})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(kind, id) })
	}
}

// OnOrder registers fn for OrderReceived events.
func (d *Dispatcher) OnOrder(fn func(models.OrderEvent)) (unsubscribe func()) {
	return d.On(KindOrderReceived, func(ev Event) error {
		if o, ok := ev.(OrderReceived); ok {
			fn(o.Order)
		}
		return nil
	})
}

func (d *Dispatcher) remove(kind EventKind, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := d.handlers[kind]
	for i, s := range subs {
		if s.id == id {
			d.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(d.handlers[kind]) == 0 {
		delete(d.handlers, kind)
	}
}

// Dispatch calls every handler for ev's kind and returns how many failed
// (returned an error or panicked).
func (d *Dispatcher) Dispatch(ev Event) int {
	d.mu.RLock()
	subs := append([]subscription(nil), d.handlers[ev.Kind()]...)
	d.mu.RUnlock()

	failures := 0
	for _, s := range subs {
		if err := invoke(s.handler, ev); err != nil {
			failures++
			logging.Warn().Err(err).Str("event", ev.Kind().String()).Uint64("handler", s.id).Msg("event handler failed")
		}
	}
	metrics.RecordDispatch(ev.Kind().String(), failures)
	return failures
}

// HandlerCount returns the number of handlers registered for kind.
func (d *Dispatcher) HandlerCount(kind EventKind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[kind])
}

func invoke(h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h(ev)
}
