// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package notifications

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/stockroom/internal/client"
	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/metrics"
	"github.com/tomtom215/stockroom/internal/models"
)

// Titles by event type.
const (
	TitleNewOrder     = "New Order Received"
	TitleStatusUpdate = "Order Status Updated"
)

// ErrMissingOrderID is returned by Apply for an event without an order ID.
var ErrMissingOrderID = errors.New("order event has no order id")

// Notification is one display entry derived from an order event.
type Notification struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Read      bool              `json:"read"`
	Order     models.OrderEvent `json:"order"`
}

// Change describes the projection after a mutation.
type Change struct {
	// ID is the affected notification, empty for bulk changes.
	ID     string
	Total  int
	Unread int
}

type entry struct {
	Notification
	seq uint64
}

// Projection is safe for concurrent use.
type Projection struct {
	mu     sync.RWMutex
	items  map[string]*entry
	seq    uint64
	unread int

	subsMu sync.Mutex
	subs   map[uint64]chan Change
	subID  uint64

	now func() time.Time
}

// NewProjection creates an empty projection.
func NewProjection() *Projection {
	return &Projection{
		items: make(map[string]*entry),
		subs:  make(map[uint64]chan Change),
		now:   time.Now,
	}
}

// NotificationID derives the notification identity for an event.
func NotificationID(orderID string, eventType models.EventType) string {
	return orderID + ":" + string(eventType)
}

// Apply upserts the notification for ev. An existing entry gets the new
// order snapshot, title, message and timestamp but keeps its read flag.
func (p *Projection) Apply(ev models.OrderEvent) (Notification, error) {
	if ev.OrderID == "" {
		return Notification{}, ErrMissingOrderID
	}
	id := NotificationID(ev.OrderID, ev.EventType)
	ts := ev.EmittedAt
	if ts.IsZero() {
		ts = p.now()
	}

	p.mu.Lock()
	e, ok := p.items[id]
	if !ok {
		p.seq++
		e = &entry{seq: p.seq}
		e.ID = id
		p.items[id] = e
		p.unread++
	}
	e.Title = title(ev.EventType)
	e.Message = message(ev)
	e.Timestamp = ts
	e.Order = ev
	n := e.Notification
	change := p.changeLocked(id)
	p.publishLocked(change)
	p.mu.Unlock()

	logging.Debug().
		Str("notification_id", logging.SanitizeValue(id)).
		Bool("new", !ok).
		Int("unread", change.Unread).
		Msg("notification applied")
	return n, nil
}

// MarkRead marks the given notifications read. Unknown IDs are ignored and
// an empty list changes nothing. It returns how many entries changed from
// unread to read.
func (p *Projection) MarkRead(ids ...string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	marked := 0
	for _, id := range ids {
		if e, ok := p.items[id]; ok && !e.Read {
			e.Read = true
			marked++
		}
	}
	changedID := ""
	if len(ids) == 1 {
		changedID = ids[0]
	}
	p.markedLocked(marked, changedID)
	return marked
}

// MarkAllRead marks every notification read and returns how many changed.
func (p *Projection) MarkAllRead() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	marked := 0
	for _, e := range p.items {
		if !e.Read {
			e.Read = true
			marked++
		}
	}
	p.markedLocked(marked, "")
	return marked
}

func (p *Projection) markedLocked(marked int, changedID string) {
	if marked == 0 {
		return
	}
	p.unread -= marked
	p.publishLocked(p.changeLocked(changedID))
}

// Notifications returns all notifications, newest first. Entries with the
// same timestamp are in insertion order.
func (p *Projection) Notifications() []Notification {
	p.mu.RLock()
	entries := make([]*entry, 0, len(p.items))
	for _, e := range p.items {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})
	out := make([]Notification, len(entries))
	for i, e := range entries {
		out[i] = e.Notification
	}
	p.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Get returns one notification.
func (p *Projection) Get(id string) (Notification, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.items[id]
	if !ok {
		return Notification{}, false
	}
	return e.Notification, true
}

// UnreadCount returns the number of unread notifications.
func (p *Projection) UnreadCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.unread
}

// Len returns the number of notifications.
func (p *Projection) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

// Clear removes every notification.
func (p *Projection) Clear() {
	p.mu.Lock()
	if len(p.items) == 0 {
		p.mu.Unlock()
		return
	}
	p.items = make(map[string]*entry)
	p.unread = 0
	p.publishLocked(p.changeLocked(""))
	p.mu.Unlock()
}

// Subscribe returns a channel that receives the latest Change after every
// mutation. A slow reader only misses intermediate changes, never the most
// recent one. The returned function unsubscribes and closes the channel.
func (p *Projection) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 1)

	p.subsMu.Lock()
	p.subID++
	id := p.subID
	p.subs[id] = ch
	p.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.subsMu.Lock()
			delete(p.subs, id)
			close(ch)
			p.subsMu.Unlock()
		})
	}
}

// Attach applies every OrderReceived event dispatched by d.
func (p *Projection) Attach(d *client.Dispatcher) (detach func()) {
	return d.On(client.KindOrderReceived, func(ev client.Event) error {
		o, ok := ev.(client.OrderReceived)
		if !ok {
			return nil
		}
		_, err := p.Apply(o.Order)
		return err
	})
}

func (p *Projection) changeLocked(id string) Change {
	return Change{ID: id, Total: len(p.items), Unread: p.unread}
}

// publishLocked delivers c to every subscriber, replacing an undelivered
// older change. Callers hold mu so subscribers see changes in order.
func (p *Projection) publishLocked(c Change) {
	metrics.RecordUnread(c.Unread)

	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- c:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}
}

func title(t models.EventType) string {
	if t == models.EventStatusUpdate {
		return TitleStatusUpdate
	}
	return TitleNewOrder
}

func message(ev models.OrderEvent) string {
	o := ev.Payload
	customer := o.CustomerName
	if customer == "" {
		customer = "A customer"
	}
	if ev.EventType == models.EventStatusUpdate {
		status := o.Status
		if status == "" {
			status = "updated"
		}
		return fmt.Sprintf("Order %s is now %s", ev.OrderID, status)
	}
	return fmt.Sprintf("%s placed order %s: %d item(s), %.2f %s",
		customer, ev.OrderID, o.ItemCount, o.TotalAmount, o.Currency)
}
