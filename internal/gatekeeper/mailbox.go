package gatekeeper

import (
	"context"
	"errors"
	"sync"
)

// ErrNotReady is returned when no page is listening in the target tab.
var ErrNotReady = errors.New("receiving page not ready")

// Mailbox is a Messenger for pages that long-poll for their result.
type Mailbox struct {
	mu        sync.Mutex
	listeners map[int]chan Delivery
}

func NewMailbox() *Mailbox {
	return &Mailbox{listeners: make(map[int]chan Delivery)}
}

// Listen registers a listener for tabID. The returned cancel must be
// called once the caller stops waiting. A newer listener replaces an older
// one.
func (m *Mailbox) Listen(tabID int) (<-chan Delivery, func()) {
	ch := make(chan Delivery, 1)

	m.mu.Lock()
	m.listeners[tabID] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		if m.listeners[tabID] == ch {
			delete(m.listeners, tabID)
		}
		m.mu.Unlock()
	}
}

func (m *Mailbox) Deliver(d Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.listeners[d.TabID]
	if !ok {
		return ErrNotReady
	}
	delete(m.listeners, d.TabID)
	ch <- d
	return nil
}

// Wait listens on tabID until a delivery arrives or ctx ends.
func (m *Mailbox) Wait(ctx context.Context, tabID int) (Delivery, error) {
	ch, cancel := m.Listen(tabID)
	defer cancel()

	select {
	case d := <-ch:
		return d, nil
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}
