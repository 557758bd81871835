package event

import "sync"

// CartChange is the notification delivered to in-process subscribers when a
// customer's cart changes. A cleared cart arrives with ItemCount 0.
type CartChange struct {
	CustomerRef string
	ItemCount   int
	Subtotal    int64
}

// Notifier fans cart-change notifications out to in-process subscribers.
// Subscribers that fall behind miss intermediate states; only the latest
// state matters to badge-style consumers, so sends never block.
type Notifier struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

type subscription struct {
	customerRef string
	ch          chan CartChange
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[*subscription]struct{})}
}

// Subscribe registers interest in one customer's cart changes. The returned
// cancel function must be called to release the subscription.
func (n *Notifier) Subscribe(customerRef string) (<-chan CartChange, func()) {
	sub := &subscription{
		customerRef: customerRef,
		ch:          make(chan CartChange, 8),
	}

	n.mu.Lock()
	n.subs[sub] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if _, ok := n.subs[sub]; ok {
			delete(n.subs, sub)
			close(sub.ch)
		}
		n.mu.Unlock()
	}

	return sub.ch, cancel
}

// Notify delivers a change to all subscribers watching that customer. A full
// subscriber buffer drops the oldest pending state in favor of the new one.
func (n *Notifier) Notify(change CartChange) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for sub := range n.subs {
		if sub.customerRef != change.CustomerRef {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- change:
			default:
			}
		}
	}
}

// SubscriberCount reports the number of active subscriptions.
func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
