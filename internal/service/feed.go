package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/vietanh2810/checkin-api/internal/domain"
)

const subscriberBuffer = 64

var ErrFeedClosed = errors.New("live feed is closed")

// Subscription receives the check-ins committed for one event.
type Subscription struct {
	EventID uint
	C       chan domain.CheckinEvent
}

// FeedHub fans committed check-ins out to live subscribers of each event.
type FeedHub struct {
	subscribers map[uint]map[*Subscription]struct{}
	register    chan *Subscription
	unregister  chan *Subscription
	broadcast   chan domain.CheckinEvent
	done        chan struct{}
}

func NewFeedHub() *FeedHub {
	return &FeedHub{
		subscribers: make(map[uint]map[*Subscription]struct{}),
		register:    make(chan *Subscription),
		unregister:  make(chan *Subscription),
		broadcast:   make(chan domain.CheckinEvent, subscriberBuffer),
		done:        make(chan struct{}),
	}
}

// Run dispatches until ctx is cancelled, then closes every subscription.
func (h *FeedHub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, subs := range h.subscribers {
				for sub := range subs {
					close(sub.C)
				}
			}
			h.subscribers = make(map[uint]map[*Subscription]struct{})
			return
		case sub := <-h.register:
			if h.subscribers[sub.EventID] == nil {
				h.subscribers[sub.EventID] = make(map[*Subscription]struct{})
			}
			h.subscribers[sub.EventID][sub] = struct{}{}
		case sub := <-h.unregister:
			h.remove(sub)
		case event := <-h.broadcast:
			for sub := range h.subscribers[event.EventID] {
				select {
				case sub.C <- event:
				default:
					// slow consumer
					h.remove(sub)
				}
			}
		}
	}
}

func (h *FeedHub) Subscribe(ctx context.Context, eventID uint) (*Subscription, error) {
	sub := &Subscription{EventID: eventID, C: make(chan domain.CheckinEvent, subscriberBuffer)}

	select {
	case h.register <- sub:
		return sub, nil
	case <-h.done:
		return nil, ErrFeedClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *FeedHub) Unsubscribe(sub *Subscription) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish never blocks the check-in path; events are dropped when the hub is saturated.
func (h *FeedHub) Publish(event domain.CheckinEvent) {
	select {
	case h.broadcast <- event:
	default:
		zap.L().Warn("feed saturated, dropping check-in event",
			zap.Uint("event_id", event.EventID),
			zap.Uint("activation_id", event.ActivationID))
	}
}

func (h *FeedHub) remove(sub *Subscription) {
	subs, ok := h.subscribers[sub.EventID]
	if !ok {
		return
	}
	if _, ok = subs[sub]; !ok {
		return
	}

	delete(subs, sub)
	close(sub.C)
	if len(subs) == 0 {
		delete(h.subscribers, sub.EventID)
	}
}
