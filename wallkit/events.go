// SPDX-License-Identifier: ice License 1.0

package wallkit

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/log"
)

// SubscribeLocalEvent registers handler for topic. Handlers of a topic are called in subscription order.
func (w *Wallkit) SubscribeLocalEvent(topic string, handler LocalEventHandler) SubscriptionID {
	w.subMx.Lock()
	defer w.subMx.Unlock()
	w.nextSubID++
	w.subscriptions[topic] = append(w.subscriptions[topic], &subscription{id: w.nextSubID, handler: handler})

	return w.nextSubID
}

// UnsubscribeLocalEvent removes exactly the subscription id of topic. Unknown ids are ignored.
func (w *Wallkit) UnsubscribeLocalEvent(topic string, id SubscriptionID) {
	w.subMx.Lock()
	defer w.subMx.Unlock()
	subs := w.subscriptions[topic]
	for ix, sub := range subs {
		if sub.id == id {
			w.subscriptions[topic] = append(subs[:ix:ix], subs[ix+1:]...)

			break
		}
	}
	if len(w.subscriptions[topic]) == 0 {
		delete(w.subscriptions, topic)
	}
}

// DispatchLocalEvent calls every handler of topic with payload.
// A failing handler is logged and doesn't prevent the others from being called.
func (w *Wallkit) DispatchLocalEvent(topic string, payload any) {
	w.subMx.Lock()
	subs := append([]*subscription(nil), w.subscriptions[topic]...)
	w.subMx.Unlock()
	for _, sub := range subs {
		log.Error(errors.Wrapf(callHandler(sub.handler, payload), "local %v handler #%v failed", topic, sub.id))
	}
}

func callHandler(handler LocalEventHandler, payload any) (err error) {
	if handler == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	return handler(payload)
}

// DispatchEvent sends an arbitrary event to the other browsing contexts.
func (w *Wallkit) DispatchEvent(ctx context.Context, name string, value any) {
	w.relay.Send(ctx, name, value, nil)
}
