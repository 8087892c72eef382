// SPDX-License-Identifier: ice License 1.0

package relay

import (
	"context"

	"github.com/goccy/go-json"
)

// NewPage opens a top level window.
func NewPage(origin string) *Window {
	w := newWindow(origin)
	w.top = w

	return w
}

// Embed opens a frame with the given origin inside w.
func (w *Window) Embed(origin string) *Window {
	frame := newWindow(origin)
	frame.top = w.top
	w.mx.Lock()
	w.frames = append(w.frames, frame)
	w.mx.Unlock()

	return frame
}

func newWindow(origin string) *Window {
	w := &Window{
		origin:    origin,
		listeners: make(map[uint64]func(*MessageEvent)),
		wakeUp:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.deliver()

	return w
}

func (w *Window) Origin() string {
	return w.origin
}

func (w *Window) IsTop() bool {
	return w.top == w
}

func (w *Window) Top() BrowsingContext {
	return w.top
}

func (w *Window) Frames() []BrowsingContext {
	w.mx.Lock()
	defer w.mx.Unlock()
	frames := make([]BrowsingContext, 0, len(w.frames))
	for _, frame := range w.frames {
		frames = append(frames, frame)
	}

	return frames
}

// PostMessage queues the message without blocking; delivery happens on the window's own goroutine.
func (w *Window) PostMessage(_ context.Context, sourceOrigin string, data json.RawMessage, targetOrigin string) error {
	if !deliverable(targetOrigin, w.origin) {
		return nil
	}
	w.mx.Lock()
	if w.closed {
		w.mx.Unlock()

		return ErrClosed
	}
	w.queue = append(w.queue, &MessageEvent{Origin: sourceOrigin, Data: append(json.RawMessage(nil), data...)})
	w.mx.Unlock()
	select {
	case w.wakeUp <- struct{}{}:
	default:
	}

	return nil
}

func (w *Window) Listen(handler func(*MessageEvent)) (stop func()) {
	w.mx.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = handler
	w.mx.Unlock()

	return func() {
		w.mx.Lock()
		delete(w.listeners, id)
		w.mx.Unlock()
	}
}

// Close stops delivery. Messages still queued are dropped.
func (w *Window) Close() error {
	w.mx.Lock()
	if w.closed {
		w.mx.Unlock()

		return nil
	}
	w.closed = true
	w.queue = nil
	close(w.done)
	w.mx.Unlock()
	w.wg.Wait()

	return nil
}

func (w *Window) deliver() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case <-w.wakeUp:
		}
		for {
			ev, handlers := w.next()
			if ev == nil {
				break
			}
			for _, handler := range handlers {
				handler(ev)
			}
		}
	}
}

func (w *Window) next() (*MessageEvent, []func(*MessageEvent)) {
	w.mx.Lock()
	defer w.mx.Unlock()
	if w.closed || len(w.queue) == 0 {
		return nil, nil
	}
	ev := w.queue[0]
	w.queue[0] = nil
	w.queue = w.queue[1:]
	handlers := make([]func(*MessageEvent), 0, len(w.listeners))
	for id := range w.nextID {
		if handler, found := w.listeners[id]; found {
			handlers = append(handlers, handler)
		}
	}

	return ev, handlers
}
