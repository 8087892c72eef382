// SPDX-License-Identifier: ice License 1.0

package relay

import (
	"sync"
	"testing"
	stdlibtime "time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ice-blockchain/wallkit/credentials"
	storagefixture "github.com/ice-blockchain/wallkit/storage/fixture"
)

const (
	pageOrigin   = "https://publisher.example.com"
	widgetOrigin = "https://wallkit.net"
)

type (
	inbox struct {
		events []*MessageEvent
		mx     sync.Mutex
	}
)

func (i *inbox) handle(ev *MessageEvent) {
	i.mx.Lock()
	i.events = append(i.events, ev)
	i.mx.Unlock()
}

func (i *inbox) messages() []*MessageEvent {
	i.mx.Lock()
	defer i.mx.Unlock()

	return append([]*MessageEvent(nil), i.events...)
}

func (i *inbox) names(t *testing.T) []string {
	t.Helper()
	names := make([]string, 0)
	for _, ev := range i.messages() {
		var msg Message
		require.NoError(t, json.Unmarshal(ev.Data, &msg))
		names = append(names, msg.Name)
	}

	return names
}

func TestParse(t *testing.T) {
	t.Parallel()
	trusted := credentials.NewOrigins(pageOrigin)
	ev := func(origin, data string) *MessageEvent {
		return &MessageEvent{Origin: origin, Data: json.RawMessage(data)}
	}

	for name, kind := range map[string]Kind{
		EventRegistration:    KindUser,
		EventAuth:            KindUser,
		EventUser:            KindUser,
		EventUserUpdate:      KindUser,
		EventConfirmPassword: KindUser,
		EventToken:           KindToken,
		EventCheckToken:      KindCheckToken,
		EventFirebaseToken:   KindFirebaseToken,
	} {
		event, ok := Parse(trusted, widgetOrigin, ev(pageOrigin, `{"name":"`+name+`","value":{"id":7}}`))
		require.True(t, ok, name)
		assert.Equal(t, &Event{Name: name, Value: json.RawMessage(`{"id":7}`), Kind: kind}, event)
	}

	event, ok := Parse(trusted, widgetOrigin, ev(pageOrigin, `{"name":"wk-event-check-token","value":null,"params":[1]}`))
	require.True(t, ok)
	assert.Equal(t, KindCheckToken, event.Kind)

	for desc, rejected := range map[string]*MessageEvent{
		"nil event":     nil,
		"no origin":     ev("", `{"name":"wk-event-token","value":"T1"}`),
		"untrusted":     ev("https://evil.example.com", `{"name":"wk-event-token","value":"T1"}`),
		"own origin":    ev(widgetOrigin, `{"name":"wk-event-token","value":"T1"}`),
		"not an object": ev(pageOrigin, `"wk-event-token"`),
		"array":         ev(pageOrigin, `[{"name":"wk-event-token","value":"T1"}]`),
		"garbage":       ev(pageOrigin, `{name`),
		"null":          ev(pageOrigin, `null`),
		"no name":       ev(pageOrigin, `{"value":"T1"}`),
		"no value":      ev(pageOrigin, `{"name":"wk-event-token"}`),
		"numeric name":  ev(pageOrigin, `{"name":1,"value":"T1"}`),
		"outbound only": ev(pageOrigin, `{"name":"wk-event-logout","value":true}`),
		"unknown":       ev(pageOrigin, `{"name":"wk-event-something","value":true}`),
	} {
		_, ok = Parse(trusted, widgetOrigin, rejected)
		assert.False(t, ok, desc)
	}
	_, ok = Parse(nil, widgetOrigin, ev(pageOrigin, `{"name":"wk-event-token","value":"T1"}`))
	assert.False(t, ok)
}

func TestKind(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "user", KindUser.String())
	assert.Equal(t, "firebase-token", KindFirebaseToken.String())
	assert.Equal(t, "unknown", Kind(0).String())
	_, known := KindOf(EventResource)
	assert.False(t, known)
}

func TestSendFromTopReachesEveryFrame(t *testing.T) {
	t.Parallel()
	page := NewPage(pageOrigin)
	widget := page.Embed(widgetOrigin)
	other := page.Embed("https://other.example.com")
	nested := widget.Embed("https://nested.example.com")
	defer func() {
		for _, w := range []*Window{page, widget, other, nested} {
			require.NoError(t, w.Close())
		}
	}()
	var pageInbox, widgetInbox, otherInbox, nestedInbox inbox
	page.Listen(pageInbox.handle)
	widget.Listen(widgetInbox.handle)
	other.Listen(otherInbox.handle)
	nested.Listen(nestedInbox.handle)

	assert.True(t, page.IsTop())
	assert.False(t, widget.IsTop())
	assert.Same(t, page, nested.Top())

	New(page).Send(t.Context(), EventLogout, true, nil)
	require.Eventually(t, func() bool {
		return len(widgetInbox.messages()) == 1 && len(otherInbox.messages()) == 1
	}, stdlibtime.Second, stdlibtime.Millisecond)
	assert.Equal(t, pageOrigin, widgetInbox.messages()[0].Origin)
	assert.JSONEq(t, `{"name":"wk-event-logout","value":true}`, string(widgetInbox.messages()[0].Data))

	New(nested).Send(t.Context(), EventToken, "T1", map[string]any{"a": 1})
	require.Eventually(t, func() bool {
		return len(pageInbox.messages()) == 1
	}, stdlibtime.Second, stdlibtime.Millisecond)
	assert.Equal(t, "https://nested.example.com", pageInbox.messages()[0].Origin)
	assert.JSONEq(t, `{"name":"wk-event-token","value":"T1","params":{"a":1}}`, string(pageInbox.messages()[0].Data))

	stdlibtime.Sleep(10 * stdlibtime.Millisecond)
	assert.Empty(t, nestedInbox.messages())
	assert.Len(t, widgetInbox.messages(), 1)
	assert.Len(t, otherInbox.messages(), 1)
}

func TestWindowDeliversInOrder(t *testing.T) {
	t.Parallel()
	page := NewPage(pageOrigin)
	frame := page.Embed(widgetOrigin)
	defer func() {
		require.NoError(t, frame.Close())
		require.NoError(t, page.Close())
	}()
	var first, second inbox
	frame.Listen(first.handle)
	stop := frame.Listen(second.handle)
	rel := New(page)
	const total = 200
	for i := range total {
		rel.Send(t.Context(), EventToken, i, nil)
	}
	require.Eventually(t, func() bool {
		return len(first.messages()) == total
	}, 5*stdlibtime.Second, stdlibtime.Millisecond)
	for i, ev := range first.messages() {
		var msg Message
		require.NoError(t, json.Unmarshal(ev.Data, &msg))
		assert.InDelta(t, float64(i), msg.Value, 0)
	}
	stop()
	seen := len(second.messages())
	rel.Send(t.Context(), EventToken, "after-stop", nil)
	require.Eventually(t, func() bool {
		return len(first.messages()) == total+1
	}, stdlibtime.Second, stdlibtime.Millisecond)
	assert.Len(t, second.messages(), seen)
}

func TestWindowTargetOriginAndClose(t *testing.T) {
	t.Parallel()
	page := NewPage(pageOrigin)
	var received inbox
	page.Listen(received.handle)

	require.NoError(t, page.PostMessage(t.Context(), widgetOrigin, json.RawMessage(`{}`), "https://somewhere.else"))
	require.NoError(t, page.PostMessage(t.Context(), widgetOrigin, json.RawMessage(`{"n":1}`), pageOrigin))
	require.Eventually(t, func() bool {
		return len(received.messages()) == 1
	}, stdlibtime.Second, stdlibtime.Millisecond)
	assert.JSONEq(t, `{"n":1}`, string(received.messages()[0].Data))

	require.NoError(t, page.Close())
	require.NoError(t, page.Close())
	require.ErrorIs(t, page.PostMessage(t.Context(), widgetOrigin, json.RawMessage(`{}`), AnyOrigin), ErrClosed)
	orphan := page.Embed(widgetOrigin)
	New(orphan).Send(t.Context(), EventAuth, nil, nil)
	require.NoError(t, orphan.Close())
}

func TestRedisContext(t *testing.T) {
	t.Parallel()
	db := storagefixture.NewRedis(t)
	top := NewRedisContext(t.Context(), db, "relay-test", pageOrigin, true)
	frame := NewRedisContext(t.Context(), db, "relay-test", widgetOrigin, false)
	defer func() {
		require.NoError(t, frame.Close())
		require.NoError(t, top.Close())
	}()
	assert.True(t, top.IsTop())
	assert.Same(t, top, top.Top())
	assert.False(t, frame.IsTop())
	assert.True(t, frame.Top().IsTop())
	assert.Nil(t, frame.Frames())
	require.Len(t, top.Frames(), 1)

	var topInbox, frameInbox inbox
	top.Listen(topInbox.handle)
	frame.Listen(frameInbox.handle)

	require.Eventually(t, func() bool {
		New(top).Send(t.Context(), EventCheckToken, true, nil)

		return len(frameInbox.messages()) > 0
	}, 30*stdlibtime.Second, 50*stdlibtime.Millisecond)
	assert.Equal(t, pageOrigin, frameInbox.messages()[0].Origin)
	assert.Contains(t, frameInbox.names(t), EventCheckToken)

	require.Eventually(t, func() bool {
		New(frame).Send(t.Context(), EventToken, "T1", nil)

		return len(topInbox.messages()) > 0
	}, 30*stdlibtime.Second, 50*stdlibtime.Millisecond)
	assert.Equal(t, widgetOrigin, topInbox.messages()[0].Origin)
	assert.Equal(t, []string{EventToken}, topInbox.names(t)[:1])

	require.NoError(t, top.Close())
	require.ErrorIs(t, top.PostMessage(t.Context(), pageOrigin, json.RawMessage(`{}`), AnyOrigin), ErrClosed)
}
