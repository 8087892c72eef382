// SPDX-License-Identifier: ice License 1.0

package relay

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Public API.

// Inbound events, the ones a session reacts to.
const (
	EventRegistration    = "wk-event-registration"
	EventAuth            = "wk-event-auth"
	EventUser            = "wk-event-user"
	EventUserUpdate      = "wk-event-user-update"
	EventConfirmPassword = "wk-event-confirm-password"
	EventToken           = "wk-event-token"
	EventCheckToken      = "wk-event-check-token"
	EventFirebaseToken   = "wk-firebase-token"
)

// Outbound only.
const (
	EventLogout                = "wk-event-logout"
	EventResource              = "wk-event-resource"
	EventResources             = "wk-event-resources"
	EventFirebaseAuth          = "wk-event-firebase-auth"
	EventFirebasePasswordReset = "wk-event-firebase-password-reset"
	EventResetPassword         = "wk-event-reset-password"
	EventSubscriptions         = "wk-event-subscriptions"
	EventCalculatePrice        = "wk-event-calculate-price"
	EventTransaction           = "wk-event-transaction"
	EventPromoValidation       = "wk-event-promo-validation"
	EventUpdatePassword        = "wk-event-update-password"
	EventUpdateEmail           = "wk-event-update-email"
	EventResendConfirmation    = "wk-event-resend-confirmation"
	EventEmailConfirm          = "wk-event-email-confirm"
	EventCountries             = "wk-event-countries"
	EventCurrency              = "wk-event-currency"
	EventUserSuspend           = "wk-event-user-suspend"
	EventAccessDetails         = "wk-event-access-details"
)

const (
	AnyOrigin = "*"
)

const (
	KindUser Kind = iota + 1
	KindToken
	KindCheckToken
	KindFirebaseToken
)

var ErrClosed = errors.New("browsing context closed")

type (
	Kind uint8
	// Message is the wire payload exchanged between browsing contexts.
	Message struct {
		Value  any    `json:"value"`
		Params any    `json:"params,omitempty"`
		Name   string `json:"name"`
	}
	// MessageEvent is a message as received by a browsing context.
	MessageEvent struct {
		Origin string
		Data   json.RawMessage
	}
	// Event is an accepted inbound MessageEvent.
	Event struct {
		Name  string
		Value json.RawMessage
		Kind  Kind
	}
	TrustedOrigins interface {
		Has(origin string) bool
	}
	// BrowsingContext is a window or frame that can exchange messages with other ones.
	BrowsingContext interface {
		Origin() string
		IsTop() bool
		Top() BrowsingContext
		Frames() []BrowsingContext
		// PostMessage delivers data, sent from sourceOrigin, unless targetOrigin is neither AnyOrigin nor Origin().
		PostMessage(ctx context.Context, sourceOrigin string, data json.RawMessage, targetOrigin string) error
		// Listen registers handler for every message delivered to this context, in order.
		Listen(handler func(*MessageEvent)) (stop func())
	}
	// Relay broadcasts events from one browsing context to its peers.
	Relay struct {
		bc BrowsingContext
	}
	// Window is an in-process BrowsingContext. Each window delivers its messages from its own goroutine.
	Window struct {
		top       *Window
		listeners map[uint64]func(*MessageEvent)
		wakeUp    chan struct{}
		done      chan struct{}
		origin    string
		frames    []*Window
		queue     []*MessageEvent
		wg        sync.WaitGroup
		mx        sync.Mutex
		nextID    uint64
		closed    bool
	}
	// RedisContext is a BrowsingContext whose peers live in other processes, connected through redis pub/sub.
	RedisContext struct {
		db        redis.UniversalClient
		ctx       context.Context //nolint:containedctx // It's the lifetime of the listeners.
		cancel    context.CancelFunc
		namespace string
		origin    string
		wg        sync.WaitGroup
		top       bool
	}
)

// Private API.

const (
	topChannel    = "top"
	framesChannel = "frames"
)

type (
	envelope struct {
		Origin string          `json:"origin"`
		Target string          `json:"target,omitempty"`
		Data   json.RawMessage `json:"data"`
	}
	redisPeer struct {
		owner   *RedisContext
		channel string
	}
)
