// SPDX-License-Identifier: ice License 1.0

package wallkit

import (
	"context"
	"io"
	"net/http"
	"sync"
	stdlibtime "time"

	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/client"
	"github.com/ice-blockchain/wallkit/credentials"
	"github.com/ice-blockchain/wallkit/relay"
	"github.com/ice-blockchain/wallkit/storage"
	"github.com/ice-blockchain/wallkit/time"
)

// Public API.

// Local events, dispatched to SubscribeLocalEvent handlers of the same session.
const (
	LocalEventUser     = "user"
	LocalEventAuth     = "auth"
	LocalEventLogout   = "logout"
	LocalEventResource = "resource"
)

const (
	DefaultAPIURL  = "https://api.wallkit.net/api/v1"
	DefaultPageURL = "http://localhost"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = client.ErrUnauthorized
	ErrClosed          = errors.New("session closed")
)

type (
	SubscriptionID uint64
	// LocalEventHandler errors and panics are logged and swallowed.
	LocalEventHandler func(payload any) error
	Option            func(*options)
	Config struct {
		TrustedOrigins  []string            `yaml:"trustedOrigins" mapstructure:"trustedOrigins"`
		Resource        string              `yaml:"resource" mapstructure:"resource"`
		APIURL          string              `yaml:"apiURL" mapstructure:"apiURL"`   //nolint:tagliatelle // Nope.
		PageURL         string              `yaml:"pageURL" mapstructure:"pageURL"` //nolint:tagliatelle // Nope.
		RequestTimeout  stdlibtime.Duration `yaml:"requestTimeout" mapstructure:"requestTimeout"`
		RetryCount      int                 `yaml:"retryCount" mapstructure:"retryCount"`
		Firebase        bool                `yaml:"firebase" mapstructure:"firebase"`
		SubDomainCookie bool                `yaml:"subDomainCookie" mapstructure:"subDomainCookie"`
		Debug           bool                `yaml:"debug" mapstructure:"debug"`
	}
	// SubscriptionsQuery filters GetSubscriptions. Zero values fall back to page 1, 10 per page, standard subscriptions.
	SubscriptionsQuery struct {
		Filter map[string]any
		Page   int
		Limit  int
	}
	// Wallkit is a session against the Wallkit API, bound to one resource, one set of stores and one browsing context.
	Wallkit struct {
		bgCtx         context.Context //nolint:containedctx // Lifetime of the background tasks.
		bc            relay.BrowsingContext
		ownedBC       io.Closer
		cfg           *Config
		client        *client.Client
		relay         *relay.Relay
		origins       *credentials.Origins
		token         *credentials.Token
		user          *credentials.User
		resource      *credentials.Resource
		firebase      *credentials.FirebaseToken
		subscriptions map[string][]*subscription
		bgCancel      context.CancelFunc
		stopListening func()
		stores        credentials.Stores
		bgWG          sync.WaitGroup
		mx            sync.RWMutex
		sessionMx     sync.Mutex
		sidMx         sync.Mutex
		subMx         sync.Mutex
		bgMx          sync.Mutex
		nextSubID     SubscriptionID
		initialized   bool
		closed        bool
	}
)

// Private API.

const (
	pageViewEvent          = "page_view"
	defaultRequestTimeout  = 30 * stdlibtime.Second
	defaultSubscriptionsPg = 1
	defaultSubscriptionsN  = 10
)

type (
	options struct {
		jar     http.CookieJar
		backend storage.Backend
		cookies storage.Store
		local   storage.Store
		bc      relay.BrowsingContext
		timeout stdlibtime.Duration
	}
	subscription struct {
		handler LocalEventHandler
		id      SubscriptionID
	}
	// credentialSource is what the HTTP client sees of the session.
	credentialSource struct {
		w *Wallkit
	}
	// authResponse is the part of login/registration/refresh responses describing the issued token.
	authResponse struct {
		Expires      *time.Time `json:"expires,omitempty"`
		Token        string     `json:"token,omitempty"`
		RefreshToken string     `json:"refresh_token,omitempty"` //nolint:tagliatelle // API.
	}
	statusResponse struct {
		Status bool `json:"status"`
	}
)
