// SPDX-License-Identifier: ice License 1.0

package credentials

import (
	"sync"

	"github.com/ice-blockchain/wallkit/storage"
	"github.com/ice-blockchain/wallkit/time"
)

// Public API.

const (
	TokenBaseKey         = "WallkitToken"
	UserBaseKey          = "WallkitUser"
	ResourceBaseKey      = "WallkitResource"
	TokenCookieBaseKey   = "wk-token"
	RefreshCookieBaseKey = "wk-refresh"
	SessionBaseKey       = "wk-session"
	FirebaseTokenBaseKey = "firebase-token"

	GuestPlan = "guest"
)

var (
	//nolint:gochecknoglobals // Immutable.
	DefaultOrigins = []string{
		"http://127.0.0.1:8000",
		"https://wallkit.net",
		"https://dev.wallkit.net",
		"https://wallkit.local",
	}
)

type (
	// Stores are the two physical backends every entity persists to, scoped to one resource.
	Stores struct {
		Cookies  storage.Store
		Local    storage.Store
		Resource string
	}
	Token struct {
		Expire   *time.Time `json:"expire,omitempty"`
		Value    string     `json:"value,omitempty"`
		Refresh  string     `json:"refresh,omitempty"`
		Resource string     `json:"resource,omitempty"`
	}
	Plan struct {
		Slug       string `json:"slug,omitempty"`
		Title      string `json:"title,omitempty"`
		Priority   int64  `json:"priority,omitempty"`
		FullAccess bool   `json:"full_access,omitempty"` //nolint:tagliatelle // API.
	}
	Subscription struct {
		Plan   *Plan  `json:"plan,omitempty"`
		Status string `json:"status,omitempty"`
		ID     int64  `json:"id,omitempty"`
	}
	// User is the authenticated user. Fields the SDK doesn't know about are kept in Extra.
	User struct {
		Extra         map[string]any  `json:"-"`
		Email         string          `json:"email,omitempty"`
		FirstName     string          `json:"first_name,omitempty"` //nolint:tagliatelle // API.
		LastName      string          `json:"last_name,omitempty"`  //nolint:tagliatelle // API.
		Token         string          `json:"token,omitempty"`
		Subscriptions []*Subscription `json:"subscriptions,omitempty"`
		ID            int64           `json:"id,omitempty"`
		Active        bool            `json:"active"`
		Confirm       bool            `json:"confirm"`
	}
	// Resource is the tenant the SDK is configured for. Fields the SDK doesn't know about are kept in Extra.
	Resource struct {
		Extra              map[string]any `json:"-"`
		PublicKey          string         `json:"public_key,omitempty"`            //nolint:tagliatelle // API.
		Origin             string         `json:"origin,omitempty"`
		StripePublicKey    string         `json:"stripe_public_key,omitempty"`     //nolint:tagliatelle // API.
		PaymentsInLiveMode bool           `json:"payments_in_live_mode,omitempty"` //nolint:tagliatelle // API.
	}
	FirebaseToken struct {
		Token    string `json:"token,omitempty"`
		Resource string `json:"resource,omitempty"`
		Enabled  bool   `json:"enabled,omitempty"`
	}
	// Origins is the allow-list of origins inbound frame messages are accepted from.
	Origins struct {
		values []string
		mx     sync.RWMutex
	}
)

// Private API.

const (
	sessionIDLength = 32
)

var (
	//nolint:gochecknoglobals // Immutable.
	userFields = []string{"email", "first_name", "last_name", "token", "subscriptions", "id", "active", "confirm"}
	//nolint:gochecknoglobals // Immutable.
	resourceFields = []string{"public_key", "origin", "stripe_public_key", "payments_in_live_mode"}
)

type (
	// The reduced projection of User that survives restarts.
	storedUser struct {
		Token   string `json:"token,omitempty"`
		ID      int64  `json:"id"`
		Active  bool   `json:"active"`
		Confirm bool   `json:"confirm"`
	}
)
