// SPDX-License-Identifier: ice License 1.0

package wallkitfixture

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"
)

// Public API.

const (
	UserID         = 7
	UserEmail      = "dev@wallkit.net"
	Password       = "secret"
	Token          = "T1"
	RefreshToken   = "R1"
	RefreshedToken = "T2"
	// CompromisedToken makes every authenticated route answer 401 token_compromised.
	CompromisedToken = "compromised"
	ResourceOrigin   = "https://paywall.example.com"
	PublicKey        = "pk_test"
)

type (
	// API is an in-process stand-in for the Wallkit API. Every request is counted per "METHOD /path".
	API struct {
		*httptest.Server
		overrides map[string]gin.HandlerFunc
		counters  map[string]int
		headers   map[string]http.Header
		bodies    map[string][]byte
		mx        sync.Mutex
	}
)

// Private API.

const (
	expiresAt = 4102444800
)
