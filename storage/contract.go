// SPDX-License-Identifier: ice License 1.0

package storage

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	stdlibtime "time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Public API.

var (
	ErrNotFound = errors.New("not found")

	// InfiniteExpiry is the far-future expiry the "Infinity" TTL maps to.
	//nolint:gochecknoglobals // Immutable.
	InfiniteExpiry = stdlibtime.Date(9999, stdlibtime.December, 31, 23, 59, 59, 0, stdlibtime.UTC)
)

type (
	// Store is the uniform shape of the two physical persistence backends (cookies and durable local storage).
	// Implementations never fail loudly: a missing or unreachable value reads as not found.
	Store interface {
		GetItem(ctx context.Context, key string) (value string, found bool)
		SetItem(ctx context.Context, key, value string, opts ...Option)
		RemoveItem(ctx context.Context, key string, opts ...Option)
	}
	// Backend is the raw key/value engine behind the durable local store.
	Backend interface {
		Get(ctx context.Context, key string) (string, error)
		Set(ctx context.Context, key, value string) error
		Delete(ctx context.Context, key string) error
	}
	Option func(*options)

	// Cookies is a Store over a cookie jar, as seen from a single page URL.
	Cookies struct {
		jar     http.CookieJar
		pageURL *url.URL
		domain  string
	}
	// Local is the durable local store: a Backend guarded by an availability probe.
	Local struct {
		backend   Backend
		mx        sync.Mutex
		probed    bool
		available bool
	}
)

// Private API.

const (
	probeKey        = "__wk_storage_probe__"
	defaultPath     = "/"
	redisKeyPrefix  = "wallkit"
	fileBackendPerm = 0o600
)

type (
	options struct {
		expires        stdlibtime.Time
		path           string
		domain         string
		maxAge         stdlibtime.Duration
		crossSubdomain bool
	}
	memoryBackend struct {
		values map[string]string
		mx     sync.RWMutex
	}
	fileBackend struct {
		path string
		mx   sync.Mutex
	}
	redisBackend struct {
		db        redis.Cmdable
		namespace string
	}
	config struct {
		WallkitStorage struct {
			Credentials struct {
				User     string `yaml:"user" mapstructure:"user"`
				Password string `yaml:"password" mapstructure:"password"`
			} `yaml:"credentials" mapstructure:"credentials"`
			URL       string `yaml:"url" mapstructure:"url"`
			Namespace string `yaml:"namespace" mapstructure:"namespace"`
			PoolSize  int    `yaml:"poolSize" mapstructure:"poolSize"`
		} `yaml:"wallkit/storage" mapstructure:"wallkit/storage"` //nolint:tagliatelle // Nope.
	}
)
