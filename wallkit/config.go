// SPDX-License-Identifier: ice License 1.0

package wallkit

import (
	"context"
	"net/http"
	"net/url"
	stdlibtime "time"

	"dario.cat/mergo"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/client"
	appCfg "github.com/ice-blockchain/wallkit/config"
	"github.com/ice-blockchain/wallkit/credentials"
	"github.com/ice-blockchain/wallkit/relay"
	"github.com/ice-blockchain/wallkit/storage"
)

// New builds a session from the config under applicationYAMLKey.
// WALLKIT_RESOURCE, WALLKIT_API_URL and WALLKIT_PAGE_URL (optionally prefixed by the module) override it.
func New(applicationYAMLKey string, opts ...Option) (*Wallkit, error) {
	var cfg Config
	if err := appCfg.LoadFromKey(applicationYAMLKey, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to load %v", applicationYAMLKey)
	}
	if val := appCfg.Env(applicationYAMLKey, "WALLKIT_RESOURCE"); val != "" {
		cfg.Resource = val
	}
	if val := appCfg.Env(applicationYAMLKey, "WALLKIT_API_URL"); val != "" {
		cfg.APIURL = val
	}
	if val := appCfg.Env(applicationYAMLKey, "WALLKIT_PAGE_URL"); val != "" {
		cfg.PageURL = val
	}

	return NewWithConfig(&cfg, opts...)
}

// NewWithConfig builds a session from an explicit config. Unset fields fall back to the defaults.
func NewWithConfig(cfg *Config, opts ...Option) (*Wallkit, error) {
	merged := *cfg
	if err := mergo.Merge(&merged, defaultConfig()); err != nil {
		return nil, errors.Wrap(err, "failed to apply config defaults")
	}
	if _, err := url.ParseRequestURI(merged.APIURL); err != nil {
		return nil, errors.Wrapf(err, "invalid api url %q", merged.APIURL)
	}
	o := new(options)
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.timeout > 0 {
		merged.RequestTimeout = o.timeout
	}
	cookies, err := o.cookieStore(&merged)
	if err != nil {
		return nil, err
	}
	w := &Wallkit{
		cfg:           &merged,
		bc:            o.bc,
		origins:       credentials.NewOrigins(merged.TrustedOrigins...),
		subscriptions: make(map[string][]*subscription),
		stores:        credentials.Stores{Cookies: cookies, Local: o.localStore(), Resource: merged.Resource},
	}
	if w.bc == nil {
		page := relay.NewPage(pageOrigin(merged.PageURL))
		w.bc, w.ownedBC = page, page
	}
	w.relay = relay.New(w.bc)
	w.bgCtx, w.bgCancel = context.WithCancel(context.Background())
	w.client = client.New(&client.Config{
		Jar:        o.jar,
		APIURL:     merged.APIURL,
		Timeout:    merged.RequestTimeout,
		RetryCount: merged.RetryCount,
	}, &credentialSource{w: w})

	return w, nil
}

func defaultConfig() *Config {
	return &Config{
		APIURL:         DefaultAPIURL,
		PageURL:        DefaultPageURL,
		RequestTimeout: defaultRequestTimeout,
	}
}

func (o *options) cookieStore(cfg *Config) (storage.Store, error) {
	if o.cookies != nil {
		return o.cookies, nil
	}
	if o.jar == nil {
		o.jar = storage.NewCookieJar()
	}
	cookies, err := storage.NewCookies(o.jar, cfg.PageURL, cfg.SubDomainCookie)
	if err != nil {
		return nil, errors.Wrap(err, "failed to bind cookies to the page")
	}

	return cookies, nil
}

func (o *options) localStore() storage.Store {
	if o.local != nil {
		return o.local
	}
	if o.backend == nil {
		o.backend = storage.NewMemoryBackend()
	}

	return storage.NewLocal(o.backend)
}

func pageOrigin(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	return u.Scheme + "://" + u.Host
}

// WithCookieJar shares jar between the cookie store and the HTTP client.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *options) {
		o.jar = jar
	}
}

// WithLocalBackend persists the durable local store to backend instead of memory.
func WithLocalBackend(backend storage.Backend) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithStores replaces both physical stores. A nil store keeps the default one.
func WithStores(cookies, local storage.Store) Option {
	return func(o *options) {
		o.cookies, o.local = cookies, local
	}
}

// WithBrowsingContext attaches the session to bc. Without it, the session runs in a standalone top window.
func WithBrowsingContext(bc relay.BrowsingContext) Option {
	return func(o *options) {
		o.bc = bc
	}
}

func WithRequestTimeout(timeout stdlibtime.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}
