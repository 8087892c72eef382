// SPDX-License-Identifier: ice License 1.0

package storage

import (
	"context"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"

	"github.com/ice-blockchain/wallkit/log"
)

// NewCookieJar returns an in-memory jar that knows the public suffix list,
// so domain cookies can't be set on a TLD.
func NewCookieJar() http.CookieJar {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	log.Panic(errors.Wrap(err, "failed to create cookie jar")) //nolint:revive // It never fails with these options.

	return jar
}

// NewCookies binds jar to the page the SDK runs on.
// When crossSubdomain is true, CrossSubdomain() scopes cookies to the registrable domain of that page.
func NewCookies(jar http.CookieJar, pageURL string, crossSubdomain bool) (*Cookies, error) {
	if jar == nil {
		jar = NewCookieJar()
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid page url %q", pageURL)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, errors.Errorf("page url %q must be absolute", pageURL)
	}

	return &Cookies{jar: jar, pageURL: u, domain: CookieDomain(u.Hostname(), crossSubdomain)}, nil
}

// CookieDomain is the domain attribute used for cookies shared across subdomains of host.
// IPs and single-label hosts, such as localhost, can't carry a domain attribute, so they get host-only cookies.
func CookieDomain(host string, crossSubdomain bool) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if !crossSubdomain || host == "" || net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return ""
	}
	etldPlusOne, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}

	return "." + etldPlusOne
}

func (c *Cookies) Jar() http.CookieJar {
	return c.jar
}

func (c *Cookies) Domain() string {
	return c.domain
}

func (c *Cookies) GetItem(_ context.Context, key string) (string, bool) {
	for _, cookie := range c.jar.Cookies(c.pageURL) {
		if cookie.Name != key {
			continue
		}
		val, err := url.QueryUnescape(cookie.Value)
		if err != nil {
			return cookie.Value, true
		}

		return val, true
	}

	return "", false
}

func (c *Cookies) SetItem(_ context.Context, key, value string, opts ...Option) {
	if !validCookieName(key) {
		log.Warn("refusing to set cookie", "name", key)

		return
	}
	cookie := c.cookie(key, applyOptions(opts))
	cookie.Value = url.QueryEscape(value)
	c.jar.SetCookies(c.pageURL, []*http.Cookie{cookie})
}

func (c *Cookies) RemoveItem(_ context.Context, key string, opts ...Option) {
	if !validCookieName(key) {
		return
	}
	cfg := applyOptions(opts)
	hostOnly := c.cookie(key, cfg)
	hostOnly.Domain, hostOnly.MaxAge = "", -1
	expired := []*http.Cookie{hostOnly}
	domain := c.domainFor(cfg)
	if domain == "" {
		domain = c.domain
	}
	if domain != "" {
		scoped := c.cookie(key, cfg)
		scoped.Domain, scoped.MaxAge = domain, -1
		expired = append(expired, scoped)
	}
	c.jar.SetCookies(c.pageURL, expired)
}

func (c *Cookies) cookie(name string, cfg *options) *http.Cookie {
	cookie := &http.Cookie{
		Name:    name,
		Path:    cfg.path,
		Domain:  c.domainFor(cfg),
		Expires: cfg.expires,
	}
	if cookie.Path == "" {
		cookie.Path = defaultPath
	}
	if cfg.maxAge > 0 {
		cookie.MaxAge = int(cfg.maxAge.Seconds())
	}

	return cookie
}

func (c *Cookies) domainFor(cfg *options) string {
	switch {
	case cfg.domain != "":
		return cfg.domain
	case cfg.crossSubdomain:
		return c.domain
	default:
		return ""
	}
}

func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	switch strings.ToLower(name) {
	case "expires", "max-age", "path", "domain", "secure":
		return false
	default:
		return !strings.ContainsAny(name, "=; \t\r\n,")
	}
}
