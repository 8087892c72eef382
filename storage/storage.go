// SPDX-License-Identifier: ice License 1.0

package storage

import (
	stdlibtime "time"
)

// FormatKey scopes baseKey to a resource, so that several tenants can share the same origin.
// Without a resource the key stays global, which is also how keys written by legacy SDK versions look.
func FormatKey(baseKey, resourceID string) string {
	if resourceID == "" {
		return baseKey
	}

	return baseKey + "_" + resourceID
}

// WithTTL expires the value after ttl (max-age semantics).
func WithTTL(ttl stdlibtime.Duration) Option {
	return func(o *options) {
		o.maxAge = ttl
	}
}

// WithExpiry expires the value at the given moment.
func WithExpiry(at stdlibtime.Time) Option {
	return func(o *options) {
		o.expires = at.UTC()
	}
}

// Forever keeps the value until it is explicitly removed.
func Forever() Option {
	return WithExpiry(InfiniteExpiry)
}

func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

func WithDomain(domain string) Option {
	return func(o *options) {
		o.domain = domain
	}
}

// CrossSubdomain scopes a cookie to the registrable domain the store was configured with.
func CrossSubdomain() Option {
	return func(o *options) {
		o.crossSubdomain = true
	}
}

func applyOptions(opts []Option) *options {
	o := new(options)
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	return o
}
