// SPDX-License-Identifier: ice License 1.0

package credentials

import (
	"context"
	stdlibtime "time"

	"github.com/golang-jwt/jwt/v5"
)

func (f *FirebaseToken) Exists() bool {
	return f != nil && f.Token != ""
}

// Expired is true only for JWTs whose exp claim is before now. The signature isn't verified,
// the API does that; opaque tokens never expire from the SDK's point of view.
func (f *FirebaseToken) Expired(now stdlibtime.Time) bool {
	if !f.Exists() {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(f.Token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return !exp.After(now)
}

func (f *FirebaseToken) Serialize(ctx context.Context, stores Stores) {
	if !f.Exists() {
		return
	}
	stores.Cookies.SetItem(ctx, FirebaseTokenStorageKey(stores.Resource), f.Token, persistentCookie()...)
	stores.Local.SetItem(ctx, FirebaseTokenStorageKey(stores.Resource), f.Token)
}

// DeserializeFirebaseToken returns nil when no firebase token is stored. The local store wins over cookies.
func DeserializeFirebaseToken(ctx context.Context, stores Stores, enabled bool) *FirebaseToken {
	key := FirebaseTokenStorageKey(stores.Resource)
	val, found := stores.Local.GetItem(ctx, key)
	if !found || val == "" {
		if val, found = stores.Cookies.GetItem(ctx, key); !found || val == "" {
			return nil
		}
	}

	return &FirebaseToken{Token: val, Resource: stores.Resource, Enabled: enabled}
}

func RemoveFirebaseToken(ctx context.Context, stores Stores) {
	key := FirebaseTokenStorageKey(stores.Resource)
	stores.Cookies.RemoveItem(ctx, key, persistentCookie()...)
	stores.Local.RemoveItem(ctx, key)
}
