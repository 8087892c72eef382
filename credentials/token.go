// SPDX-License-Identifier: ice License 1.0

package credentials

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/log"
)

// Exists is true only when there's an access token value. A refresh-only token doesn't authenticate anything.
func (t *Token) Exists() bool {
	return t != nil && t.Value != ""
}

// Serialize writes the token to cookies (value and refresh, never expiring, shared across subdomains if configured)
// and a full JSON snapshot to the durable local store.
func (t *Token) Serialize(ctx context.Context, stores Stores) {
	if t == nil {
		return
	}
	t.serializeCookies(ctx, stores)
	snapshot, err := json.Marshal(t)
	if err != nil {
		log.Error(errors.Wrap(err, "failed to encode token"))

		return
	}
	stores.Local.SetItem(ctx, TokenStorageKey(stores.Resource), string(snapshot))
}

// serializeCookies mirrors both values; an empty one removes the cookie a previous token left behind.
func (t *Token) serializeCookies(ctx context.Context, stores Stores) {
	for key, val := range map[string]string{TokenCookieKey(stores.Resource): t.Value, RefreshCookieKey(stores.Resource): t.Refresh} {
		if val == "" {
			stores.Cookies.RemoveItem(ctx, key, persistentCookie()...)
		} else {
			stores.Cookies.SetItem(ctx, key, val, persistentCookie()...)
		}
	}
}

// DeserializeToken reads the token scoped to stores.Resource.
// Cookies win over the local snapshot; a token found only in the snapshot is written back to the cookies.
// As a last resort, the unscoped keys older SDK versions used are read and migrated to the scoped ones.
// It returns nil if neither a value nor a refresh token is stored.
func DeserializeToken(ctx context.Context, stores Stores) *Token {
	if tok := deserializeToken(ctx, stores); tok != nil {
		return tok
	}
	if stores.Resource == "" {
		return nil
	}
	legacy := deserializeToken(ctx, stores.Legacy())
	if legacy == nil {
		return nil
	}
	legacy.Resource = stores.Resource
	legacy.Serialize(ctx, stores)
	log.Debug("migrated unscoped token", "resource", stores.Resource)

	return legacy
}

func deserializeToken(ctx context.Context, stores Stores) *Token {
	snapshot := localToken(ctx, stores)
	value, _ := stores.Cookies.GetItem(ctx, TokenCookieKey(stores.Resource))
	refresh, _ := stores.Cookies.GetItem(ctx, RefreshCookieKey(stores.Resource))
	if value != "" || refresh != "" {
		tok := &Token{Value: value, Refresh: refresh, Resource: stores.Resource}
		if snapshot != nil && snapshot.Value == value {
			tok.Expire = snapshot.Expire
		}

		return tok
	}
	if snapshot == nil || (snapshot.Value == "" && snapshot.Refresh == "") {
		return nil
	}
	snapshot.Resource = stores.Resource
	snapshot.serializeCookies(ctx, stores)

	return snapshot
}

func localToken(ctx context.Context, stores Stores) *Token {
	data, found := stores.Local.GetItem(ctx, TokenStorageKey(stores.Resource))
	if !found || data == "" {
		return nil
	}
	tok := new(Token)
	if err := json.Unmarshal([]byte(data), tok); err != nil {
		log.Warn("ignoring malformed token snapshot", "key", TokenStorageKey(stores.Resource), "error", err)

		return nil
	}

	return tok
}

// RemoveToken clears the scoped and the unscoped token from both stores. It is idempotent.
func RemoveToken(ctx context.Context, stores Stores) {
	for _, s := range []Stores{stores, stores.Legacy()} {
		stores.Cookies.RemoveItem(ctx, TokenCookieKey(s.Resource), persistentCookie()...)
		stores.Cookies.RemoveItem(ctx, RefreshCookieKey(s.Resource), persistentCookie()...)
		stores.Local.RemoveItem(ctx, TokenStorageKey(s.Resource))
		if s.Resource == "" {
			break
		}
	}
}
