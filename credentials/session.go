// SPDX-License-Identifier: ice License 1.0

package credentials

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// NewSessionID is a random 32 character alphanumeric session marker.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SessionID returns the stored session marker, creating and persisting one if there's none yet.
func SessionID(ctx context.Context, stores Stores) string {
	key := SessionStorageKey(stores.Resource)
	if val, found := stores.Cookies.GetItem(ctx, key); found && len(val) == sessionIDLength {
		return val
	}
	val, found := stores.Local.GetItem(ctx, key)
	if !found || len(val) != sessionIDLength {
		val = NewSessionID()
		stores.Local.SetItem(ctx, key, val)
	}
	stores.Cookies.SetItem(ctx, key, val, persistentCookie()...)

	return val
}

func RemoveSession(ctx context.Context, stores Stores) {
	key := SessionStorageKey(stores.Resource)
	stores.Cookies.RemoveItem(ctx, key, persistentCookie()...)
	stores.Local.RemoveItem(ctx, key)
}
