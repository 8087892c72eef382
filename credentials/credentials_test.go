// SPDX-License-Identifier: ice License 1.0

package credentials

import (
	"fmt"
	"testing"
	stdlibtime "time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ice-blockchain/wallkit/storage"
	"github.com/ice-blockchain/wallkit/time"
)

func newStores(t *testing.T, resource string) Stores {
	t.Helper()
	cookies, err := storage.NewCookies(nil, "https://app.example.com/", true)
	require.NoError(t, err)

	return Stores{Cookies: cookies, Local: storage.NewLocal(storage.NewMemoryBackend()), Resource: resource}
}

func TestStorageKeys(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "WallkitToken_res-A", TokenStorageKey("res-A"))
	assert.Equal(t, "WallkitToken", TokenStorageKey(""))
	assert.Equal(t, "WallkitUser_res-A", UserStorageKey("res-A"))
	assert.Equal(t, "WallkitResource", ResourceStorageKey(""))
	assert.Equal(t, "wk-token_r", TokenCookieKey("r"))
	assert.Equal(t, "wk-refresh_r", RefreshCookieKey("r"))
	assert.Equal(t, "wk-session_r", SessionStorageKey("r"))
	assert.Equal(t, "firebase-token_r", FirebaseTokenStorageKey("r"))
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	for _, resource := range []string{"", "res-A"} {
		t.Run(fmt.Sprintf("resource=%q", resource), func(t *testing.T) {
			t.Parallel()
			ctx := t.Context()
			stores := newStores(t, resource)
			assert.Nil(t, DeserializeToken(ctx, stores))

			expire := time.New(stdlibtime.Date(2030, 1, 1, 0, 0, 0, 0, stdlibtime.UTC))
			(&Token{Value: "T1", Refresh: "R1", Expire: expire, Resource: resource}).Serialize(ctx, stores)
			tok := DeserializeToken(ctx, stores)
			require.NotNil(t, tok)
			assert.True(t, tok.Exists())
			assert.Equal(t, "T1", tok.Value)
			assert.Equal(t, "R1", tok.Refresh)
			assert.Equal(t, resource, tok.Resource)
			require.NotNil(t, tok.Expire)
			assert.True(t, expire.Equal(*tok.Expire.Time))

			val, found := stores.Cookies.GetItem(ctx, TokenCookieKey(resource))
			assert.True(t, found)
			assert.Equal(t, "T1", val)

			RemoveToken(ctx, stores)
			RemoveToken(ctx, stores)
			assert.Nil(t, DeserializeToken(ctx, stores))
			_, found = stores.Local.GetItem(ctx, TokenStorageKey(resource))
			assert.False(t, found)
			_, found = stores.Cookies.GetItem(ctx, RefreshCookieKey(resource))
			assert.False(t, found)
		})
	}
}

func TestTokenRefreshOnly(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	stores := newStores(t, "r")
	(&Token{Refresh: "R1"}).Serialize(ctx, stores)
	tok := DeserializeToken(ctx, stores)
	require.NotNil(t, tok)
	assert.False(t, tok.Exists())
	assert.Equal(t, "R1", tok.Refresh)
	assert.False(t, (*Token)(nil).Exists())
}

func TestTokenWithoutRefreshDropsPreviousRefresh(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	stores := newStores(t, "res-A")
	(&Token{Value: "T1", Refresh: "R1", Resource: "res-A"}).Serialize(ctx, stores)
	(&Token{Value: "OTHER", Resource: "res-A"}).Serialize(ctx, stores)

	tok := DeserializeToken(ctx, stores)
	require.NotNil(t, tok)
	assert.Equal(t, &Token{Value: "OTHER", Resource: "res-A"}, tok)
	_, found := stores.Cookies.GetItem(ctx, RefreshCookieKey("res-A"))
	assert.False(t, found)

	(&Token{Refresh: "R2", Resource: "res-A"}).Serialize(ctx, stores)
	tok = DeserializeToken(ctx, stores)
	require.NotNil(t, tok)
	assert.Equal(t, &Token{Refresh: "R2", Resource: "res-A"}, tok)
	_, found = stores.Cookies.GetItem(ctx, TokenCookieKey("res-A"))
	assert.False(t, found)
}

func TestTokenBackFillsCookies(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	stores := newStores(t, "res-A")
	stores.Local.SetItem(ctx, TokenStorageKey("res-A"), `{"value":"T1","refresh":"R1","expire":1893456000}`)
	_, found := stores.Cookies.GetItem(ctx, TokenCookieKey("res-A"))
	require.False(t, found)

	tok := DeserializeToken(ctx, stores)
	require.NotNil(t, tok)
	assert.Equal(t, "T1", tok.Value)
	assert.Equal(t, int64(1893456000), tok.Expire.Unix())
	val, found := stores.Cookies.GetItem(ctx, TokenCookieKey("res-A"))
	assert.True(t, found)
	assert.Equal(t, "T1", val)
	val, found = stores.Cookies.GetItem(ctx, RefreshCookieKey("res-A"))
	assert.True(t, found)
	assert.Equal(t, "R1", val)
}

func TestTokenLegacyMigration(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	stores := newStores(t, "res-A")
	(&Token{Value: "OLD"}).Serialize(ctx, stores.Legacy())

	tok := DeserializeToken(ctx, stores)
	require.NotNil(t, tok)
	assert.Equal(t, "OLD", tok.Value)
	assert.Equal(t, "res-A", tok.Resource)
	val, found := stores.Cookies.GetItem(ctx, TokenCookieKey("res-A"))
	assert.True(t, found)
	assert.Equal(t, "OLD", val)

	RemoveToken(ctx, stores)
	assert.Nil(t, DeserializeToken(ctx, stores))
	assert.Nil(t, DeserializeToken(ctx, stores.Legacy()))
}

func TestTokenScopedPerResource(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	a := newStores(t, "A")
	b := a
	b.Resource = "B"
	(&Token{Value: "TA"}).Serialize(ctx, a)
	(&Token{Value: "TB"}).Serialize(ctx, b)
	assert.Equal(t, "TA", DeserializeToken(ctx, a).Value)
	assert.Equal(t, "TB", DeserializeToken(ctx, b).Value)
	RemoveToken(ctx, a)
	assert.Nil(t, DeserializeToken(ctx, a))
	assert.Equal(t, "TB", DeserializeToken(ctx, b).Value)
}

func TestUserRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	for _, resource := range []string{"", "res-A"} {
		stores := newStores(t, resource)
		assert.Nil(t, DeserializeUser(ctx, stores))
		usr := new(User)
		require.NoError(t, json.Unmarshal([]byte(`{"id":7,"active":true,"confirm":true,"token":"T1","email":"a@b.c","city":"Odessa"}`), usr))
		assert.Equal(t, "Odessa", usr.Extra["city"])
		usr.Serialize(ctx, stores)

		stored, found := stores.Local.GetItem(ctx, UserStorageKey(resource))
		require.True(t, found)
		assert.JSONEq(t, `{"id":7,"active":true,"confirm":true,"token":"T1"}`, stored)

		restored := DeserializeUser(ctx, stores)
		require.NotNil(t, restored)
		assert.Equal(t, &User{ID: 7, Active: true, Confirm: true, Token: "T1"}, restored)

		RemoveUser(ctx, stores)
		RemoveUser(ctx, stores)
		assert.Nil(t, DeserializeUser(ctx, stores))
	}
}

func TestUserWithoutIDIsNotRestored(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	stores := newStores(t, "")
	(&User{Active: true}).Serialize(ctx, stores)
	assert.Nil(t, DeserializeUser(ctx, stores))
	stores.Local.SetItem(ctx, UserStorageKey(""), "{not json")
	assert.Nil(t, DeserializeUser(ctx, stores))
}

func TestUserJSON(t *testing.T) {
	t.Parallel()
	usr := &User{ID: 7, Email: "a@b.c", Extra: map[string]any{"city": "Odessa", "email": "ignored"}}
	data, err := json.Marshal(usr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"email":"a@b.c","active":false,"confirm":false,"city":"Odessa"}`, string(data))

	var decoded User
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, map[string]any{"city": "Odessa"}, decoded.Extra)
}

func TestUserPlans(t *testing.T) {
	t.Parallel()
	usr := &User{ID: 1}
	require.Len(t, usr.Plans(), 1)
	assert.Equal(t, GuestPlan, usr.Plans()[0].Slug)
	assert.True(t, usr.HasPlan(GuestPlan))
	assert.False(t, usr.IsConfirmed())

	usr = &User{ID: 1, Confirm: true, Subscriptions: []*Subscription{{Plan: &Plan{Slug: "premium"}}, {}}}
	assert.True(t, usr.IsConfirmed())
	assert.True(t, usr.HasPlan("premium"))
	assert.False(t, usr.HasPlan(GuestPlan))
	assert.False(t, (*User)(nil).IsConfirmed())
}

func TestResourceRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	stores := newStores(t, "res-A")
	assert.Nil(t, DeserializeResource(ctx, stores))
	res := &Resource{PublicKey: "res-A", Origin: "https://publisher.example.com", Extra: map[string]any{"title": "News"}}
	res.Serialize(ctx, stores)
	restored := DeserializeResource(ctx, stores)
	require.NotNil(t, restored)
	assert.Equal(t, res, restored)
	RemoveResource(ctx, stores)
	assert.Nil(t, DeserializeResource(ctx, stores))
}

func TestFirebaseToken(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	stores := newStores(t, "res-A")
	assert.Nil(t, DeserializeFirebaseToken(ctx, stores, true))

	(&FirebaseToken{Token: "opaque"}).Serialize(ctx, stores)
	fb := DeserializeFirebaseToken(ctx, stores, true)
	require.NotNil(t, fb)
	assert.Equal(t, &FirebaseToken{Token: "opaque", Resource: "res-A", Enabled: true}, fb)
	assert.False(t, fb.Expired(stdlibtime.Now()))

	stores.Local.RemoveItem(ctx, FirebaseTokenStorageKey("res-A"))
	fb = DeserializeFirebaseToken(ctx, stores, false)
	require.NotNil(t, fb)
	assert.Equal(t, "opaque", fb.Token)

	RemoveFirebaseToken(ctx, stores)
	RemoveFirebaseToken(ctx, stores)
	assert.Nil(t, DeserializeFirebaseToken(ctx, stores, false))
}

func TestFirebaseTokenExpired(t *testing.T) {
	t.Parallel()
	now := stdlibtime.Now()
	sign := func(exp stdlibtime.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}).SignedString([]byte("x"))
		require.NoError(t, err)

		return tok
	}
	assert.True(t, (&FirebaseToken{Token: sign(now.Add(-stdlibtime.Minute))}).Expired(now))
	assert.False(t, (&FirebaseToken{Token: sign(now.Add(stdlibtime.Hour))}).Expired(now))
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("x"))
	require.NoError(t, err)
	assert.False(t, (&FirebaseToken{Token: noExp}).Expired(now))
	assert.False(t, (*FirebaseToken)(nil).Expired(now))
}

func TestSessionID(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	stores := newStores(t, "res-A")
	assert.Regexp(t, "^[0-9a-f]{32}$", NewSessionID())
	assert.NotEqual(t, NewSessionID(), NewSessionID())

	sid := SessionID(ctx, stores)
	assert.Len(t, sid, 32)
	assert.Equal(t, sid, SessionID(ctx, stores))
	val, found := stores.Local.GetItem(ctx, SessionStorageKey("res-A"))
	assert.True(t, found)
	assert.Equal(t, sid, val)

	stores.Cookies.RemoveItem(ctx, SessionStorageKey("res-A"), persistentCookie()...)
	assert.Equal(t, sid, SessionID(ctx, stores))

	RemoveSession(ctx, stores)
	_, found = stores.Local.GetItem(ctx, SessionStorageKey("res-A"))
	assert.False(t, found)
	assert.NotEqual(t, sid, SessionID(ctx, stores))
}

func TestOrigins(t *testing.T) {
	t.Parallel()
	origins := NewOrigins("https://publisher.example.com/", "", "https://wallkit.net")
	assert.True(t, origins.Has("https://wallkit.net"))
	assert.True(t, origins.Has("https://publisher.example.com"))
	assert.False(t, origins.Has(""))
	assert.False(t, origins.Has("https://evil.example.com"))
	assert.Len(t, origins.All(), len(DefaultOrigins)+1)

	origins.Add("https://evil.example.com")
	assert.True(t, origins.Has("https://evil.example.com"))
	assert.False(t, NewOrigins().Has("https://evil.example.com"))
}
