// SPDX-License-Identifier: ice License 1.0

package storage

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	stdlibtime "time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagefixture "github.com/ice-blockchain/wallkit/storage/fixture"
)

type (
	failingBackend struct {
		failProbe bool
		calls     int
	}
)

func (f *failingBackend) Get(context.Context, string) (string, error) {
	f.calls++

	return "", errors.New("boom")
}

func (f *failingBackend) Set(_ context.Context, key, _ string) error {
	f.calls++
	if key == probeKey && !f.failProbe {
		return nil
	}

	return errors.New("boom")
}

func (f *failingBackend) Delete(_ context.Context, key string) error {
	f.calls++
	if key == probeKey && !f.failProbe {
		return nil
	}

	return errors.New("boom")
}

func TestFormatKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "WallkitToken", FormatKey("WallkitToken", ""))
	assert.Equal(t, "WallkitToken_res-A", FormatKey("WallkitToken", "res-A"))
	assert.NotEqual(t, FormatKey("wk-token", "a"), FormatKey("wk-token", "b"))
	assert.NotEqual(t, FormatKey("wk-token", "a"), FormatKey("wk-token", ""))
}

func TestCookieDomain(t *testing.T) {
	t.Parallel()
	assert.Empty(t, CookieDomain("localhost", true))
	assert.Empty(t, CookieDomain("127.0.0.1", true))
	assert.Empty(t, CookieDomain("::1", true))
	assert.Empty(t, CookieDomain("app.example.com", false))
	assert.Equal(t, ".example.co.uk", CookieDomain("app.example.co.uk", true))
	assert.Equal(t, ".example.com", CookieDomain("a.b.example.com", true))
	assert.Equal(t, ".example.com", CookieDomain("Example.COM.", true))
	assert.Empty(t, CookieDomain("co.uk", true))
}

func TestCookies(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	jar := NewCookieJar()
	cookies, err := NewCookies(jar, "https://app.example.com/checkout", true)
	require.NoError(t, err)
	assert.Equal(t, ".example.com", cookies.Domain())

	_, found := cookies.GetItem(ctx, "wk-token")
	assert.False(t, found)
	cookies.SetItem(ctx, "wk-token", "T1 =;%", Forever(), CrossSubdomain())
	val, found := cookies.GetItem(ctx, "wk-token")
	require.True(t, found)
	assert.Equal(t, "T1 =;%", val)

	sibling, err := url.Parse("https://shop.example.com/")
	require.NoError(t, err)
	require.Len(t, jar.Cookies(sibling), 1)

	cookies.SetItem(ctx, "host-only", "x")
	require.Len(t, jar.Cookies(sibling), 1)
	assert.Equal(t, "wk-token", jar.Cookies(sibling)[0].Name)

	cookies.RemoveItem(ctx, "wk-token", CrossSubdomain())
	_, found = cookies.GetItem(ctx, "wk-token")
	assert.False(t, found)
	cookies.RemoveItem(ctx, "wk-token")
	cookies.RemoveItem(ctx, "host-only")
	_, found = cookies.GetItem(ctx, "host-only")
	assert.False(t, found)
	assert.Empty(t, jar.Cookies(sibling))
}

func TestCookiesExpiry(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	cookies, err := NewCookies(nil, "http://localhost:3000", true)
	require.NoError(t, err)
	assert.Empty(t, cookies.Domain())

	cookies.SetItem(ctx, "expired", "v", WithExpiry(stdlibtime.Now().Add(-stdlibtime.Hour)))
	_, found := cookies.GetItem(ctx, "expired")
	assert.False(t, found)
	cookies.SetItem(ctx, "ttl", "v", WithTTL(stdlibtime.Hour), CrossSubdomain())
	val, found := cookies.GetItem(ctx, "ttl")
	assert.True(t, found)
	assert.Equal(t, "v", val)
	cookies.SetItem(ctx, "scoped", "v", WithPath("/other"))
	_, found = cookies.GetItem(ctx, "scoped")
	assert.False(t, found)

	for _, reserved := range []string{"expires", "Max-Age", "path", "domain", "secure", ""} {
		cookies.SetItem(ctx, reserved, "v")
		_, found = cookies.GetItem(ctx, reserved)
		assert.False(t, found, reserved)
	}
	assert.Equal(t, 9999, InfiniteExpiry.Year())
	assert.Equal(t, "Fri, 31 Dec 9999 23:59:59 GMT", InfiniteExpiry.Format(http.TimeFormat))
}

func TestNewCookiesInvalidPageURL(t *testing.T) {
	t.Parallel()
	_, err := NewCookies(nil, "/relative", false)
	require.Error(t, err)
	_, err = NewCookies(nil, "://bogus", false)
	require.Error(t, err)
}

func TestLocalOnFailingBackend(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	backend := &failingBackend{failProbe: true}
	local := NewLocal(backend)
	assert.False(t, local.Available(ctx))
	local.SetItem(ctx, "k", "v")
	_, found := local.GetItem(ctx, "k")
	assert.False(t, found)
	local.RemoveItem(ctx, "k")
	assert.Equal(t, 1, backend.calls)

	flaky := &failingBackend{}
	local = NewLocal(flaky)
	assert.True(t, local.Available(ctx))
	local.SetItem(ctx, "k", "v")
	_, found = local.GetItem(ctx, "k")
	assert.False(t, found)
	local.RemoveItem(ctx, "k")

	assert.False(t, NewLocal(nil).Available(ctx))
}

func TestLocalProbeRetriedAfterCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	local := NewLocal(new(cancelledBackend))
	assert.False(t, local.Available(ctx))
	assert.False(t, local.probed)
	assert.True(t, local.Available(t.Context()))
}

type cancelledBackend struct{}

func (*cancelledBackend) Get(ctx context.Context, _ string) (string, error) {
	return "", ctx.Err()
}

func (*cancelledBackend) Set(ctx context.Context, _, _ string) error {
	return ctx.Err()
}

func (*cancelledBackend) Delete(ctx context.Context, _ string) error {
	return ctx.Err()
}

func TestLocalMemory(t *testing.T) {
	t.Parallel()
	testLocal(t, NewMemoryBackend())
}

func TestLocalFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "local-storage.json")
	testLocal(t, NewFileBackend(path))

	reopened := NewLocal(NewFileBackend(path))
	val, found := reopened.GetItem(t.Context(), "kept")
	require.True(t, found)
	assert.Equal(t, `{"a":1}`, val)
}

func TestLocalRedis(t *testing.T) {
	t.Parallel()
	db := storagefixture.NewRedis(t)
	testLocal(t, NewRedisBackend(db, "test"))

	keys, err := db.Keys(t.Context(), "test:*").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"test:kept"}, keys)
}

func testLocal(t *testing.T, backend Backend) {
	t.Helper()
	ctx := t.Context()
	local := NewLocal(backend)
	require.True(t, local.Available(ctx))

	_, found := local.GetItem(ctx, "missing")
	assert.False(t, found)
	local.SetItem(ctx, "k", "v1")
	local.SetItem(ctx, "k", "v2", Forever())
	val, found := local.GetItem(ctx, "k")
	require.True(t, found)
	assert.Equal(t, "v2", val)
	local.SetItem(ctx, "empty", "")
	val, found = local.GetItem(ctx, "empty")
	assert.True(t, found)
	assert.Empty(t, val)
	local.RemoveItem(ctx, "k")
	local.RemoveItem(ctx, "k")
	local.RemoveItem(ctx, "empty")
	_, found = local.GetItem(ctx, "k")
	assert.False(t, found)
	local.SetItem(ctx, "kept", `{"a":1}`)
	_, found = local.GetItem(ctx, probeKey)
	assert.False(t, found)
}
