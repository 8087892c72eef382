// SPDX-License-Identifier: ice License 1.0

package main

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ice-blockchain/wallkit/credentials"
	wallkitfixture "github.com/ice-blockchain/wallkit/wallkit/fixture"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

func TestSessionSurvivesRuns(t *testing.T) { //nolint:paralleltest // Env.
	api := wallkitfixture.New(t)
	t.Setenv("WALLKIT_API_URL", api.URL)
	state := filepath.Join(t.TempDir(), "state.json")

	_, err := execute(t, "whoami", "--state", state)
	require.ErrorContains(t, err, "not signed in")
	assert.Zero(t, api.Count(http.MethodGet, "/user"))

	out, err := execute(t, "login", "--state", state, "--email", wallkitfixture.UserEmail, "--password", wallkitfixture.Password)
	require.NoError(t, err)
	var usr credentials.User
	require.NoError(t, json.Unmarshal([]byte(out), &usr))
	assert.EqualValues(t, wallkitfixture.UserID, usr.ID)
	assert.Equal(t, wallkitfixture.Token, usr.Token)

	out, err = execute(t, "whoami", "--state", state)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &usr))
	assert.Equal(t, wallkitfixture.UserEmail, usr.Email)
	assert.Equal(t, wallkitfixture.Token, api.Header(http.MethodGet, "/user", "token"))

	out, err = execute(t, "access", "article-1", "--state", state)
	require.NoError(t, err)
	assert.JSONEq(t, `{"access":true,"content_key":"article-1"}`, out)

	out, err = execute(t, "refresh", "--state", state)
	require.NoError(t, err)
	var token credentials.Token
	require.NoError(t, json.Unmarshal([]byte(out), &token))
	assert.Equal(t, wallkitfixture.RefreshedToken, token.Value)

	_, err = execute(t, "whoami", "--state", state)
	require.NoError(t, err)
	assert.Equal(t, wallkitfixture.RefreshedToken, api.Header(http.MethodGet, "/user", "token"))

	_, err = execute(t, "logout", "--state", state)
	require.NoError(t, err)
	assert.Equal(t, 1, api.Count(http.MethodGet, "/logout"))
	data, err := os.ReadFile(state)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "WallkitToken")
	assert.NotContains(t, string(data), "WallkitUser")

	_, err = execute(t, "whoami", "--state", state)
	require.ErrorContains(t, err, "not signed in")
}

func TestLoginFailure(t *testing.T) { //nolint:paralleltest // Env.
	api := wallkitfixture.New(t)
	t.Setenv("WALLKIT_API_URL", api.URL)
	state := filepath.Join(t.TempDir(), "state.json")

	_, err := execute(t, "login", "--state", state, "--email", wallkitfixture.UserEmail, "--password", "wrong")
	require.ErrorContains(t, err, "login failed")
	_, err = execute(t, "login", "--state", state)
	require.ErrorContains(t, err, "required flag")
	assert.Equal(t, 1, api.Count(http.MethodPost, "/authorization"))
}

func TestResource(t *testing.T) { //nolint:paralleltest // Env.
	api := wallkitfixture.New(t)
	t.Setenv("WALLKIT_API_URL", api.URL)

	out, err := execute(t, "resource", "--state", filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	var res credentials.Resource
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, wallkitfixture.PublicKey, res.PublicKey)
	assert.Equal(t, wallkitfixture.ResourceOrigin, res.Origin)
}
