// SPDX-License-Identifier: ice License 1.0

package client

import (
	"context"
	"net/http"
	stdlibtime "time"

	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
)

// Public API.

const (
	Version = "1.1.1"
	Name    = "GoSDK v" + Version

	ClientHeader        = "Wallkit-Client"
	ResourceHeader      = "resource"
	SessionHeader       = "session"
	TokenHeader         = "token"
	FirebaseTokenHeader = "firebase-token"

	// CompromisedTokenCode is the `error` value of a 401 body telling that every credential of the client must be dropped.
	CompromisedTokenCode = "token_compromised"
)

var ErrUnauthorized = errors.New("unauthorized")

type (
	// CredentialSource is what the client authenticates requests with.
	CredentialSource interface {
		Resource() string
		Token() string
		FirebaseToken() string
		// Session returns the session marker, creating it on first use.
		Session(ctx context.Context) string
		// Reset drops the session marker, token, user and firebase token.
		Reset(ctx context.Context)
	}
	Request struct {
		Body          any
		Query         map[string]any
		Method        string
		Path          string
		IgnoreTokens  bool
		IgnoreSession bool
	}
	// Error is any non 2xx response of the API.
	Error struct {
		Response   map[string]any
		Message    string
		StatusText string
		RequestURL string
		StatusCode int
	}
	Config struct {
		Jar        http.CookieJar      `yaml:"-" mapstructure:"-"`
		APIURL     string              `yaml:"apiURL" mapstructure:"apiURL"` //nolint:tagliatelle // Nope.
		Timeout    stdlibtime.Duration `yaml:"requestTimeout" mapstructure:"requestTimeout"`
		RetryCount int                 `yaml:"retryCount" mapstructure:"retryCount"`
	}
	Client struct {
		cl    *req.Client
		creds CredentialSource
	}
)

// Private API.

const (
	defaultTimeout   = 30 * stdlibtime.Second
	minRetryBackoff  = 10 * stdlibtime.Millisecond
	maxRetryBackoff  = 1 * stdlibtime.Second
	errorField       = "error"
	errorDescription = "error_description"
	applicationJSON  = "application/json"
	acceptHeader     = "Accept"
)
