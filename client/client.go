// SPDX-License-Identifier: ice License 1.0

package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/log"
)

func New(cfg *Config, creds CredentialSource) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cl := req.C().
		SetBaseURL(strings.TrimSuffix(cfg.APIURL, "/")).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal).
		SetTimeout(timeout).
		SetCommonHeader(ClientHeader, Name).
		SetCommonHeader(acceptHeader, applicationJSON)
	if cfg.Jar != nil {
		cl.SetCookieJar(cfg.Jar)
	}
	if cfg.RetryCount > 0 {
		cl.SetCommonRetryCount(cfg.RetryCount).
			SetCommonRetryBackoffInterval(minRetryBackoff, maxRetryBackoff).
			SetCommonRetryCondition(retryable).
			SetCommonRetryHook(func(resp *req.Response, err error) {
				switch {
				case err != nil:
					log.Warn("wallkit request failed, retrying...", "error", err)
				case resp.GetStatusCode() == http.StatusTooManyRequests:
					log.Warn("wallkit rate limit reached, retrying...")
				default:
					log.Warn("wallkit request failed, retrying...", "status", resp.GetStatusCode())
				}
			})
	}

	return &Client{cl: cl, creds: creds}
}

// Only idempotent reads are retried.
func retryable(resp *req.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}

	return err != nil || resp.GetStatusCode() == http.StatusTooManyRequests || resp.GetStatusCode() >= http.StatusInternalServerError
}

// Do sends r and returns the raw body of a 2xx response, nil if it was empty.
// Any other status yields an *Error. A 401 marked as compromised resets every credential of the source first.
func (c *Client) Do(ctx context.Context, r *Request) (json.RawMessage, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	request := c.build(ctx, r)
	resp, err := request.Send(method, r.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "%v %v failed", method, r.Path)
	}
	body := resp.Bytes()
	if code := resp.GetStatusCode(); code >= http.StatusOK && code < http.StatusMultipleChoices {
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, nil
		}

		return json.RawMessage(body), nil
	}
	apiErr := newError(resp, body)
	if apiErr.StatusCode == http.StatusUnauthorized && apiErr.Code() == CompromisedTokenCode {
		log.Warn("wallkit token is compromised, dropping credentials", "url", apiErr.RequestURL)
		c.creds.Reset(ctx)
	}

	return nil, apiErr
}

func (c *Client) build(ctx context.Context, r *Request) *req.Request {
	request := c.cl.R().SetContext(ctx).SetHeader(ResourceHeader, c.creds.Resource())
	if !r.IgnoreSession {
		if session := c.creds.Session(ctx); session != "" {
			request.SetHeader(SessionHeader, session)
		}
	}
	if !r.IgnoreTokens {
		if token := c.creds.Token(); token != "" {
			request.SetHeader(TokenHeader, token)
		}
		if token := c.creds.FirebaseToken(); token != "" {
			request.SetHeader(FirebaseTokenHeader, token)
		}
	}
	for key, val := range r.Query {
		if param, ok := queryParam(val); ok {
			request.SetQueryParam(key, param)
		}
	}
	if r.Body != nil {
		request.SetBodyJsonMarshal(r.Body)
	}

	return request
}

// Call is Do decoding the response into T. An empty response yields nil.
func Call[T any](ctx context.Context, c *Client, r *Request) (*T, error) {
	raw, err := c.Do(ctx, r)
	if err != nil || raw == nil {
		return nil, err
	}
	result := new(T)
	if err = json.Unmarshal(raw, result); err != nil {
		return nil, errors.Wrapf(err, "failed to decode response of %v %v", r.Method, r.Path)
	}

	return result, nil
}

func queryParam(val any) (string, bool) {
	switch v := val.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), true
	default:
		data, err := json.Marshal(v)
		if err != nil {
			log.Warn("dropping query param that can't be encoded", "error", err)

			return "", false
		}

		return string(data), true
	}
}

func newError(resp *req.Response, body []byte) *Error {
	apiErr := &Error{StatusCode: resp.GetStatusCode(), StatusText: http.StatusText(resp.GetStatusCode())}
	if resp.Response != nil && resp.Response.Request != nil && resp.Response.Request.URL != nil {
		apiErr.RequestURL = resp.Response.Request.URL.String()
	}
	if len(bytes.TrimSpace(body)) > 0 {
		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err == nil {
			apiErr.Response = decoded
		}
	}
	apiErr.Message = apiErr.StatusText
	if description, ok := apiErr.Response[errorDescription].(string); ok && description != "" {
		apiErr.Message = description
	}

	return apiErr
}

func (e *Error) Error() string {
	return e.Message
}

// Code is the machine readable `error` field of the response, if any.
func (e *Error) Code() string {
	code, _ := e.Response[errorField].(string) //nolint:errcheck // Not an error.

	return code
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized //nolint:errorlint // Sentinel.
}

// IsUnauthorized reports whether err is, or wraps, a 401 of the API.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
