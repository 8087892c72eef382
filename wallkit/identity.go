// SPDX-License-Identifier: ice License 1.0

package wallkit

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/client"
	"github.com/ice-blockchain/wallkit/credentials"
	"github.com/ice-blockchain/wallkit/log"
	"github.com/ice-blockchain/wallkit/relay"
	"github.com/ice-blockchain/wallkit/terror"
)

// Login authorizes the user by its credentials, e.g. {"email": ..., "password": ...}.
func (w *Wallkit) Login(ctx context.Context, data any) (*credentials.User, error) {
	raw, user, err := w.authorize(ctx, "/authorization", data, relay.EventAuth)
	if err != nil {
		return nil, errors.Wrap(err, "login failed")
	}
	w.DispatchLocalEvent(LocalEventAuth, raw)

	return user, nil
}

func (w *Wallkit) Registration(ctx context.Context, data any) (*credentials.User, error) {
	_, user, err := w.authorize(ctx, "/registration", data, relay.EventRegistration)

	return user, errors.Wrap(err, "registration failed")
}

func (w *Wallkit) SocialRegistration(ctx context.Context, data any) (*credentials.User, error) {
	_, user, err := w.authorize(ctx, "/social-registration", data, relay.EventRegistration)

	return user, errors.Wrap(err, "social registration failed")
}

func (w *Wallkit) SocialAuthorization(ctx context.Context, data any) (*credentials.User, error) {
	_, user, err := w.authorize(ctx, "/social-authorization", data, relay.EventAuth)

	return user, errors.Wrap(err, "social authorization failed")
}

// authorize posts data to path and adopts the token and the user of the response.
func (w *Wallkit) authorize(ctx context.Context, path string, data any, event string) (json.RawMessage, *credentials.User, error) {
	if empty(data) {
		return nil, nil, missing("data")
	}
	raw, err := w.client.Do(ctx, &client.Request{Method: http.MethodPost, Path: path, Body: data})
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // Wrapped by the callers.
	}
	resp, user, err := decodeAuthResponse(raw)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unexpected response of %v", path)
	}
	w.adopt(ctx, resp, user)
	w.relay.Send(ctx, event, raw, nil)

	return raw, user, nil
}

func (w *Wallkit) adopt(ctx context.Context, resp *authResponse, user *credentials.User) {
	if resp.Token != "" {
		w.storeToken(ctx, resp.token(w.cfg.Resource))
	}
	w.storeUser(ctx, user)
	w.DispatchLocalEvent(LocalEventUser, user)
	w.reloadResourceIfMissing()
}

// AuthUserByToken adopts token, tells the other frames about it if it's new, and loads the user it belongs to.
func (w *Wallkit) AuthUserByToken(ctx context.Context, token string) (*credentials.User, error) {
	if token == "" {
		return nil, terror.New(ErrInvalidArgument, map[string]any{"argument": "token"})
	}
	fresh := w.GetToken() != token
	if fresh {
		w.storeToken(ctx, &credentials.Token{Value: token, Resource: w.cfg.Resource})
	}
	user, err := w.GetUser(ctx)
	if fresh && !client.IsUnauthorized(err) && (user == nil || user.Token != token) {
		w.relay.Send(ctx, relay.EventToken, token, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to authenticate by token")
	}
	w.reloadResource()

	return user, nil
}

// RefreshToken exchanges a refresh token for a new token. A nil data uses the refresh token of the session.
func (w *Wallkit) RefreshToken(ctx context.Context, data any) (json.RawMessage, error) {
	if data == nil {
		if token := w.Token(); token != nil && token.Refresh != "" {
			data = token.Refresh
		}
	}
	if data == nil || data == "" {
		return nil, terror.New(ErrInvalidArgument, map[string]any{"argument": "refresh_token"})
	}
	raw, err := w.client.Do(ctx, &client.Request{Method: http.MethodPost, Path: "/authorization/refresh", Body: Payload(data, "refresh_token")})
	if err != nil {
		return nil, errors.Wrap(err, "failed to refresh token")
	}
	var resp authResponse
	if err = json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "unexpected response of /authorization/refresh")
	}
	if resp.Token != "" {
		w.storeToken(ctx, resp.token(w.cfg.Resource))
		w.relay.Send(ctx, relay.EventToken, resp.Token, nil)
	}

	return raw, nil
}

// ConfirmPassword confirms a password reset by its code. If the API signs the user in, the session adopts it.
func (w *Wallkit) ConfirmPassword(ctx context.Context, data any) (json.RawMessage, error) {
	if data == nil || data == "" {
		return nil, terror.New(ErrInvalidArgument, map[string]any{"argument": "code"})
	}
	raw, err := w.client.Do(ctx, &client.Request{Method: http.MethodPost, Path: "/confirm-password", Body: Payload(data, "code")})
	if err != nil {
		return nil, errors.Wrap(err, "failed to confirm password")
	}
	if resp, user, dErr := decodeAuthResponse(raw); dErr == nil && resp.Token != "" {
		w.adopt(ctx, resp, user)
	}
	w.relay.Send(ctx, relay.EventConfirmPassword, raw, nil)

	return raw, nil
}

func (w *Wallkit) UpdateUser(ctx context.Context, data any) (*credentials.User, error) {
	if empty(data) {
		return nil, missing("data")
	}
	raw, err := w.client.Do(ctx, &client.Request{Method: http.MethodPut, Path: "/user", Body: data})
	if err != nil {
		return nil, w.unauthorized(ctx, errors.Wrap(err, "failed to update user"))
	}
	user := new(credentials.User)
	if err = json.Unmarshal(raw, user); err != nil {
		return nil, errors.Wrap(err, "unexpected response of /user")
	}
	w.storeUser(ctx, user)
	w.DispatchLocalEvent(LocalEventUser, user)
	w.relay.Send(ctx, relay.EventUserUpdate, raw, nil)

	return user, nil
}

// CheckAuth verifies the session's token by loading the user. Without a token it fails with ErrUnauthorized.
func (w *Wallkit) CheckAuth(ctx context.Context) (*credentials.User, error) {
	if w.Token() == nil {
		return nil, ErrUnauthorized
	}

	return w.GetUser(ctx)
}

// GetUser loads the user of the session's token and announces it, and its token, to the other frames.
func (w *Wallkit) GetUser(ctx context.Context) (*credentials.User, error) {
	return w.getUser(ctx, true)
}

// getUser without broadcast serves users announced by another frame, which must not be echoed back.
func (w *Wallkit) getUser(ctx context.Context, broadcast bool) (*credentials.User, error) {
	raw, err := w.client.Do(ctx, &client.Request{Method: http.MethodGet, Path: "/user"})
	if err != nil {
		return nil, w.unauthorized(ctx, errors.Wrap(err, "failed to get user"))
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("unexpected empty response of /user")
	}
	user := new(credentials.User)
	if err = json.Unmarshal(raw, user); err != nil {
		return nil, errors.Wrap(err, "unexpected response of /user")
	}
	w.storeUser(ctx, user)
	w.reloadResourceIfMissing()
	w.DispatchLocalEvent(LocalEventUser, user)
	if broadcast {
		w.relay.Send(ctx, relay.EventUser, raw, nil)
		if user.Token != "" {
			w.relay.Send(ctx, relay.EventToken, user.Token, nil)
		}
	}

	return user, nil
}

// unauthorized drops every credential and logs out locally if err is a 401. err is returned as is.
func (w *Wallkit) unauthorized(ctx context.Context, err error) error {
	if !client.IsUnauthorized(err) {
		return err
	}
	w.clearCredentials(ctx)
	log.Error(errors.Wrap(w.Logout(ctx, true), "failed to logout an unauthorized user"))

	return err
}

// GetResource loads the resource the session is configured for and trusts its origin from then on.
func (w *Wallkit) GetResource(ctx context.Context) (*credentials.Resource, error) {
	raw, err := w.client.Do(ctx, &client.Request{Method: http.MethodGet, Path: "/resource"})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get resource")
	}
	resource := new(credentials.Resource)
	if err = json.Unmarshal(raw, resource); err != nil {
		return nil, errors.Wrap(err, "unexpected response of /resource")
	}
	w.storeResource(ctx, resource)
	w.relay.Send(ctx, relay.EventResource, raw, nil)
	w.DispatchLocalEvent(LocalEventResource, resource)

	return resource, nil
}

// Logout drops the user, the token and the firebase token. With a token, the API is told about it first,
// but its failure doesn't stop the local logout. Calling it again is harmless.
func (w *Wallkit) Logout(ctx context.Context, broadcast bool) error {
	w.mx.Lock()
	w.user = nil
	hasToken := w.token != nil
	w.mx.Unlock()
	if hasToken {
		if _, err := w.client.Do(ctx, &client.Request{Method: http.MethodGet, Path: "/logout"}); err != nil {
			log.Error(errors.Wrap(err, "remote logout failed"))
		}
	}
	w.clearCredentials(ctx)
	w.DispatchLocalEvent(LocalEventLogout, nil)
	if broadcast {
		w.relay.Send(ctx, relay.EventLogout, true, nil)
	}

	return nil
}

// AuthenticateWithFirebase exchanges a firebase ID token for a Wallkit token and signs the user in with it.
func (w *Wallkit) AuthenticateWithFirebase(ctx context.Context, idToken, captchaToken string) (json.RawMessage, error) {
	if err := w.SetFirebaseToken(ctx, idToken); err != nil {
		return nil, err
	}
	w.sidMx.Lock()
	credentials.RemoveSession(ctx, w.stores)
	w.sidMx.Unlock()
	body := map[string]any{"recaptcha_token": captchaToken}
	raw, err := w.client.Do(ctx, &client.Request{Method: http.MethodPost, Path: "/firebase/oauth/token", Body: body})
	if err != nil {
		w.dropFirebaseToken(ctx)

		return nil, errors.Wrap(err, "firebase authentication failed")
	}
	var resp authResponse
	if err = json.Unmarshal(raw, &resp); err != nil || resp.Token == "" {
		w.dropFirebaseToken(ctx)

		return nil, errors.Errorf("unexpected response of /firebase/oauth/token: %s", raw)
	}
	w.relay.Send(ctx, relay.EventFirebaseAuth, map[string]string{"wk_token": resp.Token, "firebase_token": idToken}, nil)
	if _, err = w.AuthUserByToken(ctx, resp.Token); err != nil {
		return raw, errors.Wrap(err, "failed to load the firebase user")
	}

	return raw, nil
}

// LogoutFromFirebase revokes the firebase token, if any, and then drops every credential including the session marker.
// The credentials are kept if the API refuses the revocation.
func (w *Wallkit) LogoutFromFirebase(ctx context.Context) (bool, error) {
	w.relay.Send(ctx, relay.EventLogout, true, nil)
	w.mx.Lock()
	w.user = nil
	w.mx.Unlock()
	if w.GetFirebaseToken() != "" {
		status, err := client.Call[statusResponse](ctx, w.client, &client.Request{Method: http.MethodPost, Path: "/firebase/revoke-token"})
		if err != nil {
			return false, errors.Wrap(err, "failed to revoke firebase token")
		}
		if status == nil || !status.Status {
			return false, nil
		}
	}
	w.sidMx.Lock()
	credentials.RemoveSession(ctx, w.stores)
	w.sidMx.Unlock()
	w.clearCredentials(ctx)

	return true, nil
}

// VerifyFirebaseToken asks the API whether the firebase token is still valid. If the API fails, the user is logged out.
func (w *Wallkit) VerifyFirebaseToken(ctx context.Context) (bool, error) {
	status, err := client.Call[statusResponse](ctx, w.client, &client.Request{Method: http.MethodPost, Path: "/firebase/verify-token"})
	if err != nil {
		log.Error(errors.Wrap(w.Logout(ctx, true), "failed to logout after firebase verification"))

		return false, errors.Wrap(err, "failed to verify firebase token")
	}

	return status != nil && status.Status, nil
}

func (w *Wallkit) dropFirebaseToken(ctx context.Context) {
	w.mx.Lock()
	defer w.mx.Unlock()
	w.firebase = w.noFirebaseToken()
	credentials.RemoveFirebaseToken(ctx, w.stores)
}
