// SPDX-License-Identifier: ice License 1.0

package wallkit

import (
	"context"
	"strconv"
	stdlibtime "time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/credentials"
	"github.com/ice-blockchain/wallkit/log"
	"github.com/ice-blockchain/wallkit/relay"
	"github.com/ice-blockchain/wallkit/terror"
)

// Init restores the persisted credentials, schedules whatever re-fetch they need and starts listening
// to the browsing context. Any later call is a no-op returning true.
func (w *Wallkit) Init(ctx context.Context) (bool, error) {
	w.sessionMx.Lock()
	defer w.sessionMx.Unlock()
	if w.isClosed() {
		return false, ErrClosed
	}
	if w.initialized {
		return true, nil
	}
	user := credentials.DeserializeUser(ctx, w.stores)
	token := credentials.DeserializeToken(ctx, w.stores)
	resource := credentials.DeserializeResource(ctx, w.stores)
	firebase := credentials.DeserializeFirebaseToken(ctx, w.stores, w.cfg.Firebase)
	if firebase.Expired(stdlibtime.Now()) {
		log.Debug("dropping expired firebase token", "resource", w.cfg.Resource)
		credentials.RemoveFirebaseToken(ctx, w.stores)
		firebase = nil
	}
	if firebase == nil {
		firebase = w.noFirebaseToken()
	}
	if resource != nil {
		w.origins.Add(resource.Origin)
	}
	w.mx.Lock()
	w.user, w.token, w.resource, w.firebase = user, token, resource, firebase
	w.mx.Unlock()

	if userReloadNeeded(user, token, firebase) {
		log.Trace("WkGoSDK user is stale, reloading", "resource", w.cfg.Resource)
		w.reloadUser(true)
	}
	if resource == nil && token != nil {
		w.reloadResource()
	}
	w.stopListening = w.bc.Listen(w.listener)
	w.stores.Local.SetItem(ctx, log.DebugModeStorageKey, strconv.FormatBool(w.cfg.Debug))
	log.SetDebugMode(w.cfg.Debug)
	w.initialized = true

	return true, nil
}

// A persisted user is stale if it's missing while a token is there,
// or if it was issued for another token than the one a firebase sign-in left behind.
func userReloadNeeded(user *credentials.User, token *credentials.Token, firebase *credentials.FirebaseToken) bool {
	switch {
	case user == nil && token != nil && !firebase.Enabled:
		return true
	case user == nil && token != nil && firebase.Exists():
		return true
	default:
		return user != nil && user.Token != "" && token.Exists() && firebase.Exists() && user.Token != token.Value
	}
}

func (w *Wallkit) Initialized() bool {
	w.sessionMx.Lock()
	defer w.sessionMx.Unlock()

	return w.initialized
}

func (w *Wallkit) listener(ev *relay.MessageEvent) {
	event, ok := relay.Parse(w.origins, w.bc.Origin(), ev)
	if !ok {
		return
	}
	log.Trace("WkGoSDK <==", "name", event.Name, "value", string(event.Value))
	w.apply(w.bgCtx, event)
}

func (w *Wallkit) apply(ctx context.Context, event *relay.Event) {
	switch event.Kind {
	case relay.KindUser:
		resp, user, err := decodeAuthResponse(event.Value)
		if err != nil {
			log.Warn("dropping malformed user event", "name", event.Name, "error", err)

			return
		}
		if resp.Token != "" {
			w.storeToken(ctx, resp.token(w.cfg.Resource))
		}
		w.storeUser(ctx, user)
		w.DispatchLocalEvent(LocalEventUser, user)
	case relay.KindToken:
		var value string
		if err := json.Unmarshal(event.Value, &value); err != nil || value == "" {
			log.Warn("dropping malformed token event", "name", event.Name)

			return
		}
		w.storeToken(ctx, &credentials.Token{Value: value, Resource: w.cfg.Resource})
		w.reloadUser(false)
	case relay.KindCheckToken:
		if token := w.Token(); token.Exists() {
			w.relay.Send(ctx, relay.EventToken, token.Value, nil)
		}
	case relay.KindFirebaseToken:
		var value string
		if err := json.Unmarshal(event.Value, &value); err != nil {
			log.Warn("dropping malformed firebase token event", "name", event.Name)

			return
		}
		log.Error(errors.Wrap(w.SetFirebaseToken(ctx, value), "failed to apply firebase token event"))
	}
}

func decodeAuthResponse(data json.RawMessage) (*authResponse, *credentials.User, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil, errors.New("empty response")
	}
	resp := new(authResponse)
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, nil, errors.Wrap(err, "failed to decode token")
	}
	user := new(credentials.User)
	if err := json.Unmarshal(data, user); err != nil {
		return nil, nil, errors.Wrap(err, "failed to decode user")
	}

	return resp, user, nil
}

func (r *authResponse) token(resource string) *credentials.Token {
	return &credentials.Token{Value: r.Token, Refresh: r.RefreshToken, Expire: r.Expires, Resource: resource}
}

func (w *Wallkit) storeToken(ctx context.Context, token *credentials.Token) {
	w.mx.Lock()
	defer w.mx.Unlock()
	w.token = token
	token.Serialize(ctx, w.stores)
}

func (w *Wallkit) storeUser(ctx context.Context, user *credentials.User) {
	w.mx.Lock()
	defer w.mx.Unlock()
	w.user = user
	user.Serialize(ctx, w.stores)
}

func (w *Wallkit) storeResource(ctx context.Context, resource *credentials.Resource) {
	w.origins.Add(resource.Origin)
	w.mx.Lock()
	defer w.mx.Unlock()
	w.resource = resource
	resource.Serialize(ctx, w.stores)
}

// clearCredentials drops the token, the user and the firebase token, in memory and in storage.
func (w *Wallkit) clearCredentials(ctx context.Context) {
	w.mx.Lock()
	defer w.mx.Unlock()
	w.token, w.user, w.firebase = nil, nil, w.noFirebaseToken()
	credentials.RemoveUser(ctx, w.stores)
	credentials.RemoveToken(ctx, w.stores)
	credentials.RemoveFirebaseToken(ctx, w.stores)
}

func (w *Wallkit) noFirebaseToken() *credentials.FirebaseToken {
	return &credentials.FirebaseToken{Resource: w.cfg.Resource, Enabled: w.cfg.Firebase}
}

// SetToken replaces the token with a bare value, dropping its refresh token and expiry.
func (w *Wallkit) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return terror.New(ErrInvalidArgument, map[string]any{"argument": "token"})
	}
	w.storeToken(ctx, &credentials.Token{Value: token, Resource: w.cfg.Resource})

	return nil
}

func (w *Wallkit) SetFirebaseToken(ctx context.Context, token string) error {
	if token == "" {
		return terror.New(ErrInvalidArgument, map[string]any{"argument": "firebaseToken"})
	}
	w.mx.Lock()
	defer w.mx.Unlock()
	w.firebase = &credentials.FirebaseToken{Token: token, Resource: w.cfg.Resource, Enabled: w.cfg.Firebase}
	w.firebase.Serialize(ctx, w.stores)

	return nil
}

// GetToken is the token the user was issued with, if the API embedded one into it, or else the session's token.
func (w *Wallkit) GetToken() string {
	w.mx.RLock()
	defer w.mx.RUnlock()
	if w.user != nil && w.user.Token != "" {
		return w.user.Token
	}
	if w.token.Exists() {
		return w.token.Value
	}

	return ""
}

func (w *Wallkit) GetFirebaseToken() string {
	w.mx.RLock()
	defer w.mx.RUnlock()
	if w.firebase == nil {
		return ""
	}

	return w.firebase.Token
}

// Token returns a copy of the current token, nil if there's none.
func (w *Wallkit) Token() *credentials.Token {
	w.mx.RLock()
	defer w.mx.RUnlock()
	if w.token == nil {
		return nil
	}
	token := *w.token

	return &token
}

// User returns a copy of the current user, nil if there's none.
func (w *Wallkit) User() *credentials.User {
	w.mx.RLock()
	defer w.mx.RUnlock()
	if w.user == nil {
		return nil
	}
	user := *w.user

	return &user
}

// Resource returns a copy of the cached resource, nil if it wasn't loaded yet.
func (w *Wallkit) Resource() *credentials.Resource {
	w.mx.RLock()
	defer w.mx.RUnlock()
	if w.resource == nil {
		return nil
	}
	resource := *w.resource

	return &resource
}

func (w *Wallkit) IsAuthenticated() bool {
	w.mx.RLock()
	defer w.mx.RUnlock()

	return w.user != nil && w.token != nil
}

func (w *Wallkit) Config() Config {
	cfg := *w.cfg
	cfg.TrustedOrigins = w.origins.All()

	return cfg
}

func (w *Wallkit) reloadUser(broadcast bool) {
	w.background(func(ctx context.Context) {
		if _, err := w.getUser(ctx, broadcast); err != nil && ctx.Err() == nil {
			log.Error(errors.Wrap(err, "failed to reload the user"))
		}
	})
}

func (w *Wallkit) reloadResource() {
	w.background(func(ctx context.Context) {
		if _, err := w.GetResource(ctx); err != nil && ctx.Err() == nil {
			log.Error(errors.Wrap(err, "resource not configured"), "resource", w.cfg.Resource)
		}
	})
}

func (w *Wallkit) reloadResourceIfMissing() {
	w.mx.RLock()
	missing := w.resource == nil && w.token != nil
	w.mx.RUnlock()
	if missing {
		w.reloadResource()
	}
}

// background runs task on the session's lifetime. Tasks are dropped once the session is closed.
func (w *Wallkit) background(task func(context.Context)) {
	w.bgMx.Lock()
	defer w.bgMx.Unlock()
	if w.closed {
		return
	}
	w.bgWG.Add(1)
	go func() {
		defer w.bgWG.Done()
		task(w.bgCtx)
	}()
}

func (w *Wallkit) isClosed() bool {
	w.bgMx.Lock()
	defer w.bgMx.Unlock()

	return w.closed
}

// Close stops listening to the browsing context and waits for the background tasks until ctx is done.
// The browsing context is closed only if the session created it.
func (w *Wallkit) Close(ctx context.Context) error {
	w.sessionMx.Lock()
	defer w.sessionMx.Unlock()
	w.bgMx.Lock()
	if w.closed {
		w.bgMx.Unlock()

		return nil
	}
	w.closed = true
	w.bgMx.Unlock()
	if w.stopListening != nil {
		w.stopListening()
	}
	w.bgCancel()
	done := make(chan struct{})
	go func() {
		w.bgWG.Wait()
		close(done)
	}()
	var mErr *multierror.Error
	select {
	case <-done:
	case <-ctx.Done():
		mErr = multierror.Append(mErr, errors.Wrap(ctx.Err(), "background tasks are still running"))
	}
	if w.ownedBC != nil {
		mErr = multierror.Append(mErr, errors.Wrap(w.ownedBC.Close(), "failed to close the browsing context"))
	}

	return mErr.ErrorOrNil() //nolint:wrapcheck // Not needed.
}

func (c *credentialSource) Resource() string {
	return c.w.cfg.Resource
}

func (c *credentialSource) Token() string {
	if token := c.w.Token(); token != nil {
		return token.Value
	}

	return ""
}

func (c *credentialSource) FirebaseToken() string {
	return c.w.GetFirebaseToken()
}

func (c *credentialSource) Session(ctx context.Context) string {
	c.w.sidMx.Lock()
	defer c.w.sidMx.Unlock()

	return credentials.SessionID(ctx, c.w.stores)
}

func (c *credentialSource) Reset(ctx context.Context) {
	log.Warn("wallkit token compromised, dropping every credential", "resource", c.w.cfg.Resource)
	c.w.sidMx.Lock()
	credentials.RemoveSession(ctx, c.w.stores)
	c.w.sidMx.Unlock()
	c.w.clearCredentials(ctx)
}
