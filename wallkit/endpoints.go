// SPDX-License-Identifier: ice License 1.0

package wallkit

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/client"
	"github.com/ice-blockchain/wallkit/relay"
	"github.com/ice-blockchain/wallkit/terror"
)

// Payload wraps a scalar shorthand into {field: v}. Anything else is sent as is.
func Payload(v any, field string) any {
	switch v.(type) {
	case string, bool, json.Number,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return map[string]any{field: v}
	default:
		return v
	}
}

// call sends r and, if event is set, relays the raw response under that name.
func (w *Wallkit) call(ctx context.Context, r *client.Request, event string) (json.RawMessage, error) {
	raw, err := w.client.Do(ctx, r)
	if err != nil {
		return nil, errors.Wrapf(err, "%v %v failed", r.Method, r.Path)
	}
	if event != "" {
		w.relay.Send(ctx, event, raw, nil)
	}

	return raw, nil
}

func missing(argument string) error {
	return terror.New(ErrInvalidArgument, map[string]any{"argument": argument})
}

func empty(v any) bool {
	return v == nil || v == ""
}

// PasswordReset starts the password reset flow for an email, or for {"email": ...}.
func (w *Wallkit) PasswordReset(ctx context.Context, data any) (json.RawMessage, error) {
	if empty(data) {
		return nil, missing("email")
	}

	return w.call(ctx, &client.Request{Method: http.MethodPost, Path: "/reset-password", Body: Payload(data, "email")}, relay.EventResetPassword)
}

func (w *Wallkit) UpdatePassword(ctx context.Context, data any) (json.RawMessage, error) {
	if empty(data) {
		return nil, missing("new_password")
	}

	return w.call(ctx, &client.Request{Method: http.MethodPut, Path: "/user/password", Body: Payload(data, "new_password")}, relay.EventUpdatePassword)
}

func (w *Wallkit) UpdateEmail(ctx context.Context, data any) (json.RawMessage, error) {
	if empty(data) {
		return nil, missing("email")
	}

	return w.call(ctx, &client.Request{Method: http.MethodPut, Path: "/user/email", Body: Payload(data, "email")}, relay.EventUpdateEmail)
}

func (w *Wallkit) ConfirmEmail(ctx context.Context, data any) (json.RawMessage, error) {
	if empty(data) {
		return nil, missing("code")
	}

	return w.call(ctx, &client.Request{Method: http.MethodPost, Path: "/confirm-email", Body: Payload(data, "code")}, relay.EventEmailConfirm)
}

func (w *Wallkit) ResendEmailConfirmation(ctx context.Context) (json.RawMessage, error) {
	return w.call(ctx, &client.Request{Method: http.MethodPost, Path: "/resend-confirmation"}, relay.EventResendConfirmation)
}

// GetSubscriptions lists the plans of the resource. A nil query lists the first 10 standard ones.
func (w *Wallkit) GetSubscriptions(ctx context.Context, query *SubscriptionsQuery) (json.RawMessage, error) {
	q := SubscriptionsQuery{Page: defaultSubscriptionsPg, Limit: defaultSubscriptionsN}
	if query != nil {
		q.Filter = query.Filter
		if query.Page > 0 {
			q.Page = query.Page
		}
		if query.Limit > 0 {
			q.Limit = query.Limit
		}
	}
	if q.Filter == nil {
		q.Filter = map[string]any{"subscriptions.type": "standard"}
	}
	r := &client.Request{
		Method: http.MethodGet,
		Path:   "/subscriptions",
		Query:  map[string]any{"page": q.Page, "limit": q.Limit, "filter": q.Filter},
	}

	return w.call(ctx, r, relay.EventSubscriptions)
}

func (w *Wallkit) CalculatePrice(ctx context.Context, data any) (json.RawMessage, error) {
	return w.call(ctx, &client.Request{Method: http.MethodPost, Path: "/payment/calculate-price", Body: data}, relay.EventCalculatePrice)
}

// CheckOut pays for data and reloads the user, whose subscriptions it changes, in the background.
func (w *Wallkit) CheckOut(ctx context.Context, data any) (json.RawMessage, error) {
	if empty(data) {
		return nil, missing("data")
	}
	raw, err := w.client.Do(ctx, &client.Request{Method: http.MethodPost, Path: "/payment", Body: data})
	if err != nil {
		return nil, errors.Wrap(err, "checkout failed")
	}
	w.reloadUser(true)
	w.relay.Send(ctx, relay.EventTransaction, raw, nil)

	return raw, nil
}

func (w *Wallkit) ValidatePromo(ctx context.Context, data any) (json.RawMessage, error) {
	if empty(data) {
		return nil, missing("promo")
	}

	return w.call(ctx, &client.Request{Method: http.MethodPost, Path: "/promo-validation", Body: Payload(data, "promo")}, relay.EventPromoValidation)
}

func (w *Wallkit) GetTransactions(ctx context.Context) (json.RawMessage, error) {
	return w.call(ctx, &client.Request{Method: http.MethodGet, Path: "/user/transactions"}, "")
}

func (w *Wallkit) GetTransaction(ctx context.Context, transactionID string) (json.RawMessage, error) {
	if transactionID == "" {
		return nil, missing("transaction_id")
	}

	return w.call(ctx, &client.Request{Method: http.MethodGet, Path: "/user/transactions/" + url.PathEscape(transactionID)}, "")
}

// CheckAccess tells whether the user can access contentKey. A 401 logs the user out.
func (w *Wallkit) CheckAccess(ctx context.Context, contentKey string) (json.RawMessage, error) {
	if contentKey == "" {
		return nil, missing("content_key")
	}
	raw, err := w.call(ctx, &client.Request{Method: http.MethodGet, Path: "/user/content/" + url.PathEscape(contentKey)}, "")

	return raw, w.unauthorized(ctx, err)
}

func (w *Wallkit) GetAccessDetails(ctx context.Context, contentKey string) (json.RawMessage, error) {
	if contentKey == "" {
		return nil, missing("content_key")
	}
	r := &client.Request{Method: http.MethodGet, Path: "/user/content-access-details/" + url.PathEscape(contentKey)}

	return w.call(ctx, r, relay.EventAccessDetails)
}

func (w *Wallkit) GetCountries(ctx context.Context) (json.RawMessage, error) {
	return w.call(ctx, &client.Request{Method: http.MethodGet, Path: "/countries"}, relay.EventCountries)
}

func (w *Wallkit) GetCurrencies(ctx context.Context) (json.RawMessage, error) {
	return w.call(ctx, &client.Request{Method: http.MethodGet, Path: "/currency"}, relay.EventCurrency)
}

func (w *Wallkit) GetResources(ctx context.Context) (json.RawMessage, error) {
	return w.call(ctx, &client.Request{Method: http.MethodGet, Path: "/resources"}, relay.EventResources)
}

func (w *Wallkit) SuspendMe(ctx context.Context) (json.RawMessage, error) {
	return w.call(ctx, &client.Request{Method: http.MethodPost, Path: "/user/suspend"}, relay.EventUserSuspend)
}

// SendEvent records an arbitrary user event, e.g. {"name": "page_view", "value": ...}.
func (w *Wallkit) SendEvent(ctx context.Context, data map[string]any) (json.RawMessage, error) {
	if len(data) == 0 {
		return nil, missing("data")
	}

	return w.call(ctx, &client.Request{Method: http.MethodPost, Path: "/user/event", Body: data}, "")
}

// SendPageView records a page view. A map value is sent as the event itself, with its name forced to page_view.
func (w *Wallkit) SendPageView(ctx context.Context, value any, contentKey string) (json.RawMessage, error) {
	if empty(value) {
		return nil, missing("value")
	}
	data, isMap := value.(map[string]any)
	if isMap {
		event := make(map[string]any, len(data)+1)
		for k, v := range data {
			event[k] = v
		}
		event["name"] = pageViewEvent
		data = event
	} else {
		data = map[string]any{"name": pageViewEvent, "value": value, "content_key": contentKey}
	}

	return w.SendEvent(ctx, data)
}

func (w *Wallkit) FirebasePasswordReset(ctx context.Context, email string) (json.RawMessage, error) {
	if email == "" {
		return nil, missing("email")
	}
	r := &client.Request{Method: http.MethodPost, Path: "/firebase/password-reset", Body: map[string]any{"email": email}}

	return w.call(ctx, r, relay.EventFirebasePasswordReset)
}

func (w *Wallkit) LinkSocialAccount(ctx context.Context, data any) (json.RawMessage, error) {
	if empty(data) {
		return nil, missing("data")
	}

	return w.call(ctx, &client.Request{Method: http.MethodPut, Path: "/user/social", Body: data}, "")
}

// UnlinkSocialAccount unlinks a social login method, given by name or as {"method": ...}.
func (w *Wallkit) UnlinkSocialAccount(ctx context.Context, data any) (json.RawMessage, error) {
	if empty(data) {
		return nil, missing("method")
	}

	return w.call(ctx, &client.Request{Method: http.MethodPost, Path: "/user/social/delete", Body: Payload(data, "method")}, "")
}
