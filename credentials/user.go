// SPDX-License-Identifier: ice License 1.0

package credentials

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/log"
)

func (u *User) IsConfirmed() bool {
	return u != nil && u.Confirm
}

// Plans are the plans of the user's subscriptions, or the guest plan if there are none.
func (u *User) Plans() []*Plan {
	var subscriptions []*Subscription
	if u != nil {
		subscriptions = u.Subscriptions
	}
	plans := make([]*Plan, 0, len(subscriptions))
	for _, sub := range subscriptions {
		if sub != nil && sub.Plan != nil {
			plans = append(plans, sub.Plan)
		}
	}
	if len(plans) == 0 {
		plans = append(plans, &Plan{Slug: GuestPlan, Title: GuestPlan})
	}

	return plans
}

func (u *User) HasPlan(slug string) bool {
	for _, plan := range u.Plans() {
		if plan.Slug == slug {
			return true
		}
	}

	return false
}

func (u *User) MarshalJSON() ([]byte, error) {
	type plain User

	return marshalWithExtra((*plain)(u), u.Extra)
}

func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	p := new(plain)
	if err := unmarshalWithExtra(data, p, userFields, &p.Extra); err != nil {
		return errors.Wrap(err, "invalid user")
	}
	*u = User(*p)

	return nil
}

// Serialize persists the {id, active, confirm, token} projection of the user to the durable local store.
func (u *User) Serialize(ctx context.Context, stores Stores) {
	if u == nil {
		return
	}
	data, err := json.Marshal(&storedUser{Token: u.Token, ID: u.ID, Active: u.Active, Confirm: u.Confirm})
	if err != nil {
		log.Error(errors.Wrap(err, "failed to encode user"))

		return
	}
	stores.Local.SetItem(ctx, UserStorageKey(stores.Resource), string(data))
}

// DeserializeUser returns nil unless a user with a non-zero id is stored.
func DeserializeUser(ctx context.Context, stores Stores) *User {
	data, found := stores.Local.GetItem(ctx, UserStorageKey(stores.Resource))
	if !found || data == "" {
		return nil
	}
	usr := new(User)
	if err := json.Unmarshal([]byte(data), usr); err != nil {
		log.Warn("ignoring malformed user snapshot", "key", UserStorageKey(stores.Resource), "error", err)

		return nil
	}
	if usr.ID == 0 {
		return nil
	}

	return usr
}

func RemoveUser(ctx context.Context, stores Stores) {
	stores.Local.RemoveItem(ctx, UserStorageKey(stores.Resource))
}
