// SPDX-License-Identifier: ice License 1.0

package credentials

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/log"
)

func (r *Resource) MarshalJSON() ([]byte, error) {
	type plain Resource

	return marshalWithExtra((*plain)(r), r.Extra)
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	type plain Resource
	p := new(plain)
	if err := unmarshalWithExtra(data, p, resourceFields, &p.Extra); err != nil {
		return errors.Wrap(err, "invalid resource")
	}
	*r = Resource(*p)

	return nil
}

func (r *Resource) Serialize(ctx context.Context, stores Stores) {
	if r == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		log.Error(errors.Wrap(err, "failed to encode resource"))

		return
	}
	stores.Local.SetItem(ctx, ResourceStorageKey(stores.Resource), string(data))
}

func DeserializeResource(ctx context.Context, stores Stores) *Resource {
	data, found := stores.Local.GetItem(ctx, ResourceStorageKey(stores.Resource))
	if !found || data == "" || data == "null" {
		return nil
	}
	res := new(Resource)
	if err := json.Unmarshal([]byte(data), res); err != nil {
		log.Warn("ignoring malformed resource snapshot", "key", ResourceStorageKey(stores.Resource), "error", err)

		return nil
	}

	return res
}

func RemoveResource(ctx context.Context, stores Stores) {
	stores.Local.RemoveItem(ctx, ResourceStorageKey(stores.Resource))
}
