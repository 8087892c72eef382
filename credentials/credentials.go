// SPDX-License-Identifier: ice License 1.0

package credentials

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/storage"
)

func TokenStorageKey(resource string) string {
	return storage.FormatKey(TokenBaseKey, resource)
}

func UserStorageKey(resource string) string {
	return storage.FormatKey(UserBaseKey, resource)
}

func ResourceStorageKey(resource string) string {
	return storage.FormatKey(ResourceBaseKey, resource)
}

func TokenCookieKey(resource string) string {
	return storage.FormatKey(TokenCookieBaseKey, resource)
}

func RefreshCookieKey(resource string) string {
	return storage.FormatKey(RefreshCookieBaseKey, resource)
}

func SessionStorageKey(resource string) string {
	return storage.FormatKey(SessionBaseKey, resource)
}

func FirebaseTokenStorageKey(resource string) string {
	return storage.FormatKey(FirebaseTokenBaseKey, resource)
}

// Legacy returns the same stores without resource scoping, which is how older SDK versions persisted everything.
func (s Stores) Legacy() Stores {
	s.Resource = ""

	return s
}

func persistentCookie() []storage.Option {
	return []storage.Option{storage.Forever(), storage.WithPath("/"), storage.CrossSubdomain()}
}

// unmarshalWithExtra decodes data into known and collects every field not listed in knownFields into extra.
func unmarshalWithExtra(data []byte, known any, knownFields []string, extra *map[string]any) error {
	if err := json.Unmarshal(data, known); err != nil {
		return errors.Wrap(err, "failed to decode known fields")
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return errors.Wrap(err, "failed to decode extra fields")
	}
	for _, field := range knownFields {
		delete(all, field)
	}
	if len(all) == 0 {
		all = nil
	}
	*extra = all

	return nil
}

// marshalWithExtra encodes known, adding every extra field that doesn't collide with a known one.
func marshalWithExtra(known any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, errors.Wrap(err, "failed to encode known fields")
	}
	var all map[string]any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err = decoder.Decode(&all); err != nil {
		return nil, errors.Wrap(err, "failed to re-decode known fields")
	}
	for field, val := range extra {
		if _, taken := all[field]; !taken {
			all[field] = val
		}
	}
	data, err = json.Marshal(all)

	return data, errors.Wrap(err, "failed to encode extra fields")
}
