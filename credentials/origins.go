// SPDX-License-Identifier: ice License 1.0

package credentials

import (
	"slices"
	"strings"
)

// NewOrigins seeds the allow-list with DefaultOrigins and extra.
func NewOrigins(extra ...string) *Origins {
	o := &Origins{values: make([]string, 0, len(DefaultOrigins)+len(extra))}
	for _, origin := range append(slices.Clone(DefaultOrigins), extra...) {
		o.Add(origin)
	}

	return o
}

func (o *Origins) Add(origin string) {
	origin = normalizeOrigin(origin)
	if origin == "" {
		return
	}
	o.mx.Lock()
	defer o.mx.Unlock()
	if !slices.Contains(o.values, origin) {
		o.values = append(o.values, origin)
	}
}

func (o *Origins) Has(origin string) bool {
	origin = normalizeOrigin(origin)
	if origin == "" {
		return false
	}
	o.mx.RLock()
	defer o.mx.RUnlock()

	return slices.Contains(o.values, origin)
}

func (o *Origins) All() []string {
	o.mx.RLock()
	defer o.mx.RUnlock()

	return slices.Clone(o.values)
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.TrimSpace(origin), "/")
}
