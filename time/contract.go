// SPDX-License-Identifier: ice License 1.0

package time

import (
	stdlibtime "time"

	"github.com/goccy/go-json"
)

// Public API.

type (
	// Time is what the Wallkit API sends as `expires`: unix seconds, sometimes millis or nanos, sometimes RFC3339.
	Time struct {
		*stdlibtime.Time
	}
)

// Private API.

const (
	secondsMaxDigits = 10
	millisDigits     = 13
)

var (
	_ json.Unmarshaler                            = (*Time)(nil)
	_ json.Marshaler                              = (*Time)(nil)
	_ interface{ MarshalText() ([]byte, error) }  = (*Time)(nil)
	_ interface{ UnmarshalText([]byte) error }    = (*Time)(nil)
)
