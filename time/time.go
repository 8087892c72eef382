// SPDX-License-Identifier: ice License 1.0

package time

import (
	"strconv"
	"strings"
	stdlibtime "time"

	"github.com/pkg/errors"
)

func Now() *Time {
	now := stdlibtime.Now().UTC()

	return &Time{
		Time: &now,
	}
}

func New(time stdlibtime.Time) *Time {
	return &Time{
		Time: &time,
	}
}

func (t *Time) IsNil() bool {
	return t == nil || t.Time == nil
}

// Expired reports whether t is set and not after now.
func (t *Time) Expired(now stdlibtime.Time) bool {
	return !t.IsNil() && !t.Time.After(now)
}

func (t *Time) MarshalJSON() ([]byte, error) {
	if t.IsNil() || t.UnixNano() == 0 {
		return []byte("null"), nil
	}

	return []byte(strconv.Quote(t.UTC().Format(stdlibtime.RFC3339Nano))), nil
}

func (t *Time) UnmarshalJSON(bytes []byte) error {
	data := strings.TrimSpace(string(bytes))
	if data == "null" || data == `""` || data == "" {
		t.Time = nil

		return nil
	}
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(data)
		if err != nil {
			return errors.Wrapf(err, "invalid time string: %v", data)
		}
		data = unquoted
	}

	return t.UnmarshalText([]byte(data))
}

func (t *Time) MarshalText() ([]byte, error) {
	if t.IsNil() {
		return []byte{}, nil
	}

	return []byte(t.UTC().Format(stdlibtime.RFC3339Nano)), nil
}

func (t *Time) UnmarshalText(text []byte) error {
	data := strings.TrimSpace(string(text))
	if data == "" {
		t.Time = nil

		return nil
	}
	if parsed, ok := parseEpoch(data); ok {
		t.Time = &parsed

		return nil
	}
	parsed, err := stdlibtime.Parse(stdlibtime.RFC3339Nano, data)
	if err != nil {
		return errors.Wrapf(err, "invalid time format: %v", data)
	}
	parsed = parsed.UTC()
	t.Time = &parsed

	return nil
}

func parseEpoch(data string) (stdlibtime.Time, bool) {
	if strings.ContainsRune(data, '.') {
		secs, err := strconv.ParseFloat(data, 64)
		if err != nil {
			return stdlibtime.Time{}, false
		}

		return stdlibtime.UnixMilli(int64(secs * 1000)).UTC(), true //nolint:mnd,gomnd // Millis in a second.
	}
	epoch, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return stdlibtime.Time{}, false
	}
	digits := len(strings.TrimPrefix(data, "-"))
	switch {
	case digits <= secondsMaxDigits:
		return stdlibtime.Unix(epoch, 0).UTC(), true
	case digits == millisDigits:
		return stdlibtime.UnixMilli(epoch).UTC(), true
	default:
		return stdlibtime.Unix(0, epoch).UTC(), true
	}
}
