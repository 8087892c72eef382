// SPDX-License-Identifier: ice License 1.0

package log

import (
	"sync/atomic"
)

// Public API.

const (
	// DebugModeStorageKey is where SDK sessions mirror their debug switch in the durable local store.
	DebugModeStorageKey = "debug-wk-sdk"
)

// Private API.

const (
	applicationYAMLKey = "logger"
	defaultLevel       = "info"
)

// .
var (
	//nolint:gochecknoglobals // Process wide switch, toggled by sessions started with debug enabled.
	debugMode atomic.Bool
)

type (
	cfg struct {
		Encoder string `yaml:"encoder" mapstructure:"encoder"`
		Level   string `yaml:"level" mapstructure:"level"`
	}
)
