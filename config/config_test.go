// SPDX-License-Identifier: ice License 1.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromKey(t *testing.T) {
	t.Parallel()
	var cfg struct {
		Level string `yaml:"level" mapstructure:"level"`
	}
	require.NoError(t, LoadFromKey("logger", &cfg))
	assert.Equal(t, "debug", cfg.Level)

	var missing struct {
		Value string `mapstructure:"value"`
	}
	require.NoError(t, LoadFromKey("does/not/exist", &missing))
	assert.Empty(t, missing.Value)
}

func TestEnv(t *testing.T) { //nolint:paralleltest // It mutates the process env.
	t.Setenv("WALLKIT_TEST_SOMETHING", "scoped")
	t.Setenv("SOMETHING", "global")
	assert.Equal(t, "scoped", Env("wallkit-test", "SOMETHING"))
	assert.Equal(t, "global", Env("other", "SOMETHING"))
	t.Setenv("WALLKIT_TEST_SOMETHING", " ")
	assert.Equal(t, "global", Env("wallkit/test", "SOMETHING"))
}
