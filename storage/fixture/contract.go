// SPDX-License-Identifier: ice License 1.0

package storagefixture

import (
	"context"
)

// Public API.

type (
	ContextErrClose = func(context.Context) error
)

// Private API.

const (
	redisImage     = "redis:7-alpine"
	redisReadyLog  = "Ready to accept connections"
	redisProto     = "redis"
	startupTimeout = 60
)
