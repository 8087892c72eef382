// SPDX-License-Identifier: ice License 1.0

package storage

import (
	"context"
	"runtime"
	stdlibtime "time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	appCfg "github.com/ice-blockchain/wallkit/config"
	"github.com/ice-blockchain/wallkit/log"
)

// MustConnect opens the Redis client configured under `<applicationYAMLKey>.wallkit/storage`.
// WALLKIT_STORAGE_URL (optionally prefixed by the module) overrides the configured url.
//
//nolint:mnd,gomnd // Configs.
func MustConnect(ctx context.Context, applicationYAMLKey string) *redis.Client {
	var cfg config
	appCfg.MustLoadFromKey(applicationYAMLKey, &cfg)
	if url := appCfg.Env(applicationYAMLKey, "WALLKIT_STORAGE_URL"); url != "" {
		cfg.WallkitStorage.URL = url
	}
	if cfg.WallkitStorage.URL == "" {
		log.Panic(errors.Errorf("%v: wallkit/storage.url is required", applicationYAMLKey))
	}
	opts, err := redis.ParseURL(cfg.WallkitStorage.URL)
	log.Panic(errors.Wrapf(err, "invalid redis url for %v", applicationYAMLKey)) //nolint:revive // That's intended.
	if opts.Username == "" {
		opts.Username = cfg.WallkitStorage.Credentials.User
	}
	if opts.Password == "" {
		opts.Password = cfg.WallkitStorage.Credentials.Password
	}
	opts.ClientName = applicationYAMLKey
	opts.MaxRetries = 10
	opts.MinRetryBackoff = 10 * stdlibtime.Millisecond
	opts.MaxRetryBackoff = 1 * stdlibtime.Second
	opts.DialTimeout = 10 * stdlibtime.Second
	opts.ReadTimeout = 10 * stdlibtime.Second
	opts.WriteTimeout = 10 * stdlibtime.Second
	opts.ContextTimeoutEnabled = true
	opts.PoolFIFO = true
	opts.PoolSize = cfg.WallkitStorage.PoolSize
	if opts.PoolSize == 0 {
		opts.PoolSize = runtime.GOMAXPROCS(-1)
	}
	opts.MinIdleConns = 1
	client := redis.NewClient(opts)
	result, err := client.Ping(ctx).Result()
	log.Panic(errors.Wrap(err, "failed to ping redis"))
	if result != "PONG" {
		log.Panic(errors.Errorf("unexpected ping response: %v", result))
	}

	return client
}

// MustConnectBackend is MustConnect wrapped into a durable local storage backend,
// using the configured namespace.
func MustConnectBackend(ctx context.Context, applicationYAMLKey string) (Backend, *redis.Client) {
	var cfg config
	appCfg.MustLoadFromKey(applicationYAMLKey, &cfg)
	client := MustConnect(ctx, applicationYAMLKey)

	return NewRedisBackend(client, cfg.WallkitStorage.Namespace), client
}
