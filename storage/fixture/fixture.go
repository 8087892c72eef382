// SPDX-License-Identifier: ice License 1.0

package storagefixture

import (
	"context"
	stdlog "log"
	"testing"
	stdlibtime "time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ice-blockchain/wallkit/log"
)

// StartRedis runs a throwaway Redis container and returns its url.
func StartRedis(ctx context.Context) (url string, cleanUp ContextErrClose, err error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog(redisReadyLog).WithStartupTimeout(startupTimeout * stdlibtime.Second),
		},
		Started: true,
		Logger:  stdlog.Default(),
	})
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to start redis container")
	}
	cleanUp = func(cctx context.Context) error {
		return errors.Wrapf(container.Terminate(cctx), "redis container %v failed to terminate", container.GetContainerID())
	}
	if url, err = container.Endpoint(ctx, redisProto); err != nil {
		return "", nil, errors.Wrap(multierror.Append(errors.Wrap(err, "failed to get redis endpoint"), cleanUp(ctx)).ErrorOrNil(),
			"failed to setup redis container")
	}

	return url, cleanUp, nil
}

// NewRedis gives the test a client to a fresh Redis container, terminated when the test ends.
// It skips the test in -short mode or when docker isn't reachable.
func NewRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	url, cleanUp, err := StartRedis(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Error(cleanUp(context.Background()))
		t.Fatal(errors.Wrapf(err, "invalid redis url %v", url))
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() {
		log.Error(errors.Wrap(multierror.Append(nil,
			errors.Wrap(client.Close(), "failed to close redis client"),
			cleanUp(context.Background()),
		).ErrorOrNil(), "failed to cleanup redis fixture"))
	})

	return client
}
