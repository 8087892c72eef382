// SPDX-License-Identifier: ice License 1.0

package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/log"
)

func NewLocal(backend Backend) *Local {
	return &Local{backend: backend}
}

// Available reports whether the backend accepted a throwaway write and delete.
// The probe runs once; a probe interrupted by ctx is retried on the next call.
func (l *Local) Available(ctx context.Context) bool {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.probed {
		return l.available
	}
	if l.backend == nil {
		l.probed = true

		return false
	}
	err := l.probe(ctx)
	if err != nil && ctx.Err() != nil {
		return false
	}
	l.probed, l.available = true, err == nil
	if err != nil {
		log.Warn("durable local storage is unavailable", "error", err)
	}

	return l.available
}

func (l *Local) probe(ctx context.Context) error {
	if err := l.backend.Set(ctx, probeKey, ""); err != nil {
		return errors.Wrap(err, "probe write failed")
	}

	return errors.Wrap(l.backend.Delete(ctx, probeKey), "probe delete failed")
}

func (l *Local) GetItem(ctx context.Context, key string) (string, bool) {
	if !l.Available(ctx) {
		return "", false
	}
	val, err := l.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error(errors.Wrapf(err, "failed to read %v from local storage", key))
		}

		return "", false
	}

	return val, true
}

// SetItem ignores cookie-only options, such as path, domain and expiry.
func (l *Local) SetItem(ctx context.Context, key, value string, _ ...Option) {
	if !l.Available(ctx) {
		return
	}
	log.Error(errors.Wrapf(l.backend.Set(ctx, key, value), "failed to write %v to local storage", key))
}

func (l *Local) RemoveItem(ctx context.Context, key string, _ ...Option) {
	if !l.Available(ctx) {
		return
	}
	if err := l.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		log.Error(errors.Wrapf(err, "failed to remove %v from local storage", key))
	}
}
