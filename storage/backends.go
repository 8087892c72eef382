// SPDX-License-Identifier: ice License 1.0

package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

func NewMemoryBackend() Backend {
	return &memoryBackend{values: make(map[string]string)}
}

func (m *memoryBackend) Get(_ context.Context, key string) (string, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	val, found := m.values[key]
	if !found {
		return "", ErrNotFound
	}

	return val, nil
}

func (m *memoryBackend) Set(_ context.Context, key, value string) error {
	m.mx.Lock()
	m.values[key] = value
	m.mx.Unlock()

	return nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	m.mx.Lock()
	delete(m.values, key)
	m.mx.Unlock()

	return nil
}

// NewFileBackend keeps every key in a single JSON document at path.
// Writes go to a sibling temp file that is renamed over the document, so readers never see a partial write.
func NewFileBackend(path string) Backend {
	return &fileBackend{path: path}
}

func (f *fileBackend) Get(_ context.Context, key string) (string, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	values, err := f.read()
	if err != nil {
		return "", err
	}
	val, found := values[key]
	if !found {
		return "", ErrNotFound
	}

	return val, nil
}

func (f *fileBackend) Set(_ context.Context, key, value string) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value

	return f.write(values)
}

func (f *fileBackend) Delete(_ context.Context, key string) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	if _, found := values[key]; !found {
		return nil
	}
	delete(values, key)

	return f.write(values)
}

func (f *fileBackend) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0) {
		return values, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %v", f.path)
	}
	if err = json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %v", f.path)
	}

	return values, nil
}

func (f *fileBackend) write(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "failed to encode local storage")
	}
	dir := filepath.Dir(f.path)
	if err = os.MkdirAll(dir, 0o700); err != nil { //nolint:mnd // Owner only.
		return errors.Wrapf(err, "failed to create %v", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file in %v", dir)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // It's gone after a successful rename.
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return errors.Wrapf(err, "failed to write %v", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %v", tmp.Name())
	}
	if err = os.Chmod(tmp.Name(), fileBackendPerm); err != nil {
		return errors.Wrapf(err, "failed to chmod %v", tmp.Name())
	}

	return errors.Wrapf(os.Rename(tmp.Name(), f.path), "failed to replace %v", f.path)
}

// NewRedisBackend stores keys as plain strings under `<namespace>:<key>`.
func NewRedisBackend(db redis.Cmdable, namespace string) Backend {
	if namespace == "" {
		namespace = redisKeyPrefix
	}

	return &redisBackend{db: db, namespace: namespace}
}

func (r *redisBackend) Get(ctx context.Context, key string) (string, error) {
	val, err := r.db.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}

	return val, errors.Wrapf(err, "failed to get %v", key)
}

func (r *redisBackend) Set(ctx context.Context, key, value string) error {
	return errors.Wrapf(r.db.Set(ctx, r.key(key), value, 0).Err(), "failed to set %v", key)
}

func (r *redisBackend) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(r.db.Del(ctx, r.key(key)).Err(), "failed to delete %v", key)
}

func (r *redisBackend) key(key string) string {
	return r.namespace + ":" + key
}
