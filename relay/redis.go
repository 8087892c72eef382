// SPDX-License-Identifier: ice License 1.0

package relay

import (
	"context"
	stdlibtime "time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/ice-blockchain/wallkit/log"
)

// NewRedisContext joins the `<namespace>:top` / `<namespace>:frames` channel pair as the top context or as a frame.
// Messages sent by the top reach every frame; messages sent by a frame reach the top.
func NewRedisContext(ctx context.Context, db redis.UniversalClient, namespace, origin string, top bool) *RedisContext {
	lifetime, cancel := context.WithCancel(context.WithoutCancel(ctx))

	return &RedisContext{db: db, ctx: lifetime, cancel: cancel, namespace: namespace, origin: origin, top: top}
}

func (rc *RedisContext) Origin() string {
	return rc.origin
}

func (rc *RedisContext) IsTop() bool {
	return rc.top
}

func (rc *RedisContext) Top() BrowsingContext {
	if rc.top {
		return rc
	}

	return &redisPeer{owner: rc, channel: rc.channel(topChannel)}
}

// Frames of a top context is a single peer fanning out to every subscribed frame.
func (rc *RedisContext) Frames() []BrowsingContext {
	if !rc.top {
		return nil
	}

	return []BrowsingContext{&redisPeer{owner: rc, channel: rc.channel(framesChannel)}}
}

func (rc *RedisContext) PostMessage(ctx context.Context, sourceOrigin string, data json.RawMessage, targetOrigin string) error {
	return rc.publish(ctx, rc.ownChannel(), sourceOrigin, data, targetOrigin)
}

// Listen subscribes to the context's own channel. The subscription is re-established with exponential backoff
// until stop is called or the context is closed.
func (rc *RedisContext) Listen(handler func(*MessageEvent)) (stop func()) {
	ctx, cancel := context.WithCancel(rc.ctx)
	rc.wg.Add(1)
	go func() {
		defer rc.wg.Done()
		rc.listen(ctx, handler)
	}()

	return cancel
}

func (rc *RedisContext) listen(ctx context.Context, handler func(*MessageEvent)) {
	channel := rc.ownChannel()
	for ctx.Err() == nil {
		err := backoff.RetryNotify(
			func() error {
				return rc.consume(ctx, channel, handler)
			},
			backoff.WithContext(newBackoff(), ctx),
			func(err error, next stdlibtime.Duration) {
				log.Error(errors.Wrapf(err, "subscription to %v failed, retrying in %v", channel, next))
			})
		if err != nil && ctx.Err() == nil {
			log.Error(errors.Wrapf(err, "subscription to %v gave up", channel))
		}
	}
}

func (rc *RedisContext) consume(ctx context.Context, channel string, handler func(*MessageEvent)) error {
	sub := rc.db.Subscribe(ctx, channel)
	defer func() {
		log.Error(errors.Wrapf(sub.Close(), "failed to close subscription to %v", channel))
	}()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		return errors.Wrapf(err, "failed to subscribe to %v", channel)
	}
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.Errorf("subscription to %v closed", channel)
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Warn("dropping malformed relay envelope", "channel", channel, "error", err)

				continue
			}
			if deliverable(env.Target, rc.origin) {
				handler(&MessageEvent{Origin: env.Origin, Data: env.Data})
			}
		}
	}
}

func (rc *RedisContext) publish(ctx context.Context, channel, sourceOrigin string, data json.RawMessage, targetOrigin string) error {
	if rc.ctx.Err() != nil {
		return ErrClosed
	}
	payload, err := json.Marshal(&envelope{Origin: sourceOrigin, Target: targetOrigin, Data: data})
	if err != nil {
		return errors.Wrap(err, "failed to encode relay envelope")
	}

	return errors.Wrapf(rc.db.Publish(ctx, channel, payload).Err(), "failed to publish to %v", channel)
}

// Close stops every listener. The redis client is owned by the caller.
func (rc *RedisContext) Close() error {
	rc.cancel()
	rc.wg.Wait()

	return nil
}

func (rc *RedisContext) ownChannel() string {
	if rc.top {
		return rc.channel(topChannel)
	}

	return rc.channel(framesChannel)
}

func (rc *RedisContext) channel(name string) string {
	return rc.namespace + ":" + name
}

//nolint:mnd,gomnd // Static config.
func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * stdlibtime.Millisecond
	b.MaxInterval = 10 * stdlibtime.Second
	b.MaxElapsedTime = 0

	return b
}

func (p *redisPeer) Origin() string {
	return ""
}

func (p *redisPeer) IsTop() bool {
	return p.channel == p.owner.channel(topChannel)
}

func (p *redisPeer) Top() BrowsingContext {
	return p.owner.Top()
}

func (*redisPeer) Frames() []BrowsingContext {
	return nil
}

func (p *redisPeer) PostMessage(ctx context.Context, sourceOrigin string, data json.RawMessage, targetOrigin string) error {
	return p.owner.publish(ctx, p.channel, sourceOrigin, data, targetOrigin)
}

// Listen is a no-op: a peer is only a publishing target.
func (*redisPeer) Listen(func(*MessageEvent)) (stop func()) {
	return func() {}
}
