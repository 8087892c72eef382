// SPDX-License-Identifier: ice License 1.0

package relay

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/log"
)

func New(bc BrowsingContext) *Relay {
	return &Relay{bc: bc}
}

func (r *Relay) Context() BrowsingContext {
	return r.bc
}

// Send is fire and forget. A top context posts to each of its frames, any other context posts to its top.
// Failures are logged, never returned.
func (r *Relay) Send(ctx context.Context, name string, value, params any) {
	data, err := json.Marshal(&Message{Name: name, Value: value, Params: params})
	if err != nil {
		log.Error(errors.Wrapf(err, "failed to encode %v", name))

		return
	}
	log.Trace("WkGoSDK ==>", "message", string(data))
	if r.bc.IsTop() {
		for _, frame := range r.bc.Frames() {
			log.Error(errors.Wrapf(frame.PostMessage(ctx, r.bc.Origin(), data, AnyOrigin), "failed to post %v to a frame", name))
		}

		return
	}
	if top := r.bc.Top(); top != nil {
		log.Error(errors.Wrapf(top.PostMessage(ctx, r.bc.Origin(), data, AnyOrigin), "failed to post %v to the top", name))
	}
}

// Parse accepts ev only if it comes from a trusted origin other than ownOrigin
// and carries a JSON object with a string `name` and a `value` for one of the inbound events.
func Parse(trusted TrustedOrigins, ownOrigin string, ev *MessageEvent) (*Event, bool) {
	if ev == nil || ev.Origin == "" || ev.Origin == ownOrigin || trusted == nil || !trusted.Has(ev.Origin) {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(ev.Data, &fields); err != nil || fields == nil {
		return nil, false
	}
	rawName, hasName := fields["name"]
	value, hasValue := fields["value"]
	if !hasName || !hasValue {
		return nil, false
	}
	var name string
	if err := json.Unmarshal(rawName, &name); err != nil {
		return nil, false
	}
	kind, known := KindOf(name)
	if !known {
		return nil, false
	}

	return &Event{Name: name, Value: value, Kind: kind}, true
}

func KindOf(name string) (Kind, bool) {
	switch name {
	case EventRegistration, EventAuth, EventUser, EventUserUpdate, EventConfirmPassword:
		return KindUser, true
	case EventToken:
		return KindToken, true
	case EventCheckToken:
		return KindCheckToken, true
	case EventFirebaseToken:
		return KindFirebaseToken, true
	default:
		return 0, false
	}
}

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindToken:
		return "token"
	case KindCheckToken:
		return "check-token"
	case KindFirebaseToken:
		return "firebase-token"
	default:
		return "unknown"
	}
}

func deliverable(targetOrigin, origin string) bool {
	return targetOrigin == "" || targetOrigin == AnyOrigin || targetOrigin == origin
}
